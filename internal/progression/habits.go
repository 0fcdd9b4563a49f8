package progression

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperengineering/ascend/internal/achievement"
	"github.com/hyperengineering/ascend/internal/ledger"
	"github.com/hyperengineering/ascend/internal/store"
	"github.com/hyperengineering/ascend/internal/types"
)

// DefaultXPReward is the XP a completion earns when the habit sets none.
const DefaultXPReward = 10

// XPForStatus returns the XP a habit log with status is worth.
func XPForStatus(h types.HabitDefinition, status types.HabitStatus) int {
	reward := h.XPReward
	if reward <= 0 {
		reward = DefaultXPReward
	}
	switch status {
	case types.StatusCompleted:
		return reward
	case types.StatusPartial:
		return reward / 2
	default:
		return 0
	}
}

// NextStatus returns the status a tap on the habit button moves to. Good
// habits cycle none, completed, partial, skipped; bad habits toggle between
// none and completed (resisted). A missed entry taps to completed.
func NextStatus(current types.HabitStatus, isBadHabit bool) types.HabitStatus {
	if isBadHabit {
		if current == types.StatusCompleted {
			return ""
		}
		return types.StatusCompleted
	}
	switch current {
	case types.StatusCompleted:
		return types.StatusPartial
	case types.StatusPartial:
		return types.StatusSkipped
	case types.StatusSkipped:
		return ""
	default:
		return types.StatusCompleted
	}
}

// HabitStatusResult is the outcome of SetHabitStatus.
type HabitStatusResult struct {
	HabitID  string                 `json:"habit_id"`
	Date     types.Date             `json:"date"`
	Previous types.HabitStatus      `json:"previous"`
	Status   types.HabitStatus      `json:"status"`
	XPDelta  int                    `json:"xp_delta"`
	Profile  types.Profile          `json:"profile"`
	Unlocked []achievement.Decision `json:"unlocked"`
}

// SetHabitStatus records status for habitID on date, or clears the entry when
// status is empty. The XP difference between the old and new status is
// applied in the same transaction as the log write, then an achievement pass
// runs. Users cannot set missed and cannot log future days.
func (s *Service) SetHabitStatus(ctx context.Context, userID, habitID string, date types.Date, status types.HabitStatus) (HabitStatusResult, error) {
	if status == types.StatusMissed {
		return HabitStatusResult{}, fmt.Errorf("%w: missed is recorded by reconciliation only", ledger.ErrInvalidArgument)
	}
	if status != "" && !status.IsValid() {
		return HabitStatusResult{}, fmt.Errorf("%w: unknown status %q", ledger.ErrInvalidArgument, status)
	}
	if date.IsZero() {
		return HabitStatusResult{}, fmt.Errorf("%w: date is required", ledger.ErrInvalidArgument)
	}

	habit, err := s.store.GetHabit(ctx, userID, habitID)
	if err != nil {
		return HabitStatusResult{}, fmt.Errorf("load habit: %w", err)
	}
	if habit.Archived {
		return HabitStatusResult{}, fmt.Errorf("%w: habit is archived", ledger.ErrInvalidArgument)
	}

	res := HabitStatusResult{HabitID: habitID, Date: date, Status: status}
	var before types.Profile
	err = s.withRetry(ctx, "set_habit_status", func(ctx context.Context) error {
		p, err := s.Profile(ctx, userID)
		if err != nil {
			return err
		}
		if today := s.Today(p); date.After(today) {
			return fmt.Errorf("%w: %s is after today (%s)", ledger.ErrInvalidArgument, date, today)
		}

		var previous types.HabitStatus
		entry, err := s.store.GetHabitLog(ctx, habitID, date)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return fmt.Errorf("load habit log: %w", err)
		default:
			previous = entry.Status
		}

		delta := XPForStatus(habit, status) - XPForStatus(habit, previous)
		next, err := ledger.ApplyXPDelta(p, delta)
		if err != nil {
			return err
		}

		err = s.store.CommitHabitStatus(ctx, store.HabitStatusChange{
			UserID:   userID,
			HabitID:  habitID,
			Date:     date,
			Previous: previous,
			Status:   status,
			Expected: p,
			Next:     next,
		})
		if err != nil {
			return err
		}
		before = p
		res.Previous = previous
		res.XPDelta = delta
		res.Profile = next
		return nil
	})
	if err != nil {
		return HabitStatusResult{}, err
	}
	s.publishLevelChange(ctx, userID, before, res.Profile)

	res.Unlocked, err = s.EvaluateAchievements(ctx, userID, date)
	if err != nil {
		return HabitStatusResult{}, err
	}
	if len(res.Unlocked) > 0 {
		if res.Profile, err = s.Profile(ctx, userID); err != nil {
			return HabitStatusResult{}, err
		}
	}
	return res, nil
}

// CreateHabit validates req and stores a new habit for userID.
func (s *Service) CreateHabit(ctx context.Context, userID string, req types.CreateHabitRequest) (types.HabitDefinition, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return types.HabitDefinition{}, fmt.Errorf("%w: name is required", ledger.ErrInvalidArgument)
	}
	seen := make(map[int]bool, len(req.FrequencyDays))
	days := make([]int, 0, len(req.FrequencyDays))
	for _, d := range req.FrequencyDays {
		if d < 0 || d > 6 {
			return types.HabitDefinition{}, fmt.Errorf("%w: weekday %d outside 0..6", ledger.ErrInvalidArgument, d)
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	if req.XPReward < 0 {
		return types.HabitDefinition{}, fmt.Errorf("%w: negative xp reward", ledger.ErrInvalidArgument)
	}
	reward := req.XPReward
	if reward == 0 {
		reward = DefaultXPReward
	}

	if _, err := s.Profile(ctx, userID); err != nil {
		return types.HabitDefinition{}, err
	}
	h, err := s.store.CreateHabit(ctx, types.HabitDefinition{
		UserID:        userID,
		Name:          name,
		FrequencyDays: days,
		IsBadHabit:    req.IsBadHabit,
		XPReward:      reward,
	})
	if err != nil {
		return types.HabitDefinition{}, fmt.Errorf("create habit: %w", err)
	}
	return h, nil
}

// ListHabits returns userID's habits.
func (s *Service) ListHabits(ctx context.Context, userID string, includeArchived bool) ([]types.HabitDefinition, error) {
	habits, err := s.store.ListHabits(ctx, userID, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	return habits, nil
}

// ArchiveHabit stops scheduling a habit. Past logs stay.
func (s *Service) ArchiveHabit(ctx context.Context, userID, habitID string) error {
	if err := s.store.ArchiveHabit(ctx, userID, habitID); err != nil {
		return fmt.Errorf("archive habit: %w", err)
	}
	return nil
}
