package progression

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hyperengineering/ascend/internal/achievement"
	"github.com/hyperengineering/ascend/internal/ledger"
	"github.com/hyperengineering/ascend/internal/types"
)

// AchievementStatus is one registry entry as seen by a user.
type AchievementStatus struct {
	achievement.Definition
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt types.Date `json:"unlocked_at"`
	Progress   float64    `json:"progress"`
}

// snapshot gathers the statistics for one evaluation pass.
func (s *Service) snapshot(ctx context.Context, userID string, p types.Profile, date types.Date) (achievement.Snapshot, []types.UnlockedAchievement, error) {
	unlocked, err := s.store.GetUnlockedAchievements(ctx, userID)
	if err != nil {
		return achievement.Snapshot{}, nil, fmt.Errorf("load unlocked achievements: %w", err)
	}
	completions, err := s.store.ListCompletionDates(ctx, userID)
	if err != nil {
		return achievement.Snapshot{}, nil, fmt.Errorf("load completions: %w", err)
	}
	snap := achievement.ComputeSnapshot(achievement.StatsInput{
		Today:         date,
		Completions:   completions,
		Profile:       p,
		UnlockedCount: len(unlocked),
	})
	return snap, unlocked, nil
}

func unlockedSet(unlocked []types.UnlockedAchievement) achievement.Set {
	set := make(achievement.Set, len(unlocked))
	for _, u := range unlocked {
		set[u.AchievementID] = struct{}{}
	}
	return set
}

// EvaluateAchievements runs one achievement pass for userID on date. Newly
// unlocked achievements are recorded and their summed XP reward is granted in
// the same transaction. It returns the new unlocks in registry order.
func (s *Service) EvaluateAchievements(ctx context.Context, userID string, date types.Date) ([]achievement.Decision, error) {
	var (
		newly         []achievement.Decision
		before, after types.Profile
	)
	err := s.withRetry(ctx, "evaluate_achievements", func(ctx context.Context) error {
		p, err := s.Profile(ctx, userID)
		if err != nil {
			return err
		}
		snap, unlocked, err := s.snapshot(ctx, userID, p, date)
		if err != nil {
			return err
		}

		newly = achievement.NewlyUnlocked(s.registry.Evaluate(snap, unlockedSet(unlocked)))
		before, after = p, p
		if len(newly) == 0 {
			return nil
		}

		after, err = ledger.ApplyXPDelta(p, achievement.TotalReward(newly))
		if err != nil {
			return err
		}
		ids := make([]string, len(newly))
		for i, d := range newly {
			ids[i] = d.AchievementID
		}
		return s.store.CommitAchievementUnlocks(ctx, userID, p, after, ids, date)
	})
	if err != nil {
		return nil, err
	}
	if len(newly) == 0 {
		return []achievement.Decision{}, nil
	}

	for _, d := range newly {
		slog.Info("achievement unlocked",
			"component", "progression",
			"action", "achievement_unlocked",
			"user_id", userID,
			"achievement_id", d.AchievementID,
			"xp_reward", d.XPReward,
		)
		s.publish(ctx, types.Event{
			UserID: userID,
			Type:   types.EventAchievementUnlocked,
			Payload: types.EventPayload{
				AchievementID: d.AchievementID,
				XPReward:      d.XPReward,
			},
		})
	}
	s.publishLevelChange(ctx, userID, before, after)
	return newly, nil
}

// Achievements lists every registry entry with userID's unlock state and
// progress toward it.
func (s *Service) Achievements(ctx context.Context, userID string) ([]AchievementStatus, error) {
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap, unlocked, err := s.snapshot(ctx, userID, p, s.Today(p))
	if err != nil {
		return nil, err
	}

	unlockedAt := make(map[string]types.Date, len(unlocked))
	for _, u := range unlocked {
		unlockedAt[u.AchievementID] = u.UnlockedAt
	}
	set := unlockedSet(unlocked)

	defs := s.registry.All()
	out := make([]AchievementStatus, 0, len(defs))
	for _, def := range defs {
		// Read-only: a met condition shows full progress but is only
		// recorded by EvaluateAchievements.
		d := achievement.CheckUnlock(def, snap, set)
		out = append(out, AchievementStatus{
			Definition: def,
			Unlocked:   set.Has(def.ID),
			UnlockedAt: unlockedAt[def.ID],
			Progress:   d.Progress,
		})
	}
	return out, nil
}
