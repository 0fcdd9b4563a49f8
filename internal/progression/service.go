// Package progression ties the ledger, achievement engine and reconciler to
// persistent state. Every profile write is a compare-and-swap against the
// latest read, retried a bounded number of times on conflict; callers only
// ever supply deltas.
package progression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/hyperengineering/ascend/internal/achievement"
	"github.com/hyperengineering/ascend/internal/clock"
	"github.com/hyperengineering/ascend/internal/ledger"
	"github.com/hyperengineering/ascend/internal/reconcile"
	"github.com/hyperengineering/ascend/internal/store"
	"github.com/hyperengineering/ascend/internal/types"
)

// Defaults applied by NewService to zero Config fields.
const (
	DefaultMaxHP         = 100
	DefaultCASMaxRetries = 3
	DefaultCASBackoff    = 10 * time.Millisecond
)

// Store is the persistence the service needs.
type Store interface {
	reconcile.Store

	GetOrCreateProfile(ctx context.Context, userID string, maxHP int) (types.Profile, error)
	CASUpdateProfile(ctx context.Context, userID string, expected, next types.Profile) error

	CreateHabit(ctx context.Context, h types.HabitDefinition) (types.HabitDefinition, error)
	GetHabit(ctx context.Context, userID, habitID string) (types.HabitDefinition, error)
	ListHabits(ctx context.Context, userID string, includeArchived bool) ([]types.HabitDefinition, error)
	ArchiveHabit(ctx context.Context, userID, habitID string) error
	ListCompletionDates(ctx context.Context, userID string) ([]types.Date, error)

	GetUnlockedAchievements(ctx context.Context, userID string) ([]types.UnlockedAchievement, error)
	CommitAchievementUnlocks(ctx context.Context, userID string, expected, next types.Profile, ids []string, date types.Date) error
	CommitHabitStatus(ctx context.Context, change store.HabitStatusChange) error

	Publish(ctx context.Context, e types.Event) error
	ListEvents(ctx context.Context, userID, afterID string, limit int) ([]types.Event, error)
}

// Config tunes the service.
type Config struct {
	HPPerMissedHabit int
	DefaultMaxHP     int
	CASMaxRetries    int
	CASBackoff       time.Duration
	// Location is where day boundaries fall. Nil means UTC.
	Location *time.Location
}

// Service is the progression engine's entry point.
type Service struct {
	store      Store
	registry   *achievement.Registry
	reconciler *reconcile.Reconciler
	clock      clock.Clock
	cfg        Config
}

// NewService creates a Service. Zero Config fields take their defaults.
func NewService(st Store, registry *achievement.Registry, clk clock.Clock, cfg Config) *Service {
	if cfg.DefaultMaxHP <= 0 {
		cfg.DefaultMaxHP = DefaultMaxHP
	}
	if cfg.CASMaxRetries < 0 {
		cfg.CASMaxRetries = 0
	} else if cfg.CASMaxRetries == 0 {
		cfg.CASMaxRetries = DefaultCASMaxRetries
	}
	if cfg.CASBackoff <= 0 {
		cfg.CASBackoff = DefaultCASBackoff
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		store:      st,
		registry:   registry,
		reconciler: reconcile.New(st, st, cfg.HPPerMissedHabit),
		clock:      clk,
		cfg:        cfg,
	}
}

// Registry returns the achievement registry the service evaluates.
func (s *Service) Registry() *achievement.Registry {
	return s.registry
}

// Change is the before and after of a profile write.
type Change struct {
	Before types.Profile `json:"before"`
	After  types.Profile `json:"after"`
}

// Profile returns userID's profile, creating it on first access.
func (s *Service) Profile(ctx context.Context, userID string) (types.Profile, error) {
	p, err := s.store.GetOrCreateProfile(ctx, userID, s.cfg.DefaultMaxHP)
	if err != nil {
		return types.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

// Today returns the logical date for p at the current instant.
func (s *Service) Today(p types.Profile) types.Date {
	return types.LogicalDate(s.clock.Now().In(s.cfg.Location), p.DayStartHour)
}

// ApplyXP adds delta XP to userID's profile.
func (s *Service) ApplyXP(ctx context.Context, userID string, delta int) (Change, error) {
	return s.updateProfile(ctx, userID, "apply_xp", func(p types.Profile) (types.Profile, error) {
		return ledger.ApplyXPDelta(p, delta)
	})
}

// ApplyHP adds delta HP to userID's profile.
func (s *Service) ApplyHP(ctx context.Context, userID string, delta int) (Change, error) {
	return s.updateProfile(ctx, userID, "apply_hp", func(p types.Profile) (types.Profile, error) {
		return ledger.ApplyHPDelta(p, delta)
	})
}

func (s *Service) updateProfile(ctx context.Context, userID, action string, apply func(types.Profile) (types.Profile, error)) (Change, error) {
	var change Change
	err := s.withRetry(ctx, action, func(ctx context.Context) error {
		before, err := s.Profile(ctx, userID)
		if err != nil {
			return err
		}
		after, err := apply(before)
		if err != nil {
			return err
		}
		if after != before {
			if err := s.store.CASUpdateProfile(ctx, userID, before, after); err != nil {
				return err
			}
		}
		change = Change{Before: before, After: after}
		return nil
	})
	if err != nil {
		return Change{}, err
	}
	s.publishLevelChange(ctx, userID, change.Before, change.After)
	return change, nil
}

// OpenResult is the outcome of an app open.
type OpenResult struct {
	Date           types.Date             `json:"date"`
	Reconciliation reconcile.Result       `json:"reconciliation"`
	Unlocked       []achievement.Decision `json:"unlocked"`
	Profile        types.Profile          `json:"profile"`
}

// OpenApp reconciles the days userID missed before date and then runs an
// achievement pass. A zero date means the user's logical today; a later
// date is rejected.
func (s *Service) OpenApp(ctx context.Context, userID string, date types.Date) (OpenResult, error) {
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return OpenResult{}, err
	}
	today := s.Today(p)
	if date.IsZero() {
		date = today
	}
	if date.After(today) {
		return OpenResult{}, fmt.Errorf("%w: %s is after today (%s)", ledger.ErrInvalidArgument, date, today)
	}

	var res reconcile.Result
	err = s.withRetry(ctx, "reconcile", func(ctx context.Context) error {
		var runErr error
		res, runErr = s.reconciler.Run(ctx, userID, date)
		return runErr
	})
	if err != nil {
		return OpenResult{}, err
	}

	unlocked, err := s.EvaluateAchievements(ctx, userID, date)
	if err != nil {
		return OpenResult{}, err
	}

	p, err = s.Profile(ctx, userID)
	if err != nil {
		return OpenResult{}, err
	}
	return OpenResult{Date: date, Reconciliation: res, Unlocked: unlocked, Profile: p}, nil
}

// Events lists userID's events published after afterID.
func (s *Service) Events(ctx context.Context, userID, afterID string, limit int) ([]types.Event, error) {
	events, err := s.store.ListEvents(ctx, userID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// withRetry runs fn, repeating it while it fails with store.ErrConflict.
func (s *Service) withRetry(ctx context.Context, action string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(uint64(s.cfg.CASMaxRetries), retry.NewConstant(s.cfg.CASBackoff))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if errors.Is(err, store.ErrConflict) {
			slog.Debug("profile write conflicted, retrying",
				"component", "progression",
				"action", action,
				"attempt", attempt,
			)
			return retry.RetryableError(err)
		}
		return err
	})
}

// publish hands e to the event log. Failures are logged; the state change
// the event describes has already committed.
func (s *Service) publish(ctx context.Context, e types.Event) {
	if err := s.store.Publish(ctx, e); err != nil {
		slog.Warn("event publish failed",
			"component", "progression",
			"action", "publish_failed",
			"user_id", e.UserID,
			"type", string(e.Type),
			"error", err,
		)
	}
}

func (s *Service) publishLevelChange(ctx context.Context, userID string, before, after types.Profile) {
	var typ types.EventType
	switch {
	case ledger.LevelsGained(before, after) > 0:
		typ = types.EventLevelUp
	case ledger.LevelsLost(before, after) > 0:
		typ = types.EventLevelDown
	default:
		return
	}
	s.publish(ctx, types.Event{
		UserID:  userID,
		Type:    typ,
		Payload: types.EventPayload{LevelBefore: before.Level, LevelAfter: after.Level},
	})
}
