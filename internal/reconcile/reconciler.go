// Package reconcile charges users for habits they did not log on days they
// did not open the app.
//
// Each user has a watermark: the last day already reconciled. A run walks the
// days strictly between the watermark and today, inserts a missed entry for
// every due habit that has none, and charges the summed HP penalty once. The
// profile write and the watermark advance commit together, so a failed run
// leaves no trace except the idempotent missed rows and can simply be repeated.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hyperengineering/ascend/internal/ledger"
	"github.com/hyperengineering/ascend/internal/types"
)

// DefaultHPPerMissedHabit is the HP charged for each missed habit-day.
const DefaultHPPerMissedHabit = 10

// Store is the persistence the reconciler needs.
type Store interface {
	GetProfile(ctx context.Context, userID string) (types.Profile, error)
	ListActiveHabits(ctx context.Context, userID string) ([]types.HabitDefinition, error)
	ListHabitLogs(ctx context.Context, habitIDs []string, r types.DateRange) ([]types.HabitLogEntry, error)
	InsertHabitLogIfAbsent(ctx context.Context, userID string, entry types.HabitLogEntry) (bool, error)
	GetHabitLog(ctx context.Context, habitID string, date types.Date) (types.HabitLogEntry, error)
	GetWatermark(ctx context.Context, userID string) (types.Date, bool, error)
	SetWatermark(ctx context.Context, userID string, date types.Date) error
	CommitReconciliation(ctx context.Context, userID string, expected, next types.Profile, watermark types.Date) error
}

// EventSink receives notifications for the UI.
type EventSink interface {
	Publish(ctx context.Context, e types.Event) error
}

// Result describes a finished run.
type Result struct {
	UserID string `json:"user_id"`
	State  State  `json:"state"`
	// Baseline is set when this was the user's first run: the watermark was
	// initialized to yesterday and nothing was charged.
	Baseline    bool            `json:"baseline"`
	Range       types.DateRange `json:"range"`
	Inserted    int             `json:"inserted"`
	MissedCount int             `json:"missed_count"`
	Penalty     int             `json:"penalty"`
	Before      types.Profile   `json:"before"`
	After       types.Profile   `json:"after"`
	Watermark   types.Date      `json:"watermark"`
	Event       *types.Event    `json:"event,omitempty"`
}

// Reconciler runs backfill reconciliation. It is safe for concurrent use;
// runs for the same user are serialized by the store's compare-and-swap.
type Reconciler struct {
	store            Store
	events           EventSink
	hpPerMissedHabit int
}

// New creates a Reconciler. A non-positive hpPerMissedHabit uses the default.
func New(store Store, events EventSink, hpPerMissedHabit int) *Reconciler {
	if hpPerMissedHabit <= 0 {
		hpPerMissedHabit = DefaultHPPerMissedHabit
	}
	return &Reconciler{
		store:            store,
		events:           events,
		hpPerMissedHabit: hpPerMissedHabit,
	}
}

type logKey struct {
	habitID string
	date    types.Date
}

// Run reconciles userID up to, but not including, today. Every error is an
// *AbortError matching ErrReconciliationAborted.
func (r *Reconciler) Run(ctx context.Context, userID string, today types.Date) (Result, error) {
	res := Result{UserID: userID, State: StateIdle}
	yesterday := today.AddDays(-1)

	fail := func(err error) (Result, error) {
		stage := res.State
		res.State = StateFailed
		slog.Warn("reconciliation aborted",
			"component", "reconciler",
			"action", "reconcile_failed",
			"user_id", userID,
			"stage", stage.String(),
			"error", err,
		)
		return res, &AbortError{UserID: userID, Stage: stage, Err: err}
	}

	res.State = StateLoadingWatermark
	watermark, ok, err := r.store.GetWatermark(ctx, userID)
	if err != nil {
		return fail(fmt.Errorf("load watermark: %w", err))
	}
	if !ok {
		if err := r.store.SetWatermark(ctx, userID, yesterday); err != nil {
			return fail(fmt.Errorf("initialize watermark: %w", err))
		}
		res.Baseline = true
		res.Watermark = yesterday
		res.State = StateDone
		slog.Info("reconciliation baseline set",
			"component", "reconciler",
			"action", "reconcile_baseline",
			"user_id", userID,
			"watermark", yesterday.String(),
		)
		return res, nil
	}
	res.Watermark = watermark

	rng := types.DateRange{From: watermark.AddDays(1), To: yesterday}
	if rng.Empty() {
		res.State = StateDone
		return res, nil
	}
	res.Range = rng

	res.State = StateProcessingDays
	profile, err := r.store.GetProfile(ctx, userID)
	if err != nil {
		return fail(fmt.Errorf("load profile: %w", err))
	}
	res.Before, res.After = profile, profile

	habits, err := r.store.ListActiveHabits(ctx, userID)
	if err != nil {
		return fail(fmt.Errorf("list habits: %w", err))
	}
	var due []types.HabitDefinition
	ids := make([]string, 0, len(habits))
	for _, h := range habits {
		if h.Archived || h.IsBadHabit {
			continue
		}
		due = append(due, h)
		ids = append(ids, h.ID)
	}

	logs, err := r.store.ListHabitLogs(ctx, ids, rng)
	if err != nil {
		return fail(fmt.Errorf("list habit logs: %w", err))
	}
	existing := make(map[logKey]types.HabitStatus, len(logs))
	for _, e := range logs {
		existing[logKey{e.HabitID, e.Date}] = e.Status
	}

	for _, d := range rng.Days() {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		weekday := d.Weekday()
		for _, h := range due {
			if !h.DueOn(weekday) {
				continue
			}
			status, found := existing[logKey{h.ID, d}]
			if !found {
				inserted, err := r.store.InsertHabitLogIfAbsent(ctx, userID, types.HabitLogEntry{
					HabitID: h.ID,
					Date:    d,
					Status:  types.StatusMissed,
				})
				if err != nil {
					return fail(fmt.Errorf("insert missed log for %s on %s: %w", h.ID, d, err))
				}
				if inserted {
					res.Inserted++
					status = types.StatusMissed
				} else {
					// Someone wrote the row after our read. A user log wins;
					// a missed row from another run is still unpaid here.
					entry, err := r.store.GetHabitLog(ctx, h.ID, d)
					if err != nil {
						return fail(fmt.Errorf("reload log for %s on %s: %w", h.ID, d, err))
					}
					status = entry.Status
				}
			}
			// Missed rows inside the uncommitted range are unpaid, whether
			// written now or by an earlier run that failed to commit.
			if status == types.StatusMissed {
				res.MissedCount++
			}
		}
	}

	res.State = StateApplyingPenalty
	res.Penalty = res.MissedCount * r.hpPerMissedHabit
	next := profile
	if res.Penalty > 0 {
		next, err = ledger.ApplyHPDelta(profile, -res.Penalty)
		if err != nil {
			return fail(fmt.Errorf("apply penalty: %w", err))
		}
	}

	res.State = StateAdvancingWatermark
	if err := r.store.CommitReconciliation(ctx, userID, profile, next, yesterday); err != nil {
		return fail(fmt.Errorf("commit: %w", err))
	}
	res.After = next
	res.Watermark = yesterday
	res.State = StateDone

	slog.Info("reconciliation complete",
		"component", "reconciler",
		"action", "reconcile_done",
		"user_id", userID,
		"from", rng.From.String(),
		"to", rng.To.String(),
		"inserted", res.Inserted,
		"missed", res.MissedCount,
		"penalty", res.Penalty,
		"level_before", profile.Level,
		"level_after", next.Level,
	)

	if res.MissedCount > 0 {
		res.Event = r.publish(ctx, userID, profile, next, res)
	}
	return res, nil
}

// publish emits the outcome event. The run has already committed, so a sink
// failure is logged rather than returned.
func (r *Reconciler) publish(ctx context.Context, userID string, before, after types.Profile, res Result) *types.Event {
	e := types.Event{
		UserID: userID,
		Type:   types.EventHabitsMissed,
		Payload: types.EventPayload{
			TotalMissedCount: res.MissedCount,
			TotalPenalty:     res.Penalty,
			LevelBefore:      before.Level,
			LevelAfter:       after.Level,
		},
	}
	if ledger.LevelsLost(before, after) > 0 {
		e.Type = types.EventLevelDown
	}
	if r.events == nil {
		return &e
	}
	if err := r.events.Publish(ctx, e); err != nil {
		slog.Warn("event publish failed",
			"component", "reconciler",
			"action", "publish_failed",
			"user_id", userID,
			"type", string(e.Type),
			"error", err,
		)
	}
	return &e
}
