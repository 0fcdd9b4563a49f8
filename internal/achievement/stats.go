package achievement

import (
	"github.com/hyperengineering/ascend/internal/leveling"
	"github.com/hyperengineering/ascend/internal/types"
)

// StatsInput is the raw material for a Snapshot.
type StatsInput struct {
	// Today is the user's logical date.
	Today types.Date
	// Completions holds the date of every completed habit log, one entry per
	// log, in any order.
	Completions   []types.Date
	Profile       types.Profile
	UnlockedCount int
}

// ComputeSnapshot aggregates in into a Snapshot.
//
// The streak counts consecutive days with at least one completion, ending
// today, or ending yesterday when nothing has been completed yet today.
func ComputeSnapshot(in StatsInput) Snapshot {
	perDay := make(map[types.Date]int, len(in.Completions))
	for _, d := range in.Completions {
		perDay[d]++
	}

	streak := 0
	day := in.Today
	if perDay[day] == 0 {
		day = day.AddDays(-1)
	}
	for perDay[day] > 0 {
		streak++
		day = day.AddDays(-1)
	}

	return Snapshot{
		Streak:           streak,
		TotalCompletions: len(in.Completions),
		DailyCompletions: perDay[in.Today],
		TotalXP:          leveling.TotalXP(in.Profile.Level, in.Profile.XP),
		Level:            in.Profile.Level,
		UnlockedCount:    in.UnlockedCount,
	}
}
