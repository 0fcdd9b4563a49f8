package achievement

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperengineering/ascend/internal/types"
)

func gte(m Metric, target int) Condition {
	return Condition{Metric: m, Op: OpGTE, Target: target}
}

func TestEvaluateProgress_Partial(t *testing.T) {
	p := EvaluateProgress(gte(MetricTotalCompletions, 5), Snapshot{TotalCompletions: 4})
	assert.InDelta(t, 0.8, p, 1e-9)
}

func TestEvaluateProgress_ZeroTargetAndClamp(t *testing.T) {
	assert.Equal(t, 0.0, EvaluateProgress(gte(MetricStreak, 0), Snapshot{Streak: 10}))
	assert.Equal(t, 1.0, EvaluateProgress(gte(MetricStreak, 7), Snapshot{Streak: 30}))
	assert.Equal(t, 0.0, EvaluateProgress(gte(MetricLevel, 5), Snapshot{}))
}

func TestCheckUnlock_BelowTarget(t *testing.T) {
	def := Definition{ID: "five", Rarity: RarityCommon, Condition: gte(MetricTotalCompletions, 5)}

	d := CheckUnlock(def, Snapshot{TotalCompletions: 4}, NewSet())

	assert.False(t, d.Unlocked)
	assert.False(t, d.NewlyUnlocked)
	assert.InDelta(t, 0.8, d.Progress, 1e-9)
}

func TestCheckUnlock_NewlyUnlocked(t *testing.T) {
	def := Definition{ID: "five", XPReward: 40, Condition: gte(MetricTotalCompletions, 5)}

	d := CheckUnlock(def, Snapshot{TotalCompletions: 5}, NewSet())

	assert.True(t, d.Unlocked)
	assert.True(t, d.NewlyUnlocked)
	assert.Equal(t, 1.0, d.Progress)
	assert.Equal(t, 40, d.XPReward)
}

func TestCheckUnlock_MonotonicOnceUnlocked(t *testing.T) {
	def := Definition{ID: "streak-7", Condition: gte(MetricStreak, 7)}

	first := CheckUnlock(def, Snapshot{Streak: 7}, NewSet())
	require.True(t, first.NewlyUnlocked)

	// The streak breaks, but the unlock is a recorded fact.
	unlocked := NewSet(def.ID)
	for _, streak := range []int{0, 3, 6, 100} {
		d := CheckUnlock(def, Snapshot{Streak: streak}, unlocked)
		assert.True(t, d.Unlocked, "streak %d", streak)
		assert.False(t, d.NewlyUnlocked, "streak %d", streak)
		assert.Equal(t, 1.0, d.Progress, "unlocked implies full progress")
	}
}

func TestRegistryEvaluate_RegistryOrderAndNoFeedback(t *testing.T) {
	reg, err := NewRegistry([]Definition{
		{ID: "c", Rarity: RarityCommon, XPReward: 10, Condition: gte(MetricTotalCompletions, 1)},
		{ID: "a", Rarity: RarityRare, XPReward: 20, Condition: gte(MetricTotalCompletions, 2)},
		{ID: "xp", Rarity: RarityEpic, XPReward: 5, Condition: gte(MetricTotalXP, 25)},
		{ID: "collector", Rarity: RarityCommon, Condition: gte(MetricUnlockedCount, 1)},
	})
	require.NoError(t, err)

	snap := Snapshot{TotalCompletions: 3, TotalXP: 0}
	decisions := reg.Evaluate(snap, NewSet())
	require.Len(t, decisions, 4)

	newly := NewlyUnlocked(decisions)
	require.Len(t, newly, 2)
	assert.Equal(t, "c", newly[0].AchievementID)
	assert.Equal(t, "a", newly[1].AchievementID)
	assert.Equal(t, 30, TotalReward(newly))

	// Neither the 30 XP granted nor the two new unlocks are visible in this pass.
	assert.False(t, decisions[2].Unlocked)
	assert.False(t, decisions[3].Unlocked)
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name string
		defs []Definition
	}{
		{"missing id", []Definition{{Rarity: RarityCommon}}},
		{"duplicate", []Definition{{ID: "x", Rarity: RarityCommon}, {ID: "x", Rarity: RarityCommon}}},
		{"bad rarity", []Definition{{ID: "x", Rarity: "mythic"}}},
		{"bad metric", []Definition{{ID: "x", Rarity: RarityCommon, Condition: Condition{Metric: metricCount}}}},
		{"bad op", []Definition{{ID: "x", Rarity: RarityCommon, Condition: Condition{Op: "lt"}}}},
		{"negative reward", []Definition{{ID: "x", Rarity: RarityCommon, XPReward: -1, Condition: gte(MetricStreak, 1)}}},
		{"missing condition", []Definition{{ID: "x", Rarity: RarityLegendary, XPReward: 1000}}},
		{"zero target", []Definition{{ID: "x", Rarity: RarityCommon, Condition: gte(MetricLevel, 0)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.defs)
			assert.ErrorIs(t, err, ErrInvalidRegistry)
		})
	}
}

func TestParseRegistry_RejectsUnknownMetric(t *testing.T) {
	doc := []byte(`
achievements:
  - id: odd
    rarity: common
    condition: {metric: perfect_days, op: gte, target: 3}
`)
	_, err := ParseRegistry(doc)
	assert.ErrorIs(t, err, ErrInvalidRegistry)
}

func TestParseRegistry_RejectsMisspelledKey(t *testing.T) {
	doc := []byte(`
achievements:
  - id: typo
    rarity: legendary
    xp_reward: 1000
    conditon: {metric: streak, op: gte, target: 1000}
`)
	reg, err := ParseRegistry(doc)
	assert.ErrorIs(t, err, ErrInvalidRegistry)
	assert.Nil(t, reg)
}

func TestParseRegistry_AcceptsSymbolicOperator(t *testing.T) {
	doc := []byte(`
achievements:
  - id: lvl
    rarity: rare
    xp_reward: 15
    condition: {metric: level, op: ">=", target: 3}
`)
	reg, err := ParseRegistry(doc)
	require.NoError(t, err)

	def, ok := reg.Get("lvl")
	require.True(t, ok)
	assert.Equal(t, MetricLevel, def.Condition.Metric)
	assert.Equal(t, OpGTE, def.Condition.Op)
	assert.Equal(t, 15, def.XPReward)
}

func TestDefaultRegistry(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	require.Greater(t, reg.Len(), 30)

	first := reg.All()[0]
	assert.Equal(t, "first-habit", first.ID)
	assert.Equal(t, MetricTotalCompletions, first.Condition.Metric)
	assert.Equal(t, 50, first.XPReward)

	weekWarrior, ok := reg.Get("week-warrior")
	require.True(t, ok)
	assert.Equal(t, 7, weekWarrior.Condition.Target)
	assert.Equal(t, MetricStreak, weekWarrior.Condition.Metric)

	for _, def := range reg.All() {
		if def.Category == "xp" || def.Category == "level" {
			assert.Zero(t, def.XPReward, "%s grants no xp", def.ID)
		}
	}
}

func TestDefinition_JSONUsesMetricNames(t *testing.T) {
	data, err := json.Marshal(Definition{ID: "x", Rarity: RarityRare, Condition: gte(MetricDailyCompletions, 3)})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"metric":"daily_completions"`)
}

func TestComputeSnapshot(t *testing.T) {
	today := types.NewDate(2026, time.October, 15)
	d := func(offset int) types.Date { return today.AddDays(offset) }

	t.Run("streak ends today", func(t *testing.T) {
		snap := ComputeSnapshot(StatsInput{
			Today:       today,
			Completions: []types.Date{d(0), d(0), d(-1), d(-2), d(-4)},
			Profile:     types.Profile{Level: 2, XP: 30},
		})
		assert.Equal(t, 3, snap.Streak)
		assert.Equal(t, 5, snap.TotalCompletions)
		assert.Equal(t, 2, snap.DailyCompletions)
		assert.Equal(t, 130, snap.TotalXP)
		assert.Equal(t, 2, snap.Level)
	})

	t.Run("streak ending yesterday still counts", func(t *testing.T) {
		snap := ComputeSnapshot(StatsInput{
			Today:       today,
			Completions: []types.Date{d(-1), d(-2)},
			Profile:     types.Profile{Level: 1},
		})
		assert.Equal(t, 2, snap.Streak)
		assert.Equal(t, 0, snap.DailyCompletions)
	})

	t.Run("gap breaks streak", func(t *testing.T) {
		snap := ComputeSnapshot(StatsInput{
			Today:         today,
			Completions:   []types.Date{d(-2), d(-3)},
			Profile:       types.Profile{Level: 1},
			UnlockedCount: 4,
		})
		assert.Equal(t, 0, snap.Streak)
		assert.Equal(t, 4, snap.UnlockedCount)
	})
}
