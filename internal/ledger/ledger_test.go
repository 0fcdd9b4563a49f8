package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperengineering/ascend/internal/leveling"
	"github.com/hyperengineering/ascend/internal/types"
)

func profile(level, xp, hp int) types.Profile {
	return types.Profile{UserID: "u1", Level: level, XP: xp, HP: hp, MaxHP: 100}
}

func TestApplyXPDelta_LevelUpRollsOverAndHeals(t *testing.T) {
	got, err := ApplyXPDelta(profile(1, 90, 40), 20)
	require.NoError(t, err)

	assert.Equal(t, 2, got.Level)
	assert.Equal(t, 10, got.XP)
	assert.Equal(t, 100, got.HP)
}

func TestApplyXPDelta_LossBorrowsFromLowerLevel(t *testing.T) {
	got, err := ApplyXPDelta(profile(2, 10, 40), -20)
	require.NoError(t, err)

	assert.Equal(t, 1, got.Level)
	assert.Equal(t, 90, got.XP)
	assert.Equal(t, 40, got.HP, "losing a level through XP does not heal")
}

func TestApplyXPDelta_MultipleLevelsInOneDelta(t *testing.T) {
	got, err := ApplyXPDelta(profile(1, 0, 10), 460)
	require.NoError(t, err)

	// 460 total: level 4 starts at 450.
	assert.Equal(t, 4, got.Level)
	assert.Equal(t, 10, got.XP)
	assert.Equal(t, 100, got.HP)
}

func TestApplyXPDelta_ClampsAtLevelOne(t *testing.T) {
	got, err := ApplyXPDelta(profile(2, 30, 70), -5000)
	require.NoError(t, err)

	assert.Equal(t, 1, got.Level)
	assert.Equal(t, 0, got.XP)
}

func TestApplyXPDelta_ClampsAtMaxLevel(t *testing.T) {
	got, err := ApplyXPDelta(profile(1, 0, 100), MaxDelta)
	require.NoError(t, err)

	assert.Equal(t, leveling.MaxLevel, got.Level)
	assert.Equal(t, leveling.Threshold(leveling.MaxLevel)-1, got.XP)
}

func TestApplyXPDelta_ZeroIsNoOp(t *testing.T) {
	p := profile(5, 123, 55)
	got, err := ApplyXPDelta(p, 0)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestApplyXPDelta_RoundTrip(t *testing.T) {
	deltas := []int{1, 9, 10, 99, 100, 250, 1234, 20000}
	for _, start := range []types.Profile{profile(1, 0, 100), profile(3, 75, 100), profile(19, 1000, 100)} {
		for _, d := range deltas {
			up, err := ApplyXPDelta(start, d)
			require.NoError(t, err)
			back, err := ApplyXPDelta(up, -d)
			require.NoError(t, err)

			assert.Equal(t, start.Level, back.Level, "level after +%d/-%d from %+v", d, d, start)
			assert.Equal(t, start.XP, back.XP, "xp after +%d/-%d from %+v", d, d, start)
		}
	}
}

func TestApplyXPDelta_KeepsInvariant(t *testing.T) {
	p := profile(1, 0, 100)
	for _, d := range []int{37, 512, -90, 4000, -2500, 12, -1, 99999, -99999} {
		var err error
		p, err = ApplyXPDelta(p, d)
		require.NoError(t, err)
		require.NoError(t, Validate(p))
		require.Less(t, p.XP, leveling.Threshold(p.Level))
	}
}

func TestApplyXPDelta_DoesNotMutateInput(t *testing.T) {
	p := profile(1, 90, 40)
	_, err := ApplyXPDelta(p, 50)
	require.NoError(t, err)
	assert.Equal(t, profile(1, 90, 40), p)
}

func TestApplyHPDelta_Penalty(t *testing.T) {
	got, err := ApplyHPDelta(profile(3, 20, 80), -30)
	require.NoError(t, err)

	assert.Equal(t, 3, got.Level)
	assert.Equal(t, 50, got.HP)
}

func TestApplyHPDelta_HealCappedAtMax(t *testing.T) {
	got, err := ApplyHPDelta(profile(3, 20, 80), 500)
	require.NoError(t, err)
	assert.Equal(t, 100, got.HP)
}

func TestApplyHPDelta_DemotesAndRestores(t *testing.T) {
	got, err := ApplyHPDelta(profile(3, 140, 10), -30)
	require.NoError(t, err)

	assert.Equal(t, 2, got.Level)
	assert.Equal(t, 100, got.HP)
	// Level 2's bucket is 150, so 140 fits.
	assert.Equal(t, 140, got.XP)
	require.NoError(t, Validate(got))
}

func TestApplyHPDelta_DemotionClampsXPIntoLowerBucket(t *testing.T) {
	got, err := ApplyHPDelta(profile(2, 140, 10), -10)
	require.NoError(t, err)

	assert.Equal(t, 1, got.Level)
	assert.Equal(t, 99, got.XP)
	assert.Equal(t, 100, got.HP)
}

func TestApplyHPDelta_LevelOneFloorsAtOne(t *testing.T) {
	got, err := ApplyHPDelta(profile(1, 50, 5), -1000)
	require.NoError(t, err)

	assert.Equal(t, 1, got.Level)
	assert.Equal(t, 1, got.HP)
	assert.Equal(t, 50, got.XP)
}

func TestApplyHPDelta_ZeroIsNoOp(t *testing.T) {
	p := profile(4, 10, 0)
	got, err := ApplyHPDelta(p, 0)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestApply_XPBeforeHP(t *testing.T) {
	// The level-up heal lands first, so the penalty is charged against full HP.
	got, err := Apply(profile(1, 95, 10), 10, -20)
	require.NoError(t, err)

	assert.Equal(t, 2, got.Level)
	assert.Equal(t, 5, got.XP)
	assert.Equal(t, 80, got.HP)
}

func TestInvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		p    types.Profile
		dxp  int
		dhp  int
	}{
		{"xp at threshold", profile(1, 100, 50), 1, 0},
		{"negative xp", profile(1, -1, 50), 1, 0},
		{"hp over max", profile(1, 0, 101), 0, -1},
		{"negative hp", profile(1, 0, -5), 0, -1},
		{"level zero", profile(0, 0, 50), 1, 0},
		{"no max hp", types.Profile{Level: 1, HP: 0, MaxHP: 0}, 1, 0},
		{"xp delta too large", profile(1, 0, 50), MaxDelta + 1, 0},
		{"hp delta too large", profile(1, 0, 50), 0, -MaxDelta - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(tt.p, tt.dxp, tt.dhp)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestLevelsGainedAndLost(t *testing.T) {
	assert.Equal(t, 2, LevelsGained(profile(1, 0, 1), profile(3, 0, 1)))
	assert.Equal(t, 0, LevelsLost(profile(1, 0, 1), profile(3, 0, 1)))
	assert.Equal(t, 1, LevelsLost(profile(3, 0, 1), profile(2, 0, 1)))
}
