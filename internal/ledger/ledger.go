// Package ledger applies XP and HP changes to a profile.
//
// Every operation is a pure function of (profile, delta). The input profile is
// never mutated, and a profile that already violates its invariant is refused
// rather than repaired.
//
// When one event carries both an XP and an HP effect, callers use Apply, which
// runs the XP change first. A level-up therefore restores HP before a penalty
// from the same event is charged.
package ledger

import (
	"errors"
	"fmt"

	"github.com/hyperengineering/ascend/internal/leveling"
	"github.com/hyperengineering/ascend/internal/types"
)

// MaxDelta bounds the magnitude of a single XP or HP delta.
const MaxDelta = 1 << 40

// ErrInvalidArgument reports a delta out of range or a corrupt input profile.
var ErrInvalidArgument = errors.New("invalid argument")

// Validate checks the profile invariant the ledger relies on.
func Validate(p types.Profile) error {
	switch {
	case p.Level < 1:
		return fmt.Errorf("%w: level %d below 1", ErrInvalidArgument, p.Level)
	case p.Level > leveling.MaxLevel:
		return fmt.Errorf("%w: level %d above %d", ErrInvalidArgument, p.Level, leveling.MaxLevel)
	case p.XP < 0:
		return fmt.Errorf("%w: negative xp %d", ErrInvalidArgument, p.XP)
	case p.XP >= leveling.Threshold(p.Level):
		return fmt.Errorf("%w: xp %d not below threshold %d of level %d",
			ErrInvalidArgument, p.XP, leveling.Threshold(p.Level), p.Level)
	case p.MaxHP <= 0:
		return fmt.Errorf("%w: max hp %d must be positive", ErrInvalidArgument, p.MaxHP)
	case p.HP < 0 || p.HP > p.MaxHP:
		return fmt.Errorf("%w: hp %d outside [0, %d]", ErrInvalidArgument, p.HP, p.MaxHP)
	}
	return nil
}

func checkDelta(name string, delta int) error {
	if delta > MaxDelta || delta < -MaxDelta {
		return fmt.Errorf("%w: %s delta %d exceeds %d", ErrInvalidArgument, name, delta, MaxDelta)
	}
	return nil
}

// ApplyXPDelta adds delta XP to p.
//
// Gains roll over into the next level while the bucket overflows, fully
// healing on every level gained. Losses borrow from lower levels' buckets and
// bottom out at level 1 with 0 XP. At MaxLevel surplus XP is discarded.
func ApplyXPDelta(p types.Profile, delta int) (types.Profile, error) {
	if err := checkDelta("xp", delta); err != nil {
		return p, err
	}
	if err := Validate(p); err != nil {
		return p, err
	}
	if delta == 0 {
		return p, nil
	}

	total := leveling.TotalXP(p.Level, p.XP) + delta
	if total < 0 {
		total = 0
	}

	out := p
	out.Level = leveling.LevelForXP(total)
	out.XP = total - leveling.Cumulative(out.Level)
	if limit := leveling.Threshold(out.Level) - 1; out.XP > limit {
		// Only reachable at MaxLevel.
		out.XP = limit
	}
	if out.Level > p.Level {
		out.HP = out.MaxHP
	}
	return out, nil
}

// ApplyHPDelta adds delta HP to p. Heals are capped at MaxHP.
//
// Dropping to 0 or below above level 1 demotes one level and restores full HP.
// XP is clamped into the lower level's bucket so the XP invariant holds. At
// level 1 HP bottoms out at 1.
func ApplyHPDelta(p types.Profile, delta int) (types.Profile, error) {
	if err := checkDelta("hp", delta); err != nil {
		return p, err
	}
	if err := Validate(p); err != nil {
		return p, err
	}
	if delta == 0 {
		return p, nil
	}

	out := p
	out.HP = max(p.HP+delta, 0)
	if out.HP > out.MaxHP {
		out.HP = out.MaxHP
	}
	if out.HP > 0 {
		return out, nil
	}

	if out.Level > 1 {
		out.Level--
		out.HP = out.MaxHP
		if limit := leveling.Threshold(out.Level) - 1; out.XP > limit {
			out.XP = limit
		}
		return out, nil
	}
	out.HP = 1
	return out, nil
}

// Apply runs ApplyXPDelta and then ApplyHPDelta.
func Apply(p types.Profile, deltaXP, deltaHP int) (types.Profile, error) {
	if err := checkDelta("hp", deltaHP); err != nil {
		return p, err
	}
	out, err := ApplyXPDelta(p, deltaXP)
	if err != nil {
		return p, err
	}
	out, err = ApplyHPDelta(out, deltaHP)
	if err != nil {
		return p, err
	}
	return out, nil
}

// LevelsGained returns how many levels after is above before, or 0.
func LevelsGained(before, after types.Profile) int {
	return max(after.Level-before.Level, 0)
}

// LevelsLost returns how many levels after is below before, or 0.
func LevelsLost(before, after types.Profile) int {
	return max(before.Level-after.Level, 0)
}
