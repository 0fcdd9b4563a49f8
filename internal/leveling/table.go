// Package leveling holds the static level curve: how much XP each level
// costs, and which level a running XP total corresponds to.
package leveling

const (
	// MaxLevel caps extrapolation so cumulative totals stay well inside int.
	MaxLevel = 10_000

	// extrapolationStep is the per-level growth of the bucket size past the table.
	extrapolationStep = 50
)

// cumulative[i] is the total XP needed to reach level i+1.
var cumulative = [...]int{
	0,     // 1
	100,   // 2
	250,   // 3
	450,   // 4
	700,   // 5
	1000,  // 6
	1350,  // 7
	1750,  // 8
	2200,  // 9
	2700,  // 10
	3250,  // 11
	3850,  // 12
	4500,  // 13
	5200,  // 14
	5950,  // 15
	6750,  // 16
	7600,  // 17
	8500,  // 18
	9450,  // 19
	10500, // 20
}

// TabulatedLevels is the highest level with an explicit table entry.
const TabulatedLevels = len(cumulative)

// Threshold returns the XP bucket a player must fill to advance from level to
// level+1. Levels below 1 are treated as 1; levels above MaxLevel as MaxLevel.
//
// Inside the table this is the difference of adjacent cumulative entries.
// From level 19 on it grows linearly:
//
//	Threshold(n) = Threshold(19) + 50*(n-19)   for n >= 20
//
// so the cumulative curve stays strictly convex past the table.
func Threshold(level int) int {
	level = clamp(level)
	if level < TabulatedLevels {
		return cumulative[level] - cumulative[level-1]
	}
	last := cumulative[TabulatedLevels-1] - cumulative[TabulatedLevels-2]
	return last + extrapolationStep*(level-(TabulatedLevels-1))
}

// Cumulative returns the total XP needed to reach level from zero.
// Cumulative(1) is 0.
func Cumulative(level int) int {
	level = clamp(level)
	if level <= TabulatedLevels {
		return cumulative[level-1]
	}
	// Sum of the arithmetic series Threshold(20) .. Threshold(level-1).
	n := level - TabulatedLevels
	first := Threshold(TabulatedLevels)
	lastBucket := Threshold(level - 1)
	return cumulative[TabulatedLevels-1] + n*(first+lastBucket)/2
}

// LevelForXP returns the highest level whose cumulative threshold is at most
// totalXP. Never less than 1.
func LevelForXP(totalXP int) int {
	if totalXP <= 0 {
		return 1
	}

	// Exponential search for an upper bound, then binary search.
	low, high := 1, 2
	for high < MaxLevel && Cumulative(high) <= totalXP {
		low = high
		high *= 2
	}
	if high > MaxLevel {
		high = MaxLevel
	}
	if Cumulative(high) <= totalXP {
		return high
	}

	for low+1 < high {
		mid := low + (high-low)/2
		if Cumulative(mid) <= totalXP {
			low = mid
		} else {
			high = mid
		}
	}
	return low
}

// TotalXP converts a (level, xp-in-level) pair into a running total.
func TotalXP(level, xp int) int {
	return Cumulative(level) + xp
}

// Progress returns how far xp is through level's bucket, in [0, 1].
func Progress(level, xp int) float64 {
	t := Threshold(level)
	if t <= 0 || xp <= 0 {
		return 0
	}
	if xp >= t {
		return 1
	}
	return float64(xp) / float64(t)
}

func clamp(level int) int {
	if level < 1 {
		return 1
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}
