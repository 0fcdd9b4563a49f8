package achievement

// Set is a collection of unlocked achievement ids.
type Set map[string]struct{}

// NewSet builds a Set from ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Decision is the outcome of checking one definition.
type Decision struct {
	AchievementID string  `json:"achievement_id"`
	Unlocked      bool    `json:"unlocked"`
	NewlyUnlocked bool    `json:"newly_unlocked"`
	Progress      float64 `json:"progress"`
	XPReward      int     `json:"xp_reward"`
}

// EvaluateProgress returns how close snap is to satisfying cond, in [0, 1].
// A zero target reports 0.
func EvaluateProgress(cond Condition, snap Snapshot) float64 {
	if cond.Target == 0 {
		return 0
	}
	p := float64(snap.Value(cond.Metric)) / float64(cond.Target)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// CheckUnlock decides whether def is unlocked. An id already in unlocked is
// reported unlocked without looking at the snapshot.
func CheckUnlock(def Definition, snap Snapshot, unlocked Set) Decision {
	d := Decision{AchievementID: def.ID, XPReward: def.XPReward}
	if unlocked.Has(def.ID) {
		d.Unlocked = true
		d.Progress = 1
		return d
	}
	if snap.Value(def.Condition.Metric) >= def.Condition.Target {
		d.Unlocked = true
		d.NewlyUnlocked = true
		d.Progress = 1
		return d
	}
	d.Progress = EvaluateProgress(def.Condition, snap)
	return d
}

// Evaluate checks every definition against the same snapshot, in registry
// order. Rewards of newly unlocked achievements are not fed back into snap.
func (r *Registry) Evaluate(snap Snapshot, unlocked Set) []Decision {
	out := make([]Decision, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, CheckUnlock(def, snap, unlocked))
	}
	return out
}

// NewlyUnlocked keeps only the decisions that unlock something new, in order.
func NewlyUnlocked(decisions []Decision) []Decision {
	var out []Decision
	for _, d := range decisions {
		if d.NewlyUnlocked {
			out = append(out, d)
		}
	}
	return out
}

// TotalReward sums the XP rewards of decisions.
func TotalReward(decisions []Decision) int {
	total := 0
	for _, d := range decisions {
		total += d.XPReward
	}
	return total
}
