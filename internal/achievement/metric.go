package achievement

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Metric names an aggregate statistic a condition can test. The set is
// closed; adding a metric means extending this enum and Snapshot.Value.
type Metric int

const (
	MetricStreak Metric = iota
	MetricTotalCompletions
	MetricDailyCompletions
	MetricTotalXP
	MetricLevel
	MetricUnlockedCount

	metricCount
)

var metricNames = [metricCount]string{
	MetricStreak:           "streak",
	MetricTotalCompletions: "total_completions",
	MetricDailyCompletions: "daily_completions",
	MetricTotalXP:          "total_xp",
	MetricLevel:            "level",
	MetricUnlockedCount:    "unlocked_achievement_count",
}

// ParseMetric maps a metric name to its enum value.
func ParseMetric(s string) (Metric, error) {
	for i, name := range metricNames {
		if name == s {
			return Metric(i), nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", s)
}

func (m Metric) String() string {
	if m < 0 || m >= metricCount {
		return fmt.Sprintf("Metric(%d)", int(m))
	}
	return metricNames[m]
}

// MarshalText renders the metric name for JSON.
func (m Metric) MarshalText() ([]byte, error) {
	if m < 0 || m >= metricCount {
		return nil, fmt.Errorf("unknown metric %d", int(m))
	}
	return []byte(metricNames[m]), nil
}

func (m *Metric) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseMetric(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*m = parsed
	return nil
}

// Op is a comparison operator. Only "greater than or equal" exists.
type Op string

const OpGTE Op = "gte"

func (o *Op) UnmarshalYAML(value *yaml.Node) error {
	switch value.Value {
	case "gte", ">=":
		*o = OpGTE
		return nil
	default:
		return fmt.Errorf("line %d: unknown operator %q", value.Line, value.Value)
	}
}

// Rarity grades how hard an achievement is to earn.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

func (r Rarity) IsValid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	default:
		return false
	}
}

// Snapshot is the set of aggregate statistics one evaluation pass runs
// against. It is a plain value so a pass can never observe its own rewards.
type Snapshot struct {
	Streak           int `json:"streak"`
	TotalCompletions int `json:"total_completions"`
	DailyCompletions int `json:"daily_completions"`
	TotalXP          int `json:"total_xp"`
	Level            int `json:"level"`
	UnlockedCount    int `json:"unlocked_achievement_count"`
}

// Value returns the statistic m measures.
func (s Snapshot) Value(m Metric) int {
	switch m {
	case MetricStreak:
		return s.Streak
	case MetricTotalCompletions:
		return s.TotalCompletions
	case MetricDailyCompletions:
		return s.DailyCompletions
	case MetricTotalXP:
		return s.TotalXP
	case MetricLevel:
		return s.Level
	case MetricUnlockedCount:
		return s.UnlockedCount
	default:
		return 0
	}
}
