package reconcile

// State is a step of a reconciliation run.
type State int

const (
	StateIdle State = iota
	StateLoadingWatermark
	StateProcessingDays
	StateApplyingPenalty
	StateAdvancingWatermark
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:               "IDLE",
	StateLoadingWatermark:   "LOADING_WATERMARK",
	StateProcessingDays:     "PROCESSING_DAYS",
	StateApplyingPenalty:    "APPLYING_PENALTY",
	StateAdvancingWatermark: "ADVANCING_WATERMARK",
	StateDone:               "DONE",
	StateFailed:             "FAILED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// MarshalText renders the state name for JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
