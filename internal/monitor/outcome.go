package monitor

// State is the terminal state of a monitored job.
type State string

const (
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCanceled  State = "canceled"
	StateTimedOut  State = "timed_out"
)

// Strategy names which observation channel produced a resolution.
type Strategy string

const (
	StrategyPoll     Strategy = "poll"
	StrategyPush     Strategy = "push"
	StrategyDeepScan Strategy = "deep_scan"
	StrategyNone     Strategy = ""
)

// Outcome is the single authoritative result of monitoring. Exactly one
// outcome is ever applied per monitor; late arrivals from other strategies
// are discarded.
type Outcome struct {
	State   State
	URL     string
	Message string
	Via     Strategy
}
