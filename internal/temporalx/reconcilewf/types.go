package reconcilewf

const (
	WorkflowName  = "enrichment_reconcile"
	WorkflowID    = "enrichment-reconciler"
	ActivitySweep = "enrichment_reconcile_sweep"

	DefaultIntervalSeconds = 60
)

type Input struct {
	IntervalSeconds int `json:"interval_seconds"`
	// MaxTicks bounds sweeps per run before continuing as new; zero uses
	// the built-in limit.
	MaxTicks int `json:"max_ticks,omitempty"`
}

type SweepResult struct {
	RetryExhausted int `json:"retry_exhausted"`
	IntakeTimedOut int `json:"intake_timed_out"`
}
