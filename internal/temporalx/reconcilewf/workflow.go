package reconcilewf

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow runs the reconciler sweep on a fixed interval for as long as it
// lives. A failed sweep is logged and retried on the next tick.
func Workflow(ctx workflow.Context, in Input) error {
	const (
		continueTickLimit    = 1000
		continueHistoryLimit = 10000
	)
	interval := time.Duration(in.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = DefaultIntervalSeconds * time.Second
	}
	maxTicks := in.MaxTicks
	if maxTicks <= 0 {
		maxTicks = continueTickLimit
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	})
	log := workflow.GetLogger(ctx)

	for tick := 1; ; tick++ {
		var out SweepResult
		if err := workflow.ExecuteActivity(ctx, ActivitySweep).Get(ctx, &out); err != nil {
			log.Warn("reconcile sweep failed", "error", err, "tick", tick)
		} else if out.RetryExhausted+out.IntakeTimedOut > 0 {
			log.Info("reconcile sweep failed jobs", "retry_exhausted", out.RetryExhausted, "intake_timed_out", out.IntakeTimedOut)
		}
		if err := workflow.Sleep(ctx, interval); err != nil {
			return err
		}
		if shouldContinueAsNew(ctx, tick, maxTicks, continueHistoryLimit) {
			return workflow.NewContinueAsNewError(ctx, Workflow, in)
		}
	}
}

func shouldContinueAsNew(ctx workflow.Context, ticks int, maxTicks int, maxHistory int) bool {
	if maxTicks > 0 && ticks >= maxTicks {
		return true
	}
	info := workflow.GetInfo(ctx)
	if info == nil || maxHistory <= 0 {
		return false
	}
	return info.GetCurrentHistoryLength() >= maxHistory
}
