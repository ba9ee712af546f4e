package reconcilewf

import (
	"context"
	"fmt"

	"github.com/yungbote/enrichment-backend/internal/jobs/reconcile"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

type Activities struct {
	Log        *logger.Logger
	Reconciler *reconcile.Reconciler
}

func (a *Activities) Sweep(ctx context.Context) (SweepResult, error) {
	if a == nil || a.Reconciler == nil {
		return SweepResult{}, fmt.Errorf("reconcilewf: activity not configured")
	}
	res, err := a.Reconciler.Sweep(ctx)
	out := SweepResult{RetryExhausted: res.RetryExhausted, IntakeTimedOut: res.IntakeTimedOut}
	if err != nil {
		if a.Log != nil {
			a.Log.Warn("Reconcile sweep activity failed", "error", err)
		}
		return out, err
	}
	return out, nil
}
