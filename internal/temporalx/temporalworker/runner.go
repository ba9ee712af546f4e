package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/enrichment-backend/internal/jobs/reconcile"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
	"github.com/yungbote/enrichment-backend/internal/temporalx"
	"github.com/yungbote/enrichment-backend/internal/temporalx/reconcilewf"
)

// Runner hosts the reconcile workflow and its sweep activity.
type Runner struct {
	log        *logger.Logger
	tc         temporalsdkclient.Client
	cfg        temporalx.Config
	reconciler *reconcile.Reconciler
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config, reconciler *reconcile.Reconciler) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("temporal worker missing reconciler")
	}
	return &Runner{log: log.With("service", "TemporalRunner"), tc: tc, cfg: cfg, reconciler: reconciler}, nil
}

// Start polls the task queue until ctx is done. Start failures are retried
// with backoff up to cfg.StartMaxWait.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	cfg := r.cfg
	r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)
	deadline := time.Now().Add(cfg.StartMaxWait)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := r.newWorker(cfg)
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && cfg.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, r.log, cfg); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", cfg.Namespace, "error", err)
			}
		}
		if time.Now().After(deadline) {
			if errors.As(startErr, &nfe) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying", "task_queue", cfg.TaskQueue, "attempt", attempt, "error", startErr)
		if err := temporalx.Pause(ctx, cfg.RetryDelay(attempt)); err != nil {
			return err
		}
	}
}

// EnsureReconcileWorkflow starts the singleton reconcile workflow unless a
// run is already open.
func (r *Runner) EnsureReconcileWorkflow(ctx context.Context) error {
	cfg := r.cfg
	run, err := r.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                       reconcilewf.WorkflowID,
		TaskQueue:                cfg.TaskQueue,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
	}, reconcilewf.WorkflowName, reconcilewf.Input{IntervalSeconds: cfg.ReconcileIntervalSeconds})
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			return nil
		}
		return fmt.Errorf("start reconcile workflow: %w", err)
	}
	r.log.Info("Reconcile workflow running", "workflow_id", run.GetID(), "run_id", run.GetRunID(), "interval_seconds", cfg.ReconcileIntervalSeconds)
	return nil
}

func (r *Runner) newWorker(cfg temporalx.Config) worker.Worker {
	w := worker.New(r.tc, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     2,
		MaxConcurrentWorkflowTaskExecutionSize: 2,
	})
	acts := &reconcilewf.Activities{Log: r.log, Reconciler: r.reconciler}
	w.RegisterWorkflowWithOptions(reconcilewf.Workflow, workflow.RegisterOptions{Name: reconcilewf.WorkflowName})
	w.RegisterActivityWithOptions(acts.Sweep, activity.RegisterOptions{Name: reconcilewf.ActivitySweep})
	return w
}

