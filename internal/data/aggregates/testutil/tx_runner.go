package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/enrichment-backend/internal/data/aggregates"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
)

// InjectedTxRunner fails transactions on demand. When FailBeforeBody is
// nil the body runs through Inner, so writes still reach the test database.
type InjectedTxRunner struct {
	mu sync.Mutex

	Inner          aggregates.TxRunner
	FailBeforeBody error
	FailCommit     error

	Calls     int
	Rollbacks int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.Calls++
	failBeforeBody := r.FailBeforeBody
	failCommit := r.FailCommit
	r.mu.Unlock()

	if failBeforeBody != nil {
		r.rollback()
		return failBeforeBody
	}
	if r.Inner == nil {
		return fn(dbctx.Context{Ctx: ctx})
	}
	return r.Inner.InTx(ctx, func(dbc dbctx.Context) error {
		if err := fn(dbc); err != nil {
			r.rollback()
			return err
		}
		if failCommit != nil {
			r.rollback()
			return failCommit
		}
		return nil
	})
}

func (r *InjectedTxRunner) rollback() {
	r.mu.Lock()
	r.Rollbacks++
	r.mu.Unlock()
}
