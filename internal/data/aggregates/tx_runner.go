package aggregates

import (
	"context"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
)

const (
	txMaxAttempts = 3
	txRetryDelay  = 25 * time.Millisecond
)

// TxRunner is the transaction boundary for job state writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db       *gorm.DB
	attempts int
}

// NewGormTxRunner runs fn in a gorm transaction. Serialization failures and
// deadlocks roll back and re-run fn, so fn must only write through dbc.
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db, attempts: txMaxAttempts}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return types.NewError(types.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	var err error
	for attempt := 1; ; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(dbctx.Context{Ctx: ctx, Tx: tx})
		})
		if err == nil || attempt >= r.attempts || ctx.Err() != nil {
			return err
		}
		if !types.IsCode(MapError("aggregate.tx", err), types.CodeRetryable) {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * txRetryDelay):
		}
	}
}
