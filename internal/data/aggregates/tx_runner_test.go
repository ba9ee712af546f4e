package aggregates

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
)

func TestGormTxRunnerRetriesSerializationFailures(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	runner := NewGormTxRunner(db)
	ctx := context.Background()

	cases := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{"succeeds first time", []error{nil}, 1, false},
		{"serialization then ok", []error{&pgconn.PgError{Code: "40001"}, nil}, 2, false},
		{"deadlock exhausts attempts", []error{&pgconn.PgError{Code: "40P01"}, &pgconn.PgError{Code: "40P01"}, &pgconn.PgError{Code: "40P01"}, nil}, 3, true},
		{"conflict is not retried", []error{types.NewError(types.CodeConflict, "op", "taken", nil), nil}, 1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			err := runner.InTx(ctx, func(dbc dbctx.Context) error {
				e := tc.errs[calls]
				calls++
				return e
			})
			if calls != tc.wantCalls {
				t.Fatalf("expected %d calls, got %d", tc.wantCalls, calls)
			}
			if (err != nil) != tc.wantErr {
				t.Fatalf("unexpected err: %v", err)
			}
		})
	}
}

func TestGormTxRunnerStopsOnCanceledContext(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err = NewGormTxRunner(db).InTx(ctx, func(dbc dbctx.Context) error {
		calls++
		cancel()
		return &pgconn.PgError{Code: "40001"}
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected single failed attempt, calls=%d err=%v", calls, err)
	}
}
