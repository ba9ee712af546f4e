package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	types "github.com/yungbote/enrichment-backend/internal/domain"
)

func TestFrom(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", types.ValidationFailed("op", "title is required"), http.StatusBadRequest, "validation"},
		{"not found wrapped", fmt.Errorf("ctx: %w", types.NewError(types.CodeNotFound, "op", "missing", nil)), http.StatusNotFound, "not_found"},
		{"ownership", types.NewError(types.CodeOwnershipMismatch, "op", "stale", nil), http.StatusForbidden, "ownership_mismatch"},
		{"uncoded", errors.New("pq: boom"), http.StatusInternalServerError, "internal"},
		{"explicit", New(http.StatusUnauthorized, "unauthorized", nil), http.StatusUnauthorized, "unauthorized"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := From(tc.err)
			if got.Status != tc.status || got.Code != tc.code {
				t.Fatalf("From = %d/%s want %d/%s", got.Status, got.Code, tc.status, tc.code)
			}
		})
	}

	if got := From(errors.New("secret dsn")); got.Error() == "secret dsn" {
		t.Fatalf("internal error message leaked")
	}
	if got := From(types.ValidationFailed("op", "a", "b")); len(got.Causes) != 2 {
		t.Fatalf("expected causes carried, got %v", got.Causes)
	}
}
