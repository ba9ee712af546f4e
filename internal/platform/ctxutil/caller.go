package ctxutil

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type callerKey struct{}

// Caller is the authenticated API client behind a request.
type Caller struct {
	ID     uuid.UUID
	Scopes []string
}

func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func GetCaller(ctx context.Context) *Caller {
	if c, ok := ctx.Value(callerKey{}).(*Caller); ok {
		return c
	}
	return nil
}

// HasCapability reports whether the caller in ctx was granted scope.
func HasCapability(ctx context.Context, scope string) bool {
	c := GetCaller(ctx)
	if c == nil || c.ID == uuid.Nil {
		return false
	}
	for _, s := range c.Scopes {
		if strings.EqualFold(strings.TrimSpace(s), scope) {
			return true
		}
	}
	return false
}
