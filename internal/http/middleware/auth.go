package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/enrichment-backend/internal/http/response"
	"github.com/yungbote/enrichment-backend/internal/platform/ctxutil"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
	"github.com/yungbote/enrichment-backend/internal/services"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), authService: authService}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearerToken(c)
		if tokenString == "" {
			response.Unauthorized(c, "missing or invalid token")
			return
		}
		ctx, err := am.authService.SetContextFromToken(c.Request.Context(), tokenString)
		if err != nil {
			am.log.Debug("Rejected bearer token", "error", err)
			response.Unauthorized(c, "missing or invalid token")
			return
		}
		caller := ctxutil.GetCaller(ctx)
		if caller == nil || caller.ID == uuid.Nil {
			response.Forbidden(c, "forbidden")
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireScope rejects callers without the capability before the handler
// reads any state.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ctxutil.HasCapability(c.Request.Context(), scope) {
			response.Forbidden(c, "missing capability "+scope)
			return
		}
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
