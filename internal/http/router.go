package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	types "github.com/yungbote/enrichment-backend/internal/domain"
	httpH "github.com/yungbote/enrichment-backend/internal/http/handlers"
	httpMW "github.com/yungbote/enrichment-backend/internal/http/middleware"
	"github.com/yungbote/enrichment-backend/internal/observability"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware

	TokenHandler      *httpH.TokenHandler
	JobHandler        *httpH.JobHandler
	EnrichmentHandler *httpH.EnrichmentHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")

	// Token (public)
	if cfg.TokenHandler != nil {
		api.POST("/token", cfg.TokenHandler.IssueToken)
	}

	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Jobs; the stage capability is checked per request.
	if cfg.JobHandler != nil {
		protected.GET("/jobs/:stage/oldest", cfg.JobHandler.ClaimOldest)
		protected.POST("/jobs/:stage/:enrichmentId", cfg.JobHandler.Complete)
		protected.POST("/jobs/:stage/:enrichmentId/:versionId", cfg.JobHandler.Complete)
	}

	// Enrichments
	if cfg.EnrichmentHandler != nil {
		write := httpMW.RequireScope(types.ScopeEnrichmentsWrite)
		read := httpMW.RequireScope(types.ScopeEnrichmentsRead)
		protected.POST("/enrichments", write, cfg.EnrichmentHandler.Create)
		protected.POST("/enrichments/:id/uploaded", write, cfg.EnrichmentHandler.MarkUploaded)
		protected.POST("/enrichments/:id/translate", write, cfg.EnrichmentHandler.RequestTranslation)
		protected.DELETE("/enrichments/:id/versions/:versionId", write, cfg.EnrichmentHandler.DeleteVersion)
		protected.GET("/enrichments/:id", read, cfg.EnrichmentHandler.Get)
	}

	return r
}
