package app

import (
	"context"

	"github.com/yungbote/enrichment-backend/internal/http"
	httpH "github.com/yungbote/enrichment-backend/internal/http/handlers"
	httpMW "github.com/yungbote/enrichment-backend/internal/http/middleware"
	"github.com/yungbote/enrichment-backend/internal/observability"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Token      *httpH.TokenHandler
	Job        *httpH.JobHandler
	Enrichment *httpH.EnrichmentHandler
}

func wireHandlers(log *logger.Logger, services Services, ping func(context.Context) error) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(ping),
		Token:      httpH.NewTokenHandler(services.Auth),
		Job:        httpH.NewJobHandler(log, services.Queue),
		Enrichment: httpH.NewEnrichmentHandler(services.Enrichment),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouterConfig(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) http.RouterConfig {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		ServiceName:       serviceName,
		CORSOrigins:       cfg.Origins(),
		AuthMiddleware:    middleware.Auth,
		HealthHandler:     handlers.Health,
		TokenHandler:      handlers.Token,
		JobHandler:        handlers.Job,
		EnrichmentHandler: handlers.Enrichment,
	}
}

func (c Config) OtelSettings() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     c.Otel.Enabled,
		ServiceName: c.Otel.ServiceName,
		Environment: c.Otel.Environment,
		Endpoint:    c.Otel.Endpoint,
		Headers:     c.Otel.Headers,
		Insecure:    c.Otel.Insecure,
		SampleRatio: c.Otel.SampleRatio,
	}
}
