package app

import (
	"context"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/enrichment-backend/internal/clients/kafka"
	"github.com/yungbote/enrichment-backend/internal/clients/redis"
	"github.com/yungbote/enrichment-backend/internal/data/db"
	"github.com/yungbote/enrichment-backend/internal/http"
	"github.com/yungbote/enrichment-backend/internal/observability"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics

	store     *db.Service
	redis     goredis.UniversalClient
	publisher kafka.Publisher
	cancel    context.CancelFunc
}

func NewLogger() (*logger.Logger, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

func New(ctx context.Context, log *logger.Logger) (*App, error) {
	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		return nil, err
	}

	store, err := db.Open(log, cfg.DB())
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := store.AutoMigrateAll(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := store.DB()

	metrics := observability.Init(log, cfg.Metrics.Enabled)

	a := &App{
		Log:     log,
		DB:      theDB,
		Cfg:     cfg,
		Metrics: metrics,
		store:   store,
	}
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(log, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.redis = rdb
	}
	a.publisher = kafka.NewPublisher(log, kafka.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.OutcomeTopic})

	a.Repos = wireRepos(theDB, log)

	a.Services, err = wireServices(ctx, log, cfg, theDB, a.Repos, a.redis, a.publisher, metrics)
	if err != nil {
		a.Close()
		return nil, err
	}

	handlerset := wireHandlers(log, a.Services, store.Ping)
	a.Server = http.NewServer(wireRouterConfig(log, cfg, handlerset, wireMiddleware(log, a.Services), metrics))
	return a, nil
}

// Start launches the background collectors and the metrics endpoint.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.Metrics.Addr)
		a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		a.Metrics.StartQueueCollector(ctx, a.Log, a.Repos.Enrichment)
		if a.redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.redis)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("Server listening", "addr", addr)
	return a.Server.Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.Log.Warn("kafka publisher close failed", "error", err)
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
