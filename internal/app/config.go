package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yungbote/enrichment-backend/internal/data/db"
	"github.com/yungbote/enrichment-backend/internal/platform/blob"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

const (
	LockBackendMemory   = "memory"
	LockBackendRedis    = "redis"
	LockBackendPostgres = "postgres"
)

type Config struct {
	Port        string `mapstructure:"port"`
	LogMode     string `mapstructure:"log_mode"`
	CORSOrigins string `mapstructure:"cors_origins"`

	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Lock     LockConfig     `mapstructure:"lock"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Blob     BlobConfig     `mapstructure:"blob"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Otel     OtelConfig     `mapstructure:"otel"`
}

type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"`
	SSLMode    string `mapstructure:"sslmode"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
}

type LockConfig struct {
	Backend    string `mapstructure:"backend"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

type AuthConfig struct {
	JWTSecretKey          string `mapstructure:"jwt_secret_key"`
	AccessTokenTTLSeconds int    `mapstructure:"access_token_ttl"`
}

type BlobConfig struct {
	Provider           string `mapstructure:"provider"`
	Bucket             string `mapstructure:"bucket"`
	URLTTLSeconds      int    `mapstructure:"url_ttl_seconds"`
	GCSCredentialsJSON string `mapstructure:"gcs_credentials_json"`
	GCSCredentialsFile string `mapstructure:"gcs_credentials_file"`
	MinIOEndpoint      string `mapstructure:"minio_endpoint"`
	MinIOAccessKey     string `mapstructure:"minio_access_key"`
	MinIOSecretKey     string `mapstructure:"minio_secret_key"`
	MinIOUseSSL        bool   `mapstructure:"minio_use_ssl"`
	BaseURL            string `mapstructure:"base_url"`
}

type KafkaConfig struct {
	Brokers      string `mapstructure:"brokers"`
	OutcomeTopic string `mapstructure:"outcome_topic"`
}

type PipelineConfig struct {
	NotifyTimeoutSeconds int    `mapstructure:"notify_timeout_seconds"`
	ClaimAttempts        int    `mapstructure:"claim_attempts"`
	ParametersFile       string `mapstructure:"parameters_file"`
	ReconcileBatchSize   int    `mapstructure:"reconcile_batch_size"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type OtelConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Environment string  `mapstructure:"environment"`
	Endpoint    string  `mapstructure:"endpoint"`
	Headers     string  `mapstructure:"headers"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

var envBindings = map[string]string{
	"port":                            "PORT",
	"log_mode":                        "LOG_MODE",
	"cors_origins":                    "CORS_ORIGINS",
	"database.driver":                 "DB_DRIVER",
	"database.host":                   "POSTGRES_HOST",
	"database.port":                   "POSTGRES_PORT",
	"database.user":                   "POSTGRES_USER",
	"database.password":               "POSTGRES_PASSWORD",
	"database.name":                   "POSTGRES_NAME",
	"database.sslmode":                "POSTGRES_SSLMODE",
	"database.sqlite_path":            "SQLITE_PATH",
	"redis.addr":                      "REDIS_ADDR",
	"redis.password":                  "REDIS_PASSWORD",
	"lock.backend":                    "LOCK_BACKEND",
	"lock.ttl_seconds":                "LOCK_TTL_SECONDS",
	"auth.jwt_secret_key":             "JWT_SECRET_KEY",
	"auth.access_token_ttl":           "ACCESS_TOKEN_TTL",
	"blob.provider":                   "BLOB_PROVIDER",
	"blob.bucket":                     "BLOB_BUCKET",
	"blob.url_ttl_seconds":            "BLOB_URL_TTL_SECONDS",
	"blob.gcs_credentials_json":       "GCS_CREDENTIALS_JSON",
	"blob.gcs_credentials_file":       "GOOGLE_APPLICATION_CREDENTIALS",
	"blob.minio_endpoint":             "MINIO_ENDPOINT",
	"blob.minio_access_key":           "MINIO_ACCESS_KEY",
	"blob.minio_secret_key":           "MINIO_SECRET_KEY",
	"blob.minio_use_ssl":              "MINIO_USE_SSL",
	"blob.base_url":                   "BLOB_BASE_URL",
	"kafka.brokers":                   "KAFKA_BROKERS",
	"kafka.outcome_topic":             "KAFKA_OUTCOME_TOPIC",
	"pipeline.notify_timeout_seconds": "NOTIFY_TIMEOUT_SECONDS",
	"pipeline.claim_attempts":         "CLAIM_ATTEMPTS",
	"pipeline.parameters_file":        "PARAMETERS_FILE",
	"pipeline.reconcile_batch_size":   "RECONCILE_BATCH_SIZE",
	"metrics.enabled":                 "METRICS_ENABLED",
	"metrics.addr":                    "METRICS_ADDR",
	"otel.enabled":                    "OTEL_ENABLED",
	"otel.service_name":               "OTEL_SERVICE_NAME",
	"otel.environment":                "OTEL_ENVIRONMENT",
	"otel.endpoint":                   "OTEL_EXPORTER_OTLP_ENDPOINT",
	"otel.headers":                    "OTEL_EXPORTER_OTLP_HEADERS",
	"otel.insecure":                   "OTEL_EXPORTER_OTLP_INSECURE",
	"otel.sample_ratio":               "OTEL_TRACES_SAMPLE_RATIO",
}

func LoadConfig(log *logger.Logger) (Config, error) {
	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("log_mode", "development")
	v.SetDefault("database.driver", db.DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "enrichment")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("lock.backend", LockBackendPostgres)
	v.SetDefault("lock.ttl_seconds", 30)
	v.SetDefault("auth.jwt_secret_key", "defaultsecret")
	v.SetDefault("auth.access_token_ttl", 3600)
	v.SetDefault("blob.provider", blob.ProviderStatic)
	v.SetDefault("blob.url_ttl_seconds", int(blob.DefaultURLTTL/time.Second))
	v.SetDefault("pipeline.notify_timeout_seconds", 10)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("otel.service_name", "enrichment-backend")
	v.SetDefault("otel.sample_ratio", 1.0)

	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.Auth.JWTSecretKey == "defaultsecret" && log != nil {
		log.Warn("JWT_SECRET_KEY not set; using the development default")
	}
	cfg.Lock.Backend = strings.ToLower(strings.TrimSpace(cfg.Lock.Backend))
	switch cfg.Lock.Backend {
	case LockBackendMemory, LockBackendRedis, LockBackendPostgres:
	default:
		return Config{}, fmt.Errorf("unsupported LOCK_BACKEND %q", cfg.Lock.Backend)
	}
	if cfg.Lock.Backend == LockBackendRedis && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return Config{}, fmt.Errorf("LOCK_BACKEND=redis requires REDIS_ADDR")
	}
	return cfg, nil
}

func (c Config) DB() db.Config {
	return db.Config{
		Driver:     c.Database.Driver,
		Host:       c.Database.Host,
		Port:       c.Database.Port,
		User:       c.Database.User,
		Password:   c.Database.Password,
		Name:       c.Database.Name,
		SSLMode:    c.Database.SSLMode,
		SQLitePath: c.Database.SQLitePath,
	}
}

func (c Config) BlobSigner() blob.Config {
	return blob.Config{
		Provider:        c.Blob.Provider,
		Bucket:          c.Blob.Bucket,
		URLTTL:          time.Duration(c.Blob.URLTTLSeconds) * time.Second,
		CredentialsJSON: c.Blob.GCSCredentialsJSON,
		CredentialsFile: c.Blob.GCSCredentialsFile,
		Endpoint:        c.Blob.MinIOEndpoint,
		AccessKey:       c.Blob.MinIOAccessKey,
		SecretKey:       c.Blob.MinIOSecretKey,
		UseSSL:          c.Blob.MinIOUseSSL,
		BaseURL:         c.Blob.BaseURL,
	}
}

func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
