package temporalx

import (
	"time"

	"github.com/yungbote/enrichment-backend/internal/platform/envutil"
)

const maxRetentionDays = 365

// Config is everything the reconcile worker needs from Temporal. An empty
// Address disables Temporal and leaves sweeps to cmd/reconcile.
type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	DialTimeout  time.Duration
	DialMaxWait  time.Duration
	StartMaxWait time.Duration
	Backoff      time.Duration
	BackoffMax   time.Duration

	// AutoRegisterNamespace creates Namespace on first use. Managed
	// namespaces must be provisioned ahead of time.
	AutoRegisterNamespace bool
	// Retention only has to outlive a few reconcile runs; each run
	// continues-as-new after a bounded number of sweeps.
	Retention time.Duration

	ReconcileIntervalSeconds int
}

func LoadConfig() Config {
	retentionDays := min(envutil.PositiveInt("TEMPORAL_NAMESPACE_RETENTION_DAYS", 3), maxRetentionDays)
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "enrichment"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "enrichment-reconcile"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		DialTimeout:  envutil.Seconds("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5),
		DialMaxWait:  envutil.Seconds("TEMPORAL_DIAL_MAX_WAIT_SECONDS", 60),
		StartMaxWait: envutil.Seconds("TEMPORAL_WORKER_START_MAX_WAIT_SECONDS", 60),
		Backoff:      envutil.Millis("TEMPORAL_BACKOFF_MS", 250),
		BackoffMax:   envutil.Millis("TEMPORAL_BACKOFF_MAX_MS", 5000),

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		Retention:             time.Duration(retentionDays) * 24 * time.Hour,

		ReconcileIntervalSeconds: envutil.PositiveInt("RECONCILE_INTERVAL_SECONDS", 60),
	}
}

func (c Config) Enabled() bool {
	return c.Address != ""
}

func (c Config) mTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}

// RetryDelay is the pause before retry number attempt.
func (c Config) RetryDelay(attempt int) time.Duration {
	return envutil.Backoff(c.Backoff, c.BackoffMax, attempt)
}
