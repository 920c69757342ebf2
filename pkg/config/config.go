package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Allocation   AllocationConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PARTSTRACK_APP_ENV" required:"true"`
	Port         string `envconfig:"PARTSTRACK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PARTSTRACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PARTSTRACK_LOG_WARN_STACK" default:"false"`
	// CORSOrigins is a comma-separated allow list; empty means local dev origins.
	CORSOrigins []string `envconfig:"PARTSTRACK_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PARTSTRACK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PARTSTRACK_DB_DSN"`
	Driver string `envconfig:"PARTSTRACK_DB_DRIVER" default:"postgres"`

	SQLitePath string `envconfig:"PARTSTRACK_SQLITE_PATH" default:"partstrack.db"`

	LegacyHost     string `envconfig:"PARTSTRACK_DB_HOST"`
	LegacyPort     int    `envconfig:"PARTSTRACK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PARTSTRACK_DB_USER"`
	LegacyPassword string `envconfig:"PARTSTRACK_DB_PASSWORD"`
	LegacyName     string `envconfig:"PARTSTRACK_DB_NAME"`
	LegacySSLMode  string `envconfig:"PARTSTRACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PARTSTRACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PARTSTRACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PARTSTRACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PARTSTRACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PARTSTRACK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PARTSTRACK_REDIS_ADDR"`
	Password     string        `envconfig:"PARTSTRACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"PARTSTRACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PARTSTRACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PARTSTRACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PARTSTRACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PARTSTRACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PARTSTRACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PARTSTRACK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PARTSTRACK_AUTO_MIGRATE" default:"false"`
}

// AllocationConfig tunes the allocation engine's transaction handling.
type AllocationConfig struct {
	TxRetries             int           `envconfig:"PARTSTRACK_ALLOCATION_TX_RETRIES" default:"3"`
	TxRetryBase           time.Duration `envconfig:"PARTSTRACK_ALLOCATION_TX_RETRY_BASE" default:"25ms"`
	StrictTemplateLocking bool          `envconfig:"PARTSTRACK_ALLOCATION_STRICT_TEMPLATE_LOCKING" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PARTSTRACK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PARTSTRACK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PARTSTRACK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	ActivityTopic        string `envconfig:"PARTSTRACK_PUBSUB_ACTIVITY_TOPIC" default:"pt-activity-events"`
	ActivitySubscription string `envconfig:"PARTSTRACK_PUBSUB_ACTIVITY_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PARTSTRACK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PARTSTRACK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PARTSTRACK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"PARTSTRACK_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval    time.Duration `envconfig:"PARTSTRACK_CRON_INTERVAL" default:"15m"`
	MetricsPort string        `envconfig:"PARTSTRACK_CRON_METRICS_PORT" default:"9102"`
	RepairDrift bool          `envconfig:"PARTSTRACK_CRON_REPAIR_DRIFT" default:"true"`
	// LeaseTTL bounds how long a crashed worker keeps a job locked.
	LeaseTTL time.Duration `envconfig:"PARTSTRACK_CRON_LEASE_TTL" default:"1h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
