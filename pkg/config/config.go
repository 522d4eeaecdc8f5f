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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Orders       OrdersConfig
	Payments     PaymentsConfig
	Cron         CronConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ACME_APP_ENV" required:"true"`
	Port         string `envconfig:"ACME_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ACME_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ACME_LOG_WARN_STACK" default:"false"`
	// MetricsAddr is where the background workers serve /metrics. Empty
	// disables the listener; the API serves metrics on its own router.
	MetricsAddr string `envconfig:"ACME_WORKER_METRICS_ADDR"`

	CORSOrigins []string `envconfig:"ACME_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"ACME_DB_DSN"`
	Driver string `envconfig:"ACME_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"ACME_DB_HOST"`
	Port     int    `envconfig:"ACME_DB_PORT" default:"5432"`
	User     string `envconfig:"ACME_DB_USER"`
	Password string `envconfig:"ACME_DB_PASSWORD"`
	Name     string `envconfig:"ACME_DB_NAME"`
	SSLMode  string `envconfig:"ACME_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"ACME_DB_SQLITE_PATH" default:"acme.db"`

	MaxOpenConns    int           `envconfig:"ACME_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ACME_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ACME_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ACME_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"ACME_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
	// TxAttempts bounds how often WithTx reruns a unit that hit a deadlock or
	// serialization failure.
	TxAttempts int `envconfig:"ACME_DB_TX_ATTEMPTS" default:"3"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ACME_REDIS_URL"`
	Address      string        `envconfig:"ACME_REDIS_ADDR"`
	Password     string        `envconfig:"ACME_REDIS_PASSWORD"`
	DB           int           `envconfig:"ACME_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ACME_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ACME_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ACME_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ACME_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ACME_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ACME_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ACME_JWT_ISSUER" default:"acme-commerce"`
	ExpirationMinutes int    `envconfig:"ACME_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ACME_AUTO_MIGRATE" default:"false"`
}

// OrdersConfig controls the pending-payment expiry sweep.
type OrdersConfig struct {
	PendingPaymentTTL time.Duration `envconfig:"ACME_ORDERS_PENDING_PAYMENT_TTL" default:"30m"`
	ExpiryBatchSize   int           `envconfig:"ACME_ORDERS_EXPIRY_BATCH_SIZE" default:"100"`
}

type PaymentsConfig struct {
	WebhookSecret  string        `envconfig:"ACME_PAYMENTS_WEBHOOK_SECRET"`
	IdempotencyTTL time.Duration `envconfig:"ACME_PAYMENTS_IDEMPOTENCY_TTL" default:"720h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"ACME_CRON_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"ACME_CRON_LOCK_TTL" default:"5m"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"ACME_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"ACME_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrderEventsTopic string `envconfig:"ACME_PUBSUB_ORDER_EVENTS_TOPIC" default:"acme-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ACME_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ACME_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ACME_OUTBOX_MAX_ATTEMPTS" default:"10"`

	PublishedRetention time.Duration `envconfig:"ACME_OUTBOX_PUBLISHED_RETENTION" default:"168h"`
	ParkedRetention    time.Duration `envconfig:"ACME_OUTBOX_PARKED_RETENTION" default:"720h"`
}

// PollInterval returns the outbox poll interval as a duration.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

// IsSQLite reports whether the local sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, "sqlite")
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" || db.IsSQLite() {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range legacyDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
