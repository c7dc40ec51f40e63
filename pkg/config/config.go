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
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	Checkout     CheckoutConfig
	Gateway      GatewayConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	// CORSOrigins is a comma-separated list of storefront origins.
	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL            string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address        string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password       string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB             int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"STOREFRONT_REDIS_IDEMPOTENCY_TTL" default:"24h"`
}

// JWTConfig covers verification only; tokens are minted by the identity service.
type JWTConfig struct {
	Secret string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
}

type RateLimitConfig struct {
	ConfirmWindow time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_CONFIRM_WINDOW" default:"1m"`
	ConfirmLimit  int           `envconfig:"STOREFRONT_RATE_LIMIT_CONFIRM_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	ConsumerIdempotencyTTL time.Duration `envconfig:"STOREFRONT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// CheckoutConfig holds the pricing rules. Amounts are minor currency units.
type CheckoutConfig struct {
	Currency                   string        `envconfig:"STOREFRONT_CHECKOUT_CURRENCY" default:"INR"`
	FreeShippingThresholdMinor int64         `envconfig:"STOREFRONT_CHECKOUT_FREE_SHIPPING_THRESHOLD_MINOR" default:"49900"`
	FlatShippingFeeMinor       int64         `envconfig:"STOREFRONT_CHECKOUT_FLAT_SHIPPING_FEE_MINOR" default:"4900"`
	TaxMinor                   int64         `envconfig:"STOREFRONT_CHECKOUT_TAX_MINOR" default:"0"`
	QuoteTTL                   time.Duration `envconfig:"STOREFRONT_CHECKOUT_QUOTE_TTL" default:"30m"`
	MaxLines                   int           `envconfig:"STOREFRONT_CHECKOUT_MAX_LINES" default:"50"`
	MaxQuantityPerLine         int           `envconfig:"STOREFRONT_CHECKOUT_MAX_QUANTITY_PER_LINE" default:"100"`
	OrderNumberPrefix          string        `envconfig:"STOREFRONT_ORDER_NUMBER_PREFIX" default:"FK"`
}

func (c CheckoutConfig) validate() error {
	if c.FreeShippingThresholdMinor < 0 || c.FlatShippingFeeMinor < 0 || c.TaxMinor < 0 {
		return fmt.Errorf("checkout amounts must be non-negative")
	}
	if c.MaxLines <= 0 || c.MaxQuantityPerLine <= 0 {
		return fmt.Errorf("checkout line limits must be positive")
	}
	if strings.TrimSpace(c.OrderNumberPrefix) == "" {
		return fmt.Errorf("%s must not be empty", EnvOrderNumberPrefix)
	}
	return nil
}

type GatewayConfig struct {
	KeyID     string        `envconfig:"STOREFRONT_GATEWAY_KEY_ID"`
	KeySecret string        `envconfig:"STOREFRONT_GATEWAY_KEY_SECRET"`
	BaseURL   string        `envconfig:"STOREFRONT_GATEWAY_BASE_URL" default:"https://api.razorpay.com"`
	Timeout   time.Duration `envconfig:"STOREFRONT_GATEWAY_TIMEOUT" default:"10s"`
}

// Configured reports whether real gateway credentials are present.
// Placeholder keys copied from sample env files count as unconfigured.
func (g GatewayConfig) Configured() bool {
	id := strings.TrimSpace(g.KeyID)
	secret := strings.TrimSpace(g.KeySecret)
	if id == "" || secret == "" {
		return false
	}
	return !strings.Contains(id, "xxxx")
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOREFRONT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"storefront-order-events"`
	OrdersSubscription string `envconfig:"STOREFRONT_PUBSUB_ORDERS_SUBSCRIPTION" default:"storefront-order-events-analytics"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"STOREFRONT_BIGQUERY_DATASET" default:"storefront"`
	OrderEventsTable string `envconfig:"STOREFRONT_BIGQUERY_ORDER_EVENTS_TABLE" default:"order_events"`
	InsertBatchSize  int    `envconfig:"STOREFRONT_BIGQUERY_INSERT_BATCH_SIZE" default:"1"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval         time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"5m"`
	LockTTL          time.Duration `envconfig:"STOREFRONT_CRON_LOCK_TTL" default:"4m"`
	BatchSize        int           `envconfig:"STOREFRONT_CRON_BATCH_SIZE" default:"100"`
	OutboxRetention  time.Duration `envconfig:"STOREFRONT_CRON_OUTBOX_RETENTION" default:"720h"`
	CommitRetryDelay time.Duration `envconfig:"STOREFRONT_CRON_COMMIT_RETRY_DELAY" default:"1m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
