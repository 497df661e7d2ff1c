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
	Gateway      GatewayConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Metrics      MetricsConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WHOLESALE_APP_ENV" required:"true"`
	Port         string `envconfig:"WHOLESALE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WHOLESALE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"WHOLESALE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"WHOLESALE_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"WHOLESALE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"WHOLESALE_DB_DSN"`
	Driver string `envconfig:"WHOLESALE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WHOLESALE_DB_HOST"`
	LegacyPort     int    `envconfig:"WHOLESALE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WHOLESALE_DB_USER"`
	LegacyPassword string `envconfig:"WHOLESALE_DB_PASSWORD"`
	LegacyName     string `envconfig:"WHOLESALE_DB_NAME"`
	LegacySSLMode  string `envconfig:"WHOLESALE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WHOLESALE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WHOLESALE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WHOLESALE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WHOLESALE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the embedded driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"WHOLESALE_REDIS_URL"`
	Address      string        `envconfig:"WHOLESALE_REDIS_ADDR"`
	Password     string        `envconfig:"WHOLESALE_REDIS_PASSWORD"`
	DB           int           `envconfig:"WHOLESALE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WHOLESALE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WHOLESALE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WHOLESALE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WHOLESALE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WHOLESALE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether any redis endpoint was supplied.
func (r RedisConfig) Configured() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"WHOLESALE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"WHOLESALE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"WHOLESALE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite    bool `envconfig:"WHOLESALE_USE_SQLITE" default:"false"`
	AutoMigrate  bool `envconfig:"WHOLESALE_AUTO_MIGRATE" default:"false"`
	CheckoutLock bool `envconfig:"WHOLESALE_FEATURE_CHECKOUT_LOCK" default:"true"`
}

// GatewayConfig holds the online payment gateway credentials and limits.
// Both KeyID and KeySecret must be present for the online path to be offered.
type GatewayConfig struct {
	KeyID          string        `envconfig:"WHOLESALE_GATEWAY_KEY_ID"`
	KeySecret      string        `envconfig:"WHOLESALE_GATEWAY_KEY_SECRET"`
	BaseURL        string        `envconfig:"WHOLESALE_GATEWAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	Currency       string        `envconfig:"WHOLESALE_GATEWAY_CURRENCY" default:"INR"`
	ReceiptPrefix  string        `envconfig:"WHOLESALE_GATEWAY_RECEIPT_PREFIX" default:"order_"`
	MaxAmountMinor int64         `envconfig:"WHOLESALE_GATEWAY_MAX_AMOUNT_MINOR" default:"20000000"`
	Timeout        time.Duration `envconfig:"WHOLESALE_GATEWAY_TIMEOUT" default:"10s"`
	LockTTL        time.Duration `envconfig:"WHOLESALE_CHECKOUT_LOCK_TTL" default:"30s"`
}

// Enabled reports whether both gateway secrets are configured.
func (g GatewayConfig) Enabled() bool {
	return strings.TrimSpace(g.KeyID) != "" && strings.TrimSpace(g.KeySecret) != ""
}

type GCPConfig struct {
	ProjectID string `envconfig:"WHOLESALE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"WHOLESALE_PUBSUB_ORDERS_TOPIC" default:"wholesale-order-events"`
	OrdersSubscription string `envconfig:"WHOLESALE_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"WHOLESALE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"WHOLESALE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"WHOLESALE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// RateLimitConfig throttles payment verification attempts per window.
type RateLimitConfig struct {
	VerifyWindow    time.Duration `envconfig:"WHOLESALE_RATE_LIMIT_VERIFY_WINDOW" default:"1m"`
	VerifyIPLimit   int           `envconfig:"WHOLESALE_RATE_LIMIT_VERIFY_IP" default:"60"`
	VerifyUserLimit int           `envconfig:"WHOLESALE_RATE_LIMIT_VERIFY_USER" default:"10"`
}

type MetricsConfig struct {
	Path string `envconfig:"WHOLESALE_METRICS_PATH" default:"/metrics"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = defaultSQLiteDSN
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
