package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "DUKA"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Canonical variable names, used by tests and ops tooling.
const (
	EnvAppEnv         = "DUKA_APP_ENV"
	EnvPort           = "DUKA_APP_PORT"
	EnvDBDSN          = "DUKA_DB_DSN"
	EnvRedisURL       = "DUKA_REDIS_URL"
	EnvCatalogBaseURL = "DUKA_CATALOG_BASE_URL"
	EnvSessionSecret  = "DUKA_SESSION_SECRET"
	EnvDeliveryFee    = "DUKA_CHECKOUT_DELIVERY_FEE"
)

type Config struct {
	App      AppConfig
	Catalog  CatalogConfig
	Cart     CartConfig
	Checkout CheckoutConfig
	DB       DBConfig
	Redis    RedisConfig
	Session  SessionConfig
	MomoA    MobileMoneyConfig `envconfig:"MOMO_A"`
	MomoB    MobileMoneyConfig `envconfig:"MOMO_B"`
	Square   SquareConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DUKA_APP_ENV" required:"true"`
	Port         string `envconfig:"DUKA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"DUKA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DUKA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// CatalogConfig points the snapshot loader at the remote catalog service.
type CatalogConfig struct {
	BaseURL        string        `envconfig:"DUKA_CATALOG_BASE_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"DUKA_CATALOG_REQUEST_TIMEOUT" default:"10s"`
	SnapshotTTL    time.Duration `envconfig:"DUKA_CATALOG_SNAPSHOT_TTL" default:"30s"`
}

type CartConfig struct {
	// TTL keeps an abandoned cart alive at least through the checkout session.
	TTL time.Duration `envconfig:"DUKA_CART_TTL" default:"168h"`
}

type CheckoutConfig struct {
	// DeliveryFee is a flat fee in currency units added once per checkout.
	DeliveryFee float64 `envconfig:"DUKA_CHECKOUT_DELIVERY_FEE" default:"10"`
}

type DBConfig struct {
	DSN    string `envconfig:"DUKA_DB_DSN"`
	Driver string `envconfig:"DUKA_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"DUKA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DUKA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DUKA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DUKA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DUKA_REDIS_URL"`
	Address      string        `envconfig:"DUKA_REDIS_ADDR"`
	Password     string        `envconfig:"DUKA_REDIS_PASSWORD"`
	DB           int           `envconfig:"DUKA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DUKA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DUKA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DUKA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DUKA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DUKA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SessionConfig signs the guest cart-session tokens.
type SessionConfig struct {
	Secret     string `envconfig:"DUKA_SESSION_SECRET" required:"true"`
	Issuer     string `envconfig:"DUKA_SESSION_ISSUER" default:"duka-storefront"`
	TTLMinutes int    `envconfig:"DUKA_SESSION_TTL_MINUTES" default:"10080"`
}

// TTL returns the session token lifetime.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 0
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

// MobileMoneyConfig configures one push-payment provider instance. Both
// providers speak the same protocol; only the credentials and endpoints vary.
type MobileMoneyConfig struct {
	BaseURL        string        `envconfig:"BASE_URL"`
	ConsumerKey    string        `envconfig:"CONSUMER_KEY"`
	ConsumerSecret string        `envconfig:"CONSUMER_SECRET"`
	ShortCode      string        `envconfig:"SHORTCODE"`
	Passkey        string        `envconfig:"PASSKEY"`
	CallbackURL    string        `envconfig:"CALLBACK_URL"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
}

// Configured reports whether the provider has enough settings to dispatch.
func (m MobileMoneyConfig) Configured() bool {
	return strings.TrimSpace(m.BaseURL) != "" &&
		strings.TrimSpace(m.ConsumerKey) != "" &&
		strings.TrimSpace(m.ConsumerSecret) != "" &&
		strings.TrimSpace(m.ShortCode) != "" &&
		strings.TrimSpace(m.Passkey) != ""
}

type SquareConfig struct {
	AccessToken string `envconfig:"DUKA_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"DUKA_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"DUKA_SQUARE_LOCATION_ID"`
	Currency    string `envconfig:"DUKA_SQUARE_CURRENCY" default:"KES"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type GCPConfig struct {
	ProjectID string `envconfig:"DUKA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	PaymentReconciliationTopic string `envconfig:"DUKA_PUBSUB_PAYMENT_RECONCILIATION_TOPIC" default:"duka-payment-reconciliation"`
}
