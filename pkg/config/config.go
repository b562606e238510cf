package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Platform     PlatformConfig
	MercadoPago  MercadoPagoConfig
	Asaas        AsaasConfig
	Reconcile    ReconcileConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Platform.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LUMEPLAY_APP_ENV" required:"true"`
	Port         string `envconfig:"LUMEPLAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LUMEPLAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LUMEPLAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LUMEPLAY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LUMEPLAY_DB_DSN"`
	Driver string `envconfig:"LUMEPLAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LUMEPLAY_DB_HOST"`
	LegacyPort     int    `envconfig:"LUMEPLAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LUMEPLAY_DB_USER"`
	LegacyPassword string `envconfig:"LUMEPLAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"LUMEPLAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"LUMEPLAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LUMEPLAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LUMEPLAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LUMEPLAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LUMEPLAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LUMEPLAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LUMEPLAY_REDIS_ADDR"`
	Password     string        `envconfig:"LUMEPLAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"LUMEPLAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LUMEPLAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LUMEPLAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LUMEPLAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LUMEPLAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LUMEPLAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LUMEPLAY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LUMEPLAY_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	ConsumerIdempotencyTTL time.Duration `envconfig:"LUMEPLAY_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookDedupTTL        time.Duration `envconfig:"LUMEPLAY_WEBHOOK_DEDUP_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LUMEPLAY_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"LUMEPLAY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LUMEPLAY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventsTopic        string `envconfig:"LUMEPLAY_PUBSUB_EVENTS_TOPIC" required:"true"`
	EventsSubscription string `envconfig:"LUMEPLAY_PUBSUB_EVENTS_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LUMEPLAY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LUMEPLAY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LUMEPLAY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PlatformConfig carries the marketplace settlement knobs.
type PlatformConfig struct {
	FeePercent    string `envconfig:"LUMEPLAY_PLATFORM_FEE_PERCENT" default:"3"`
	MinWithdrawal string `envconfig:"LUMEPLAY_MIN_WITHDRAWAL" default:"1.00"`
}

func (p PlatformConfig) validate() error {
	if _, err := decimal.NewFromString(p.FeePercent); err != nil {
		return fmt.Errorf("invalid platform fee percent %q: %w", p.FeePercent, err)
	}
	if _, err := decimal.NewFromString(p.MinWithdrawal); err != nil {
		return fmt.Errorf("invalid minimum withdrawal %q: %w", p.MinWithdrawal, err)
	}
	return nil
}

// FeeRate returns the platform fee as a fraction (3 -> 0.03).
func (p PlatformConfig) FeeRate() decimal.Decimal {
	pct, err := decimal.NewFromString(p.FeePercent)
	if err != nil {
		pct = decimal.NewFromInt(3)
	}
	return pct.Div(decimal.NewFromInt(100))
}

// MinWithdrawalAmount returns the minimum withdrawal as a decimal.
func (p PlatformConfig) MinWithdrawalAmount() decimal.Decimal {
	min, err := decimal.NewFromString(p.MinWithdrawal)
	if err != nil {
		min = decimal.New(1, 0)
	}
	return min
}

type MercadoPagoConfig struct {
	AccessToken   string        `envconfig:"LUMEPLAY_MERCADOPAGO_ACCESS_TOKEN"`
	BaseURL       string        `envconfig:"LUMEPLAY_MERCADOPAGO_BASE_URL" default:"https://api.mercadopago.com"`
	LookupTimeout time.Duration `envconfig:"LUMEPLAY_MERCADOPAGO_LOOKUP_TIMEOUT" default:"10s"`
	LookupRetries int           `envconfig:"LUMEPLAY_MERCADOPAGO_LOOKUP_RETRIES" default:"3"`
}

type AsaasConfig struct {
	APIKey          string        `envconfig:"LUMEPLAY_ASAAS_API_KEY"`
	BaseURL         string        `envconfig:"LUMEPLAY_ASAAS_BASE_URL" default:"https://api.asaas.com/v3"`
	TransferTimeout time.Duration `envconfig:"LUMEPLAY_ASAAS_TRANSFER_TIMEOUT" default:"30s"`
}

// Configured reports whether the payout provider credentials are present.
func (a AsaasConfig) Configured() bool {
	return strings.TrimSpace(a.APIKey) != ""
}

type ReconcileConfig struct {
	StaleAfter   time.Duration `envconfig:"LUMEPLAY_RECONCILE_STALE_AFTER" default:"30m"`
	PollInterval time.Duration `envconfig:"LUMEPLAY_RECONCILE_POLL_INTERVAL" default:"5m"`
	BatchSize    int           `envconfig:"LUMEPLAY_RECONCILE_BATCH_SIZE" default:"100"`
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
