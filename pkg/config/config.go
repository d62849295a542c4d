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
	GCP          GCPConfig
	PubSub       PubSubConfig
	Pricing      PricingConfig
	Logistics    LogisticsConfig
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
	Env          string   `envconfig:"ORDERLIFT_APP_ENV" required:"true"`
	Port         string   `envconfig:"ORDERLIFT_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"ORDERLIFT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"ORDERLIFT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"ORDERLIFT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ORDERLIFT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ORDERLIFT_DB_DSN"`
	Driver string `envconfig:"ORDERLIFT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ORDERLIFT_DB_HOST"`
	LegacyPort     int    `envconfig:"ORDERLIFT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORDERLIFT_DB_USER"`
	LegacyPassword string `envconfig:"ORDERLIFT_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORDERLIFT_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORDERLIFT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERLIFT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORDERLIFT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERLIFT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERLIFT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERLIFT_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"ORDERLIFT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERLIFT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERLIFT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERLIFT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERLIFT_REDIS_WRITE_TIMEOUT" default:"5s"`
	PriceTTL     time.Duration `envconfig:"ORDERLIFT_REDIS_PRICE_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ORDERLIFT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ORDERLIFT_AUTO_MIGRATE" default:"false"`
	AsyncRecalc bool `envconfig:"ORDERLIFT_ASYNC_RECALC" default:"false"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"ORDERLIFT_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"ORDERLIFT_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"ORDERLIFT_PUBSUB_DOMAIN_TOPIC" default:"orderlift-domain-events"`
	RecalcSubscription string `envconfig:"ORDERLIFT_PUBSUB_RECALC_SUBSCRIPTION"`
}

type PricingConfig struct {
	MinMarginPercent   float64 `envconfig:"ORDERLIFT_PRICING_MIN_MARGIN_PERCENT" default:"0"`
	BenchmarkLowRatio  float64 `envconfig:"ORDERLIFT_PRICING_BENCHMARK_LOW_RATIO" default:"0.8"`
	BenchmarkHighRatio float64 `envconfig:"ORDERLIFT_PRICING_BENCHMARK_HIGH_RATIO" default:"1.1"`
	MaxWarnings        int     `envconfig:"ORDERLIFT_PRICING_MAX_WARNINGS" default:"25"`
}

type LogisticsConfig struct {
	LimitingFactorEpsilon float64 `envconfig:"ORDERLIFT_LOGISTICS_LIMITING_EPSILON" default:"1.0"`
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
