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
	Zoho         ZohoConfig
	RateLimit    RateLimitConfig
	Sync         SyncConfig
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
	if err := cfg.RateLimit.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ZOHOSYNC_APP_ENV" required:"true"`
	Port         string `envconfig:"ZOHOSYNC_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ZOHOSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ZOHOSYNC_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"ZOHOSYNC_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ZOHOSYNC_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ZOHOSYNC_DB_DSN"`
	Driver string `envconfig:"ZOHOSYNC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ZOHOSYNC_DB_HOST"`
	LegacyPort     int    `envconfig:"ZOHOSYNC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ZOHOSYNC_DB_USER"`
	LegacyPassword string `envconfig:"ZOHOSYNC_DB_PASSWORD"`
	LegacyName     string `envconfig:"ZOHOSYNC_DB_NAME"`
	LegacySSLMode  string `envconfig:"ZOHOSYNC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ZOHOSYNC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ZOHOSYNC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ZOHOSYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ZOHOSYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ZOHOSYNC_REDIS_URL"`
	Address      string        `envconfig:"ZOHOSYNC_REDIS_ADDR"`
	Password     string        `envconfig:"ZOHOSYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"ZOHOSYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ZOHOSYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ZOHOSYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ZOHOSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ZOHOSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ZOHOSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ZOHOSYNC_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ZOHOSYNC_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ZOHOSYNC_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ZOHOSYNC_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ZOHOSYNC_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SyncTopic string `envconfig:"ZOHOSYNC_PUBSUB_SYNC_TOPIC"`
}

// Enabled reports whether sync completion events should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.SyncTopic) != ""
}

type ZohoConfig struct {
	OrganizationID string        `envconfig:"ZOHOSYNC_ZOHO_ORGANIZATION_ID" required:"true"`
	ClientID       string        `envconfig:"ZOHOSYNC_ZOHO_CLIENT_ID" required:"true"`
	ClientSecret   string        `envconfig:"ZOHOSYNC_ZOHO_CLIENT_SECRET" required:"true"`
	RefreshToken   string        `envconfig:"ZOHOSYNC_ZOHO_REFRESH_TOKEN" required:"true"`
	APIBaseURL     string        `envconfig:"ZOHOSYNC_ZOHO_API_BASE_URL" default:"https://www.zohoapis.com/inventory/v1"`
	TokenURL       string        `envconfig:"ZOHOSYNC_ZOHO_TOKEN_URL" default:"https://accounts.zoho.com/oauth/v2/token"`
	TokenSkew      time.Duration `envconfig:"ZOHOSYNC_ZOHO_TOKEN_SKEW" default:"5m"`
}

type RateLimitConfig struct {
	BaseDelay             time.Duration `envconfig:"ZOHOSYNC_BASE_DELAY" default:"100ms"`
	BatchSize             int           `envconfig:"ZOHOSYNC_BATCH_SIZE" default:"200"`
	MaxRetries            int           `envconfig:"ZOHOSYNC_MAX_RETRIES" default:"3"`
	RequestsPerSecond     float64       `envconfig:"ZOHOSYNC_REQUESTS_PER_SECOND" default:"1.5"`
	BurstSize             int           `envconfig:"ZOHOSYNC_BURST_SIZE" default:"5"`
	MaxRecordsPerRun      int           `envconfig:"ZOHOSYNC_MAX_RECORDS_PER_RUN" default:"10000"`
	MaxConcurrentRequests int           `envconfig:"ZOHOSYNC_MAX_CONCURRENT_REQUESTS" default:"2"`
	AdaptiveThrottling    bool          `envconfig:"ZOHOSYNC_ADAPTIVE_THROTTLING" default:"true"`
	SlowThreshold         time.Duration `envconfig:"ZOHOSYNC_SLOW_THRESHOLD" default:"2s"`
	CircuitBreaker        bool          `envconfig:"ZOHOSYNC_CIRCUIT_BREAKER" default:"true"`
	FailureThreshold      int           `envconfig:"ZOHOSYNC_FAILURE_THRESHOLD" default:"5"`
	RecoveryTime          time.Duration `envconfig:"ZOHOSYNC_RECOVERY_TIME" default:"60s"`
	RequestTimeout        time.Duration `envconfig:"ZOHOSYNC_REQUEST_TIMEOUT" default:"30s"`
}

func (r RateLimitConfig) validate() error {
	switch {
	case r.RequestsPerSecond <= 0:
		return fmt.Errorf("%s must be positive", EnvRequestsPerSecond)
	case r.BurstSize <= 0:
		return fmt.Errorf("%s must be positive", EnvBurstSize)
	case r.MaxConcurrentRequests <= 0:
		return fmt.Errorf("%s must be positive", EnvMaxConcurrentRequests)
	case r.BatchSize <= 0 || r.BatchSize > 200:
		return fmt.Errorf("%s must be between 1 and 200", EnvBatchSize)
	case r.MaxRecordsPerRun <= 0:
		return fmt.Errorf("%s must be positive", EnvMaxRecordsPerRun)
	case r.MaxRetries < 0:
		return fmt.Errorf("%s must not be negative", EnvMaxRetries)
	}
	return nil
}

type SyncConfig struct {
	Incremental      bool          `envconfig:"ZOHOSYNC_SYNC_INCREMENTAL" default:"true"`
	Overlap          time.Duration `envconfig:"ZOHOSYNC_SYNC_OVERLAP" default:"10m"`
	DefaultWarehouse string        `envconfig:"ZOHOSYNC_SYNC_DEFAULT_WAREHOUSE" default:"main"`
	LockTTL          time.Duration `envconfig:"ZOHOSYNC_SYNC_LOCK_TTL" default:"30m"`
	LoadDetails      bool          `envconfig:"ZOHOSYNC_SYNC_LOAD_DETAILS" default:"true"`
}

type CronConfig struct {
	SyncInterval time.Duration `envconfig:"ZOHOSYNC_CRON_SYNC_INTERVAL" default:"15m"`
	LockTTL      time.Duration `envconfig:"ZOHOSYNC_CRON_LOCK_TTL" default:"14m"`
}

// StaleAfter is the age past which the last successful sync is reported stale.
func (c CronConfig) StaleAfter() time.Duration {
	return 2 * c.SyncInterval
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
