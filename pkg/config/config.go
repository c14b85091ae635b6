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
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Storage      StorageConfig
	Settlement   SettlementConfig
	HTTP         HTTPConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GIGBRIDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"GIGBRIDGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GIGBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GIGBRIDGE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"GIGBRIDGE_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind        string `envconfig:"GIGBRIDGE_SERVICE_KIND" default:"api"`
	MetricsAddr string `envconfig:"GIGBRIDGE_METRICS_ADDR" default:":9090"`
}

type DBConfig struct {
	DSN    string `envconfig:"GIGBRIDGE_DB_DSN"`
	Driver string `envconfig:"GIGBRIDGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GIGBRIDGE_DB_HOST"`
	LegacyPort     int    `envconfig:"GIGBRIDGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GIGBRIDGE_DB_USER"`
	LegacyPassword string `envconfig:"GIGBRIDGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"GIGBRIDGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"GIGBRIDGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GIGBRIDGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GIGBRIDGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GIGBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GIGBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"GIGBRIDGE_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GIGBRIDGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GIGBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"GIGBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GIGBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GIGBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GIGBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GIGBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GIGBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GIGBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the verification side of access tokens. Issuance lives in
// the identity service.
type JWTConfig struct {
	Secret string `envconfig:"GIGBRIDGE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"GIGBRIDGE_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GIGBRIDGE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GIGBRIDGE_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"GIGBRIDGE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GIGBRIDGE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"GIGBRIDGE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GIGBRIDGE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EngagementsTopic         string `envconfig:"GIGBRIDGE_PUBSUB_ENGAGEMENTS_TOPIC" required:"true"`
	NotificationSubscription string `envconfig:"GIGBRIDGE_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"GIGBRIDGE_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval   time.Duration `envconfig:"GIGBRIDGE_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxBackoff     time.Duration `envconfig:"GIGBRIDGE_OUTBOX_MAX_BACKOFF" default:"10s"`
	PublishTimeout time.Duration `envconfig:"GIGBRIDGE_OUTBOX_PUBLISH_TIMEOUT" default:"15s"`
	MaxAttempts    int           `envconfig:"GIGBRIDGE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// StorageConfig points at the S3-compatible bucket that hosts discussion
// attachments and deliverables.
type StorageConfig struct {
	Endpoint        string        `envconfig:"GIGBRIDGE_STORAGE_ENDPOINT" required:"true"`
	AccessKey       string        `envconfig:"GIGBRIDGE_STORAGE_ACCESS_KEY" required:"true"`
	SecretKey       string        `envconfig:"GIGBRIDGE_STORAGE_SECRET_KEY" required:"true"`
	Bucket          string        `envconfig:"GIGBRIDGE_STORAGE_BUCKET" required:"true"`
	UseSSL          bool          `envconfig:"GIGBRIDGE_STORAGE_USE_SSL" default:"true"`
	PublicBaseURL   string        `envconfig:"GIGBRIDGE_STORAGE_PUBLIC_BASE_URL"`
	UploadURLExpiry time.Duration `envconfig:"GIGBRIDGE_STORAGE_UPLOAD_URL_EXPIRY" default:"15m"`
	MaxUploadMB     int           `envconfig:"GIGBRIDGE_MAX_UPLOAD_MB" default:"50"`
}

type SettlementConfig struct {
	Timeout time.Duration `envconfig:"GIGBRIDGE_SETTLEMENT_TIMEOUT" default:"10s"`
}

type HTTPConfig struct {
	RequestTimeout time.Duration `envconfig:"GIGBRIDGE_HTTP_REQUEST_TIMEOUT" default:"30s"`
	AllowedOrigins []string      `envconfig:"GIGBRIDGE_CORS_ALLOWED_ORIGINS"`
}

type CronConfig struct {
	Tick                      time.Duration `envconfig:"GIGBRIDGE_CRON_TICK" default:"1m"`
	JobTimeout                time.Duration `envconfig:"GIGBRIDGE_CRON_JOB_TIMEOUT" default:"10m"`
	ReconcileEvery            time.Duration `envconfig:"GIGBRIDGE_CRON_RECONCILE_EVERY" default:"15m"`
	RetentionEvery            time.Duration `envconfig:"GIGBRIDGE_CRON_RETENTION_EVERY" default:"24h"`
	ReconcileBatchSize        int           `envconfig:"GIGBRIDGE_CRON_RECONCILE_BATCH_SIZE" default:"200"`
	OutboxRetentionDays       int           `envconfig:"GIGBRIDGE_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	NotificationRetentionDays int           `envconfig:"GIGBRIDGE_CRON_NOTIFICATION_RETENTION_DAYS" default:"90"`
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
