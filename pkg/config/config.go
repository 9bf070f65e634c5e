package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"FABTRACK_APP_ENV" required:"true"`
	Port         string `envconfig:"FABTRACK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FABTRACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FABTRACK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FABTRACK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FABTRACK_DB_DSN"`
	Driver string `envconfig:"FABTRACK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FABTRACK_DB_HOST"`
	LegacyPort     int    `envconfig:"FABTRACK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FABTRACK_DB_USER"`
	LegacyPassword string `envconfig:"FABTRACK_DB_PASSWORD"`
	LegacyName     string `envconfig:"FABTRACK_DB_NAME"`
	LegacySSLMode  string `envconfig:"FABTRACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FABTRACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FABTRACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FABTRACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FABTRACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver targets SQLite (local runs and tests).
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"FABTRACK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FABTRACK_REDIS_ADDR"`
	Password     string        `envconfig:"FABTRACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"FABTRACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FABTRACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FABTRACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FABTRACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FABTRACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FABTRACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"FABTRACK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"FABTRACK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"FABTRACK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"FABTRACK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FABTRACK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FABTRACK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FABTRACK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FABTRACK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FABTRACK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"FABTRACK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"FABTRACK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"FABTRACK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FABTRACK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FABTRACK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FABTRACK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FABTRACK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"FABTRACK_PUBSUB_DOMAIN_TOPIC" default:"fabtrack-domain-events"`
	DomainSubscription string `envconfig:"FABTRACK_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"FABTRACK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"FABTRACK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"FABTRACK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsPort    string `envconfig:"FABTRACK_OUTBOX_METRICS_PORT" default:"9091"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" || db.IsSQLite() {
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
