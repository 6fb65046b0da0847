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
	CORS          CORSConfig
	Idempotency   IdempotencyConfig
	Cron          CronConfig
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
	if err := cfg.Cron.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RENTAL_APP_ENV" required:"true"`
	Port         string `envconfig:"RENTAL_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RENTAL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RENTAL_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"RENTAL_LOG_FORMAT"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RENTAL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RENTAL_DB_DSN"`
	Driver string `envconfig:"RENTAL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RENTAL_DB_HOST"`
	LegacyPort     int    `envconfig:"RENTAL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RENTAL_DB_USER"`
	LegacyPassword string `envconfig:"RENTAL_DB_PASSWORD"`
	LegacyName     string `envconfig:"RENTAL_DB_NAME"`
	LegacySSLMode  string `envconfig:"RENTAL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RENTAL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RENTAL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RENTAL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RENTAL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the store runs on the embedded SQLite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"RENTAL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RENTAL_REDIS_ADDR"`
	Password     string        `envconfig:"RENTAL_REDIS_PASSWORD"`
	DB           int           `envconfig:"RENTAL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RENTAL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RENTAL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RENTAL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RENTAL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RENTAL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"RENTAL_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"RENTAL_JWT_ISSUER" default:"carrental"`
	ExpirationMinutes      int    `envconfig:"RENTAL_JWT_EXPIRATION_MINUTES" default:"30"`
	RefreshTokenTTLMinutes int    `envconfig:"RENTAL_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RENTAL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RENTAL_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RENTAL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RENTAL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RENTAL_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"RENTAL_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"RENTAL_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"RENTAL_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"RENTAL_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"RENTAL_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"RENTAL_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RENTAL_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"RENTAL_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"RENTAL_IDEMPOTENCY_TTL" default:"24h"`
}

type CronConfig struct {
	// Schedule is a cron expression (e.g. "@hourly"); when empty Interval is used.
	Schedule                string        `envconfig:"RENTAL_CRON_SCHEDULE"`
	Interval                time.Duration `envconfig:"RENTAL_CRON_INTERVAL" default:"1h"`
	LockTTL                 time.Duration `envconfig:"RENTAL_CRON_LOCK_TTL" default:"10m"`
	ContractExpiryBatchSize int           `envconfig:"RENTAL_CRON_CONTRACT_EXPIRY_BATCH_SIZE" default:"500"`
	OutboxRetentionDays     int           `envconfig:"RENTAL_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	OutboxRetentionBatch    int           `envconfig:"RENTAL_CRON_OUTBOX_RETENTION_BATCH" default:"1000"`
}

func (c CronConfig) validate() error {
	if strings.TrimSpace(c.Schedule) == "" && c.Interval <= 0 {
		return fmt.Errorf("either %s or a positive %s is required", EnvCronSchedule, EnvCronInterval)
	}
	return nil
}

type GCPConfig struct {
	ProjectID string `envconfig:"RENTAL_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	RentalTopic string `envconfig:"RENTAL_PUBSUB_RENTAL_TOPIC" default:"rental-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"RENTAL_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"RENTAL_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"RENTAL_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
