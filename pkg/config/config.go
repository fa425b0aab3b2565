package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
	Matching MatchingConfig
	Jobs     JobsConfig
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
	Env          string `envconfig:"TRADEINZ_APP_ENV" required:"true"`
	Port         string `envconfig:"TRADEINZ_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TRADEINZ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TRADEINZ_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TRADEINZ_DB_DSN"`
	Driver string `envconfig:"TRADEINZ_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRADEINZ_DB_HOST"`
	LegacyPort     int    `envconfig:"TRADEINZ_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRADEINZ_DB_USER"`
	LegacyPassword string `envconfig:"TRADEINZ_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRADEINZ_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRADEINZ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRADEINZ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRADEINZ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRADEINZ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRADEINZ_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"TRADEINZ_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRADEINZ_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TRADEINZ_REDIS_ADDR"`
	Password     string        `envconfig:"TRADEINZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRADEINZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRADEINZ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRADEINZ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRADEINZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRADEINZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRADEINZ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"TRADEINZ_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"TRADEINZ_JWT_ISSUER" required:"true"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"TRADEINZ_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"TRADEINZ_PUBSUB_NOTIFICATION_TOPIC" default:"tz-notification-events"`
	NotificationSubscription string `envconfig:"TRADEINZ_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TRADEINZ_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TRADEINZ_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TRADEINZ_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type MatchingConfig struct {
	DefaultPageSize int `envconfig:"TRADEINZ_MATCHING_DEFAULT_PAGE_SIZE" default:"25"`
	MaxPageSize     int `envconfig:"TRADEINZ_MATCHING_MAX_PAGE_SIZE" default:"100"`
	// MaxServiceRadiusMeters caps partner radii so a bad row cannot open the
	// whole order pool to one partner.
	MaxServiceRadiusMeters float64 `envconfig:"TRADEINZ_MATCHING_MAX_SERVICE_RADIUS_METERS" default:"100000"`
}

type JobsConfig struct {
	StaleClaimSchedule string        `envconfig:"TRADEINZ_JOBS_STALE_CLAIM_SCHEDULE" default:"*/5 * * * *"`
	StaleClaimAge      time.Duration `envconfig:"TRADEINZ_JOBS_STALE_CLAIM_AGE" default:"30m"`
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
