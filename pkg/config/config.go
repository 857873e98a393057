package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is empty because every field carries a fully-qualified env tag.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "WHISPERLINK_DB_DSN"
	EnvDBHost = "WHISPERLINK_DB_HOST"
	EnvDBUser = "WHISPERLINK_DB_USER"
	EnvDBName = "WHISPERLINK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Realtime      RealtimeConfig
	Notifications NotificationsConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
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
	Env          string `envconfig:"WHISPERLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"WHISPERLINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WHISPERLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WHISPERLINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"WHISPERLINK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"WHISPERLINK_DB_DSN"`
	Driver string `envconfig:"WHISPERLINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WHISPERLINK_DB_HOST"`
	LegacyPort     int    `envconfig:"WHISPERLINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WHISPERLINK_DB_USER"`
	LegacyPassword string `envconfig:"WHISPERLINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"WHISPERLINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"WHISPERLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WHISPERLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WHISPERLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WHISPERLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WHISPERLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WHISPERLINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WHISPERLINK_REDIS_ADDR"`
	Password     string        `envconfig:"WHISPERLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"WHISPERLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WHISPERLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WHISPERLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WHISPERLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WHISPERLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WHISPERLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"WHISPERLINK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"WHISPERLINK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"WHISPERLINK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"WHISPERLINK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// RealtimeConfig drives the websocket hub and channel grant signing.
type RealtimeConfig struct {
	AppKey        string        `envconfig:"WHISPERLINK_REALTIME_APP_KEY" required:"true"`
	AppSecret     string        `envconfig:"WHISPERLINK_REALTIME_APP_SECRET" required:"true"`
	WriteTimeout  time.Duration `envconfig:"WHISPERLINK_REALTIME_WRITE_TIMEOUT" default:"10s"`
	PingInterval  time.Duration `envconfig:"WHISPERLINK_REALTIME_PING_INTERVAL" default:"30s"`
	SendQueueSize int           `envconfig:"WHISPERLINK_REALTIME_SEND_QUEUE" default:"64"`
}

type NotificationsConfig struct {
	RetentionDays  int           `envconfig:"WHISPERLINK_NOTIFICATIONS_RETENTION_DAYS" default:"30"`
	AppendAttempts int           `envconfig:"WHISPERLINK_NOTIFICATIONS_APPEND_ATTEMPTS" default:"3"`
	AppendBackoff  time.Duration `envconfig:"WHISPERLINK_NOTIFICATIONS_APPEND_BACKOFF" default:"100ms"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WHISPERLINK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WHISPERLINK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"WHISPERLINK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"WHISPERLINK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"WHISPERLINK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"WHISPERLINK_PUBSUB_NOTIFICATION_TOPIC" default:"wl-notification-events"`
	NotificationSubscription string `envconfig:"WHISPERLINK_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
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
