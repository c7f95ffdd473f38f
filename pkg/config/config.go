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
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
	Orders       OrdersConfig
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
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RXEXCHANGE_APP_ENV" required:"true"`
	Port         string `envconfig:"RXEXCHANGE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RXEXCHANGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RXEXCHANGE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"RXEXCHANGE_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RXEXCHANGE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RXEXCHANGE_DB_DSN"`
	Driver string `envconfig:"RXEXCHANGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RXEXCHANGE_DB_HOST"`
	LegacyPort     int    `envconfig:"RXEXCHANGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RXEXCHANGE_DB_USER"`
	LegacyPassword string `envconfig:"RXEXCHANGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"RXEXCHANGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"RXEXCHANGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RXEXCHANGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RXEXCHANGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RXEXCHANGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RXEXCHANGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded SQLite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"RXEXCHANGE_REDIS_URL"`
	Address      string        `envconfig:"RXEXCHANGE_REDIS_ADDR"`
	Password     string        `envconfig:"RXEXCHANGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"RXEXCHANGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RXEXCHANGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RXEXCHANGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RXEXCHANGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RXEXCHANGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RXEXCHANGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes how access tokens minted by the identity service are verified.
type JWTConfig struct {
	Secret string `envconfig:"RXEXCHANGE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"RXEXCHANGE_JWT_ISSUER" required:"true"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"RXEXCHANGE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RXEXCHANGE_AUTO_MIGRATE" default:"false"`
}

// OrdersConfig carries the order lifecycle policy knobs.
type OrdersConfig struct {
	PendingTTL            time.Duration `envconfig:"RXEXCHANGE_ORDERS_PENDING_TTL" default:"24h"`
	ReceiptFromShipped    bool          `envconfig:"RXEXCHANGE_ORDERS_RECEIPT_FROM_SHIPPED" default:"false"`
	AllowSupplierCancel   bool          `envconfig:"RXEXCHANGE_ORDERS_ALLOW_SUPPLIER_CANCEL" default:"true"`
	ExpiredCancelReason   string        `envconfig:"RXEXCHANGE_ORDERS_EXPIRED_REASON" default:"Order expired: supplier did not confirm within the allowed time"`
	MaxQuantityPerRequest int           `envconfig:"RXEXCHANGE_ORDERS_MAX_QUANTITY" default:"100000"`
}

func (o OrdersConfig) validate() error {
	if o.PendingTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvOrdersPendingTTL)
	}
	if o.MaxQuantityPerRequest <= 0 {
		return fmt.Errorf("%s must be positive", EnvOrdersMaxQuantity)
	}
	return nil
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"RXEXCHANGE_CRON_INTERVAL" default:"15m"`
	LockTTL             time.Duration `envconfig:"RXEXCHANGE_CRON_LOCK_TTL" default:"14m"`
	ExpirationBatchSize int           `envconfig:"RXEXCHANGE_CRON_EXPIRATION_BATCH_SIZE" default:"200"`
	OutboxRetention     time.Duration `envconfig:"RXEXCHANGE_CRON_OUTBOX_RETENTION" default:"720h"`
	StatusPort          string        `envconfig:"RXEXCHANGE_CRON_STATUS_PORT" default:"9090"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvDBDriver, DBDriverSQLite)
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
