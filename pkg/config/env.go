package config

const EnvPrefix = "RXEXCHANGE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "RXEXCHANGE_APP_ENV"
	EnvPort     = "RXEXCHANGE_APP_PORT"
	EnvLogLevel = "RXEXCHANGE_LOG_LEVEL"

	EnvDBDSN    = "RXEXCHANGE_DB_DSN"
	EnvDBDriver = "RXEXCHANGE_DB_DRIVER"
	EnvDBHost   = "RXEXCHANGE_DB_HOST"
	EnvDBPort   = "RXEXCHANGE_DB_PORT"
	EnvDBUser   = "RXEXCHANGE_DB_USER"
	EnvDBPass   = "RXEXCHANGE_DB_PASSWORD"
	EnvDBName   = "RXEXCHANGE_DB_NAME"

	EnvRedisURL = "RXEXCHANGE_REDIS_URL"

	EnvJWTSecret = "RXEXCHANGE_JWT_SECRET"
	EnvJWTIssuer = "RXEXCHANGE_JWT_ISSUER"

	EnvOrdersPendingTTL          = "RXEXCHANGE_ORDERS_PENDING_TTL"
	EnvOrdersReceiptFromShipped  = "RXEXCHANGE_ORDERS_RECEIPT_FROM_SHIPPED"
	EnvOrdersAllowSupplierCancel = "RXEXCHANGE_ORDERS_ALLOW_SUPPLIER_CANCEL"
	EnvOrdersMaxQuantity         = "RXEXCHANGE_ORDERS_MAX_QUANTITY"

	EnvCronInterval            = "RXEXCHANGE_CRON_INTERVAL"
	EnvCronExpirationBatchSize = "RXEXCHANGE_CRON_EXPIRATION_BATCH_SIZE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
