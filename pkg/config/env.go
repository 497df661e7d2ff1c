package config

// EnvPrefix is passed to envconfig; every field declares its full variable name.
const EnvPrefix = "WHOLESALE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:wholesale.db?cache=shared&_foreign_keys=on"
)

const (
	EnvAppEnv    = "WHOLESALE_APP_ENV"
	EnvPort      = "WHOLESALE_APP_PORT"
	EnvDBDSN     = "WHOLESALE_DB_DSN"
	EnvDBHost    = "WHOLESALE_DB_HOST"
	EnvDBUser    = "WHOLESALE_DB_USER"
	EnvDBName    = "WHOLESALE_DB_NAME"
	EnvUseSQLite = "WHOLESALE_USE_SQLITE"

	EnvRedisURL = "WHOLESALE_REDIS_URL"

	EnvJWTSecret  = "WHOLESALE_JWT_SECRET"
	EnvJWTIssuer  = "WHOLESALE_JWT_ISSUER"
	EnvJWTExpMins = "WHOLESALE_JWT_EXPIRATION_MINUTES"

	EnvGatewayKeyID     = "WHOLESALE_GATEWAY_KEY_ID"
	EnvGatewayKeySecret = "WHOLESALE_GATEWAY_KEY_SECRET"
	EnvGatewayMaxAmount = "WHOLESALE_GATEWAY_MAX_AMOUNT_MINOR"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
