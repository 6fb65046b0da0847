package config

const (
	EnvPrefix = "RENTAL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:carrental.db?_foreign_keys=on"
)

const (
	EnvAppEnv                 = "RENTAL_APP_ENV"
	EnvPort                   = "RENTAL_APP_PORT"
	EnvDBDSN                  = "RENTAL_DB_DSN"
	EnvDBDriver               = "RENTAL_DB_DRIVER"
	EnvDBHost                 = "RENTAL_DB_HOST"
	EnvDBUser                 = "RENTAL_DB_USER"
	EnvDBPassword             = "RENTAL_DB_PASSWORD"
	EnvDBName                 = "RENTAL_DB_NAME"
	EnvRedisURL               = "RENTAL_REDIS_URL"
	EnvJWTSecret              = "RENTAL_JWT_SECRET"
	EnvJWTIssuer              = "RENTAL_JWT_ISSUER"
	EnvJWTExpMins             = "RENTAL_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "RENTAL_REFRESH_TOKEN_TTL_MINUTES"
	EnvCronSchedule           = "RENTAL_CRON_SCHEDULE"
	EnvCronInterval           = "RENTAL_CRON_INTERVAL"
	EnvCORSAllowedOrigins     = "RENTAL_CORS_ALLOWED_ORIGINS"
	EnvGCPProjectID           = "RENTAL_GCP_PROJECT_ID"
	EnvPubSubRentalTopic      = "RENTAL_PUBSUB_RENTAL_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
