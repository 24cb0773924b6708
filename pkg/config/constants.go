package config

const (
	EnvPrefix = "SOLARSHOP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StorageDiskLocal = "local"
	StorageDiskGCS   = "gcs"

	EnvAppEnv                 = "SOLARSHOP_APP_ENV"
	EnvPort                   = "SOLARSHOP_APP_PORT"
	EnvDBDSN                  = "SOLARSHOP_DB_DSN"
	EnvDBHost                 = "SOLARSHOP_DB_HOST"
	EnvDBUser                 = "SOLARSHOP_DB_USER"
	EnvDBName                 = "SOLARSHOP_DB_NAME"
	EnvDBPassword             = "SOLARSHOP_DB_PASSWORD"
	EnvRedisURL               = "SOLARSHOP_REDIS_URL"
	EnvJWTSecret              = "SOLARSHOP_JWT_SECRET"
	EnvJWTIssuer              = "SOLARSHOP_JWT_ISSUER"
	EnvJWTExpMins             = "SOLARSHOP_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "SOLARSHOP_REFRESH_TOKEN_TTL_MINUTES"
	EnvTaxRate                = "SOLARSHOP_TAX_RATE"
	EnvAdminEmails            = "SOLARSHOP_ADMIN_EMAILS"
	EnvStorageDisk            = "SOLARSHOP_STORAGE_DISK"
	EnvMailHost               = "SOLARSHOP_MAIL_HOST"
	EnvFeatureInstallments    = "SOLARSHOP_FEATURE_INSTALLMENT_PLANS"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
