package config

const (
	EnvPrefix = "BOOKSTALL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv          = "BOOKSTALL_APP_ENV"
	EnvPort            = "BOOKSTALL_APP_PORT"
	EnvDBDSN           = "BOOKSTALL_DB_DSN"
	EnvDBHost          = "BOOKSTALL_DB_HOST"
	EnvDBUser          = "BOOKSTALL_DB_USER"
	EnvDBName          = "BOOKSTALL_DB_NAME"
	EnvUseSQLite       = "BOOKSTALL_USE_SQLITE"
	EnvRedisURL        = "BOOKSTALL_REDIS_URL"
	EnvJWTSecret       = "BOOKSTALL_JWT_SECRET"
	EnvJWTIssuer       = "BOOKSTALL_JWT_ISSUER"
	EnvJWTExpMins      = "BOOKSTALL_JWT_EXPIRATION_MINUTES"
	EnvGCPProjectID    = "BOOKSTALL_GCP_PROJECT_ID"
	EnvGCSBucket       = "BOOKSTALL_GCS_BUCKET_NAME"
	EnvPubSubOrders    = "BOOKSTALL_PUBSUB_ORDERS_TOPIC"
	EnvPubSubNotifySub = "BOOKSTALL_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvShippingFee     = "BOOKSTALL_CHECKOUT_SHIPPING_FEE_CENTS"
	EnvPaymentProvider = "BOOKSTALL_PAYMENTS_PROVIDER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
