package config

const (
	EnvPrefix = "ACME"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "ACME_APP_ENV"
	EnvPort     = "ACME_APP_PORT"
	EnvLogLevel = "ACME_LOG_LEVEL"

	EnvDBDSN  = "ACME_DB_DSN"
	EnvDBHost = "ACME_DB_HOST"
	EnvDBUser = "ACME_DB_USER"
	EnvDBName = "ACME_DB_NAME"

	EnvRedisURL = "ACME_REDIS_URL"

	EnvJWTSecret = "ACME_JWT_SECRET"
	EnvJWTIssuer = "ACME_JWT_ISSUER"

	EnvOrdersPendingTTL = "ACME_ORDERS_PENDING_PAYMENT_TTL"

	EnvPaymentsWebhookSecret = "ACME_PAYMENTS_WEBHOOK_SECRET"

	EnvGCPProjectID           = "ACME_GCP_PROJECT_ID"
	EnvPubSubOrderEventsTopic = "ACME_PUBSUB_ORDER_EVENTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
