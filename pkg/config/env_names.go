package config

// EnvPrefix scopes every environment variable the module reads.
const EnvPrefix = "LUMEPLAY"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "LUMEPLAY_APP_ENV"
	EnvPort     = "LUMEPLAY_APP_PORT"
	EnvDBDSN    = "LUMEPLAY_DB_DSN"
	EnvDBHost   = "LUMEPLAY_DB_HOST"
	EnvDBUser   = "LUMEPLAY_DB_USER"
	EnvDBName   = "LUMEPLAY_DB_NAME"
	EnvRedisURL = "LUMEPLAY_REDIS_URL"

	EnvGCPProjectID           = "LUMEPLAY_GCP_PROJECT_ID"
	EnvPubSubEventsTopic      = "LUMEPLAY_PUBSUB_EVENTS_TOPIC"
	EnvPubSubEventsSub        = "LUMEPLAY_PUBSUB_EVENTS_SUBSCRIPTION"
	EnvPlatformFeePercent     = "LUMEPLAY_PLATFORM_FEE_PERCENT"
	EnvMinWithdrawal          = "LUMEPLAY_MIN_WITHDRAWAL"
	EnvMercadoPagoAccessToken = "LUMEPLAY_MERCADOPAGO_ACCESS_TOKEN"
	EnvAsaasAPIKey            = "LUMEPLAY_ASAAS_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
