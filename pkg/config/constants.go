package config

const (
	// EnvPrefix is the envconfig prefix shared by every variable.
	EnvPrefix = "ORDERLIFT"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv   = "ORDERLIFT_APP_ENV"
	EnvPort     = "ORDERLIFT_APP_PORT"
	EnvLogLevel = "ORDERLIFT_LOG_LEVEL"

	EnvDBDSN    = "ORDERLIFT_DB_DSN"
	EnvDBHost   = "ORDERLIFT_DB_HOST"
	EnvDBUser   = "ORDERLIFT_DB_USER"
	EnvDBName   = "ORDERLIFT_DB_NAME"
	EnvRedisURL = "ORDERLIFT_REDIS_URL"

	EnvGCPProjectID      = "ORDERLIFT_GCP_PROJECT_ID"
	EnvPubSubDomainTopic = "ORDERLIFT_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubRecalcSub   = "ORDERLIFT_PUBSUB_RECALC_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
