package config

// EnvPrefix is handed to envconfig; every key below is also set as the
// explicit tag so either spelling resolves.
const EnvPrefix = "GIGBRIDGE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "GIGBRIDGE_APP_ENV"
	EnvPort     = "GIGBRIDGE_APP_PORT"
	EnvLogLevel = "GIGBRIDGE_LOG_LEVEL"

	EnvDBDSN  = "GIGBRIDGE_DB_DSN"
	EnvDBHost = "GIGBRIDGE_DB_HOST"
	EnvDBPort = "GIGBRIDGE_DB_PORT"
	EnvDBUser = "GIGBRIDGE_DB_USER"
	EnvDBPass = "GIGBRIDGE_DB_PASSWORD"
	EnvDBName = "GIGBRIDGE_DB_NAME"

	EnvRedisURL = "GIGBRIDGE_REDIS_URL"

	EnvJWTSecret = "GIGBRIDGE_JWT_SECRET"
	EnvJWTIssuer = "GIGBRIDGE_JWT_ISSUER"

	EnvGCPProjectID = "GIGBRIDGE_GCP_PROJECT_ID"

	EnvPubSubEngagementsTopic = "GIGBRIDGE_PUBSUB_ENGAGEMENTS_TOPIC"
	EnvPubSubNotificationSub  = "GIGBRIDGE_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvStorageEndpoint  = "GIGBRIDGE_STORAGE_ENDPOINT"
	EnvStorageAccessKey = "GIGBRIDGE_STORAGE_ACCESS_KEY"
	EnvStorageSecretKey = "GIGBRIDGE_STORAGE_SECRET_KEY"
	EnvStorageBucket    = "GIGBRIDGE_STORAGE_BUCKET"

	EnvSettlementTimeout = "GIGBRIDGE_SETTLEMENT_TIMEOUT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
