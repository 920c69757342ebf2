package config

const (
	EnvPrefix = "PARTSTRACK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "PARTSTRACK_APP_ENV"
	EnvPort   = "PARTSTRACK_APP_PORT"

	EnvDBDSN  = "PARTSTRACK_DB_DSN"
	EnvDBHost = "PARTSTRACK_DB_HOST"
	EnvDBUser = "PARTSTRACK_DB_USER"
	EnvDBName = "PARTSTRACK_DB_NAME"

	EnvRedisURL = "PARTSTRACK_REDIS_URL"

	EnvUseSQLite   = "PARTSTRACK_USE_SQLITE"
	EnvAutoMigrate = "PARTSTRACK_AUTO_MIGRATE"

	EnvAllocationTxRetries       = "PARTSTRACK_ALLOCATION_TX_RETRIES"
	EnvAllocationStrictTemplates = "PARTSTRACK_ALLOCATION_STRICT_TEMPLATE_LOCKING"

	EnvGCPProjectID = "PARTSTRACK_GCP_PROJECT_ID"

	EnvPubSubActivityTopic = "PARTSTRACK_PUBSUB_ACTIVITY_TOPIC"
	EnvPubSubActivitySub   = "PARTSTRACK_PUBSUB_ACTIVITY_SUBSCRIPTION"

	EnvCronInterval = "PARTSTRACK_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
