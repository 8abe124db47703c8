package config

const (
	EnvPrefix = "ZOHOSYNC"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "ZOHOSYNC_APP_ENV"
	EnvPort     = "ZOHOSYNC_APP_PORT"
	EnvLogLevel = "ZOHOSYNC_LOG_LEVEL"

	EnvDBDSN  = "ZOHOSYNC_DB_DSN"
	EnvDBHost = "ZOHOSYNC_DB_HOST"
	EnvDBUser = "ZOHOSYNC_DB_USER"
	EnvDBName = "ZOHOSYNC_DB_NAME"

	EnvRedisURL = "ZOHOSYNC_REDIS_URL"

	EnvPubSubSyncTopic = "ZOHOSYNC_PUBSUB_SYNC_TOPIC"

	EnvZohoOrganizationID = "ZOHOSYNC_ZOHO_ORGANIZATION_ID"
	EnvZohoClientID       = "ZOHOSYNC_ZOHO_CLIENT_ID"
	EnvZohoClientSecret   = "ZOHOSYNC_ZOHO_CLIENT_SECRET"
	EnvZohoRefreshToken   = "ZOHOSYNC_ZOHO_REFRESH_TOKEN"

	EnvBaseDelay             = "ZOHOSYNC_BASE_DELAY"
	EnvBatchSize             = "ZOHOSYNC_BATCH_SIZE"
	EnvMaxRetries            = "ZOHOSYNC_MAX_RETRIES"
	EnvRequestsPerSecond     = "ZOHOSYNC_REQUESTS_PER_SECOND"
	EnvBurstSize             = "ZOHOSYNC_BURST_SIZE"
	EnvMaxRecordsPerRun      = "ZOHOSYNC_MAX_RECORDS_PER_RUN"
	EnvMaxConcurrentRequests = "ZOHOSYNC_MAX_CONCURRENT_REQUESTS"
	EnvSlowThreshold         = "ZOHOSYNC_SLOW_THRESHOLD"
	EnvRecoveryTime          = "ZOHOSYNC_RECOVERY_TIME"

	EnvSyncIncremental  = "ZOHOSYNC_SYNC_INCREMENTAL"
	EnvCronSyncInterval = "ZOHOSYNC_CRON_SYNC_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
