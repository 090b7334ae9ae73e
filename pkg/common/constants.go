package common

const (
	RedisStreamComplianceAlert = "compliance.alert.created"
	RedisKeyIngestCycleLock    = "ingest:cycle-lock"

	ServiceName = "clearinghouse-api"
)
