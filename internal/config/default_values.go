package config

const (
	DefaultAPIBaseURL   = "http://localhost:8000"
	DefaultAPITimeoutMS = 15000

	DefaultAssistantMaxMessageTokens = 2000

	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendValkey = "valkey"
)
