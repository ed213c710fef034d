package config

const (
	// Startup errors
	ErrLoadConfigFmt      = "Failed to load config: %v"
	ErrInitializeStoreFmt = "Failed to initialize version store: %v"
	ErrLoadDefaultsFmt    = "Failed to load page defaults: %v"

	// Events errors
	ErrConnectRedisFmt = "Failed to connect to redis: %v"
)
