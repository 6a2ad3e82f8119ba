package main

import (
	"os"
	"strconv"
	"time"
)

// Config holds the connector's environment-derived configuration.
type Config struct {
	HubAddress string
	AuthToken  string

	TenantId            string
	BinarySizeThreshold int64

	TargetBaseURL string

	BodyStoreBackend string
	BodyStoreDir     string
	BlobEndpoint     string
	BlobAccessKey    string
	BlobSecretKey    string
	BlobBucket       string
	BlobUseSSL       bool

	KafkaBrokers string

	ReconnectMinimumDelay time.Duration
	ReconnectMaximumDelay time.Duration

	LogLevel string
}

func loadConfig() *Config {
	return &Config{
		HubAddress: getEnv("RELAY_HUB_ADDRESS", "localhost:9090"),
		AuthToken:  getEnv("RELAY_CONNECTOR_TOKEN", ""),

		TenantId:            getEnv("RELAY_TENANT_ID", ""),
		BinarySizeThreshold: int64(getEnvInt("RELAY_BINARY_SIZE_THRESHOLD", 1<<20)),

		TargetBaseURL: getEnv("RELAY_TARGET_BASE_URL", "http://localhost:3000"),

		BodyStoreBackend: getEnv("RELAY_BODY_STORE_BACKEND", "fs"),
		BodyStoreDir:     getEnv("RELAY_BODY_STORE_DIR", "/var/lib/orbit-relay/bodies"),
		BlobEndpoint:     getEnv("RELAY_BLOB_ENDPOINT", "localhost:9000"),
		BlobAccessKey:    getEnv("RELAY_BLOB_ACCESS_KEY", ""),
		BlobSecretKey:    getEnv("RELAY_BLOB_SECRET_KEY", ""),
		BlobBucket:       getEnv("RELAY_BLOB_BUCKET", "orbit-relay-bodies"),
		BlobUseSSL:       getEnvBool("RELAY_BLOB_USE_SSL", false),

		KafkaBrokers: getEnv("RELAY_KAFKA_BROKERS", "localhost:9092"),

		ReconnectMinimumDelay: time.Duration(getEnvInt("RELAY_RECONNECT_MIN_DELAY_MS", 500)) * time.Millisecond,
		ReconnectMaximumDelay: time.Duration(getEnvInt("RELAY_RECONNECT_MAX_DELAY_MS", 30_000)) * time.Millisecond,

		LogLevel: getEnv("RELAY_LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
