package main

import (
	"os"
	"strconv"
	"time"
)

// Config holds the relay server's environment-derived configuration.
// Grounded on services/bifrost/cmd/bifrost/main.go's loadConfig/getEnv
// shape.
type Config struct {
	HTTPPort    int
	GRPCPort    int
	MetricsPort int

	OriginId string

	TenantConfigPath string

	BodyStoreBackend  string // "fs" or "blob"
	BodyStoreDir      string
	BlobEndpoint      string
	BlobAccessKey     string
	BlobSecretKey     string
	BlobBucket        string
	BlobUseSSL        bool

	KafkaBrokers string

	ConnectorAuthSecret string

	MemorySpoolLimitBytes    int64
	DefaultRequestExpiration time.Duration

	LogLevel string
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:    getEnvInt("RELAY_HTTP_PORT", 8080),
		GRPCPort:    getEnvInt("RELAY_GRPC_PORT", 9090),
		MetricsPort: getEnvInt("RELAY_METRICS_PORT", 9100),

		OriginId: getEnv("RELAY_ORIGIN_ID", "relay-server-1"),

		TenantConfigPath: getEnv("RELAY_TENANT_CONFIG_PATH", ""),

		BodyStoreBackend: getEnv("RELAY_BODY_STORE_BACKEND", "fs"),
		BodyStoreDir:     getEnv("RELAY_BODY_STORE_DIR", "/var/lib/orbit-relay/bodies"),
		BlobEndpoint:     getEnv("RELAY_BLOB_ENDPOINT", "localhost:9000"),
		BlobAccessKey:    getEnv("RELAY_BLOB_ACCESS_KEY", ""),
		BlobSecretKey:    getEnv("RELAY_BLOB_SECRET_KEY", ""),
		BlobBucket:       getEnv("RELAY_BLOB_BUCKET", "orbit-relay-bodies"),
		BlobUseSSL:       getEnvBool("RELAY_BLOB_USE_SSL", false),

		KafkaBrokers: getEnv("RELAY_KAFKA_BROKERS", "localhost:9092"),

		ConnectorAuthSecret: getEnv("RELAY_CONNECTOR_AUTH_SECRET", ""),

		MemorySpoolLimitBytes:    int64(getEnvInt("RELAY_MEMORY_SPOOL_LIMIT_BYTES", 4<<20)),
		DefaultRequestExpiration: time.Duration(getEnvInt("RELAY_DEFAULT_REQUEST_EXPIRATION_MS", 30_000)) * time.Millisecond,

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
