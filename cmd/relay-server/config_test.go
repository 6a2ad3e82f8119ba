package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := loadConfig()

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9090, cfg.GRPCPort)
	assert.Equal(t, "relay-server-1", cfg.OriginId)
	assert.Equal(t, "fs", cfg.BodyStoreBackend)
	assert.False(t, cfg.BlobUseSSL)
	assert.Equal(t, 30*time.Second, cfg.DefaultRequestExpiration)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("RELAY_HTTP_PORT", "9999")
	t.Setenv("RELAY_ORIGIN_ID", "edge-west")
	t.Setenv("RELAY_BLOB_USE_SSL", "true")
	t.Setenv("RELAY_DEFAULT_REQUEST_EXPIRATION_MS", "5000")

	cfg := loadConfig()

	assert.Equal(t, 9999, cfg.HTTPPort)
	assert.Equal(t, "edge-west", cfg.OriginId)
	assert.True(t, cfg.BlobUseSSL)
	assert.Equal(t, 5*time.Second, cfg.DefaultRequestExpiration)
}

func TestGetEnvInt_FallsBackOnInvalidValue(t *testing.T) {
	t.Setenv("RELAY_HTTP_PORT", "not-a-number")
	assert.Equal(t, 8080, getEnvInt("RELAY_HTTP_PORT", 8080))
}

func TestGetEnvBool_FallsBackOnInvalidValue(t *testing.T) {
	t.Setenv("RELAY_BLOB_USE_SSL", "not-a-bool")
	assert.False(t, getEnvBool("RELAY_BLOB_USE_SSL", false))
}

func TestAuthKeyBytes_ReturnsSecretAsBytes(t *testing.T) {
	cfg := &Config{ConnectorAuthSecret: "s3cr3t"}
	assert.Equal(t, []byte("s3cr3t"), authKeyBytes(cfg))
}
