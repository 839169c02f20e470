package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xrplstate.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
checkpoint_interval = 128
directory_threading_ledger = 90000000

[feed]
source = "postgres"
from = 1000
to = 1010

[postgres]
host = "db.internal"
database = "state"

[node_db]
type = "pebble"
path = "/tmp/xrplstate/pebble"
compression = "none"

[grpc]
address = "127.0.0.1:50051"

[log]
level = "debug"
json = true

[telemetry]
enabled = true
endpoint = "otel-collector:4318"
protocol = "http"
sample_ratio = 0.25
`)

	config, err := LoadConfig(ConfigPaths{Main: path})
	require.NoError(t, err)

	assert.Equal(t, SourcePostgres, config.Feed.Source)
	assert.Equal(t, uint32(1000), config.Feed.From)
	assert.Equal(t, uint32(1010), config.Feed.To)
	assert.True(t, config.Feed.IsBounded())

	assert.Equal(t, "db.internal", config.Postgres.Host)
	assert.Equal(t, "state", config.Postgres.Database)
	// Unset keys keep their defaults.
	assert.Equal(t, "5432", config.Postgres.Port)
	assert.Equal(t, "postgres", config.Postgres.User)

	assert.Equal(t, BackendPebble, config.NodeDB.Type)
	assert.Equal(t, "none", config.NodeDB.GetCompression())
	assert.True(t, config.GRPC.IsEnabled())
	assert.False(t, config.Audit.IsEnabled())
	assert.Equal(t, "debug", config.Log.Level)
	assert.True(t, config.Log.JSON)
	assert.Equal(t, 16384, config.Cache.Size)
	assert.Equal(t, uint32(128), config.CheckpointInterval)
	assert.Equal(t, uint32(90000000), config.DirectoryThreadingLedger)
	assert.True(t, config.Telemetry.Enabled)
	assert.Equal(t, "otel-collector:4318", config.Telemetry.Endpoint)
	assert.Equal(t, TelemetryHTTP, config.Telemetry.Protocol)
	assert.Equal(t, 0.25, config.Telemetry.SampleRatio)
	assert.Equal(t, path, config.GetConfigPath())
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(ConfigPaths{})
	require.NoError(t, err)

	assert.Empty(t, config.Feed.Source)
	assert.Equal(t, BackendMemory, config.NodeDB.Type)
	assert.Equal(t, "lz4", config.NodeDB.GetCompression())
	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, uint32(256), config.CheckpointInterval)
	assert.False(t, config.GRPC.IsEnabled())
	assert.False(t, config.Telemetry.Enabled)
	assert.Equal(t, TelemetryGRPC, config.Telemetry.Protocol)
	assert.Equal(t, 1.0, config.Telemetry.SampleRatio)
	assert.Zero(t, config.DirectoryThreadingLedger)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("XRPLSTATE_LOG_LEVEL", "warn")
	t.Setenv("XRPLSTATE_CACHE_SIZE", "42")

	config, err := LoadConfig(ConfigPaths{})
	require.NoError(t, err)
	assert.Equal(t, "warn", config.Log.Level)
	assert.Equal(t, 42, config.Cache.Size)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(ConfigPaths{Main: filepath.Join(t.TempDir(), "absent.toml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestConfigValidationErrors(t *testing.T) {
	valid := func() Config {
		return Config{
			NodeDB: NodeDBConfig{Type: BackendMemory},
			Log:    LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "unknown source",
			modify: func(c *Config) { c.Feed.Source = "kafka" },
			errMsg: "invalid feed source",
		},
		{
			name:   "fixture without directory",
			modify: func(c *Config) { c.Feed.Source = SourceFixture },
			errMsg: "fixture_dir is required",
		},
		{
			name:   "websocket without url",
			modify: func(c *Config) { c.Feed.Source = SourceWebSocket },
			errMsg: "url is required",
		},
		{
			name: "postgres range reversed",
			modify: func(c *Config) {
				c.Feed = FeedConfig{Source: SourcePostgres, From: 10, To: 5}
			},
			errMsg: "must not be before",
		},
		{
			name: "postgres bad port",
			modify: func(c *Config) {
				c.Feed = FeedConfig{Source: SourcePostgres, From: 10}
				c.Postgres = PostgresConfig{Host: "h", Database: "d", Port: "x"}
			},
			errMsg: "invalid port number",
		},
		{
			name:   "unknown backend",
			modify: func(c *Config) { c.NodeDB.Type = "NuDB" },
			errMsg: "invalid node_db type",
		},
		{
			name:   "pebble without path",
			modify: func(c *Config) { c.NodeDB.Type = BackendPebble },
			errMsg: "path is required",
		},
		{
			name:   "unknown compression",
			modify: func(c *Config) { c.NodeDB.Compression = "zstd" },
			errMsg: "invalid compression",
		},
		{
			name:   "grpc address without port",
			modify: func(c *Config) { c.GRPC.Address = "localhost" },
			errMsg: "invalid address format",
		},
		{
			name:   "bad log level",
			modify: func(c *Config) { c.Log.Level = "loud" },
			errMsg: "invalid log level",
		},
		{
			name: "telemetry without endpoint",
			modify: func(c *Config) {
				c.Telemetry = TelemetryConfig{Enabled: true, Protocol: TelemetryGRPC}
			},
			errMsg: "endpoint is required",
		},
		{
			name: "telemetry unknown protocol",
			modify: func(c *Config) {
				c.Telemetry = TelemetryConfig{Enabled: true, Endpoint: "localhost:4317", Protocol: "zipkin"}
			},
			errMsg: "invalid protocol",
		},
		{
			name: "telemetry sample ratio",
			modify: func(c *Config) {
				c.Telemetry = TelemetryConfig{Enabled: true, Endpoint: "localhost:4317", Protocol: TelemetryGRPC, SampleRatio: 2}
			},
			errMsg: "sample_ratio",
		},
		{
			name:   "negative cache",
			modify: func(c *Config) { c.Cache.Size = -1 },
			errMsg: "cache size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			require.NoError(t, ValidateConfig(&config))
			tt.modify(&config)
			err := ValidateConfig(&config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveExampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.toml")
	require.NoError(t, SaveExampleConfig(path))

	config, err := LoadConfig(ConfigPaths{Main: path})
	require.NoError(t, err)
	assert.Equal(t, SourcePostgres, config.Feed.Source)
	assert.Equal(t, BackendPebble, config.NodeDB.Type)
}
