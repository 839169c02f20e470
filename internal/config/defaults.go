package config

import "github.com/spf13/viper"

// setDefaults sets all default values
func setDefaults(v *viper.Viper) {
	// Feed defaults
	v.SetDefault("feed.source", "")
	v.SetDefault("feed.url", "wss://xrplcluster.com")
	v.SetDefault("feed.fixture_dir", "")
	v.SetDefault("feed.from", 0)
	v.SetDefault("feed.to", 0)

	// Postgres defaults, matching the xrpl-state-compare tool
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.database", "xrpl_state")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")

	// NodeDB defaults
	v.SetDefault("node_db.type", BackendMemory)
	v.SetDefault("node_db.path", "")
	v.SetDefault("node_db.compression", "lz4")

	v.SetDefault("audit.path", "")
	v.SetDefault("grpc.address", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.color", true)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.protocol", TelemetryGRPC)
	v.SetDefault("telemetry.sample_ratio", 1.0)

	v.SetDefault("cache.size", 16384)
	v.SetDefault("checkpoint_interval", 256)
	v.SetDefault("directory_threading_ledger", 0)
}
