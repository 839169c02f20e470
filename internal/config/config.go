package config

import (
	"fmt"
	"path/filepath"
)

// Config represents the complete xrplstate configuration.
type Config struct {
	Feed     FeedConfig     `toml:"feed" mapstructure:"feed"`
	Postgres PostgresConfig `toml:"postgres" mapstructure:"postgres"`
	NodeDB   NodeDBConfig   `toml:"node_db" mapstructure:"node_db"`
	Audit    AuditConfig    `toml:"audit" mapstructure:"audit"`
	GRPC     GRPCConfig     `toml:"grpc" mapstructure:"grpc"`
	Log      LogConfig      `toml:"log" mapstructure:"log"`
	Cache    CacheConfig    `toml:"cache" mapstructure:"cache"`

	Telemetry TelemetryConfig `toml:"telemetry" mapstructure:"telemetry"`

	// Ledgers between checkpoints; 0 disables checkpointing.
	CheckpointInterval uint32 `toml:"checkpoint_interval" mapstructure:"checkpoint_interval"`

	// First ledger whose directory nodes record PreviousTxnID, i.e. where
	// fixPreviousTxnID took effect. 0 leaves directories unthreaded.
	DirectoryThreadingLedger uint32 `toml:"directory_threading_ledger" mapstructure:"directory_threading_ledger"`

	configPath string `toml:"-" mapstructure:"-"`
}

// Feed sources.
const (
	SourceFixture   = "fixture"
	SourcePostgres  = "postgres"
	SourceWebSocket = "websocket"
)

// FeedConfig represents the [feed] section.
// Selects where validated ledgers come from. An empty source leaves the
// choice to the subcommand.
type FeedConfig struct {
	Source     string `toml:"source" mapstructure:"source"`
	URL        string `toml:"url" mapstructure:"url"`
	FixtureDir string `toml:"fixture_dir" mapstructure:"fixture_dir"`
	From       uint32 `toml:"from" mapstructure:"from"`
	To         uint32 `toml:"to" mapstructure:"to"`
}

// CacheConfig represents the [cache] section.
type CacheConfig struct {
	// Decoded entries kept by the state map.
	Size int `toml:"size" mapstructure:"size"`
}

// ConfigPaths holds the paths to configuration files
type ConfigPaths struct {
	Main string // Path to main config file (xrplstate.toml)
}

// DefaultConfigPaths returns the default configuration file paths
func DefaultConfigPaths() ConfigPaths {
	return ConfigPaths{Main: "xrplstate.toml"}
}

// ConfigPathsFromDir returns configuration paths for a specific directory
func ConfigPathsFromDir(configDir string) ConfigPaths {
	return ConfigPaths{Main: filepath.Join(configDir, "xrplstate.toml")}
}

// GetConfigPath returns the path to the main configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Validate performs validation on the feed configuration
func (f *FeedConfig) Validate() error {
	switch f.Source {
	case "":
		// Chosen by the command line.
	case SourceFixture:
		if f.FixtureDir == "" {
			return fmt.Errorf("fixture_dir is required when source=fixture")
		}
	case SourcePostgres:
		if f.From == 0 {
			return fmt.Errorf("from is required when source=postgres")
		}
		if f.To != 0 && f.To < f.From {
			return fmt.Errorf("to (%d) must not be before from (%d)", f.To, f.From)
		}
	case SourceWebSocket:
		if f.URL == "" {
			return fmt.Errorf("url is required when source=websocket")
		}
	default:
		return fmt.Errorf("invalid feed source: %s (valid options: fixture, postgres, websocket)", f.Source)
	}
	return nil
}

// IsBounded reports whether the feed ends at a known ledger.
func (f *FeedConfig) IsBounded() bool {
	return f.Source != SourceWebSocket && f.To != 0
}
