package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. XRPLSTATE_FEED_SOURCE.
const EnvPrefix = "XRPLSTATE"

// LoadConfig loads configuration from multiple sources in priority order:
// 1. Default values
// 2. Configuration file (xrplstate.toml), skipped when paths.Main is empty
// 3. Environment variables (XRPLSTATE_ prefix)
func LoadConfig(paths ConfigPaths) (*Config, error) {
	v := viper.New()

	// 1. Set defaults first
	setDefaults(v)

	// 2. Load main configuration file
	if paths.Main != "" {
		if err := loadMainConfig(v, paths.Main); err != nil {
			return nil, fmt.Errorf("failed to load main config: %w", err)
		}
	}

	// 3. Set up environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Unmarshal into struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.configPath = paths.Main

	// 5. Validate the complete configuration
	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// loadMainConfig loads the main configuration file
func loadMainConfig(v *viper.Viper, configPath string) error {
	v.SetConfigFile(configPath)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	return nil
}

// LoadConfigFromDir loads configuration from a directory containing xrplstate.toml
func LoadConfigFromDir(configDir string) (*Config, error) {
	return LoadConfig(ConfigPathsFromDir(configDir))
}

// ReloadConfig reloads configuration from the same path
func ReloadConfig(existingConfig *Config) (*Config, error) {
	return LoadConfig(ConfigPaths{Main: existingConfig.GetConfigPath()})
}

// SaveExampleConfig saves an example configuration file
func SaveExampleConfig(configPath string) error {
	v := viper.New()
	for key, value := range generateExampleConfig() {
		v.Set(key, value)
	}

	v.SetConfigFile(configPath)
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write example config: %w", err)
	}

	return nil
}

// generateExampleConfig generates example configuration values
func generateExampleConfig() map[string]interface{} {
	return map[string]interface{}{
		"feed.source": SourcePostgres,
		"feed.from":   1000000,
		"feed.to":     1000256,

		"postgres.host":     "localhost",
		"postgres.port":     "5432",
		"postgres.database": "xrpl_state",

		"node_db.type":        BackendPebble,
		"node_db.path":        "/var/lib/xrplstate/checkpoints",
		"node_db.compression": "lz4",

		"audit.path":   "/var/lib/xrplstate/audit.db",
		"grpc.address": "127.0.0.1:50051",

		"log.level": "info",

		"telemetry.enabled":  false,
		"telemetry.endpoint": "localhost:4317",
		"telemetry.protocol": TelemetryGRPC,

		"cache.size":          16384,
		"checkpoint_interval": 256,
	}
}
