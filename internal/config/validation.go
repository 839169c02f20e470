package config

import "fmt"

// ValidateConfig performs validation on the complete configuration
func ValidateConfig(config *Config) error {
	if err := config.Feed.Validate(); err != nil {
		return fmt.Errorf("feed validation failed: %w", err)
	}

	// Postgres settings only matter when the feed reads from them
	if config.Feed.Source == SourcePostgres {
		if err := config.Postgres.Validate(); err != nil {
			return fmt.Errorf("postgres validation failed: %w", err)
		}
	}

	if err := config.NodeDB.Validate(); err != nil {
		return fmt.Errorf("node_db validation failed: %w", err)
	}

	if err := config.GRPC.Validate(); err != nil {
		return fmt.Errorf("grpc validation failed: %w", err)
	}

	if err := config.Log.Validate(); err != nil {
		return fmt.Errorf("log validation failed: %w", err)
	}

	if err := config.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry validation failed: %w", err)
	}

	if config.Cache.Size < 0 {
		return fmt.Errorf("cache size must be non-negative, got %d", config.Cache.Size)
	}

	return nil
}
