package config

import "fmt"

// Node store backends.
const (
	BackendPebble  = "pebble"
	BackendLevelDB = "leveldb"
	BackendMemory  = "memory"
)

// NodeDBConfig represents the [node_db] section.
// Configures the store holding state checkpoints.
type NodeDBConfig struct {
	Type        string `toml:"type" mapstructure:"type"`
	Path        string `toml:"path" mapstructure:"path"`
	Compression string `toml:"compression" mapstructure:"compression"`
}

// PostgresConfig represents the [postgres] section.
// Connection settings for the xrpl-state-compare database.
type PostgresConfig struct {
	Host     string `toml:"host" mapstructure:"host"`
	Port     string `toml:"port" mapstructure:"port"`
	Database string `toml:"database" mapstructure:"database"`
	User     string `toml:"user" mapstructure:"user"`
	Password string `toml:"password" mapstructure:"password"`
}

// AuditConfig represents the [audit] section.
type AuditConfig struct {
	// SQLite database path; empty disables the audit log.
	Path string `toml:"path" mapstructure:"path"`
}

// Validate performs validation on the NodeDB configuration
func (n *NodeDBConfig) Validate() error {
	if n.Type == "" {
		return fmt.Errorf("node_db type is required")
	}
	validTypes := []string{BackendPebble, BackendLevelDB, BackendMemory}
	if !contains_slice(validTypes, n.Type) {
		return fmt.Errorf("invalid node_db type: %s (valid options: pebble, leveldb, memory)", n.Type)
	}

	if n.Type != BackendMemory && n.Path == "" {
		return fmt.Errorf("node_db path is required for %s", n.Type)
	}

	if n.Compression != "" && !contains_slice([]string{"lz4", "none"}, n.Compression) {
		return fmt.Errorf("invalid compression: %s (valid options: lz4, none)", n.Compression)
	}

	return nil
}

// GetCompression returns the compressor name with default
func (n *NodeDBConfig) GetCompression() string {
	if n.Compression == "" {
		return "lz4"
	}
	return n.Compression
}

// Validate performs validation on the Postgres configuration
func (p *PostgresConfig) Validate() error {
	if p.Host == "" {
		return fmt.Errorf("postgres host is required")
	}
	if p.Database == "" {
		return fmt.Errorf("postgres database is required")
	}
	if err := validatePortString(p.Port); err != nil {
		return fmt.Errorf("postgres port: %w", err)
	}
	return nil
}

// IsEnabled returns true if the audit log is configured
func (a *AuditConfig) IsEnabled() bool {
	return a.Path != ""
}

// contains_slice checks if a slice contains a specific item
func contains_slice(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
