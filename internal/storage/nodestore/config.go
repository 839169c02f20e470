package nodestore

import (
	"fmt"

	"github.com/LeJamon/xrplstate/internal/storage/nodestore/compression"
)

// Config configures a backend.
type Config struct {
	Backend    string
	Path       string
	Compressor string

	// InMemory keeps a persistent backend's files in memory.
	InMemory        bool
	CreateIfMissing bool
}

// DefaultConfig returns an in-memory, lz4 compressed configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend:         "memory",
		Compressor:      "lz4",
		CreateIfMissing: true,
	}
}

// Validate checks the configuration against the registered backends and
// compressors.
func (c *Config) Validate() error {
	if !IsBackendAvailable(c.Backend) {
		return fmt.Errorf("%w: unknown backend %q (available: %v)", ErrInvalidConfig, c.Backend, AvailableBackends())
	}
	if _, err := compression.Get(c.Compressor); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Backend != "memory" && !c.InMemory && c.Path == "" {
		return fmt.Errorf("%w: %s backend needs a path", ErrInvalidConfig, c.Backend)
	}
	return nil
}

// Option modifies a Config.
type Option func(*Config)

// WithPath sets the database directory.
func WithPath(path string) Option {
	return func(c *Config) { c.Path = path }
}

// WithBackend selects the backend.
func WithBackend(backend string) Option {
	return func(c *Config) { c.Backend = backend }
}

// WithCompression selects the compressor.
func WithCompression(compressor string) Option {
	return func(c *Config) { c.Compressor = compressor }
}

// WithInMemory keeps the backend's files in memory.
func WithInMemory() Option {
	return func(c *Config) { c.InMemory = true }
}

// ApplyOptions applies options in order.
func (c *Config) ApplyOptions(options ...Option) {
	for _, opt := range options {
		opt(c)
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("nodestore{backend=%s path=%q compressor=%s inMemory=%v}",
		c.Backend, c.Path, c.Compressor, c.InMemory)
}
