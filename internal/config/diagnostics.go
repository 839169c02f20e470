package config

import (
	"fmt"
	"strconv"
	"strings"
)

// LogConfig represents the [log] section
type LogConfig struct {
	Level string `toml:"level" mapstructure:"level"`
	JSON  bool   `toml:"json" mapstructure:"json"`
	Color bool   `toml:"color" mapstructure:"color"`
}

// GRPCConfig represents the [grpc] section
// Address of the health service; empty disables it.
type GRPCConfig struct {
	Address string `toml:"address" mapstructure:"address"`
}

// Telemetry export protocols.
const (
	TelemetryGRPC = "grpc"
	TelemetryHTTP = "http"
)

// TelemetryConfig represents the [telemetry] section. Spans are exported
// over OTLP when enabled.
type TelemetryConfig struct {
	Enabled     bool    `toml:"enabled" mapstructure:"enabled"`
	Endpoint    string  `toml:"endpoint" mapstructure:"endpoint"` // e.g. localhost:4317
	Protocol    string  `toml:"protocol" mapstructure:"protocol"`
	SampleRatio float64 `toml:"sample_ratio" mapstructure:"sample_ratio"`
}

// Validate performs validation on the telemetry configuration
func (t *TelemetryConfig) Validate() error {
	if !t.Enabled {
		return nil
	}
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint is required when telemetry is enabled")
	}
	switch strings.ToLower(t.Protocol) {
	case TelemetryGRPC, TelemetryHTTP:
	default:
		return fmt.Errorf("invalid protocol: %s (valid options: grpc, http)", t.Protocol)
	}
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		return fmt.Errorf("sample_ratio must be between 0 and 1, got %v", t.SampleRatio)
	}
	return nil
}

// Validate performs validation on the log configuration
func (l *LogConfig) Validate() error {
	valid := []string{"trace", "debug", "info", "warn", "warning", "error", "fatal", "panic"}
	if !contains_slice(valid, strings.ToLower(l.Level)) {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}
	return nil
}

// Validate performs validation on the gRPC configuration
func (g *GRPCConfig) Validate() error {
	if g.Address == "" {
		return nil
	}
	if !isValidAddressPort(g.Address) {
		return fmt.Errorf("invalid address format: %s (expected format: IP:port)", g.Address)
	}
	return nil
}

// IsEnabled returns true if the health service should be started
func (g *GRPCConfig) IsEnabled() bool {
	return g.Address != ""
}

// isValidAddressPort validates an address:port string
func isValidAddressPort(addr string) bool {
	lastColon := strings.LastIndexByte(addr, ':')
	if lastColon == -1 {
		return false
	}
	return validatePortString(addr[lastColon+1:]) == nil
}

// validatePortString validates a numeric port
func validatePortString(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}
