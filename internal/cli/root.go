package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeJamon/xrplstate/internal/config"
	"github.com/LeJamon/xrplstate/internal/log"
	"github.com/LeJamon/xrplstate/internal/telemetry"
)

var (
	// Global flags
	configFile string
	debug      bool
	jsonLog    bool

	cfg *config.Config

	shutdownTracing telemetry.Shutdown
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xrplstate",
	Short: "xrplstate - XRPL account state replay",
	Long: `xrplstate rebuilds the XRP Ledger account state tree by replaying the
metadata of validated transactions, and verifies the result against each
ledger's account hash.

State is seeded from an exported fixture, the xrpl-state-compare database,
or a saved checkpoint, and ledgers are fed from the same sources or from a
rippled websocket.`,
	Version:           "0.1.0-dev",
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	flushTracing()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func flushTracing() {
	if shutdownTracing == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(ctx); err != nil {
		log.Warn("Shutting down tracer provider", "err", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable normally suppressed debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "log as JSON")
}

// initConfig loads the configuration and sets up logging and tracing.
func initConfig(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.LoadConfig(config.ConfigPaths{Main: configFile})
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	if err := log.SetLogger(level, cfg.Log.JSON || jsonLog, cfg.Log.Color && !jsonLog); err != nil {
		return err
	}

	shutdownTracing, err = telemetry.Setup(context.Background(), cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	return nil
}
