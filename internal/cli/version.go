package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/LeJamon/xrplstate/internal/storage/nodestore"
	"github.com/LeJamon/xrplstate/internal/storage/nodestore/compression"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display version information for xrplstate, the Go version and the available storage backends.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("xrplstate version %s\n", rootCmd.Version)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Printf("Node DB backends: %v\n", nodestore.AvailableBackends())
		fmt.Printf("Compressors: %v\n", compression.Available())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
