package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeJamon/xrplstate/internal/config"
	"github.com/LeJamon/xrplstate/internal/feed"
	"github.com/LeJamon/xrplstate/internal/service"
)

var replayCmd = &cobra.Command{
	Use:   "replay [fixture-dir]",
	Short: "Replay one exported ledger from a fixture directory",
	Long: `Replay loads a fixture exported by xrpl-state-compare and replays the
metadata of its ledger onto the pre-state.

The fixture directory must contain:
- state.json:    pre-state at ledger N
- env.json:      header context of ledger N+1
- expected.json: validated ledger N+1 with transaction metadata

The replayed state tree must hash to the account_hash of ledger N+1.

Example:
    xrplstate replay ./fixtures/32751
    xrplstate replay --conf xrplstate.toml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFixtureReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runFixtureReplay(cmd *cobra.Command, args []string) error {
	dir := cfg.Feed.FixtureDir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		return fmt.Errorf("fixture directory is required (argument or [feed] fixture_dir)")
	}
	cfg.Feed.Source = config.SourceFixture

	fmt.Printf("Loading fixture from %s...\n", dir)
	fixture, err := feed.LoadFixture(dir)
	if err != nil {
		return err
	}
	ledger, err := fixture.Ledger()
	if err != nil {
		return fmt.Errorf("decoding ledger %d: %w", fixture.Expected.LedgerIndex, err)
	}

	m, err := newStateMap()
	if err != nil {
		return err
	}
	seed, err := service.SeedFromFixture(m, fixture)
	if err != nil {
		return fmt.Errorf("loading pre-state: %w", err)
	}
	fmt.Printf("Loaded %d state entries at ledger %d\n", m.Len(), seed.LedgerIndex)
	fmt.Printf("Replaying ledger %d (%d transactions)\n", ledger.Index, len(ledger.Transactions))

	rt, err := openSinks(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	return runReplay(commandContext(cmd), m, seed, feed.NewSliceSource(ledger), rt)
}

// commandContext returns cmd's context, or a background one when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
