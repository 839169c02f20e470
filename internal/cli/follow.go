package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LeJamon/xrplstate/internal/feed"
	"github.com/LeJamon/xrplstate/internal/log"
	"github.com/LeJamon/xrplstate/internal/statecompare"
)

var (
	followURL      string
	followBackfill bool
)

var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "Follow validated ledgers from a rippled websocket",
	Long: `Follow resumes the state tree from the stored checkpoint and keeps it
in step with the network by replaying every validated ledger streamed by a
rippled server.

The checkpoint must be recent enough for the stream to continue it. With
--backfill, ledgers between the checkpoint and the stream are first read
from the state-compare database.

The replay stops on the first ledger whose account hash does not match.
Interrupt with Ctrl-C to save a checkpoint and exit.

Example:
    xrplstate follow --url wss://xrplcluster.com
    xrplstate follow --backfill`,
	RunE: runFollow,
}

func init() {
	rootCmd.AddCommand(followCmd)

	followCmd.Flags().StringVar(&followURL, "url", "", "websocket URL (default from [feed] url)")
	followCmd.Flags().BoolVar(&followBackfill, "backfill", false, "read missing ledgers from the state-compare database first")
}

func runFollow(cmd *cobra.Command, args []string) error {
	url := cfg.Feed.URL
	if followURL != "" {
		url = followURL
	}
	if url == "" {
		return fmt.Errorf("a websocket url is required (--url or [feed] url)")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openSinks(true)
	if err != nil {
		return err
	}
	defer rt.Close()

	m, err := newStateMap()
	if err != nil {
		return err
	}
	seed, err := rt.resume(m)
	if err != nil {
		return fmt.Errorf("follow needs a checkpoint (run replay-range first): %w", err)
	}
	log.Info("Resumed from checkpoint", "ledger", seed.LedgerIndex, "entries", m.Len())

	stream := feed.NewStreamClient(url)
	if err := stream.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		log.Info("Stream closed", "server", stream.ServerInfo().String())
	}()

	var src feed.Source = stream
	if followBackfill {
		pg := cfg.Postgres
		if configFile == "" {
			pg = statecompare.ConfigFromEnv()
		}
		client, err := statecompare.NewClient(ctx, pg)
		if err != nil {
			stream.Close()
			return fmt.Errorf("connecting to database: %w", err)
		}
		src = feed.Chain(statecompare.NewRangeSource(client, seed.LedgerIndex+1, 0), stream)
	}
	defer src.Close()

	return runReplay(ctx, m, seed, src, rt)
}
