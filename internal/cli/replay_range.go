package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeJamon/xrplstate/internal/log"
	"github.com/LeJamon/xrplstate/internal/service"
	"github.com/LeJamon/xrplstate/internal/statecompare"
	"github.com/LeJamon/xrplstate/internal/storage/nodestore"
)

var (
	replayRangeFrom   uint32
	replayRangeTo     uint32
	replayRangeResume bool
)

// replayRangeCmd represents the replay-range command
var replayRangeCmd = &cobra.Command{
	Use:   "replay-range",
	Short: "Replay a range of ledgers from the state-compare database",
	Long: `Replay-range seeds the state tree at ledger --from from the
xrpl-state-compare PostgreSQL database, then replays the metadata of every
following ledger up to --to, verifying the account hash after each one.

With --resume, replay continues from the stored checkpoint instead, when
one exists. Without --to, replay stops at the first ledger missing from
the database.

Database settings come from the [postgres] section, or from the
POSTGRES_* environment variables when it is left at its defaults.

Example:
    xrplstate replay-range --from 32750 --to 32800
    xrplstate replay-range --from 32750 --resume`,
	RunE: runReplayRange,
}

func init() {
	rootCmd.AddCommand(replayRangeCmd)

	replayRangeCmd.Flags().Uint32Var(&replayRangeFrom, "from", 0, "Starting ledger index (pre-state)")
	replayRangeCmd.Flags().Uint32Var(&replayRangeTo, "to", 0, "Ending ledger index (last ledger to replay)")
	replayRangeCmd.Flags().BoolVar(&replayRangeResume, "resume", false, "Continue from the stored checkpoint")
}

func runReplayRange(cmd *cobra.Command, args []string) error {
	from, to := cfg.Feed.From, cfg.Feed.To
	if cmd.Flags().Changed("from") {
		from = replayRangeFrom
	}
	if cmd.Flags().Changed("to") {
		to = replayRangeTo
	}
	if from == 0 && !replayRangeResume {
		return fmt.Errorf("--from is required")
	}
	if to != 0 && to <= from {
		return fmt.Errorf("--to (%d) must be after --from (%d)", to, from)
	}
	ctx := commandContext(cmd)

	pg := cfg.Postgres
	if configFile == "" {
		pg = statecompare.ConfigFromEnv()
	}
	client, err := statecompare.NewClient(ctx, pg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer client.Close()
	log.Info("Connected to PostgreSQL", "host", pg.Host, "database", pg.Database)

	if to != 0 {
		valid, missing, err := client.ValidateRange(ctx, from, to)
		if err != nil {
			return fmt.Errorf("validating range: %w", err)
		}
		if !valid {
			return fmt.Errorf("ledger %d not found in database; run 'python main.py sync-range %d %d' first",
				missing, from, to)
		}
	}

	rt, err := openSinks(true)
	if err != nil {
		return err
	}
	defer rt.Close()

	m, err := newStateMap()
	if err != nil {
		return err
	}

	var seed *service.Seed
	if replayRangeResume {
		seed, err = rt.resume(m)
		switch {
		case errors.Is(err, nodestore.ErrNoCheckpoint):
			log.Info("No checkpoint stored, seeding from database", "ledger", from)
		case err != nil:
			return fmt.Errorf("resuming from checkpoint: %w", err)
		default:
			log.Info("Resumed from checkpoint", "ledger", seed.LedgerIndex, "entries", m.Len())
		}
	}
	if seed == nil {
		if from == 0 {
			return fmt.Errorf("no checkpoint to resume from and no --from given")
		}
		if m, err = newStateMap(); err != nil {
			return err
		}
		if seed, err = service.SeedFromSnapshot(ctx, m, client, from); err != nil {
			return fmt.Errorf("loading state at %d: %w", from, err)
		}
		log.Info("Loaded state", "ledger", from, "entries", m.Len())
	}
	if to != 0 && seed.LedgerIndex >= to {
		log.Info("Nothing to replay", "seed", seed.LedgerIndex, "to", to)
		return nil
	}

	src := statecompare.NewRangeSource(client, seed.LedgerIndex+1, to)
	defer src.Close()
	return runReplay(ctx, m, seed, src, rt)
}
