package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
	"github.com/LeJamon/xrplstate/internal/core/ledger/state"
	"github.com/LeJamon/xrplstate/internal/feed"
	"github.com/LeJamon/xrplstate/internal/grpc"
	"github.com/LeJamon/xrplstate/internal/log"
	"github.com/LeJamon/xrplstate/internal/service"
	"github.com/LeJamon/xrplstate/internal/storage/audit"
	"github.com/LeJamon/xrplstate/internal/storage/nodestore"
)

// sinks holds the sinks a replay command reports to.
type sinks struct {
	checkpoints *nodestore.Store
	audit       *audit.Store
	health      *grpc.Server
}

func newStateMap() (*state.Map, error) {
	return state.New(state.Config{
		Codec:     entry.NewXRPLCodec(),
		CacheSize: cfg.Cache.Size,
	})
}

// openSinks opens the node database, the audit log and the health server
// as configured. withCheckpoints is false for one-shot fixture replays.
func openSinks(withCheckpoints bool) (*sinks, error) {
	rt := &sinks{}
	if withCheckpoints {
		ncfg := nodestore.DefaultConfig()
		ncfg.ApplyOptions(
			nodestore.WithBackend(cfg.NodeDB.Type),
			nodestore.WithPath(cfg.NodeDB.Path),
			nodestore.WithCompression(cfg.NodeDB.GetCompression()),
		)
		store, err := nodestore.Open(ncfg)
		if err != nil {
			return nil, fmt.Errorf("opening node db: %w", err)
		}
		rt.checkpoints = store
	}

	if cfg.Audit.IsEnabled() {
		store, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("opening audit log: %w", err)
		}
		rt.audit = store
	}

	if cfg.GRPC.IsEnabled() {
		gcfg := grpc.DefaultServerConfig()
		gcfg.Address = cfg.GRPC.Address
		srv, err := grpc.NewServer(gcfg)
		if err != nil {
			rt.Close()
			return nil, err
		}
		if err := srv.StartAsync(); err != nil {
			rt.Close()
			return nil, fmt.Errorf("starting health server: %w", err)
		}
		rt.health = srv
	}
	return rt, nil
}

// options returns the replayer options for the open sinks.
func (rt *sinks) options() []service.Option {
	opts := []service.Option{service.WithDirectoryThreading(cfg.DirectoryThreadingLedger)}
	if rt.checkpoints != nil {
		opts = append(opts, service.WithCheckpoints(rt.checkpoints, cfg.CheckpointInterval))
	}
	if rt.audit != nil {
		opts = append(opts, service.WithAudit(rt.audit))
	}
	if rt.health != nil {
		opts = append(opts, service.WithHealth(rt.health))
	}
	return opts
}

// resume seeds m from the stored checkpoint, if there is one.
func (rt *sinks) resume(m *state.Map) (*service.Seed, error) {
	if rt.checkpoints == nil {
		return nil, nodestore.ErrNoCheckpoint
	}
	return service.SeedFromCheckpoint(rt.checkpoints, m)
}

func (rt *sinks) Close() {
	if rt.health != nil {
		rt.health.Stop()
	}
	if rt.audit != nil {
		if err := rt.audit.Close(); err != nil {
			log.Warn("Closing audit log", "err", err)
		}
	}
	if rt.checkpoints != nil {
		if err := rt.checkpoints.Close(); err != nil {
			log.Warn("Closing node db", "err", err)
		}
	}
}

// runReplay runs src to completion and prints the outcome.
func runReplay(ctx context.Context, m *state.Map, seed *service.Seed, src feed.Source, rt *sinks) error {
	start := time.Now()
	r := service.NewReplayer(m, seed, rt.options()...)
	summary, err := r.Run(ctx, src)
	printSummary(seed, summary, time.Since(start), err)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printSummary(seed *service.Seed, s service.Summary, elapsed time.Duration, err error) {
	fmt.Println()
	fmt.Println("================================================================================")
	fmt.Println("                              Replay Summary")
	fmt.Println("================================================================================")
	fmt.Printf("Seed ledger:        %d\n", seed.LedgerIndex)
	if s.Ledgers > 0 {
		fmt.Printf("Replayed:           %d -> %d (%d ledgers)\n", s.FirstLedger, s.LastLedger, s.Ledgers)
	} else {
		fmt.Printf("Replayed:           none\n")
	}
	if s.Skipped > 0 {
		fmt.Printf("Skipped:            %d already replayed\n", s.Skipped)
	}
	fmt.Printf("Transactions:       %d\n", s.Stats.Transactions)
	fmt.Printf("Entries:            %d created, %d modified, %d deleted\n", s.Stats.Created, s.Stats.Modified, s.Stats.Deleted)
	fmt.Printf("Cleanup failures:   %d\n", s.Stats.CleanupFailures)
	fmt.Printf("Duration:           %v\n", elapsed.Round(time.Millisecond))
	if s.Ledgers > 0 && elapsed > 0 {
		fmt.Printf("Throughput:         %.1f ledgers/s\n", float64(s.Ledgers)/elapsed.Seconds())
	}

	var div *service.DivergenceError
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		fmt.Println("Result:             PASS")
	case errors.As(err, &div):
		fmt.Println("Result:             FAIL (account hash mismatch)")
		fmt.Printf("  Ledger:           %d\n", div.LedgerIndex)
		fmt.Printf("  Expected:         %s\n", entry.HashHex(div.Expected))
		fmt.Printf("  Got:              %s\n", entry.HashHex(div.Got))
	default:
		fmt.Printf("Result:             ERROR (%v)\n", err)
	}
	fmt.Println("================================================================================")
}
