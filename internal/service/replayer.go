// Package service drives the replay engine from a ledger feed and reports
// each ledger's outcome.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
	"github.com/LeJamon/xrplstate/internal/core/ledger/state"
	"github.com/LeJamon/xrplstate/internal/feed"
	"github.com/LeJamon/xrplstate/internal/log"
	"github.com/LeJamon/xrplstate/internal/replay"
	"github.com/LeJamon/xrplstate/internal/storage/audit"
	"github.com/LeJamon/xrplstate/internal/storage/nodestore"
)

// AuditSink records replay outcomes.
type AuditSink interface {
	RecordLedger(ctx context.Context, a audit.LedgerAudit) error
	RecordCleanupFailure(ctx context.Context, f replay.CleanupFailure) error
}

// CheckpointSink saves verified state.
type CheckpointSink interface {
	SaveCheckpoint(cp nodestore.Checkpoint, leaves nodestore.LeafSource) error
}

// HealthReporter publishes whether the last ledger verified.
type HealthReporter interface {
	SetConsistent(ok bool)
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithAudit records every ledger and cleanup failure to sink.
func WithAudit(sink AuditSink) Option {
	return func(r *Replayer) { r.audit = sink }
}

// WithCheckpoints saves state to sink every interval verified ledgers and
// after the last one. An interval of 0 only saves at the end.
func WithCheckpoints(sink CheckpointSink, interval uint32) Option {
	return func(r *Replayer) {
		r.checkpoints = sink
		r.interval = interval
	}
}

// WithHealth reports consistency to h.
func WithHealth(h HealthReporter) Option {
	return func(r *Replayer) { r.health = h }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Replayer) { r.log = l }
}

// WithTracer sets the tracer used for ledger spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Replayer) { r.tracer = t }
}

// WithBuffer sets how many fetched ledgers may wait for replay.
func WithBuffer(n int) Option {
	return func(r *Replayer) { r.buffer = n }
}

// WithDirectoryThreading threads directory nodes from ledger onwards.
func WithDirectoryThreading(ledger uint32) Option {
	return func(r *Replayer) { r.threadDirsFrom = ledger }
}

// Summary describes a finished run.
type Summary struct {
	FirstLedger uint32
	LastLedger  uint32
	Ledgers     int
	Skipped     int
	Stats       replay.Stats
}

// Replayer applies ledgers from a feed onto a seeded state map.
type Replayer struct {
	state  *state.Map
	engine *replay.Engine
	last   uint32

	audit       AuditSink
	checkpoints CheckpointSink
	interval    uint32
	health      HealthReporter
	log         *log.Logger
	tracer      trace.Tracer
	buffer      int

	threadDirsFrom uint32

	// ctx of the running ledger, for the cleanup observer.
	ctx     context.Context
	summary Summary
}

// NewReplayer creates a replayer that continues from seed. m must already
// hold the seed's state.
func NewReplayer(m *state.Map, seed *Seed, opts ...Option) *Replayer {
	r := &Replayer{
		state:  m,
		last:   seed.LedgerIndex,
		log:    log.Root().With("module", "service"),
		tracer: otel.Tracer("github.com/LeJamon/xrplstate/internal/service"),
		buffer: 4,
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.engine = replay.New(m, seed.LedgerIndex,
		replay.WithLogger(r.log.With("module", "replay")),
		replay.WithCleanupObserver(r.onCleanupFailure),
		replay.WithOutOfOrderDirectories(seed.OutOfOrder),
		replay.WithThreadedDirectories(r.threadDirsFrom),
	)
	return r
}

// Engine returns the replay engine.
func (r *Replayer) Engine() *replay.Engine { return r.engine }

// LastLedger returns the last verified ledger.
func (r *Replayer) LastLedger() uint32 { return r.last }

// Run replays ledgers from src until it is exhausted, ctx ends, or a ledger
// fails. Fetching runs ahead of replay by up to the buffer size.
func (r *Replayer) Run(ctx context.Context, src feed.Source) (Summary, error) {
	g, ctx := errgroup.WithContext(ctx)
	ledgers := make(chan *feed.Ledger, r.buffer)

	g.Go(func() error {
		defer close(ledgers)
		for {
			l, err := src.Next(ctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading feed: %w", err)
			}
			select {
			case ledgers <- l:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		for l := range ledgers {
			if ctx.Err() != nil {
				break
			}
			if err := r.Apply(ctx, l); err != nil {
				return err
			}
		}
		return r.finalCheckpoint()
	})

	err := g.Wait()
	r.summary.Stats = r.engine.Stats()
	return r.summary, err
}

// Apply replays one ledger. Ledgers at or before the last verified one are
// skipped; any other ledger must follow it directly.
func (r *Replayer) Apply(ctx context.Context, l *feed.Ledger) (err error) {
	if l.Index <= r.last {
		r.log.Debug("Skipping replayed ledger", "ledger", l.Index, "last", r.last)
		r.summary.Skipped++
		return nil
	}
	if l.Index != r.last+1 {
		return fmt.Errorf("%w: after %d got %d", ErrLedgerGap, r.last, l.Index)
	}

	ctx, span := r.tracer.Start(ctx, "Replayer.Apply")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("ledger.index", int64(l.Index)),
		attribute.Int("ledger.transactions", len(l.Transactions)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	r.ctx = ctx
	defer func() { r.ctx = context.Background() }()

	start := time.Now()
	before := r.engine.Stats()

	if err := r.engine.OnLedgerClose(l.Index, l.AccountHash, l.ParentHash); err != nil {
		return r.fail(ctx, l, err)
	}
	for _, b := range l.Transactions {
		if err := r.engine.OnTransaction(b); err != nil {
			return r.fail(ctx, l, err)
		}
	}

	got, err := r.state.RootHash()
	if err != nil {
		return r.fail(ctx, l, err)
	}
	consistent := got == l.AccountHash
	after := r.engine.Stats()
	outOfOrder := len(r.engine.OutOfOrderDirectories())

	r.recordLedger(ctx, audit.LedgerAudit{
		LedgerIndex:     l.Index,
		LedgerHash:      l.Hash,
		AccountHash:     l.AccountHash,
		ComputedHash:    got,
		Consistent:      consistent,
		Transactions:    after.Transactions - before.Transactions,
		Created:         after.Created - before.Created,
		Modified:        after.Modified - before.Modified,
		Deleted:         after.Deleted - before.Deleted,
		CleanupFailures: after.CleanupFailures - before.CleanupFailures,
		OutOfOrder:      outOfOrder,
		Duration:        time.Since(start),
	})
	r.setHealth(consistent)
	span.SetAttributes(attribute.Bool("ledger.consistent", consistent))

	if !consistent {
		r.log.Error("Replayed state diverged",
			"ledger", l.Index, "expected", entry.HashHex(l.AccountHash), "got", entry.HashHex(got))
		return &DivergenceError{LedgerIndex: l.Index, Expected: l.AccountHash, Got: got}
	}

	r.log.Info("Ledger replayed",
		"ledger", l.Index,
		"txs", len(l.Transactions),
		"consistent", consistent,
		"out_of_order", outOfOrder,
		"elapsed", time.Since(start).Round(time.Millisecond))

	r.last = l.Index
	if r.summary.FirstLedger == 0 {
		r.summary.FirstLedger = l.Index
	}
	r.summary.LastLedger = l.Index
	r.summary.Ledgers++

	if r.checkpoints != nil && r.interval > 0 && l.Index%r.interval == 0 {
		return r.checkpoint()
	}
	return nil
}

func (r *Replayer) fail(ctx context.Context, l *feed.Ledger, err error) error {
	r.setHealth(false)
	r.log.Error("Ledger replay failed", "ledger", l.Index, "err", err)
	r.recordLedger(ctx, audit.LedgerAudit{
		LedgerIndex: l.Index,
		LedgerHash:  l.Hash,
		AccountHash: l.AccountHash,
	})
	return fmt.Errorf("ledger %d: %w", l.Index, err)
}

func (r *Replayer) recordLedger(ctx context.Context, a audit.LedgerAudit) {
	if r.audit == nil {
		return
	}
	if err := r.audit.RecordLedger(ctx, a); err != nil {
		r.log.Warn("Failed to record ledger audit", "ledger", a.LedgerIndex, "err", err)
	}
}

func (r *Replayer) onCleanupFailure(f replay.CleanupFailure) {
	if r.audit == nil {
		return
	}
	if err := r.audit.RecordCleanupFailure(r.ctx, f); err != nil {
		r.log.Warn("Failed to record cleanup failure", "ledger", f.LedgerIndex, "err", err)
	}
}

func (r *Replayer) setHealth(ok bool) {
	if r.health != nil {
		r.health.SetConsistent(ok)
	}
}

func (r *Replayer) checkpoint() error {
	cp := nodestore.Checkpoint{
		LedgerIndex: r.last,
		AccountHash: r.engine.CurrentAccountHash(),
		OutOfOrder:  r.engine.OutOfOrderDirectories(),
		Codec:       r.state.Codec().Name(),
		SavedAt:     time.Now(),
	}
	if err := r.checkpoints.SaveCheckpoint(cp, r.state); err != nil {
		return fmt.Errorf("saving checkpoint at %d: %w", r.last, err)
	}
	r.log.Info("Checkpoint saved", "ledger", r.last, "entries", r.state.Len())
	return nil
}

func (r *Replayer) finalCheckpoint() error {
	if r.checkpoints == nil || r.summary.Ledgers == 0 {
		return nil
	}
	if r.interval > 0 && r.last%r.interval == 0 {
		return nil
	}
	return r.checkpoint()
}
