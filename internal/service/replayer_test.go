package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
	"github.com/LeJamon/xrplstate/internal/core/ledger/state"
	"github.com/LeJamon/xrplstate/internal/core/tx/effect"
	"github.com/LeJamon/xrplstate/internal/feed"
	"github.com/LeJamon/xrplstate/internal/log"
	"github.com/LeJamon/xrplstate/internal/replay"
	"github.com/LeJamon/xrplstate/internal/storage/audit"
	"github.com/LeJamon/xrplstate/internal/storage/nodestore"
)

const genesisAddress = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"

type fakeAudit struct {
	mu       sync.Mutex
	ledgers  []audit.LedgerAudit
	failures []replay.CleanupFailure
}

func (f *fakeAudit) RecordLedger(_ context.Context, a audit.LedgerAudit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledgers = append(f.ledgers, a)
	return nil
}

func (f *fakeAudit) RecordCleanupFailure(_ context.Context, cf replay.CleanupFailure) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, cf)
	return nil
}

type fakeCheckpoints struct {
	saved []nodestore.Checkpoint
	sizes []int
}

func (f *fakeCheckpoints) SaveCheckpoint(cp nodestore.Checkpoint, leaves nodestore.LeafSource) error {
	n := 0
	if err := leaves.ForEachLeaf(func([32]byte, []byte) bool { n++; return true }); err != nil {
		return err
	}
	f.saved = append(f.saved, cp)
	f.sizes = append(f.sizes, n)
	return nil
}

type fakeHealth struct {
	statuses []bool
}

func (f *fakeHealth) SetConsistent(ok bool) { f.statuses = append(f.statuses, ok) }

type errSource struct{ err error }

func (s errSource) Next(context.Context) (*feed.Ledger, error) { return nil, s.err }
func (s errSource) Close() error                               { return nil }

func feedOf(ledgers ...*feed.Ledger) feed.Source {
	return feed.NewSliceSource(ledgers...)
}

func newMap(t *testing.T) *state.Map {
	t.Helper()
	m, err := state.New(state.Config{Codec: entry.NewMsgpackCodec()})
	require.NoError(t, err)
	return m
}

func key(b ...byte) [32]byte {
	var k [32]byte
	copy(k[:], b)
	return k
}

func escrowFields(amount string) entry.Fields {
	return entry.Fields{
		"Account":     genesisAddress,
		"Destination": genesisAddress,
		"Amount":      amount,
	}
}

// chain builds ledgers against a reference map that mirrors what replay
// should produce, so each ledger carries the correct account hash.
type chain struct {
	t      *testing.T
	ref    *state.Map
	parent [32]byte
}

func newChain(t *testing.T, ref *state.Map) *chain {
	return &chain{t: t, ref: ref, parent: key(0xEE)}
}

// create returns a ledger whose single transaction creates one escrow per
// index.
func (c *chain) create(index uint32, entries ...[32]byte) *feed.Ledger {
	c.t.Helper()
	require.NoError(c.t, c.ref.AdvanceHistoricalChain(index, c.parent))

	if len(entries) == 0 {
		return c.seal(index)
	}
	txHash := key(0x7A, byte(index))
	batch := &effect.Batch{Hash: txHash, LedgerSeq: index}
	for _, idx := range entries {
		batch.Records = append(batch.Records, effect.Record{
			Index:  idx,
			Type:   entry.TypeEscrow,
			Action: effect.ActionCreated,
			Fields: escrowFields("1000"),
		})
		e := entry.New(idx, entry.TypeEscrow, escrowFields("1000"))
		e.ApplyDefaults()
		if e.IsThreaded() {
			e.SetPreviousTxn(txHash, index)
		}
		require.NoError(c.t, c.ref.InsertLeaf(e))
	}
	return c.seal(index, batch)
}

func (c *chain) seal(index uint32, batches ...*effect.Batch) *feed.Ledger {
	c.t.Helper()
	hash, err := c.ref.RootHash()
	require.NoError(c.t, err)
	l := &feed.Ledger{
		Index:        index,
		Hash:         key(0x4C, byte(index)),
		ParentHash:   c.parent,
		AccountHash:  hash,
		Transactions: batches,
	}
	c.parent = l.Hash
	return l
}

func TestRunReplaysLedgers(t *testing.T) {
	m := newMap(t)
	c := newChain(t, newMap(t))
	ledgers := []*feed.Ledger{
		c.create(11, key(1)),
		c.create(12, key(2), key(3)),
		c.create(13),
	}

	sink := &fakeAudit{}
	cps := &fakeCheckpoints{}
	health := &fakeHealth{}
	r := NewReplayer(m, &Seed{LedgerIndex: 10},
		WithAudit(sink),
		WithCheckpoints(cps, 2),
		WithHealth(health),
		WithLogger(log.Discard()),
		WithTracer(noop.NewTracerProvider().Tracer("test")),
		WithBuffer(1),
	)

	summary, err := r.Run(context.Background(), feed.NewSliceSource(ledgers...))
	require.NoError(t, err)

	assert.Equal(t, uint32(11), summary.FirstLedger)
	assert.Equal(t, uint32(13), summary.LastLedger)
	assert.Equal(t, 3, summary.Ledgers)
	assert.Equal(t, uint64(3), summary.Stats.Created)
	assert.Equal(t, uint64(2), summary.Stats.Transactions)
	assert.Equal(t, uint32(13), r.LastLedger())

	require.Len(t, sink.ledgers, 3)
	for i, a := range sink.ledgers {
		assert.True(t, a.Consistent, "ledger %d", a.LedgerIndex)
		assert.Equal(t, ledgers[i].AccountHash, a.ComputedHash)
		assert.Equal(t, ledgers[i].Hash, a.LedgerHash)
	}
	assert.Equal(t, uint64(2), sink.ledgers[1].Created)
	assert.Equal(t, uint64(0), sink.ledgers[2].Transactions)

	assert.Equal(t, []bool{true, true, true}, health.statuses)

	require.Len(t, cps.saved, 2)
	assert.Equal(t, uint32(12), cps.saved[0].LedgerIndex)
	assert.Equal(t, ledgers[1].AccountHash, cps.saved[0].AccountHash)
	assert.Equal(t, uint32(13), cps.saved[1].LedgerIndex)
	assert.Equal(t, "msgpack", cps.saved[1].Codec)
	// Three escrows plus the rolling skip list.
	assert.Equal(t, 4, cps.sizes[1])
}

func TestRunSkipsReplayedLedgers(t *testing.T) {
	c := newChain(t, newMap(t))
	l11 := c.create(11, key(1))

	r := NewReplayer(newMap(t), &Seed{LedgerIndex: 10}, WithLogger(log.Discard()))
	summary, err := r.Run(context.Background(), feed.NewSliceSource(
		&feed.Ledger{Index: 9}, &feed.Ledger{Index: 10}, l11, l11))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Ledgers)
	assert.Equal(t, 3, summary.Skipped)
}

func TestRunStopsOnGap(t *testing.T) {
	c := newChain(t, newMap(t))
	l11 := c.create(11)

	r := NewReplayer(newMap(t), &Seed{LedgerIndex: 10}, WithLogger(log.Discard()))
	_, err := r.Run(context.Background(), feed.NewSliceSource(l11, &feed.Ledger{Index: 13}))
	assert.ErrorIs(t, err, ErrLedgerGap)
	assert.Equal(t, uint32(11), r.LastLedger())
}

func TestRunStopsOnDivergence(t *testing.T) {
	c := newChain(t, newMap(t))
	l11 := c.create(11, key(1))
	want := l11.AccountHash
	l11.AccountHash = key(0xBA, 0xD0)

	sink := &fakeAudit{}
	health := &fakeHealth{}
	cps := &fakeCheckpoints{}
	r := NewReplayer(newMap(t), &Seed{LedgerIndex: 10},
		WithAudit(sink), WithHealth(health), WithCheckpoints(cps, 0), WithLogger(log.Discard()))

	_, err := r.Run(context.Background(), feed.NewSliceSource(l11))
	require.ErrorIs(t, err, ErrDiverged)

	var div *DivergenceError
	require.True(t, errors.As(err, &div))
	assert.Equal(t, uint32(11), div.LedgerIndex)
	assert.Equal(t, l11.AccountHash, div.Expected)
	assert.Equal(t, want, div.Got)

	require.Len(t, sink.ledgers, 1)
	assert.False(t, sink.ledgers[0].Consistent)
	assert.Equal(t, []bool{false}, health.statuses)
	assert.Empty(t, cps.saved)
	assert.Equal(t, uint32(10), r.LastLedger())
}

func TestRunStopsOnFatalError(t *testing.T) {
	c := newChain(t, newMap(t))
	l11 := c.seal(11, &effect.Batch{Hash: key(0x01), LedgerSeq: 11, Position: 1})

	sink := &fakeAudit{}
	health := &fakeHealth{}
	r := NewReplayer(newMap(t), &Seed{LedgerIndex: 10},
		WithAudit(sink), WithHealth(health), WithLogger(log.Discard()))

	_, err := r.Run(context.Background(), feed.NewSliceSource(l11))
	require.Error(t, err)
	assert.ErrorIs(t, err, replay.ErrFatal)

	var seq *replay.SequenceError
	require.True(t, errors.As(err, &seq))
	assert.Equal(t, uint32(0), seq.Expected)
	assert.Equal(t, uint32(1), seq.Got)

	require.Len(t, sink.ledgers, 1)
	assert.False(t, sink.ledgers[0].Consistent)
	assert.Equal(t, []bool{false}, health.statuses)
}

func TestCleanupFailuresAreAudited(t *testing.T) {
	offerIndex := key(0x0F)
	offer := func() *entry.Entry {
		return entry.New(offerIndex, entry.TypeOffer, entry.Fields{
			"Account":       genesisAddress,
			"BookDirectory": entry.HashHex(key(0xB0)),
			"BookNode":      entry.Uint64Hex(0),
			"OwnerNode":     entry.Uint64Hex(0),
			"Flags":         uint32(0),
		})
	}

	m := newMap(t)
	ref := newMap(t)
	require.NoError(t, m.LoadEntry(offer()))
	require.NoError(t, ref.LoadEntry(offer()))
	seedHash, err := m.RootHash()
	require.NoError(t, err)

	c := newChain(t, ref)
	require.NoError(t, ref.AdvanceHistoricalChain(11, c.parent))
	require.NoError(t, ref.RemoveLeaf(offerIndex))
	l11 := c.seal(11, &effect.Batch{
		Hash:      key(0xDE),
		LedgerSeq: 11,
		Records: []effect.Record{{
			Index:  offerIndex,
			Type:   entry.TypeOffer,
			Action: effect.ActionDeleted,
			Fields: offer().Fields,
		}},
	})

	sink := &fakeAudit{}
	r := NewReplayer(m, &Seed{LedgerIndex: 10, AccountHash: seedHash},
		WithAudit(sink), WithLogger(log.Discard()))
	_, err = r.Run(context.Background(), feed.NewSliceSource(l11))
	require.NoError(t, err)

	require.Len(t, sink.failures, 2)
	for _, f := range sink.failures {
		assert.Equal(t, uint32(11), f.LedgerIndex)
		assert.Equal(t, offerIndex, f.Entry)
		assert.Equal(t, replay.LookupNotFound, f.Result)
	}
	require.Len(t, sink.ledgers, 1)
	assert.True(t, sink.ledgers[0].Consistent)
	assert.Equal(t, uint64(2), sink.ledgers[0].CleanupFailures)
	assert.Equal(t, uint64(1), sink.ledgers[0].Deleted)
}

func TestRunFeedError(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewReplayer(newMap(t), &Seed{LedgerIndex: 10}, WithLogger(log.Discard()))
	_, err := r.Run(context.Background(), errSource{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cps := &fakeCheckpoints{}
	r := NewReplayer(newMap(t), &Seed{LedgerIndex: 10},
		WithCheckpoints(cps, 0), WithLogger(log.Discard()))
	_, err := r.Run(ctx, feed.NewSliceSource(&feed.Ledger{Index: 11}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, cps.saved)
}

func TestRunEmptyFeed(t *testing.T) {
	r := NewReplayer(newMap(t), &Seed{LedgerIndex: 10}, WithLogger(log.Discard()))
	summary, err := r.Run(context.Background(), errSource{err: io.EOF})
	require.NoError(t, err)
	assert.Zero(t, summary.Ledgers)
}
