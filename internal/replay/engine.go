// Package replay rebuilds account state by applying each transaction's
// metadata to a state map, ledger by ledger, and checks the result against
// the account hash the network published.
package replay

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/LeJamon/xrplstate/internal/core/ledger/directory"
	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
	"github.com/LeJamon/xrplstate/internal/core/tx/effect"
	"github.com/LeJamon/xrplstate/internal/log"
)

//go:generate mockgen -destination=mocks/mock_state.go -package=mocks github.com/LeJamon/xrplstate/internal/replay StateMap

// StateMap is the authenticated map the engine mutates.
type StateMap interface {
	InsertLeaf(e *entry.Entry) error
	RemoveLeaf(index [32]byte) error
	GetLeafForMutation(index [32]byte) (*entry.Entry, bool, error)
	AdvanceHistoricalChain(ledgerIndex uint32, parentHash [32]byte) error
	RootHash() ([32]byte, error)
}

// Stats counts what the engine has applied since construction.
type Stats struct {
	Ledgers         uint64
	Transactions    uint64
	Created         uint64
	Modified        uint64
	Deleted         uint64
	CleanupFailures uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithCleanupObserver registers fn to be called for every directory that
// could not be cleaned up after a deletion.
func WithCleanupObserver(fn func(CleanupFailure)) Option {
	return func(e *Engine) { e.observer = fn }
}

// WithOutOfOrderDirectories seeds the set of directories whose index order
// is untrustworthy, for engines resumed from a checkpoint.
func WithOutOfOrderDirectories(dirs [][32]byte) Option {
	return func(e *Engine) {
		for _, d := range dirs {
			e.outOfOrder[d] = struct{}{}
		}
	}
}

// WithThreadedDirectories makes directory nodes record the last transaction
// that touched them from ledger onwards, the first ledger under
// fixPreviousTxnID. 0 keeps directories unthreaded.
func WithThreadedDirectories(ledger uint32) Option {
	return func(e *Engine) { e.threadDirsFrom = ledger }
}

// Engine replays transaction effects onto a state map. It is driven by a
// single goroutine: one OnLedgerClose, then that ledger's transactions in
// position order.
type Engine struct {
	state    StateMap
	log      *log.Logger
	observer func(CleanupFailure)

	threadDirsFrom uint32

	ledgerIndex uint32
	accountHash [32]byte
	txCount     uint32

	// touched holds directories mutated by the current transaction.
	touched map[[32]byte]struct{}
	// outOfOrder holds directories mutated more than once by a single
	// transaction, until they are deleted.
	outOfOrder map[[32]byte]struct{}

	aborted error
	stats   Stats
}

// New creates an engine that owns state, positioned at ledgerIndex.
func New(state StateMap, ledgerIndex uint32, opts ...Option) *Engine {
	e := &Engine{
		state:       state,
		log:         log.Root().With("module", "replay"),
		ledgerIndex: ledgerIndex,
		touched:     make(map[[32]byte]struct{}),
		outOfOrder:  make(map[[32]byte]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnLedgerClose starts replay of ledgerIndex. accountHash is the state hash
// the ledger must end with; parentHash is the hash of the previous ledger.
func (e *Engine) OnLedgerClose(ledgerIndex uint32, accountHash, parentHash [32]byte) error {
	e.ledgerIndex = ledgerIndex
	e.accountHash = accountHash
	e.txCount = 0
	e.touched = make(map[[32]byte]struct{})
	e.aborted = nil
	e.stats.Ledgers++

	if err := e.state.AdvanceHistoricalChain(ledgerIndex, parentHash); err != nil {
		e.aborted = fatalf(err, "advance skip lists for ledger %d", ledgerIndex)
		return e.aborted
	}
	return nil
}

// OnTransaction applies one transaction. Its position must equal the
// number of transactions already applied in this ledger. Any error is
// fatal for the ledger; later calls fail with ErrLedgerAborted until the
// next OnLedgerClose.
func (e *Engine) OnTransaction(b *effect.Batch) error {
	if e.aborted != nil {
		return fmt.Errorf("%w: %w", ErrLedgerAborted, e.aborted)
	}
	if b.Position != e.txCount {
		return e.abort(&SequenceError{Expected: e.txCount, Got: b.Position})
	}
	e.txCount++
	e.touched = make(map[[32]byte]struct{})
	e.stats.Transactions++

	for _, rec := range effect.Sort(b.Records) {
		var err error
		switch rec.Action {
		case effect.ActionCreated:
			err = e.applyCreated(b, rec)
		case effect.ActionModified:
			err = e.applyModified(b, rec)
		case effect.ActionDeleted:
			err = e.applyDeleted(b, rec)
		default:
			err = fatalf(fmt.Errorf("unknown action %v", rec.Action), "entry %s", entry.HashHex(rec.Index))
		}
		if err != nil {
			return e.abort(err)
		}
	}
	return nil
}

func (e *Engine) abort(err error) error {
	e.aborted = err
	e.log.Error("Ledger replay aborted", "ledger", e.ledgerIndex, "position", e.txCount, "err", err)
	return err
}

func (e *Engine) applyCreated(b *effect.Batch, rec effect.Record) error {
	le := rec.Entry()
	le.ApplyDefaults()
	if e.threaded(le) {
		le.SetPreviousTxn(b.Hash, b.LedgerSeq)
	}
	if err := e.state.InsertLeaf(le); err != nil {
		return fatalf(err, "insert %s", le)
	}
	e.stats.Created++

	switch le.Kind() {
	case entry.KindOffer, entry.KindTrustLine:
		refs, err := directory.References(le)
		if err != nil {
			return fatalf(err, "link %s", le)
		}
		for _, ref := range refs {
			dir, res, err := e.lookupDirectory(ref)
			if res != LookupFound {
				if err != nil {
					return fatalf(err, "link %s", le)
				}
				return &MissingDirectoryError{Directory: ref, Entry: le.Index(), Result: res}
			}
			if err := e.appendToDirectory(dir, le.Index()); err != nil {
				return fatalf(err, "link %s into %s", le, entry.HashHex(ref))
			}
		}
	}
	return nil
}

// threaded reports whether le records the transaction that last touched it
// in the current ledger.
func (e *Engine) threaded(le *entry.Entry) bool {
	if le.Kind() == entry.KindDirectoryNode {
		return e.threadDirsFrom != 0 && e.ledgerIndex >= e.threadDirsFrom
	}
	return le.IsThreaded()
}

func (e *Engine) applyModified(b *effect.Batch, rec effect.Record) error {
	live, ok, err := e.state.GetLeafForMutation(rec.Index)
	if err != nil {
		return fatalf(err, "load %s", entry.HashHex(rec.Index))
	}
	if !ok {
		return &MissingLeafError{Index: rec.Index, Action: rec.Action}
	}

	final := rec.Entry()
	if e.threaded(final) {
		final.SetPreviousTxn(b.Hash, b.LedgerSeq)
	}
	for name, v := range final.Fields {
		live.Set(name, v)
	}
	e.stats.Modified++
	return nil
}

func (e *Engine) applyDeleted(b *effect.Batch, rec effect.Record) error {
	delete(e.outOfOrder, rec.Index)
	if err := e.state.RemoveLeaf(rec.Index); err != nil {
		return fatalf(err, "remove %s", entry.HashHex(rec.Index))
	}
	e.stats.Deleted++

	le := rec.Entry()
	switch le.Kind() {
	case entry.KindOffer:
		e.unlink(b, le, true)
	case entry.KindTrustLine:
		e.unlink(b, le, false)
	}
	return nil
}

// unlink removes a deleted entry from the directories that list it. Offers
// leave book directories in order; owner directories and trust lines use
// swap removal. Directories that cannot be loaded are skipped.
func (e *Engine) unlink(b *effect.Batch, le *entry.Entry, offer bool) {
	failure := CleanupFailure{LedgerIndex: e.ledgerIndex, TxHash: b.Hash, Entry: le.Index()}

	refs, err := directory.References(le)
	if err != nil {
		failure.Result, failure.Err = LookupMalformed, err
		e.reportCleanup(failure)
		return
	}
	for _, ref := range refs {
		failure.Directory = ref
		dir, res, err := e.lookupDirectory(ref)
		if res != LookupFound {
			failure.Result, failure.Err = res, err
			e.reportCleanup(failure)
			continue
		}
		stable := false
		if offer {
			_, owned := dir.Owner()
			stable = !owned
		}
		if err := e.removeFromDirectory(dir, le.Index(), stable); err != nil {
			failure.Result, failure.Err = LookupMalformed, err
			e.reportCleanup(failure)
		}
	}
}

// IsConsistent reports whether the state hash equals the account hash of
// the last closed ledger.
func (e *Engine) IsConsistent() (bool, error) {
	h, err := e.state.RootHash()
	if err != nil {
		return false, err
	}
	return h == e.accountHash, nil
}

// State returns the map the engine mutates.
func (e *Engine) State() StateMap { return e.state }

// CurrentLedgerIndex returns the ledger being replayed.
func (e *Engine) CurrentLedgerIndex() uint32 { return e.ledgerIndex }

// CurrentAccountHash returns the expected state hash of the current ledger.
func (e *Engine) CurrentAccountHash() [32]byte { return e.accountHash }

// TransactionCount returns how many transactions of the current ledger
// have been applied.
func (e *Engine) TransactionCount() uint32 { return e.txCount }

// Stats returns cumulative counters.
func (e *Engine) Stats() Stats { return e.stats }

// OutOfOrderDirectories returns the directories whose index order is
// untrustworthy, sorted.
func (e *Engine) OutOfOrderDirectories() [][32]byte {
	out := make([][32]byte, 0, len(e.outOfOrder))
	for d := range e.outOfOrder {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
