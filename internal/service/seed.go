package service

import (
	"context"
	"fmt"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
	"github.com/LeJamon/xrplstate/internal/core/ledger/state"
	"github.com/LeJamon/xrplstate/internal/feed"
	"github.com/LeJamon/xrplstate/internal/statecompare"
	"github.com/LeJamon/xrplstate/internal/storage/nodestore"
)

// Seed is the verified starting point of a replay.
type Seed struct {
	LedgerIndex uint32
	AccountHash [32]byte
	// OutOfOrder carries directories flagged before a checkpoint was taken.
	OutOfOrder [][32]byte
}

// SnapshotReader reads exported ledger state.
type SnapshotReader interface {
	GetSnapshot(ctx context.Context, ledgerIndex uint32) (*statecompare.LedgerSnapshot, error)
	GetStateEntries(ctx context.Context, ledgerIndex uint32) ([]statecompare.StateEntry, error)
}

func verifySeed(m *state.Map, want [32]byte) error {
	got, err := m.RootHash()
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: want %s, got %s", ErrSeedMismatch, entry.HashHex(want), entry.HashHex(got))
	}
	return nil
}

// SeedFromFixture loads a fixture's pre-state into m.
func SeedFromFixture(m *state.Map, f *feed.Fixture) (*Seed, error) {
	keys, blobs, err := f.PreState()
	if err != nil {
		return nil, err
	}
	for i := range keys {
		if err := m.Load(keys[i], blobs[i]); err != nil {
			return nil, fmt.Errorf("loading entry %s: %w", entry.HashHex(keys[i]), err)
		}
	}
	want, err := f.PreStateHash()
	if err != nil {
		return nil, fmt.Errorf("state account_hash: %w", err)
	}
	if err := verifySeed(m, want); err != nil {
		return nil, err
	}
	return &Seed{LedgerIndex: f.State.LedgerIndex, AccountHash: want}, nil
}

// SeedFromSnapshot loads the exported state of ledgerIndex into m.
func SeedFromSnapshot(ctx context.Context, m *state.Map, r SnapshotReader, ledgerIndex uint32) (*Seed, error) {
	snapshot, err := r.GetSnapshot(ctx, ledgerIndex)
	if err != nil {
		return nil, err
	}
	entries, err := r.GetStateEntries(ctx, ledgerIndex)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := m.Load(e.Index, e.Data); err != nil {
			return nil, fmt.Errorf("loading entry %s: %w", entry.HashHex(e.Index), err)
		}
	}
	if err := verifySeed(m, snapshot.AccountHash); err != nil {
		return nil, err
	}
	return &Seed{LedgerIndex: ledgerIndex, AccountHash: snapshot.AccountHash}, nil
}

// SeedFromCheckpoint loads the latest checkpoint into m. The checkpoint must
// have been written with m's codec.
func SeedFromCheckpoint(store *nodestore.Store, m *state.Map) (*Seed, error) {
	cp, err := store.LoadCheckpoint(m.Codec().Name(), m.Load)
	if err != nil {
		return nil, err
	}
	if err := verifySeed(m, cp.AccountHash); err != nil {
		return nil, err
	}
	return &Seed{LedgerIndex: cp.LedgerIndex, AccountHash: cp.AccountHash, OutOfOrder: cp.OutOfOrder}, nil
}
