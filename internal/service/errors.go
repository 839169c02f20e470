package service

import (
	"errors"
	"fmt"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
)

var (
	// ErrDiverged is returned when a replayed ledger's state hash differs
	// from the network's account hash.
	ErrDiverged = errors.New("replayed state diverged")
	// ErrLedgerGap is returned when the feed skips a ledger.
	ErrLedgerGap = errors.New("ledger gap in feed")
	// ErrSeedMismatch is returned when seeded state does not hash to the
	// ledger it claims to be.
	ErrSeedMismatch = errors.New("seeded state hash mismatch")
)

// DivergenceError reports the hashes of a ledger that failed verification.
type DivergenceError struct {
	LedgerIndex uint32
	Expected    [32]byte
	Got         [32]byte
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("ledger %d: account hash %s, replayed %s",
		e.LedgerIndex, entry.HashHex(e.Expected), entry.HashHex(e.Got))
}

func (e *DivergenceError) Is(target error) bool { return target == ErrDiverged }
