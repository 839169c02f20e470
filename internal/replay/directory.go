package replay

import (
	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
)

// LookupResult is the outcome of loading a directory for mutation.
type LookupResult uint8

const (
	LookupFound LookupResult = iota
	LookupNotFound
	LookupMalformed
)

func (r LookupResult) String() string {
	switch r {
	case LookupFound:
		return "found"
	case LookupNotFound:
		return "not-found"
	default:
		return "malformed"
	}
}

// CleanupFailure describes a directory left untouched while deleting an
// entry that it should have listed.
type CleanupFailure struct {
	LedgerIndex uint32
	TxHash      [32]byte
	Entry       [32]byte
	Directory   [32]byte
	Result      LookupResult
	Err         error
}

func (e *Engine) lookupDirectory(index [32]byte) (*entry.Entry, LookupResult, error) {
	dir, ok, err := e.state.GetLeafForMutation(index)
	switch {
	case err != nil:
		return nil, LookupMalformed, err
	case !ok:
		return nil, LookupNotFound, nil
	case dir.Kind() != entry.KindDirectoryNode:
		return nil, LookupMalformed, entry.ErrNotDirectory
	}
	return dir, LookupFound, nil
}

// touchDirectory records a mutation of dir. A second mutation within one
// transaction marks the directory's index order as untrustworthy.
func (e *Engine) touchDirectory(dir [32]byte) {
	if _, ok := e.touched[dir]; ok {
		e.outOfOrder[dir] = struct{}{}
		return
	}
	e.touched[dir] = struct{}{}
}

func (e *Engine) appendToDirectory(dir *entry.Entry, index [32]byte) error {
	e.touchDirectory(dir.Index())
	return dir.AppendIndex(index)
}

func (e *Engine) removeFromDirectory(dir *entry.Entry, index [32]byte, stable bool) error {
	e.touchDirectory(dir.Index())
	var err error
	if stable {
		_, err = dir.RemoveIndexStable(index)
	} else {
		_, err = dir.RemoveIndexUnstable(index)
	}
	return err
}

func (e *Engine) reportCleanup(f CleanupFailure) {
	e.stats.CleanupFailures++
	ctx := []interface{}{
		"ledger", f.LedgerIndex,
		"tx", entry.HashHex(f.TxHash),
		"entry", entry.HashHex(f.Entry),
		"directory", entry.HashHex(f.Directory),
		"result", f.Result.String(),
	}
	if f.Err != nil {
		ctx = append(ctx, "err", f.Err)
	}
	e.log.Debug("Directory cleanup skipped", ctx...)
	if e.observer != nil {
		e.observer(f)
	}
}
