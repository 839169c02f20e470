package state

import (
	"fmt"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
	"github.com/LeJamon/xrplstate/internal/core/ledger/keylet"
)

const skipListSize = 256

// AdvanceHistoricalChain records parentHash, the hash of ledger
// ledgerIndex-1, in the skip lists. Every 256th ledger is also appended to
// the long-term list for its group.
func (m *Map) AdvanceHistoricalChain(ledgerIndex uint32, parentHash [32]byte) error {
	if ledgerIndex == 0 {
		return nil
	}
	prevIndex := ledgerIndex - 1

	if prevIndex&0xff == 0 {
		if err := m.appendSkipHash(keylet.LedgerHashesForSeq(prevIndex), parentHash, prevIndex, false); err != nil {
			return fmt.Errorf("updating every-256th skip list: %w", err)
		}
	}
	if err := m.appendSkipHash(keylet.LedgerHashes(), parentHash, prevIndex, true); err != nil {
		return fmt.Errorf("updating rolling skip list: %w", err)
	}
	return nil
}

func (m *Map) appendSkipHash(k keylet.Keylet, parentHash [32]byte, prevIndex uint32, rolling bool) error {
	e, ok, err := m.GetLeafForMutation(k.Key)
	if err != nil {
		return err
	}
	if !ok {
		created := entry.New(k.Key, entry.TypeLedgerHashes, entry.Fields{
			entry.FieldFlags:         uint32(0),
			entry.FieldHashes:        []string{entry.HashHex(parentHash)},
			entry.FieldLastLedgerSeq: prevIndex,
		})
		return m.InsertLeaf(created)
	}

	hashes, err := skipHashes(e)
	if err != nil {
		return err
	}
	if rolling && len(hashes) >= skipListSize {
		hashes = hashes[len(hashes)-skipListSize+1:]
	}
	e.Set(entry.FieldHashes, append(hashes, entry.HashHex(parentHash)))
	e.Set(entry.FieldLastLedgerSeq, prevIndex)
	return nil
}

func skipHashes(e *entry.Entry) ([]string, error) {
	switch list := e.Fields[entry.FieldHashes].(type) {
	case nil:
		return nil, nil
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, h := range list {
			s, ok := h.(string)
			if !ok {
				return nil, fmt.Errorf("%w: Hashes item %T", entry.ErrInvalidField, h)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: Hashes %T", entry.ErrInvalidField, list)
	}
}
