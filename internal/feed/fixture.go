package feed

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
	"github.com/LeJamon/xrplstate/internal/core/tx/effect"
)

// Fixture file structures matching xrpl-state-compare export format

// StateFixture represents state.json - the state the ledger was built on
type StateFixture struct {
	LedgerIndex uint32       `json:"ledger_index"`
	AccountHash string       `json:"account_hash"`
	Entries     []StateEntry `json:"entries"`
}

// StateEntry represents a single state entry
type StateEntry struct {
	Index string `json:"index"` // 32-byte hex key
	Data  string `json:"data"`  // Binary data as hex
}

// EnvFixture represents env.json - the ledger's context
type EnvFixture struct {
	LedgerIndex uint32 `json:"ledger_index"`
	ParentHash  string `json:"parent_hash"`
	CloseTime   int64  `json:"close_time"`
	TotalCoins  string `json:"total_coins"`
}

// ExpectedFixture represents expected.json - the validated ledger
type ExpectedFixture struct {
	LedgerIndex  uint32            `json:"ledger_index"`
	LedgerHash   string            `json:"ledger_hash"`
	AccountHash  string            `json:"account_hash"`
	Transactions []ExpectedTxEntry `json:"transactions"`
}

// ExpectedTxEntry represents a transaction and its metadata
type ExpectedTxEntry struct {
	Index    int    `json:"index"`
	Hash     string `json:"hash"`
	MetaBlob string `json:"meta_blob"` // Binary metadata as hex
}

// Fixture is one exported ledger together with its pre-state.
type Fixture struct {
	State    StateFixture
	Env      EnvFixture
	Expected ExpectedFixture
}

// LoadFixture reads state.json, env.json and expected.json from dir.
func LoadFixture(dir string) (*Fixture, error) {
	f := &Fixture{}
	if err := loadJSON(filepath.Join(dir, "state.json"), &f.State); err != nil {
		return nil, fmt.Errorf("loading state.json: %w", err)
	}
	if err := loadJSON(filepath.Join(dir, "env.json"), &f.Env); err != nil {
		return nil, fmt.Errorf("loading env.json: %w", err)
	}
	if err := loadJSON(filepath.Join(dir, "expected.json"), &f.Expected); err != nil {
		return nil, fmt.Errorf("loading expected.json: %w", err)
	}
	if f.Expected.LedgerIndex != f.State.LedgerIndex+1 {
		return nil, fmt.Errorf("expected ledger %d does not follow state ledger %d",
			f.Expected.LedgerIndex, f.State.LedgerIndex)
	}
	return f, nil
}

func loadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// PreState decodes the state entries as index/blob pairs.
func (f *Fixture) PreState() ([][32]byte, [][]byte, error) {
	keys := make([][32]byte, len(f.State.Entries))
	blobs := make([][]byte, len(f.State.Entries))
	for i, e := range f.State.Entries {
		key, err := entry.ParseHash(e.Index)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing entry %d key: %w", i, err)
		}
		data, err := hex.DecodeString(e.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing entry %d data: %w", i, err)
		}
		keys[i], blobs[i] = key, data
	}
	return keys, blobs, nil
}

// PreStateHash returns the account hash the pre-state should produce.
func (f *Fixture) PreStateHash() ([32]byte, error) {
	return entry.ParseHash(f.State.AccountHash)
}

// Ledger decodes the expected ledger's metadata into effect batches.
func (f *Fixture) Ledger() (*Ledger, error) {
	l := &Ledger{Index: f.Expected.LedgerIndex}
	var err error
	if l.Hash, err = entry.ParseHash(f.Expected.LedgerHash); err != nil {
		return nil, fmt.Errorf("ledger_hash: %w", err)
	}
	if l.AccountHash, err = entry.ParseHash(f.Expected.AccountHash); err != nil {
		return nil, fmt.Errorf("account_hash: %w", err)
	}
	if l.ParentHash, err = entry.ParseHash(f.Env.ParentHash); err != nil {
		return nil, fmt.Errorf("parent_hash: %w", err)
	}

	for _, tx := range f.Expected.Transactions {
		hash, err := entry.ParseHash(tx.Hash)
		if err != nil {
			return nil, fmt.Errorf("transaction %d hash: %w", tx.Index, err)
		}
		meta, err := effect.DecodeMetaHex(tx.MetaBlob)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.Hash, err)
		}
		l.Transactions = append(l.Transactions, effect.NewBatch(hash, l.Index, meta))
	}
	sort.SliceStable(l.Transactions, func(i, j int) bool {
		return l.Transactions[i].Position < l.Transactions[j].Position
	})
	return l, nil
}
