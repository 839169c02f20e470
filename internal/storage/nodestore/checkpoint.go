package nodestore

import (
	"fmt"
	"time"

	"github.com/ugorji/go/codec"

	"github.com/LeJamon/xrplstate/internal/storage/nodestore/compression"
)

var (
	metaKey     = []byte("m")
	entryPrefix = []byte("e")
)

// Checkpoint describes a replay state saved at a closed ledger.
type Checkpoint struct {
	LedgerIndex uint32
	AccountHash [32]byte
	OutOfOrder  [][32]byte
	// Codec names the entry codec the blobs were written with.
	Codec   string
	Entries int
	SavedAt time.Time
}

type checkpointRecord struct {
	LedgerIndex uint32   `codec:"ledger_index"`
	AccountHash []byte   `codec:"account_hash"`
	OutOfOrder  [][]byte `codec:"out_of_order"`
	Codec       string   `codec:"codec"`
	Entries     int      `codec:"entries"`
	SavedAt     int64    `codec:"saved_at"`
}

// LeafSource enumerates serialized state entries.
type LeafSource interface {
	ForEachLeaf(fn func(index [32]byte, blob []byte) bool) error
}

// Store keeps the latest checkpoint in a backend. Entry blobs are
// compressed; metadata is msgpack.
type Store struct {
	backend    Backend
	compressor compression.Compressor
	handle     *codec.MsgpackHandle
}

// Open creates and opens the configured backend.
func Open(cfg *Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	compressor, err := compression.Get(cfg.Compressor)
	if err != nil {
		return nil, err
	}
	backend, err := CreateBackend(cfg.Backend, cfg)
	if err != nil {
		return nil, err
	}
	if err := backend.Open(cfg.CreateIfMissing); err != nil {
		return nil, err
	}
	return NewStore(backend, compressor), nil
}

// NewStore wraps an open backend.
func NewStore(backend Backend, compressor compression.Compressor) *Store {
	h := &codec.MsgpackHandle{}
	h.Canonical = true
	return &Store{backend: backend, compressor: compressor, handle: h}
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func entryKey(index [32]byte) []byte {
	return append(append(make([]byte, 0, 33), entryPrefix...), index[:]...)
}

// SaveCheckpoint replaces the stored checkpoint with cp and the entries
// from leaves, in one atomic write.
func (s *Store) SaveCheckpoint(cp Checkpoint, leaves LeafSource) error {
	var batch Batch
	err := s.backend.Iterate(entryPrefix, func(key, _ []byte) bool {
		batch.Delete(append([]byte(nil), key...))
		return true
	})
	if err != nil {
		return fmt.Errorf("listing previous checkpoint: %w", err)
	}

	count := 0
	var compressErr error
	err = leaves.ForEachLeaf(func(index [32]byte, blob []byte) bool {
		packed, err := s.compressor.Compress(blob)
		if err != nil {
			compressErr = fmt.Errorf("compressing %X: %w", index, err)
			return false
		}
		batch.Put(entryKey(index), packed)
		count++
		return true
	})
	if err != nil {
		return fmt.Errorf("reading state: %w", err)
	}
	if compressErr != nil {
		return compressErr
	}

	rec := checkpointRecord{
		LedgerIndex: cp.LedgerIndex,
		AccountHash: append([]byte(nil), cp.AccountHash[:]...),
		Codec:       cp.Codec,
		Entries:     count,
		SavedAt:     cp.SavedAt.Unix(),
	}
	if cp.SavedAt.IsZero() {
		rec.SavedAt = time.Now().Unix()
	}
	for _, dir := range cp.OutOfOrder {
		rec.OutOfOrder = append(rec.OutOfOrder, append([]byte(nil), dir[:]...))
	}

	var meta []byte
	if err := codec.NewEncoderBytes(&meta, s.handle).Encode(rec); err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	batch.Put(metaKey, meta)

	return s.backend.Write(&batch)
}

// LatestCheckpoint returns the stored checkpoint's description.
func (s *Store) LatestCheckpoint() (*Checkpoint, error) {
	raw, err := s.backend.Get(metaKey)
	if IsNotFound(err) {
		return nil, ErrNoCheckpoint
	}
	if err != nil {
		return nil, err
	}

	var rec checkpointRecord
	if err := codec.NewDecoderBytes(raw, s.handle).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: checkpoint metadata: %v", ErrDataCorrupt, err)
	}
	if len(rec.AccountHash) != 32 {
		return nil, fmt.Errorf("%w: account hash length %d", ErrDataCorrupt, len(rec.AccountHash))
	}

	cp := &Checkpoint{
		LedgerIndex: rec.LedgerIndex,
		Codec:       rec.Codec,
		Entries:     rec.Entries,
		SavedAt:     time.Unix(rec.SavedAt, 0),
	}
	copy(cp.AccountHash[:], rec.AccountHash)
	for _, dir := range rec.OutOfOrder {
		if len(dir) != 32 {
			return nil, fmt.Errorf("%w: directory index length %d", ErrDataCorrupt, len(dir))
		}
		var d [32]byte
		copy(d[:], dir)
		cp.OutOfOrder = append(cp.OutOfOrder, d)
	}
	return cp, nil
}

// LoadCheckpoint feeds every stored entry to load and returns the
// checkpoint. codecName, when set, must match the codec recorded at save.
func (s *Store) LoadCheckpoint(codecName string, load func(index [32]byte, blob []byte) error) (*Checkpoint, error) {
	cp, err := s.LatestCheckpoint()
	if err != nil {
		return nil, err
	}
	if codecName != "" && cp.Codec != codecName {
		return nil, fmt.Errorf("%w: stored %q, want %q", ErrCodecMismatch, cp.Codec, codecName)
	}

	count := 0
	var loadErr error
	err = s.backend.Iterate(entryPrefix, func(key, value []byte) bool {
		if len(key) != 33 {
			loadErr = fmt.Errorf("%w: key length %d", ErrDataCorrupt, len(key))
			return false
		}
		var index [32]byte
		copy(index[:], key[1:])
		blob, err := s.compressor.Decompress(value)
		if err != nil {
			loadErr = fmt.Errorf("%w: entry %X: %v", ErrDataCorrupt, index, err)
			return false
		}
		if err := load(index, blob); err != nil {
			loadErr = err
			return false
		}
		count++
		return true
	})
	if err != nil {
		return nil, err
	}
	if loadErr != nil {
		return nil, loadErr
	}
	if count != cp.Entries {
		return nil, fmt.Errorf("%w: checkpoint lists %d entries, found %d", ErrDataCorrupt, cp.Entries, count)
	}
	return cp, nil
}
