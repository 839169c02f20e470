package nodestore

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
	"github.com/LeJamon/xrplstate/internal/core/ledger/state"
	"github.com/LeJamon/xrplstate/internal/storage/nodestore/compression"
)

func openBackend(t *testing.T, name string) Backend {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ApplyOptions(WithBackend(name), WithInMemory())
	require.NoError(t, cfg.Validate())

	b, err := CreateBackend(name, cfg)
	require.NoError(t, err)
	require.NoError(t, b.Open(true))
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBackends(t *testing.T) {
	assert.Equal(t, []string{"leveldb", "memory", "pebble"}, AvailableBackends())

	for _, name := range AvailableBackends() {
		t.Run(name, func(t *testing.T) {
			b := openBackend(t, name)

			_, err := b.Get([]byte("missing"))
			assert.True(t, IsNotFound(err))

			require.NoError(t, b.Put([]byte("a1"), []byte("one")))
			got, err := b.Get([]byte("a1"))
			require.NoError(t, err)
			assert.Equal(t, []byte("one"), got)

			var batch Batch
			batch.Put([]byte("a2"), []byte("two"))
			batch.Put([]byte("a3"), []byte("three"))
			batch.Put([]byte("b1"), []byte("other"))
			batch.Delete([]byte("a1"))
			batch.Put([]byte("a1"), []byte("uno"))
			batch.Delete([]byte("a3"))
			assert.Equal(t, 6, batch.Len())
			require.NoError(t, b.Write(&batch))

			var keys, values []string
			require.NoError(t, b.Iterate([]byte("a"), func(k, v []byte) bool {
				keys = append(keys, string(k))
				values = append(values, string(v))
				return true
			}))
			assert.Equal(t, []string{"a1", "a2"}, keys)
			assert.Equal(t, []string{"uno", "two"}, values)

			var first []string
			require.NoError(t, b.Iterate(nil, func(k, _ []byte) bool {
				first = append(first, string(k))
				return false
			}))
			assert.Equal(t, []string{"a1"}, first)

			require.NoError(t, b.Close())
			_, err = b.Get([]byte("a1"))
			assert.ErrorIs(t, err, ErrBackendClosed)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"memory", Config{Backend: "memory", Compressor: "none"}, true},
		{"pebble in memory", Config{Backend: "pebble", Compressor: "lz4", InMemory: true}, true},
		{"pebble without path", Config{Backend: "pebble", Compressor: "lz4"}, false},
		{"leveldb with path", Config{Backend: "leveldb", Compressor: "lz4", Path: "/tmp/x"}, true},
		{"unknown backend", Config{Backend: "rocksdb", Compressor: "lz4"}, false},
		{"unknown compressor", Config{Backend: "memory", Compressor: "zstd"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte("f"), prefixEnd([]byte("e")))
	assert.Equal(t, []byte{0x02}, prefixEnd([]byte{0x01, 0xff}))
	assert.Nil(t, prefixEnd([]byte{0xff, 0xff}))
	assert.Nil(t, prefixEnd(nil))
}

func buildState(t *testing.T, n int) *state.Map {
	t.Helper()
	m, err := state.New(state.Config{Codec: entry.NewMsgpackCodec()})
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		e := entry.New([32]byte{byte(i), byte(i >> 8), 0x5A}, entry.TypeEscrow, entry.Fields{
			"Amount": fmt.Sprintf("%d", 1000+i),
			"Flags":  uint32(0),
		})
		require.NoError(t, m.InsertLeaf(e))
	}
	return m
}

func TestCheckpointRoundTrip(t *testing.T) {
	for _, backend := range AvailableBackends() {
		for _, comp := range compression.Available() {
			t.Run(backend+"/"+comp, func(t *testing.T) {
				b := openBackend(t, backend)
				c, err := compression.Get(comp)
				require.NoError(t, err)
				store := NewStore(b, c)

				_, err = store.LatestCheckpoint()
				assert.ErrorIs(t, err, ErrNoCheckpoint)

				src := buildState(t, 300)
				hash, err := src.RootHash()
				require.NoError(t, err)

				saved := Checkpoint{
					LedgerIndex: 77,
					AccountHash: hash,
					OutOfOrder:  [][32]byte{{0x01}, {0x02}},
					Codec:       "msgpack",
					SavedAt:     time.Unix(1700000000, 0),
				}
				require.NoError(t, store.SaveCheckpoint(saved, src))

				dst, err := state.New(state.Config{Codec: entry.NewMsgpackCodec()})
				require.NoError(t, err)
				cp, err := store.LoadCheckpoint("msgpack", dst.Load)
				require.NoError(t, err)

				assert.Equal(t, uint32(77), cp.LedgerIndex)
				assert.Equal(t, hash, cp.AccountHash)
				assert.Equal(t, saved.OutOfOrder, cp.OutOfOrder)
				assert.Equal(t, 300, cp.Entries)
				assert.Equal(t, saved.SavedAt.Unix(), cp.SavedAt.Unix())

				got, err := dst.RootHash()
				require.NoError(t, err)
				assert.Equal(t, hash, got)
			})
		}
	}
}

func TestCheckpointReplacesPrevious(t *testing.T) {
	store := NewStore(openBackend(t, "pebble"), compression.LZ4Compressor{})

	require.NoError(t, store.SaveCheckpoint(Checkpoint{LedgerIndex: 1, Codec: "msgpack"}, buildState(t, 50)))
	small := buildState(t, 10)
	require.NoError(t, store.SaveCheckpoint(Checkpoint{LedgerIndex: 2, Codec: "msgpack"}, small))

	loaded := 0
	cp, err := store.LoadCheckpoint("", func([32]byte, []byte) error {
		loaded++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(2), cp.LedgerIndex)
	assert.Equal(t, 10, loaded)
}

func TestCheckpointCodecMismatch(t *testing.T) {
	store := NewStore(openBackend(t, "memory"), compression.NoCompressor{})
	require.NoError(t, store.SaveCheckpoint(Checkpoint{LedgerIndex: 1, Codec: "msgpack"}, buildState(t, 1)))

	_, err := store.LoadCheckpoint("xrpl", func([32]byte, []byte) error { return nil })
	assert.ErrorIs(t, err, ErrCodecMismatch)
}

func TestCheckpointDetectsCorruption(t *testing.T) {
	b := openBackend(t, "leveldb")
	store := NewStore(b, compression.LZ4Compressor{})
	require.NoError(t, store.SaveCheckpoint(Checkpoint{LedgerIndex: 1, Codec: "msgpack"}, buildState(t, 3)))

	var batch Batch
	batch.Delete(entryKey([32]byte{0, 0, 0x5A}))
	require.NoError(t, b.Write(&batch))

	_, err := store.LoadCheckpoint("msgpack", func([32]byte, []byte) error { return nil })
	assert.ErrorIs(t, err, ErrDataCorrupt)
}

func TestOpen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyOptions(WithBackend("pebble"), WithPath(t.TempDir()), WithCompression("none"))
	store, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, store.SaveCheckpoint(Checkpoint{LedgerIndex: 9, Codec: "msgpack"}, buildState(t, 2)))
	require.NoError(t, store.Close())

	cfg.CreateIfMissing = false
	store, err = Open(cfg)
	require.NoError(t, err)
	defer store.Close()
	cp, err := store.LatestCheckpoint()
	require.NoError(t, err)
	assert.Equal(t, uint32(9), cp.LedgerIndex)
}
