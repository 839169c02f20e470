package shamap

import (
	"encoding/hex"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/xrplstate/internal/protocol"
	crypto "github.com/LeJamon/xrplstate/internal/crypto/common"
)

func key(b ...byte) [32]byte {
	var k [32]byte
	copy(k[:], b)
	return k
}

func TestEmptyMapHashesToZero(t *testing.T) {
	sm := New(TypeState)
	assert.Equal(t, [32]byte{}, sm.Hash())
	assert.Zero(t, sm.Len())
}

func TestSingleLeafHash(t *testing.T) {
	sm := New(TypeState)
	k := key(0x12, 0x34)
	data := []byte("payload")
	require.NoError(t, sm.Put(k, data))

	leaf := crypto.Sha512Half(protocol.HashPrefixLeafNode.Bytes(), data, k[:])
	var children []byte
	for i := 0; i < 16; i++ {
		if i == 1 {
			children = append(children, leaf[:]...)
		} else {
			children = append(children, make([]byte, 32)...)
		}
	}
	want := crypto.Sha512Half(protocol.HashPrefixInnerNode.Bytes(), children)
	got := sm.Hash()
	assert.Equal(t, hex.EncodeToString(want[:]), hex.EncodeToString(got[:]))
}

func TestPutGetDelete(t *testing.T) {
	sm := New(TypeState)
	a, b := key(0xA0, 0x01), key(0xA0, 0x02)

	require.NoError(t, sm.Put(a, []byte("a")))
	require.NoError(t, sm.Put(b, []byte("b")))
	assert.Equal(t, 2, sm.Len())

	item, ok := sm.Get(a)
	require.True(t, ok)
	assert.Equal(t, []byte("a"), item.Data())

	require.NoError(t, sm.Put(a, []byte("a2")))
	assert.Equal(t, 2, sm.Len())
	item, _ = sm.Get(a)
	assert.Equal(t, []byte("a2"), item.Data())

	require.NoError(t, sm.Delete(a))
	assert.False(t, sm.Has(a))
	assert.True(t, sm.Has(b))
	assert.ErrorIs(t, sm.Delete(a), ErrItemNotFound)
	assert.Equal(t, 1, sm.Len())
}

func TestHashIndependentOfInsertionOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	keys := make([][32]byte, 200)
	for i := range keys {
		rng.Read(keys[i][:])
	}
	// Force deep shared prefixes.
	keys[1] = keys[0]
	keys[1][31] ^= 0x01

	forward := New(TypeState)
	for _, k := range keys {
		require.NoError(t, forward.Put(k, k[:8]))
	}
	backward := New(TypeState)
	for i := len(keys) - 1; i >= 0; i-- {
		require.NoError(t, backward.Put(keys[i], keys[i][:8]))
	}
	assert.Equal(t, forward.Hash(), backward.Hash())
}

func TestDeleteRestoresHash(t *testing.T) {
	sm := New(TypeState)
	base := [][32]byte{key(0x10), key(0x11), key(0x20, 0x01), key(0xF0)}
	for _, k := range base {
		require.NoError(t, sm.Put(k, []byte{k[0]}))
	}
	before := sm.Hash()

	extra := [][32]byte{key(0x11, 0x00, 0x01), key(0x20, 0x02), key(0x55)}
	for _, k := range extra {
		require.NoError(t, sm.Put(k, []byte{0xEE}))
	}
	assert.NotEqual(t, before, sm.Hash())

	for _, k := range extra {
		require.NoError(t, sm.Delete(k))
	}
	assert.Equal(t, before, sm.Hash())

	for _, k := range base {
		require.NoError(t, sm.Delete(k))
	}
	assert.Equal(t, [32]byte{}, sm.Hash())
}

func TestForEachKeyOrder(t *testing.T) {
	sm := New(TypeState)
	keys := [][32]byte{key(0xF0), key(0x01), key(0x80, 0x01), key(0x80, 0x00, 0x01)}
	for _, k := range keys {
		require.NoError(t, sm.Put(k, nil))
	}

	var seen [][32]byte
	sm.ForEach(func(it *Item) bool {
		seen = append(seen, it.Key())
		return true
	})
	assert.Equal(t, [][32]byte{key(0x01), key(0x80, 0x00, 0x01), key(0x80, 0x01), key(0xF0)}, seen)

	count := 0
	sm.ForEach(func(*Item) bool {
		count++
		return count < 2
	})
	assert.Equal(t, 2, count)
}

func TestTransactionMapUsesTxPrefix(t *testing.T) {
	k := key(0x01)
	state := New(TypeState)
	tx := New(TypeTransaction)
	require.NoError(t, state.Put(k, []byte("x")))
	require.NoError(t, tx.Put(k, []byte("x")))
	assert.NotEqual(t, state.Hash(), tx.Hash())
}
