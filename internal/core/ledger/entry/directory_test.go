package entry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dirWith(t *testing.T, items ...[32]byte) *Entry {
	t.Helper()
	e := New(hashOf(0xD0), TypeDirectoryNode, nil)
	e.ApplyDefaults()
	for _, it := range items {
		require.NoError(t, e.AppendIndex(it))
	}
	return e
}

func TestDirectoryIndexes(t *testing.T) {
	a, b, c, d := hashOf(1), hashOf(2), hashOf(3), hashOf(4)

	t.Run("append keeps order", func(t *testing.T) {
		e := dirWith(t, a, b, c)
		list, err := e.Indexes()
		require.NoError(t, err)
		assert.Equal(t, [][32]byte{a, b, c}, list)
		assert.Equal(t, []string{HashHex(a), HashHex(b), HashHex(c)}, e.Fields[FieldIndexes])
	})

	t.Run("stable removal", func(t *testing.T) {
		e := dirWith(t, a, b, c, d)
		found, err := e.RemoveIndexStable(b)
		require.NoError(t, err)
		assert.True(t, found)
		list, _ := e.Indexes()
		assert.Equal(t, [][32]byte{a, c, d}, list)
	})

	t.Run("unstable removal swaps last", func(t *testing.T) {
		e := dirWith(t, a, b, c, d)
		found, err := e.RemoveIndexUnstable(b)
		require.NoError(t, err)
		assert.True(t, found)
		list, _ := e.Indexes()
		assert.Equal(t, [][32]byte{a, d, c}, list)
	})

	t.Run("removing absent item", func(t *testing.T) {
		e := dirWith(t, a)
		found, err := e.RemoveIndexStable(b)
		require.NoError(t, err)
		assert.False(t, found)
		found, err = e.RemoveIndexUnstable(b)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("decoded list", func(t *testing.T) {
		e := New(hashOf(0xD0), TypeDirectoryNode, Fields{"Indexes": []any{HashHex(a)}})
		ok, err := e.ContainsIndex(a)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("not a directory", func(t *testing.T) {
		e := New(hashOf(1), TypeOffer, nil)
		_, err := e.Indexes()
		assert.ErrorIs(t, err, ErrNotDirectory)
	})
}

func TestDirectoryOwner(t *testing.T) {
	e := New(hashOf(0xD0), TypeDirectoryNode, Fields{"Owner": "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"})
	owner, ok := e.Owner()
	assert.True(t, ok)
	assert.Equal(t, "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh", owner)

	book := New(hashOf(0xD1), TypeDirectoryNode, Fields{"TakerPaysCurrency": "0000000000000000000000000000000000000000"})
	_, ok = book.Owner()
	assert.False(t, ok)
}
