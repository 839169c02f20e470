// Package state holds the authenticated account state of a ledger: a SHAMap
// of serialized entries plus a write-back layer of decoded entries that are
// being mutated.
package state

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
	"github.com/LeJamon/xrplstate/internal/core/shamap"
)

var (
	ErrLeafExists   = errors.New("leaf already exists")
	ErrLeafNotFound = errors.New("leaf not found")
)

const defaultCacheSize = 4096

// Config configures a Map.
type Config struct {
	// Codec serializes entries into tree leaves. Defaults to the XRPL
	// binary codec.
	Codec entry.Codec
	// CacheSize bounds the decoded entry cache.
	CacheSize int
}

// Map is the account state tree.
//
// Entries handed out by GetLeafForMutation stay live until the next
// RootHash or Flush, which serializes every pending entry into the tree.
type Map struct {
	mu    sync.Mutex
	tree  *shamap.SHAMap
	codec entry.Codec
	dirty map[[32]byte]*entry.Entry
	cache *lru.Cache[[32]byte, *entry.Entry]

	hits   uint64
	misses uint64
}

// New creates an empty state map.
func New(cfg Config) (*Map, error) {
	if cfg.Codec == nil {
		cfg.Codec = entry.NewXRPLCodec()
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	cache, err := lru.New[[32]byte, *entry.Entry](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Map{
		tree:  shamap.New(shamap.TypeState),
		codec: cfg.Codec,
		dirty: make(map[[32]byte]*entry.Entry),
		cache: cache,
	}, nil
}

// Codec returns the codec used for leaves.
func (m *Map) Codec() entry.Codec {
	return m.codec
}

// InsertLeaf adds a new entry at its index.
func (m *Map) InsertLeaf(e *entry.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := e.Index()
	if _, ok := m.dirty[idx]; ok || m.tree.Has(idx) {
		return fmt.Errorf("%w: %s", ErrLeafExists, entry.HashHex(idx))
	}
	m.dirty[idx] = e
	return nil
}

// RemoveLeaf removes the entry at index.
func (m *Map) RemoveLeaf(index [32]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, pending := m.dirty[index]
	delete(m.dirty, index)
	m.cache.Remove(index)

	if err := m.tree.Delete(index); err != nil {
		if errors.Is(err, shamap.ErrItemNotFound) {
			if pending {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrLeafNotFound, entry.HashHex(index))
		}
		return err
	}
	return nil
}

// GetLeafForMutation returns a live entry. Changes made to it are written
// to the tree on the next RootHash or Flush. The boolean is false when no
// entry exists at index.
func (m *Map) GetLeafForMutation(index [32]byte) (*entry.Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.dirty[index]; ok {
		return e, true, nil
	}
	e, ok, err := m.load(index)
	if err != nil || !ok {
		return nil, ok, err
	}
	live := e.Clone()
	m.dirty[index] = live
	return live, true, nil
}

// Get returns a copy of the entry at index.
func (m *Map) Get(index [32]byte) (*entry.Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.dirty[index]; ok {
		return e.Clone(), true, nil
	}
	e, ok, err := m.load(index)
	if err != nil || !ok {
		return nil, ok, err
	}
	return e.Clone(), true, nil
}

// load returns the cached decoded form of a tree leaf. Callers must clone
// before handing it out.
func (m *Map) load(index [32]byte) (*entry.Entry, bool, error) {
	if e, ok := m.cache.Get(index); ok {
		m.hits++
		return e, true, nil
	}
	m.misses++
	item, ok := m.tree.Get(index)
	if !ok {
		return nil, false, nil
	}
	e, err := m.codec.Decode(index, item.Data())
	if err != nil {
		return nil, false, err
	}
	m.cache.Add(index, e)
	return e, true, nil
}

// Load stores an already serialized leaf, bypassing the write-back layer.
// It is used to seed the tree from a snapshot or checkpoint.
func (m *Map) Load(index [32]byte, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.dirty, index)
	m.cache.Remove(index)
	return m.tree.Put(index, blob)
}

// LoadEntry serializes and stores e, replacing any existing leaf.
func (m *Map) LoadEntry(e *entry.Entry) error {
	blob, err := m.codec.Encode(e)
	if err != nil {
		return err
	}
	return m.Load(e.Index(), blob)
}

// Flush serializes every pending entry into the tree.
func (m *Map) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushLocked()
}

func (m *Map) flushLocked() error {
	for idx, e := range m.dirty {
		blob, err := m.codec.Encode(e)
		if err != nil {
			return err
		}
		if err := m.tree.Put(idx, blob); err != nil {
			return err
		}
		m.cache.Add(idx, e.Clone())
		delete(m.dirty, idx)
	}
	return nil
}

// RootHash flushes pending entries and returns the tree hash.
func (m *Map) RootHash() ([32]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.flushLocked(); err != nil {
		return [32]byte{}, err
	}
	return m.tree.Hash(), nil
}

// Len returns the number of entries, counting pending inserts.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.tree.Len()
	for idx := range m.dirty {
		if !m.tree.Has(idx) {
			n++
		}
	}
	return n
}

// ForEachLeaf flushes and visits every serialized leaf in key order until
// fn returns false.
func (m *Map) ForEachLeaf(fn func(index [32]byte, blob []byte) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.flushLocked(); err != nil {
		return err
	}
	m.tree.ForEach(func(it *shamap.Item) bool {
		return fn(it.Key(), it.Data())
	})
	return nil
}

// ForEach flushes and visits every decoded entry in key order. Iteration
// stops at the first error.
func (m *Map) ForEach(fn func(*entry.Entry) error) error {
	var visitErr error
	err := m.ForEachLeaf(func(index [32]byte, blob []byte) bool {
		e, err := m.codec.Decode(index, blob)
		if err == nil {
			err = fn(e)
		}
		visitErr = err
		return err == nil
	})
	if err != nil {
		return err
	}
	return visitErr
}

// CacheStats returns decoded cache hits and misses.
func (m *Map) CacheStats() (hits, misses uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}
