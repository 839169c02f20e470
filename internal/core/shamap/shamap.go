// Package shamap implements the XRPL SHAMap: a sixteen-way radix tree over
// 256-bit keys whose root hash authenticates every item it holds.
package shamap

import (
	"errors"
	"fmt"
	"sync"

	"github.com/LeJamon/xrplstate/internal/protocol"
)

// Common errors
var (
	ErrNilItem         = errors.New("cannot add nil item")
	ErrItemNotFound    = errors.New("item not found")
	ErrMaxDepthReached = errors.New("maximum tree depth reached")
)

// Type defines the SHAMap type
type Type int

const (
	TypeTransaction Type = iota
	TypeState
)

// String returns a string representation of the type
func (t Type) String() string {
	switch t {
	case TypeTransaction:
		return "transaction"
	case TypeState:
		return "state"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

func (t Type) leafPrefix() protocol.HashPrefix {
	if t == TypeTransaction {
		return protocol.HashPrefixTxNode
	}
	return protocol.HashPrefixLeafNode
}

// SHAMap is the main structure representing the tree. The shape of the
// tree depends only on the set of keys, so the root hash is independent of
// insertion order.
type SHAMap struct {
	mu      sync.RWMutex
	root    *InnerNode
	mapType Type
	count   int
}

// New creates a new empty SHAMap with the specified type
func New(mapType Type) *SHAMap {
	return &SHAMap{root: NewInnerNode(), mapType: mapType}
}

// Type returns the map type
func (sm *SHAMap) Type() Type {
	return sm.mapType
}

// Len returns the number of items in the map.
func (sm *SHAMap) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.count
}

// Hash returns the root hash. Hashes of modified nodes are recomputed
// lazily; an empty map hashes to zero.
func (sm *SHAMap) Hash() [32]byte {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.root.Hash()
}

// Put inserts or replaces the item stored under key.
func (sm *SHAMap) Put(key [32]byte, data []byte) error {
	return sm.PutItem(NewItem(key, data))
}

// PutItem inserts or replaces an item.
func (sm *SHAMap) PutItem(item *Item) error {
	if item == nil {
		return ErrNilItem
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()

	added, err := sm.put(sm.root, 0, newLeafNode(item, sm.mapType.leafPrefix()))
	if err != nil {
		return err
	}
	if added {
		sm.count++
	}
	return nil
}

func (sm *SHAMap) put(node *InnerNode, depth int, leaf *LeafNode) (bool, error) {
	if depth >= maxDepth {
		return false, ErrMaxDepthReached
	}
	key := leaf.item.Key()
	branch := selectBranch(key, depth)

	switch child := node.Child(branch).(type) {
	case nil:
		node.SetChild(branch, leaf)
		return true, nil
	case *LeafNode:
		if child.item.Key() == key {
			node.SetChild(branch, leaf)
			return false, nil
		}
		split := NewInnerNode()
		if _, err := sm.put(split, depth+1, child); err != nil {
			return false, err
		}
		if _, err := sm.put(split, depth+1, leaf); err != nil {
			return false, err
		}
		node.SetChild(branch, split)
		return true, nil
	case *InnerNode:
		added, err := sm.put(child, depth+1, leaf)
		if err != nil {
			return false, err
		}
		node.markDirty()
		return added, nil
	default:
		return false, fmt.Errorf("unexpected node %T at depth %d", child, depth)
	}
}

// Get returns the item stored under key.
func (sm *SHAMap) Get(key [32]byte) (*Item, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	node := sm.root
	for depth := 0; depth < maxDepth; depth++ {
		switch child := node.Child(selectBranch(key, depth)).(type) {
		case *LeafNode:
			if child.item.Key() == key {
				return child.item, true
			}
			return nil, false
		case *InnerNode:
			node = child
		default:
			return nil, false
		}
	}
	return nil, false
}

// Has reports whether key is present.
func (sm *SHAMap) Has(key [32]byte) bool {
	_, ok := sm.Get(key)
	return ok
}

// Delete removes the item under key. Inner nodes left with a single leaf
// are collapsed so the tree keeps its canonical shape.
func (sm *SHAMap) Delete(key [32]byte) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if err := sm.remove(sm.root, 0, key); err != nil {
		return err
	}
	sm.count--
	return nil
}

func (sm *SHAMap) remove(node *InnerNode, depth int, key [32]byte) error {
	branch := selectBranch(key, depth)

	switch child := node.Child(branch).(type) {
	case *LeafNode:
		if child.item.Key() != key {
			return ErrItemNotFound
		}
		node.SetChild(branch, nil)
		return nil
	case *InnerNode:
		if err := sm.remove(child, depth+1, key); err != nil {
			return err
		}
		if leaf, ok := child.onlyLeaf(); ok {
			node.SetChild(branch, leaf)
		} else if child.IsEmpty() {
			node.SetChild(branch, nil)
		} else {
			node.markDirty()
		}
		return nil
	default:
		return ErrItemNotFound
	}
}

// ForEach visits every item in ascending key order until fn returns false.
func (sm *SHAMap) ForEach(fn func(*Item) bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	walk(sm.root, fn)
}

func walk(node *InnerNode, fn func(*Item) bool) bool {
	for i := 0; i < branchFactor; i++ {
		switch child := node.Child(i).(type) {
		case *LeafNode:
			if !fn(child.item) {
				return false
			}
		case *InnerNode:
			if !walk(child, fn) {
				return false
			}
		}
	}
	return true
}
