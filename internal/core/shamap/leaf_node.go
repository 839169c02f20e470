package shamap

import (
	"github.com/LeJamon/xrplstate/internal/protocol"
)

// LeafNode holds one item. Its hash covers the item data followed by the
// key, under a prefix chosen by the map type.
type LeafNode struct {
	BaseNode
	item   *Item
	prefix protocol.HashPrefix
}

func newLeafNode(item *Item, prefix protocol.HashPrefix) *LeafNode {
	n := &LeafNode{item: item, prefix: prefix}
	n.markDirty()
	return n
}

func (n *LeafNode) IsLeaf() bool { return true }

// Item returns the stored item.
func (n *LeafNode) Item() *Item { return n.item }

// Hash returns Sha512Half(prefix || data || key).
func (n *LeafNode) Hash() [32]byte {
	if n.dirty {
		key := n.item.Key()
		n.setHash(n.prefix.Bytes(), n.item.Data(), key[:])
	}
	return n.hash
}
