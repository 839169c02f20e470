package shamap

import (
	crypto "github.com/LeJamon/xrplstate/internal/crypto/common"
)

// TreeNode is implemented by inner and leaf nodes.
type TreeNode interface {
	IsLeaf() bool
	Hash() [32]byte
}

// BaseNode caches a node's hash until the node is modified.
type BaseNode struct {
	hash  [32]byte
	dirty bool
}

func (b *BaseNode) setHash(parts ...[]byte) {
	b.hash = crypto.Sha512Half(parts...)
	b.dirty = false
}

func (b *BaseNode) markDirty() {
	b.dirty = true
}
