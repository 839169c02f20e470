package shamap

import (
	"math/bits"

	"github.com/LeJamon/xrplstate/internal/protocol"
)

const branchFactor = 16

var zeroHash [32]byte

// InnerNode has up to sixteen children, one per key nibble.
type InnerNode struct {
	BaseNode
	children [branchFactor]TreeNode
	isBranch uint16
}

func NewInnerNode() *InnerNode {
	return &InnerNode{}
}

func (n *InnerNode) IsLeaf() bool { return false }

// IsEmpty returns true if the node has no active branches.
func (n *InnerNode) IsEmpty() bool {
	return n.isBranch == 0
}

// IsEmptyBranch returns true if the given branch index is empty.
func (n *InnerNode) IsEmptyBranch(index int) bool {
	return n.isBranch&(1<<index) == 0
}

// BranchCount returns the number of active branches.
func (n *InnerNode) BranchCount() int {
	return bits.OnesCount16(n.isBranch)
}

// Child returns the child at the given branch index.
func (n *InnerNode) Child(index int) TreeNode {
	return n.children[index]
}

// SetChild replaces a branch. A nil child clears it.
func (n *InnerNode) SetChild(index int, child TreeNode) {
	n.children[index] = child
	if child != nil {
		n.isBranch |= 1 << index
	} else {
		n.isBranch &^= 1 << index
	}
	n.markDirty()
}

// onlyLeaf returns the single child if it is a leaf.
func (n *InnerNode) onlyLeaf() (*LeafNode, bool) {
	if n.BranchCount() != 1 {
		return nil, false
	}
	for i := 0; i < branchFactor; i++ {
		if leaf, ok := n.children[i].(*LeafNode); ok {
			return leaf, true
		}
	}
	return nil, false
}

// Hash returns Sha512Half(MIN\0 || child hashes), with zero hashes for
// empty branches. A node without children hashes to zero.
func (n *InnerNode) Hash() [32]byte {
	if !n.dirty {
		return n.hash
	}
	if n.isBranch == 0 {
		n.hash = zeroHash
		n.dirty = false
		return n.hash
	}
	parts := make([][]byte, 0, branchFactor+1)
	parts = append(parts, protocol.HashPrefixInnerNode.Bytes())
	for i := 0; i < branchFactor; i++ {
		if n.children[i] == nil {
			parts = append(parts, zeroHash[:])
			continue
		}
		h := n.children[i].Hash()
		parts = append(parts, h[:])
	}
	n.setHash(parts...)
	return n.hash
}
