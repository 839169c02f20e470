package shamap

// maxDepth is the number of nibbles in a key.
const maxDepth = 64

// selectBranch returns the nibble of key that picks the child at depth.
func selectBranch(key [32]byte, depth int) int {
	b := key[depth/2]
	if depth%2 == 0 {
		return int(b >> 4)
	}
	return int(b & 0x0F)
}
