package protocol

// HashPrefix defines the prefix bytes used in XRPL hashing operations.
// These prefixes provide domain separation for different hash contexts.
type HashPrefix [4]byte

// makeHashPrefix combines three ASCII characters into a 4-byte prefix with the last byte set to zero.
func makeHashPrefix(a, b, c byte) HashPrefix {
	return HashPrefix{a, b, c, 0}
}

var (
	HashPrefixTransactionID = makeHashPrefix('T', 'X', 'N') // Transaction ID
	HashPrefixTxNode        = makeHashPrefix('S', 'N', 'D') // Transaction + Metadata
	HashPrefixLeafNode      = makeHashPrefix('M', 'L', 'N') // Account State
	HashPrefixInnerNode     = makeHashPrefix('M', 'I', 'N') // Inner node (v1 tree)
	HashPrefixLedgerMaster  = makeHashPrefix('L', 'W', 'R') // Ledger header
)

// Bytes returns the prefix as a byte slice
func (h HashPrefix) Bytes() []byte {
	return h[:]
}
