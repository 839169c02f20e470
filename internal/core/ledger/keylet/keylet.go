// Package keylet derives ledger state keys from the data that identifies
// each entry.
package keylet

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
	crypto "github.com/LeJamon/xrplstate/internal/crypto/common"
)

// Space identifiers prefixed to every key derivation.
// These correspond to the LedgerNameSpace enum in rippled.
const (
	spaceAccount    uint16 = 'a'
	spaceDirNode    uint16 = 'd'
	spaceRippleDir  uint16 = 'r'
	spaceOffer      uint16 = 'o'
	spaceOwnerDir   uint16 = 'O'
	spaceBookDir    uint16 = 'B'
	spaceSkip       uint16 = 's'
	spaceAmendments uint16 = 'f'
	spaceFees       uint16 = 'e'
	spaceEscrow     uint16 = 'u'
	spaceTicket     uint16 = 'T'
	spaceCheck      uint16 = 'C'
)

// Keylet is an addressable location in the ledger state: the type of the
// entry expected there and its 256-bit key.
type Keylet struct {
	Type entry.Type
	Key  [32]byte
}

// indexHash computes Sha512Half(space || data...).
func indexHash(space uint16, data ...[]byte) [32]byte {
	spaceBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(spaceBytes, space)

	inputs := make([][]byte, 0, len(data)+1)
	inputs = append(inputs, spaceBytes)
	inputs = append(inputs, data...)
	return crypto.Sha512Half(inputs...)
}

func be32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func be64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// Account returns the keylet for an account root entry.
func Account(accountID [20]byte) Keylet {
	return Keylet{Type: entry.TypeAccountRoot, Key: indexHash(spaceAccount, accountID[:])}
}

// Fees returns the keylet for the singleton fee settings entry.
func Fees() Keylet {
	return Keylet{Type: entry.TypeFeeSettings, Key: indexHash(spaceFees)}
}

// Amendments returns the keylet for the singleton amendments entry.
func Amendments() Keylet {
	return Keylet{Type: entry.TypeAmendments, Key: indexHash(spaceAmendments)}
}

// LedgerHashes returns the keylet for the rolling skip list holding the
// hashes of the most recent 256 ledgers.
func LedgerHashes() Keylet {
	return Keylet{Type: entry.TypeLedgerHashes, Key: indexHash(spaceSkip)}
}

// LedgerHashesForSeq returns the keylet for the long-term skip list that
// records every 256th ledger hash in the group containing seq.
func LedgerHashesForSeq(seq uint32) Keylet {
	return Keylet{Type: entry.TypeLedgerHashes, Key: indexHash(spaceSkip, be32(seq>>16))}
}

// Offer returns the keylet for an offer entry.
func Offer(accountID [20]byte, sequence uint32) Keylet {
	return Keylet{Type: entry.TypeOffer, Key: indexHash(spaceOffer, accountID[:], be32(sequence))}
}

// Escrow returns the keylet for an escrow entry.
func Escrow(accountID [20]byte, sequence uint32) Keylet {
	return Keylet{Type: entry.TypeEscrow, Key: indexHash(spaceEscrow, accountID[:], be32(sequence))}
}

// Check returns the keylet for a check entry.
func Check(accountID [20]byte, sequence uint32) Keylet {
	return Keylet{Type: entry.TypeCheck, Key: indexHash(spaceCheck, accountID[:], be32(sequence))}
}

// Ticket returns the keylet for a ticket entry.
func Ticket(accountID [20]byte, ticketSeq uint32) Keylet {
	return Keylet{Type: entry.TypeTicket, Key: indexHash(spaceTicket, accountID[:], be32(ticketSeq))}
}

// OwnerDir returns the keylet for the root page of an owner directory.
func OwnerDir(accountID [20]byte) Keylet {
	return Keylet{Type: entry.TypeDirectoryNode, Key: indexHash(spaceOwnerDir, accountID[:])}
}

// OwnerDirPage returns the keylet for a page of an owner directory.
func OwnerDirPage(accountID [20]byte, page uint64) Keylet {
	return DirPage(OwnerDir(accountID).Key, page)
}

// DirPage returns the keylet for a page of the directory rooted at root.
// Page 0 is the root itself.
func DirPage(root [32]byte, page uint64) Keylet {
	if page == 0 {
		return Keylet{Type: entry.TypeDirectoryNode, Key: root}
	}
	return Keylet{Type: entry.TypeDirectoryNode, Key: indexHash(spaceDirNode, root[:], be64(page))}
}

// BookDir returns the base keylet for an order book directory. The low 64
// bits of a quality page replace the tail of this key.
func BookDir(takerPaysCurrency, takerPaysIssuer, takerGetsCurrency, takerGetsIssuer [20]byte) Keylet {
	return Keylet{
		Type: entry.TypeDirectoryNode,
		Key:  indexHash(spaceBookDir, takerPaysCurrency[:], takerPaysIssuer[:], takerGetsCurrency[:], takerGetsIssuer[:]),
	}
}

// BookQuality returns the book directory page for a given quality.
func BookQuality(base [32]byte, quality uint64) Keylet {
	k := base
	binary.BigEndian.PutUint64(k[24:], quality)
	return Keylet{Type: entry.TypeDirectoryNode, Key: k}
}

// Line returns the keylet for the trust line between two accounts in a
// currency. Currency is a 3 character code or 40 hex characters.
func Line(account1, account2 [20]byte, currency string) Keylet {
	low, high := account1, account2
	if compareAccountIDs(account1, account2) > 0 {
		low, high = account2, account1
	}
	cur := CurrencyBytes(currency)
	return Keylet{Type: entry.TypeRippleState, Key: indexHash(spaceRippleDir, low[:], high[:], cur[:])}
}

func compareAccountIDs(a, b [20]byte) int {
	for i := 0; i < 20; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// CurrencyBytes converts a currency code to its 160-bit form. Standard
// codes occupy bytes 12-14; anything that is not 3 characters or valid
// 40 character hex maps to zero (XRP).
func CurrencyBytes(currency string) [20]byte {
	var out [20]byte
	switch len(currency) {
	case 3:
		if currency != "XRP" {
			copy(out[12:15], currency)
		}
	case 40:
		if b, err := hex.DecodeString(currency); err == nil {
			copy(out[:], b)
		}
	}
	return out
}
