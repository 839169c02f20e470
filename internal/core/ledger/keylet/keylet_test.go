package keylet

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAccount(t *testing.T, s string) [20]byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	var id [20]byte
	copy(id[:], b)
	return id
}

func TestBookDirKey(t *testing.T) {
	cny := CurrencyBytes("CNY")
	issuer := mustAccount(t, "35dd7df146893456296bf4061fbe68735d28f328")

	k := BookDir([20]byte{}, [20]byte{}, cny, issuer)

	// Matches the book directory ce67...c68000 on mainnet, quality bits aside.
	assert.Equal(t, "ce67ae4e51228a295ef282f765196323525945b7d2c11bf0", hex.EncodeToString(k.Key[:24]))

	q := BookQuality(k.Key, 0x5c038d7ea4c68000)
	assert.Equal(t, "ce67ae4e51228a295ef282f765196323525945b7d2c11bf05c038d7ea4c68000", hex.EncodeToString(q.Key[:]))
}

func TestAccountKey(t *testing.T) {
	// rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh, the genesis account.
	genesis := mustAccount(t, "b5f762798a53d543a014caf8b297cff8f2f937e8")
	k := Account(genesis)
	assert.Equal(t, "2b6ac232aa4c4be41bf49d2459fa4a0347e1b543a4c92fcee0821c0201e2e9a8", hex.EncodeToString(k.Key[:]))
}

func TestSkipListKeys(t *testing.T) {
	skip := LedgerHashes().Key
	assert.Equal(t, "b4979a36cdc7f3d3d5c31a4eae2ac7d7209dda877588b9afc66799692ab0d66b", hex.EncodeToString(skip[:]))

	// Ledgers in the same 65536 group share a long-term list.
	assert.Equal(t, LedgerHashesForSeq(0x10000).Key, LedgerHashesForSeq(0x1ff00).Key)
	assert.NotEqual(t, LedgerHashesForSeq(0xff00).Key, LedgerHashesForSeq(0x10000).Key)
	assert.NotEqual(t, LedgerHashes().Key, LedgerHashesForSeq(0).Key)
}

func TestDirPage(t *testing.T) {
	owner := mustAccount(t, "b5f762798a53d543a014caf8b297cff8f2f937e8")
	root := OwnerDir(owner)

	assert.Equal(t, root.Key, OwnerDirPage(owner, 0).Key)
	assert.NotEqual(t, root.Key, OwnerDirPage(owner, 1).Key)
	assert.Equal(t, DirPage(root.Key, 3).Key, OwnerDirPage(owner, 3).Key)
}

func TestLineIsSymmetric(t *testing.T) {
	a := mustAccount(t, "b5f762798a53d543a014caf8b297cff8f2f937e8")
	b := mustAccount(t, "35dd7df146893456296bf4061fbe68735d28f328")
	assert.Equal(t, Line(a, b, "USD").Key, Line(b, a, "USD").Key)
	assert.NotEqual(t, Line(a, b, "USD").Key, Line(a, b, "EUR").Key)
}

func TestCurrencyBytes(t *testing.T) {
	usd := CurrencyBytes("USD")
	assert.Equal(t, "0000000000000000000000005553440000000000", hex.EncodeToString(usd[:]))
	assert.Equal(t, [20]byte{}, CurrencyBytes("XRP"))
	assert.Equal(t, [20]byte{}, CurrencyBytes("bogus"))
}
