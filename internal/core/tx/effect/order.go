package effect

import (
	"sort"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
)

// Rank orders records for replay: directories before the trust lines and
// offers that link into them, everything else last.
func Rank(k entry.Kind) int {
	switch k {
	case entry.KindDirectoryNode:
		return 1
	case entry.KindTrustLine:
		return 2
	case entry.KindOffer:
		return 3
	default:
		return 4
	}
}

// Sort returns the records in replay order. Records of equal rank keep
// their arrival order.
func Sort(records []Record) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Rank(sorted[i].Kind()) < Rank(sorted[j].Kind())
	})
	return sorted
}
