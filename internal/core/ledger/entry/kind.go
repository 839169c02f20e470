package entry

// Kind is the closed set of entry variants the replay rules distinguish.
// Every Type maps to exactly one Kind; types without special linkage or
// defaulting rules are KindOther.
type Kind uint8

const (
	KindOther Kind = iota
	KindAccountRoot
	KindOffer
	KindTrustLine
	KindDirectoryNode
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindAccountRoot:
		return "AccountRoot"
	case KindOffer:
		return "Offer"
	case KindTrustLine:
		return "TrustLine"
	case KindDirectoryNode:
		return "DirectoryNode"
	default:
		return "Other"
	}
}

// KindOf returns the variant of a ledger entry type.
func KindOf(t Type) Kind {
	switch t {
	case TypeAccountRoot:
		return KindAccountRoot
	case TypeOffer:
		return KindOffer
	case TypeRippleState:
		return KindTrustLine
	case TypeDirectoryNode:
		return KindDirectoryNode
	default:
		return KindOther
	}
}

// threadedTypes carry PreviousTxnID / PreviousTxnLgrSeq.
// Amendments, fee settings, skip lists and the negative UNL are never
// threaded. Directories are left out too: they only gained the fields with
// fixPreviousTxnID, so whether one is threaded depends on the ledger, which
// the replay engine decides.
var threadedTypes = map[Type]struct{}{
	TypeAccountRoot:                     {},
	TypeOffer:                           {},
	TypeRippleState:                     {},
	TypeCheck:                           {},
	TypeDepositPreauth:                  {},
	TypeEscrow:                          {},
	TypePayChannel:                      {},
	TypeSignerList:                      {},
	TypeTicket:                          {},
	TypeNFTokenOffer:                    {},
	TypeNFTokenPage:                     {},
	TypeAMM:                             {},
	TypeBridge:                          {},
	TypeXChainOwnedClaimID:              {},
	TypeXChainOwnedCreateAccountClaimID: {},
	TypeDID:                             {},
	TypeOracle:                          {},
	TypeMPTokenIssuance:                 {},
	TypeMPToken:                         {},
	TypeCredential:                      {},
	TypePermissionedDomain:              {},
	TypeDelegate:                        {},
	TypeVault:                           {},
}

// IsThreadedType reports whether entries of type t track the last
// transaction that touched them.
func IsThreadedType(t Type) bool {
	_, ok := threadedTypes[t]
	return ok
}
