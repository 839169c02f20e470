// Package directory resolves which directory pages list a ledger entry.
// Offers live in their owner's directory and in an order book; trust lines
// live in the owner directories of both parties.
package directory

import (
	"errors"
	"fmt"

	addresscodec "github.com/Peersyst/xrpl-go/address-codec"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
	"github.com/LeJamon/xrplstate/internal/core/ledger/keylet"
)

var ErrMissingReference = errors.New("entry lacks directory reference fields")

// References returns the indexes of every directory page expected to list
// e, owner pages first. Entries of other kinds return nil.
func References(e *entry.Entry) ([][32]byte, error) {
	switch e.Kind() {
	case entry.KindOffer:
		owner, err := ownerPage(e, entry.FieldAccount, entry.FieldOwnerNode)
		if err != nil {
			return nil, err
		}
		book, err := bookPage(e)
		if err != nil {
			return nil, err
		}
		return [][32]byte{owner, book}, nil
	case entry.KindTrustLine:
		low, err := limitPage(e, entry.FieldLowLimit, entry.FieldLowNode)
		if err != nil {
			return nil, err
		}
		high, err := limitPage(e, entry.FieldHighLimit, entry.FieldHighNode)
		if err != nil {
			return nil, err
		}
		return [][32]byte{low, high}, nil
	default:
		return nil, nil
	}
}

func ownerPage(e *entry.Entry, accountField, pageField string) ([32]byte, error) {
	account, ok := e.FieldString(accountField)
	if !ok {
		return [32]byte{}, fmt.Errorf("%w: %s missing", ErrMissingReference, accountField)
	}
	return pageFor(e, account, pageField)
}

// bookPage resolves the quality directory page holding an offer.
// BookDirectory names the page-0 root; BookNode selects the page.
func bookPage(e *entry.Entry) ([32]byte, error) {
	root, err := e.FieldHash(entry.FieldBookDirectory)
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: %v", ErrMissingReference, err)
	}
	page, err := e.FieldUint64(entry.FieldBookNode)
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: %v", ErrMissingReference, err)
	}
	return keylet.DirPage(root, page).Key, nil
}

func limitPage(e *entry.Entry, limitField, pageField string) ([32]byte, error) {
	limit, ok := e.FieldObject(limitField)
	if !ok {
		return [32]byte{}, fmt.Errorf("%w: %s missing", ErrMissingReference, limitField)
	}
	issuer, ok := limit["issuer"].(string)
	if !ok {
		return [32]byte{}, fmt.Errorf("%w: %s has no issuer", ErrMissingReference, limitField)
	}
	return pageFor(e, issuer, pageField)
}

func pageFor(e *entry.Entry, address, pageField string) ([32]byte, error) {
	id, err := AccountID(address)
	if err != nil {
		return [32]byte{}, err
	}
	page, err := e.FieldUint64(pageField)
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: %v", ErrMissingReference, err)
	}
	return keylet.OwnerDirPage(id, page).Key, nil
}

// AccountID decodes a classic address.
func AccountID(address string) ([20]byte, error) {
	var id [20]byte
	_, raw, err := addresscodec.DecodeClassicAddressToAccountID(address)
	if err != nil {
		return id, fmt.Errorf("decode address %q: %w", address, err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("decode address %q: account id length %d", address, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}
