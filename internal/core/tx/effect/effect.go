// Package effect describes what a transaction did to ledger state, as
// reported by its metadata, and orders those effects for replay.
package effect

import (
	"fmt"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
)

// Action is the kind of change a transaction made to an entry.
type Action uint8

const (
	ActionCreated Action = iota + 1
	ActionModified
	ActionDeleted
)

// String returns the metadata node name for the action.
func (a Action) String() string {
	switch a {
	case ActionCreated:
		return "CreatedNode"
	case ActionModified:
		return "ModifiedNode"
	case ActionDeleted:
		return "DeletedNode"
	default:
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
}

// Record is the effect of one transaction on one entry. Fields holds the
// entry's final field values: NewFields for created entries, FinalFields
// otherwise.
type Record struct {
	Index  [32]byte
	Type   entry.Type
	Action Action
	Fields entry.Fields
}

// Kind returns the record's entry variant.
func (r Record) Kind() entry.Kind {
	return entry.KindOf(r.Type)
}

// Entry builds a detached entry from the record's fields.
func (r Record) Entry() *entry.Entry {
	return entry.New(r.Index, r.Type, r.Fields.Clone())
}

// Batch is one transaction's effects together with its position in the
// ledger.
type Batch struct {
	Hash      [32]byte
	LedgerSeq uint32
	Position  uint32
	Records   []Record
}

// NewBatch builds the batch for a transaction from its decoded metadata.
func NewBatch(txHash [32]byte, ledgerSeq uint32, meta *Meta) *Batch {
	return &Batch{
		Hash:      txHash,
		LedgerSeq: ledgerSeq,
		Position:  meta.TransactionIndex,
		Records:   meta.AffectedNodes,
	}
}
