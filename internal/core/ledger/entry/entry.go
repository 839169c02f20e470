// Package entry models ledger state entries as an immutable 256-bit index,
// a type, and an open-ended set of named fields in their JSON form.
package entry

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Field names the replay rules read or write.
const (
	FieldLedgerEntryType   = "LedgerEntryType"
	FieldLedgerIndex       = "LedgerIndex"
	FieldIndex             = "index"
	FieldFlags             = "Flags"
	FieldAccount           = "Account"
	FieldOwner             = "Owner"
	FieldOwnerCount        = "OwnerCount"
	FieldOwnerNode         = "OwnerNode"
	FieldBookNode          = "BookNode"
	FieldBookDirectory     = "BookDirectory"
	FieldLowNode           = "LowNode"
	FieldHighNode          = "HighNode"
	FieldLowLimit          = "LowLimit"
	FieldHighLimit         = "HighLimit"
	FieldIndexes           = "Indexes"
	FieldHashes            = "Hashes"
	FieldLastLedgerSeq     = "LastLedgerSequence"
	FieldPreviousTxnID     = "PreviousTxnID"
	FieldPreviousTxnLgrSeq = "PreviousTxnLgrSeq"
)

var (
	ErrMissingType  = errors.New("entry has no LedgerEntryType")
	ErrUnknownType  = errors.New("unknown LedgerEntryType")
	ErrNotDirectory = errors.New("entry is not a directory node")
	ErrInvalidField = errors.New("invalid field value")
)

// Fields holds an entry's fields keyed by field name.
type Fields map[string]any

// Clone returns a deep copy of the fields. Nested objects and arrays are
// copied so the clone can be mutated independently.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Fields:
		return val.Clone()
	case map[string]any:
		return map[string]any(Fields(val).Clone())
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = cloneValue(val[i])
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}

// IsIndexField reports whether name refers to the entry's own index. Those
// fields are never stored in Fields and never overwritten.
func IsIndexField(name string) bool {
	return name == FieldLedgerIndex || name == FieldIndex
}

// Entry is a single ledger state entry.
type Entry struct {
	index  [32]byte
	typ    Type
	Fields Fields
}

// New creates an entry of type t. Index fields present in fields are
// dropped; LedgerEntryType is set from t.
func New(index [32]byte, t Type, fields Fields) *Entry {
	if fields == nil {
		fields = make(Fields)
	}
	for name := range fields {
		if IsIndexField(name) {
			delete(fields, name)
		}
	}
	fields[FieldLedgerEntryType] = t.String()
	return &Entry{index: index, typ: t, Fields: fields}
}

// FromFields creates an entry whose type is taken from its LedgerEntryType
// field.
func FromFields(index [32]byte, fields Fields) (*Entry, error) {
	raw, ok := fields[FieldLedgerEntryType]
	if !ok {
		return nil, ErrMissingType
	}
	t, err := ParseType(raw)
	if err != nil {
		return nil, err
	}
	return New(index, t, fields), nil
}

// ParseType resolves a LedgerEntryType value, given either as a name or as
// its numeric code.
func ParseType(raw any) (Type, error) {
	if name, ok := raw.(string); ok {
		t, ok := TypeFromName(name)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
		}
		return t, nil
	}
	code, err := AsUint64(raw)
	if err != nil || code > 0xffff {
		return 0, fmt.Errorf("%w: %v", ErrUnknownType, raw)
	}
	return Type(code), nil
}

// Index returns the entry's 256-bit key.
func (e *Entry) Index() [32]byte {
	return e.index
}

// Type returns the ledger entry type.
func (e *Entry) Type() Type {
	return e.typ
}

// Kind returns the entry's variant.
func (e *Entry) Kind() Kind {
	return KindOf(e.typ)
}

// IsThreaded reports whether the entry records the last transaction that
// touched it.
func (e *Entry) IsThreaded() bool {
	return IsThreadedType(e.typ)
}

// Get returns the value of a field.
func (e *Entry) Get(name string) (any, bool) {
	v, ok := e.Fields[name]
	return v, ok
}

// Has reports whether a field is present.
func (e *Entry) Has(name string) bool {
	_, ok := e.Fields[name]
	return ok
}

// Set stores a field value. Index fields are ignored.
func (e *Entry) Set(name string, value any) {
	if IsIndexField(name) {
		return
	}
	e.Fields[name] = value
}

// SetPreviousTxn points the entry at the transaction that last touched it.
func (e *Entry) SetPreviousTxn(txHash [32]byte, ledgerSeq uint32) {
	e.Fields[FieldPreviousTxnID] = HashHex(txHash)
	e.Fields[FieldPreviousTxnLgrSeq] = ledgerSeq
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	return &Entry{index: e.index, typ: e.typ, Fields: e.Fields.Clone()}
}

// String returns a short description for logs.
func (e *Entry) String() string {
	return fmt.Sprintf("%s(%s)", e.typ, HashHex(e.index))
}

// HashHex renders a 256-bit value as uppercase hex, the form used by the
// ledger's JSON representation.
func HashHex(h [32]byte) string {
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

// ParseHash parses a 64 character hex string.
func ParseHash(s string) ([32]byte, error) {
	var h [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	if len(b) != 32 {
		return h, fmt.Errorf("%w: hash length %d", ErrInvalidField, len(b))
	}
	copy(h[:], b)
	return h, nil
}
