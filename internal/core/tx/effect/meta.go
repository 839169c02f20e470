package effect

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	binarycodec "github.com/Peersyst/xrpl-go/binary-codec"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
)

var ErrMalformedMeta = errors.New("malformed transaction metadata")

// Meta is the part of a transaction's metadata replay needs.
type Meta struct {
	TransactionIndex  uint32
	TransactionResult string
	AffectedNodes     []Record
}

// DecodeMeta parses binary metadata.
func DecodeMeta(blob []byte) (*Meta, error) {
	decoded, err := binarycodec.Decode(strings.ToUpper(hex.EncodeToString(blob)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMeta, err)
	}
	return ParseMeta(decoded)
}

// DecodeMetaHex parses hex encoded binary metadata.
func DecodeMetaHex(s string) (*Meta, error) {
	blob, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMeta, err)
	}
	return DecodeMeta(blob)
}

// ParseMeta reads metadata in its JSON form, either decoded from binary or
// received from a server. Numbers from JSON are narrowed to the widths the
// binary codec uses.
func ParseMeta(m map[string]any) (*Meta, error) {
	rawIndex, ok := m["TransactionIndex"]
	if !ok {
		return nil, fmt.Errorf("%w: TransactionIndex missing", ErrMalformedMeta)
	}
	txIndex, err := entry.AsUint64(rawIndex)
	if err != nil || txIndex > 0xffffffff {
		return nil, fmt.Errorf("%w: TransactionIndex %v", ErrMalformedMeta, rawIndex)
	}
	result, _ := m["TransactionResult"].(string)

	var nodes []any
	switch list := m["AffectedNodes"].(type) {
	case nil:
	case []any:
		nodes = list
	case []map[string]any:
		nodes = make([]any, len(list))
		for i := range list {
			nodes[i] = list[i]
		}
	default:
		return nil, fmt.Errorf("%w: AffectedNodes %T", ErrMalformedMeta, list)
	}
	records, err := FromAffectedNodes(nodes)
	if err != nil {
		return nil, err
	}
	return &Meta{
		TransactionIndex:  uint32(txIndex),
		TransactionResult: result,
		AffectedNodes:     records,
	}, nil
}

// FromAffectedNodes converts metadata AffectedNodes into records. The
// entry's LedgerIndex moves into Record.Index and is never kept in Fields.
func FromAffectedNodes(nodes []any) ([]Record, error) {
	records := make([]Record, 0, len(nodes))
	for i, n := range nodes {
		wrapper, ok := asMap(n)
		if !ok || len(wrapper) != 1 {
			return nil, fmt.Errorf("%w: affected node %d", ErrMalformedMeta, i)
		}
		for nodeType, body := range wrapper {
			rec, err := parseNode(nodeType, body)
			if err != nil {
				return nil, fmt.Errorf("affected node %d: %w", i, err)
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func parseNode(nodeType string, body any) (Record, error) {
	var rec Record
	switch nodeType {
	case "CreatedNode":
		rec.Action = ActionCreated
	case "ModifiedNode":
		rec.Action = ActionModified
	case "DeletedNode":
		rec.Action = ActionDeleted
	default:
		return rec, fmt.Errorf("%w: node type %q", ErrMalformedMeta, nodeType)
	}

	node, ok := asMap(body)
	if !ok {
		return rec, fmt.Errorf("%w: %s body %T", ErrMalformedMeta, nodeType, body)
	}
	t, err := entry.ParseType(node["LedgerEntryType"])
	if err != nil {
		return rec, fmt.Errorf("%w: %v", ErrMalformedMeta, err)
	}
	rec.Type = t

	idx, ok := node["LedgerIndex"].(string)
	if !ok {
		return rec, fmt.Errorf("%w: %s without LedgerIndex", ErrMalformedMeta, nodeType)
	}
	if rec.Index, err = entry.ParseHash(idx); err != nil {
		return rec, fmt.Errorf("%w: LedgerIndex: %v", ErrMalformedMeta, err)
	}

	fieldsKey := "FinalFields"
	if rec.Action == ActionCreated {
		fieldsKey = "NewFields"
	}
	rec.Fields = make(entry.Fields)
	if raw, present := node[fieldsKey]; present {
		fields, ok := asMap(raw)
		if !ok {
			return rec, fmt.Errorf("%w: %s %T", ErrMalformedMeta, fieldsKey, raw)
		}
		for name, v := range fields {
			if entry.IsIndexField(name) {
				continue
			}
			rec.Fields[name] = entry.NormalizeValue(name, v)
		}
	}
	rec.Fields[entry.FieldLedgerEntryType] = t.String()
	return rec, nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case entry.Fields:
		return m, true
	default:
		return nil, false
	}
}
