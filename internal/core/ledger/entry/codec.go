package entry

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	binarycodec "github.com/Peersyst/xrpl-go/binary-codec"
	"github.com/ugorji/go/codec"
)

// Codec converts entries to and from the leaf data stored in the state tree.
type Codec interface {
	Name() string
	Encode(e *Entry) ([]byte, error)
	Decode(index [32]byte, data []byte) (*Entry, error)
}

// XRPLCodec stores entries in the canonical XRPL binary serialization, so
// tree hashes match the network's account hash.
type XRPLCodec struct{}

// NewXRPLCodec returns the canonical binary codec.
func NewXRPLCodec() *XRPLCodec {
	return &XRPLCodec{}
}

func (c *XRPLCodec) Name() string { return "xrpl" }

func (c *XRPLCodec) Encode(e *Entry) ([]byte, error) {
	fields := make(map[string]any, len(e.Fields))
	for name, v := range e.Fields {
		fields[name] = NormalizeValue(name, v)
	}
	blob, err := binarycodec.Encode(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e, err)
	}
	return hex.DecodeString(blob)
}

func (c *XRPLCodec) Decode(index [32]byte, data []byte) (*Entry, error) {
	fields, err := binarycodec.Decode(strings.ToUpper(hex.EncodeToString(data)))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", HashHex(index), err)
	}
	return FromFields(index, Fields(fields))
}

// MsgpackCodec stores entries as canonical msgpack maps. It accepts any
// field set, which makes it usable for synthetic entries the binary format
// would reject; its hashes do not match the network's.
type MsgpackCodec struct {
	handle *codec.MsgpackHandle
}

// NewMsgpackCodec returns a msgpack codec with deterministic map ordering.
func NewMsgpackCodec() *MsgpackCodec {
	h := &codec.MsgpackHandle{}
	h.Canonical = true
	h.WriteExt = true
	h.RawToString = true
	h.MapType = reflect.TypeOf(map[string]any(nil))
	return &MsgpackCodec{handle: h}
}

func (c *MsgpackCodec) Name() string { return "msgpack" }

func (c *MsgpackCodec) Encode(e *Entry) ([]byte, error) {
	var out []byte
	if err := codec.NewEncoderBytes(&out, c.handle).Encode(map[string]any(e.Fields)); err != nil {
		return nil, fmt.Errorf("encode %s: %w", e, err)
	}
	return out, nil
}

func (c *MsgpackCodec) Decode(index [32]byte, data []byte) (*Entry, error) {
	var fields map[string]any
	if err := codec.NewDecoderBytes(data, c.handle).Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode %s: %w", HashHex(index), err)
	}
	return FromFields(index, Fields(fields))
}

// narrowFields are the UInt8 and UInt16 fields; every other bare JSON
// number is a UInt32.
var narrowFields = map[string]reflect.Kind{
	"TickSize":            reflect.Uint8,
	"AssetScale":          reflect.Uint8,
	"Scale":               reflect.Uint8,
	"WasLockingChainSend": reflect.Uint8,
	"TransferFee":         reflect.Uint16,
	"TradingFee":          reflect.Uint16,
	"DiscountedFee":       reflect.Uint16,
	"SignerWeight":        reflect.Uint16,
	"VoteWeight":          reflect.Uint16,
	"LedgerEntryType":     reflect.Uint16,
	"TransactionType":     reflect.Uint16,
}

// NormalizeValue converts numbers decoded from JSON into the integer types
// the binary codec expects: uint8, int for UInt16 fields, uint32. Nested
// objects and arrays are normalized recursively; other values pass through.
func NormalizeValue(name string, v any) any {
	switch val := v.(type) {
	case uint16:
		return int(val)
	case float64, json.Number:
		n, err := AsUint64(val)
		if err != nil {
			return v
		}
		switch narrowFields[name] {
		case reflect.Uint8:
			return uint8(n)
		case reflect.Uint16:
			// The codec writes UInt16 from int.
			return int(n)
		default:
			return uint32(n)
		}
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = NormalizeValue(k, inner)
		}
		return out
	case Fields:
		return NormalizeValue(name, map[string]any(val))
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = NormalizeValue(name, val[i])
		}
		return out
	default:
		return v
	}
}

// NormalizeFields applies NormalizeValue to every field.
func NormalizeFields(f Fields) Fields {
	out := make(Fields, len(f))
	for name, v := range f {
		out[name] = NormalizeValue(name, v)
	}
	return out
}
