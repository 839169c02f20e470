package compression

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4"
)

var ErrCorrupt = errors.New("corrupt compressed data")

// maxDecompressedSize bounds the size prefix so a corrupt value cannot
// trigger a huge allocation.
const maxDecompressedSize = 64 << 20

// NoCompressor stores data as is.
type NoCompressor struct{}

func (NoCompressor) Name() string { return "none" }

func (NoCompressor) Compress(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

func (NoCompressor) Decompress(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

// LZ4Compressor writes the uncompressed size as a varint, as rippled's
// nodestore does, then a mode byte and the payload. Inputs LZ4 cannot
// shrink are stored raw.
type LZ4Compressor struct{}

const (
	modeRaw byte = iota
	modeLZ4
)

func (LZ4Compressor) Name() string { return "lz4" }

func (LZ4Compressor) Compress(data []byte) ([]byte, error) {
	out := make([]byte, binary.MaxVarintLen64+1+lz4.CompressBlockBound(len(data)))
	n := binary.PutUvarint(out, uint64(len(data)))

	size, err := lz4.CompressBlock(data, out[n+1:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compression failed: %w", err)
	}
	if size == 0 || size >= len(data) {
		out[n] = modeRaw
		return append(out[:n+1], data...), nil
	}
	out[n] = modeLZ4
	return out[:n+1+size], nil
}

func (LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	size, n := binary.Uvarint(data)
	if n <= 0 || size > maxDecompressedSize || len(data) <= n {
		return nil, fmt.Errorf("%w: bad header", ErrCorrupt)
	}
	payload := data[n+1:]

	switch data[n] {
	case modeRaw:
		if uint64(len(payload)) != size {
			return nil, fmt.Errorf("%w: expected %d raw bytes, got %d", ErrCorrupt, size, len(payload))
		}
		return append([]byte(nil), payload...), nil
	case modeLZ4:
		out := make([]byte, size)
		got, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if uint64(got) != size {
			return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrCorrupt, size, got)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: mode %d", ErrCorrupt, data[n])
	}
}
