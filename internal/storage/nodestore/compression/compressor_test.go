package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressors(t *testing.T) {
	inputs := map[string][]byte{
		"empty":      {},
		"small":      []byte("ledger"),
		"repetitive": bytes.Repeat([]byte("DirectoryNode"), 200),
	}

	for _, name := range Available() {
		c, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())

		for label, in := range inputs {
			t.Run(name+"/"+label, func(t *testing.T) {
				packed, err := c.Compress(in)
				require.NoError(t, err)
				out, err := c.Decompress(packed)
				require.NoError(t, err)
				assert.Equal(t, len(in), len(out))
				assert.True(t, bytes.Equal(in, out))
			})
		}
	}
}

func TestLZ4Shrinks(t *testing.T) {
	in := bytes.Repeat([]byte("0000000000000000"), 256)
	packed, err := LZ4Compressor{}.Compress(in)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(in)/4)
}

func TestLZ4RejectsCorruptData(t *testing.T) {
	_, err := LZ4Compressor{}.Decompress([]byte{0xff})
	assert.ErrorIs(t, err, ErrCorrupt)

	packed, err := LZ4Compressor{}.Compress(bytes.Repeat([]byte("abc"), 100))
	require.NoError(t, err)
	packed[0]++ // size prefix no longer matches
	_, err = LZ4Compressor{}.Decompress(packed)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestUnknownCompressor(t *testing.T) {
	_, err := Get("zstd")
	assert.Error(t, err)
	assert.Equal(t, []string{"lz4", "none"}, Available())
}
