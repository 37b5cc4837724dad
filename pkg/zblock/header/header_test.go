package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamdmoss/zstdblock/pkg/zblock/levelmap"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		cLen    uint32
		version uint32
		level   levelmap.FsLevel
	}{
		{"normal level", 4096, 1, 3},
		{"max normal level", 1, 1, 19},
		{"fast level", 512, 1, -1},
		{"deepest fast level", 8, 2, -1000},
		{"max encoder version", 0, maxEncoderVersion, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := Encode(tc.cLen, tc.version, tc.level)
			require.Len(t, buf, Size)

			h, err := Decode(buf)
			require.NoError(t, err)
			assert.Equal(t, tc.cLen, h.CLen)
			assert.Equal(t, tc.version, h.EncoderVersion)
			assert.Equal(t, tc.level, h.Level)
		})
	}
}

func TestEncodePanicsOnOversizedVersion(t *testing.T) {
	assert.Panics(t, func() {
		Encode(0, maxEncoderVersion+1, 1)
	})
}

func TestEncodePanicsOnUnframeableLevel(t *testing.T) {
	assert.Panics(t, func() {
		Encode(0, 1, levelmap.Inherit)
	})
}

func TestDecodeDoesNotMutateSource(t *testing.T) {
	buf := Encode(123, 1, 5)
	original := append([]byte(nil), buf...)

	_, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, original, buf)
}

func TestDecodeTooShort(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDecodeUnrecognizedLevelOrdinal(t *testing.T) {
	buf := make([]byte, Size)
	// raw_version_level with an ordinal past the last fast level
	buf[7] = 0xFF

	h, err := Decode(buf)
	require.Error(t, err)
	assert.False(t, levelmap.Valid(h.Level))
}

func TestEncodeInto(t *testing.T) {
	dst := make([]byte, Size+16)
	require.NoError(t, EncodeInto(dst, 16, 1, 3))

	h, err := Decode(dst)
	require.NoError(t, err)
	assert.EqualValues(t, 16, h.CLen)
	assert.EqualValues(t, 3, h.Level)
}

func TestEncodeIntoTooSmall(t *testing.T) {
	dst := make([]byte, Size-1)
	assert.Error(t, EncodeInto(dst, 0, 1, 3))
}
