package levelmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCodecLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   FsLevel
		want    int16
		wantErr bool
	}{
		{"min normal", 1, 1, false},
		{"max normal", 19, 19, false},
		{"fast -1", -1, -1, false},
		{"fast -1000", -1000, -1000, false},
		{"inherit is invalid here", Inherit, 0, true},
		{"tuned is invalid here", Tuned, 0, true},
		{"out of range normal", 20, 0, true},
		{"garbage ordinal", 99, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ToCodecLevel(tc.level)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(3))
	assert.True(t, Valid(-20))
	assert.False(t, Valid(Inherit))
	assert.False(t, Valid(Tuned))
	assert.False(t, Valid(99))
}

func TestOrdinalRoundTrip(t *testing.T) {
	for _, level := range append([]FsLevel{1, 10, 19}, fastLevels...) {
		ordinal, err := ToOrdinal(level)
		require.NoError(t, err)

		back, err := FromOrdinal(ordinal)
		require.NoError(t, err)
		assert.Equal(t, level, back)
	}
}

func TestOrdinalIsSequentialNotTwosComplement(t *testing.T) {
	// the first fast level (-1) must land immediately after the last
	// normal level's ordinal (19), not at 0xFF (two's complement of -1).
	ordinal, err := ToOrdinal(-1)
	require.NoError(t, err)
	assert.EqualValues(t, 20, ordinal)
}

func TestToOrdinalInvalid(t *testing.T) {
	_, err := ToOrdinal(Inherit)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = ToOrdinal(Tuned)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestFromOrdinalInvalid(t *testing.T) {
	_, err := FromOrdinal(255)
	assert.ErrorIs(t, err, ErrInvalid)
}
