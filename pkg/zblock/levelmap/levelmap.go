// Package levelmap translates between the filesystem's compression level
// enumeration and the integer level understood by the zstd codec.
package levelmap

import "fmt"

// FsLevel is the filesystem's compression level enumeration. It carries two
// disjoint ranges: normal levels 1..19 and negative "fast" levels drawn from
// a fixed set of magnitudes.
type FsLevel int32

// Inherit is the sentinel value meaning "use the dataset's inherited
// compression level". It must never be accepted as a committed, on-disk
// level by either CompressPath or DecompressPath.
const Inherit FsLevel = 0

// Tuned is a sentinel FsLevel used only inside the first-pass probe path. It
// is never persisted to a BlockHeader and LevelMap rejects it like any other
// out-of-range value if it is ever passed to ToCodecLevel from outside that
// path.
const Tuned FsLevel = -420

const (
	minNormal FsLevel = 1
	maxNormal FsLevel = 19
)

// fastLevels enumerates the valid negative "fast" magnitudes, in the order
// the filesystem defines them.
var fastLevels = []FsLevel{
	-1, -2, -3, -4, -5, -6, -7, -8, -9, -10,
	-20, -30, -40, -50, -60, -70, -80, -90, -100,
	-500, -1000,
}

// ErrInvalid is returned when an FsLevel falls outside both the normal and
// fast ranges.
var ErrInvalid = fmt.Errorf("invalid filesystem compression level")

// ToCodecLevel translates an FsLevel to the integer level the zstd codec
// expects. Normal levels map to themselves; fast levels map to their
// negative magnitude (already negative, so this is also the identity).
func ToCodecLevel(level FsLevel) (int16, error) {
	if level >= minNormal && level <= maxNormal {
		return int16(level), nil
	}
	for _, fl := range fastLevels {
		if level == fl {
			return int16(level), nil
		}
	}
	return 0, ErrInvalid
}

// Valid reports whether level is a valid, persistable FsLevel (i.e. it is
// accepted by ToCodecLevel and is not the Inherit sentinel).
func Valid(level FsLevel) bool {
	if level == Inherit {
		return false
	}
	_, err := ToCodecLevel(level)
	return err == nil
}

// ToOrdinal maps an FsLevel to the single byte stored in a BlockHeader's
// raw_version_level field. Normal levels are stored as themselves (1..19).
// Fast levels are NOT stored as the two's-complement of their negative
// magnitude; they are stored as a sequential ordinal following the normal
// range (20, 21, ...), mirroring the filesystem's own enum layout where
// FAST_1..FAST_1000 are ordinals contiguous with, not overlapping, the
// normal levels.
func ToOrdinal(level FsLevel) (uint8, error) {
	if level >= minNormal && level <= maxNormal {
		return uint8(level), nil
	}
	for i, fl := range fastLevels {
		if level == fl {
			return uint8(int(maxNormal) + 1 + i), nil
		}
	}
	return 0, ErrInvalid
}

// FromOrdinal inverts ToOrdinal.
func FromOrdinal(ordinal uint8) (FsLevel, error) {
	if ordinal >= uint8(minNormal) && ordinal <= uint8(maxNormal) {
		return FsLevel(ordinal), nil
	}
	idx := int(ordinal) - int(maxNormal) - 1
	if idx >= 0 && idx < len(fastLevels) {
		return fastLevels[idx], nil
	}
	return 0, ErrInvalid
}
