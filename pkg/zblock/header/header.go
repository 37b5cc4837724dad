// Package header encodes and decodes the per-block framing envelope that
// precedes every compressed payload on disk.
package header

import (
	"encoding/binary"
	"fmt"

	"github.com/adamdmoss/zstdblock/pkg/zblock/levelmap"
)

// Size is the on-disk size of a BlockHeader in bytes.
const Size = 8

// maxEncoderVersion is the largest value that fits in the 24 bits reserved
// for the encoder version inside raw_version_level.
const maxEncoderVersion = 1<<24 - 1

// Header is the decoded, in-memory form of a framed block's envelope.
type Header struct {
	// CLen is the length in bytes of the compressed payload that
	// immediately follows the header.
	CLen uint32

	// EncoderVersion is the codec version that produced the payload. It
	// is recorded for forward compatibility but not acted upon by
	// DecompressPath.
	EncoderVersion uint32

	// Level is the filesystem level the caller requested, not the
	// internal probe level that may have actually produced the payload.
	Level levelmap.FsLevel
}

// Encode writes a Header into a new 8-byte slice, big-endian.
//
// It panics if encoderVersion does not fit in 24 bits; that is a
// programming error, not a runtime condition callers should be routing
// around.
func Encode(cLen uint32, encoderVersion uint32, level levelmap.FsLevel) []byte {
	if encoderVersion > maxEncoderVersion {
		panic(fmt.Sprintf("header: encoder version %d exceeds 24 bits", encoderVersion))
	}

	ordinal, err := levelmap.ToOrdinal(level)
	if err != nil {
		panic(fmt.Sprintf("header: level %d cannot be framed: %v", level, err))
	}

	buf := make([]byte, Size)
	binary.BigEndian.PutUint32(buf[0:4], cLen)
	binary.BigEndian.PutUint32(buf[4:8], (encoderVersion<<8)|uint32(ordinal))
	return buf
}

// EncodeInto writes a Header's wire form directly into the first Size bytes
// of dst, avoiding the allocation Encode incurs. dst must have length at
// least Size; CompressPath uses this to frame directly into its caller's
// destination buffer.
func EncodeInto(dst []byte, cLen uint32, encoderVersion uint32, level levelmap.FsLevel) error {
	if len(dst) < Size {
		return fmt.Errorf("header: destination too small: have %d, need %d", len(dst), Size)
	}
	if encoderVersion > maxEncoderVersion {
		return fmt.Errorf("header: encoder version %d exceeds 24 bits", encoderVersion)
	}
	ordinal, err := levelmap.ToOrdinal(level)
	if err != nil {
		return fmt.Errorf("header: level %d cannot be framed: %w", level, err)
	}

	binary.BigEndian.PutUint32(dst[0:4], cLen)
	binary.BigEndian.PutUint32(dst[4:8], (encoderVersion<<8)|uint32(ordinal))
	return nil
}

// Decode parses an 8-byte framed header from buf. buf is only read, never
// mutated - callers may pass a shared, reused source buffer.
func Decode(buf []byte) (Header, error) {
	if len(buf) < Size {
		return Header{}, fmt.Errorf("header: buffer too small: have %d, need %d", len(buf), Size)
	}

	// copy out of the shared buffer before doing anything with the bytes
	var local [Size]byte
	copy(local[:], buf[:Size])

	rawVersionLevel := binary.BigEndian.Uint32(local[4:8])
	level, lerr := levelmap.FromOrdinal(uint8(rawVersionLevel & 0xFF))
	if lerr != nil {
		// still return the raw fields; the caller decides how to treat an
		// unrecognized level ordinal
		return Header{
			CLen:           binary.BigEndian.Uint32(local[0:4]),
			EncoderVersion: rawVersionLevel >> 8,
			Level:          levelmap.FsLevel(-1 << 20), // guaranteed invalid
		}, lerr
	}

	return Header{
		CLen:           binary.BigEndian.Uint32(local[0:4]),
		EncoderVersion: rawVersionLevel >> 8,
		Level:          level,
	}, nil
}
