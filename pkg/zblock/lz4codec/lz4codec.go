// Package lz4codec wraps the lz4 probe compressor the early-abort heuristic
// uses to estimate, cheaply, whether a block is worth committing to zstd at
// all. Unlike zstdcodec, lz4codec's output bytes are never framed or stored:
// the probe's compressed length is consulted and then discarded, so the
// contract is a single one-shot block compressor, nothing more.
//
// As with zstdcodec, two implementations are selected by build tag:
// lz4codec_cgo.go links the real liblz4 and exposes its acceleration
// parameter; lz4codec_native.go falls back to github.com/pierrec/lz4/v4,
// whose block API has no acceleration knob (see that file's doc comment).
package lz4codec

// Compressor is a single-shot, allocation-free (given a large enough dst)
// lz4 block compressor.
type Compressor interface {
	// CompressBound returns the worst-case compressed size for srcLen
	// bytes of input, the minimum dst capacity Compress requires.
	CompressBound(srcLen int) int
	// Compress compresses src into dst at the given acceleration and
	// returns the number of bytes written. acceleration is passed through
	// verbatim to the underlying library; higher values trade ratio for
	// speed. A returned length greater than len(dst) never happens -
	// instead Compress reports an error, since lz4 has no notion of a
	// distinguished "destination too small" code the way zstd does.
	Compress(dst, src []byte, acceleration int) (int, error)
	// Close releases any resources held by the compressor.
	Close()
}

// New is implemented once per build: lz4codec_cgo.go
// (build tag cgo) or lz4codec_native.go (build tag !cgo).
