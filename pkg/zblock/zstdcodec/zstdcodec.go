// Package zstdcodec wraps the zstd compression engine behind the narrow
// one-shot contract CompressPath and DecompressPath actually need: create a
// context with a custom allocator, set a handful of advanced parameters,
// run a single compress2/decompressDCtx call, reset the session, and
// introspect errors. Everything else zstd can do is out of scope.
//
// Two implementations exist, selected by build tag exactly like the
// rest of this module's codec layer: zstdcodec_cgo.go links the real
// libzstd and exposes its full ZSTD_c_* parameter surface; zstdcodec_native.go
// falls back to the pure-Go github.com/klauspost/compress/zstd package when
// cgo is unavailable, at reduced parameter fidelity (see that file's
// doc comment).
package zstdcodec

// Strategy mirrors zstd's ZSTD_strategy enum, restricted to the value the
// tuned first-pass probe actually sets.
type Strategy int

// Fast is the only strategy value the adapter ever configures explicitly.
const Fast Strategy = 1

// Format selects whether compressed output carries the 4-byte zstd magic
// number.
type Format int

const (
	// FormatZstd1 is the standard frame format, magic number included.
	FormatZstd1 Format = iota
	// FormatMagicless omits the magic number to save four bytes per
	// block; the caller is assumed to know the format out of band.
	FormatMagicless
)

// Params configures a compression context before a committed or probe
// compress call.
type Params struct {
	Level          int16
	Format         Format
	ChecksumFlag   bool
	ContentSizeFlag bool

	// The following are only set by the TUNED first-pass probe; a zero
	// value leaves zstd's defaults in place.
	WindowLog     int
	HashLog       int
	ChainLog      int
	SearchLog     int
	MinMatch      int
	TargetLength  int
	Strategy      Strategy
	SrcSizeHint   int
	UseAdvanced   bool
}

// ErrorCode mirrors a subset of ZSTD_ErrorCode, the only values
// CompressPath and DecompressPath branch on.
type ErrorCode int

const (
	ErrorNone ErrorCode = iota
	ErrorDstSizeTooSmall
	ErrorGeneric
)

// Error wraps a zstd failure with its error code and the codec's own
// message, mirroring ZSTD_getErrorCode/ZSTD_getErrorString.
type Error struct {
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string { return "zstd: " + e.Msg }

// Version is the encoder version number framed into every BlockHeader this
// package produces, recorded for the decoder's forward-compatibility hook
// but never consulted on decode.
const Version = 1

// CCtx is a compression context. It is expensive to create and safe to
// reuse, which is exactly why pool.Pool exists.
type CCtx interface {
	// Configure applies Params to the context ahead of a Compress2 call.
	Configure(p Params) error
	// Compress2 compresses src into dst and returns the number of
	// compressed bytes written, or a non-nil error; codec failures are
	// reported as *Error.
	Compress2(dst, src []byte) (int, error)
	// Reset clears session-only state (sequences, window) without
	// discarding the configured parameters, so the context can be
	// reused for the next block without reconfiguration cost beyond
	// what Configure itself is cheap enough to redo anyway.
	Reset()
	// Close releases the context back to its allocator.
	Close()
}

// DCtx is a decompression context.
type DCtx interface {
	Configure(format Format) error
	DecompressDCtx(dst, src []byte) (int, error)
	Reset()
	Close()
}

// NewCCtx and NewDCtx create fresh contexts using shim as their allocator.
// Each is implemented once, in zstdcodec_cgo.go (build tag cgo, linking the
// real libzstd) or zstdcodec_native.go (build tag !cgo, the klauspost/compress
// fallback) - never both, so there is exactly one definition per build.
