//go:build !cgo
// +build !cgo

// This file backs zstdcodec without cgo, using the pure-Go
// github.com/klauspost/compress/zstd package. It is an approximation of the
// cgo path in zstdcodec_cgo.go: klauspost's Encoder/Decoder do not expose
// libzstd's raw ZSTD_c_windowLog/hashLog/chainLog/searchLog/minMatch/
// targetLength/strategy knobs, nor a true magicless frame format. The
// TUNED first-pass probe's advanced strategy parameters are therefore
// approximated by the closest klauspost encoder level and window-size
// option rather than applied verbatim; see Configure below.
package zstdcodec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/adamdmoss/zstdblock/pkg/zblock/alloc"
)

// defaultWindowEstimate approximates the working-set size of a klauspost
// encoder at its default window when Configure does not request an
// explicit windowLog, so the best-effort budget has something concrete to
// charge even though klauspost exposes no allocator hook of its own.
const defaultWindowEstimate = 1 << 21

type nativeCCtx struct {
	enc      *zstd.Encoder
	shim     *alloc.Shim
	reserved int
}

// NewCCtx creates a fresh klauspost-backed compression context. The
// encoder itself is lazily (re-)created on Configure, since klauspost's
// Encoder does not support changing its level after construction.
func NewCCtx(shim *alloc.Shim) (CCtx, error) {
	return &nativeCCtx{shim: shim}, nil
}

// Configure (re-)creates the underlying encoder. klauspost/compress takes
// no custom allocator, so the working memory its window implies is instead
// charged against shim as an estimate: the best-effort compress budget
// still gets a say in whether a given window size is affordable, even
// though the bytes themselves are allocated by klauspost, not by shim.
func (c *nativeCCtx) Configure(p Params) error {
	level := zstd.EncoderLevelFromZstd(int(p.Level))

	estimate := defaultWindowEstimate
	opts := []zstd.EOption{
		zstd.WithEncoderLevel(level),
		zstd.WithEncoderCRC(p.ChecksumFlag),
		zstd.WithEncoderConcurrency(1),
	}
	if p.UseAdvanced && p.WindowLog > 0 {
		estimate = 1 << uint(p.WindowLog)
		opts = append(opts, zstd.WithWindowSize(estimate))
	}

	if !c.shim.Reserve(estimate) {
		return fmt.Errorf("zstd: compression budget exhausted for window estimate of %d bytes", estimate)
	}

	if c.enc != nil {
		_ = c.enc.Close()
	}
	c.shim.Free(c.reserved)
	c.reserved = 0

	enc, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		c.shim.Free(estimate)
		return fmt.Errorf("zstd: compression context init failed: %w", err)
	}
	c.enc = enc
	c.reserved = estimate
	return nil
}

func (c *nativeCCtx) Compress2(dst, src []byte) (int, error) {
	if c.enc == nil {
		return 0, fmt.Errorf("zstd: context not configured")
	}
	out := c.enc.EncodeAll(src, dst[:0])
	if len(out) > len(dst) {
		return 0, &Error{Code: ErrorDstSizeTooSmall, Msg: "Destination buffer is too small"}
	}
	return len(out), nil
}

func (c *nativeCCtx) Reset() {
	// klauspost's Encoder is stateless between EncodeAll calls; nothing to
	// reset beyond what the next Configure will already replace.
}

func (c *nativeCCtx) Close() {
	if c.enc != nil {
		_ = c.enc.Close()
	}
	c.shim.Free(c.reserved)
	c.reserved = 0
}

type nativeDCtx struct {
	dec      *zstd.Decoder
	shim     *alloc.Shim
	reserved int
}

// NewDCtx creates a fresh klauspost-backed decompression context, charging
// its working-set estimate against the guaranteed decompress-side shim.
// shim is guaranteed, so this reservation never fails; a guaranteed shim
// keeps no byte accounting, so it does not show up in Outstanding().
func NewDCtx(shim *alloc.Shim) (DCtx, error) {
	dec, err := zstd.NewReader(nil,
		zstd.IgnoreChecksum(true),
		zstd.WithDecoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd: decompression context init failed: %w", err)
	}
	shim.Reserve(defaultWindowEstimate)
	return &nativeDCtx{dec: dec, shim: shim, reserved: defaultWindowEstimate}, nil
}

func (d *nativeDCtx) Configure(_ Format) error {
	// klauspost's Decoder auto-detects the frame format; there is nothing
	// to configure per call.
	return nil
}

func (d *nativeDCtx) DecompressDCtx(dst, src []byte) (int, error) {
	out, err := d.dec.DecodeAll(src, dst[:0])
	if err != nil {
		return 0, &Error{Code: ErrorGeneric, Msg: err.Error()}
	}
	return len(out), nil
}

func (d *nativeDCtx) Reset() {}

func (d *nativeDCtx) Close() {
	d.dec.Close()
	d.shim.Free(d.reserved)
	d.reserved = 0
}
