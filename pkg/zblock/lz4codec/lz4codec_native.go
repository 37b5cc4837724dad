//go:build !cgo
// +build !cgo

// pierrec/lz4/v4's block API has no acceleration parameter the way
// LZ4_compress_fast does; its default fast compressor is used for every
// probe regardless of the caller's requested acceleration.
package lz4codec

import (
	"errors"

	"github.com/pierrec/lz4/v4"
)

type nativeCompressor struct{}

// New creates the pure-Go lz4 probe compressor.
func New() Compressor {
	return nativeCompressor{}
}

func (nativeCompressor) CompressBound(srcLen int) int {
	return lz4.CompressBlockBound(srcLen)
}

func (nativeCompressor) Compress(dst, src []byte, _ int) (int, error) {
	n, err := lz4.CompressBlock(src, dst, nil)
	if err != nil {
		return 0, err
	}
	if n == 0 && len(src) > 0 {
		return 0, errors.New("lz4: probe did not fit in destination")
	}
	return n, nil
}

func (nativeCompressor) Close() {}
