//go:build cgo
// +build cgo

package lz4codec

/*
#cgo linux CFLAGS: -O3
#cgo linux LDFLAGS: -O3 -llz4
#cgo darwin,amd64 LDFLAGS: -O3 -llz4
#cgo darwin,arm64 LDFLAGS: -O3 -llz4
#include "lz4.h"
*/
import "C"

import (
	"errors"
	"unsafe"
)

type cgoCompressor struct{}

// New creates the cgo-backed lz4 probe compressor, linking real liblz4.
func New() Compressor {
	return cgoCompressor{}
}

func (cgoCompressor) CompressBound(srcLen int) int {
	return int(C.LZ4_compressBound(C.int(srcLen)))
}

func (cgoCompressor) Compress(dst, src []byte, acceleration int) (int, error) {
	var srcPtr, dstPtr unsafe.Pointer
	if len(src) > 0 {
		srcPtr = unsafe.Pointer(&src[0])
	}
	if len(dst) > 0 {
		dstPtr = unsafe.Pointer(&dst[0])
	}

	n := int(C.LZ4_compress_fast(
		(*C.char)(srcPtr),
		(*C.char)(dstPtr),
		C.int(len(src)),
		C.int(len(dst)),
		C.int(acceleration),
	))
	if n <= 0 {
		return 0, errors.New("lz4: probe compression failed or did not fit")
	}
	return n, nil
}

func (cgoCompressor) Close() {}
