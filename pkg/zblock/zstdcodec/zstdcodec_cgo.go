//go:build cgo
// +build cgo

package zstdcodec

/*
#cgo linux CFLAGS: -O3
#cgo linux LDFLAGS: -O3 -lzstd
#cgo darwin,amd64 LDFLAGS: -O3 -lzstd
#cgo darwin,arm64 LDFLAGS: -O3 -lzstd
#include <stdint.h>
#include <stdlib.h>
#include <zstd.h>

extern void *zblockCustomAlloc(void *opaque, size_t size);
extern void zblockCustomFree(void *opaque, void *address);

static ZSTD_CCtx *zblock_create_cctx(void *opaque) {
	ZSTD_customMem cmem = { zblockCustomAlloc, zblockCustomFree, opaque };
	return ZSTD_createCCtx_advanced(cmem);
}

static ZSTD_DCtx *zblock_create_dctx(void *opaque) {
	ZSTD_customMem cmem = { zblockCustomAlloc, zblockCustomFree, opaque };
	return ZSTD_createDCtx_advanced(cmem);
}

static size_t zblock_cctx_set(ZSTD_CCtx *cctx, ZSTD_cParameter p, int value) {
	return ZSTD_CCtx_setParameter(cctx, p, value);
}

static size_t zblock_compress2(ZSTD_CCtx *cctx, void *dst, size_t dstCap, const void *src, size_t srcSize) {
	return ZSTD_compress2(cctx, dst, dstCap, src, srcSize);
}

static size_t zblock_decompress_dctx(ZSTD_DCtx *dctx, void *dst, size_t dstCap, const void *src, size_t srcSize) {
	return ZSTD_decompressDCtx(dctx, dst, dstCap, src, srcSize);
}
*/
import "C"

import (
	"fmt"
	"runtime/cgo"
	"unsafe"

	"github.com/adamdmoss/zstdblock/pkg/zblock/alloc"
)

// allocHeaderSize is the size_t prefix every customMem allocation carries,
// so zblockCustomFree can recover how many bytes to release from the
// shim's budget from the pointer alone - ZSTD_freeFunction is never told
// the size, only the address. This mirrors the header-prefixed allocation
// the original zstd_mempool_free uses to recover its own bookkeeping.
const allocHeaderSize = C.size_t(unsafe.Sizeof(C.size_t(0)))

//export zblockCustomAlloc
func zblockCustomAlloc(opaque unsafe.Pointer, size C.size_t) unsafe.Pointer {
	shim := shimFromOpaque(opaque)
	total := size + allocHeaderSize
	if !shim.Reserve(int(total)) {
		return nil
	}
	raw := C.malloc(total)
	if raw == nil {
		shim.Free(int(total))
		return nil
	}
	*(*C.size_t)(raw) = total
	return unsafe.Pointer(uintptr(raw) + uintptr(allocHeaderSize))
}

//export zblockCustomFree
func zblockCustomFree(opaque unsafe.Pointer, address unsafe.Pointer) {
	if address == nil {
		return
	}
	raw := unsafe.Pointer(uintptr(address) - uintptr(allocHeaderSize))
	total := *(*C.size_t)(raw)
	C.free(raw)
	shimFromOpaque(opaque).Free(int(total))
}

func shimFromOpaque(opaque unsafe.Pointer) *alloc.Shim {
	return cgo.Handle(uintptr(opaque)).Value().(*alloc.Shim)
}

type cgoCCtx struct {
	ptr    *C.ZSTD_CCtx
	handle cgo.Handle
}

// NewCCtx creates a fresh cgo-backed compression context whose internal
// working memory is allocated through shim, so the best-effort compress
// budget actually governs what libzstd can allocate rather than only the
// destination buffer the caller already sized.
func NewCCtx(shim *alloc.Shim) (CCtx, error) {
	h := cgo.NewHandle(shim)
	ptr := C.zblock_create_cctx(unsafe.Pointer(uintptr(h)))
	if ptr == nil {
		h.Delete()
		return nil, fmt.Errorf("zstd: compression context creation failed")
	}
	return &cgoCCtx{ptr: ptr, handle: h}, nil
}

func (c *cgoCCtx) Configure(p Params) error {
	set := func(param C.ZSTD_cParameter, value int) error {
		if status := C.zblock_cctx_set(c.ptr, param, C.int(value)); C.ZSTD_isError(status) != 0 {
			return &Error{Code: ErrorGeneric, Msg: C.GoString(C.ZSTD_getErrorName(status))}
		}
		return nil
	}

	if err := set(C.ZSTD_c_compressionLevel, int(p.Level)); err != nil {
		return err
	}
	format := C.ZSTD_f_zstd1
	if p.Format == FormatMagicless {
		format = C.ZSTD_f_zstd1_magicless
	}
	if err := set(C.ZSTD_c_format, int(format)); err != nil {
		return err
	}
	checksum := 0
	if p.ChecksumFlag {
		checksum = 1
	}
	if err := set(C.ZSTD_c_checksumFlag, checksum); err != nil {
		return err
	}
	contentSize := 0
	if p.ContentSizeFlag {
		contentSize = 1
	}
	if err := set(C.ZSTD_c_contentSizeFlag, contentSize); err != nil {
		return err
	}

	// Every advanced parameter is set on every Configure call, not only
	// when UseAdvanced is set: a context borrowed from the pool may carry
	// strategy overrides left behind by an earlier TUNED probe, and 0 is
	// libzstd's own "use the compression level's default" sentinel for
	// each of these fields, so a plain Params{} safely clears them.
	strategy := p.Strategy
	if !p.UseAdvanced {
		strategy = 0
	}

	if err := set(C.ZSTD_c_windowLog, p.WindowLog); err != nil {
		return err
	}
	if err := set(C.ZSTD_c_hashLog, p.HashLog); err != nil {
		return err
	}
	if err := set(C.ZSTD_c_chainLog, p.ChainLog); err != nil {
		return err
	}
	if err := set(C.ZSTD_c_searchLog, p.SearchLog); err != nil {
		return err
	}
	if err := set(C.ZSTD_c_minMatch, p.MinMatch); err != nil {
		return err
	}
	if err := set(C.ZSTD_c_targetLength, p.TargetLength); err != nil {
		return err
	}
	if err := set(C.ZSTD_c_strategy, int(strategy)); err != nil {
		return err
	}
	if err := set(C.ZSTD_c_srcSizeHint, p.SrcSizeHint); err != nil {
		return err
	}
	return nil
}

func (c *cgoCCtx) Compress2(dst, src []byte) (int, error) {
	var srcPtr unsafe.Pointer
	if len(src) > 0 {
		srcPtr = unsafe.Pointer(&src[0])
	}
	if len(dst) == 0 {
		return 0, &Error{Code: ErrorDstSizeTooSmall, Msg: "Destination buffer is too small"}
	}

	result := C.zblock_compress2(c.ptr,
		unsafe.Pointer(&dst[0]), C.size_t(len(dst)),
		srcPtr, C.size_t(len(src)))
	return checkResult(result)
}

func (c *cgoCCtx) Reset() {
	C.ZSTD_CCtx_reset(c.ptr, C.ZSTD_reset_session_only)
}

func (c *cgoCCtx) Close() {
	C.ZSTD_freeCCtx(c.ptr)
	c.handle.Delete()
}

type cgoDCtx struct {
	ptr    *C.ZSTD_DCtx
	handle cgo.Handle
}

// NewDCtx creates a fresh cgo-backed decompression context whose internal
// working memory is allocated through shim. shim is the guaranteed
// decompress-side shim, so this never fails for budget reasons - only a
// real C.malloc failure can turn up as a nil context here.
func NewDCtx(shim *alloc.Shim) (DCtx, error) {
	h := cgo.NewHandle(shim)
	ptr := C.zblock_create_dctx(unsafe.Pointer(uintptr(h)))
	if ptr == nil {
		h.Delete()
		return nil, fmt.Errorf("zstd: decompression context creation failed")
	}
	return &cgoDCtx{ptr: ptr, handle: h}, nil
}

func (d *cgoDCtx) Configure(format Format) error {
	f := C.ZSTD_f_zstd1
	if format == FormatMagicless {
		f = C.ZSTD_f_zstd1_magicless
	}
	if status := C.ZSTD_DCtx_setParameter(d.ptr, C.ZSTD_d_format, C.int(f)); C.ZSTD_isError(status) != 0 {
		return &Error{Code: ErrorGeneric, Msg: C.GoString(C.ZSTD_getErrorName(status))}
	}
	return nil
}

func (d *cgoDCtx) DecompressDCtx(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, &Error{Code: ErrorGeneric, Msg: "empty source"}
	}
	var dstPtr unsafe.Pointer
	if len(dst) > 0 {
		dstPtr = unsafe.Pointer(&dst[0])
	}
	result := C.zblock_decompress_dctx(d.ptr,
		dstPtr, C.size_t(len(dst)),
		unsafe.Pointer(&src[0]), C.size_t(len(src)))
	return checkResult(result)
}

func (d *cgoDCtx) Reset() {
	C.ZSTD_DCtx_reset(d.ptr, C.ZSTD_reset_session_only)
}

func (d *cgoDCtx) Close() {
	C.ZSTD_freeDCtx(d.ptr)
	d.handle.Delete()
}

func checkResult(result C.size_t) (int, error) {
	if C.ZSTD_isError(result) != 0 {
		code := ErrorGeneric
		if C.ZSTD_getErrorCode(result) == C.ZSTD_error_dstSize_tooSmall {
			code = ErrorDstSizeTooSmall
		}
		return 0, &Error{Code: code, Msg: C.GoString(C.ZSTD_getErrorName(result))}
	}
	return int(result), nil
}
