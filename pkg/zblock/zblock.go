// Package zblock ties LevelMap, BlockHeader, the two working-state pools,
// and the zstd/lz4 codec contracts together into the adapter's two public
// operations, Compress and Decompress. Everything else in this module
// exists to serve one of those two calls.
package zblock

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/adamdmoss/zstdblock/internal/config"
	"github.com/adamdmoss/zstdblock/pkg/zblock/alloc"
	"github.com/adamdmoss/zstdblock/pkg/zblock/header"
	"github.com/adamdmoss/zstdblock/pkg/zblock/levelmap"
	"github.com/adamdmoss/zstdblock/pkg/zblock/lz4codec"
	"github.com/adamdmoss/zstdblock/pkg/zblock/pool"
	"github.com/adamdmoss/zstdblock/pkg/zblock/stats"
	"github.com/adamdmoss/zstdblock/pkg/zblock/zstdcodec"
)

// lz4Acceleration is the acceleration factor passed to every lz4 probe. The
// tunable parameter surface (config.Tunables) does not expose it
// separately because the source never varies it.
const lz4Acceleration = 1

// Adapter is the compression adapter described by the external interfaces:
// two pools of working-state objects, an lz4 probe compressor, and the
// runtime-mutable tunable parameter surface. A single Adapter is meant to
// be shared across every concurrent block request.
type Adapter struct {
	tunables atomic.Pointer[config.Tunables]

	stats *stats.Sink

	compressShim   *alloc.Shim
	decompressShim *alloc.Shim

	compressPool   *pool.Pool[zstdcodec.CCtx]
	decompressPool *pool.Pool[zstdcodec.DCtx]

	lz4 lz4codec.Compressor
}

// New constructs an Adapter. sink may be nil, in which case a fresh Sink is
// allocated; callers that want to register it with Prometheus should hold
// onto their own *stats.Sink and pass it in instead.
func New(tunables config.Tunables, sink *stats.Sink) *Adapter {
	if sink == nil {
		sink = stats.New()
	}

	a := &Adapter{stats: sink}
	a.tunables.Store(&tunables)

	a.compressShim = alloc.NewBestEffort(alloc.WithAllocFailHook(func() {
		a.stats.AllocFail.Add(1)
		a.stats.CompressAllocFail.Add(1)
	}))
	a.decompressShim = alloc.NewGuaranteed()

	a.compressPool = pool.New("compress",
		func() (*zstdcodec.CCtx, error) {
			ctx, err := zstdcodec.NewCCtx(a.compressShim)
			if err != nil {
				return nil, err
			}
			return &ctx, nil
		},
		func(ctx *zstdcodec.CCtx) { (*ctx).Close() },
		func(ctx *zstdcodec.CCtx) { (*ctx).Reset() },
	)

	a.decompressPool = pool.New("decompress",
		func() (*zstdcodec.DCtx, error) {
			ctx, err := zstdcodec.NewDCtx(a.decompressShim)
			if err != nil {
				return nil, err
			}
			return &ctx, nil
		},
		func(ctx *zstdcodec.DCtx) { (*ctx).Close() },
		func(ctx *zstdcodec.DCtx) { (*ctx).Reset() },
	)

	a.lz4 = lz4codec.New()

	return a
}

// Tunables returns a copy of the adapter's current tunable parameter
// surface.
func (a *Adapter) Tunables() config.Tunables { return *a.tunables.Load() }

// SetTunables replaces the tunable parameter surface atomically. It may be
// called concurrently with Compress/Decompress; in-flight calls finish with
// whichever surface they already loaded.
func (a *Adapter) SetTunables(t config.Tunables) { a.tunables.Store(&t) }

// Stats returns the adapter's counter sink.
func (a *Adapter) Stats() *stats.Sink { return a.stats }

// Reap idle-reaps both pools. Callers are expected to invoke this
// periodically (see RunReaper) rather than on every block request.
func (a *Adapter) Reap() {
	reapPool(a.compressPool)
	reapPool(a.decompressPool)
	a.refreshPoolStats()
}

// reapPool calls Reap on p and logs at debug level when it actually shrank
// the pool, so an operator watching the reaper's logs can see the pool's
// footprint without every tick (most of which are no-ops) producing a line.
func reapPool[T any](p *pool.Pool[T]) {
	before := p.Cap()
	p.Reap()
	if after := p.Cap(); after < before {
		slog.Debug("pool reaped", "pool", p.Name, "cap_before", before, "cap_after", after)
	}
}

// RunReaper calls Reap on the given interval until ctx is cancelled. It is
// the adapter's only background goroutine; nothing else in this package
// spawns one.
func (a *Adapter) RunReaper(ctx context.Context, interval time.Duration) {
	slog.Info("pool reaper starting", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("pool reaper stopping")
			return
		case <-ticker.C:
			a.Reap()
		}
	}
}

// Close destroys both pools and releases the lz4 probe compressor. It
// assumes no Compress/Decompress call is in flight.
func (a *Adapter) Close() {
	a.compressPool.Destroy()
	a.decompressPool.Destroy()
	a.lz4.Close()
}

// refreshPoolStats stores the pools' cached-object count in Buffers and the
// sum of the two shims' Outstanding byte counts in Size. Only a best-effort
// shim with a budget tracks Outstanding; New builds both shims without one,
// so Size stays zero.
func (a *Adapter) refreshPoolStats() {
	a.stats.Buffers.Store(uint64(a.compressPool.Len() + a.decompressPool.Len()))
	a.stats.Size.Store(uint64(a.compressShim.Outstanding() + a.decompressShim.Outstanding()))
}

// Compress implements CompressPath. It returns the number of framed bytes
// written to dst, or len(src) to signal "store this block uncompressed".
// dst must have capacity at least len(src); the caller is responsible for
// that invariant, matching the source contract.
func (a *Adapter) Compress(src, dst []byte, fsLevel levelmap.FsLevel) int {
	srcLen := len(src)

	if !levelmap.Valid(fsLevel) {
		a.stats.CompressLevelInvalid.Add(1)
		return srcLen
	}
	codecLevel, _ := levelmap.ToCodecLevel(fsLevel)

	if len(dst) < header.Size+1 {
		return srcLen
	}

	tunables := a.Tunables()
	threshold := abortThreshold(fsLevel, tunables)

	var probeCtx *zstdcodec.CCtx

	switch {
	case tunables.HardMoed > 0:
		// hard_moed forces the committed path regardless of any probe
		// outcome - probing is skipped entirely rather than run and
		// ignored, since its only effect would be wasted CPU.

	case tunables.Lz4Pass && fsLevel >= levelmap.FsLevel(tunables.CutoffLevel) && int64(srcLen) >= threshold:
		if a.lz4Probe(src, tunables) {
			a.stats.Lz4PassAllowed.Add(1)
			break
		}
		a.stats.Lz4PassRejected.Add(1)

		if !tunables.ZstdPass {
			return srcLen
		}

		ok, ctxPtr := a.zstdProbe(src, dst, tunables)
		if !ok {
			if ctxPtr != nil {
				a.compressPool.Ungrab(ctxPtr)
			}
			a.stats.ZstdPassRejected.Add(1)
			return srcLen
		}
		a.stats.ZstdPassAllowed.Add(1)
		probeCtx = ctxPtr

	default:
		a.stats.PassIgnored.Add(1)
		a.stats.PassIgnoredSize.Add(uint64(srcLen))
	}

	ctxPtr := probeCtx
	if ctxPtr == nil {
		var ok bool
		ctxPtr, ok = a.compressPool.Grab()
		if !ok {
			a.stats.AllocFail.Add(1)
			a.stats.CompressAllocFail.Add(1)
			return srcLen
		}
	}
	ctx := *ctxPtr
	defer a.compressPool.Ungrab(ctxPtr)

	params := zstdcodec.Params{
		Level:  codecLevel,
		Format: zstdcodec.FormatMagicless,
	}
	if err := ctx.Configure(params); err != nil {
		ctx.Reset()
		a.stats.CompressFailed.Add(1)
		return srcLen
	}

	n, err := ctx.Compress2(dst[header.Size:], src)
	if err != nil {
		ctx.Reset()
		if zerr, ok := err.(*zstdcodec.Error); ok && zerr.Code == zstdcodec.ErrorDstSizeTooSmall {
			return srcLen
		}
		a.stats.CompressFailed.Add(1)
		return srcLen
	}
	if n+header.Size >= srcLen {
		// compressed output (plus its header) is not actually smaller
		// than storing the block raw
		return srcLen
	}

	if err := header.EncodeInto(dst, uint32(n), zstdcodec.Version, fsLevel); err != nil {
		a.stats.CompressFailed.Add(1)
		return srcLen
	}

	a.refreshPoolStats()
	return n + header.Size
}

// lz4Probe reports whether src compresses under the lz4-derived target
// size. Its output bytes are discarded; only the fit/no-fit verdict
// matters.
func (a *Adapter) lz4Probe(src []byte, tunables config.Tunables) bool {
	target := int64(len(src)) - int64(len(src))>>tunables.Lz4ShiftSize

	scratch := make([]byte, a.lz4.CompressBound(len(src)))
	n, err := a.lz4.Compress(scratch, src, lz4Acceleration)
	if err != nil {
		return false
	}
	return int64(n) <= target
}

// zstdProbe runs the second-pass zstd probe selected by firstpass_mode,
// writing into dst's payload region. It always returns the borrowed
// context (nil only on pool exhaustion) so the caller can either keep it
// for the committed compress that follows a successful probe, or return it
// on rejection.
func (a *Adapter) zstdProbe(src, dst []byte, tunables config.Tunables) (bool, *zstdcodec.CCtx) {
	ctxPtr, ok := a.compressPool.Grab()
	if !ok {
		a.stats.AllocFail.Add(1)
		a.stats.CompressAllocFail.Add(1)
		return false, nil
	}
	ctx := *ctxPtr

	params := zstdcodec.Params{Format: zstdcodec.FormatMagicless}
	switch tunables.FirstpassMode {
	case 2:
		params.Level = 2
	case 3:
		params.Level = 2
		params.UseAdvanced = true
		params.WindowLog = 21
		params.HashLog = 15
		params.ChainLog = 16
		params.SearchLog = 1
		params.MinMatch = 6
		params.TargetLength = 0
		params.Strategy = zstdcodec.Fast
		params.SrcSizeHint = len(src)
	default:
		params.Level = 1
	}

	if err := ctx.Configure(params); err != nil {
		return false, ctxPtr
	}
	if len(dst) <= header.Size {
		return false, ctxPtr
	}

	n, err := ctx.Compress2(dst[header.Size:], src)
	if err != nil || n >= len(src) {
		return false, ctxPtr
	}
	return true, ctxPtr
}

// abortThreshold computes T, the early-abort heuristic's minimum src_len
// before probing is even attempted. The scaling rule keyed on cutoff_level
// is gated by ea_division_mode and disabled by default.
func abortThreshold(fsLevel levelmap.FsLevel, tunables config.Tunables) int64 {
	t := tunables.AbortSize
	if !tunables.EaDivisionMode || tunables.EaLevelFactor <= 0 || tunables.EaDivisor <= 1 {
		return t
	}
	if fsLevel <= levelmap.FsLevel(tunables.CutoffLevel) {
		return t
	}

	steps := int64(fsLevel-levelmap.FsLevel(tunables.CutoffLevel)) / int64(tunables.EaLevelFactor)
	for i := int64(0); i < steps; i++ {
		t /= int64(tunables.EaDivisor)
		if t <= 8193 {
			return 8193
		}
	}
	return t
}

// Decompress implements DecompressPath. It returns the number of plain
// bytes written to dst and a nil error on success. On any failure it
// returns a non-nil error and leaves dst's contents unspecified; src is
// never mutated either way. outLevel, if non-nil, receives the decoded
// FsLevel on success only.
func (a *Adapter) Decompress(src, dst []byte, outLevel *levelmap.FsLevel) (int, error) {
	if len(src) < header.Size {
		a.stats.DecompressHeaderInvalid.Add(1)
		return 0, fmt.Errorf("zblock: source too small for a block header")
	}

	h, err := header.Decode(src)
	if err != nil {
		a.stats.DecompressLevelInvalid.Add(1)
		return 0, fmt.Errorf("zblock: decode header: %w", err)
	}
	if !levelmap.Valid(h.Level) {
		a.stats.DecompressLevelInvalid.Add(1)
		return 0, fmt.Errorf("zblock: level %d is not a valid persisted level", h.Level)
	}
	if uint64(h.CLen)+uint64(header.Size) > uint64(len(src)) {
		a.stats.DecompressHeaderInvalid.Add(1)
		return 0, fmt.Errorf("zblock: c_len %d exceeds source length %d", h.CLen, len(src))
	}

	ctxPtr, ok := a.decompressPool.Grab()
	if !ok {
		a.stats.DecompressAllocFail.Add(1)
		return 0, fmt.Errorf("zblock: no decompression context available")
	}
	ctx := *ctxPtr
	defer a.decompressPool.Ungrab(ctxPtr)

	if err := ctx.Configure(zstdcodec.FormatMagicless); err != nil {
		ctx.Reset()
		a.stats.DecompressFailed.Add(1)
		return 0, fmt.Errorf("zblock: configure decompression context: %w", err)
	}

	payload := src[header.Size : uint64(header.Size)+uint64(h.CLen)]
	n, err := ctx.DecompressDCtx(dst, payload)
	if err != nil {
		ctx.Reset()
		a.stats.DecompressFailed.Add(1)
		return 0, fmt.Errorf("zblock: decompress: %w", err)
	}

	if outLevel != nil {
		*outLevel = h.Level
	}
	a.refreshPoolStats()
	return n, nil
}
