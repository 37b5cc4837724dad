// Package alloc presents malloc/free semantics to the zstd codec over the
// host's allocator. Go's garbage-collected heap means there is no
// real free-list to hand the codec, but the two shims still differ in the
// failure policy a caller needs: the compress-side shim is allowed to say
// "no" under memory pressure, while the decompress-side shim is not.
package alloc

import "sync/atomic"

// Shim is handed to a codec as its allocator. The codec charges each
// allocation with Reserve (or Alloc, which also returns a Go buffer) and
// releases it with Free. Free is a bookkeeping hook rather than a release of
// memory: Go's GC reclaims Alloc'd buffers, and the cgo bridge frees its own
// C memory.
type Shim struct {
	// guaranteed selects the decompress-side policy: Alloc never fails.
	guaranteed bool

	// budget caps outstanding bytes for the best-effort (compress-side)
	// shim; zero means unbounded. It exists so tests, and operators who
	// want to reproduce "compression unavailable" behavior under memory
	// pressure, can exercise the AllocFail path deterministically.
	budget int64

	outstanding atomic.Int64

	onAllocFail func()
}

// Option configures a Shim at construction time.
type Option func(*Shim)

// WithBudget caps the number of outstanding bytes the best-effort shim will
// hand out before Alloc starts failing. Ignored by a guaranteed shim.
func WithBudget(bytes int64) Option {
	return func(s *Shim) { s.budget = bytes }
}

// WithAllocFailHook registers a callback invoked every time Alloc fails,
// used by CompressPath to bump the alloc_fail counter without alloc
// importing the stats package.
func WithAllocFailHook(hook func()) Option {
	return func(s *Shim) { s.onAllocFail = hook }
}

// NewBestEffort returns the compress-side shim (tag=0 in the spec): Alloc
// may fail under pressure, in which case the caller must fall back to
// storing the block uncompressed.
func NewBestEffort(opts ...Option) *Shim {
	s := &Shim{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewGuaranteed returns the decompress-side shim (tag!=0 in the spec):
// Alloc always succeeds, because a failed allocation on the read path would
// mean a previously-written block can no longer be read back.
func NewGuaranteed(opts ...Option) *Shim {
	s := &Shim{guaranteed: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reserve charges size bytes against the best-effort shim's budget,
// reporting whether the charge fit. It exists separately from Alloc for
// callers (the cgo customMem bridge) that hand the codec real C memory
// rather than a Go byte slice, so budget accounting does not require an
// otherwise-unused Go allocation on every call.
func (s *Shim) Reserve(size int) bool {
	if !s.guaranteed && s.budget > 0 {
		if s.outstanding.Add(int64(size)) > s.budget {
			s.outstanding.Add(-int64(size))
			if s.onAllocFail != nil {
				s.onAllocFail()
			}
			return false
		}
	}
	return true
}

// Alloc returns a zeroed byte slice of the requested size, or nil if the
// best-effort shim's budget is exhausted. A guaranteed shim never returns
// nil.
func (s *Shim) Alloc(size int) []byte {
	if !s.Reserve(size) {
		return nil
	}
	return make([]byte, size)
}

// Outstanding reports the number of bytes currently tracked as allocated by
// a budgeted shim. Unbudgeted and guaranteed shims always report zero,
// since they keep no such accounting.
func (s *Shim) Outstanding() int64 {
	if s.guaranteed || s.budget == 0 {
		return 0
	}
	return s.outstanding.Load()
}

// Free releases the accounting for a size previously charged by Alloc or
// Reserve. It is a no-op beyond bookkeeping: the underlying memory is
// reclaimed by the garbage collector (Alloc'd buffers) or by the caller's
// own C.free (the cgo customMem bridge, which pairs Free with Reserve and
// holds no Go buffer).
//
// Free takes the exact size passed to the matching Alloc or Reserve rather than
// deriving it from the returned buffer, since a caller that reslices or
// grows its view of that buffer before releasing it would otherwise
// desynchronize the outstanding counter.
func (s *Shim) Free(size int) {
	if !s.guaranteed && s.budget > 0 {
		s.outstanding.Add(-int64(size))
	}
}
