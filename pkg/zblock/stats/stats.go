// Package stats exposes the adapter's outcome counters to Prometheus. The
// counters carry no semantic meaning for correctness - they are advisory,
// incremented without ordering guarantees from arbitrary goroutines.
package stats

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink is a flat record of monotonic counters, one per outcome the
// CompressPath and DecompressPath can produce. All fields are safe for
// concurrent use.
type Sink struct {
	AllocFail             atomic.Uint64
	CompressAllocFail     atomic.Uint64
	DecompressAllocFail   atomic.Uint64
	CompressLevelInvalid  atomic.Uint64
	DecompressLevelInvalid atomic.Uint64
	DecompressHeaderInvalid atomic.Uint64
	CompressFailed        atomic.Uint64
	DecompressFailed      atomic.Uint64
	Lz4PassAllowed        atomic.Uint64
	Lz4PassRejected       atomic.Uint64
	ZstdPassAllowed       atomic.Uint64
	ZstdPassRejected      atomic.Uint64
	PassIgnored           atomic.Uint64
	PassIgnoredSize       atomic.Uint64

	// Buffers and Size reflect live pool footprint, not cumulative
	// history, and are therefore untouched by Reset.
	Buffers atomic.Uint64
	Size    atomic.Uint64
}

// New returns a zeroed Sink.
func New() *Sink {
	return &Sink{}
}

// Reset clears every outcome counter but preserves Buffers and Size, which
// describe the pools' current footprint rather than accumulated history.
func (s *Sink) Reset() {
	s.AllocFail.Store(0)
	s.CompressAllocFail.Store(0)
	s.DecompressAllocFail.Store(0)
	s.CompressLevelInvalid.Store(0)
	s.DecompressLevelInvalid.Store(0)
	s.DecompressHeaderInvalid.Store(0)
	s.CompressFailed.Store(0)
	s.DecompressFailed.Store(0)
	s.Lz4PassAllowed.Store(0)
	s.Lz4PassRejected.Store(0)
	s.ZstdPassAllowed.Store(0)
	s.ZstdPassRejected.Store(0)
	s.PassIgnored.Store(0)
	s.PassIgnoredSize.Store(0)
}

// counterDef binds a counter's exported name to the atomic field backing
// it, so Describe/Collect can iterate over the Sink without reflection.
type counterDef struct {
	name string
	help string
	get  func() uint64
}

func (s *Sink) defs() []counterDef {
	return []counterDef{
		{"alloc_fail", "allocations that failed regardless of path", s.AllocFail.Load},
		{"compress_alloc_fail", "compress-side context allocations that failed", s.CompressAllocFail.Load},
		{"decompress_alloc_fail", "decompress-side context allocations that failed", s.DecompressAllocFail.Load},
		{"compress_level_invalid", "compress calls with an invalid requested level", s.CompressLevelInvalid.Load},
		{"decompress_level_invalid", "decompress calls with an invalid encoded level", s.DecompressLevelInvalid.Load},
		{"decompress_header_invalid", "decompress calls with a malformed block header", s.DecompressHeaderInvalid.Load},
		{"compress_failed", "committed compressions that failed for a reason other than size", s.CompressFailed.Load},
		{"decompress_failed", "decompressions that failed", s.DecompressFailed.Load},
		{"lz4pass_allowed", "lz4 probes that fit under the target size", s.Lz4PassAllowed.Load},
		{"lz4pass_rejected", "lz4 probes that did not fit under the target size", s.Lz4PassRejected.Load},
		{"zstdpass_allowed", "zstd probes that fit under the destination capacity", s.ZstdPassAllowed.Load},
		{"zstdpass_rejected", "zstd probes that did not fit or errored", s.ZstdPassRejected.Load},
		{"passignored", "blocks for which probing was skipped", s.PassIgnored.Load},
		{"passignored_size", "total bytes of blocks for which probing was skipped", s.PassIgnoredSize.Load},
		{"buffers", "live working-state objects currently cached across both pools", s.Buffers.Load},
		{"size", "bytes currently charged against budgeted allocator shims", s.Size.Load},
	}
}

// Describe implements prometheus.Collector.
func (s *Sink) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range s.defs() {
		ch <- prometheus.NewDesc(metricName(d.name), d.help, nil, nil)
	}
}

// Collect implements prometheus.Collector.
func (s *Sink) Collect(ch chan<- prometheus.Metric) {
	for _, d := range s.defs() {
		ch <- prometheus.MustNewConstMetric(
			prometheus.NewDesc(metricName(d.name), d.help, nil, nil),
			prometheus.CounterValue,
			float64(d.get()),
		)
	}
}

func metricName(field string) string {
	return "zblock_" + field
}
