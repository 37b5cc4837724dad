package stats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetPreservesBuffersAndSize(t *testing.T) {
	s := New()
	s.AllocFail.Store(7)
	s.Lz4PassAllowed.Store(3)
	s.Buffers.Store(4)
	s.Size.Store(4096)

	s.Reset()

	assert.Zero(t, s.AllocFail.Load())
	assert.Zero(t, s.Lz4PassAllowed.Load())
	assert.EqualValues(t, 4, s.Buffers.Load())
	assert.EqualValues(t, 4096, s.Size.Load())
}

func TestCollectEmitsEveryCounter(t *testing.T) {
	s := New()
	s.CompressFailed.Store(2)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(s))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.Metric {
			names[mf.GetName()] = m.GetCounter().GetValue()
		}
	}

	assert.Len(t, names, len(s.defs()))
	assert.Equal(t, float64(2), names["zblock_compress_failed"])
	if _, ok := names["zblock_alloc_fail"]; !ok {
		t.Fatalf("expected zblock_alloc_fail to be registered")
	}
}
