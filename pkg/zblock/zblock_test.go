package zblock

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamdmoss/zstdblock/internal/config"
	"github.com/adamdmoss/zstdblock/pkg/zblock/levelmap"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a := New(config.DefaultTunables(), nil)
	t.Cleanup(a.Close)
	return a
}

func TestRoundTripHighlyCompressible(t *testing.T) {
	a := newTestAdapter(t)

	src := make([]byte, 4096)
	dst := make([]byte, len(src))

	n := a.Compress(src, dst, 3)
	require.Less(t, n, len(src), "all-zero input must compress")

	out := make([]byte, len(src))
	var level levelmap.FsLevel
	written, err := a.Decompress(dst[:n], out, &level)
	require.NoError(t, err)
	assert.Equal(t, len(src), written)
	assert.Equal(t, src, out)
	assert.EqualValues(t, 3, level)

	// 4096 bytes sits below the default abort threshold T, so probing is
	// skipped entirely and the block goes straight to committed compress.
	assert.Positive(t, a.Stats().PassIgnored.Load())
	assert.Zero(t, a.Stats().CompressFailed.Load())
}

func TestRawSignalingOnIncompressibleInput(t *testing.T) {
	a := newTestAdapter(t)

	src := make([]byte, 131072)
	rand.New(rand.NewSource(1)).Read(src)
	dst := make([]byte, len(src))

	n := a.Compress(src, dst, 5)
	assert.Equal(t, len(src), n, "random data at this size should not compress smaller")
	assert.Positive(t, a.Stats().Lz4PassRejected.Load())
	assert.Zero(t, a.Stats().CompressFailed.Load())
}

func TestBelowThresholdSkipsProbing(t *testing.T) {
	a := newTestAdapter(t)

	src := make([]byte, 8192)
	rand.New(rand.NewSource(2)).Read(src)
	dst := make([]byte, len(src))

	a.Compress(src, dst, 5)

	assert.Positive(t, a.Stats().PassIgnored.Load())
	assert.EqualValues(t, 8192, a.Stats().PassIgnoredSize.Load())
}

func TestInvalidLevelRejectedOnCompress(t *testing.T) {
	a := newTestAdapter(t)

	src := make([]byte, 128)
	dst := make([]byte, len(src))

	n := a.Compress(src, dst, 99)
	assert.Equal(t, len(src), n)
	assert.EqualValues(t, 1, a.Stats().CompressLevelInvalid.Load())
}

func TestInheritIsNeverAcceptedOnCompress(t *testing.T) {
	a := newTestAdapter(t)

	src := make([]byte, 128)
	dst := make([]byte, len(src))

	n := a.Compress(src, dst, levelmap.Inherit)
	assert.Equal(t, len(src), n)
}

func TestDecompressCorruptHeaderIsRejected(t *testing.T) {
	a := newTestAdapter(t)

	src := make([]byte, 4096)
	dst := make([]byte, len(src))
	n := a.Compress(src, dst, 3)
	require.Less(t, n, len(src))

	framed := append([]byte(nil), dst[:n]...)
	// corrupt c_len to claim more payload than actually exists
	framed[0], framed[1], framed[2], framed[3] = 0xFF, 0xFF, 0xFF, 0xFF

	original := append([]byte(nil), framed...)
	out := make([]byte, len(src))
	_, err := a.Decompress(framed, out, nil)
	assert.Error(t, err)
	assert.Equal(t, original, framed, "decompress must never mutate its source buffer")
	assert.EqualValues(t, 1, a.Stats().DecompressHeaderInvalid.Load())
}

func TestRecordedLevelIsTheRequestedLevelNotTuned(t *testing.T) {
	a := newTestAdapter(t)
	tunables := config.DefaultTunables()
	tunables.FirstpassMode = 3 // force the TUNED probe path
	tunables.Lz4ShiftSize = 0  // lz4 target of zero bytes: the lz4 probe always rejects
	a.SetTunables(tunables)

	src := make([]byte, 1<<17)
	dst := make([]byte, len(src))

	n := a.Compress(src, dst, 4)
	require.Less(t, n, len(src))
	assert.Positive(t, a.Stats().ZstdPassAllowed.Load(), "the TUNED zstd probe must have run")

	var level levelmap.FsLevel
	out := make([]byte, len(src))
	_, err := a.Decompress(dst[:n], out, &level)
	require.NoError(t, err)
	assert.EqualValues(t, 4, level, "the persisted level must be the caller's requested level, never the internal TUNED sentinel")
}

func TestConcurrentRoundTripStress(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}

	a := newTestAdapter(t)

	const goroutines = 32
	const iterations = 200
	levels := []levelmap.FsLevel{1, 3, 9, 19, -1, -20, -1000}

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < iterations; i++ {
				size := 1 + rng.Intn(1<<16)
				src := make([]byte, size)
				rng.Read(src)
				level := levels[rng.Intn(len(levels))]

				dst := make([]byte, size)
				n := a.Compress(src, dst, level)
				if n == size {
					continue
				}

				out := make([]byte, size)
				_, err := a.Decompress(dst[:n], out, nil)
				if err != nil {
					t.Errorf("decompress failed: %v", err)
					return
				}
				if string(out) != string(src) {
					t.Errorf("round trip mismatch at level %d", level)
					return
				}
			}
		}(int64(g))
	}
	wg.Wait()
}
