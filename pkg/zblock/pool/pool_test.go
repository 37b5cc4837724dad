package pool

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	id     int
	resets int
	freed  bool
}

func newTestPool(t *testing.T) (*Pool[widget], *int32counter) {
	t.Helper()
	ids := &int32counter{}
	p := New("widget",
		func() (*widget, error) {
			ids.n++
			return &widget{id: ids.n}, nil
		},
		func(w *widget) { w.freed = true },
		func(w *widget) { w.resets++ },
	)
	return p, ids
}

type int32counter struct{ n int }

func TestGrabAllocatesWhenEmpty(t *testing.T) {
	p, ids := newTestPool(t)

	w, ok := p.Grab()
	require.True(t, ok)
	require.NotNil(t, w)
	assert.Equal(t, 1, ids.n)
	assert.Equal(t, 1, p.Cap())
	assert.Equal(t, 0, p.Len())
}

func TestUngrabThenGrabReusesObject(t *testing.T) {
	p, ids := newTestPool(t)

	w, ok := p.Grab()
	require.True(t, ok)
	p.Ungrab(w)
	assert.Equal(t, 1, p.Len())

	w2, ok := p.Grab()
	require.True(t, ok)
	assert.Same(t, w, w2)
	assert.Equal(t, 1, ids.n, "no second object should have been allocated")
	assert.Equal(t, 1, w2.resets, "resetObj runs once per Grab of a cached object")
}

func TestGrabFailurePropagatesAllocError(t *testing.T) {
	p := New("failing",
		func() (*widget, error) { return nil, errors.New("boom") },
		func(*widget) {},
		func(*widget) {},
	)
	w, ok := p.Grab()
	assert.False(t, ok)
	assert.Nil(t, w)
}

func TestNonDuplicationUnderConcurrency(t *testing.T) {
	p, _ := newTestPool(t)

	const n = 64
	var wg sync.WaitGroup
	seen := make(chan *widget, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, ok := p.Grab()
			require.True(t, ok)
			time.Sleep(time.Microsecond)
			p.Ungrab(w)
			seen <- w
		}()
	}
	wg.Wait()
	close(seen)

	// every handed-out object ends up back in exactly one slot; Cap never
	// exceeds the number of goroutines, and Len never exceeds Cap.
	for w := range seen {
		count := 0
		for _, slot := range p.slots {
			if slot == w {
				count++
			}
		}
		assert.Equal(t, 1, count, "widget %d must sit in exactly one slot", w.id)
	}
	assert.LessOrEqual(t, p.Len(), p.Cap())
	assert.LessOrEqual(t, p.Cap(), n)
}

func TestReapNoopWhileRented(t *testing.T) {
	p, _ := newTestPool(t)

	w, ok := p.Grab()
	require.True(t, ok)

	p.mu.Lock()
	p.lastTouched = time.Now().Add(-2 * IdleThreshold)
	p.mu.Unlock()

	p.Reap()
	assert.Equal(t, 1, p.Cap(), "rented slot must survive a reap attempt")

	p.Ungrab(w)
}

func TestReapDestroysAfterIdleThreshold(t *testing.T) {
	p, _ := newTestPool(t)

	w, ok := p.Grab()
	require.True(t, ok)
	p.Ungrab(w)
	require.Equal(t, 1, p.Len())

	p.mu.Lock()
	p.lastTouched = time.Now().Add(-2 * IdleThreshold)
	p.mu.Unlock()

	p.Reap()
	assert.Equal(t, 0, p.Cap())
	assert.True(t, w.freed)
}

func TestReapBeforeIdleThresholdIsNoop(t *testing.T) {
	p, _ := newTestPool(t)

	w, ok := p.Grab()
	require.True(t, ok)
	p.Ungrab(w)

	p.Reap()
	assert.Equal(t, 1, p.Cap(), "pool touched moments ago must not be reaped yet")
}

func TestDestroyFreesEverythingWhenNothingRented(t *testing.T) {
	p, _ := newTestPool(t)

	w, ok := p.Grab()
	require.True(t, ok)
	p.Ungrab(w)

	p.Destroy()
	assert.Equal(t, 0, p.Cap())
	assert.True(t, w.freed)
}

func TestDestroyLeavesRentedSlotsAlone(t *testing.T) {
	p, _ := newTestPool(t)

	w, ok := p.Grab()
	require.True(t, ok)

	p.Destroy()
	assert.Equal(t, 1, p.Cap(), "destroy must not shrink a pool with an outstanding rental")

	p.Ungrab(w)
}
