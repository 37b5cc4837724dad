// Package pool recycles expensive codec working-state objects (compression
// and decompression contexts) across many concurrent block requests.
// Allocating a fresh context per block is far too expensive at filesystem
// write-path rates, so every context is rented from a Pool and returned
// once the block is done with it.
package pool

import (
	"sync"
	"time"
)

// IdleThreshold is the duration a pool must sit with every context returned
// (nothing rented) before Reap will destroy its cached objects.
const IdleThreshold = 15 * time.Second

// Pool recycles objects of type T with try-scan semantics: Grab takes the
// first occupied slot it finds, Ungrab returns an object to the first empty
// slot it finds. There is no LIFO or LRU ordering guarantee either way.
//
// A single mutex guards the slot slice and the idle-reap bookkeeping. The
// lock is held across the slot scan and slice mutation, across the newObj
// call Grab makes when no slot holds a cached object, and across the freeObj
// calls of Reap and Destroy. It is never held across a resetObj call.
type Pool[T any] struct {
	mu sync.Mutex

	slots []*T

	lastTouched time.Time

	// Name identifies the pool for logging and metrics (e.g. "compress",
	// "decompress").
	Name string

	newObj   func() (*T, error)
	freeObj  func(*T)
	resetObj func(*T)
}

// New creates a Pool backed by the supplied lifecycle hooks. newObj
// allocates a fresh working-state object; freeObj releases one that no
// longer has a slot to go back into; resetObj clears per-session state
// before an object is handed back out by Grab.
func New[T any](name string, newObj func() (*T, error), freeObj func(*T), resetObj func(*T)) *Pool[T] {
	return &Pool[T]{
		Name:        name,
		newObj:      newObj,
		freeObj:     freeObj,
		resetObj:    resetObj,
		lastTouched: time.Now(),
	}
}

// Grab rents an object from the pool, scanning for the first occupied slot.
// If every slot is empty (or none exist yet), a fresh object is allocated
// and the slot slice is grown by one empty cell to receive a future Ungrab.
// Grab returns ok=false only if allocating a fresh object failed.
func (p *Pool[T]) Grab() (obj *T, ok bool) {
	p.mu.Lock()

	for i, slot := range p.slots {
		if slot != nil {
			p.slots[i] = nil
			p.lastTouched = time.Now()
			p.mu.Unlock()

			p.resetObj(slot)
			return slot, true
		}
	}

	// nothing cached: allocate a fresh object and grow the slot vector by
	// one so a future Ungrab has somewhere to land it.
	fresh, err := p.newObj()
	if err != nil {
		p.mu.Unlock()
		return nil, false
	}
	p.slots = append(p.slots, nil)
	p.lastTouched = time.Now()
	p.mu.Unlock()

	return fresh, true
}

// Ungrab returns obj to the pool, placing it in the first empty slot. If no
// empty slot exists, obj is destroyed instead.
func (p *Pool[T]) Ungrab(obj *T) {
	p.mu.Lock()

	for i, slot := range p.slots {
		if slot == nil {
			p.slots[i] = obj
			p.lastTouched = time.Now()
			p.mu.Unlock()
			return
		}
	}

	p.lastTouched = time.Now()
	p.mu.Unlock()

	p.freeObj(obj)
}

// Reap destroys every cached object if, and only if, no rentals are
// currently outstanding (every slot holds an object) and the pool has been
// untouched for at least IdleThreshold. It is a no-op otherwise, including
// while the monotonic clock appears to have gone backwards relative to the
// last touch (treated conservatively as "still within the threshold").
func (p *Pool[T]) Reap() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reapLocked()
}

func (p *Pool[T]) reapLocked() {
	if len(p.slots) == 0 {
		return
	}
	for _, slot := range p.slots {
		if slot == nil {
			// something is rented out; leave the pool alone
			return
		}
	}
	if time.Since(p.lastTouched) < IdleThreshold {
		return
	}

	for _, slot := range p.slots {
		p.freeObj(slot)
	}
	p.slots = nil
	p.lastTouched = time.Now()
}

// Destroy forces an unconditional reap, regardless of how long the pool has
// been idle. The caller is responsible for ensuring no rentals are
// outstanding; if any are, Destroy returns without freeing anything, cached
// objects included, and the pool keeps all its slots.
func (p *Pool[T]) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, slot := range p.slots {
		if slot == nil {
			return
		}
	}
	for _, slot := range p.slots {
		p.freeObj(slot)
	}
	p.slots = nil
}

// Len reports the number of slots currently holding a cached (not rented)
// object. It is intended for tests and metrics, not for control flow.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, slot := range p.slots {
		if slot != nil {
			n++
		}
	}
	return n
}

// Cap reports the total number of slots, rented or cached.
func (p *Pool[T]) Cap() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}
