// Package lazy provides a memoized value that is recomputed on demand after being
// invalidated by one of its dependencies.
package lazy

import "sync"

// Value caches the result of a calculation until Invalidate is called.
//
// Get serializes calculations. An Invalidate that arrives while a calculation is running
// leaves the value dirty, so the following Get recomputes. A failed calculation keeps the
// previously published result and leaves the value dirty.
type Value[T any] struct {
	calc func() (T, error)

	calcMu sync.Mutex // held for the duration of a calculation

	mu         sync.Mutex
	value      T
	calculated bool
	frozen     bool
	pending    bool // invalidation received while frozen
	generation uint64
}

// New wraps calc. Nothing is computed until the first Get.
func New[T any](calc func() (T, error)) *Value[T] {
	return &Value[T]{calc: calc}
}

// Get returns the cached result, running the calculation first if the value is dirty.
func (v *Value[T]) Get() (T, error) {
	v.calcMu.Lock()
	defer v.calcMu.Unlock()

	v.mu.Lock()
	if v.calculated {
		out := v.value
		v.mu.Unlock()
		return out, nil
	}
	gen := v.generation
	v.mu.Unlock()

	out, err := v.calc()

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		var zero T
		return zero, err
	}
	v.value = out
	v.calculated = gen == v.generation
	return out, nil
}

// Invalidate marks the value dirty. It reports whether a fresh result was discarded.
// While frozen the invalidation is deferred until Unfreeze.
func (v *Value[T]) Invalidate() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.frozen {
		v.pending = true
		return false
	}
	was := v.calculated
	v.calculated = false
	v.generation++
	return was
}

// Update implements observer.Observer.
func (v *Value[T]) Update() {
	v.Invalidate()
}

// IsCalculated reports whether the next Get will be served from the cache.
func (v *Value[T]) IsCalculated() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calculated
}

// Freeze keeps the current result through invalidations until Unfreeze.
func (v *Value[T]) Freeze() {
	v.mu.Lock()
	v.frozen = true
	v.mu.Unlock()
}

// Unfreeze resumes normal invalidation and applies any invalidation received meanwhile.
// It reports whether such an invalidation was applied.
func (v *Value[T]) Unfreeze() bool {
	v.mu.Lock()
	v.frozen = false
	pending := v.pending
	v.pending = false
	v.mu.Unlock()
	if pending {
		v.Invalidate()
	}
	return pending
}

// Recalculate forces a fresh calculation even if the cache is valid or frozen.
func (v *Value[T]) Recalculate() (T, error) {
	v.mu.Lock()
	v.calculated = false
	v.generation++
	v.mu.Unlock()
	return v.Get()
}

// Peek returns the last published result without triggering a calculation.
func (v *Value[T]) Peek() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value, v.calculated
}
