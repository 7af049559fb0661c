// Package cas provides a spin mutex that owns the value it guards.
//
// A Mutex never hands out its payload directly. The only way to reach the
// value is through WithLock or Do, which run a callback while the lock flag is
// held. That is the whole argument for sharing a *Mutex[T] between goroutines:
// every read and write of the payload happens between a successful
// compare-and-swap of the flag and the store that clears it.
//
// Waiters busy-wait. There is no fairness, no re-entrancy and no bound on how
// long a waiter spins.
package cas

import (
	"runtime"
	"sync/atomic"
)

const (
	unlocked = false
	locked   = true
)

// Mutex is a spin lock guarding a value of type T.
//
// The zero value is an unlocked mutex guarding the zero T. A Mutex must not be
// copied after first use.
type Mutex[T any] struct {
	state atomic.Bool // carries the noCopy marker that go vet's copylocks check looks for
	value T
}

// New returns an unlocked mutex guarding initial.
func New[T any](initial T) *Mutex[T] {
	return &Mutex[T]{value: initial}
}

// WithLock runs body with exclusive access to the value guarded by m and
// returns its result. The lock is released before the result is returned.
//
// body must not acquire m again and must not retain the pointer it receives.
// If body panics the lock is released and the panic continues.
func WithLock[T, R any](m *Mutex[T], body func(v *T) R) R {
	m.lock()
	defer m.unlock()

	return body(&m.value)
}

// Do is WithLock for bodies that return nothing.
func (m *Mutex[T]) Do(body func(v *T)) {
	m.lock()
	defer m.unlock()

	body(&m.value)
}

func (m *Mutex[T]) lock() {
	for !m.state.CompareAndSwap(unlocked, locked) {
		// plain loads while held, so waiters don't bounce the cache line
		for m.state.Load() == locked {
			runtime.Gosched()
		}
	}
}

func (m *Mutex[T]) unlock() {
	m.state.Store(unlocked)
}
