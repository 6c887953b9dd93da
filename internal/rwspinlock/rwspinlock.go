// Package rwspinlock implements a cooperative read/write spinlock: a
// single atomic uint32 distinguishing a write bit from a reader count.
//
// Starvation is not guaranteed either way; the intended steady state is
// read-dominant (see the resource view map). A writer excludes all
// readers; a writer never succeeds while any reader holds the lock,
// since the CAS expects the state to be exactly Idle.
package rwspinlock

import (
	"runtime"
	"sync/atomic"
)

const (
	idle  uint32 = 0
	write uint32 = 1
	read  uint32 = 2
)

// RWSpinlock is a zero-value-ready cooperative spinlock. Do not copy
// after first use.
type RWSpinlock struct {
	state atomic.Uint32
}

// pause yields the processor briefly while spinning. Go has no portable
// equivalent of _mm_pause() without assembly; runtime.Gosched lets other
// goroutines (including the lock holder, if scheduled on the same P)
// make progress instead of busy-spinning the core to exhaustion.
func pause() {
	runtime.Gosched()
}

// AcquireRead registers a reader. Multiple readers may hold the lock
// concurrently; a reader spins only while a writer is active.
func (l *RWSpinlock) AcquireRead() {
	count := l.state.Add(read)
	for count&write != 0 {
		pause()
		count = l.state.Load()
	}
}

// ReleaseRead unregisters a reader previously registered with
// AcquireRead.
func (l *RWSpinlock) ReleaseRead() {
	l.state.Add(^uint32(read - 1)) // two's-complement subtraction of `read`
}

// AcquireWrite blocks until the lock is idle (no readers, no writer)
// and then claims exclusive access.
func (l *RWSpinlock) AcquireWrite() {
	for !l.state.CompareAndSwap(idle, write) {
		pause()
	}
}

// ReleaseWrite clears the write bit, admitting new readers and writers.
func (l *RWSpinlock) ReleaseWrite() {
	for {
		old := l.state.Load()
		if l.state.CompareAndSwap(old, old&^write) {
			return
		}
	}
}
