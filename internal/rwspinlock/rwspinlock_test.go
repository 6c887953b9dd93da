package rwspinlock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentReaders(t *testing.T) {
	var l RWSpinlock
	var active atomic.Int32
	var maxSeen atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				l.AcquireRead()
				n := active.Add(1)
				for {
					m := maxSeen.Load()
					if n <= m || maxSeen.CompareAndSwap(m, n) {
						break
					}
				}
				active.Add(-1)
				l.ReleaseRead()
			}
		}()
	}
	wg.Wait()

	require.Greater(t, maxSeen.Load(), int32(1), "multiple readers should overlap at least once")
}

func TestWriterExcludesReaders(t *testing.T) {
	var l RWSpinlock
	var readers atomic.Int32
	var violation atomic.Bool

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			l.AcquireRead()
			readers.Add(1)
			time.Sleep(time.Microsecond)
			readers.Add(-1)
			l.ReleaseRead()
		}
	}()

	for i := 0; i < 200; i++ {
		l.AcquireWrite()
		if readers.Load() != 0 {
			violation.Store(true)
		}
		l.ReleaseWrite()
	}
	close(stop)
	wg.Wait()

	assert.False(t, violation.Load(), "a writer must never observe an active reader")
}

func TestWriteExcludesWrite(t *testing.T) {
	var l RWSpinlock
	var inside atomic.Int32
	var violation atomic.Bool

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				l.AcquireWrite()
				if inside.Add(1) != 1 {
					violation.Store(true)
				}
				inside.Add(-1)
				l.ReleaseWrite()
			}
		}()
	}
	wg.Wait()

	assert.False(t, violation.Load(), "writers must be mutually exclusive")
}
