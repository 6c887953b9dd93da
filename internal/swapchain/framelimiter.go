package swapchain

import (
	"sync"
	"time"

	"github.com/d3d12vk/corevk/internal/rtconfig"
)

// frameWindowSize is the measurement window the limiter averages
// observed FPS over before deciding whether to engage.
const frameWindowSize = 64

// busyWaitTail absorbs platform timer jitter on the final slice of the
// sleep instead of oversleeping past the target.
const busyWaitTail = 1500 * time.Microsecond

// FrameLimiter paces the wait thread to a target frame rate. It is
// driven entirely from the wait-thread goroutine, so it needs no
// locking against Pace itself; SetTargetFrameRate may be called from
// any goroutine (the application thread), hence the mutex around the
// target fields only.
type FrameLimiter struct {
	mu           sync.Mutex
	targetRate   float64 // 0 disables; negative means "only if exceeded"
	targetSet    bool

	enabled      bool
	lastTick     time.Time
	windowStart  time.Time
	windowCount  int
	nextDeadline time.Time
}

// NewFrameLimiter returns a disabled limiter; SetTargetFrameRate (or
// the VKD3D_FRAME_RATE env override, applied lazily on first Pace)
// turns it on.
func NewFrameLimiter() *FrameLimiter {
	return &FrameLimiter{}
}

// SetTargetFrameRate sets the target rate: negative rate means "only
// kick in if measured FPS exceeds |rate|"; 0 disables outright.
func (f *FrameLimiter) SetTargetFrameRate(rate float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targetRate = rate
	f.targetSet = true
	if rate == 0 {
		f.enabled = false
	}
}

func (f *FrameLimiter) effectiveTarget() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.targetSet {
		if override := rtconfig.Current().FrameRateOverride; override != 0 {
			f.targetRate = override
			f.targetSet = true
		}
	}
	return f.targetRate
}

// Pace is called once per presented frame from the wait thread. It
// measures the rolling FPS, decides whether the limiter should
// engage, and sleeps the remainder of the target interval when it is.
func (f *FrameLimiter) Pace() {
	target := f.effectiveTarget()
	if target == 0 {
		return
	}

	now := time.Now()
	if f.windowStart.IsZero() {
		f.windowStart = now
		f.windowCount = 0
	}
	f.windowCount++

	if f.windowCount >= frameWindowSize {
		elapsed := now.Sub(f.windowStart).Seconds()
		observedFPS := float64(f.windowCount) / elapsed
		threshold := target
		if threshold < 0 {
			threshold = -threshold
		}
		if observedFPS > threshold {
			f.enabled = true
		}
		f.windowStart = now
		f.windowCount = 0
	}

	if !f.enabled {
		f.lastTick = now
		return
	}

	threshold := target
	if threshold < 0 {
		threshold = -threshold
	}
	if threshold == 0 {
		return
	}
	targetInterval := time.Duration(float64(time.Second) / threshold)

	if f.nextDeadline.IsZero() {
		f.nextDeadline = now.Add(targetInterval)
	}

	sleepFor := f.nextDeadline.Sub(now)
	if sleepFor > 0 {
		if sleepFor > busyWaitTail {
			time.Sleep(sleepFor - busyWaitTail)
		}
		for time.Now().Before(f.nextDeadline) {
			// busy-wait tail: absorbs scheduler/timer jitter that a
			// plain sleep would routinely overshoot.
		}
	}

	// Re-align gently instead of accumulating drift when a frame runs
	// long.
	actual := time.Now()
	if actual.Sub(f.nextDeadline) > targetInterval {
		f.nextDeadline = actual.Add(targetInterval)
	} else {
		f.nextDeadline = f.nextDeadline.Add(targetInterval)
	}
	f.lastTick = actual
}
