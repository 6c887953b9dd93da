package swapchain

import (
	"time"

	"github.com/d3d12vk/corevk/internal/rtlog"
)

// runWaitThread processes entries from the queue in order: a
// presentCount == 0 entry is the shutdown sentinel; otherwise it calls
// the platform present-wait primitive (skipped when skipWaits is set
// or the entry carries no present ID), runs the frame-rate limiter,
// records the latest presentation timings, and releases the
// frame-latency handle.
func (c *Chain) runWaitThread() {
	defer close(c.wait.done)

	for entry := range c.wait.queue {
		if entry.presentCount == 0 {
			return
		}

		if entry.presentID != 0 && !c.wait.skipWaits.Load() {
			if err := c.ops.WaitForPresent(c.present.vkSwapchain, entry.presentID); err != nil {
				rtlog.Warn("swapchain: present-wait failed: %v", err)
			}
		}

		c.limiter.Pace()

		c.wait.statsMu.Lock()
		c.wait.frameStats.PresentCount = entry.presentCount
		c.wait.frameStats.LastPresentTimeNS = time.Now().UnixNano()
		c.wait.statsMu.Unlock()

		c.signalLatency()
		c.wait.pending.Done()
	}
}

// FrameStats returns a snapshot of the wait thread's published
// statistics.
func (c *Chain) FrameStats() FrameStatistics {
	c.wait.statsMu.Lock()
	defer c.wait.statsMu.Unlock()
	return c.wait.frameStats
}

// SetTargetFrameRate lets the application thread adjust the frame-rate
// limiter's target.
func (c *Chain) SetTargetFrameRate(rate float64) {
	c.limiter.SetTargetFrameRate(rate)
}
