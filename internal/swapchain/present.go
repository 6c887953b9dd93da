package swapchain

import (
	"errors"
	"sync/atomic"

	vk "github.com/goki/vulkan"

	"github.com/d3d12vk/corevk/internal/rtconfig"
	"github.com/d3d12vk/corevk/internal/rtlog"
)

// ErrOccluded mirrors DXGI_STATUS_OCCLUDED: the surface is occluded
// (minimized), Present is accepted but nothing is submitted.
var ErrOccluded = errors.New("swapchain: surface occluded")

// PresentFlags mirrors the handful of DXGI_PRESENT_* bits this layer
// inspects.
type PresentFlags uint32

const PresentFlagTest PresentFlags = 1

// PresentParams carries the per-call knobs Present needs beyond the
// sync interval and flags.
type PresentParams struct {
	ColorSpace  ColorSpace
	HDRMetadata HDRMetadata
	LowLatencyFrameID uint64
}

// Present implements Present algorithm.
func (c *Chain) Present(syncInterval uint32, flags PresentFlags, params PresentParams) error {
	if c.ops.IsOccluded() {
		return ErrOccluded
	}
	if flags&PresentFlagTest != 0 {
		return nil
	}

	c.user.mu.Lock()
	next := c.user.presentCount + 1
	req := PresentRequest{
		ColorSpace:        params.ColorSpace,
		HDRMetadata:       params.HDRMetadata,
		Format:            c.desc.Format,
		UserIndex:         c.user.index,
		SyncInterval:      syncInterval,
		LowLatencyFrameID: params.LowLatencyFrameID,
		Valid:             true,
	}
	*c.request.Slot(next) = req
	c.user.presentCount = next
	c.user.index = (c.user.index + 1) % c.desc.BufferCount
	c.user.colorSpace = params.ColorSpace
	if params.HDRMetadata.Set {
		c.user.hdrMetadata = params.HDRMetadata
	}
	c.user.mu.Unlock()

	c.submitCh <- func() { c.presentCallback(next) }

	if !c.lowLatencyGPUBound() {
		<-c.frameLatency
	}
	return nil
}

// lowLatencyGPUBound is the hook that lets Present skip blocking on
// frameLatency. It always reports false: this package tracks no
// low-latency mode or GPU queue depth, so Present always blocks.
func (c *Chain) lowLatencyGPUBound() bool {
	return false
}

func (c *Chain) runSubmissionThread() {
	for fn := range c.submitCh {
		fn()
	}
}

// presentCallback implements present_callback: runs
// exclusively on the submission-thread goroutine, so present.* needs
// no additional locking beyond the channel serialization that got it
// here.
func (c *Chain) presentCallback(presentCount uint64) {
	req := *c.request.Slot(presentCount)
	if !req.Valid {
		return
	}

	prev := c.present.previousRequest
	if req.ColorSpace != prev.ColorSpace || req.Format != prev.Format {
		c.present.forceSwapchainRecreation = true
	}
	if c.present.presentModeFixed && (req.SyncInterval > 0) != (prev.SyncInterval > 0) {
		c.present.forceSwapchainRecreation = true
	}
	c.present.previousRequest = req

	if req.HDRMetadata.Set {
		c.applyHDRMetadata(req.HDRMetadata)
	}

	if c.present.forceSwapchainRecreation || c.needsInitialCreate() {
		if err := c.recreateSwapchain(req); err != nil {
			rtlog.Warn("swapchain: recreation failed: %v", err)
			c.present.presentCount.Store(presentCount)
			return
		}
	}

	if c.present.isSurfaceLost {
		c.signalLatency()
		c.present.presentCount.Store(presentCount)
		return
	}

	imageIndex, ok := c.acquireWithRetry()
	if !ok {
		c.signalLatency()
		c.present.presentCount.Store(presentCount)
		return
	}

	blitTimeline := presentCount
	if err := c.ops.SubmitBlit(c.present.blitCommandBuffers[imageIndex], c.present.acquireSemaphores[imageIndex], c.present.releaseSemaphores[imageIndex], blitTimeline); err != nil {
		rtlog.Warn("swapchain: blit submit failed: %v", err)
	}
	c.present.backbufferBlitTimelines[imageIndex] = blitTimeline

	result := c.ops.QueuePresent(c.present.vkSwapchain, imageIndex, c.present.releaseSemaphores[imageIndex])
	switch result {
	case vk.ErrorOutOfDate:
		c.present.forceSwapchainRecreation = true
	case vk.Suboptimal:
		c.present.forceSwapchainRecreation = true
	case vk.ErrorSurfaceLost:
		c.present.isSurfaceLost = true
	}

	c.wait.pending.Add(1)
	c.wait.queue <- presentWaitEntry{
		presentCount:  presentCount,
		presentID:     presentCount,
		timingEnabled: rtconfig.Current().DebugLatency,
	}

	c.present.presentCount.Store(presentCount)
}

func (c *Chain) needsInitialCreate() bool {
	var zero vk.Swapchain
	return c.present.vkSwapchain == zero
}

func (c *Chain) applyHDRMetadata(m HDRMetadata) {
	// Does nothing with m: no VkHdrMetadataEXT is issued, and
	// SwapchainCreateDesc carries no HDR metadata, so the metadata
	// never reaches SurfaceOps.
}

// acquireWithRetry retries up to three times on OUT_OF_DATE, and
// permanently disables further presents on SURFACE_LOST.
func (c *Chain) acquireWithRetry() (uint32, bool) {
	for attempt := 0; attempt < 3; attempt++ {
		idx, result := c.ops.AcquireNextImage(c.present.vkSwapchain, c.present.acquireSemaphores[0])
		switch result {
		case vk.Success, vk.Suboptimal:
			return idx, true
		case vk.ErrorOutOfDate:
			if err := c.recreateSwapchain(c.present.previousRequest); err != nil {
				return 0, false
			}
			continue
		case vk.ErrorSurfaceLost:
			c.present.isSurfaceLost = true
			return 0, false
		}
	}
	return 0, false
}

func (c *Chain) signalLatency() {
	select {
	case c.frameLatency <- struct{}{}:
	default:
	}
}

// PresentCount returns the submission thread's last-published present
// count, the value the caller polls for backpressure.
func (c *Chain) PresentCount() uint64 {
	return loadPresentCount(&c.present.presentCount)
}

func loadPresentCount(v *atomic.Uint64) uint64 {
	return v.Load()
}
