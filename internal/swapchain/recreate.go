package swapchain

import (
	"errors"

	vk "github.com/goki/vulkan"

	"github.com/d3d12vk/corevk/internal/formatcatalog"
	"github.com/d3d12vk/corevk/internal/rtconfig"
	"github.com/d3d12vk/corevk/internal/rtlog"
)

// ErrSurfaceMinimized marks a recreate attempt against a zero-extent
// (minimized) surface: no swapchain is created, and no occlusion state
// is recorded beyond returning this error.
var ErrSurfaceMinimized = errors.New("swapchain: surface minimized")

// recreateSwapchain decides whether the swapchain needs recreating,
// then drains in-flight work before destroying the old
// VkSwapchainKHR.
func (c *Chain) recreateSwapchain(req PresentRequest) error {
	caps := c.ops.QuerySurfaceCapabilities()

	if caps.MaxExtentWidth == 0 && caps.MaxExtentHeight == 0 {
		rtlog.Debug("swapchain: surface minimized, deferring recreation")
		return ErrSurfaceMinimized
	}

	mode := c.selectPresentMode(req, caps)
	imageCount := c.selectImageCount(caps)
	width, height := c.selectExtent(caps)
	format, colorSpace, err := c.selectFormat(req, caps)
	if err != nil {
		return err
	}

	c.drainBeforeRecreate()

	old := c.present.vkSwapchain
	sc, images, err := c.ops.CreateSwapchain(SwapchainCreateDesc{
		ImageCount:   imageCount,
		Format:       format,
		ColorSpace:   colorSpace,
		Width:        width,
		Height:       height,
		PresentMode:  mode,
		OldSwapchain: old,
	})
	if err != nil {
		return err
	}

	var zero vk.Swapchain
	if old != zero {
		c.ops.DestroySwapchain(old)
	}

	c.present.vkSwapchain = sc
	c.present.images = images
	c.present.presentMode = mode
	c.present.forceSwapchainRecreation = false
	c.present.backbufferBlitTimelines = make([]uint64, len(images))
	c.present.acquireSemaphores = make([]vk.Semaphore, len(images))
	c.present.releaseSemaphores = make([]vk.Semaphore, len(images))
	c.present.blitCommandBuffers = make([]vk.CommandBuffer, len(images))
	return nil
}

// selectPresentMode implements present-mode rule: FIFO
// when sync_interval > 0; otherwise prefer IMMEDIATE then MAILBOX
// then FIFO if the implementation supports switching present modes on
// the same swapchain without recreation; otherwise fix the present
// mode at creation.
func (c *Chain) selectPresentMode(req PresentRequest, caps SurfaceCapabilities) vk.PresentMode {
	if req.SyncInterval > 0 {
		return vk.PresentModeFifo
	}
	if caps.SupportsPresentModeSwitch {
		for _, preferred := range []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox, vk.PresentModeFifo} {
			if supportsMode(caps.SupportedPresentModes, preferred) {
				return preferred
			}
		}
	}
	c.present.presentModeFixed = true
	if supportsMode(caps.SupportedPresentModes, vk.PresentModeMailbox) {
		return vk.PresentModeMailbox
	}
	return vk.PresentModeFifo
}

func supportsMode(modes []vk.PresentMode, target vk.PresentMode) bool {
	for _, m := range modes {
		if m == target {
			return true
		}
	}
	return false
}

// selectImageCount implements image-count rule: at least
// max(3, minImageCount), clamped to maxImageCount, with an env-var
// override allowed to raise it.
func (c *Chain) selectImageCount(caps SurfaceCapabilities) uint32 {
	count := caps.MinImageCount
	if count < 3 {
		count = 3
	}
	if override := rtconfig.Current().SwapchainImages; override > 0 && uint32(override) > count {
		count = uint32(override)
	}
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// selectExtent implements extent rule: clamp the
// surface-reported extent into [min,max]; if the surface reports
// "undefined" (conventionally all-0xFFFFFFFF in Vulkan, modeled here
// as CurrentExtentWidth == 0 with a non-zero max), fall back to the
// app-requested width/height.
func (c *Chain) selectExtent(caps SurfaceCapabilities) (width, height uint32) {
	if caps.CurrentExtentWidth == 0 {
		width, height = c.desc.Width, c.desc.Height
	} else {
		width, height = caps.CurrentExtentWidth, caps.CurrentExtentHeight
	}
	width = clampU32(width, caps.MinExtentWidth, caps.MaxExtentWidth)
	height = clampU32(height, caps.MinExtentHeight, caps.MaxExtentHeight)
	return width, height
}

func clampU32(v, lo, hi uint32) uint32 {
	if hi > 0 && v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// selectFormat implements format/color-space rule: choose
// the first surface format matching both the DXGI format and color
// space; fall back to any sRGB format if an exact sRGB match isn't
// offered; for HDR, refuse to present on a format mismatch.
func (c *Chain) selectFormat(req PresentRequest, caps SurfaceCapabilities) (vk.Format, ColorSpace, error) {
	wantFormat := dxgiToVkFormat(req.Format)
	isHDR := req.ColorSpace == ColorSpaceHDR10ST2084 || req.ColorSpace == ColorSpaceHDR10HLG

	for _, f := range caps.SupportedFormats {
		if f.Format == wantFormat && f.ColorSpace == req.ColorSpace {
			return f.Format, f.ColorSpace, nil
		}
	}

	if isHDR {
		return 0, 0, errors.New("swapchain: no surface format matches the requested HDR color space")
	}

	for _, f := range caps.SupportedFormats {
		if f.ColorSpace == ColorSpaceSRGB {
			return f.Format, f.ColorSpace, nil
		}
	}
	return 0, 0, errors.New("swapchain: no compatible surface format available")
}

// dxgiToVkFormat translates a DXGI format into its Vulkan equivalent
// through the shared catalog; an unrecognized DXGI format (or one with
// no Vulkan counterpart, like a typeless format) maps to
// vk.FormatUndefined, which never matches a real surface format and so
// falls through selectFormat's SRGB/HDR fallback rules.
func dxgiToVkFormat(dxgiFormat uint32) vk.Format {
	entry, ok := formatcatalog.Lookup(formatcatalog.DXGIFormat(dxgiFormat))
	if !ok {
		return vk.FormatUndefined
	}
	return entry.VkFormat
}

// drainBeforeRecreate waits for every wait-thread entry queued before
// this call to finish processing, before the caller destroys the old
// VkSwapchainKHR. Safe to call only from the submission-thread
// goroutine, since that's the sole producer of wait-queue entries and
// it's blocked here, so no entry can be added concurrently with the
// Wait.
func (c *Chain) drainBeforeRecreate() {
	c.wait.pending.Wait()
}
