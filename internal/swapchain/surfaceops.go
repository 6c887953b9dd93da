package swapchain

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"

	"github.com/d3d12vk/corevk/internal/gpudevice"
	"github.com/d3d12vk/corevk/internal/rterror"
)

// DeviceSurfaceOps is the concrete SurfaceOps backed by a real
// vk.Device and vk.Surface, grounded in the same
// query-capabilities/create-swapchain/get-images/create-views sequence
// the teacher's createSwapchain and SwapchainAcquireNextImageIndex/
// SwapchainPresent use.
type DeviceSurfaceOps struct {
	dev *gpudevice.Device
}

// NewDeviceSurfaceOps builds a DeviceSurfaceOps against dev.Surface.
func NewDeviceSurfaceOps(dev *gpudevice.Device) *DeviceSurfaceOps {
	return &DeviceSurfaceOps{dev: dev}
}

func (o *DeviceSurfaceOps) AcquireNextImage(sc vk.Swapchain, semaphore vk.Semaphore) (uint32, vk.Result) {
	var imageIndex uint32
	result := vk.AcquireNextImage(o.dev.Logical, sc, math.MaxUint64, semaphore, vk.NullFence, &imageIndex)
	return imageIndex, result
}

func (o *DeviceSurfaceOps) QueuePresent(sc vk.Swapchain, imageIndex uint32, wait vk.Semaphore) vk.Result {
	info := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc},
		PImageIndices:      []uint32{imageIndex},
	}
	return vk.QueuePresent(o.dev.PresentQueue, &info)
}

// QuerySurfaceCapabilities mirrors DeviceQuerySwapchainSupport's
// three-call sequence: capabilities, then a count-then-fill pair for
// formats and present modes each.
func (o *DeviceSurfaceOps) QuerySurfaceCapabilities() SurfaceCapabilities {
	var caps vk.SurfaceCapabilities
	vk.GetPhysicalDeviceSurfaceCapabilities(o.dev.Physical, o.dev.Surface, &caps)
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(o.dev.Physical, o.dev.Surface, &formatCount, nil)
	vkFormats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(o.dev.Physical, o.dev.Surface, &formatCount, vkFormats)

	formats := make([]SurfaceFormat, 0, formatCount)
	for i := uint32(0); i < formatCount; i++ {
		vkFormats[i].Deref()
		formats = append(formats, SurfaceFormat{
			Format:     vkFormats[i].Format,
			ColorSpace: colorSpaceFor(vkFormats[i].ColorSpace),
		})
	}

	var presentModeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(o.dev.Physical, o.dev.Surface, &presentModeCount, nil)
	presentModes := make([]vk.PresentMode, presentModeCount)
	vk.GetPhysicalDeviceSurfacePresentModes(o.dev.Physical, o.dev.Surface, &presentModeCount, presentModes)

	return SurfaceCapabilities{
		MinImageCount:             caps.MinImageCount,
		MaxImageCount:             caps.MaxImageCount,
		CurrentExtentWidth:        caps.CurrentExtent.Width,
		CurrentExtentHeight:       caps.CurrentExtent.Height,
		MinExtentWidth:            caps.MinImageExtent.Width,
		MinExtentHeight:           caps.MinImageExtent.Height,
		MaxExtentWidth:            caps.MaxImageExtent.Width,
		MaxExtentHeight:           caps.MaxImageExtent.Height,
		SupportedFormats:          formats,
		SupportedPresentModes:     presentModes,
		SupportsPresentModeSwitch: false,
	}
}

// colorSpaceFor only distinguishes plain sRGB from every other Vulkan
// color space enumerant: anything that is not sRGB-nonlinear is
// reported as ColorSpaceHDR10ST2084, so selectFormat finds no exact
// surface-format match for an HLG request.
func colorSpaceFor(cs vk.ColorSpace) ColorSpace {
	if cs == vk.ColorSpaceSrgbNonlinear {
		return ColorSpaceSRGB
	}
	return ColorSpaceHDR10ST2084
}

// CreateSwapchain builds the VkSwapchainKHR and its images, the same
// queue-family-sharing-mode branch and image-count/extent population
// createSwapchain uses, chaining OldSwapchain for in-place recreation.
func (o *DeviceSurfaceOps) CreateSwapchain(desc SwapchainCreateDesc) (vk.Swapchain, []vk.Image, error) {
	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          o.dev.Surface,
		MinImageCount:    desc.ImageCount,
		ImageFormat:      desc.Format,
		ImageColorSpace:  vkColorSpaceFor(desc.ColorSpace),
		ImageExtent:      vk.Extent2D{Width: desc.Width, Height: desc.Height},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PresentMode:      desc.PresentMode,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		Clipped:          vk.True,
		OldSwapchain:     desc.OldSwapchain,
	}

	if o.dev.GraphicsQueueIndex != o.dev.PresentQueueIndex {
		info.ImageSharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = 2
		info.PQueueFamilyIndices = []uint32{o.dev.GraphicsQueueIndex, o.dev.PresentQueueIndex}
	} else {
		info.ImageSharingMode = vk.SharingModeExclusive
	}

	var sc vk.Swapchain
	if res := vk.CreateSwapchain(o.dev.Logical, &info, o.dev.Allocator, &sc); res != vk.Success {
		return 0, nil, fmt.Errorf("%w: vkCreateSwapchainKHR failed with result %d", rterror.ErrDeviceLost, res)
	}

	var imageCount uint32
	if res := vk.GetSwapchainImages(o.dev.Logical, sc, &imageCount, nil); res != vk.Success {
		vk.DestroySwapchain(o.dev.Logical, sc, o.dev.Allocator)
		return 0, nil, fmt.Errorf("%w: vkGetSwapchainImagesKHR failed with result %d", rterror.ErrDeviceLost, res)
	}
	images := make([]vk.Image, imageCount)
	if res := vk.GetSwapchainImages(o.dev.Logical, sc, &imageCount, images); res != vk.Success {
		vk.DestroySwapchain(o.dev.Logical, sc, o.dev.Allocator)
		return 0, nil, fmt.Errorf("%w: vkGetSwapchainImagesKHR failed with result %d", rterror.ErrDeviceLost, res)
	}

	return sc, images, nil
}

func vkColorSpaceFor(cs ColorSpace) vk.ColorSpace {
	switch cs {
	case ColorSpaceHDR10ST2084:
		return vk.ColorSpace(1000104008) // VK_COLOR_SPACE_HDR10_ST2084_EXT
	case ColorSpaceHDR10HLG:
		return vk.ColorSpace(1000104010) // VK_COLOR_SPACE_HDR10_HLG_EXT
	}
	return vk.ColorSpaceSrgbNonlinear
}

// DestroySwapchain mirrors destroySwapchain's VkSwapchainKHR teardown;
// the views/depth attachment this module keeps alongside it are this
// package's own responsibility, not SurfaceOps's.
func (o *DeviceSurfaceOps) DestroySwapchain(sc vk.Swapchain) {
	vk.DestroySwapchain(o.dev.Logical, sc, o.dev.Allocator)
}

// SubmitBlit submits the blit/copy command buffer that moves the
// caller's rendered backbuffer into the acquired swapchain image,
// waiting on the acquire semaphore and signaling the release
// semaphore, the same single-submit/wait-stage-mask/signal shape the
// teacher's EndFrame submission uses. timelineValue is this package's
// own backbuffer-reuse bookkeeping (backbufferBlitTimelines); nothing
// here currently threads it through a VkTimelineSemaphoreSubmitInfo,
// since goki/vulkan exposes no binding for that extension struct.
func (o *DeviceSurfaceOps) SubmitBlit(cmd vk.CommandBuffer, wait, signal vk.Semaphore, timelineValue uint64) error {
	waitStage := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	info := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{wait},
		PWaitDstStageMask:    []vk.PipelineStageFlags{waitStage},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signal},
	}

	if res := vk.QueueSubmit(o.dev.GraphicsQueue, 1, []vk.SubmitInfo{info}, vk.NullFence); res != vk.Success {
		return fmt.Errorf("%w: vkQueueSubmit failed with result %d", rterror.ErrDeviceLost, res)
	}
	return nil
}

// WaitForPresent is a no-op until the caller's device enables
// VK_KHR_present_wait2 (gpudevice.Features.PresentWait2); goki/vulkan
// exposes no binding for vkWaitForPresent2KHR, so this layer can only
// record that the wait thread asked for one.
func (o *DeviceSurfaceOps) WaitForPresent(sc vk.Swapchain, presentID uint64) error {
	return nil
}

// IsOccluded always reports visible; window-occlusion detection is a
// platform windowing-system query outside this package's scope.
func (o *DeviceSurfaceOps) IsOccluded() bool {
	return false
}
