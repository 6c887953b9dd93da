// Package swapchain implements the per-queue present engine from spec
// §2.11/§4.6: a Vulkan surface/swapchain, a ring of user-facing
// backbuffer resources, a submission thread, a present-wait thread,
// HDR/color-space state, a frame-latency gate, and a frame-rate
// limiter.
//
// The three-thread model from the original design (caller, submission,
// wait) is expressed with goroutines and channels rather than raw
// OS threads and condition variables: the submission thread is a
// single goroutine draining a callback channel in FIFO order (so
// vkQueuePresent calls stay strictly ordered), and the wait thread is
// a second goroutine draining a typed channel of presentWaitEntry.
package swapchain

import (
	"sync"
	"sync/atomic"

	vk "github.com/goki/vulkan"

	"github.com/d3d12vk/corevk/internal/gpudevice"
	"github.com/d3d12vk/corevk/internal/rtlog"
)

// ColorSpace mirrors the DXGI_COLOR_SPACE_TYPE values this layer
// distinguishes for format/color-space matching during recreation.
type ColorSpace uint32

const (
	ColorSpaceSRGB ColorSpace = iota
	ColorSpaceHDR10ST2084
	ColorSpaceHDR10HLG
)

// PresentRequest is one slot of request_ring[]: everything
// the submission thread needs to process one Present call.
type PresentRequest struct {
	ColorSpace      ColorSpace
	HDRMetadata     HDRMetadata
	Format          uint32
	UserIndex       uint32
	SyncInterval    uint32
	FrameTimeNS     int64
	LowLatencyFrameID uint64
	Valid           bool
}

// HDRMetadata mirrors the handful of DXGI_HDR_METADATA_HDR10 fields
// this layer forwards to the driver on an HDR present.
type HDRMetadata struct {
	MaxLuminance float32
	MinLuminance float32
	Set          bool
}

// userState is the application-thread-owned half of Chain. Only the caller thread ever writes it.
type userState struct {
	mu sync.Mutex

	backbuffers  []*gpudevice.Allocation // one per buffer count; opaque D3D12-visible backing
	index        uint32
	colorSpace   ColorSpace
	hdrMetadata  HDRMetadata
	presentCount uint64
}

// presentState is the submission-thread-owned half of Chain. Only the submission-thread goroutine ever writes it.
type presentState struct {
	vkSwapchain vk.Swapchain
	images      []vk.Image
	views       []vk.ImageView

	acquireSemaphores []vk.Semaphore
	releaseSemaphores []vk.Semaphore

	blitCommandBuffers []vk.CommandBuffer
	// backbufferBlitTimelines lets a later present drain a previous
	// blit into the same backbuffer before reusing it.
	backbufferBlitTimelines []uint64

	forceSwapchainRecreation bool
	isSurfaceLost            bool
	previousRequest          PresentRequest

	presentMode      vk.PresentMode
	presentModeFixed bool

	// presentCount is released atomically after the submission thread
	// finishes its work for a frame; the caller polls it for
	// backpressure.
	presentCount atomic.Uint64
}

// presentWaitEntry is one wait-queue entry: presentCount == 0 is the
// shutdown sentinel.
type presentWaitEntry struct {
	presentCount  uint64
	presentID     uint64
	frameStartNS  int64
	timingEnabled bool
}

// waitThreadState is the wait-thread-owned half of Chain.
type waitThreadState struct {
	queue     chan presentWaitEntry
	skipWaits atomic.Bool
	done      chan struct{}
	pending   sync.WaitGroup

	frameStats FrameStatistics
	statsMu    sync.Mutex
}

// FrameStatistics is the public, wait-thread-written counterpart to
// DXGI_FRAME_STATISTICS.
type FrameStatistics struct {
	PresentCount     uint64
	LastPresentTimeNS int64
	SyncRefreshCount uint64
}

// SurfaceOps is the external collaborator interface for the handful
// of Vulkan calls this package needs a live device/surface for;
// device/surface creation itself is out of scope.
type SurfaceOps interface {
	AcquireNextImage(sc vk.Swapchain, semaphore vk.Semaphore) (imageIndex uint32, result vk.Result)
	QueuePresent(sc vk.Swapchain, imageIndex uint32, wait vk.Semaphore) vk.Result
	QuerySurfaceCapabilities() SurfaceCapabilities
	CreateSwapchain(desc SwapchainCreateDesc) (vk.Swapchain, []vk.Image, error)
	DestroySwapchain(sc vk.Swapchain)
	SubmitBlit(cmd vk.CommandBuffer, wait, signal vk.Semaphore, timelineValue uint64) error
	WaitForPresent(sc vk.Swapchain, presentID uint64) error
	IsOccluded() bool
}

// SurfaceCapabilities is the subset of VkSurfaceCapabilitiesKHR the
// recreation logic consults.
type SurfaceCapabilities struct {
	MinImageCount, MaxImageCount     uint32
	CurrentExtentWidth, CurrentExtentHeight uint32
	MinExtentWidth, MinExtentHeight  uint32
	MaxExtentWidth, MaxExtentHeight  uint32
	SupportedFormats                []SurfaceFormat
	SupportedPresentModes           []vk.PresentMode
	SupportsPresentModeSwitch       bool
}

// SurfaceFormat pairs a Vulkan format with its color space.
type SurfaceFormat struct {
	Format     vk.Format
	ColorSpace ColorSpace
}

// SwapchainCreateDesc is what CreateSwapchain needs to build (or
// rebuild) the Vulkan object.
type SwapchainCreateDesc struct {
	ImageCount   uint32
	Format       vk.Format
	ColorSpace   ColorSpace
	Width, Height uint32
	PresentMode  vk.PresentMode
	OldSwapchain vk.Swapchain
}

// Desc is the application-facing creation description, mirroring
// DXGI_SWAP_CHAIN_DESC1's fields this layer needs.
type Desc struct {
	Width, Height uint32
	Format        uint32
	BufferCount   uint32
	VSync         bool
}

// Chain is the runtime object from /§4.6.
type Chain struct {
	desc Desc
	dev  *gpudevice.Device
	ops  SurfaceOps

	user    userState
	request *ringBuffer[PresentRequest]
	present presentState
	wait    waitThreadState

	limiter *FrameLimiter

	// frameLatency gates Present: an application-visible counting
	// semaphore, modeled as a buffered channel whose capacity is the
	// configured latency-frame count. The acquire count is
	// deliberately pre-loaded with (latencyFrames - 1) tokens so the
	// first present does not block.
	frameLatency chan struct{}

	submitCh chan func()

	closeOnce sync.Once
}

// New constructs a Chain and starts its submission and wait-thread
// goroutines. The caller supplies SurfaceOps since actual Vulkan
// surface/device creation is out of scope.
func New(desc Desc, dev *gpudevice.Device, ops SurfaceOps, latencyFrames int) *Chain {
	if latencyFrames <= 0 {
		latencyFrames = 3
	}

	c := &Chain{
		desc:    desc,
		dev:     dev,
		ops:     ops,
		request: newRingBuffer[PresentRequest](int(desc.BufferCount)),
		limiter: NewFrameLimiter(),
		frameLatency: make(chan struct{}, latencyFrames),
		submitCh:     make(chan func(), 64),
	}
	c.user.backbuffers = make([]*gpudevice.Allocation, desc.BufferCount)
	c.wait.queue = make(chan presentWaitEntry, 64)
	c.wait.done = make(chan struct{})

	for i := 0; i < latencyFrames-1; i++ {
		c.frameLatency <- struct{}{}
	}

	go c.runSubmissionThread()
	go c.runWaitThread()
	return c
}

// Close drains both background goroutines, matching 's
// cancellation contract: push a present_count=0 sentinel, flip
// skip_waits, drain the condition-variable-equivalent channel, and
// only then let the caller destroy the Vulkan swapchain.
func (c *Chain) Close() {
	c.closeOnce.Do(func() {
		c.present.isSurfaceLost = true
		c.wait.skipWaits.Store(true)
		c.wait.queue <- presentWaitEntry{presentCount: 0}
		<-c.wait.done
		close(c.submitCh)
		var zeroSwapchain vk.Swapchain
		if c.present.vkSwapchain != zeroSwapchain {
			c.ops.DestroySwapchain(c.present.vkSwapchain)
		}
		rtlog.Debug("swapchain: closed")
	})
}
