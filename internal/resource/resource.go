package resource

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/d3d12vk/corevk/internal/formatcatalog"
	"github.com/d3d12vk/corevk/internal/gpudevice"
	"github.com/d3d12vk/corevk/internal/rterror"
	"github.com/d3d12vk/corevk/internal/rtid"
	"github.com/d3d12vk/corevk/internal/rtlog"
)

// Dimension mirrors D3D12_RESOURCE_DIMENSION.
type Dimension uint8

const (
	DimensionBuffer Dimension = iota
	DimensionTexture1D
	DimensionTexture2D
	DimensionTexture3D
)

// Layout mirrors D3D12_TEXTURE_LAYOUT; only UNKNOWN and ROW_MAJOR are
// modeled.
type Layout uint8

const (
	LayoutUnknown Layout = iota
	LayoutRowMajor
)

// Flags mirrors the D3D12_RESOURCE_FLAGS bitmask this layer validates
// against.
type Flags uint32

const (
	FlagNone Flags = 0
	FlagAllowRenderTarget Flags = 1 << iota
	FlagAllowDepthStencil
	FlagAllowUnorderedAccess
	FlagDenyShaderResource
	FlagAllowCrossAdapter
	FlagAllowSimultaneousAccess
	FlagVideoDecodeReferenceOnly
	FlagRaytracingAccelerationStructure
)

// HeapType mirrors D3D12_HEAP_TYPE.
type HeapType uint8

const (
	HeapTypeDefault HeapType = iota
	HeapTypeUpload
	HeapTypeReadback
	HeapTypeCustom
)

// State mirrors the coarse D3D12_RESOURCE_STATES buckets this layer
// needs to validate against heap type.
type State uint32

const (
	StateCommon State = 0
	StateGenericReadMask State = 0x1 | 0x2 | 0x40 | 0x80 | 0x200 | 0x800
	StateCopyDest State = 0x400
)

// Desc is the creation-time description of a resource, mirroring
// D3D12_RESOURCE_DESC plus the castable-format list D3D12 added later.
type Desc struct {
	Dimension      Dimension
	Width          uint64
	Height         uint32
	DepthOrArrayLayers uint32
	MipLevels      uint16
	Format         formatcatalog.DXGIFormat
	SampleCount    uint32
	Layout         Layout
	Flags          Flags
	HeapType       HeapType
	InitialState   State
	CastableFormats []formatcatalog.DXGIFormat
	// Alignment must be one of 0, 4Ki, 64Ki, or 4Mi (MSAA); see
	// validateAlignment.
	Alignment uint64
}

// SparseTiling holds the subset of sparse residency bookkeeping this
// layer records per reserved resource; the fixed 25-row tile-extent
// table and packed-mip replication logic live in sparsetile.go.
type SparseTiling struct {
	TileShape        TileExtent
	TotalTileCount    uint32
	PackedMipTileCount uint32
	StandardMipCount  uint32
	// MetadataAllocation backs any packed-mip metadata that needs its
	// own allocation when the implementation lacks SINGLE_MIPTAIL.
	MetadataAllocation gpudevice.Allocation
	InitialBindTimeline uint64
}

// CreationKind records which of the three entry points in 
// produced a Resource, purely for diagnostics.
type CreationKind uint8

const (
	CreationCommitted CreationKind = iota
	CreationPlaced
	CreationReserved
)

// Resource is the runtime object from /§4.3: owns either a
// buffer or image object, an allocation, optional sparse metadata, and
// a view map.
type Resource struct {
	Desc Desc
	Kind CreationKind

	Cookie    uint64
	DebugName string

	VkBuffer vk.Buffer
	VkImage  vk.Image
	GPUVA    uint64

	CommonLayout          vk.ImageLayout
	FormatCompatibilityList []vk.Format
	Mutable                bool
	BlockTexelViewCompatible bool

	Allocation gpudevice.Allocation

	Views *ViewMap

	Sparse *SparseTiling

	// initialLayoutTransition is cleared once the first layout
	// transition has been emitted; some placed RT/DSV resources skip
	// it entirely .
	initialLayoutTransition bool

	publicRefcount   int32
	internalRefcount int32

	destroyNotifiers []func()
}

// New validates desc against the shared invariants from /§4.3
// and returns a Resource shell (no Vulkan object yet; the caller fills
// VkBuffer/VkImage/Allocation/CommonLayout from one of the three
// creation paths in committed.go/placed.go/reserved.go).
func New(desc Desc, dev *gpudevice.Device) (*Resource, error) {
	if err := validateDesc(desc, dev); err != nil {
		return nil, err
	}

	compat, mutable, blockTexelCompat, err := buildFormatCompatibilityList(desc, dev)
	if err != nil {
		return nil, err
	}

	r := &Resource{
		Desc:                    desc,
		Cookie:                  rtid.NextCookie(),
		DebugName:               rtid.DebugName("resource"),
		CommonLayout:            selectCommonLayout(desc),
		FormatCompatibilityList: compat,
		Mutable:                 mutable,
		BlockTexelViewCompatible: blockTexelCompat,
		Views:                   NewViewMap(),
		initialLayoutTransition: true,
		publicRefcount:          1,
		internalRefcount:        1,
	}
	return r, nil
}

// validateDesc implements resource invariants and §4.3's
// shared validation steps.
func validateDesc(d Desc, dev *gpudevice.Device) error {
	if d.Dimension == DimensionBuffer {
		if d.Height != 1 || d.DepthOrArrayLayers != 1 || d.MipLevels != 1 ||
			d.Format != formatcatalog.FormatUnknown || d.Layout != LayoutRowMajor {
			return fmt.Errorf("%w: buffer must have Height=1, DepthOrArraySize=1, MipLevels=1, Format=UNKNOWN, Layout=ROW_MAJOR", rterror.ErrInvalidArgument)
		}
	}

	if d.Flags&FlagAllowSimultaneousAccess != 0 {
		if d.Flags&FlagAllowDepthStencil != 0 {
			return fmt.Errorf("%w: ALLOW_SIMULTANEOUS_ACCESS cannot combine with ALLOW_DEPTH_STENCIL", rterror.ErrInvalidArgument)
		}
		if d.Dimension == DimensionBuffer {
			return fmt.Errorf("%w: ALLOW_SIMULTANEOUS_ACCESS is never set on buffers", rterror.ErrInvalidArgument)
		}
	}

	if d.Layout == LayoutRowMajor && d.Dimension != DimensionBuffer {
		if d.Dimension != DimensionTexture2D {
			return fmt.Errorf("%w: ROW_MAJOR textures must be 2D", rterror.ErrInvalidArgument)
		}
		if d.Flags&FlagAllowCrossAdapter == 0 {
			return fmt.Errorf("%w: ROW_MAJOR 2D textures require ALLOW_CROSS_ADAPTER", rterror.ErrInvalidArgument)
		}
		if d.MipLevels != 1 || d.DepthOrArrayLayers != 1 {
			return fmt.Errorf("%w: ROW_MAJOR textures must have a single mip and array layer", rterror.ErrInvalidArgument)
		}
		if d.HeapType == HeapTypeCustom {
			return fmt.Errorf("%w: ROW_MAJOR textures cannot be CPU-visible on CUSTOM heaps", rterror.ErrInvalidArgument)
		}
	}

	if d.SampleCount > 1 {
		if !supportsMSAA(d.Dimension) {
			return fmt.Errorf("%w: SampleDesc.Count > 1 on a dimension that does not support MSAA", rterror.ErrInvalidArgument)
		}
		if d.Flags&(FlagAllowRenderTarget|FlagAllowDepthStencil) == 0 {
			return fmt.Errorf("%w: MSAA requires ALLOW_RENDER_TARGET or ALLOW_DEPTH_STENCIL", rterror.ErrInvalidArgument)
		}
		if d.Flags&FlagAllowUnorderedAccess != 0 && !dev.Features.MSAAStorageImage {
			return fmt.Errorf("%w: MSAA UAV requires shaderStorageImageMultisample", rterror.ErrInvalidArgument)
		}
	}

	if err := validateAlignment(d); err != nil {
		return err
	}

	if err := validateInitialState(d); err != nil {
		return err
	}

	if err := validateCastableFormats(d); err != nil {
		return err
	}

	return nil
}

func supportsMSAA(dim Dimension) bool {
	return dim == DimensionTexture2D
}

// validateAlignment implements alignment rule: must be 0,
// 4 KiB, 64 KiB, or 4 MiB (MSAA); a "small" (4 KiB) alignment is only
// legal when the estimated slice size actually fits within it.
func validateAlignment(d Desc) error {
	switch d.Alignment {
	case 0, 4 * 1024, 64 * 1024, 4 * 1024 * 1024:
	default:
		return fmt.Errorf("%w: alignment must be 0, 4KiB, 64KiB, or 4MiB", rterror.ErrInvalidArgument)
	}

	if d.Alignment == 4*1024 {
		sliceSize := estimateSliceSize(d)
		if sliceSize > 4*1024 {
			return fmt.Errorf("%w: 4KiB alignment requested but estimated slice size %d does not fit", rterror.ErrInvalidArgument, sliceSize)
		}
	}
	return nil
}

func estimateSliceSize(d Desc) uint64 {
	entry, ok := formatcatalog.Lookup(d.Format)
	if !ok {
		return d.Width
	}
	bw, bh := entry.BlockCount(uint32(d.Width), d.Height)
	return uint64(bw) * uint64(bh) * uint64(entry.BytesPerBlock)
}

// validateInitialState enforces heap-type initial-state rules: UPLOAD
// heaps accept only GENERIC_READ-subset states; READBACK heaps accept
// only COPY_DEST or COMMON.
func validateInitialState(d Desc) error {
	switch d.HeapType {
	case HeapTypeUpload:
		if d.InitialState != StateCommon && d.InitialState&^StateGenericReadMask != 0 {
			return fmt.Errorf("%w: UPLOAD heap resources must start in a state that is a subset of GENERIC_READ or COMMON", rterror.ErrInvalidArgument)
		}
	case HeapTypeReadback:
		if d.InitialState != StateCopyDest && d.InitialState != StateCommon {
			return fmt.Errorf("%w: READBACK heap resources must start in COPY_DEST or COMMON", rterror.ErrInvalidArgument)
		}
	}

	if d.InitialState != StateCommon {
		needsRT := d.InitialState&0x4 != 0
		if needsRT && d.Flags&FlagAllowRenderTarget == 0 {
			return fmt.Errorf("%w: RENDER_TARGET initial state requires ALLOW_RENDER_TARGET", rterror.ErrInvalidArgument)
		}
	}
	return nil
}

// validateCastableFormats enforces the castable-format-list invariant:
// every entry must be compatible in block size/byte width with the
// base format.
func validateCastableFormats(d Desc) error {
	if len(d.CastableFormats) == 0 {
		return nil
	}
	base, ok := formatcatalog.Lookup(d.Format)
	if !ok {
		return fmt.Errorf("%w: unknown base format for castable-format validation", rterror.ErrInvalidArgument)
	}
	for _, f := range d.CastableFormats {
		entry, ok := formatcatalog.Lookup(f)
		if !ok {
			return fmt.Errorf("%w: unknown castable format %v", rterror.ErrInvalidArgument, f)
		}
		if !base.CastCompatible(entry) {
			return fmt.Errorf("%w: castable format %v is not block/byte compatible with base format %v", rterror.ErrInvalidArgument, f, d.Format)
		}
	}
	return nil
}

const maxFormatCompatibilitySlots = 8

// buildFormatCompatibilityList implements 's
// "Format compatibility list construction" algorithm.
func buildFormatCompatibilityList(d Desc, dev *gpudevice.Device) ([]vk.Format, bool, bool, error) {
	if d.Dimension == DimensionBuffer {
		// Buffers carry Format=UNKNOWN and have no image format list.
		return nil, false, false, nil
	}
	base, ok := formatcatalog.Lookup(d.Format)
	if !ok {
		return nil, false, false, fmt.Errorf("%w: unknown base format", rterror.ErrInvalidArgument)
	}

	list := []vk.Format{base.VkFormat}
	seen := map[vk.Format]bool{base.VkFormat: true}

	add := func(f vk.Format) {
		if !seen[f] {
			seen[f] = true
			list = append(list, f)
		}
	}

	for _, cf := range d.CastableFormats {
		entry, ok := formatcatalog.Lookup(cf)
		if !ok || entry.Typeless {
			// Typeless entries contribute only to the feature union,
			// never to the Vulkan compatibility list itself.
			continue
		}
		add(entry.VkFormat)
	}

	if d.Flags&FlagAllowUnorderedAccess != 0 && is32BitTypeless(d.Format) {
		add(vk.FormatR32Uint)
		add(vk.FormatR32Sint)
		add(vk.FormatR32Sfloat)
	}

	hasR32G32Uint := seen[vk.FormatR32g32Uint]
	if dev.Features.ShaderImage64Atomics && hasR32G32Uint {
		add(vk.FormatR64Uint)
	}

	mutable := false
	blockTexelCompat := false
	if len(list) > 1 {
		mutable = true
		if base.BlockCompressed {
			for _, f := range list[1:] {
				if entry, ok := lookupByVkFormat(f); ok && !entry.BlockCompressed {
					blockTexelCompat = true
					break
				}
			}
		}
	}

	if len(list) > maxFormatCompatibilitySlots {
		rtlog.Warn("resource: format compatibility list overflowed %d slots, falling back to plain MUTABLE_FORMAT", maxFormatCompatibilitySlots)
		return []vk.Format{base.VkFormat}, true, false, nil
	}

	return list, mutable, blockTexelCompat, nil
}

func is32BitTypeless(f formatcatalog.DXGIFormat) bool {
	return f == formatcatalog.FormatR32Typeless
}

func lookupByVkFormat(target vk.Format) (formatcatalog.Entry, bool) {
	for _, dxgi := range formatcatalog.AllFormats() {
		if e, ok := formatcatalog.Lookup(dxgi); ok && e.VkFormat == target {
			return e, true
		}
	}
	return formatcatalog.Entry{}, false
}

// selectCommonLayout implements common-image-layout
// selection table.
func selectCommonLayout(d Desc) vk.ImageLayout {
	if d.Dimension == DimensionBuffer {
		return vk.ImageLayoutUndefined
	}
	if d.Flags&FlagAllowSimultaneousAccess != 0 || d.Layout == LayoutRowMajor {
		return vk.ImageLayoutGeneral
	}
	if d.Flags&FlagAllowDepthStencil != 0 {
		if d.Flags&FlagDenyShaderResource != 0 {
			return vk.ImageLayoutDepthStencilAttachmentOptimal
		}
		return vk.ImageLayoutDepthStencilReadOnlyOptimal
	}
	return vk.ImageLayoutShaderReadOnlyOptimal
}

// AddRef bumps both the public and the internal refcount.
func (r *Resource) AddRef() {
	r.publicRefcount++
	r.internalRefcount++
}

// Release decrements both refcounts per lifecycle rule:
// public reaching zero tears down the view map and user-visible
// state; internal reaching zero (which can lag behind, since command
// lists hold internal-only references) frees the Vulkan objects.
// Returns true once the internal refcount (and therefore the whole
// resource) is gone.
func (r *Resource) Release() bool {
	r.publicRefcount--
	if r.publicRefcount == 0 {
		r.Views.Clear()
	}

	r.internalRefcount--
	if r.internalRefcount == 0 {
		for _, fn := range r.destroyNotifiers {
			fn()
		}
		return true
	}
	return false
}

// AddInternalRef bumps only the internal refcount, for a holder (an
// in-flight command list tracking this resource) that has no public
// handle of its own and must not keep the view map alive once the
// application's last public reference is gone.
func (r *Resource) AddInternalRef() {
	r.internalRefcount++
}

// ReleaseInternal decrements only the internal refcount, invoking the
// destruction notifiers and returning true exactly once, when it
// reaches zero. A command list calls this once its submission retires,
// which may happen well after the application's own Release brought
// the public refcount to zero.
func (r *Resource) ReleaseInternal() bool {
	r.internalRefcount--
	if r.internalRefcount == 0 {
		for _, fn := range r.destroyNotifiers {
			fn()
		}
		return true
	}
	return false
}

// AddDestructionNotifier registers a callback invoked once, when the
// resource's internal refcount reaches zero.
func (r *Resource) AddDestructionNotifier(fn func()) {
	r.destroyNotifiers = append(r.destroyNotifiers, fn)
}

// TransitionInitialLayout reports whether this is the resource's first
// layout transition and clears the flag so later callers see false.
// Placed RT/DSV resources are expected to call SkipInitialLayoutTransition
// instead when clearing compressed metadata would clobber an aliased
// resource.
func (r *Resource) TransitionInitialLayout() bool {
	if !r.initialLayoutTransition {
		return false
	}
	r.initialLayoutTransition = false
	return true
}

// SkipInitialLayoutTransition marks the initial transition as already
// consumed without emitting one, per placed-RT/DSV rule.
func (r *Resource) SkipInitialLayoutTransition() {
	r.initialLayoutTransition = false
}
