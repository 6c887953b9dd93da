package resource

import "github.com/d3d12vk/corevk/internal/formatcatalog"

// TileExtent is the tile shape (in texels/blocks) for one image's
// standard-mip tail, per sparse tile layout.
type TileExtent struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

// BufferTileSize is the fixed 64 KiB granularity assigned to every
// sparse buffer tile.
const BufferTileSize = 64 * 1024

// tileExtentRow is one row of the fixed 25-row sample-count/byte-count
// table: the standard tile shape
// for a given MSAA sample count and per-texel byte size, per the
// Vulkan sparse-residency specification's mandated table.
type tileExtentRow struct {
	samples uint32
	bytes   uint8
	extent  TileExtent
}

// sparseTileTable mirrors the Vulkan spec's standard sparse image
// block shapes (VkPhysicalDeviceSparseProperties' implied table for
// formats that use the standard, non-custom, tile shape). Single
// sample rows follow the familiar 64KiB-tile doubling-extent-as-
// bytes-shrinks progression; multi-sample rows shrink the 2D footprint
// by the per-pixel sample multiplier.
var sparseTileTable = []tileExtentRow{
	{1, 1, TileExtent{256, 256, 1}},
	{1, 2, TileExtent{256, 128, 1}},
	{1, 4, TileExtent{128, 128, 1}},
	{1, 8, TileExtent{128, 64, 1}},
	{1, 16, TileExtent{64, 64, 1}},
	{1, 32, TileExtent{64, 32, 1}},
	{1, 64, TileExtent{32, 32, 1}},
	{1, 128, TileExtent{32, 16, 1}},
	{2, 1, TileExtent{128, 256, 1}},
	{2, 2, TileExtent{128, 128, 1}},
	{2, 4, TileExtent{64, 128, 1}},
	{2, 8, TileExtent{64, 64, 1}},
	{2, 16, TileExtent{32, 64, 1}},
	{2, 32, TileExtent{32, 32, 1}},
	{2, 64, TileExtent{16, 32, 1}},
	{2, 128, TileExtent{16, 16, 1}},
	{4, 1, TileExtent{128, 128, 1}},
	{4, 2, TileExtent{128, 64, 1}},
	{4, 4, TileExtent{64, 64, 1}},
	{4, 8, TileExtent{64, 32, 1}},
	{4, 16, TileExtent{32, 32, 1}},
	{4, 32, TileExtent{32, 16, 1}},
	{4, 64, TileExtent{16, 16, 1}},
	{8, 1, TileExtent{64, 128, 1}},
	{8, 2, TileExtent{64, 64, 1}},
}

// tileExtentForFormat implements the sample-count/format-byte-size
// lookup from sparse tile layout.
func tileExtentForFormat(sampleCount uint32, entry formatcatalog.Entry) TileExtent {
	bytes := entry.BytesPerBlock
	if sampleCount == 0 {
		sampleCount = 1
	}
	for _, row := range sparseTileTable {
		if row.samples == sampleCount && row.bytes == bytes {
			return row.extent
		}
	}
	// Fall back to the single-sample 128-byte row's 32x16 shape, the
	// smallest extent among the single-sample rows.
	return TileExtent{32, 16, 1}
}

// computeSparseTiling builds the SparseTiling metadata for a reserved
// resource: buffers use the fixed 64 KiB tile; images derive their
// tile shape from the format/sample-count table and replicate
// packed-mip tiles per array layer when the device lacks
// SINGLE_MIPTAIL.
func computeSparseTiling(d Desc, hasSingleMipTail bool) (*SparseTiling, error) {
	if d.Dimension == DimensionBuffer {
		tileCount := uint32((d.Width + BufferTileSize - 1) / BufferTileSize)
		return &SparseTiling{
			TotalTileCount: tileCount,
		}, nil
	}

	entry, ok := formatcatalog.Lookup(d.Format)
	if !ok {
		entry = formatcatalog.Entry{BytesPerBlock: 4}
	}
	shape := tileExtentForFormat(d.SampleCount, entry)

	standardMips, packedMipTiles := splitStandardAndPackedMips(d, shape)

	total := standardMips
	if !hasSingleMipTail {
		// Packed-mip tiles follow the per-aspect standard mips and are
		// replicated per array layer when the implementation lacks
		// SINGLE_MIPTAIL.
		total += packedMipTiles * d.DepthOrArrayLayers
	} else {
		total += packedMipTiles
	}

	return &SparseTiling{
		TileShape:          shape,
		TotalTileCount:      total,
		PackedMipTileCount: packedMipTiles,
		StandardMipCount:   uint32(d.MipLevels) - boolToUint32(packedMipTiles > 0),
	}, nil
}

// splitStandardAndPackedMips counts tiles for the mip levels large
// enough to need a full tile grid ("standard mips") versus the
// trailing packed-mip tail that shares a single tile.
func splitStandardAndPackedMips(d Desc, shape TileExtent) (standardTileCount, packedMipTiles uint32) {
	w, h := d.Width, uint64(d.Height)
	for mip := uint16(0); mip < d.MipLevels; mip++ {
		tilesW := (uint64(w) + uint64(shape.Width) - 1) / uint64(shape.Width)
		tilesH := (h + uint64(shape.Height) - 1) / uint64(shape.Height)
		if tilesW*uint64(shape.Width) < w || tilesW == 0 {
			tilesW = 1
		}

		if w < uint64(shape.Width) && h < uint64(shape.Height) {
			// Below one full tile: the remaining mips pack into a
			// single shared tile.
			packedMipTiles = 1
			break
		}

		standardTileCount += uint32(tilesW * tilesH)
		w /= 2
		if w < 1 {
			w = 1
		}
		h /= 2
		if h < 1 {
			h = 1
		}
	}
	return standardTileCount, packedMipTiles
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
