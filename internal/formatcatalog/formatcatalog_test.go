package formatcatalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownFormat(t *testing.T) {
	e, ok := Lookup(FormatR8G8B8A8Unorm)
	require.True(t, ok)
	assert.EqualValues(t, 4, e.BytesPerBlock)
	assert.EqualValues(t, 1, e.BlockWidth)
}

func TestLookupUnknownFormat(t *testing.T) {
	_, ok := Lookup(DXGIFormat(9999))
	assert.False(t, ok)
}

func TestBlockCountRoundsUp(t *testing.T) {
	e, _ := Lookup(FormatBC7Unorm)
	bw, bh := e.BlockCount(17, 9)
	assert.EqualValues(t, 5, bw) // ceil(17/4)
	assert.EqualValues(t, 3, bh) // ceil(9/4)
}

func TestCastCompatibleTypelessAlwaysCompatible(t *testing.T) {
	typeless, _ := Lookup(FormatR32Typeless)
	uintFmt, _ := Lookup(FormatR32Uint)
	assert.True(t, typeless.CastCompatible(uintFmt))
}

func TestCastCompatibleRejectsMismatchedBlockSize(t *testing.T) {
	rgba, _ := Lookup(FormatR8G8B8A8Unorm)
	bc7, _ := Lookup(FormatBC7Unorm)
	assert.False(t, rgba.CastCompatible(bc7))
}

func TestCastCompatibleAcceptsSameLayout(t *testing.T) {
	a, _ := Lookup(FormatR8G8B8A8Unorm)
	b, _ := Lookup(FormatR8G8B8A8UnormSRGB)
	assert.True(t, a.CastCompatible(b))
}
