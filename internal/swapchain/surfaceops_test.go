package swapchain

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestColorSpaceForRecognizesSRGB(t *testing.T) {
	assert.Equal(t, ColorSpaceSRGB, colorSpaceFor(vk.ColorSpaceSrgbNonlinear))
}

func TestColorSpaceForFallsBackToHDRForUnrecognizedSpace(t *testing.T) {
	assert.Equal(t, ColorSpaceHDR10ST2084, colorSpaceFor(vk.ColorSpace(9999)))
}

func TestVkColorSpaceForRoundTripsSRGB(t *testing.T) {
	assert.Equal(t, vk.ColorSpaceSrgbNonlinear, vkColorSpaceFor(ColorSpaceSRGB))
}

func TestNewDeviceSurfaceOpsImplementsSurfaceOps(t *testing.T) {
	var _ SurfaceOps = NewDeviceSurfaceOps(nil)
}
