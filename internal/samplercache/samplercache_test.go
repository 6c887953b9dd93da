package samplercache

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d3d12vk/corevk/internal/view"
)

func noopDestroy(vk.Sampler) {}

func TestInternDeduplicatesIdenticalKeys(t *testing.T) {
	calls := 0
	c := New(func(key view.SamplerKey) (vk.Sampler, error) {
		calls++
		return vk.Sampler(1), nil
	}, noopDestroy)

	key := view.NewSamplerKey(0, 0, 0, view.AddressWrap, view.AddressWrap, view.AddressWrap, 0, 1, 0, 0, 1, [4]float32{})

	e1, err := c.Intern(key)
	require.NoError(t, err)
	e2, err := c.Intern(key)
	require.NoError(t, err)

	assert.Same(t, e1, e2)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())
}

func TestInternReleaseDestroysSamplerOnLastRef(t *testing.T) {
	var destroyedSampler vk.Sampler
	c := New(func(key view.SamplerKey) (vk.Sampler, error) {
		return vk.Sampler(7), nil
	}, func(s vk.Sampler) {
		destroyedSampler = s
	})

	key := view.NewSamplerKey(0, 0, 0, view.AddressWrap, view.AddressWrap, view.AddressWrap, 0, 1, 0, 0, 1, [4]float32{})
	e, err := c.Intern(key)
	require.NoError(t, err)

	assert.True(t, e.View.Release(), "the only reference must retire the view and invoke destroy")
	assert.Equal(t, vk.Sampler(7), destroyedSampler, "Intern must not wrap the real sampler in a no-op destroy closure")
}

func TestInternDistinctKeysDoNotShare(t *testing.T) {
	c := New(func(key view.SamplerKey) (vk.Sampler, error) {
		return vk.Sampler(1), nil
	}, noopDestroy)

	a := view.NewSamplerKey(0, 0, 0, view.AddressWrap, view.AddressWrap, view.AddressWrap, 0, 1, 0, 0, 1, [4]float32{})
	b := view.NewSamplerKey(1, 1, 0, view.AddressWrap, view.AddressWrap, view.AddressWrap, 0, 1, 0, 0, 1, [4]float32{})

	e1, err := c.Intern(a)
	require.NoError(t, err)
	e2, err := c.Intern(b)
	require.NoError(t, err)

	assert.NotSame(t, e1, e2)
	assert.Equal(t, 2, c.Len())
}
