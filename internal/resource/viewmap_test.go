package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d3d12vk/corevk/internal/view"
)

func TestCreateViewCachesOnSecondLookup(t *testing.T) {
	m := NewViewMap()
	calls := 0
	key := view.Key{Kind: view.KindImage}

	build := func() (*view.View, error) {
		calls++
		return view.New(view.KindImage, func() {}), nil
	}

	v1, err := m.CreateView(key, build)
	require.NoError(t, err)
	v2, err := m.CreateView(key, build)
	require.NoError(t, err)

	assert.Same(t, v1, v2)
	assert.Equal(t, 1, calls)
	assert.Equal(t, int32(2), v1.RefCount(), "initial ref + one CreateView hit")
	assert.Equal(t, 1, m.Len())
}

func TestCreateViewDestroysLoserOnRace(t *testing.T) {
	m := NewViewMap()
	key := view.Key{Kind: view.KindImage}

	winner := view.New(view.KindImage, func() {})

	loserDestroyed := false
	// Simulate a racing insert that wins: while CreateView builds its
	// view outside the lock, the would-be winner is inserted directly,
	// so the write-locked insert finds it and CreateView must discard
	// its own build.
	v, err := m.CreateView(key, func() (*view.View, error) {
		_, inserted := m.entries.Insert(key, winner)
		require.True(t, inserted)
		return view.New(view.KindImage, func() { loserDestroyed = true }), nil
	})
	require.NoError(t, err)
	assert.Same(t, winner, v)
	assert.True(t, loserDestroyed)
	assert.Equal(t, int32(2), winner.RefCount(), "initial ref + the ref returned to the losing caller")
}

func TestClearDestroysAllViews(t *testing.T) {
	m := NewViewMap()
	destroyedCount := 0

	for i := 0; i < 4; i++ {
		key := view.Key{Kind: view.KindImage, Range: view.SubresourceRange{MipLevels: uint32(i)}}
		_, err := m.CreateView(key, func() (*view.View, error) {
			return view.New(view.KindImage, func() { destroyedCount++ }), nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 4, m.Len())
	m.Clear()
	assert.Equal(t, 4, destroyedCount)
	assert.Equal(t, 0, m.Len())
}
