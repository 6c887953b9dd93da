package profiler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommandOps struct {
	timestamps map[uint32]uint64
	stats      map[uint32]uint64
}

func newFakeCommandOps() *fakeCommandOps {
	return &fakeCommandOps{timestamps: map[uint32]uint64{}, stats: map[uint32]uint64{}}
}

func (f *fakeCommandOps) WriteTimestamp(cmd vk.CommandBuffer, pool vk.QueryPool, query uint32) {
	f.timestamps[query] = uint64(time.Now().UnixNano())
}

func (f *fakeCommandOps) BeginQuery(cmd vk.CommandBuffer, pool vk.QueryPool, query uint32) {}

func (f *fakeCommandOps) EndQuery(cmd vk.CommandBuffer, pool vk.QueryPool, query uint32) {
	f.stats[query] = 1<<32 | 1
}

func (f *fakeCommandOps) GetQueryPoolResults(pool vk.QueryPool, query uint32) (uint64, bool, error) {
	if pool == vk.QueryPool(1) {
		v, ok := f.timestamps[query]
		return v, ok, nil
	}
	v, ok := f.stats[query]
	return v, ok, nil
}

func TestDisabledProfilerIsNil(t *testing.T) {
	p, err := New(Config{Enabled: false}, nil, newFakeCommandOps())
	require.NoError(t, err)
	assert.Nil(t, p)
	p.Close() // must be safe on a nil *Profiler
}

func TestMarkPreCommandThenSubmitAccumulatesStats(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "profile.csv")

	ops := newFakeCommandOps()
	p, err := New(Config{
		Enabled:       true,
		OutputPath:    out,
		PoolSize:      16,
		TimestampPool: vk.QueryPool(1),
		StatsPools:    map[PipelineType]vk.QueryPool{PipelineGraphics: vk.QueryPool(2)},
	}, nil, ops)
	require.NoError(t, err)
	defer p.Close()

	p.RegisterPipelineState(0xABCD, PipelineGraphics, []uint64{0x1, 0x2}, 0xEF)

	const listID = uint64(1)
	require.NoError(t, p.MarkPreCommand(listID, vk.CommandBuffer(nil), 0xABCD, PipelineGraphics))
	p.EndRenderPass(listID, vk.CommandBuffer(nil))
	p.SubmitCommandList(listID)
	p.ResetCommandList(listID)

	require.Eventually(t, func() bool {
		p.statsMu.Lock()
		defer p.statsMu.Unlock()
		s, ok := p.stats[0xABCD]
		return ok && s.commandCount == 1
	}, time.Second, time.Millisecond)
}

func TestFlushWritesCSVHeaderAndSwapchainRow(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "profile.csv")

	err := writeCSV(out, map[uint64]psoStats{
		0x1: {pipelineType: PipelineGraphics, totalTimeS: 0.5, commandCount: 2},
	}, 42)
	require.NoError(t, err)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	content := string(b)
	assert.Contains(t, content, "PSO Type,PSO Hash")
	assert.Contains(t, content, "INTERNAL,SWAPCHAIN,0,0,0,0,42,0")
	assert.Contains(t, content, "VS,0000000000000001")
}

func TestSlotPoolExhaustionReportsError(t *testing.T) {
	ops := newFakeCommandOps()
	p, err := New(Config{Enabled: true, PoolSize: 1, TimestampPool: vk.QueryPool(1)}, nil, ops)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.MarkPreCommand(1, vk.CommandBuffer(nil), 0x1, PipelineGraphics))
	err = p.MarkPreCommand(2, vk.CommandBuffer(nil), 0x1, PipelineGraphics)
	assert.Error(t, err)
}

func TestResetCommandListReturnsSlotToPool(t *testing.T) {
	ops := newFakeCommandOps()
	p, err := New(Config{Enabled: true, PoolSize: 1, TimestampPool: vk.QueryPool(1)}, nil, ops)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.MarkPreCommand(1, vk.CommandBuffer(nil), 0x1, PipelineGraphics))
	p.ResetCommandList(1)
	require.NoError(t, p.MarkPreCommand(2, vk.CommandBuffer(nil), 0x1, PipelineGraphics))
}
