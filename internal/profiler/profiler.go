// Package profiler implements an optional GPU timestamp profiler:
// per-PSO cumulative GPU time and invocation counts, accumulated off a
// dedicated worker goroutine and flushed to CSV.
//
// Actual Vulkan query recording (vkCmdWriteTimestamp,
// vkCmdBeginQuery/EndQuery, vkGetQueryPoolResults) needs a live
// command buffer and device, which this module treats as an external
// collaborator boundary the same way internal/swapchain treats the
// surface/present calls: the caller supplies a CommandOps
// implementation.
package profiler

import (
	"sync"
	"sync/atomic"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/d3d12vk/corevk/internal/gpudevice"
	"github.com/d3d12vk/corevk/internal/rterror"
	"github.com/d3d12vk/corevk/internal/rtlog"
)

// defaultPoolSize is the vacant-index pool's default size.
const defaultPoolSize = 262144

// flushInterval is the periodic CSV flush cadence.
const flushInterval = 5 * time.Second

// PipelineType distinguishes the pipeline-statistics pool a slot draws
// from.
type PipelineType uint8

const (
	PipelineGraphics PipelineType = iota
	PipelineCompute
	PipelineMesh
)

func (t PipelineType) csvTag() string {
	switch t {
	case PipelineGraphics:
		return "VS"
	case PipelineCompute:
		return "CS"
	case PipelineMesh:
		return "MS"
	default:
		return "VS"
	}
}

// CommandOps is the external collaborator interface for the handful of
// Vulkan query calls this package needs a live command buffer/device
// for.
type CommandOps interface {
	WriteTimestamp(cmd vk.CommandBuffer, pool vk.QueryPool, query uint32)
	BeginQuery(cmd vk.CommandBuffer, pool vk.QueryPool, query uint32)
	EndQuery(cmd vk.CommandBuffer, pool vk.QueryPool, query uint32)
	// GetQueryPoolResults returns (value, available, err); available
	// is false while the query result has not yet landed, letting the
	// worker thread poll without blocking on a VK_QUERY_RESULT_WAIT.
	GetQueryPoolResults(pool vk.QueryPool, query uint32) (value uint64, available bool, err error)
}

// Config configures a Profiler; Enabled mirrors whether
// VKD3D_TIMESTAMP_PROFILE was set at all.
type Config struct {
	Enabled        bool
	OutputPath     string
	PoolSize       int
	TimestampPool  vk.QueryPool
	StatsPools     map[PipelineType]vk.QueryPool
}

// pendingEntry is one submitted-but-not-yet-resolved timestamp pair,
// pushed into the ring the worker goroutine drains.
type pendingEntry struct {
	slot         uint32
	psoHash      uint64
	pipelineType PipelineType
	dispatchCount uint32
}

// recordedSlot tracks a slot allocated for the current command list
// before submit, so ResetCommandList/EndCommandBuffer can find it.
type recordedSlot struct {
	slot          uint32
	psoHash       uint64
	pipelineType  PipelineType
	dispatchCount uint32
	ended         bool
	submitted     bool
}

// psoStats accumulates the CSV row fields for one PSO hash.
type psoStats struct {
	pipelineType     PipelineType
	shaderHashes     []uint64
	rootSignatureHash uint64
	totalTimeS       float64
	nonPSInvocations uint64
	psInvocations    uint64
	commandCount     uint64
}

// Profiler accumulates per-PSO GPU timing and invocation counts off a
// dedicated worker goroutine and periodically flushes them to CSV.
type Profiler struct {
	ops CommandOps

	pool          *slotPool
	timestampPool vk.QueryPool
	statsPools    map[PipelineType]vk.QueryPool

	listsMu sync.Mutex
	lists   map[uint64][]*recordedSlot

	submitCh chan pendingEntry
	done     chan struct{}
	closeOnce sync.Once

	statsMu sync.Mutex
	stats   map[uint64]*psoStats

	outputPath string
	frameCount atomic.Uint64
}

// New starts a Profiler and its worker/flush goroutines. Returns nil,
// nil when cfg.Enabled is false, so callers can unconditionally hold a
// *Profiler and nil-check before use.
func New(cfg Config, dev *gpudevice.Device, ops CommandOps) (*Profiler, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	size := cfg.PoolSize
	if size <= 0 {
		size = defaultPoolSize
	}

	p := &Profiler{
		ops:           ops,
		pool:          newSlotPool(size),
		timestampPool: cfg.TimestampPool,
		statsPools:    cfg.StatsPools,
		lists:         make(map[uint64][]*recordedSlot),
		submitCh:      make(chan pendingEntry, 4096),
		done:          make(chan struct{}),
		stats:         make(map[uint64]*psoStats),
		outputPath:    cfg.OutputPath,
	}

	go p.runWorker()
	return p, nil
}

// RegisterPipelineState records a PSO's static identity (shader
// hashes, root signature hash) the first time it is seen, so later
// accumulation only needs the hash to find it.
func (p *Profiler) RegisterPipelineState(psoHash uint64, pipelineType PipelineType, shaderHashes []uint64, rootSignatureHash uint64) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	if _, ok := p.stats[psoHash]; ok {
		return
	}
	p.stats[psoHash] = &psoStats{
		pipelineType:      pipelineType,
		shaderHashes:      append([]uint64(nil), shaderHashes...),
		rootSignatureHash: rootSignatureHash,
	}
}

// MarkPreCommand runs on pre-draw/dispatch: it allocates a slot,
// writes a begin timestamp, begins the pipeline-stats query, and
// remembers it against listID so EndRenderPass/EndCommandBuffer can
// close it out.
func (p *Profiler) MarkPreCommand(listID uint64, cmd vk.CommandBuffer, psoHash uint64, pipelineType PipelineType) error {
	slot, ok := p.pool.acquire()
	if !ok {
		rtlog.Warn("profiler: vacant-index pool exhausted, dropping sample")
		return rterror.ErrOutOfMemory
	}

	p.ops.WriteTimestamp(cmd, p.timestampPool, beginIndex(slot))
	if statsPool, ok := p.statsPools[pipelineType]; ok {
		p.ops.BeginQuery(cmd, statsPool, slot)
	}

	rec := &recordedSlot{slot: slot, psoHash: psoHash, pipelineType: pipelineType}
	p.listsMu.Lock()
	p.lists[listID] = append(p.lists[listID], rec)
	p.listsMu.Unlock()
	return nil
}

// EndRenderPass runs on a state transition or render-pass end: it
// closes out every slot opened on this list that hasn't already been
// ended, writing the end timestamp and ending the pipeline-stats
// query.
func (p *Profiler) EndRenderPass(listID uint64, cmd vk.CommandBuffer) {
	p.listsMu.Lock()
	recs := p.lists[listID]
	p.listsMu.Unlock()

	for _, rec := range recs {
		if rec.ended {
			continue
		}
		p.ops.WriteTimestamp(cmd, p.timestampPool, endIndex(rec.slot))
		if statsPool, ok := p.statsPools[rec.pipelineType]; ok {
			p.ops.EndQuery(cmd, statsPool, rec.slot)
		}
		rec.ended = true
	}
}

// EndCommandBuffer flushes any queries MarkPreCommand opened that
// EndRenderPass never closed (a command list that ends mid render
// pass, or outside one entirely).
func (p *Profiler) EndCommandBuffer(listID uint64, cmd vk.CommandBuffer) {
	p.EndRenderPass(listID, cmd)
}

// ResetCommandList releases every slot recorded against listID that
// was never submitted back to the vacant pool. Slots that were
// already submitted are left alone: the worker goroutine owns their
// lifetime from here and releases them once vkGetQueryPoolResults
// resolves (matching the D3D12 contract that Reset on a submitted
// list only follows a GPU-side wait the caller already performed).
func (p *Profiler) ResetCommandList(listID uint64) {
	p.listsMu.Lock()
	recs := p.lists[listID]
	delete(p.lists, listID)
	p.listsMu.Unlock()

	for _, rec := range recs {
		if !rec.submitted {
			p.pool.release(rec.slot)
		}
	}
}

// SubmitCommandList runs on command-list submit: it bumps the
// refcount for every recorded slot (so a resubmitted list does not get
// its slots double-freed) and pushes each one into the worker's ring.
func (p *Profiler) SubmitCommandList(listID uint64) {
	p.listsMu.Lock()
	recs := p.lists[listID]
	p.listsMu.Unlock()

	for _, rec := range recs {
		p.pool.addRef(rec.slot)
		select {
		case p.submitCh <- pendingEntry{slot: rec.slot, psoHash: rec.psoHash, pipelineType: rec.pipelineType, dispatchCount: rec.dispatchCount}:
			rec.submitted = true
		default:
			rtlog.Warn("profiler: submit ring full, dropping sample")
			p.pool.release(rec.slot)
		}
	}
}

// MarkFrameBoundary bumps the SWAPCHAIN row's command count, mirroring
// the frame_count column in the CSV output.
func (p *Profiler) MarkFrameBoundary() {
	p.frameCount.Add(1)
}

func beginIndex(slot uint32) uint32 { return slot * 2 }
func endIndex(slot uint32) uint32   { return slot*2 + 1 }

// runWorker polls vkGetQueryPoolResults without blocking the Vulkan
// queue: it drains submitCh, polls each entry's query results, and
// accumulates them into per-PSO stats once both the begin and end
// timestamps (and any pipeline-statistics query) are available, then
// periodically (and on shutdown) flushes a CSV snapshot.
func (p *Profiler) runWorker() {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	retryTick := time.NewTicker(time.Millisecond)
	defer retryTick.Stop()

	var retry []pendingEntry

	for {
		select {
		case entry, ok := <-p.submitCh:
			if !ok {
				p.flush()
				close(p.done)
				return
			}
			if !p.resolve(entry) {
				retry = append(retry, entry)
			}
		case <-ticker.C:
			p.flush()
		case <-retryTick.C:
			if len(retry) == 0 {
				continue
			}
			next := retry[:0]
			for _, e := range retry {
				if !p.resolve(e) {
					next = append(next, e)
				}
			}
			retry = next
		}
	}
}

// resolve polls one entry's timestamp (and pipeline-statistics, if
// applicable) query results; returns false while still pending so the
// caller retries later without blocking the channel.
func (p *Profiler) resolve(entry pendingEntry) bool {
	begin, beginReady, err := p.ops.GetQueryPoolResults(p.timestampPool, beginIndex(entry.slot))
	if err != nil || !beginReady {
		return false
	}
	end, endReady, err := p.ops.GetQueryPoolResults(p.timestampPool, endIndex(entry.slot))
	if err != nil || !endReady {
		return false
	}

	var nonPS, ps uint64
	if statsPool, ok := p.statsPools[entry.pipelineType]; ok {
		v, ready, err := p.ops.GetQueryPoolResults(statsPool, entry.slot)
		if err != nil || !ready {
			return false
		}
		nonPS, ps = splitPipelineStatistics(v, entry.pipelineType)
	}

	p.accumulate(entry, begin, end, nonPS, ps)
	p.pool.release(entry.slot)
	return true
}

// splitPipelineStatistics pulls the fragment-shader-invocation count
// out of a combined VkQueryPoolResults word; graphics pipelines report
// a real split, compute/mesh pipelines have no PS invocations.
func splitPipelineStatistics(v uint64, t PipelineType) (nonPS, ps uint64) {
	if t != PipelineGraphics {
		return v, 0
	}
	return v >> 32, v & 0xffffffff
}

func (p *Profiler) accumulate(entry pendingEntry, begin, end, nonPS, ps uint64) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	s, ok := p.stats[entry.psoHash]
	if !ok {
		s = &psoStats{pipelineType: entry.pipelineType}
		p.stats[entry.psoHash] = s
	}
	if end > begin {
		s.totalTimeS += float64(end-begin) / 1e9
	}
	s.nonPSInvocations += nonPS
	s.psInvocations += ps
	s.commandCount++
}

func (p *Profiler) flush() {
	if p.outputPath == "" {
		return
	}
	p.statsMu.Lock()
	snapshot := make(map[uint64]psoStats, len(p.stats))
	for k, v := range p.stats {
		snapshot[k] = *v
	}
	p.statsMu.Unlock()

	if err := writeCSV(p.outputPath, snapshot, p.frameCount.Load()); err != nil {
		rtlog.Warn("profiler: CSV flush failed: %v", err)
	}
}

// Close stops the worker goroutine; its final iteration flushes CSV
// output before returning.
func (p *Profiler) Close() {
	if p == nil {
		return
	}
	p.closeOnce.Do(func() {
		close(p.submitCh)
		<-p.done
	})
}
