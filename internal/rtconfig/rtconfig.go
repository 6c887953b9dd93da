// Package rtconfig centralizes the runtime's environment variables and
// an optional TOML tuning-file override, watched for live reload with
// fsnotify. Config is an atomically-swapped snapshot so hot paths
// (present, descriptor writes) never take a lock to read it.
package rtconfig

import (
	"os"
	"strconv"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/d3d12vk/corevk/internal/rtlog"
)

// Tuning holds knobs that aren't worth a dedicated env var: sampler
// pool sizes and the frame-rate limiter's measurement-window bounds.
// The swapchain FrameLimiter does not read the window bounds; it uses
// its own fixed 64-frame window.
type Tuning struct {
	SamplerPoolDescriptors int `toml:"sampler_pool_descriptors"`
	SamplerPoolSets        int `toml:"sampler_pool_sets"`
	FrameLimiterMinWindow  int `toml:"frame_limiter_min_window"`
	FrameLimiterMaxWindow  int `toml:"frame_limiter_max_window"`
}

func defaultTuning() Tuning {
	return Tuning{
		SamplerPoolDescriptors: 16384,
		SamplerPoolSets:        4096,
		FrameLimiterMinWindow:  8,
		FrameLimiterMaxWindow:  128,
	}
}

// Config is the full set of process-wide knobs read once at startup
// (and re-read on a tuning-file change).
type Config struct {
	// SwapchainLatencyFrames overrides VKD3D_SWAPCHAIN_LATENCY_FRAMES
	// (clamped to [1,16]; 0 means "use the implementation default").
	SwapchainLatencyFrames int
	// SwapchainImages overrides VKD3D_SWAPCHAIN_IMAGES (0 means unset).
	SwapchainImages int
	// DebugLatency mirrors VKD3D_SWAPCHAIN_DEBUG_LATENCY: log per-frame
	// latency measurements.
	DebugLatency bool
	// FrameRateOverride mirrors VKD3D_FRAME_RATE; 0 means unset.
	FrameRateOverride float64
	// TimestampProfilePath mirrors VKD3D_TIMESTAMP_PROFILE; empty means
	// the profiler is disabled.
	TimestampProfilePath string

	Tuning Tuning
}

var current atomic.Pointer[Config]

func init() {
	cfg := loadFromEnv()
	current.Store(&cfg)
}

// Current returns the active configuration snapshot. Safe to call from
// any thread including the present and wait-thread hot paths.
func Current() *Config {
	return current.Load()
}

func loadFromEnv() Config {
	cfg := Config{Tuning: defaultTuning()}

	if v, ok := envInt("VKD3D_SWAPCHAIN_LATENCY_FRAMES"); ok {
		if v < 1 {
			v = 1
		}
		if v > 16 {
			v = 16
		}
		cfg.SwapchainLatencyFrames = v
	}
	if v, ok := envInt("VKD3D_SWAPCHAIN_IMAGES"); ok {
		cfg.SwapchainImages = v
	}
	if v, ok := os.LookupEnv("VKD3D_SWAPCHAIN_DEBUG_LATENCY"); ok {
		cfg.DebugLatency = v == "1"
	}
	if v, ok := envFloat("VKD3D_FRAME_RATE"); ok {
		cfg.FrameRateOverride = v
	}
	cfg.TimestampProfilePath = os.Getenv("VKD3D_TIMESTAMP_PROFILE")

	return cfg
}

func envInt(name string) (int, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		rtlog.Warn("rtconfig: ignoring malformed %s=%q", name, v)
		return 0, false
	}
	return n, true
}

func envFloat(name string) (float64, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		rtlog.Warn("rtconfig: ignoring malformed %s=%q", name, v)
		return 0, false
	}
	return n, true
}

// LoadTuningFile parses an optional TOML tuning file, overlaying it on
// top of env-derived defaults, and starts an fsnotify watch so edits to
// the file take effect without a process restart.
func LoadTuningFile(path string) error {
	if err := reloadTuningFile(path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return err
	}

	go watchTuningFile(watcher, path)
	return nil
}

func reloadTuningFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	tuning := defaultTuning()
	if err := toml.Unmarshal(data, &tuning); err != nil {
		return err
	}

	old := current.Load()
	next := *old
	next.Tuning = tuning
	current.Store(&next)
	return nil
}

func watchTuningFile(watcher *fsnotify.Watcher, path string) {
	defer watcher.Close()
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := reloadTuningFile(path); err != nil {
					rtlog.Warn("rtconfig: failed to reload %s: %v", path, err)
				} else {
					rtlog.Info("rtconfig: reloaded tuning file %s", path)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			rtlog.Warn("rtconfig: watch error on %s: %v", path, err)
		}
	}
}
