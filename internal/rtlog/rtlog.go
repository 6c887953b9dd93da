// Package rtlog provides the process-wide structured logger shared by
// every core subsystem (resource, descriptor heap, swapchain, profiler).
package rtlog

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func get() *logger {
	once.Do(func() {
		l := log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "corevk",
		})
		l.SetLevel(log.InfoLevel)
		singleton = &logger{l}
	})
	return singleton
}

// SetLevel overrides the default Info level, e.g. to Debug when
// VKD3D_SWAPCHAIN_DEBUG_LATENCY is set.
func SetLevel(level log.Level) {
	get().SetLevel(level)
}

func Debug(msg string, args ...interface{}) {
	get().Debugf(msg, args...)
}

func Info(msg string, args ...interface{}) {
	get().Infof(msg, args...)
}

func Warn(msg string, args ...interface{}) {
	get().Warnf(msg, args...)
}

func Error(msg string, args ...interface{}) {
	get().Errorf(msg, args...)
}

func Fatal(msg string, args ...interface{}) {
	get().Fatalf(msg, args...)
}
