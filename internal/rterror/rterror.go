// Package rterror defines the error taxonomy shared by every core
// subsystem, per the propagation policy: validation errors and OOM are
// surfaced verbatim, transient present errors are recovered locally,
// device loss is surfaced and reported to diagnostics, feature-unsupported
// maps to a dedicated sentinel.
package rterror

import "errors"

var (
	// ErrInvalidArgument marks a permanent rejection: out-of-range
	// subresource, incompatible resource flags, bad heap/property
	// combination. Never retried by the caller.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfMemory marks an allocation failure, host or device side.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrDeviceLost marks a Vulkan submission that reported a lost
	// device. Callers should report to their diagnostic tracker and
	// otherwise propagate as a generic failure.
	ErrDeviceLost = errors.New("device lost")

	// ErrSurfaceLost is latched as terminal once observed; present and
	// present-wait continue synthetically so the application does not
	// deadlock, but no further swapchain is ever created.
	ErrSurfaceLost = errors.New("surface lost")

	// ErrNotImplemented marks a feature consciously not ported (shared
	// heaps on non-Windows, host-visible depth/stencil, protected
	// resource sessions, etc).
	ErrNotImplemented = errors.New("not implemented")
)
