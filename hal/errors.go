package hal

import (
	"errors"
	"fmt"
)

// Device errors. Any non-memory failure of a device operation is reported as
// device-lost: partial GPU or driver failures are not reliably classifiable,
// so the caller gets a single unambiguous signal to tear down and recreate.
var (
	ErrOutOfMemory = errors.New("hal: out of memory")
	ErrDeviceLost  = errors.New("hal: device lost")
)

// Surface errors for the presentation path.
var (
	// ErrSurfaceLost means the swapchain or its wait handle is gone and
	// the surface must be reconfigured.
	ErrSurfaceLost = errors.New("hal: surface lost")

	// ErrNoImageAvailable means every backbuffer is currently acquired;
	// one must be presented or discarded before the next acquire.
	ErrNoImageAvailable = errors.New("hal: no swapchain image available")
)

// SurfaceError carries a short stage-naming reason for presentation-path
// failures. The raw native code is logged at the failure site and is not
// part of the error contract.
type SurfaceError struct {
	Reason string
}

func (e *SurfaceError) Error() string {
	return fmt.Sprintf("hal: surface error: %s", e.Reason)
}

// SurfaceFailure wraps a stage name into a SurfaceError.
func SurfaceFailure(reason string) error {
	return &SurfaceError{Reason: reason}
}
