// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_windows.go, etc.) guarded by build tags.
//
// Pinning binds the OS thread running the calling goroutine, so PinCurrent
// also locks the goroutine to that thread until Unpin.

package affinity

import (
	"fmt"
	"runtime"

	"github.com/momentics/hioload-lockfree/api"
)

// PinCurrent locks the calling goroutine to its OS thread and binds that
// thread to the given logical CPU. cpuID is taken modulo runtime.NumCPU().
func PinCurrent(cpuID int) error {
	if cpuID < 0 {
		return fmt.Errorf("affinity: cpu %d: %w", cpuID, api.ErrInvalidArgument)
	}
	runtime.LockOSThread()
	if err := setAffinityPlatform(cpuID % runtime.NumCPU()); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}

// Unpin releases the goroutine from its OS thread. The thread keeps its
// CPU mask; the Go runtime discards locked threads that exit the goroutine.
func Unpin() {
	runtime.UnlockOSThread()
}

// Supported reports whether pinning is implemented on this platform.
func Supported() bool { return supported }
