//go:build windows

// File: affinity/affinity_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows-specific implementation for setting thread CPU affinity.

package affinity

import (
	"fmt"

	"golang.org/x/sys/windows"
)

const supported = true

var procSetThreadAffinityMask = windows.NewLazySystemDLL("kernel32.dll").NewProc("SetThreadAffinityMask")

// setAffinityPlatform sets thread affinity to a given CPU for Windows.
func setAffinityPlatform(cpuID int) error {
	h, err := windows.GetCurrentThread()
	if err != nil {
		return fmt.Errorf("affinity: GetCurrentThread: %w", err)
	}
	mask := uintptr(1) << uint(cpuID)
	ret, _, callErr := procSetThreadAffinityMask.Call(uintptr(h), mask)
	if ret == 0 {
		return fmt.Errorf("affinity: SetThreadAffinityMask cpu %d: %w", cpuID, callErr)
	}
	return nil
}
