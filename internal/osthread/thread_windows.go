//go:build windows

package osthread

import (
	"syscall"
)

var (
	kernel32          = syscall.NewLazyDLL("kernel32.dll")
	setThreadPriority = kernel32.NewProc("SetThreadPriority")
	getCurrentThread  = kernel32.NewProc("GetCurrentThread")
)

// SetNice maps a nice value onto THREAD_PRIORITY_LOWEST..THREAD_PRIORITY_HIGHEST
// and applies it to the calling OS thread.
func SetNice(nice int) error {
	level := -clampNice(nice) / 4
	level = max(-2, min(2, level))

	handle, _, _ := getCurrentThread.Call()
	ret, _, err := setThreadPriority.Call(handle, uintptr(int32(level)))
	if ret == 0 {
		return err
	}
	return nil
}

// Count returns the number of threads the runtime has created.
func Count() int {
	return countFromProfile()
}
