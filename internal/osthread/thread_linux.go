//go:build linux

package osthread

import (
	"os"

	"golang.org/x/sys/unix"
)

// SetNice sets the nice value of the calling OS thread.
// Must be called from a goroutine that has called Bind.
// Lowering the value below the current one usually needs CAP_SYS_NICE.
func SetNice(nice int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), clampNice(nice))
}

// Count returns the number of OS threads in the process as reported by /proc.
func Count() int {
	entries, err := os.ReadDir("/proc/self/task")
	if err != nil {
		return countFromProfile()
	}
	return len(entries)
}
