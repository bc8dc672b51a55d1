//go:build !linux && !windows

package osthread

// SetNice is a no-op on platforms without per-thread priorities.
func SetNice(int) error {
	return nil
}

// Count returns the number of threads the runtime has created.
func Count() int {
	return countFromProfile()
}
