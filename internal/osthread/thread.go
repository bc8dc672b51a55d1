// Package osthread binds worker goroutines to OS threads and adjusts those threads.
package osthread

import "runtime"

// Bind wires the calling goroutine to its current OS thread for the rest of its life.
// There is no unbind: the runtime terminates the thread when the goroutine exits, so
// per-thread settings such as priority never reach another goroutine.
func Bind() {
	runtime.LockOSThread()
}
