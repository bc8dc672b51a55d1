package pool

// Priority is the scheduling priority given to worker threads.
type Priority int

const (
	// MinPriority is the lowest worker priority.
	MinPriority Priority = 1
	// NormPriority is the default worker priority, leaving the OS thread untouched.
	NormPriority Priority = 5
	// MaxPriority is the highest worker priority.
	MaxPriority Priority = 10
)

// Valid reports whether p is inside [MinPriority, MaxPriority].
func (p Priority) Valid() bool {
	return p >= MinPriority && p <= MaxPriority
}

// nice maps p onto a Unix nice value: NormPriority is 0, each step is two nice levels.
func (p Priority) nice() int {
	return int(NormPriority-p) * 2
}
