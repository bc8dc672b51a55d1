package pool

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WaitPolicy tells how long a blocking operation is allowed to wait.
type WaitPolicy int

const (
	// WaitNone fails (or exits) immediately when nothing is pending.
	WaitNone WaitPolicy = iota
	// WaitBounded waits up to a fixed duration.
	WaitBounded
	// WaitForever waits without a bound.
	WaitForever
)

func (w WaitPolicy) String() string {
	switch w {
	case WaitNone:
		return "none"
	case WaitBounded:
		return "bounded"
	case WaitForever:
		return "forever"
	default:
		return "unknown"
	}
}

// Timeout is a wait budget used for acquisition, idle retirement and close draining.
// The zero value is NoWait.
type Timeout struct {
	policy WaitPolicy
	d      time.Duration
}

// NoWait never blocks.
var NoWait = Timeout{}

// Forever returns a Timeout that waits without a bound.
func Forever() Timeout {
	return Timeout{policy: WaitForever}
}

// Within returns a Timeout bounded by d. A non-positive d is NoWait.
func Within(d time.Duration) Timeout {
	if d <= 0 {
		return NoWait
	}
	return Timeout{policy: WaitBounded, d: d}
}

// TimeoutOf maps the signed-duration convention onto a Timeout:
// negative waits forever, zero does not wait, positive is a bound.
func TimeoutOf(d time.Duration) Timeout {
	switch {
	case d < 0:
		return Forever()
	case d == 0:
		return NoWait
	default:
		return Within(d)
	}
}

// ParseTimeout parses "forever", "none", a signed integer number of milliseconds
// or a Go duration string ("250ms", "2s", "-1s").
func ParseTimeout(s string) (Timeout, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "forever", "infinite":
		return Forever(), nil
	case "", "none", "nowait":
		return NoWait, nil
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return TimeoutOf(time.Duration(ms) * time.Millisecond), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return NoWait, fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	return TimeoutOf(d), nil
}

// Policy reports the wait policy.
func (t Timeout) Policy() WaitPolicy { return t.policy }

// Duration returns the bound for WaitBounded, -1 for WaitForever and 0 for WaitNone.
func (t Timeout) Duration() time.Duration {
	switch t.policy {
	case WaitForever:
		return -1
	case WaitBounded:
		return t.d
	default:
		return 0
	}
}

// IsForever reports whether t waits without a bound.
func (t Timeout) IsForever() bool { return t.policy == WaitForever }

// IsNoWait reports whether t never blocks.
func (t Timeout) IsNoWait() bool { return t.policy == WaitNone }

func (t Timeout) String() string {
	switch t.policy {
	case WaitForever:
		return "forever"
	case WaitBounded:
		return t.d.String()
	default:
		return "none"
	}
}

// deadline returns the absolute deadline for a bounded timeout started at now.
// ok is false for policies without one.
func (t Timeout) deadline(now time.Time) (time.Time, bool) {
	if t.policy != WaitBounded {
		return time.Time{}, false
	}
	return now.Add(t.d), true
}
