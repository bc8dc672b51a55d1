// Package backoff computes retry delays and retries operations that fail transiently.
package backoff

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// maxShift keeps 1<<attempt from overflowing.
const maxShift = 62

// Kind selects the delay algorithm.
type Kind int

const (
	// Exponential doubles the delay on every attempt.
	Exponential Kind = iota
	// Jittered is Exponential scaled by a random factor in [1-jitter, 1+jitter].
	Jittered
	// Decorrelated picks a random delay between the initial delay and three times the
	// previous one (the "decorrelated jitter" scheme).
	Decorrelated
)

// ParseKind maps a config name onto a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "", "exponential":
		return Exponential, true
	case "jittered":
		return Jittered, true
	case "decorrelated":
		return Decorrelated, true
	default:
		return Exponential, false
	}
}

func (k Kind) String() string {
	switch k {
	case Jittered:
		return "jittered"
	case Decorrelated:
		return "decorrelated"
	default:
		return "exponential"
	}
}

// Policy describes a backoff schedule.
type Policy struct {
	Kind    Kind
	Initial time.Duration
	Max     time.Duration
	// Jitter is the relative spread for Jittered, clamped to [0, 1].
	Jitter float64
}

// Strategy hands out successive delays for one operation. It is safe for concurrent use.
type Strategy struct {
	policy Policy

	mu   sync.Mutex
	rng  *rand.Rand
	prev time.Duration
}

// New returns a Strategy for p.
func New(p Policy) *Strategy {
	if p.Max < p.Initial {
		p.Max = p.Initial
	}
	p.Jitter = max(0, min(1, p.Jitter))

	return &Strategy{
		policy: p,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter needs no crypto randomness
		prev:   p.Initial,
	}
}

// Delay returns how long to wait before retry number attempt (0-indexed).
func (s *Strategy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}

	switch s.policy.Kind {
	case Jittered:
		base := exponential(attempt, s.policy.Initial, s.policy.Max)
		s.mu.Lock()
		factor := 1 + (s.rng.Float64()*2-1)*s.policy.Jitter
		s.mu.Unlock()
		return min(time.Duration(float64(base)*factor), s.policy.Max)

	case Decorrelated:
		s.mu.Lock()
		defer s.mu.Unlock()

		if attempt == 0 {
			s.prev = s.policy.Initial
			return s.prev
		}
		upper := min(s.prev*3, s.policy.Max)
		spread := upper - s.policy.Initial
		if spread <= 0 {
			s.prev = s.policy.Initial
			return s.prev
		}
		s.prev = s.policy.Initial + time.Duration(s.rng.Int63n(int64(spread)))
		return s.prev

	default:
		return exponential(attempt, s.policy.Initial, s.policy.Max)
	}
}

func exponential(attempt int, initial, limit time.Duration) time.Duration {
	if attempt >= maxShift {
		return limit
	}
	d := initial * time.Duration(int64(1)<<uint(attempt))
	if d <= 0 || d > limit {
		return limit
	}
	return d
}

// Retry calls op until it succeeds, returns an error retryable rejects, or attempts
// calls have been made. It sleeps s.Delay between calls and stops early when ctx is
// done. The number of calls made is returned with the last error.
func Retry(ctx context.Context, s *Strategy, attempts int, retryable func(error) bool, op func() error) (int, error) {
	attempts = max(attempts, 1)

	var err error
	for i := range attempts {
		if err = op(); err == nil || !retryable(err) {
			return i + 1, err
		}
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(s.Delay(i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return i + 1, ctx.Err()
		case <-timer.C:
		}
	}
	return attempts, err
}
