package hub

import (
	"context"
	mathrand "math/rand/v2"
	"sync"
	"time"
)

// LoopbackSender is an in-process Sender for offline runs and tests. It
// accepts every payload (subject to an optional injected failure rate) and
// keeps a count plus the most recent payloads.
type LoopbackSender struct {
	// FailureRate is the probability in [0,1] that a send fails with
	// ErrSendFailed.
	FailureRate float64

	// Delay is slept before each send completes, to mimic network latency.
	// Cancellation via ctx is honored during the sleep.
	Delay time.Duration

	mu     sync.Mutex
	sent   int64
	recent []map[string]any
}

// keep at most this many recent payloads for inspection.
const loopbackRecentCap = 100

// Send records the payload, subject to the configured failure rate.
func (s *LoopbackSender) Send(ctx context.Context, payload map[string]any) error {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if s.FailureRate > 0 && mathrand.Float64() < s.FailureRate {
		return ErrSendFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent++
	s.recent = append(s.recent, payload)
	if len(s.recent) > loopbackRecentCap {
		s.recent = s.recent[len(s.recent)-loopbackRecentCap:]
	}
	return nil
}

// Sent returns the number of successfully accepted payloads.
func (s *LoopbackSender) Sent() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

// Recent returns a copy of the most recent accepted payloads, oldest first.
func (s *LoopbackSender) Recent() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.recent))
	copy(out, s.recent)
	return out
}
