package testutil

import (
	"context"
	"sync"
	"time"
)

// SleepRecorder replaces a real sleep in tests and records each requested pause.
// Set Err to make every sleep fail, as a cancelled context would.
type SleepRecorder struct {
	mu     sync.Mutex
	pauses []time.Duration
	Err    error
	// OnSleep, if set, runs before each pause returns.
	OnSleep func()
}

// Sleep records d and returns immediately. It returns Err when set, otherwise
// the context's error.
func (r *SleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.pauses = append(r.pauses, d)
	hook, err := r.OnSleep, r.Err
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

// Pauses returns the recorded pauses in order.
func (r *SleepRecorder) Pauses() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.pauses))
	copy(out, r.pauses)
	return out
}
