// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"context"
	"sync"
	"time"
)

// NewTime creates a new time service
func NewTime(cfg TimeConfiguration) *Time {
	delay := cfg.EventPollDelay
	if delay <= 0 {
		delay = 1
	}
	return &Time{
		limiter:        NewFrameLimiter(cfg.FramesPerSecond),
		eventPollDelay: delay,
		eventTicker:    time.NewTicker(time.Duration(delay) * time.Millisecond),
	}
}

// Time contains all the time services and tickers
type Time struct {
	limiter *FrameLimiter

	eventPollDelay int
	eventTicker    *time.Ticker
}

// Fps gets the set frames per second
func (t *Time) Fps() int {
	return t.limiter.Fps()
}

// Limiter gets the frame limiter
func (t *Time) Limiter() *FrameLimiter {
	return t.limiter
}

// EventTicker gets the initialized event ticker for the event loop
func (t *Time) EventTicker() *time.Ticker {
	return t.eventTicker
}

// Stop stops the tickers and wakes up a waiting limiter
func (t *Time) Stop() {
	t.eventTicker.Stop()
	t.limiter.Stop()
}

// NewFrameLimiter creates a limiter capping frames at fps, 0 disables the cap.
func NewFrameLimiter(fps int) *FrameLimiter {
	l := &FrameLimiter{
		stop: make(chan struct{}),
		now:  time.Now,
	}
	l.SetFps(fps)
	return l
}

// FrameLimiter paces frames against a deadline set when each frame begins.
type FrameLimiter struct {
	mu       sync.Mutex
	fps      int
	interval time.Duration
	deadline time.Time

	stopOnce sync.Once
	stop     chan struct{}

	now func() time.Time
}

// SetFps replaces the cap, 0 disables it. It applies from the next Begin.
func (l *FrameLimiter) SetFps(fps int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if fps < 0 {
		fps = 0
	}
	l.fps = fps
	l.interval = 0
	if fps > 0 {
		l.interval = time.Second / time.Duration(fps)
	}
}

// Fps returns the cap, 0 when frames are not capped
func (l *FrameLimiter) Fps() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fps
}

// Capped reports whether a cap is set
func (l *FrameLimiter) Capped() bool {
	return l.Fps() > 0
}

// Begin stamps the deadline of the frame that starts now.
func (l *FrameLimiter) Begin() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.interval == 0 {
		l.deadline = time.Time{}
		return
	}
	l.deadline = l.now().Add(l.interval)
}

// Deadline returns the deadline of the current frame, zero when not capped
func (l *FrameLimiter) Deadline() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deadline
}

// Wait blocks until the frame deadline, ctx is done or the limiter is stopped.
// It returns immediately when there is no cap or the deadline has passed.
func (l *FrameLimiter) Wait(ctx context.Context) error {
	deadline := l.Deadline()
	if deadline.IsZero() {
		return nil
	}
	remaining := deadline.Sub(l.now())
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-l.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop releases any current and future Wait.
func (l *FrameLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
