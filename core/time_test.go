// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/devblok/frametech/core"
)

func TestFrameLimiterUncapped(t *testing.T) {
	l := core.NewFrameLimiter(0)
	if l.Capped() {
		t.Error("limiter is capped")
	}
	l.Begin()
	if !l.Deadline().IsZero() {
		t.Error("uncapped limiter has a deadline")
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Error(err)
	}
}

func TestFrameLimiterNegative(t *testing.T) {
	l := core.NewFrameLimiter(-5)
	if l.Fps() != 0 {
		t.Error("negative fps kept:", l.Fps())
	}
}

func TestFrameLimiterWaits(t *testing.T) {
	l := core.NewFrameLimiter(20)
	start := time.Now()
	l.Begin()
	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Error("limiter returned early after", elapsed)
	}
}

func TestFrameLimiterPastDeadline(t *testing.T) {
	l := core.NewFrameLimiter(1000)
	l.Begin()
	time.Sleep(5 * time.Millisecond)
	start := time.Now()
	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Error("late frame waited", elapsed)
	}
}

func TestFrameLimiterStop(t *testing.T) {
	l := core.NewFrameLimiter(1)
	l.Begin()
	done := make(chan error)
	go func() { done <- l.Wait(context.Background()) }()

	l.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Error(err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Stop did not release Wait")
	}

	l.Stop()
	l.Begin()
	if err := l.Wait(context.Background()); err != nil {
		t.Error("stopped limiter:", err)
	}
}

func TestFrameLimiterCancel(t *testing.T) {
	l := core.NewFrameLimiter(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	l.Begin()
	if err := l.Wait(ctx); err != context.DeadlineExceeded {
		t.Error("expected deadline exceeded, got", err)
	}
}

func TestFrameLimiterSetFps(t *testing.T) {
	l := core.NewFrameLimiter(60)
	l.SetFps(0)
	l.Begin()
	if !l.Deadline().IsZero() {
		t.Error("disabled limiter has a deadline")
	}
	l.SetFps(30)
	l.Begin()
	if until := time.Until(l.Deadline()); until <= 0 || until > time.Second/30 {
		t.Error("deadline is", until, "away")
	}
}

func TestTime(t *testing.T) {
	tm := core.NewTime(core.TimeConfiguration{FramesPerSecond: 30})
	defer tm.Stop()
	if tm.Fps() != 30 || tm.Limiter().Fps() != 30 {
		t.Error("fps is", tm.Fps())
	}
	select {
	case <-tm.EventTicker().C:
	case <-time.After(time.Second):
		t.Error("event ticker did not tick")
	}
}
