// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"time"

	"github.com/loov/hrtime"
)

// FrameRecords is how many rendering times are kept
const FrameRecords = 10

// FrameStats keeps the rendering times of the last FrameRecords frames.
type FrameStats struct {
	records [FrameRecords]time.Duration
	next    int
	count   int
}

// Record stores a rendering time, raised to at least one millisecond.
func (s *FrameStats) Record(d time.Duration) {
	if d < time.Millisecond {
		d = time.Millisecond
	}
	s.records[s.next] = d
	s.next = (s.next + 1) % FrameRecords
	if s.count < FrameRecords {
		s.count++
	}
}

// Measure runs fn and records how long it took.
func (s *FrameStats) Measure(fn func() error) error {
	start := hrtime.Now()
	err := fn()
	s.Record(hrtime.Since(start))
	return err
}

// Len returns how many records are held
func (s *FrameStats) Len() int {
	return s.count
}

// Average returns the mean rendering time of the held records.
func (s *FrameStats) Average() time.Duration {
	if s.count == 0 {
		return 0
	}
	var total time.Duration
	for i := 0; i < s.count; i++ {
		total += s.records[i]
	}
	return total / time.Duration(s.count)
}

// Fps estimates frames per second from the average rendering time.
func (s *FrameStats) Fps() float64 {
	avg := s.Average()
	if avg == 0 {
		return 0
	}
	return float64(time.Second) / float64(avg)
}
