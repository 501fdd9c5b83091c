// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"testing"
	"time"

	"github.com/devblok/frametech/core"
)

type fakeTitler struct {
	titles []string
}

func (f *fakeTitler) SetTitle(title string) {
	f.titles = append(f.titles, title)
}

func TestTitleReporter(t *testing.T) {
	var stats core.FrameStats
	for i := 0; i < core.FrameRecords; i++ {
		stats.Record(20 * time.Millisecond)
	}

	w := &fakeTitler{}
	r := &titleReporter{window: w, name: "Frametech"}
	r.Report(stats)

	if len(w.titles) != 1 {
		t.Fatal("title set", len(w.titles), "times")
	}
	if w.titles[0] != "Frametech (50 fps)" {
		t.Error("title is", w.titles[0])
	}
}
