// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devblok/frametech/core"
	"github.com/devblok/frametech/gfx"
	log "github.com/sirupsen/logrus"
)

type fakeBackend struct {
	failAt string
	err    error

	steps     []string
	frames    []string
	indices   []uint64
	waited    bool
	destroyed bool
}

func (f *fakeBackend) run(name string) error {
	f.steps = append(f.steps, name)
	if name == f.failAt {
		return f.err
	}
	return nil
}

func (f *fakeBackend) CreateInstance() error      { return f.run(core.StepCreateInstance) }
func (f *fakeBackend) CreateSurface() error       { return f.run(core.StepCreateSurface) }
func (f *fakeBackend) PickPhysicalDevice() error  { return f.run(core.StepPickPhysicalDevice) }
func (f *fakeBackend) ResolveQueueRoles() error   { return f.run(core.StepResolveQueueRoles) }
func (f *fakeBackend) CreateLogicalDevice() error { return f.run(core.StepCreateLogicalDevice) }
func (f *fakeBackend) CreateAllocator() error     { return f.run(core.StepCreateAllocator) }
func (f *fakeBackend) CreateDescriptorPool() error {
	return f.run(core.StepCreateDescriptorPool)
}
func (f *fakeBackend) CreateSwapchain() error  { return f.run(core.StepCreateSwapchain) }
func (f *fakeBackend) CreateImageViews() error { return f.run(core.StepCreateImageViews) }
func (f *fakeBackend) CreateGraphicsPipeline() error {
	return f.run(core.StepCreateGraphicsPipeline)
}
func (f *fakeBackend) CreateFramebuffers() error { return f.run(core.StepCreateFramebuffers) }

func (f *fakeBackend) AcquireImage() error {
	f.frames = append(f.frames, "acquire")
	return nil
}

func (f *fakeBackend) Draw() error {
	f.frames = append(f.frames, "draw")
	if f.failAt == "draw" {
		return f.err
	}
	return nil
}

func (f *fakeBackend) Present() error {
	f.frames = append(f.frames, "present")
	return nil
}

func (f *fakeBackend) UpdateFrameIndex(currentFrame uint64) {
	f.indices = append(f.indices, currentFrame)
}

func (f *fakeBackend) WaitIdle() { f.waited = true }
func (f *fakeBackend) Destroy()  { f.destroyed = true }

func quietLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestEngine(b core.Backend, fps int) *core.Engine {
	cfg := core.DefaultConfiguration()
	cfg.Time.FramesPerSecond = fps
	return core.NewEngineWithBackend(context.Background(), cfg, b, nil, quietLogger())
}

var allSteps = []string{
	core.StepCreateInstance,
	core.StepCreateSurface,
	core.StepPickPhysicalDevice,
	core.StepResolveQueueRoles,
	core.StepCreateLogicalDevice,
	core.StepCreateAllocator,
	core.StepCreateDescriptorPool,
	core.StepCreateSwapchain,
	core.StepCreateImageViews,
	core.StepCreateGraphicsPipeline,
	core.StepCreateFramebuffers,
}

func TestInitialize(t *testing.T) {
	b := &fakeBackend{}
	e := newTestEngine(b, 0)
	if e.State() != core.Uninitialized {
		t.Fatal("new engine is", e.State())
	}
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	if e.State() != core.Initialized {
		t.Error("engine is", e.State())
	}
	if len(b.steps) != len(allSteps) {
		t.Fatalf("ran %d steps: %v", len(b.steps), b.steps)
	}
	for i, s := range allSteps {
		if b.steps[i] != s {
			t.Errorf("step %d is %q, expected %q", i, b.steps[i], s)
		}
	}

	if err := e.Initialize(); err != nil {
		t.Error("second Initialize:", err)
	}
	if len(b.steps) != len(allSteps) {
		t.Error("second Initialize ran steps again")
	}
}

func TestInitializeStopsAtFailure(t *testing.T) {
	cause := gfx.Errorf(gfx.KindLogicalDevice, "vk.CreateDevice() failed")
	b := &fakeBackend{failAt: core.StepCreateLogicalDevice, err: cause}
	e := newTestEngine(b, 0)

	err := e.Initialize()
	if err == nil {
		t.Fatal("Initialize must fail")
	}
	if e.State() != core.Error {
		t.Error("engine is", e.State())
	}
	if gfx.KindOf(err) != gfx.KindLogicalDevice {
		t.Error("unexpected kind", gfx.KindOf(err))
	}
	if e.Err() != err {
		t.Error("Err does not return the failure")
	}

	last := b.steps[len(b.steps)-1]
	if last != core.StepCreateLogicalDevice {
		t.Error("last step run is", last)
	}
	for _, s := range b.steps {
		switch s {
		case core.StepCreateSwapchain, core.StepCreateImageViews,
			core.StepCreateGraphicsPipeline, core.StepCreateFramebuffers:
			t.Error("step ran after failure:", s)
		}
	}

	ran := len(b.steps)
	if err := e.Initialize(); err == nil {
		t.Error("engine in error state must not initialize")
	}
	if len(b.steps) != ran {
		t.Error("engine in error state ran steps")
	}

	if err := e.DrawFrame(); gfx.KindOf(err) != gfx.KindNotInitialized {
		t.Error("expected not initialized, got", err)
	}
}

func TestDrawFrameNotInitialized(t *testing.T) {
	b := &fakeBackend{}
	e := newTestEngine(b, 0)
	if err := e.DrawFrame(); gfx.KindOf(err) != gfx.KindNotInitialized {
		t.Error("expected not initialized, got", err)
	}
	if len(b.frames) != 0 {
		t.Error("frame operations ran:", b.frames)
	}
}

func TestDrawFrame(t *testing.T) {
	b := &fakeBackend{}
	e := newTestEngine(b, 0)
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := e.DrawFrame(); err != nil {
			t.Fatal(err)
		}
	}

	if e.CurrentFrame() != 3 {
		t.Error("current frame is", e.CurrentFrame())
	}
	expected := []string{"acquire", "draw", "present"}
	for i, op := range b.frames {
		if op != expected[i%3] {
			t.Errorf("operation %d is %s", i, op)
		}
	}
	for i, idx := range b.indices {
		if idx != uint64(i) {
			t.Errorf("frame index updated with %d, expected %d", idx, i)
		}
	}
	stats := e.Stats()
	if stats.Len() != 3 {
		t.Error("stats hold", stats.Len())
	}
}

func TestDrawFrameFailure(t *testing.T) {
	b := &fakeBackend{}
	e := newTestEngine(b, 0)
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	b.failAt, b.err = "draw", gfx.Errorf(gfx.KindSubmit, "queue lost")

	err := e.DrawFrame()
	if gfx.KindOf(err) != gfx.KindSubmit {
		t.Error("expected submit failure, got", err)
	}
	if e.CurrentFrame() != 0 {
		t.Error("failed frame advanced the counter")
	}
	if b.frames[len(b.frames)-1] != "draw" {
		t.Error("present ran after a failed draw")
	}
}

func TestDrawFrameCancelled(t *testing.T) {
	b := &fakeBackend{}
	ctx, cancel := context.WithCancel(context.Background())
	cfg := core.DefaultConfiguration()
	cfg.Time.FramesPerSecond = 1
	e := core.NewEngineWithBackend(ctx, cfg, b, nil, quietLogger())
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	cancel()
	if err := e.DrawFrame(); !errors.Is(err, context.Canceled) {
		t.Error("expected cancellation, got", err)
	}
}

func TestSetFrameLimit(t *testing.T) {
	e := newTestEngine(&fakeBackend{}, 0)
	if e.FrameLimit() != 0 {
		t.Error("limit is", e.FrameLimit())
	}
	e.SetFrameLimit(30)
	if e.FrameLimit() != 30 {
		t.Error("limit is", e.FrameLimit())
	}
	e.SetFrameLimit(144)
	if e.FrameLimit() != 144 {
		t.Error("limit is", e.FrameLimit())
	}
	e.SetFrameLimit(0)
	if e.FrameLimit() != 0 {
		t.Error("limit is", e.FrameLimit())
	}
}

func TestEngineSharesTimeLimiter(t *testing.T) {
	tm := core.NewTime(core.TimeConfiguration{FramesPerSecond: 30, EventPollDelay: 1})
	defer tm.Stop()

	cfg := core.DefaultConfiguration()
	cfg.Time.FramesPerSecond = 90
	e := core.NewEngineWithBackend(context.Background(), cfg, &fakeBackend{}, tm.Limiter(), quietLogger())
	if e.FrameLimit() != 30 {
		t.Error("engine does not pace with the given limiter, limit is", e.FrameLimit())
	}
	e.SetFrameLimit(60)
	if tm.Fps() != 60 {
		t.Error("time service reports", tm.Fps())
	}

	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := e.DrawFrame(); err != nil {
		t.Fatal(err)
	}
	if tm.Limiter().Deadline().IsZero() {
		t.Error("frame did not begin on the shared limiter")
	}
}

func TestDestroy(t *testing.T) {
	b := &fakeBackend{failAt: core.StepCreateSurface, err: gfx.Errorf(gfx.KindSurface, "no window")}
	e := newTestEngine(b, 60)
	e.Initialize()
	e.Destroy()
	if !b.waited || !b.destroyed {
		t.Error("Destroy must wait for the device and release the backend")
	}
}

func TestDescriptorPoolSizes(t *testing.T) {
	sizes, maxSets := core.DescriptorPoolSizes()
	if len(sizes) != 11 {
		t.Fatal("pool has", len(sizes), "types")
	}
	seen := map[int32]bool{}
	for _, s := range sizes {
		if s.DescriptorCount != core.DescriptorsPerType {
			t.Error("descriptor count is", s.DescriptorCount)
		}
		if seen[int32(s.Type)] {
			t.Error("duplicate type", s.Type)
		}
		seen[int32(s.Type)] = true
	}
	if maxSets != 11000 {
		t.Error("max sets is", maxSets)
	}
}

const triangle = `<COLLADA><library_geometries><geometry id="Tri-mesh"><mesh>
	<source id="Tri-mesh-positions"><float_array id="a" count="9">0 -0.5 0 0.5 0.5 0 -0.5 0.5 0</float_array></source>
	<triangles count="1"><input semantic="VERTEX" source="#Tri-mesh-vertices" offset="0"/><p>0 1 2</p></triangles>
</mesh></geometry></library_geometries></COLLADA>`

func TestLoadMesh(t *testing.T) {
	mesh, err := core.LoadMesh("", quietLogger())
	if err != nil || mesh.IndexCount() != 0 {
		t.Error("empty path must give an empty mesh, got", mesh.IndexCount(), err)
	}

	dir := t.TempDir()
	if _, err := core.LoadMesh(filepath.Join(dir, "missing.dae"), quietLogger()); err == nil ||
		!strings.Contains(err.Error(), "loading mesh") {
		t.Error("expected a mesh failure, got", err)
	}

	broken := filepath.Join(dir, "broken.dae")
	if err := os.WriteFile(broken, []byte("<COLLADA>"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := core.LoadMesh(broken, quietLogger()); err == nil ||
		!strings.Contains(err.Error(), "loading mesh") {
		t.Error("expected a mesh failure, got", err)
	}

	good := filepath.Join(dir, "triangle.dae")
	if err := os.WriteFile(good, []byte(triangle), 0644); err != nil {
		t.Fatal(err)
	}
	mesh, err = core.LoadMesh(good, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if mesh.IndexCount() != 3 {
		t.Error("index count is", mesh.IndexCount())
	}
}

func BenchmarkDrawFrame(b *testing.B) {
	e := newTestEngine(&fakeBackend{}, 0)
	if err := e.Initialize(); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.DrawFrame()
	}
}
