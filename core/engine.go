// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"context"

	"github.com/devblok/frametech/gfx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Backend executes the engine's initialisation steps and frame operations
// against a graphics API.
type Backend interface {
	CreateInstance() error
	CreateSurface() error
	PickPhysicalDevice() error
	ResolveQueueRoles() error
	CreateLogicalDevice() error
	CreateAllocator() error
	CreateDescriptorPool() error
	CreateSwapchain() error
	CreateImageViews() error
	CreateGraphicsPipeline() error
	CreateFramebuffers() error

	AcquireImage() error
	Draw() error
	Present() error
	UpdateFrameIndex(currentFrame uint64)

	// WaitIdle blocks until submitted work is done
	WaitIdle()

	// Destroy releases whatever was created, in reverse order
	Destroy()
}

// Initialisation steps, in order
const (
	StepCreateInstance         = "create instance"
	StepCreateSurface          = "create surface"
	StepPickPhysicalDevice     = "pick physical device"
	StepResolveQueueRoles      = "resolve queue roles"
	StepCreateLogicalDevice    = "create logical device"
	StepCreateAllocator        = "create memory allocator"
	StepCreateDescriptorPool   = "create descriptor pool"
	StepCreateSwapchain        = "create swapchain"
	StepCreateImageViews       = "create image views"
	StepCreateGraphicsPipeline = "create graphics pipeline"
	StepCreateFramebuffers     = "create framebuffers"
)

type step struct {
	name string
	run  func() error
}

// NewEngine creates an uninitialised engine rendering into window.
// Frames are paced by limiter, usually the one of the host's Time service.
func NewEngine(ctx context.Context, cfg Configuration, window Window, limiter *FrameLimiter, logger log.FieldLogger) *Engine {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return NewEngineWithBackend(ctx, cfg, newVulkanBackend(cfg, window, logger), limiter, logger)
}

// NewEngineWithBackend creates an uninitialised engine over b. A nil limiter
// is replaced by one capped at the configured frames per second.
func NewEngineWithBackend(ctx context.Context, cfg Configuration, b Backend, limiter *FrameLimiter, logger log.FieldLogger) *Engine {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if limiter == nil {
		limiter = NewFrameLimiter(cfg.Time.FramesPerSecond)
	}
	return &Engine{
		ctx:     ctx,
		cfg:     cfg,
		log:     logger,
		backend: b,
		limiter: limiter,
	}
}

// Engine owns the graphics context and drives frames through it
type Engine struct {
	ctx context.Context
	cfg Configuration
	log log.FieldLogger

	backend Backend
	state   State
	err     error

	limiter      *FrameLimiter
	stats        FrameStats
	currentFrame uint64
}

func (e *Engine) steps() []step {
	b := e.backend
	return []step{
		{StepCreateInstance, b.CreateInstance},
		{StepCreateSurface, b.CreateSurface},
		{StepPickPhysicalDevice, b.PickPhysicalDevice},
		{StepResolveQueueRoles, b.ResolveQueueRoles},
		{StepCreateLogicalDevice, b.CreateLogicalDevice},
		{StepCreateAllocator, b.CreateAllocator},
		{StepCreateDescriptorPool, b.CreateDescriptorPool},
		{StepCreateSwapchain, b.CreateSwapchain},
		{StepCreateImageViews, b.CreateImageViews},
		{StepCreateGraphicsPipeline, b.CreateGraphicsPipeline},
		{StepCreateFramebuffers, b.CreateFramebuffers},
	}
}

// Initialize runs every initialisation step in order. The first failure
// moves the engine to the Error state for good and skips the rest.
func (e *Engine) Initialize() error {
	switch e.state {
	case Initialized:
		return nil
	case Error:
		return e.err
	}

	for _, s := range e.steps() {
		stepLog := e.log.WithField("step", s.name)
		stepLog.Debug("Running initialisation step")
		if err := s.run(); err != nil {
			e.err = errors.Wrap(err, s.name)
			e.state = Error
			stepLog.WithError(err).Error("Initialisation step failed")
			return e.err
		}
	}

	e.state = Initialized
	e.log.WithField("version", EngineVersion).Info("Engine initialized")
	return nil
}

// State returns the lifecycle state
func (e *Engine) State() State {
	return e.state
}

// Err returns the error that moved the engine to the Error state
func (e *Engine) Err() error {
	return e.err
}

// CurrentFrame returns how many frames have been drawn
func (e *Engine) CurrentFrame() uint64 {
	return e.currentFrame
}

// Stats returns the rendering times of the last frames
func (e *Engine) Stats() FrameStats {
	return e.stats
}

// FrameLimit returns the frame cap, 0 when uncapped
func (e *Engine) FrameLimit() int {
	return e.limiter.Fps()
}

// SetFrameLimit caps frames per second, 0 disables the cap.
func (e *Engine) SetFrameLimit(fps int) {
	previous := e.limiter.Fps()
	switch {
	case previous == 0 && fps > 0:
		e.log.Infof("Setting FPS limit to %d", fps)
	case fps > 0:
		e.log.Infof("Replacing FPS limit from %d to %d", previous, fps)
	default:
		e.log.Info("Disabling FPS limit")
	}
	e.limiter.SetFps(fps)
}

// DrawFrame acquires, draws and presents one frame, then waits
// for the frame limiter before moving to the next frame index.
func (e *Engine) DrawFrame() error {
	if e.state != Initialized {
		return gfx.Errorf(gfx.KindNotInitialized, "engine is %s", e.state)
	}

	e.limiter.Begin()
	err := e.stats.Measure(func() error {
		if err := e.backend.AcquireImage(); err != nil {
			return err
		}
		if err := e.backend.Draw(); err != nil {
			return err
		}
		return e.backend.Present()
	})
	if err != nil {
		return errors.Wrapf(err, "frame %d", e.currentFrame)
	}

	if err := e.limiter.Wait(e.ctx); err != nil {
		return err
	}
	e.backend.UpdateFrameIndex(e.currentFrame)
	e.currentFrame++
	return nil
}

// Destroy waits for the device and releases everything the engine created.
// It is safe after a partial initialisation.
func (e *Engine) Destroy() {
	e.limiter.Stop()
	e.backend.WaitIdle()
	e.backend.Destroy()
	e.log.WithField("frames", e.currentFrame).Info("Engine destroyed")
}
