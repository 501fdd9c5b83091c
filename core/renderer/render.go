// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	"github.com/devblok/frametech/device"
	"github.com/devblok/frametech/gfx"
	vk "github.com/vulkan-go/vulkan"
)

// FrameIndexFor maps a frame counter onto one of count framebuffers.
func FrameIndexFor(current uint64, count int) uint32 {
	if count <= 0 {
		return 0
	}
	return uint32(current % uint64(count))
}

// NewRender creates the per-image resources holder of swapchain.
func NewRender(ctx *Context, swapchain *Swapchain) *Render {
	r := &Render{
		ctx:       ctx,
		swapchain: swapchain,
	}
	r.pipeline = NewPipeline(ctx, r)
	return r
}

// Render owns the image views, framebuffers, the pipeline and both command contexts
type Render struct {
	ctx       *Context
	swapchain *Swapchain

	imageViews   []vk.ImageView
	framebuffers []vk.Framebuffer
	frameIndex   uint32

	pipeline *Pipeline
	transfer *CommandContext
	graphics *CommandContext
}

// CreateImageViews creates one view per swapchain image.
func (r *Render) CreateImageViews() error {
	logical := r.ctx.Device.Logical()
	format := r.swapchain.Format().Format

	for idx, image := range r.swapchain.Images() {
		ivci := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}

		var imageView vk.ImageView
		if err := gfx.IndexResultError(gfx.KindImageView, idx, "vk.CreateImageView()",
			vk.CreateImageView(logical, &ivci, nil, &imageView)); err != nil {
			return err
		}
		r.imageViews = append(r.imageViews, imageView)
	}
	return nil
}

// CreateFramebuffers creates one framebuffer per image view.
func (r *Render) CreateFramebuffers() error {
	if r.pipeline.RenderPass() == nil {
		return gfx.Errorf(gfx.KindFramebuffer, "render pass is not created")
	}
	logical := r.ctx.Device.Logical()
	extent := r.swapchain.Extent()

	for idx, view := range r.imageViews {
		attachments := []vk.ImageView{view}
		fci := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      r.pipeline.RenderPass(),
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           extent.Width,
			Height:          extent.Height,
			Layers:          1,
		}

		var framebuffer vk.Framebuffer
		if err := gfx.IndexResultError(gfx.KindFramebuffer, idx, "vk.CreateFramebuffer()",
			vk.CreateFramebuffer(logical, &fci, nil, &framebuffer)); err != nil {
			return err
		}
		r.framebuffers = append(r.framebuffers, framebuffer)
	}
	return nil
}

// CreateGraphicsPipeline builds the pipeline, both command contexts and the buffers.
func (r *Render) CreateGraphicsPipeline() error {
	var (
		p     = r.pipeline
		roles = r.ctx.Device.Roles()
		log   = r.ctx.logger()
	)

	if err := p.LoadShaders(r.ctx.Configuration.Shaders); err != nil {
		return err
	}
	if err := p.CreateRenderPass(r.swapchain.Format().Format); err != nil {
		return err
	}
	if err := p.Preconfigure(); err != nil {
		return err
	}
	if err := p.Create(); err != nil {
		return err
	}
	log.Debug("Graphics pipeline created")

	transfer := NewCommandContext(r.ctx, r.ctx.Device.Queue(device.TransferRole))
	r.transfer = transfer
	if err := transfer.CreatePool(roles.Index(device.TransferRole)); err != nil {
		return err
	}
	if err := transfer.CreateBuffer(); err != nil {
		return err
	}

	graphics := NewCommandContext(r.ctx, r.ctx.Device.Queue(device.GraphicsRole))
	r.graphics = graphics
	if err := graphics.CreatePool(roles.Index(device.GraphicsRole)); err != nil {
		return err
	}
	if err := graphics.CreateBuffer(); err != nil {
		return err
	}

	if err := p.CreateVertexBuffer(transfer); err != nil {
		return err
	}
	if err := p.CreateIndexBuffer(transfer); err != nil {
		return err
	}
	log.WithField("allocations", r.ctx.Allocator.Stats().Allocations).Debug("Buffers uploaded")
	return nil
}

// UpdateFrameIndex moves the frame index to the framebuffer of currentFrame.
func (r *Render) UpdateFrameIndex(currentFrame uint64) {
	r.frameIndex = FrameIndexFor(currentFrame, len(r.framebuffers))
}

// FrameIndex returns the framebuffer index of the current frame
func (r *Render) FrameIndex() uint32 {
	return r.frameIndex
}

// Framebuffers returns the framebuffers in swapchain image order
func (r *Render) Framebuffers() []vk.Framebuffer {
	return r.framebuffers
}

// ImageViews returns the image views in swapchain image order
func (r *Render) ImageViews() []vk.ImageView {
	return r.imageViews
}

// GraphicsCommand returns the command context of the graphics queue
func (r *Render) GraphicsCommand() *CommandContext {
	return r.graphics
}

// TransferCommand returns the command context of the transfer queue
func (r *Render) TransferCommand() *CommandContext {
	return r.transfer
}

// Pipeline returns the graphics pipeline
func (r *Render) Pipeline() *Pipeline {
	return r.pipeline
}

// DestroyPipeline destroys the pipeline and everything it owns.
func (r *Render) DestroyPipeline() {
	r.pipeline.Destroy()
}

// DestroyFrameResources destroys the framebuffers and image views.
func (r *Render) DestroyFrameResources() {
	logical := r.ctx.Device.Logical()
	for _, f := range r.framebuffers {
		vk.DestroyFramebuffer(logical, f, nil)
	}
	r.framebuffers = nil
	for _, v := range r.imageViews {
		vk.DestroyImageView(logical, v, nil)
	}
	r.imageViews = nil
}

// DestroyCommands destroys both command contexts.
func (r *Render) DestroyCommands() {
	r.transfer.Destroy()
	r.graphics.Destroy()
	r.transfer, r.graphics = nil, nil
}

// Destroy destroys everything in the order the engine tears down.
func (r *Render) Destroy() {
	if r == nil {
		return
	}
	r.DestroyPipeline()
	r.DestroyFrameResources()
	r.DestroyCommands()
}
