// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	"github.com/devblok/frametech/gfx"
	glm "github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"
)

// ClearColor is the color every frame starts from
var ClearColor = glm.Vec4{0, 0, 0, 1}

// RecordInfo is everything one frame's command buffer is recorded from
type RecordInfo struct {
	Framebuffers []vk.Framebuffer
	FrameIndex   uint32
	RenderPass   vk.RenderPass
	Pipeline     vk.Pipeline
	Extent       vk.Extent2D

	VertexBuffer vk.Buffer
	IndexBuffer  vk.Buffer
	IndexType    vk.IndexType
	IndexCount   uint32
}

// NewCommandContext creates a command context submitting to queue.
func NewCommandContext(ctx *Context, queue vk.Queue) *CommandContext {
	return &CommandContext{
		device: ctx.Device.Logical(),
		queue:  queue,
	}
}

// CommandContext is one command pool with one primary command buffer
type CommandContext struct {
	device vk.Device
	queue  vk.Queue

	familyIndex uint32
	pool        vk.CommandPool
	buffer      vk.CommandBuffer
}

// CreatePool creates the pool on the queue family.
func (c *CommandContext) CreatePool(familyIndex uint32) error {
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: familyIndex,
	}

	var pool vk.CommandPool
	if err := gfx.ResultError(gfx.KindCommand, "vk.CreateCommandPool()",
		vk.CreateCommandPool(c.device, &cpci, nil, &pool)); err != nil {
		return err
	}
	c.pool = pool
	c.familyIndex = familyIndex
	return nil
}

// CreateBuffer allocates the primary command buffer from the pool.
func (c *CommandContext) CreateBuffer() error {
	if c.pool == nil {
		return gfx.Errorf(gfx.KindCommand, "command pool is not created")
	}
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        c.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}

	buffers := make([]vk.CommandBuffer, 1)
	if err := gfx.ResultError(gfx.KindCommand, "vk.AllocateCommandBuffers()",
		vk.AllocateCommandBuffers(c.device, &cbai, buffers)); err != nil {
		return err
	}
	c.buffer = buffers[0]
	return nil
}

// Buffer returns the primary command buffer
func (c *CommandContext) Buffer() vk.CommandBuffer {
	return c.buffer
}

// FamilyIndex returns the queue family the pool was created for
func (c *CommandContext) FamilyIndex() uint32 {
	return c.familyIndex
}

// Reset clears the recorded commands.
func (c *CommandContext) Reset() error {
	return gfx.ResultError(gfx.KindCommand, "vk.ResetCommandBuffer()",
		vk.ResetCommandBuffer(c.buffer, 0))
}

// Record records a whole frame: the render pass over the frame's
// framebuffer, the dynamic state and one indexed draw.
// On error the buffer must not be submitted.
func (c *CommandContext) Record(info RecordInfo) error {
	if int(info.FrameIndex) >= len(info.Framebuffers) {
		return gfx.Errorf(gfx.KindCommand, "frame index %d out of %d framebuffers", info.FrameIndex, len(info.Framebuffers))
	}
	if err := c.Reset(); err != nil {
		return err
	}

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if err := gfx.ResultError(gfx.KindCommand, "vk.BeginCommandBuffer()",
		vk.BeginCommandBuffer(c.buffer, &cbbi)); err != nil {
		return err
	}

	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(ClearColor[:])

	rpbi := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  info.RenderPass,
		Framebuffer: info.Framebuffers[info.FrameIndex],
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: info.Extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(c.buffer, &rpbi, vk.SubpassContentsInline)
	vk.CmdBindPipeline(c.buffer, vk.PipelineBindPointGraphics, info.Pipeline)

	viewport, scissor := Viewport(info.Extent)
	vk.CmdSetViewport(c.buffer, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(c.buffer, 0, 1, []vk.Rect2D{scissor})

	if info.VertexBuffer != nil {
		vk.CmdBindVertexBuffers(c.buffer, 0, 1, []vk.Buffer{info.VertexBuffer}, []vk.DeviceSize{0})
	}
	if info.IndexBuffer != nil {
		vk.CmdBindIndexBuffer(c.buffer, info.IndexBuffer, 0, info.IndexType)
	}
	vk.CmdDrawIndexed(c.buffer, info.IndexCount, 1, 0, 0, 0)
	vk.CmdEndRenderPass(c.buffer)

	return gfx.ResultError(gfx.KindCommand, "vk.EndCommandBuffer()",
		vk.EndCommandBuffer(c.buffer))
}

// Viewport returns the full-extent viewport and scissor.
func Viewport(extent vk.Extent2D) (vk.Viewport, vk.Rect2D) {
	size := glm.Vec2{float32(extent.Width), float32(extent.Height)}
	depth := glm.Vec2{0, 1}
	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    size.X(),
		Height:   size.Y(),
		MinDepth: depth.X(),
		MaxDepth: depth.Y(),
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	return viewport, scissor
}

// BeginOneTime starts recording a single-use submission.
func (c *CommandContext) BeginOneTime() error {
	if err := c.Reset(); err != nil {
		return err
	}
	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	return gfx.ResultError(gfx.KindCommand, "vk.BeginCommandBuffer()",
		vk.BeginCommandBuffer(c.buffer, &cbbi))
}

// EndOneTime ends the recording, submits it and waits for the queue to drain.
func (c *CommandContext) EndOneTime() error {
	if err := gfx.ResultError(gfx.KindCommand, "vk.EndCommandBuffer()",
		vk.EndCommandBuffer(c.buffer)); err != nil {
		return err
	}
	if err := c.Submit(nil); err != nil {
		return err
	}
	return gfx.ResultError(gfx.KindSubmit, "vk.QueueWaitIdle()",
		vk.QueueWaitIdle(c.queue))
}

// Submit submits the command buffer without semaphores, signalling fence if not nil.
func (c *CommandContext) Submit(fence vk.Fence) error {
	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{c.buffer},
	}}
	return gfx.ResultError(gfx.KindSubmit, "vk.QueueSubmit()",
		vk.QueueSubmit(c.queue, 1, submit, fence))
}

// Transfer records one-time work and waits for it to complete.
func (c *CommandContext) Transfer(record func(cmd vk.CommandBuffer)) error {
	if err := c.BeginOneTime(); err != nil {
		return err
	}
	record(c.buffer)
	return c.EndOneTime()
}

// Destroy frees the command buffer and destroys the pool.
func (c *CommandContext) Destroy() {
	if c == nil || c.pool == nil {
		return
	}
	if c.buffer != nil {
		vk.FreeCommandBuffers(c.device, c.pool, 1, []vk.CommandBuffer{c.buffer})
		c.buffer = nil
	}
	vk.DestroyCommandPool(c.device, c.pool, nil)
	c.pool = nil
}
