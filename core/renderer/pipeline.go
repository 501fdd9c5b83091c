// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	"math"

	"github.com/devblok/frametech/device"
	"github.com/devblok/frametech/gfx"
	"github.com/devblok/frametech/gfx/vkr"
	"github.com/devblok/frametech/model"
	vk "github.com/vulkan-go/vulkan"
)

// FrameState is the step a frame is at
type FrameState int

// Frame states in the order a frame passes through them
const (
	FrameReady FrameState = iota
	FrameAcquiring
	FrameRecording
	FrameSubmitted
	FramePresenting
)

func (s FrameState) String() string {
	switch s {
	case FrameReady:
		return "ready"
	case FrameAcquiring:
		return "acquiring"
	case FrameRecording:
		return "recording"
	case FrameSubmitted:
		return "submitted"
	case FramePresenting:
		return "presenting"
	}
	return "unknown"
}

type frameState struct {
	current FrameState
}

func (f *frameState) enter(want, next FrameState) error {
	if f.current != want {
		return gfx.Errorf(gfx.KindFrameOrder, "frame is %s, expected %s", f.current, want)
	}
	f.current = next
	return nil
}

// NewPipeline creates an empty pipeline for the render.
func NewPipeline(ctx *Context, render *Render) *Pipeline {
	return &Pipeline{
		ctx:    ctx,
		render: render,
	}
}

// Pipeline is the graphics pipeline with its buffers and frame synchronisation
type Pipeline struct {
	ctx    *Context
	render *Render
	frame  frameState

	shaders    []*Shader
	stages     []vk.PipelineShaderStageCreateInfo
	layout     vk.PipelineLayout
	renderPass vk.RenderPass
	pipeline   vk.Pipeline

	vertexBuffer vkr.Buffer
	indexBuffer  vkr.Buffer
	indexCount   uint32

	syncCreated    bool
	imageReady     vk.Semaphore
	renderFinished vk.Semaphore
	inFlight       vk.Fence
}

// FrameState returns where the current frame is
func (p *Pipeline) FrameState() FrameState {
	return p.frame.current
}

// LoadShaders loads the blobs and creates one module and stage per blob.
func (p *Pipeline) LoadShaders(loader gfx.ShaderLoader) error {
	if loader == nil {
		return gfx.Errorf(gfx.KindShader, "no shader loader configured")
	}
	blobs, err := loader.Load()
	if err != nil {
		return gfx.Errorf(gfx.KindShader, "loading shaders: %s", err)
	}
	if len(blobs) == 0 {
		return gfx.Errorf(gfx.KindShader, "no shaders loaded, compile them with go generate ./core")
	}

	for _, blob := range blobs {
		shader, err := NewShader(p.ctx.Device.Logical(), blob)
		if err != nil {
			return err
		}
		p.shaders = append(p.shaders, shader)
		p.stages = append(p.stages, shader.StageInfo())
		p.ctx.logger().WithField("shader", blob.Tag).Debug("Shader module created")
	}
	return nil
}

// CreateRenderPass creates the single subpass render pass over one color attachment.
func (p *Pipeline) CreateRenderPass(format vk.Format) error {
	attachments := []vk.AttachmentDescription{{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}

	colorAttachmentRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorAttachmentRef)),
		PColorAttachments:    colorAttachmentRef,
	}

	subpassDependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{subpassDependency},
	}

	var renderPass vk.RenderPass
	if err := gfx.ResultError(gfx.KindRenderPass, "vk.CreateRenderPass()",
		vk.CreateRenderPass(p.ctx.Device.Logical(), &rpci, nil, &renderPass)); err != nil {
		return err
	}
	p.renderPass = renderPass
	return nil
}

// Preconfigure creates the pipeline layout and the synchronisation objects.
func (p *Pipeline) Preconfigure() error {
	plci := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}

	var layout vk.PipelineLayout
	if err := gfx.ResultError(gfx.KindPipeline, "vk.CreatePipelineLayout()",
		vk.CreatePipelineLayout(p.ctx.Device.Logical(), &plci, nil, &layout)); err != nil {
		return err
	}
	p.layout = layout

	return p.createSync()
}

// createSync runs once; later calls reuse the existing objects.
func (p *Pipeline) createSync() error {
	if p.syncCreated {
		return nil
	}
	logical := p.ctx.Device.Logical()

	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}

	var (
		imageReady     vk.Semaphore
		renderFinished vk.Semaphore
		fence          vk.Fence
	)
	if err := gfx.ResultError(gfx.KindSync, "vk.CreateSemaphore()",
		vk.CreateSemaphore(logical, &sci, nil, &imageReady)); err != nil {
		return err
	}
	if err := gfx.ResultError(gfx.KindSync, "vk.CreateSemaphore()",
		vk.CreateSemaphore(logical, &sci, nil, &renderFinished)); err != nil {
		vk.DestroySemaphore(logical, imageReady, nil)
		return err
	}
	if err := gfx.ResultError(gfx.KindSync, "vk.CreateFence()",
		vk.CreateFence(logical, &fci, nil, &fence)); err != nil {
		vk.DestroySemaphore(logical, imageReady, nil)
		vk.DestroySemaphore(logical, renderFinished, nil)
		return err
	}

	p.imageReady = imageReady
	p.renderFinished = renderFinished
	p.inFlight = fence
	p.syncCreated = true
	return nil
}

// Create builds the graphics pipeline from the loaded stages.
func (p *Pipeline) Create() error {
	if p.renderPass == nil || p.layout == nil {
		return gfx.Errorf(gfx.KindPipeline, "render pass and layout must exist first")
	}

	bindings := model.VertexBindingDescriptions()
	attributes := model.VertexAttributeDescriptions()

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(p.stages)),
		PStages:    p.stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(bindings)),
			PVertexBindingDescriptions:      bindings,
			VertexAttributeDescriptionCount: uint32(len(attributes)),
			PVertexAttributeDescriptions:    attributes,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology:               vk.PrimitiveTopologyTriangleList,
			PrimitiveRestartEnable: vk.False,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
			DepthClampEnable:        vk.False,
			RasterizerDiscardEnable: vk.False,
			PolygonMode:             vk.PolygonModeFill,
			CullMode:                vk.CullModeFlags(vk.CullModeBackBit),
			FrontFace:               vk.FrontFaceClockwise,
			DepthBiasEnable:         vk.False,
			LineWidth:               1.0,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
			SampleShadingEnable:  vk.False,
			MinSampleShading:     1.0,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			LogicOpEnable:   vk.False,
			LogicOp:         vk.LogicOpCopy,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit |
					vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
				BlendEnable: vk.False,
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateViewport,
				vk.DynamicStateScissor,
			},
		},
		Layout:     p.layout,
		RenderPass: p.renderPass,
		Subpass:    0,
	}}

	pipelines := make([]vk.Pipeline, len(gpci))
	if err := gfx.ResultError(gfx.KindPipeline, "vk.CreateGraphicsPipelines()",
		vk.CreateGraphicsPipelines(p.ctx.Device.Logical(), nil, uint32(len(gpci)), gpci, nil, pipelines)); err != nil {
		return err
	}
	p.pipeline = pipelines[0]
	return nil
}

// CreateVertexBuffer uploads the mesh vertices through tr.
func (p *Pipeline) CreateVertexBuffer(tr vkr.Transferer) error {
	buffer, err := p.deviceLocalBuffer(tr, p.ctx.Configuration.Mesh.VertexData(),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return err
	}
	p.vertexBuffer = buffer
	return nil
}

// CreateIndexBuffer uploads the mesh indices through tr.
func (p *Pipeline) CreateIndexBuffer(tr vkr.Transferer) error {
	mesh := p.ctx.Configuration.Mesh
	buffer, err := p.deviceLocalBuffer(tr, mesh.IndexData(),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		return err
	}
	p.indexBuffer = buffer
	p.indexCount = mesh.IndexCount()
	return nil
}

func (p *Pipeline) deviceLocalBuffer(tr vkr.Transferer, data []byte, usage vk.BufferUsageFlags) (vkr.Buffer, error) {
	mode, families := ChooseSharing(p.ctx.Device.Roles())
	buffer, err := vkr.NewDeviceLocalBuffer(p.ctx.Allocator, tr, data, usage, mode, families)
	if err != nil {
		return vkr.Buffer{}, gfx.Errorf(gfx.KindBuffer, "%s", err)
	}
	return buffer, nil
}

// AcquireImage waits for the previous frame and acquires the next swapchain
// image, writing its index as the render's frame index.
func (p *Pipeline) AcquireImage() error {
	if err := p.frame.enter(FrameReady, FrameAcquiring); err != nil {
		return err
	}
	logical := p.ctx.Device.Logical()
	fences := []vk.Fence{p.inFlight}

	if err := gfx.ResultError(gfx.KindSync, "vk.WaitForFences()",
		vk.WaitForFences(logical, 1, fences, vk.True, math.MaxUint64)); err != nil {
		p.frame.current = FrameReady
		return err
	}
	if err := gfx.ResultError(gfx.KindSync, "vk.ResetFences()",
		vk.ResetFences(logical, 1, fences)); err != nil {
		p.frame.current = FrameReady
		return err
	}

	res := vk.AcquireNextImage(logical, p.render.swapchain.Get(), math.MaxUint64,
		p.imageReady, nil, &p.render.frameIndex)
	if res != vk.Suboptimal {
		if err := gfx.ResultError(gfx.KindSwapchain, "vk.AcquireNextImage()", res); err != nil {
			p.frame.current = FrameReady
			return err
		}
	}
	p.frame.current = FrameRecording
	return nil
}

// Draw records the frame into the graphics command buffer and submits it.
func (p *Pipeline) Draw() error {
	if err := p.frame.enter(FrameRecording, FrameRecording); err != nil {
		return err
	}
	graphics := p.render.graphics

	err := graphics.Record(RecordInfo{
		Framebuffers: p.render.framebuffers,
		FrameIndex:   p.render.frameIndex,
		RenderPass:   p.renderPass,
		Pipeline:     p.pipeline,
		Extent:       p.render.swapchain.Extent(),
		VertexBuffer: p.vertexBuffer.Get(),
		IndexBuffer:  p.indexBuffer.Get(),
		IndexType:    model.IndexType,
		IndexCount:   p.indexCount,
	})
	if err != nil {
		p.frame.current = FrameReady
		return err
	}

	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{p.imageReady},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{graphics.Buffer()},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{p.renderFinished},
	}}

	queue := p.ctx.Device.Queue(device.GraphicsRole)
	if err := gfx.ResultError(gfx.KindSubmit, "vk.QueueSubmit()",
		vk.QueueSubmit(queue, 1, submit, p.inFlight)); err != nil {
		p.frame.current = FrameReady
		return err
	}
	p.frame.current = FrameSubmitted
	return nil
}

// Present queues the rendered image for presentation.
func (p *Pipeline) Present() error {
	if err := p.frame.enter(FrameSubmitted, FramePresenting); err != nil {
		return err
	}
	defer func() { p.frame.current = FrameReady }()

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{p.renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{p.render.swapchain.Get()},
		PImageIndices:      []uint32{p.render.frameIndex},
	}

	res := vk.QueuePresent(p.ctx.Device.Queue(device.PresentRole), &presentInfo)
	if res == vk.Suboptimal {
		return nil
	}
	return gfx.ResultError(gfx.KindPresent, "vk.QueuePresent()", res)
}

// RenderPass returns the render pass the framebuffers are created for
func (p *Pipeline) RenderPass() vk.RenderPass {
	return p.renderPass
}

// Get returns the native pipeline
func (p *Pipeline) Get() vk.Pipeline {
	return p.pipeline
}

// Destroy releases everything the pipeline created. The device must be idle.
func (p *Pipeline) Destroy() {
	if p == nil || p.ctx == nil || p.ctx.Device == nil {
		return
	}
	logical := p.ctx.Device.Logical()

	release(&p.vertexBuffer, &p.indexBuffer)

	if p.syncCreated {
		vk.DestroySemaphore(logical, p.imageReady, nil)
		vk.DestroySemaphore(logical, p.renderFinished, nil)
		vk.DestroyFence(logical, p.inFlight, nil)
		p.syncCreated = false
	}

	if p.pipeline != nil {
		vk.DestroyPipeline(logical, p.pipeline, nil)
		p.pipeline = nil
	}
	if p.layout != nil {
		vk.DestroyPipelineLayout(logical, p.layout, nil)
		p.layout = nil
	}
	if p.renderPass != nil {
		vk.DestroyRenderPass(logical, p.renderPass, nil)
		p.renderPass = nil
	}

	for _, shader := range p.shaders {
		release(shader)
	}
	p.shaders = nil
	p.stages = nil
}

func release(items ...gfx.Releasable) {
	for _, item := range items {
		item.Release()
	}
}
