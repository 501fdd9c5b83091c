// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/devblok/frametech/core/renderer"
	"github.com/devblok/frametech/device"
	"github.com/devblok/frametech/gfx"
	"github.com/devblok/frametech/gfx/vkr"
	"github.com/devblok/frametech/model"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// DescriptorsPerType is the pool capacity of every descriptor type
const DescriptorsPerType = 1000

// DescriptorPoolSizes returns the pool sizes and the maximum number of sets
// of the engine's descriptor pool.
func DescriptorPoolSizes() ([]vk.DescriptorPoolSize, uint32) {
	types := []vk.DescriptorType{
		vk.DescriptorTypeSampler,
		vk.DescriptorTypeCombinedImageSampler,
		vk.DescriptorTypeSampledImage,
		vk.DescriptorTypeStorageImage,
		vk.DescriptorTypeUniformTexelBuffer,
		vk.DescriptorTypeStorageTexelBuffer,
		vk.DescriptorTypeUniformBuffer,
		vk.DescriptorTypeStorageBuffer,
		vk.DescriptorTypeUniformBufferDynamic,
		vk.DescriptorTypeStorageBufferDynamic,
		vk.DescriptorTypeInputAttachment,
	}
	sizes := make([]vk.DescriptorPoolSize, len(types))
	for i, t := range types {
		sizes[i] = vk.DescriptorPoolSize{
			Type:            t,
			DescriptorCount: DescriptorsPerType,
		}
	}
	return sizes, uint32(DescriptorsPerType * len(types))
}

func newVulkanBackend(cfg Configuration, window Window, logger log.FieldLogger) *vulkanBackend {
	return &vulkanBackend{
		cfg:    cfg,
		window: window,
		log:    logger,
	}
}

// vulkanBackend is the production Backend
type vulkanBackend struct {
	cfg    Configuration
	window Window
	log    log.FieldLogger

	instance       vk.Instance
	surface        vk.Surface
	device         *device.Vulkan
	allocator      *vkr.MemoryAllocator
	descriptorPool vk.DescriptorPool

	ctx       *renderer.Context
	swapchain *renderer.Swapchain
	render    *renderer.Render
}

func (v *vulkanBackend) CreateInstance() error {
	if err := LoadVulkan(v.window.ProcAddr()); err != nil {
		return gfx.Errorf(gfx.KindInstance, "%s", err)
	}
	instance, err := NewVulkanInstance(v.cfg, v.window.VulkanInstanceExtensions(), v.log)
	if err != nil {
		return err
	}
	v.instance = instance
	return nil
}

func (v *vulkanBackend) CreateSurface() error {
	surface, err := v.window.CreateSurface(v.instance)
	if err != nil {
		return gfx.Errorf(gfx.KindSurface, "%s", err)
	}
	v.surface = surface
	return nil
}

func (v *vulkanBackend) PickPhysicalDevice() error {
	v.device = device.NewVulkan(v.instance, v.surface, device.Configuration{
		Extensions: v.cfg.Instance.DeviceExtensionNames(),
		Layers:     v.cfg.Instance.Layers(),
		Allowlist:  v.cfg.Instance.Allowlist,
	}, v.log)
	return v.device.EnumerateSuitable()
}

func (v *vulkanBackend) ResolveQueueRoles() error {
	return v.device.ResolveQueueRoles()
}

func (v *vulkanBackend) CreateLogicalDevice() error {
	return v.device.CreateLogical()
}

func (v *vulkanBackend) CreateAllocator() error {
	allocator, err := vkr.NewMemoryAllocator(v.device.Logical(), v.device.Physical())
	if err != nil {
		return gfx.Errorf(gfx.KindAllocator, "%s", err)
	}
	v.allocator = allocator
	return nil
}

// LoadMesh loads the COLLADA file at path. An empty path gives an empty mesh.
func LoadMesh(path string, logger log.FieldLogger) (model.Mesh, error) {
	if path == "" {
		return model.Mesh{}, nil
	}
	mesh, err := model.LoadCollada(path)
	if err != nil {
		return model.Mesh{}, errors.Wrap(err, "loading mesh")
	}
	logger.WithFields(log.Fields{
		"mesh":     path,
		"vertices": len(mesh.Vertices),
		"indices":  mesh.IndexCount(),
	}).Info("Mesh loaded")
	return mesh, nil
}

// createContext gathers what the renderer needs, sized to the window as it is now.
func (v *vulkanBackend) createContext() error {
	mesh, err := LoadMesh(v.cfg.Renderer.Mesh, v.log)
	if err != nil {
		return err
	}

	width, height := v.window.DrawableSize()
	if width == 0 || height == 0 {
		width, height = v.cfg.Renderer.ScreenWidth, v.cfg.Renderer.ScreenHeight
	}
	v.ctx = &renderer.Context{
		Device:    v.device,
		Allocator: v.allocator,
		Surface:   v.surface,
		Configuration: renderer.Configuration{
			ScreenWidth:  width,
			ScreenHeight: height,
			FrameCapped:  v.cfg.Time.FramesPerSecond > 0,
			Shaders:      NewShaderLoader(v.cfg.Renderer.Shaders),
			Mesh:         mesh,
		},
		Log: v.log,
	}
	return nil
}

func (v *vulkanBackend) CreateDescriptorPool() error {
	sizes, maxSets := DescriptorPoolSizes()
	dpci := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}

	var descriptorPool vk.DescriptorPool
	if err := gfx.ResultError(gfx.KindDescriptorPool, "vk.CreateDescriptorPool()",
		vk.CreateDescriptorPool(v.device.Logical(), &dpci, nil, &descriptorPool)); err != nil {
		return err
	}
	v.descriptorPool = descriptorPool
	return nil
}

func (v *vulkanBackend) CreateSwapchain() error {
	if err := v.createContext(); err != nil {
		return err
	}
	v.swapchain = renderer.NewSwapchain(v.ctx)
	if err := v.swapchain.QueryDetails(); err != nil {
		return err
	}
	if err := v.swapchain.CheckDetails(); err != nil {
		return err
	}
	if err := v.swapchain.Create(v.device.Roles()); err != nil {
		return err
	}
	v.render = renderer.NewRender(v.ctx, v.swapchain)
	return nil
}

func (v *vulkanBackend) CreateImageViews() error {
	return v.render.CreateImageViews()
}

func (v *vulkanBackend) CreateGraphicsPipeline() error {
	return v.render.CreateGraphicsPipeline()
}

func (v *vulkanBackend) CreateFramebuffers() error {
	return v.render.CreateFramebuffers()
}

func (v *vulkanBackend) AcquireImage() error {
	return v.render.Pipeline().AcquireImage()
}

func (v *vulkanBackend) Draw() error {
	return v.render.Pipeline().Draw()
}

func (v *vulkanBackend) Present() error {
	return v.render.Pipeline().Present()
}

func (v *vulkanBackend) UpdateFrameIndex(currentFrame uint64) {
	v.render.UpdateFrameIndex(currentFrame)
}

func (v *vulkanBackend) WaitIdle() {
	if v.device != nil {
		v.device.WaitIdle()
	}
}

func (v *vulkanBackend) Destroy() {
	v.render.Destroy()
	v.render = nil
	v.swapchain.Destroy()
	v.swapchain = nil
	if v.descriptorPool != nil {
		vk.DestroyDescriptorPool(v.device.Logical(), v.descriptorPool, nil)
		v.descriptorPool = nil
	}
	if v.allocator != nil {
		if stats := v.allocator.Stats(); stats.Allocations > 0 {
			v.log.WithFields(log.Fields{
				"allocations": stats.Allocations,
				"bytes":       stats.Bytes,
			}).Warn("Device memory still allocated")
		}
		v.allocator = nil
	}
	if v.device != nil {
		v.device.Destroy()
		v.device = nil
	}
	if v.surface != nil {
		vk.DestroySurface(v.instance, v.surface, nil)
		v.surface = nil
	}
	if v.instance != nil {
		vk.DestroyInstance(v.instance, nil)
		v.instance = nil
	}
}
