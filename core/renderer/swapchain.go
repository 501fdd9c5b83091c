// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	"github.com/devblok/frametech/device"
	"github.com/devblok/frametech/gfx"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// SwapchainSupport is what the surface reports it can do on the device
type SwapchainSupport struct {
	MinImageCount           uint32
	MaxImageCount           uint32
	MinExtent               vk.Extent2D
	MaxExtent               vk.Extent2D
	CurrentTransform        vk.SurfaceTransformFlagBits
	SupportedCompositeAlpha vk.CompositeAlphaFlags
	Formats                 []vk.SurfaceFormat
	PresentModes            []vk.PresentMode
}

// CheckDetails verifies the surface can hold target images and
// offers at least one format and present mode. MaxImageCount 0 means no limit.
func CheckDetails(support SwapchainSupport, target uint32) error {
	switch {
	case support.MaxImageCount != 0 && support.MaxImageCount < target:
		return gfx.Errorf(gfx.KindSwapchainDetails, "max image count %d is below %d", support.MaxImageCount, target)
	case support.MinImageCount > target:
		return gfx.Errorf(gfx.KindSwapchainDetails, "min image count %d is above %d", support.MinImageCount, target)
	case support.MinImageCount == 0:
		return gfx.Errorf(gfx.KindSwapchainDetails, "min image count is zero")
	case len(support.Formats) == 0:
		return gfx.Errorf(gfx.KindSwapchainDetails, "no surface formats")
	case len(support.PresentModes) == 0:
		return gfx.Errorf(gfx.KindSwapchainDetails, "no present modes")
	}
	return nil
}

// ChooseSurfaceFormat prefers 8 bit sRGB BGRA, falling back to the first format.
// formats must not be empty.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

// ChoosePresentMode selects FIFO when frames are capped and IMMEDIATE otherwise.
func ChoosePresentMode(modes []vk.PresentMode, capped bool) (vk.PresentMode, error) {
	wanted := vk.PresentModeImmediate
	if capped {
		wanted = vk.PresentModeFifo
	}
	for _, m := range modes {
		if m == wanted {
			return m, nil
		}
	}
	return wanted, gfx.Errorf(gfx.KindPresentMode, "present mode %s is not supported", presentModeName(wanted))
}

// ChooseExtent clamps the window size into the surface limits.
func ChooseExtent(width, height uint32, min, max vk.Extent2D) vk.Extent2D {
	return vk.Extent2D{
		Width:  clamp(width, min.Width, max.Width),
		Height: clamp(height, min.Height, max.Height),
	}
}

// ChooseSharing returns exclusive sharing when a single family is used by every
// role, otherwise concurrent sharing over the distinct families.
func ChooseSharing(roles device.QueueRoles) (vk.SharingMode, []uint32) {
	if roles.Exclusive() {
		return vk.SharingModeExclusive, nil
	}
	return vk.SharingModeConcurrent, roles.Distinct()
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func presentModeName(m vk.PresentMode) string {
	switch m {
	case vk.PresentModeImmediate:
		return "immediate"
	case vk.PresentModeMailbox:
		return "mailbox"
	case vk.PresentModeFifo:
		return "fifo"
	case vk.PresentModeFifoRelaxed:
		return "fifo relaxed"
	}
	return "unknown"
}

// NewSwapchain creates a swapchain negotiator over the context's surface.
func NewSwapchain(ctx *Context) *Swapchain {
	return &Swapchain{ctx: ctx}
}

// Swapchain negotiates and owns the presentation images
type Swapchain struct {
	ctx *Context

	support SwapchainSupport

	swapchain   vk.Swapchain
	format      vk.SurfaceFormat
	presentMode vk.PresentMode
	extent      vk.Extent2D
	images      []vk.Image
}

// QueryDetails reads the surface capabilities, formats and present modes.
func (s *Swapchain) QueryDetails() error {
	var (
		pd      = s.ctx.Device.Physical()
		surface = s.ctx.Surface
		caps    vk.SurfaceCapabilities
	)
	if err := gfx.ResultError(gfx.KindSwapchainDetails, "vk.GetPhysicalDeviceSurfaceCapabilities()",
		vk.GetPhysicalDeviceSurfaceCapabilities(pd, surface, &caps)); err != nil {
		return err
	}
	caps.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	var formatCount uint32
	if err := gfx.ResultError(gfx.KindSwapchainDetails, "vk.GetPhysicalDeviceSurfaceFormats()",
		vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, nil)); err != nil {
		return err
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	if err := gfx.ResultError(gfx.KindSwapchainDetails, "vk.GetPhysicalDeviceSurfaceFormats()",
		vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, formats)); err != nil {
		return err
	}
	for i := range formats {
		formats[i].Deref()
	}

	var modeCount uint32
	if err := gfx.ResultError(gfx.KindSwapchainDetails, "vk.GetPhysicalDeviceSurfacePresentModes()",
		vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &modeCount, nil)); err != nil {
		return err
	}
	modes := make([]vk.PresentMode, modeCount)
	if err := gfx.ResultError(gfx.KindSwapchainDetails, "vk.GetPhysicalDeviceSurfacePresentModes()",
		vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &modeCount, modes)); err != nil {
		return err
	}

	s.support = SwapchainSupport{
		MinImageCount:           caps.MinImageCount,
		MaxImageCount:           caps.MaxImageCount,
		MinExtent:               caps.MinImageExtent,
		MaxExtent:               caps.MaxImageExtent,
		CurrentTransform:        caps.CurrentTransform,
		SupportedCompositeAlpha: caps.SupportedCompositeAlpha,
		Formats:                 formats[:formatCount],
		PresentModes:            modes[:modeCount],
	}
	return nil
}

// CheckDetails validates the queried support against MaxBuffers.
func (s *Swapchain) CheckDetails() error {
	return CheckDetails(s.support, MaxBuffers)
}

// Create builds the swapchain and fetches its images.
func (s *Swapchain) Create(roles device.QueueRoles) error {
	cfg := s.ctx.Configuration
	presentMode, err := ChoosePresentMode(s.support.PresentModes, cfg.FrameCapped)
	if err != nil {
		return err
	}
	format := ChooseSurfaceFormat(s.support.Formats)
	extent := ChooseExtent(cfg.ScreenWidth, cfg.ScreenHeight, s.support.MinExtent, s.support.MaxExtent)
	sharing, families := ChooseSharing(roles)

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	compositeAlphaFlags := []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	}
	for _, flag := range compositeAlphaFlags {
		if s.support.SupportedCompositeAlpha&vk.CompositeAlphaFlags(flag) != 0 {
			compositeAlpha = flag
			break
		}
	}

	scci := vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               s.ctx.Surface,
		MinImageCount:         MaxBuffers,
		ImageFormat:           format.Format,
		ImageColorSpace:       format.ColorSpace,
		ImageExtent:           extent,
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      sharing,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
		PreTransform:          s.support.CurrentTransform,
		CompositeAlpha:        compositeAlpha,
		PresentMode:           presentMode,
		Clipped:               vk.True,
		OldSwapchain:          nil,
	}

	logical := s.ctx.Device.Logical()
	var swapchain vk.Swapchain
	if err := gfx.ResultError(gfx.KindSwapchain, "vk.CreateSwapchain()",
		vk.CreateSwapchain(logical, &scci, nil, &swapchain)); err != nil {
		return err
	}
	s.swapchain = swapchain

	var numImages uint32
	if err := gfx.ResultError(gfx.KindSwapchain, "vk.GetSwapchainImages()",
		vk.GetSwapchainImages(logical, swapchain, &numImages, nil)); err != nil {
		return err
	}
	images := make([]vk.Image, numImages)
	if err := gfx.ResultError(gfx.KindSwapchain, "vk.GetSwapchainImages()",
		vk.GetSwapchainImages(logical, swapchain, &numImages, images)); err != nil {
		return err
	}

	s.images = images[:numImages]
	s.format = format
	s.presentMode = presentMode
	s.extent = extent

	s.ctx.logger().WithFields(log.Fields{
		"images":  len(s.images),
		"width":   extent.Width,
		"height":  extent.Height,
		"present": presentModeName(presentMode),
		"sharing": len(families),
	}).Info("Swapchain created")
	return nil
}

// Support returns the last queried surface support
func (s *Swapchain) Support() SwapchainSupport {
	return s.support
}

// Get returns the native swapchain
func (s *Swapchain) Get() vk.Swapchain {
	return s.swapchain
}

// Images returns the swapchain images in presentation order
func (s *Swapchain) Images() []vk.Image {
	return s.images
}

// Format returns the chosen surface format
func (s *Swapchain) Format() vk.SurfaceFormat {
	return s.format
}

// PresentMode returns the chosen present mode
func (s *Swapchain) PresentMode() vk.PresentMode {
	return s.presentMode
}

// Extent returns the chosen image size
func (s *Swapchain) Extent() vk.Extent2D {
	return s.extent
}

// Destroy destroys the swapchain, the images are owned by it.
func (s *Swapchain) Destroy() {
	if s == nil || s.swapchain == nil {
		return
	}
	vk.DestroySwapchain(s.ctx.Device.Logical(), s.swapchain, nil)
	s.swapchain = nil
	s.images = nil
}
