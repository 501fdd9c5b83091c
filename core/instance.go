// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"runtime"
	"unsafe"

	"github.com/devblok/frametech/device"
	"github.com/devblok/frametech/gfx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// APIVersion is the Vulkan version requested from the driver
var APIVersion = vk.MakeVersion(1, 3, 0)

// instanceCreateEnumeratePortability is VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
const instanceCreateEnumeratePortability = 0x00000001

// LoadVulkan points the bindings at the loader of the window system and
// initialises them. A nil procAddr uses the default loader.
func LoadVulkan(procAddr unsafe.Pointer) error {
	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return errors.Wrap(err, "vk.SetDefaultGetInstanceProcAddr()")
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}
	if err := vk.Init(); err != nil {
		return errors.Wrap(err, "vk.Init()")
	}
	return nil
}

// SupportedInstanceExtensions lists the instance extensions of the loader.
func SupportedInstanceExtensions() ([]string, error) {
	var count uint32
	if err := gfx.ResultError(gfx.KindInstance, "vk.EnumerateInstanceExtensionProperties()",
		vk.EnumerateInstanceExtensionProperties("", &count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if err := gfx.ResultError(gfx.KindInstance, "vk.EnumerateInstanceExtensionProperties()",
		vk.EnumerateInstanceExtensionProperties("", &count, props)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, p := range props[:count] {
		p.Deref()
		names = append(names, vk.ToString(p.ExtensionName[:]))
	}
	return names, nil
}

// NewVulkanInstance creates a Vulkan instance with the configured layers and
// the extensions the window requires.
func NewVulkanInstance(cfg Configuration, windowExtensions []string, logger log.FieldLogger) (vk.Instance, error) {
	if supported, err := SupportedInstanceExtensions(); err == nil {
		for _, name := range supported {
			logger.WithField("extension", name).Debug("Supported instance extension")
		}
	}

	extensions := cfg.Instance.InstanceExtensions(windowExtensions)
	layers := cfg.Instance.Layers()

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(APIVersion),
		ApplicationVersion: cfg.Application.Version.Vulkan(),
		PApplicationName:   gfx.SafeString(cfg.Application.Name),
		EngineVersion:      EngineVersion.Vulkan(),
		PEngineName:        gfx.SafeString(ApplicationName),
	}

	var flags vk.InstanceCreateFlags
	if runtime.GOOS == "darwin" {
		flags = vk.InstanceCreateFlags(instanceCreateEnumeratePortability)
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		Flags:                   flags,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: gfx.SafeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     gfx.SafeStrings(layers),
	}

	var instance vk.Instance
	if err := gfx.ResultError(gfx.KindInstance, "vk.CreateInstance()",
		vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, gfx.Errorf(gfx.KindInstance, "vk.InitInstance(): %s", err)
	}

	logger.WithFields(log.Fields{
		"extensions": extensions,
		"layers":     layers,
	}).Info("Vulkan instance created")
	return instance, nil
}

// QueryDevices creates a windowless instance with the default loader and
// describes every physical device it finds.
func QueryDevices(cfg Configuration, logger log.FieldLogger) ([]device.PhysicalDeviceInfo, error) {
	if err := LoadVulkan(nil); err != nil {
		return nil, err
	}
	instance, err := NewVulkanInstance(cfg, nil, logger)
	if err != nil {
		return nil, err
	}
	defer vk.DestroyInstance(instance, nil)

	dev := device.NewVulkan(instance, nil, device.Configuration{
		Allowlist: cfg.Instance.Allowlist,
	}, logger)
	if err := dev.Enumerate(); err != nil {
		return nil, err
	}
	return dev.PhysicalDevicesInfo(), nil
}
