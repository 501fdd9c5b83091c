// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"github.com/devblok/frametech/gfx"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// Configuration describes what the logical device is created with.
type Configuration struct {
	// Extensions are the device extensions to enable.
	Extensions []string

	// Layers are the validation layers to enable, empty in release runs.
	Layers []string

	// Allowlist overrides DefaultAllowlist when not empty.
	Allowlist []string
}

// NewVulkan creates a not yet selected Vulkan device for the instance.
// surface may be nil when the device is only queried for information.
func NewVulkan(instance vk.Instance, surface vk.Surface, cfg Configuration, logger log.FieldLogger) *Vulkan {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if len(cfg.Allowlist) == 0 {
		cfg.Allowlist = DefaultAllowlist
	}
	return &Vulkan{
		configuration: cfg,
		instance:      instance,
		surface:       surface,
		log:           logger,
	}
}

// Vulkan is the selected physical device, its logical
// device and the queues resolved for each role.
type Vulkan struct {
	configuration Configuration
	log           log.FieldLogger

	instance         vk.Instance
	surface          vk.Surface
	availableDevices []vk.PhysicalDevice

	physicalDevice vk.PhysicalDevice
	logicalDevice  vk.Device

	rolesResolved bool
	roles         QueueRoles
	queues        [roleCount]vk.Queue
}

// Enumerate lists the physical devices of the instance.
func (v *Vulkan) Enumerate() error {
	var deviceCount uint32
	if err := gfx.ResultError(gfx.KindNoDevice, "vk.EnumeratePhysicalDevices()",
		vk.EnumeratePhysicalDevices(v.instance, &deviceCount, nil)); err != nil {
		return err
	}
	if deviceCount == 0 {
		return gfx.Errorf(gfx.KindNoDevice, "no physical device found")
	}
	availableDevices := make([]vk.PhysicalDevice, deviceCount)
	if err := gfx.ResultError(gfx.KindNoDevice, "vk.EnumeratePhysicalDevices()",
		vk.EnumeratePhysicalDevices(v.instance, &deviceCount, availableDevices)); err != nil {
		return err
	}
	v.availableDevices = availableDevices[:deviceCount]
	return nil
}

// EnumerateSuitable picks the first suitable physical device.
func (v *Vulkan) EnumerateSuitable() error {
	if err := v.Enumerate(); err != nil {
		return err
	}
	v.log.Infof("Found %d physical device(s)", len(v.availableDevices))

	for _, pd := range v.availableDevices {
		props := properties(pd)
		name := vk.ToString(props.DeviceName[:])
		suitable := IsSuitable(name, props.DeviceType, v.configuration.Allowlist)
		v.log.WithFields(log.Fields{
			"device":   name,
			"type":     deviceTypeName(props.DeviceType),
			"suitable": suitable,
		}).Debug("Checking physical device")
		if suitable {
			v.physicalDevice = pd
			v.log.WithField("device", name).Info("Selected physical device")
			return nil
		}
	}
	return gfx.Errorf(gfx.KindNoSuitableDevice, "none of %d device(s) is suitable", len(v.availableDevices))
}

// QueueFamilies reads the capabilities of every queue family of the selected device.
func (v *Vulkan) QueueFamilies() ([]QueueFamily, error) {
	if v.physicalDevice == nil {
		return nil, gfx.Errorf(gfx.KindNoSuitableDevice, "no physical device selected")
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(v.physicalDevice, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(v.physicalDevice, &queueFamilyCount, queueFamilies)

	families := make([]QueueFamily, 0, queueFamilyCount)
	for i := uint32(0); i < queueFamilyCount; i++ {
		queueFamilies[i].Deref()
		flags := queueFamilies[i].QueueFlags

		var supportsPresent vk.Bool32
		if v.surface != nil {
			if err := gfx.ResultError(gfx.KindSurface, "vk.GetPhysicalDeviceSurfaceSupport()",
				vk.GetPhysicalDeviceSurfaceSupport(v.physicalDevice, i, v.surface, &supportsPresent)); err != nil {
				return nil, err
			}
		}

		families = append(families, QueueFamily{
			Index:    i,
			Graphics: flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0,
			Present:  supportsPresent.B(),
			Transfer: flags&vk.QueueFlags(vk.QueueTransferBit) != 0,
		})
	}
	return families, nil
}

// ResolveQueueRoles finds a distinct queue family for every role.
func (v *Vulkan) ResolveQueueRoles() error {
	families, err := v.QueueFamilies()
	if err != nil {
		return err
	}

	roles, err := ResolveQueueRoles(families)
	if err != nil {
		return err
	}
	v.roles = roles
	v.rolesResolved = true

	for _, role := range Roles {
		v.log.WithFields(log.Fields{
			"role":   role,
			"family": roles.Index(role),
		}).Debug("Resolved queue role")
	}
	return nil
}

// CreateLogical creates the logical device and fetches one queue per role.
func (v *Vulkan) CreateLogical() error {
	if !v.rolesResolved {
		return gfx.Errorf(gfx.KindLogicalDevice, "queue roles are not resolved")
	}

	var queueInfos []vk.DeviceQueueCreateInfo
	for _, idx := range v.roles.Distinct() {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: idx,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(v.configuration.Extensions)),
		PpEnabledExtensionNames: gfx.SafeStrings(v.configuration.Extensions),
		EnabledLayerCount:       uint32(len(v.configuration.Layers)),
		PpEnabledLayerNames:     gfx.SafeStrings(v.configuration.Layers),
	}

	var logicalDevice vk.Device
	if err := gfx.ResultError(gfx.KindLogicalDevice, "vk.CreateDevice()",
		vk.CreateDevice(v.physicalDevice, &dci, nil, &logicalDevice)); err != nil {
		v.log.WithError(err).Error("Cannot create the logical device")
		return err
	}
	v.logicalDevice = logicalDevice

	for _, role := range Roles {
		var queue vk.Queue
		vk.GetDeviceQueue(logicalDevice, v.roles.Index(role), 0, &queue)
		v.queues[role] = queue
	}
	v.log.Info("The logical device has been successfully created")
	return nil
}

// Physical returns the selected physical device.
func (v *Vulkan) Physical() vk.PhysicalDevice {
	return v.physicalDevice
}

// Logical returns the logical device.
func (v *Vulkan) Logical() vk.Device {
	return v.logicalDevice
}

// Roles returns the resolved queue roles.
func (v *Vulkan) Roles() QueueRoles {
	return v.roles
}

// Queue returns the queue used for role.
func (v *Vulkan) Queue(role QueueRole) vk.Queue {
	return v.queues[role]
}

// WaitIdle blocks until the logical device finished all work.
func (v *Vulkan) WaitIdle() {
	if v.logicalDevice != nil {
		vk.DeviceWaitIdle(v.logicalDevice)
	}
}

// PhysicalDevicesInfo returns a description of every enumerated device.
func (v *Vulkan) PhysicalDevicesInfo() []PhysicalDeviceInfo {
	pdi := make([]PhysicalDeviceInfo, len(v.availableDevices))
	for i, pd := range v.availableDevices {
		// Get extension info
		var numDeviceExtensions uint32
		if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numDeviceExtensions, nil)); err != nil {
			pdi[i].Invalid = true
		}
		deviceExt := make([]vk.ExtensionProperties, numDeviceExtensions)
		if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numDeviceExtensions, deviceExt)); err != nil {
			pdi[i].Invalid = true
		}
		for _, ext := range deviceExt {
			ext.Deref()
			pdi[i].Extensions = append(pdi[i].Extensions, vk.ToString(ext.ExtensionName[:]))
		}

		// Get layers info
		var numDeviceLayers uint32
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(pd, &numDeviceLayers, nil)); err != nil {
			pdi[i].Invalid = true
		}
		deviceLayers := make([]vk.LayerProperties, numDeviceLayers)
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(pd, &numDeviceLayers, deviceLayers)); err != nil {
			pdi[i].Invalid = true
		}
		for _, layer := range deviceLayers {
			layer.Deref()
			pdi[i].Layers = append(pdi[i].Layers, vk.ToString(layer.LayerName[:]))
		}

		var memoryProperties vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(pd, &memoryProperties)
		memoryProperties.Deref()
		for iMem := uint32(0); iMem < memoryProperties.MemoryHeapCount; iMem++ {
			memoryProperties.MemoryHeaps[iMem].Deref()
			pdi[i].Memory += uint64(memoryProperties.MemoryHeaps[iMem].Size)
		}

		props := properties(pd)
		pdi[i].ID = int(props.DeviceID)
		pdi[i].VendorID = int(props.VendorID)
		pdi[i].Name = vk.ToString(props.DeviceName[:])
		pdi[i].DriverVersion = int(props.DriverVersion)
		pdi[i].Type = deviceTypeName(props.DeviceType)
		pdi[i].Suitable = IsSuitable(pdi[i].Name, props.DeviceType, v.configuration.Allowlist)
	}
	return pdi
}

// Destroy destroys the logical device. The instance is not owned.
func (v *Vulkan) Destroy() {
	if v == nil {
		return
	}
	v.availableDevices = nil
	if v.logicalDevice != nil {
		v.log.Debug("Destroying the logical device")
		vk.DestroyDevice(v.logicalDevice, nil)
		v.logicalDevice = nil
	}
}

func properties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &props)
	props.Deref()
	return props
}
