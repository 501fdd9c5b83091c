// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/devblok/frametech/gfx"
	vk "github.com/vulkan-go/vulkan"
)

// Memory defines a usable memory region.
type Memory struct {
	mapped      bool
	len, offset uint
	device      vk.Device
	memory      vk.DeviceMemory
	allocator   *MemoryAllocator
}

// Len returns the length of assigned memory.
func (m *Memory) Len() uint {
	return m.len
}

// Offset returns the start location of assigned memory.
func (m *Memory) Offset() uint {
	return m.offset
}

// Get returns the vulkan memory handle.
func (m *Memory) Get() vk.DeviceMemory {
	return m.memory
}

// Map maps the entire available memory region and
// returns a pointer to the mapped area.
func (m *Memory) Map() (unsafe.Pointer, error) {
	var memMapped unsafe.Pointer
	if err := gfx.ResultError(gfx.KindBuffer, "vk.MapMemory()",
		vk.MapMemory(m.device, m.memory, vk.DeviceSize(m.offset), vk.DeviceSize(m.len), 0, &memMapped)); err != nil {
		return nil, err
	}
	m.mapped = true
	return memMapped, nil
}

// Write copies data to the start of the region. The memory has to be host visible.
func (m *Memory) Write(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if uint(len(data)) > m.len {
		return gfx.Errorf(gfx.KindBuffer, "write of %d bytes exceeds region of %d", len(data), m.len)
	}
	ptr, err := m.Map()
	if err != nil {
		return err
	}
	copy(unsafe.Slice((*byte)(ptr), len(data)), data)
	m.Unmap()
	return nil
}

// Unmap removes the memory mapping if it was mapped.
func (m *Memory) Unmap() {
	if m.mapped {
		vk.UnmapMemory(m.device, m.memory)
		m.mapped = false
	}
}

// Release frees memory after unmapping it if previously mapped.
func (m *Memory) Release() {
	if m.memory == nil {
		return
	}
	m.Unmap()
	vk.FreeMemory(m.device, m.memory, nil)
	if m.allocator != nil {
		m.allocator.released(m.len)
	}
	m.memory = nil
}

// NewMemoryAllocator creates a new memory allocator. Allocates for the logical device,
// reads memory properties of the physical device to influence allocation.
func NewMemoryAllocator(device vk.Device, phyDevice vk.PhysicalDevice) (*MemoryAllocator, error) {
	if device == nil {
		return nil, gfx.Errorf(gfx.KindAllocator, "no logical device")
	}

	var memProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(phyDevice, &memProperties)
	memProperties.Deref()

	types := make([]vk.MemoryType, memProperties.MemoryTypeCount)
	for idx := range types {
		memProperties.MemoryTypes[idx].Deref()
		types[idx] = memProperties.MemoryTypes[idx]
	}

	return &MemoryAllocator{
		device:      device,
		memoryTypes: types,
	}, nil
}

// AllocatorStats is a snapshot of live allocations.
type AllocatorStats struct {
	Allocations int
	Bytes       uint64
}

// MemoryAllocator is responsible returning usable
// memory for any resources that may need it.
type MemoryAllocator struct {
	device      vk.Device
	memoryTypes []vk.MemoryType

	stats AllocatorStats
}

// Device returns the logical device the allocator serves.
func (ma *MemoryAllocator) Device() vk.Device {
	return ma.device
}

// Stats returns the current allocation statistics.
func (ma *MemoryAllocator) Stats() AllocatorStats {
	return ma.stats
}

// Malloc returns a usable memory chunk ready for use.
func (ma *MemoryAllocator) Malloc(req vk.MemoryRequirements, prop vk.MemoryPropertyFlags) (Memory, error) {
	memTypeIdx, ok := FindMemoryType(ma.memoryTypes, req.MemoryTypeBits, prop)
	if !ok {
		return Memory{}, gfx.Errorf(gfx.KindBuffer, "suitable memory type not found")
	}

	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memTypeIdx,
	}

	var memory vk.DeviceMemory
	if err := gfx.ResultError(gfx.KindBuffer, "vk.AllocateMemory()", vk.AllocateMemory(ma.device, &mai, nil, &memory)); err != nil {
		return Memory{}, err
	}

	ma.stats.Allocations++
	ma.stats.Bytes += uint64(req.Size)

	return Memory{
		offset:    0,
		len:       uint(req.Size),
		device:    ma.device,
		memory:    memory,
		allocator: ma,
	}, nil
}

func (ma *MemoryAllocator) released(size uint) {
	ma.stats.Allocations--
	ma.stats.Bytes -= uint64(size)
}

// FindMemoryType returns the first memory type index allowed by filter
// that carries all of the requested property flags.
func FindMemoryType(types []vk.MemoryType, filter uint32, prop vk.MemoryPropertyFlags) (uint32, bool) {
	for idx := 0; idx < len(types) && idx < 32; idx++ {
		if filter&(1<<uint(idx)) != 0 && (types[idx].PropertyFlags&prop) == prop {
			return uint32(idx), true
		}
	}
	return 0, false
}
