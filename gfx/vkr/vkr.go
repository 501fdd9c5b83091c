// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vkr implements memory and buffer primitives for the vulkan renderer.
package vkr

import (
	"github.com/devblok/frametech/gfx"
	vk "github.com/vulkan-go/vulkan"
)

// Transferer records one-shot transfer commands and blocks until
// the transfer queue finished executing them.
type Transferer interface {
	Transfer(record func(cmd vk.CommandBuffer)) error
}

// NewBuffer creates, configures, allocates and binds a new buffer.
// families is only used for concurrent sharing.
func NewBuffer(ma *MemoryAllocator, size uint, usage vk.BufferUsageFlags, prop vk.MemoryPropertyFlags, mode vk.SharingMode, families []uint32) (Buffer, error) {
	if size == 0 {
		return Buffer{}, gfx.Errorf(gfx.KindBuffer, "zero sized buffer")
	}
	dev := ma.Device()

	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: mode,
	}
	if mode == vk.SharingModeConcurrent {
		createInfo.QueueFamilyIndexCount = uint32(len(families))
		createInfo.PQueueFamilyIndices = families
	}

	var buffer vk.Buffer
	if err := gfx.ResultError(gfx.KindBuffer, "vk.CreateBuffer()", vk.CreateBuffer(dev, &createInfo, nil, &buffer)); err != nil {
		return Buffer{}, err
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev, buffer, &req)
	req.Deref()

	memory, err := ma.Malloc(req, prop)
	if err != nil {
		vk.DestroyBuffer(dev, buffer, nil)
		return Buffer{}, err
	}

	if err := gfx.ResultError(gfx.KindBuffer, "vk.BindBufferMemory()",
		vk.BindBufferMemory(dev, buffer, memory.Get(), vk.DeviceSize(memory.Offset()))); err != nil {
		vk.DestroyBuffer(dev, buffer, nil)
		memory.Release()
		return Buffer{}, err
	}

	return Buffer{
		device: dev,
		buffer: buffer,
		size:   size,
		memory: memory,
	}, nil
}

// NewDeviceLocalBuffer uploads data into a device local buffer through a
// host visible staging buffer. The staging buffer is released before returning.
// Empty data yields a null Buffer.
func NewDeviceLocalBuffer(ma *MemoryAllocator, tr Transferer, data []byte, usage vk.BufferUsageFlags, mode vk.SharingMode, families []uint32) (Buffer, error) {
	if len(data) == 0 {
		return Buffer{}, nil
	}
	size := uint(len(data))

	staging, err := NewBuffer(ma, size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
		vk.SharingModeExclusive, nil)
	if err != nil {
		return Buffer{}, err
	}
	defer staging.Release()

	if err := staging.Mem().Write(data); err != nil {
		return Buffer{}, err
	}

	dst, err := NewBuffer(ma, size,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		mode, families)
	if err != nil {
		return Buffer{}, err
	}

	if err := tr.Transfer(func(cmd vk.CommandBuffer) {
		vk.CmdCopyBuffer(cmd, staging.Get(), dst.Get(), 1, []vk.BufferCopy{{
			Size: vk.DeviceSize(size),
		}})
	}); err != nil {
		dst.Release()
		return Buffer{}, err
	}
	return dst, nil
}

// Buffer implements a generic vulkan buffer.
type Buffer struct {
	device vk.Device
	buffer vk.Buffer
	size   uint

	memory Memory
}

// Mem returns the Memory that the buffer is based on.
func (b *Buffer) Mem() *Memory {
	return &b.memory
}

// Get returns the vulkan Buffer handle.
func (b *Buffer) Get() vk.Buffer {
	return b.buffer
}

// Size returns the size of the buffer in bytes.
func (b *Buffer) Size() uint {
	return b.size
}

// IsNull reports whether the buffer holds no vulkan object.
func (b *Buffer) IsNull() bool {
	return b.buffer == nil
}

// Release destroys the buffer and memory asociated with it.
func (b *Buffer) Release() {
	if b.IsNull() {
		return
	}
	vk.DestroyBuffer(b.device, b.buffer, nil)
	b.memory.Release()
	b.buffer = nil
}
