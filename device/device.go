// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package device selects the physical graphics processor and builds the
// logical device with its graphics, present and transfer queues.
package device

import (
	"fmt"
	"sort"

	"github.com/devblok/frametech/gfx"
	vk "github.com/vulkan-go/vulkan"
)

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            int
	VendorID      int
	DriverVersion int
	Name          string
	Type          string
	Suitable      bool
	Invalid       bool
	Extensions    []string
	Layers        []string
	Memory        uint64
}

// DefaultAllowlist names integrated chips accepted even though they are not discrete.
var DefaultAllowlist = []string{
	"Apple M1",
	"Apple M2",
}

// IsSuitable reports whether a device is accepted for rendering: the name
// matches an allowlist entry exactly, or the device is a discrete GPU.
func IsSuitable(name string, deviceType vk.PhysicalDeviceType, allowlist []string) bool {
	for _, allowed := range allowlist {
		if name == allowed {
			return true
		}
	}
	return deviceType == vk.PhysicalDeviceTypeDiscreteGpu
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	}
	return "other"
}

// QueueRole is one of the queue usages the engine needs.
type QueueRole int

// Queue roles, in resolution order.
const (
	GraphicsRole QueueRole = iota
	PresentRole
	TransferRole

	roleCount
)

// Roles lists every queue role in resolution order.
var Roles = [roleCount]QueueRole{GraphicsRole, PresentRole, TransferRole}

func (r QueueRole) String() string {
	switch r {
	case GraphicsRole:
		return "graphics"
	case PresentRole:
		return "present"
	case TransferRole:
		return "transfer"
	}
	return fmt.Sprintf("QueueRole(%d)", int(r))
}

// QueueFamily is the capability snapshot of one queue family.
type QueueFamily struct {
	Index    uint32
	Graphics bool
	Present  bool
	Transfer bool
}

func (f QueueFamily) supports(role QueueRole) bool {
	switch role {
	case GraphicsRole:
		return f.Graphics
	case PresentRole:
		return f.Present
	case TransferRole:
		return f.Transfer
	}
	return false
}

// QueueRoles maps every role to its queue family index.
// It is built once by ResolveQueueRoles and never modified.
type QueueRoles struct {
	indices [roleCount]uint32
}

// Index returns the family index of role.
func (q QueueRoles) Index(role QueueRole) uint32 {
	return q.indices[role]
}

// Distinct returns the family indices in role order without duplicates.
func (q QueueRoles) Distinct() []uint32 {
	var distinct []uint32
	for _, idx := range q.indices {
		seen := false
		for _, d := range distinct {
			if d == idx {
				seen = true
				break
			}
		}
		if !seen {
			distinct = append(distinct, idx)
		}
	}
	return distinct
}

// Exclusive reports whether every role uses the same family.
func (q QueueRoles) Exclusive() bool {
	return len(q.Distinct()) == 1
}

// NewQueueRoles builds roles from explicit indices.
func NewQueueRoles(graphics, present, transfer uint32) QueueRoles {
	return QueueRoles{indices: [roleCount]uint32{graphics, present, transfer}}
}

// ResolveQueueRoles assigns a family to each role in order graphics,
// present, transfer. A role takes the lowest family index that is not
// already taken by a previous role and supports the role.
func ResolveQueueRoles(families []QueueFamily) (QueueRoles, error) {
	if len(families) == 0 {
		return QueueRoles{}, gfx.Errorf(gfx.KindNoReadyQueue, "no queue families on device")
	}

	sorted := append([]QueueFamily(nil), families...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})

	var (
		roles QueueRoles
		taken = make(map[uint32]bool, len(sorted))
	)
	for _, role := range Roles {
		found := false
		for _, family := range sorted {
			if taken[family.Index] || !family.supports(role) {
				continue
			}
			roles.indices[role] = family.Index
			taken[family.Index] = true
			found = true
			break
		}
		if !found {
			return QueueRoles{}, gfx.Errorf(gfx.KindNoReadyQueue, "no ready queue for %s", role)
		}
	}
	return roles, nil
}
