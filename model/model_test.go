// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model_test

import (
	"testing"

	"github.com/devblok/frametech/model"
	glm "github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"
)

func TestEmptyMesh(t *testing.T) {
	var mesh model.Mesh
	if mesh.VertexData() != nil || mesh.IndexData() != nil {
		t.Error("empty mesh must have no data")
	}
	if mesh.IndexCount() != 0 {
		t.Error("empty mesh draws", mesh.IndexCount(), "indices")
	}
}

func TestMeshData(t *testing.T) {
	mesh := model.Mesh{
		Vertices: []model.Vertex{
			{Pos: glm.Vec2{0, -0.5}, Color: glm.Vec3{1, 0, 0}},
			{Pos: glm.Vec2{0.5, 0.5}, Color: glm.Vec3{0, 1, 0}},
			{Pos: glm.Vec2{-0.5, 0.5}, Color: glm.Vec3{0, 0, 1}},
		},
		Indices: []model.Index{0, 1, 2},
	}
	if len(mesh.VertexData()) != 3*20 {
		t.Error("vertex data is", len(mesh.VertexData()), "bytes")
	}
	if len(mesh.IndexData()) != 6 {
		t.Error("index data is", len(mesh.IndexData()), "bytes")
	}
	if mesh.IndexCount() != 3 {
		t.Error("index count is", mesh.IndexCount())
	}
}

func TestVertexDescriptions(t *testing.T) {
	bindings := model.VertexBindingDescriptions()
	if len(bindings) != 1 || bindings[0].Binding != 0 || bindings[0].Stride != 20 {
		t.Error("unexpected binding:", bindings)
	}

	attrs := model.VertexAttributeDescriptions()
	if len(attrs) != 2 {
		t.Fatal("expected two attributes, got", len(attrs))
	}
	if attrs[0].Format != vk.FormatR32g32Sfloat || attrs[0].Offset != 0 {
		t.Error("unexpected position attribute:", attrs[0])
	}
	if attrs[1].Format != vk.FormatR32g32b32Sfloat || attrs[1].Offset != 8 || attrs[1].Location != 1 {
		t.Error("unexpected color attribute:", attrs[1])
	}
}
