// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	"github.com/devblok/frametech/gfx"
	vk "github.com/vulkan-go/vulkan"
)

// StageFlag maps a shader stage to its Vulkan stage bit.
func StageFlag(stage gfx.ShaderStage) (vk.ShaderStageFlagBits, error) {
	switch stage {
	case gfx.VertexStage:
		return vk.ShaderStageVertexBit, nil
	case gfx.FragmentStage:
		return vk.ShaderStageFragmentBit, nil
	case gfx.GeometryStage:
		return vk.ShaderStageGeometryBit, nil
	case gfx.ComputeStage:
		return vk.ShaderStageComputeBit, nil
	}
	return 0, gfx.Errorf(gfx.KindShader, "unsupported shader stage %d", int(stage))
}

// Shader is a shader module created from a blob
type Shader struct {
	device vk.Device
	module vk.ShaderModule
	blob   gfx.ShaderBlob
	stage  vk.ShaderStageFlagBits
}

// NewShader creates the shader module of blob.
func NewShader(device vk.Device, blob gfx.ShaderBlob) (*Shader, error) {
	stage, err := StageFlag(blob.Stage)
	if err != nil {
		return nil, err
	}
	code := gfx.SliceUint32(blob.Code)
	if len(code) == 0 {
		return nil, gfx.Errorf(gfx.KindShader, "shader %q is empty", blob.Tag)
	}

	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(blob.Size()),
		PCode:    code,
	}

	var module vk.ShaderModule
	if err := gfx.ResultError(gfx.KindShader, "vk.CreateShaderModule("+blob.Tag+")",
		vk.CreateShaderModule(device, &smci, nil, &module)); err != nil {
		return nil, err
	}

	return &Shader{
		device: device,
		module: module,
		blob:   blob,
		stage:  stage,
	}, nil
}

// StageInfo describes the shader as a pipeline stage.
func (s *Shader) StageInfo() vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  s.stage,
		Module: s.module,
		PName:  gfx.SafeString(s.blob.EntryPoint()),
	}
}

// Tag returns the name the shader was loaded under
func (s *Shader) Tag() string {
	return s.blob.Tag
}

// Release destroys the shader module.
func (s *Shader) Release() {
	if s == nil || s.module == nil {
		return
	}
	vk.DestroyShaderModule(s.device, s.module, nil)
	s.module = nil
}
