// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines rendering related features that the engine components share.
package gfx

import "fmt"

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// ShaderStage tags a shader blob with the pipeline stage it runs in.
type ShaderStage int

// Supported shader stages.
const (
	ComputeStage ShaderStage = iota
	FragmentStage
	GeometryStage
	VertexStage
)

// DefaultEntryPoint is the entry point used when a blob does not name one.
const DefaultEntryPoint = "main"

func (s ShaderStage) String() string {
	switch s {
	case ComputeStage:
		return "compute"
	case FragmentStage:
		return "fragment"
	case GeometryStage:
		return "geometry"
	case VertexStage:
		return "vertex"
	}
	return fmt.Sprintf("ShaderStage(%d)", int(s))
}

// ShaderBlob is compiled shader bytecode, treated as opaque.
type ShaderBlob struct {
	Code  []byte
	Stage ShaderStage

	// Tag identifies where the blob came from, a path or an archive entry.
	Tag string

	// Entry is the entry point name, DefaultEntryPoint when empty.
	Entry string
}

// EntryPoint returns the entry point of the blob.
func (b ShaderBlob) EntryPoint() string {
	if b.Entry == "" {
		return DefaultEntryPoint
	}
	return b.Entry
}

// Size returns the byte length of the bytecode.
func (b ShaderBlob) Size() int {
	return len(b.Code)
}

// ShaderLoader reads compiled shaders from storage.
type ShaderLoader interface {

	// Load returns every shader blob the loader knows about.
	Load() ([]ShaderBlob, error)
}
