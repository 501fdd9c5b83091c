// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

//go:generate glslangValidator -V ../shaders/basic_triangle.vert -o ../shaders/basic_triangle.vert.spv
//go:generate glslangValidator -V ../shaders/basic_triangle.frag -o ../shaders/basic_triangle.frag.spv

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/devblok/frametech/gfx"
	"github.com/devblok/frametech/utility/kar"
	"github.com/gobuffalo/packd"
	"github.com/gobuffalo/packr"
	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
)

const (
	shaderSuffix  = ".spv"
	archiveSuffix = ".kar"
)

// ShaderBox holds the compiled shaders embedded into the binary
var ShaderBox = packr.NewBox("../shaders")

// ParseShaderName splits a compiled shader file name into its tag and stage.
// It is important that the file name does not contain more than two dots,
// the first is always the name of the shader, second is type, and the third one
// ensures that the shader is compiled (only compiled shaders have an .spv extension).
func ParseShaderName(file string) (string, gfx.ShaderStage, bool) {
	base := filepath.Base(file)
	if !strings.HasSuffix(base, shaderSuffix) {
		return "", 0, false
	}
	nodes := strings.Split(strings.TrimSuffix(base, shaderSuffix), ".")
	if len(nodes) != 2 || nodes[0] == "" {
		return "", 0, false
	}

	var stage gfx.ShaderStage
	switch nodes[1] {
	case "vert":
		stage = gfx.VertexStage
	case "frag":
		stage = gfx.FragmentStage
	case "geom":
		stage = gfx.GeometryStage
	case "comp":
		stage = gfx.ComputeStage
	default:
		return "", 0, false
	}
	return nodes[0] + "." + nodes[1], stage, true
}

func newBlob(name string, code []byte) (gfx.ShaderBlob, bool) {
	tag, stage, ok := ParseShaderName(name)
	if !ok {
		return gfx.ShaderBlob{}, false
	}
	return gfx.ShaderBlob{
		Code:  code,
		Stage: stage,
		Tag:   tag,
		Entry: gfx.DefaultEntryPoint,
	}, true
}

// NewShaderLoader picks the loader for source: BoxShaders for the embedded
// box, a path ending in .kar for an archive, otherwise a directory.
func NewShaderLoader(source string) gfx.ShaderLoader {
	switch {
	case source == BoxShaders:
		return BoxShaderLoader{Box: ShaderBox}
	case strings.HasSuffix(source, archiveSuffix):
		return ArchiveShaderLoader{Path: source}
	}
	return DirectoryShaderLoader{Dir: source}
}

// DirectoryShaderLoader loads all compiled shaders in a directory tree
type DirectoryShaderLoader struct {
	Dir string
}

// Load implements gfx.ShaderLoader
func (l DirectoryShaderLoader) Load() ([]gfx.ShaderBlob, error) {
	var blobs []gfx.ShaderBlob
	if err := filepath.Walk(l.Dir, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if f.IsDir() {
			return nil
		}
		if _, _, ok := ParseShaderName(path); !ok {
			return nil
		}
		code, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		blob, _ := newBlob(path, code)
		blobs = append(blobs, blob)
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, "loading shaders from %s", l.Dir)
	}
	return blobs, nil
}

// ArchiveShaderLoader loads all compiled shaders of a memory mapped kar archive
type ArchiveShaderLoader struct {
	Path string
}

// Load implements gfx.ShaderLoader
func (l ArchiveShaderLoader) Load() ([]gfx.ShaderBlob, error) {
	r, err := mmap.Open(l.Path)
	if err != nil {
		return nil, errors.Wrap(err, "mapping shader archive")
	}
	defer r.Close()

	ar, err := kar.Open(r)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", l.Path)
	}

	var blobs []gfx.ShaderBlob
	for _, name := range ar.Names() {
		if _, _, ok := ParseShaderName(name); !ok {
			continue
		}
		code, err := ar.ReadAll(name)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", name)
		}
		blob, _ := newBlob(name, code)
		blobs = append(blobs, blob)
	}
	return blobs, nil
}

// BoxShaderLoader loads all compiled shaders of a packr box
type BoxShaderLoader struct {
	Box packr.Box
}

// Load implements gfx.ShaderLoader
func (l BoxShaderLoader) Load() ([]gfx.ShaderBlob, error) {
	var blobs []gfx.ShaderBlob
	err := l.Box.Walk(func(path string, f packd.File) error {
		if _, _, ok := ParseShaderName(path); !ok {
			return nil
		}
		code, err := io.ReadAll(f)
		if err != nil {
			return err
		}
		blob, _ := newBlob(path, code)
		blobs = append(blobs, blob)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "loading embedded shaders")
	}
	return blobs, nil
}
