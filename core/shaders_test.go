// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/devblok/frametech/core"
	"github.com/devblok/frametech/gfx"
	"github.com/devblok/frametech/utility/kar"
	"github.com/gobuffalo/packr"
)

func TestParseShaderName(t *testing.T) {
	cases := []struct {
		file  string
		tag   string
		stage gfx.ShaderStage
		ok    bool
	}{
		{"shaders/basic_triangle.vert.spv", "basic_triangle.vert", gfx.VertexStage, true},
		{"basic_triangle.frag.spv", "basic_triangle.frag", gfx.FragmentStage, true},
		{"light.geom.spv", "light.geom", gfx.GeometryStage, true},
		{"cull.comp.spv", "cull.comp", gfx.ComputeStage, true},
		{"basic_triangle.vert", "", 0, false},
		{"too.many.dots.spv", "", 0, false},
		{"mesh.tesc.spv", "", 0, false},
		{".vert.spv", "", 0, false},
	}
	for _, c := range cases {
		tag, stage, ok := core.ParseShaderName(c.file)
		if ok != c.ok || tag != c.tag || (ok && stage != c.stage) {
			t.Errorf("ParseShaderName(%q) = %q, %s, %v", c.file, tag, stage, ok)
		}
	}
}

func checkTriangleBlobs(t *testing.T, blobs []gfx.ShaderBlob) {
	t.Helper()
	if len(blobs) != 2 {
		t.Fatal("expected two shaders, got", len(blobs))
	}
	stages := map[gfx.ShaderStage]bool{}
	for _, b := range blobs {
		stages[b.Stage] = true
		if b.EntryPoint() != "main" {
			t.Error("unexpected entry point", b.EntryPoint())
		}
		if b.Size() != 8 {
			t.Errorf("%s has %d bytes", b.Tag, b.Size())
		}
	}
	if !stages[gfx.VertexStage] || !stages[gfx.FragmentStage] {
		t.Error("missing stages:", stages)
	}
}

func TestDirectoryShaderLoader(t *testing.T) {
	blobs, err := core.DirectoryShaderLoader{Dir: "testdata/shaders"}.Load()
	if err != nil {
		t.Fatal(err)
	}
	checkTriangleBlobs(t, blobs)
}

func TestDirectoryShaderLoaderMissing(t *testing.T) {
	if _, err := (core.DirectoryShaderLoader{Dir: "testdata/none"}).Load(); err == nil {
		t.Error("missing directory must fail")
	}
}

func TestArchiveShaderLoader(t *testing.T) {
	builder, err := kar.NewBuilder(kar.Header{Author: "devblok", Version: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer builder.Close()

	for _, name := range []string{"triangle.vert.spv", "triangle.frag.spv", "notes.txt"} {
		data, err := os.ReadFile(filepath.Join("testdata/shaders", name))
		if err != nil {
			t.Fatal(err)
		}
		if err := builder.Add(name, bytes.NewReader(data)); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "shaders.kar")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := builder.WriteTo(f); err != nil {
		t.Fatal(err)
	}
	f.Close()

	blobs, err := core.ArchiveShaderLoader{Path: path}.Load()
	if err != nil {
		t.Fatal(err)
	}
	checkTriangleBlobs(t, blobs)
}

func TestBoxShaderLoader(t *testing.T) {
	blobs, err := core.BoxShaderLoader{Box: packr.NewBox("./testdata/shaders")}.Load()
	if err != nil {
		t.Fatal(err)
	}
	checkTriangleBlobs(t, blobs)
}

func TestNewShaderLoader(t *testing.T) {
	if _, ok := core.NewShaderLoader(core.BoxShaders).(core.BoxShaderLoader); !ok {
		t.Error("box source must load from the box")
	}
	if _, ok := core.NewShaderLoader("pack/shaders.kar").(core.ArchiveShaderLoader); !ok {
		t.Error(".kar source must load from an archive")
	}
	if _, ok := core.NewShaderLoader("shaders").(core.DirectoryShaderLoader); !ok {
		t.Error("other sources must load from a directory")
	}
}
