// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model

import (
	"encoding/xml"
	"math"
	"os"
	"strings"

	"github.com/devblok/frametech/utility/collada"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// DefaultColor is given to vertices of meshes without normals
var DefaultColor = glm.Vec3{1, 1, 1}

// LoadCollada reads a mesh from a COLLADA file, see ImportCollada.
func LoadCollada(path string) (Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Mesh{}, err
	}
	mesh, err := ImportCollada(data)
	return mesh, errors.Wrap(err, path)
}

// ImportCollada converts the triangles of the first geometry of a COLLADA
// document into a Mesh. Positions are projected onto the XY plane and
// vertices are coloured by the absolute value of their normal, or
// DefaultColor when the document has no normals. Corners sharing both
// position and normal share a vertex.
func ImportCollada(fileContents []byte) (Mesh, error) {
	var doc collada.Collada
	if err := xml.Unmarshal(fileContents, &doc); err != nil {
		return Mesh{}, errors.Wrap(err, "decoding collada")
	}
	if len(doc.Geometries) == 0 {
		return Mesh{}, errors.New("collada document has no geometry")
	}

	mesh := doc.Geometries[0].Mesh
	triangles := mesh.Triangles
	stride := triangles.Stride()
	if stride == 0 || len(triangles.Index)%(stride*3) != 0 {
		return Mesh{}, errors.Errorf("malformed triangle list of %d indices", len(triangles.Index))
	}

	vertexInput, ok := triangles.Input("VERTEX")
	if !ok {
		return Mesh{}, errors.New("triangles have no VERTEX input")
	}
	positions, err := positionSource(mesh)
	if err != nil {
		return Mesh{}, err
	}

	var normals *collada.Source
	normalInput, hasNormals := triangles.Input("NORMAL")
	if hasNormals {
		src, ok := mesh.FindSource(normalInput.Source)
		if !ok {
			return Mesh{}, errors.Errorf("normal source %s not found", normalInput.Source)
		}
		normals = &src
	}

	type corner struct{ position, normal int }
	seen := make(map[corner]Index)

	var out Mesh
	for base := 0; base < len(triangles.Index); base += stride {
		c := corner{position: triangles.Index[base+int(vertexInput.Offset)], normal: -1}
		if normals != nil {
			c.normal = triangles.Index[base+int(normalInput.Offset)]
		}
		if idx, ok := seen[c]; ok {
			out.Indices = append(out.Indices, idx)
			continue
		}

		pos, ok := vec3At(positions.Floats.Data, c.position)
		if !ok {
			return Mesh{}, errors.Errorf("position %d out of range", c.position)
		}
		color := DefaultColor
		if normals != nil {
			n, ok := vec3At(normals.Floats.Data, c.normal)
			if !ok {
				return Mesh{}, errors.Errorf("normal %d out of range", c.normal)
			}
			color = absVec3(n)
		}

		if len(out.Vertices) > math.MaxUint16 {
			return Mesh{}, errors.New("mesh has too many vertices for 16 bit indices")
		}
		idx := Index(len(out.Vertices))
		out.Vertices = append(out.Vertices, Vertex{Pos: pos.Vec2(), Color: color})
		out.Indices = append(out.Indices, idx)
		seen[c] = idx
	}
	return out, nil
}

// positionSource follows the POSITION input of <vertices>, falling back
// to the source whose id ends with -positions.
func positionSource(mesh collada.Mesh) (collada.Source, error) {
	if in, ok := mesh.Vertices.Input("POSITION"); ok {
		if src, ok := mesh.FindSource(in.Source); ok {
			return src, nil
		}
	}
	for _, s := range mesh.Source {
		if strings.HasSuffix(s.ID, "-positions") {
			return s, nil
		}
	}
	return collada.Source{}, errors.New("positions source not found")
}

func vec3At(data []float32, i int) (glm.Vec3, bool) {
	if i < 0 || 3*i+2 >= len(data) {
		return glm.Vec3{}, false
	}
	return glm.Vec3{data[3*i], data[3*i+1], data[3*i+2]}, true
}

func absVec3(v glm.Vec3) glm.Vec3 {
	return glm.Vec3{
		float32(math.Abs(float64(v[0]))),
		float32(math.Abs(float64(v[1]))),
		float32(math.Abs(float64(v[2]))),
	}
}
