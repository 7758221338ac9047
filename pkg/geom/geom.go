// Package geom computes summary geometry for PLY meshes.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Fizz14/ply2uv/pkg/ply"
)

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min, Max r3.Vec
}

// Size returns the box extent along each axis.
func (b Bounds) Size() r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// Center returns the midpoint of the box.
func (b Bounds) Center() r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// Stats summarizes a mesh.
type Stats struct {
	Vertices    int
	Faces       int
	Bounds      Bounds
	SurfaceArea float64
	// Degenerate counts zero-area triangles, including ones that repeat a vertex.
	Degenerate int
	// Unreferenced counts vertices no face uses.
	Unreferenced int
}

func vec(p [3]float32) r3.Vec {
	return r3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
}

// MeshBounds returns the bounding box of the mesh's vertices. An empty
// mesh has a zero box.
func MeshBounds(m *ply.Mesh) Bounds {
	if len(m.Vertices) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: vec(m.Vertices[0].Position), Max: vec(m.Vertices[0].Position)}
	for _, v := range m.Vertices[1:] {
		p := vec(v.Position)
		b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
		b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	}
	return b
}

// TriangleArea returns the area of face f.
func TriangleArea(m *ply.Mesh, f ply.Face) float64 {
	a := vec(m.Vertices[f[0]].Position)
	e1 := r3.Sub(vec(m.Vertices[f[1]].Position), a)
	e2 := r3.Sub(vec(m.Vertices[f[2]].Position), a)
	return 0.5 * r3.Norm(r3.Cross(e1, e2))
}

// Compute gathers Stats for a validated mesh.
func Compute(m *ply.Mesh) Stats {
	s := Stats{
		Vertices: len(m.Vertices),
		Faces:    len(m.Faces),
		Bounds:   MeshBounds(m),
	}

	used := make([]bool, len(m.Vertices))
	for _, f := range m.Faces {
		for _, vi := range f {
			used[vi] = true
		}
		area := TriangleArea(m, f)
		if area == 0 {
			s.Degenerate++
		}
		s.SurfaceArea += area
	}
	for _, u := range used {
		if !u {
			s.Unreferenced++
		}
	}
	return s
}
