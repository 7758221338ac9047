// Package stl converts PLY meshes to and from binary STL, optionally
// decimating them on the way out.
package stl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fogleman/simplify"

	"github.com/Fizz14/ply2uv/pkg/ply"
)

// ErrBadRatio is returned for decimation ratios outside (0, 1].
var ErrBadRatio = errors.New("decimation ratio must be in (0, 1]")

// ToMesh converts a PLY mesh to a triangle soup. UVs and colors have no
// STL representation and are dropped.
func ToMesh(m *ply.Mesh) (*simplify.Mesh, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	triangles := make([]*simplify.Triangle, len(m.Faces))
	for i, f := range m.Faces {
		triangles[i] = simplify.NewTriangle(
			vector(m.Vertices[f[0]].Position),
			vector(m.Vertices[f[1]].Position),
			vector(m.Vertices[f[2]].Position))
	}
	return simplify.NewMesh(triangles), nil
}

// FromMesh welds a triangle soup back into an indexed PLY mesh with no
// optional layers. Vertices with identical positions are merged.
func FromMesh(sm *simplify.Mesh) *ply.Mesh {
	m := &ply.Mesh{Faces: make([]ply.Face, 0, len(sm.Triangles))}
	index := make(map[[3]float32]uint32)

	weld := func(v simplify.Vector) uint32 {
		p := [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
		idx, ok := index[p]
		if !ok {
			idx = uint32(len(m.Vertices))
			m.Vertices = append(m.Vertices, ply.Vertex{Position: p})
			index[p] = idx
		}
		return idx
	}
	for _, t := range sm.Triangles {
		m.Faces = append(m.Faces, ply.Face{weld(t.V1), weld(t.V2), weld(t.V3)})
	}
	return m
}

// Decimate reduces the triangle count to roughly ratio times the input
// using quadric error simplification. A ratio of 1 returns the mesh as is.
func Decimate(sm *simplify.Mesh, ratio float64) (*simplify.Mesh, error) {
	if !(ratio > 0 && ratio <= 1) {
		return nil, fmt.Errorf("%w: %v", ErrBadRatio, ratio)
	}
	if ratio == 1 {
		return sm, nil
	}
	return sm.Simplify(ratio), nil
}

// WriteFile writes m as binary STL, decimated by ratio. The file is
// written to a unique temporary name and renamed into place.
func WriteFile(path string, m *ply.Mesh, ratio float64) (n int, err error) {
	sm, err := ToMesh(m)
	if err != nil {
		return 0, err
	}
	if sm, err = Decimate(sm, ratio); err != nil {
		return 0, err
	}

	// SaveBinarySTL opens by name, so the temp file only reserves one.
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	name := tmp.Name()
	tmp.Close()
	defer func() {
		if err != nil {
			os.Remove(name)
		}
	}()

	if err := sm.SaveBinarySTL(name); err != nil {
		return 0, fmt.Errorf("writing STL: %w", err)
	}
	if err := os.Chmod(name, 0644); err != nil {
		return 0, fmt.Errorf("setting mode: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		return 0, fmt.Errorf("renaming into place: %w", err)
	}
	return len(sm.Triangles), nil
}

// ReadFile loads a binary STL file as a PLY mesh.
func ReadFile(path string) (*ply.Mesh, error) {
	sm, err := simplify.LoadBinarySTL(path)
	if err != nil {
		return nil, fmt.Errorf("reading STL: %w", err)
	}
	return FromMesh(sm), nil
}

func vector(p [3]float32) simplify.Vector {
	return simplify.Vector{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
}
