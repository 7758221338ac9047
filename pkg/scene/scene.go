// Package scene models the host side of an export or import: a
// corner-based editable mesh, the objects that hold it, and the
// conversion to and from the per-vertex PLY mesh.
package scene

import (
	"errors"
	"fmt"
	"sort"
)

// Scene errors.
var (
	ErrNoActiveMesh = errors.New("no active mesh")
	ErrObjectExists = errors.New("object already exists")
)

// Loop is one triangle corner. It references a vertex and carries the
// per-corner attributes stored in the mesh's layers at the same index.
type Loop struct {
	Vertex int
}

// UVLayer holds one texture coordinate per loop.
type UVLayer struct {
	Name string
	Data [][2]float32
}

// EditMesh is the host's editable mesh: shared vertex positions plus
// per-corner UV and color layers, triangulated.
type EditMesh struct {
	Positions [][3]float32
	Loops     []Loop
	// Triangles index into Loops, three corners each.
	Triangles [][3]int
	UVLayers  []UVLayer
	// Colors is RGBA per loop in [0,1]; nil when the mesh has no colors.
	Colors [][4]float32
}

// Validate checks that every index in the mesh resolves.
func (m *EditMesh) Validate() error {
	for i, l := range m.Loops {
		if l.Vertex < 0 || l.Vertex >= len(m.Positions) {
			return fmt.Errorf("loop %d references vertex %d of %d", i, l.Vertex, len(m.Positions))
		}
	}
	for i, tri := range m.Triangles {
		for _, li := range tri {
			if li < 0 || li >= len(m.Loops) {
				return fmt.Errorf("triangle %d references loop %d of %d", i, li, len(m.Loops))
			}
		}
	}
	for _, layer := range m.UVLayers {
		if len(layer.Data) != len(m.Loops) {
			return fmt.Errorf("uv layer %q has %d entries for %d loops", layer.Name, len(layer.Data), len(m.Loops))
		}
	}
	if m.Colors != nil && len(m.Colors) != len(m.Loops) {
		return fmt.Errorf("color layer has %d entries for %d loops", len(m.Colors), len(m.Loops))
	}
	return nil
}

// MeshSource yields the mesh an export should write.
type MeshSource interface {
	ActiveMesh() (*EditMesh, error)
}

// MeshSink materializes an imported mesh.
type MeshSink interface {
	AddMesh(name string, m *EditMesh) error
}

// Object is a named mesh in a scene.
type Object struct {
	Name string
	Mesh *EditMesh
}

// Scene is an in-memory MeshSource and MeshSink.
type Scene struct {
	objects map[string]*Object
	active  string
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{objects: make(map[string]*Object)}
}

// AddMesh adds an object and makes it active.
func (s *Scene) AddMesh(name string, m *EditMesh) error {
	if _, ok := s.objects[name]; ok {
		return fmt.Errorf("%w: %s", ErrObjectExists, name)
	}
	s.objects[name] = &Object{Name: name, Mesh: m}
	s.active = name
	return nil
}

// SetActive selects the object exports read from. An empty name clears
// the selection.
func (s *Scene) SetActive(name string) error {
	if name == "" {
		s.active = ""
		return nil
	}
	if _, ok := s.objects[name]; !ok {
		return fmt.Errorf("object not found: %s", name)
	}
	s.active = name
	return nil
}

// ActiveMesh returns the selected object's mesh.
func (s *Scene) ActiveMesh() (*EditMesh, error) {
	obj, ok := s.objects[s.active]
	if !ok || obj.Mesh == nil {
		return nil, ErrNoActiveMesh
	}
	return obj.Mesh, nil
}

// Object returns a named object, or nil.
func (s *Scene) Object(name string) *Object {
	return s.objects[name]
}

// Names lists object names in sorted order.
func (s *Scene) Names() []string {
	names := make([]string, 0, len(s.objects))
	for name := range s.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
