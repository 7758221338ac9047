package scene

import (
	"errors"
	"testing"
)

func TestScene_ActiveMesh(t *testing.T) {
	s := New()

	if _, err := s.ActiveMesh(); !errors.Is(err, ErrNoActiveMesh) {
		t.Errorf("empty scene: expected ErrNoActiveMesh, got %v", err)
	}

	if err := s.AddMesh("quad", seamQuad()); err != nil {
		t.Fatalf("AddMesh failed: %v", err)
	}
	if _, err := s.ActiveMesh(); err != nil {
		t.Errorf("ActiveMesh after add: %v", err)
	}

	if err := s.AddMesh("quad", seamQuad()); !errors.Is(err, ErrObjectExists) {
		t.Errorf("duplicate add: expected ErrObjectExists, got %v", err)
	}

	s.SetActive("")
	if _, err := s.ActiveMesh(); !errors.Is(err, ErrNoActiveMesh) {
		t.Errorf("cleared selection: expected ErrNoActiveMesh, got %v", err)
	}
	if err := s.SetActive("missing"); err == nil {
		t.Error("expected error selecting unknown object")
	}
	if err := s.SetActive("quad"); err != nil {
		t.Errorf("SetActive: %v", err)
	}

	names := s.Names()
	if len(names) != 1 || names[0] != "quad" {
		t.Errorf("Names() = %v", names)
	}
	if s.Object("quad") == nil {
		t.Error("Object(quad) returned nil")
	}
}

func TestEditMesh_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *EditMesh)
	}{
		{"loop vertex", func(m *EditMesh) { m.Loops[0].Vertex = 9 }},
		{"negative loop vertex", func(m *EditMesh) { m.Loops[0].Vertex = -1 }},
		{"triangle loop", func(m *EditMesh) { m.Triangles[1][2] = 6 }},
		{"short uv layer", func(m *EditMesh) { m.UVLayers[1].Data = m.UVLayers[1].Data[:2] }},
		{"short colors", func(m *EditMesh) { m.Colors = m.Colors[:1] }},
	}

	if err := seamQuad().Validate(); err != nil {
		t.Fatalf("valid mesh: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := seamQuad()
			tt.mutate(m)
			if err := m.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
