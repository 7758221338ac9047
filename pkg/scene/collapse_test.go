package scene

import (
	"math"
	"testing"

	"github.com/Fizz14/ply2uv/pkg/ply"
)

// seamQuad is two triangles sharing vertices 0 and 2. Loop 3 gives vertex 0
// a different UV0 than loop 0, as a UV seam would.
func seamQuad() *EditMesh {
	return &EditMesh{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Loops: []Loop{
			{Vertex: 0}, {Vertex: 1}, {Vertex: 2},
			{Vertex: 0}, {Vertex: 2}, {Vertex: 3},
		},
		Triangles: [][3]int{{0, 1, 2}, {3, 4, 5}},
		UVLayers: []UVLayer{
			{Name: "UVMap", Data: [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0.5, 0.5}, {1, 1}, {0, 1}}},
			{Name: "Lightmap", Data: [][2]float32{{0.1, 0.1}, {0.2, 0.1}, {0.2, 0.2}, {0.1, 0.1}, {0.2, 0.2}, {0.1, 0.2}}},
		},
		Colors: [][4]float32{
			{1, 0, 0, 1}, {0, 1, 0, 1}, {0, 0, 1, 1},
			{0, 0, 0, 1}, {0, 0, 1, 1}, {1.5, -0.2, 0.5, 1},
		},
	}
}

func TestIndexVertexLoops(t *testing.T) {
	index := IndexVertexLoops(seamQuad())

	want := map[int][]int{0: {0, 3}, 1: {1}, 2: {2, 4}, 3: {5}}
	for v, loops := range want {
		got := index.Of(v)
		if len(got) != len(loops) {
			t.Errorf("vertex %d: loops %v, want %v", v, got, loops)
			continue
		}
		for i := range loops {
			if got[i] != loops[i] {
				t.Errorf("vertex %d: loops %v, want %v", v, got, loops)
			}
		}
	}
}

func TestCollapse_LowestLoopWins(t *testing.T) {
	mesh, err := Collapse(seamQuad(), ply.LayoutFlags{UV0: true, UV1: true, Color: true})
	if err != nil {
		t.Fatalf("Collapse failed: %v", err)
	}

	if mesh.Flags != (ply.LayoutFlags{UV0: true, UV1: true, Color: true}) {
		t.Errorf("flags = %+v", mesh.Flags)
	}
	// Vertex 0 is referenced by loops 0 and 3; loop 0 wins.
	if mesh.Vertices[0].UV0 != [2]float32{0, 0} {
		t.Errorf("vertex 0 UV0 = %v, want loop 0's value", mesh.Vertices[0].UV0)
	}
	if mesh.Vertices[0].Color != [3]uint8{255, 0, 0} {
		t.Errorf("vertex 0 color = %v, want loop 0's value", mesh.Vertices[0].Color)
	}
	if mesh.Vertices[3].UV1 != [2]float32{0.1, 0.2} {
		t.Errorf("vertex 3 UV1 = %v", mesh.Vertices[3].UV1)
	}
	if mesh.Faces[1] != (ply.Face{0, 2, 3}) {
		t.Errorf("face 1 = %v", mesh.Faces[1])
	}
}

func TestCollapse_ClampsColor(t *testing.T) {
	mesh, err := Collapse(seamQuad(), ply.LayoutFlags{Color: true})
	if err != nil {
		t.Fatalf("Collapse failed: %v", err)
	}
	// Loop 5 carries (1.5, -0.2, 0.5).
	if got := mesh.Vertices[3].Color; got != [3]uint8{255, 0, 128} {
		t.Errorf("vertex 3 color = %v, want [255 0 128]", got)
	}
}

func TestCollapse_Features(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(m *EditMesh)
		features ply.LayoutFlags
		want     ply.LayoutFlags
	}{
		{"all", nil, ply.LayoutFlags{UV0: true, UV1: true, Color: true}, ply.LayoutFlags{UV0: true, UV1: true, Color: true}},
		{"disabled", nil, ply.LayoutFlags{}, ply.LayoutFlags{}},
		{"one uv layer", func(m *EditMesh) { m.UVLayers = m.UVLayers[:1] },
			ply.LayoutFlags{UV0: true, UV1: true, Color: true}, ply.LayoutFlags{UV0: true, Color: true}},
		{"no layers", func(m *EditMesh) { m.UVLayers = nil; m.Colors = nil },
			ply.LayoutFlags{UV0: true, UV1: true, Color: true}, ply.LayoutFlags{}},
		{"only second uv", nil, ply.LayoutFlags{UV1: true}, ply.LayoutFlags{UV1: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := seamQuad()
			if tt.mutate != nil {
				tt.mutate(m)
			}
			mesh, err := Collapse(m, tt.features)
			if err != nil {
				t.Fatalf("Collapse failed: %v", err)
			}
			if mesh.Flags != tt.want {
				t.Errorf("flags = %+v, want %+v", mesh.Flags, tt.want)
			}
		})
	}
}

func TestCollapse_UnreferencedVertex(t *testing.T) {
	m := seamQuad()
	m.Positions = append(m.Positions, [3]float32{5, 5, 5})

	mesh, err := Collapse(m, ply.LayoutFlags{UV0: true, Color: true})
	if err != nil {
		t.Fatalf("Collapse failed: %v", err)
	}
	v := mesh.Vertices[4]
	if v.UV0 != ([2]float32{}) || v.Color != [3]uint8{255, 255, 255} {
		t.Errorf("unreferenced vertex = %+v", v)
	}
}

func TestCollapse_Invalid(t *testing.T) {
	m := seamQuad()
	m.Loops[2].Vertex = 40
	if _, err := Collapse(m, ply.LayoutFlags{}); err == nil {
		t.Error("expected error for invalid mesh")
	}
}

func TestSeamVertices(t *testing.T) {
	if n := SeamVertices(seamQuad()); n != 1 {
		t.Errorf("SeamVertices = %d, want 1", n)
	}
	m := seamQuad()
	m.UVLayers[0].Data[3] = [2]float32{0, 0}
	if n := SeamVertices(m); n != 0 {
		t.Errorf("SeamVertices after welding = %d, want 0", n)
	}
}

func TestExpand_Broadcast(t *testing.T) {
	src := &ply.Mesh{
		Flags: ply.LayoutFlags{UV0: true, UV1: true, Color: true},
		Vertices: []ply.Vertex{
			{Position: [3]float32{0, 0, 0}, UV0: [2]float32{0.1, 0.2}, UV1: [2]float32{0.3, 0.4}, Color: [3]uint8{255, 0, 51}},
			{Position: [3]float32{1, 0, 0}, UV0: [2]float32{0.5, 0.6}},
			{Position: [3]float32{0, 1, 0}},
			{Position: [3]float32{1, 1, 0}},
		},
		Faces: []ply.Face{{0, 1, 2}, {2, 1, 3}, {3, 0, 2}},
	}

	m := Expand(src)
	if len(m.Loops) != 9 || len(m.Triangles) != 3 {
		t.Fatalf("got %d loops, %d triangles", len(m.Loops), len(m.Triangles))
	}
	if len(m.UVLayers) != 2 || m.UVLayers[0].Name != UVLayer0Name || m.UVLayers[1].Name != UVLayer1Name {
		t.Fatalf("uv layers = %+v", m.UVLayers)
	}
	for li, l := range m.Loops {
		v := src.Vertices[l.Vertex]
		if m.UVLayers[0].Data[li] != v.UV0 || m.UVLayers[1].Data[li] != v.UV1 {
			t.Errorf("loop %d: uvs not broadcast from vertex %d", li, l.Vertex)
		}
	}
	// Vertex 0 appears as loop 0 and loop 7.
	c := m.Colors[7]
	if c[0] != 1 || c[1] != 0 || math.Abs(float64(c[2])-0.2) > 1e-6 || c[3] != 1 {
		t.Errorf("loop 7 color = %v", c)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("expanded mesh invalid: %v", err)
	}
}

func TestExpand_NoLayers(t *testing.T) {
	m := Expand(&ply.Mesh{Vertices: make([]ply.Vertex, 3), Faces: []ply.Face{{0, 1, 2}}})
	if m.UVLayers != nil || m.Colors != nil {
		t.Errorf("expected no layers, got %d uv layers, colors=%v", len(m.UVLayers), m.Colors != nil)
	}
}

func TestRoundTrip_ThroughPLY(t *testing.T) {
	features := ply.LayoutFlags{UV0: true, UV1: true, Color: true}
	first, err := Collapse(seamQuad(), features)
	if err != nil {
		t.Fatalf("Collapse failed: %v", err)
	}
	data, err := ply.Encode(first)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := ply.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	// Collapsing the broadcast mesh again is lossless: no seams remain.
	expanded := Expand(decoded)
	if n := SeamVertices(expanded); n != 0 {
		t.Errorf("expanded mesh has %d seam vertices", n)
	}
	second, err := Collapse(expanded, features)
	if err != nil {
		t.Fatalf("second Collapse failed: %v", err)
	}
	for i := range first.Vertices {
		if second.Vertices[i] != first.Vertices[i] {
			t.Errorf("vertex %d: %+v != %+v", i, second.Vertices[i], first.Vertices[i])
		}
	}
	for i := range first.Faces {
		if second.Faces[i] != first.Faces[i] {
			t.Errorf("face %d: %v != %v", i, second.Faces[i], first.Faces[i])
		}
	}
}
