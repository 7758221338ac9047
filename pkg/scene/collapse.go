package scene

import (
	"github.com/Fizz14/ply2uv/pkg/ply"
)

// Default UV layer names given to imported meshes.
const (
	UVLayer0Name = "UVMap"
	UVLayer1Name = "UVMap.001"
)

// VertexLoops indexes, for every vertex, the loops that reference it.
// Loops for vertex v are Loops[Offsets[v]:Offsets[v+1]] in ascending order.
type VertexLoops struct {
	Offsets []int
	Loops   []int
}

// IndexVertexLoops builds the vertex to loop index in one pass over the loops.
func IndexVertexLoops(m *EditMesh) VertexLoops {
	offsets := make([]int, len(m.Positions)+1)
	for _, l := range m.Loops {
		offsets[l.Vertex+1]++
	}
	for v := 1; v < len(offsets); v++ {
		offsets[v] += offsets[v-1]
	}

	next := make([]int, len(m.Positions))
	copy(next, offsets)
	loops := make([]int, len(m.Loops))
	for i, l := range m.Loops {
		loops[next[l.Vertex]] = i
		next[l.Vertex]++
	}
	return VertexLoops{Offsets: offsets, Loops: loops}
}

// Of returns the loops referencing vertex v.
func (vl VertexLoops) Of(v int) []int {
	return vl.Loops[vl.Offsets[v]:vl.Offsets[v+1]]
}

// first returns the lowest loop index for v, or -1 when v is unreferenced.
func (vl VertexLoops) first(v int) int {
	if vl.Offsets[v] == vl.Offsets[v+1] {
		return -1
	}
	return vl.Loops[vl.Offsets[v]]
}

// Collapse converts a corner-based mesh to the per-vertex PLY mesh.
//
// Each vertex takes its UVs and color from its lowest-index loop. Where a
// vertex sits on a UV seam its other corners' values are lost; the on-disk
// format has one UV per vertex per layer. Unreferenced vertices get zero
// UVs and white. Layers are written only if the mesh has them and the
// matching feature flag is set; at most two UV layers are used.
func Collapse(m *EditMesh, features ply.LayoutFlags) (*ply.Mesh, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	flags := ply.LayoutFlags{
		UV0:   features.UV0 && len(m.UVLayers) > 0,
		UV1:   features.UV1 && len(m.UVLayers) > 1,
		Color: features.Color && m.Colors != nil,
	}
	out := &ply.Mesh{
		Flags:    flags,
		Vertices: make([]ply.Vertex, len(m.Positions)),
		Faces:    make([]ply.Face, len(m.Triangles)),
	}

	index := IndexVertexLoops(m)
	for v := range out.Vertices {
		vert := &out.Vertices[v]
		vert.Position = m.Positions[v]
		if flags.Color {
			vert.Color = [3]uint8{255, 255, 255}
		}

		li := index.first(v)
		if li < 0 {
			continue
		}
		if flags.UV0 {
			vert.UV0 = m.UVLayers[0].Data[li]
		}
		if flags.UV1 {
			vert.UV1 = m.UVLayers[1].Data[li]
		}
		if flags.Color {
			c := m.Colors[li]
			vert.Color = [3]uint8{ply.ColorToByte(c[0]), ply.ColorToByte(c[1]), ply.ColorToByte(c[2])}
		}
	}

	for i, tri := range m.Triangles {
		out.Faces[i] = ply.Face{
			uint32(m.Loops[tri[0]].Vertex),
			uint32(m.Loops[tri[1]].Vertex),
			uint32(m.Loops[tri[2]].Vertex),
		}
	}
	return out, nil
}

// SeamVertices counts vertices whose loops disagree on UVs in any of the
// first two layers. These are the vertices Collapse loses data for.
func SeamVertices(m *EditMesh) int {
	index := IndexVertexLoops(m)
	layers := m.UVLayers
	if len(layers) > 2 {
		layers = layers[:2]
	}

	seams := 0
	for v := range m.Positions {
		loops := index.Of(v)
	check:
		for _, layer := range layers {
			for _, li := range loops[min(1, len(loops)):] {
				if layer.Data[li] != layer.Data[loops[0]] {
					seams++
					break check
				}
			}
		}
	}
	return seams
}

// Expand converts a PLY mesh to a corner-based mesh with one loop per
// triangle corner. Each vertex's UVs and color are copied to every corner
// that references it; colors get full alpha. m must be valid.
func Expand(m *ply.Mesh) *EditMesh {
	out := &EditMesh{
		Positions: make([][3]float32, len(m.Vertices)),
		Loops:     make([]Loop, 0, len(m.Faces)*3),
		Triangles: make([][3]int, len(m.Faces)),
	}
	for i, v := range m.Vertices {
		out.Positions[i] = v.Position
	}

	for i, f := range m.Faces {
		base := len(out.Loops)
		for _, vi := range f {
			out.Loops = append(out.Loops, Loop{Vertex: int(vi)})
		}
		out.Triangles[i] = [3]int{base, base + 1, base + 2}
	}

	broadcast := func(name string, uv func(v *ply.Vertex) [2]float32) {
		layer := UVLayer{Name: name, Data: make([][2]float32, len(out.Loops))}
		for li, l := range out.Loops {
			layer.Data[li] = uv(&m.Vertices[l.Vertex])
		}
		out.UVLayers = append(out.UVLayers, layer)
	}
	if m.Flags.UV0 {
		broadcast(UVLayer0Name, func(v *ply.Vertex) [2]float32 { return v.UV0 })
	}
	if m.Flags.UV1 {
		broadcast(UVLayer1Name, func(v *ply.Vertex) [2]float32 { return v.UV1 })
	}

	if m.Flags.Color {
		out.Colors = make([][4]float32, len(out.Loops))
		for li, l := range out.Loops {
			c := m.Vertices[l.Vertex].Color
			out.Colors[li] = [4]float32{ply.ColorToFloat(c[0]), ply.ColorToFloat(c[1]), ply.ColorToFloat(c[2]), 1}
		}
	}
	return out
}
