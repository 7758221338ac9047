package scene

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrInvalidOBJ reports OBJ input the reader cannot use.
var ErrInvalidOBJ = errors.New("invalid OBJ data")

// maxOBJLine bounds a single OBJ line. Large polygons put every corner on
// one "f" line.
const maxOBJLine = 16 << 20

// ReadOBJ parses a Wavefront OBJ stream into an EditMesh. Polygons are
// fan-triangulated and every triangle corner becomes its own loop. Texture
// coordinates fill the first UV layer; the common "v x y z r g b" extension
// fills the color layer. Normals, groups and materials are ignored.
//
// The second UV layer uses two extension statements other readers skip:
// "vt1 u v" declares a coordinate, and "ft1 i j k ..." right after an "f"
// line gives the vt1 index of each of that face's corners. When a file has
// only the second layer, the first is filled with zeros so layer order holds.
func ReadOBJ(r io.Reader) (*EditMesh, error) {
	m := &EditMesh{}
	var (
		texCoords    [][2]float32
		texCoords1   [][2]float32
		vertexColors [][3]float32
		hasColor     bool
		uvs          [][2]float32
		uvs1         [][2]float32
		hasUV        bool
		hasUV1       bool
		// fan maps each loop of the last face to its corner number.
		fan         []int
		lastCorners int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxOBJLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		faceCorners := lastCorners
		lastCorners = 0

		switch fields[0] {
		case "v":
			if len(fields) != 4 && len(fields) != 7 {
				return nil, fmt.Errorf("%w: line %d: vertex needs 3 or 6 values", ErrInvalidOBJ, lineNo)
			}
			vals, err := parseFloats(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, lineNo, err)
			}
			m.Positions = append(m.Positions, [3]float32{vals[0], vals[1], vals[2]})
			color := [3]float32{1, 1, 1}
			if len(vals) == 6 {
				color = [3]float32{vals[3], vals[4], vals[5]}
				hasColor = true
			}
			vertexColors = append(vertexColors, color)

		case "vt":
			if len(fields) < 3 {
				return nil, fmt.Errorf("%w: line %d: texture coordinate needs 2 values", ErrInvalidOBJ, lineNo)
			}
			vals, err := parseFloats(fields[1:3])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, lineNo, err)
			}
			texCoords = append(texCoords, [2]float32{vals[0], vals[1]})

		case "vt1":
			if len(fields) < 3 {
				return nil, fmt.Errorf("%w: line %d: texture coordinate needs 2 values", ErrInvalidOBJ, lineNo)
			}
			vals, err := parseFloats(fields[1:3])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, lineNo, err)
			}
			texCoords1 = append(texCoords1, [2]float32{vals[0], vals[1]})

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: face needs at least 3 corners", ErrInvalidOBJ, lineNo)
			}
			corners := make([]Loop, len(fields)-1)
			cornerUVs := make([][2]float32, len(corners))
			for i, arg := range fields[1:] {
				vi, ti, err := parseCorner(arg, len(m.Positions), len(texCoords))
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, lineNo, err)
				}
				corners[i] = Loop{Vertex: vi}
				if ti >= 0 {
					cornerUVs[i] = texCoords[ti]
					hasUV = true
				}
			}
			fan = fan[:0]
			for i := 1; i < len(corners)-1; i++ {
				base := len(m.Loops)
				for _, c := range []int{0, i, i + 1} {
					m.Loops = append(m.Loops, corners[c])
					uvs = append(uvs, cornerUVs[c])
					uvs1 = append(uvs1, [2]float32{})
					fan = append(fan, c)
				}
				m.Triangles = append(m.Triangles, [3]int{base, base + 1, base + 2})
			}
			lastCorners = len(corners)

		case "ft1":
			if faceCorners == 0 {
				return nil, fmt.Errorf("%w: line %d: ft1 must follow an f line", ErrInvalidOBJ, lineNo)
			}
			if len(fields)-1 != faceCorners {
				return nil, fmt.Errorf("%w: line %d: ft1 has %d indices for %d corners", ErrInvalidOBJ, lineNo, len(fields)-1, faceCorners)
			}
			cornerUVs := make([][2]float32, faceCorners)
			for i, arg := range fields[1:] {
				ti, err := fixIndex(arg, len(texCoords1))
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: vt1 index %q: %v", ErrInvalidOBJ, lineNo, arg, err)
				}
				cornerUVs[i] = texCoords1[ti]
			}
			first := len(m.Loops) - len(fan)
			for i, c := range fan {
				uvs1[first+i] = cornerUVs[c]
			}
			hasUV1 = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidOBJ, lineNo+1, err)
	}

	switch {
	case hasUV1:
		m.UVLayers = []UVLayer{{Name: UVLayer0Name, Data: uvs}, {Name: UVLayer1Name, Data: uvs1}}
	case hasUV:
		m.UVLayers = []UVLayer{{Name: UVLayer0Name, Data: uvs}}
	}
	if hasColor {
		m.Colors = make([][4]float32, len(m.Loops))
		for li, l := range m.Loops {
			c := vertexColors[l.Vertex]
			m.Colors[li] = [4]float32{c[0], c[1], c[2], 1}
		}
	}
	return m, nil
}

// LoadOBJ reads an OBJ file from disk.
func LoadOBJ(path string) (*EditMesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening OBJ file: %w", err)
	}
	defer f.Close()
	return ReadOBJ(f)
}

// WriteOBJ writes m as OBJ. The first UV layer becomes one vt per loop and
// the second one vt1 per loop, referenced by an ft1 line after each face.
// Colors are written per vertex from each vertex's lowest loop. Layers past
// the second are not written.
func WriteOBJ(w io.Writer, name string, m *EditMesh) error {
	if err := m.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# ply2uv\n")
	if name != "" {
		fmt.Fprintf(bw, "o %s\n", name)
	}

	index := IndexVertexLoops(m)
	for v, p := range m.Positions {
		if m.Colors == nil {
			fmt.Fprintf(bw, "v %s %s %s\n", ff(p[0]), ff(p[1]), ff(p[2]))
			continue
		}
		c := [4]float32{1, 1, 1, 1}
		if li := index.first(v); li >= 0 {
			c = m.Colors[li]
		}
		fmt.Fprintf(bw, "v %s %s %s %s %s %s\n", ff(p[0]), ff(p[1]), ff(p[2]), ff(c[0]), ff(c[1]), ff(c[2]))
	}

	hasUV := len(m.UVLayers) > 0
	if hasUV {
		for _, uv := range m.UVLayers[0].Data {
			fmt.Fprintf(bw, "vt %s %s\n", ff(uv[0]), ff(uv[1]))
		}
	}

	hasUV1 := len(m.UVLayers) > 1
	if hasUV1 {
		for _, uv := range m.UVLayers[1].Data {
			fmt.Fprintf(bw, "vt1 %s %s\n", ff(uv[0]), ff(uv[1]))
		}
	}

	for _, tri := range m.Triangles {
		bw.WriteString("f")
		for _, li := range tri {
			if hasUV {
				fmt.Fprintf(bw, " %d/%d", m.Loops[li].Vertex+1, li+1)
			} else {
				fmt.Fprintf(bw, " %d", m.Loops[li].Vertex+1)
			}
		}
		bw.WriteString("\n")
		if hasUV1 {
			fmt.Fprintf(bw, "ft1 %d %d %d\n", tri[0]+1, tri[1]+1, tri[2]+1)
		}
	}
	return bw.Flush()
}

// OBJSource exports the mesh stored in an OBJ file.
type OBJSource struct {
	Path string
}

// ActiveMesh loads the file. A file with no vertices has no mesh to export.
func (s OBJSource) ActiveMesh() (*EditMesh, error) {
	m, err := LoadOBJ(s.Path)
	if err != nil {
		return nil, err
	}
	if len(m.Positions) == 0 {
		return nil, fmt.Errorf("%w: %s has no vertices", ErrNoActiveMesh, s.Path)
	}
	return m, nil
}

// OBJSink writes an imported mesh to an OBJ file.
type OBJSink struct {
	Path string
}

// AddMesh writes m to the sink's path, replacing it only on success.
func (s OBJSink) AddMesh(name string, m *EditMesh) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := WriteOBJ(tmp, name, m); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}

// parseCorner resolves one "v", "v/vt", "v//vn" or "v/vt/vn" face entry
// to zero-based vertex and texture indices; ti is -1 when absent.
func parseCorner(s string, numVerts, numTex int) (vi, ti int, err error) {
	parts := strings.Split(s, "/")
	vi, err = fixIndex(parts[0], numVerts)
	if err != nil {
		return 0, 0, fmt.Errorf("vertex index %q: %w", parts[0], err)
	}
	ti = -1
	if len(parts) > 1 && parts[1] != "" {
		ti, err = fixIndex(parts[1], numTex)
		if err != nil {
			return 0, 0, fmt.Errorf("texture index %q: %w", parts[1], err)
		}
	}
	return vi, ti, nil
}

// fixIndex converts a 1-based or negative (relative) OBJ index to zero-based.
func fixIndex(value string, length int) (int, error) {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	idx := parsed - 1
	if parsed < 0 {
		idx = length + parsed
	}
	if parsed == 0 || idx < 0 || idx >= length {
		return 0, fmt.Errorf("out of range (have %d)", length)
	}
	return idx, nil
}

func parseFloats(fields []string) ([]float32, error) {
	vals := make([]float32, len(fields))
	for i, s := range fields {
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, err
		}
		vals[i] = float32(f)
	}
	return vals, nil
}

func ff(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
