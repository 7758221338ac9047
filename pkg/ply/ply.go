// Package ply reads and writes a narrow binary PLY subset: ASCII header,
// little-endian body, triangle faces, per-vertex position with up to two
// UV layers and an optional RGB color.
package ply

import (
	"errors"
	"fmt"
)

// Codec errors.
var (
	ErrHeaderParse          = errors.New("malformed PLY header")
	ErrTruncatedStream      = errors.New("truncated PLY data")
	ErrUnsupportedFaceArity = errors.New("unsupported face arity")
	ErrIndexOutOfRange      = errors.New("face index out of range")
	ErrIncompleteMesh       = errors.New("mesh has no vertices")
)

// FaceArity is the only polygon size the format carries.
const FaceArity = 3

// faceRecordSize is the arity byte plus three uint32 indices.
const faceRecordSize = 1 + FaceArity*4

// LayoutFlags records which optional per-vertex layers a mesh carries.
// The flags are mesh-wide: every vertex has a layer or none does.
type LayoutFlags struct {
	UV0   bool
	UV1   bool
	Color bool
}

// Vertex is a single mesh vertex. UV0, UV1 and Color are only meaningful
// when the owning mesh's flags declare them.
type Vertex struct {
	Position [3]float32
	UV0      [2]float32
	UV1      [2]float32
	Color    [3]uint8
}

// Face is a triangle referencing three vertices by zero-based index.
type Face [FaceArity]uint32

// Mesh is the in-memory form of a PLY file.
type Mesh struct {
	Vertices []Vertex
	Faces    []Face
	Flags    LayoutFlags
}

// Validate checks the invariants the encoder relies on.
func (m *Mesh) Validate() error {
	if len(m.Vertices) == 0 {
		return ErrIncompleteMesh
	}
	return checkFaces(m.Faces, len(m.Vertices))
}

func checkFaces(faces []Face, vertexCount int) error {
	for i, f := range faces {
		for corner, idx := range f {
			if uint64(idx) >= uint64(vertexCount) {
				return fmt.Errorf("%w: face %d corner %d references vertex %d of %d",
					ErrIndexOutOfRange, i, corner, idx, vertexCount)
			}
		}
	}
	return nil
}
