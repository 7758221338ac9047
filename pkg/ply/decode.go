package ply

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"go.uber.org/zap"
)

// Decoder reads meshes in the binary PLY subset.
type Decoder struct {
	// Log receives debug output. Nil disables logging.
	Log *zap.Logger
}

// Decode parses a PLY file from raw bytes.
func Decode(data []byte) (*Mesh, error) {
	return (&Decoder{}).Decode(bytes.NewReader(data))
}

// DecodeFile parses a PLY file from disk.
func DecodeFile(path string) (*Mesh, error) {
	return (&Decoder{}).DecodeFile(path)
}

// DecodeFile parses a PLY file from disk.
func (d *Decoder) DecodeFile(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PLY file: %w", err)
	}
	defer f.Close()

	m, err := d.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Decode reads a header and the vertex and face blocks it declares.
// Block boundaries come from the header counts alone.
func (d *Decoder) Decode(r io.Reader) (*Mesh, error) {
	br := bufio.NewReader(r)
	log := d.logger()

	h, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}
	layout, err := h.Layout()
	if err != nil {
		return nil, err
	}
	log.Debug("parsed header",
		zap.Int("vertices", h.VertexCount),
		zap.Int("faces", h.FaceCount),
		zap.Stringer("layout", layout))

	m := &Mesh{Flags: layout.Flags}

	stride := layout.Stride()
	block, err := readBlock(br, h.VertexCount, stride, "vertex")
	if err != nil {
		return nil, err
	}
	m.Vertices = make([]Vertex, h.VertexCount)
	for i := range m.Vertices {
		m.Vertices[i] = layout.vertexAt(block[i*stride:])
	}

	block, err = readBlock(br, h.FaceCount, faceRecordSize, "face")
	if err != nil {
		return nil, err
	}
	m.Faces = make([]Face, h.FaceCount)
	for i := range m.Faces {
		rec := block[i*faceRecordSize:]
		if rec[0] != FaceArity {
			return nil, fmt.Errorf("%w: face %d has %d vertices", ErrUnsupportedFaceArity, i, rec[0])
		}
		m.Faces[i] = Face{uint32At(rec[1:]), uint32At(rec[5:]), uint32At(rec[9:])}
	}
	if err := checkFaces(m.Faces, len(m.Vertices)); err != nil {
		return nil, err
	}

	if n, _ := br.Discard(1); n > 0 {
		log.Debug("ignoring trailing bytes after face block")
	}
	return m, nil
}

// readBlock reads count fixed-size records in one call.
func readBlock(r io.Reader, count, size int, name string) ([]byte, error) {
	if count > math.MaxInt/size {
		return nil, fmt.Errorf("%w: %s count %d exceeds any stream", ErrTruncatedStream, name, count)
	}
	total := int64(count * size)
	// The buffer grows with the bytes actually present, not the declared count.
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, r, total)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s block has %d of %d bytes", ErrTruncatedStream, name, n, total)
		}
		return nil, fmt.Errorf("reading %s block: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (d *Decoder) logger() *zap.Logger {
	if d == nil || d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}
