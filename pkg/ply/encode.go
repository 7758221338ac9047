package ply

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Encoder writes meshes in the binary PLY subset.
type Encoder struct {
	// Log receives debug output. Nil disables logging.
	Log *zap.Logger
}

// Encode serializes m to a new byte slice.
func Encode(m *Mesh) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(EncodedSize(m))
	if err := (&Encoder{}).Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodedSize returns the exact byte length Encode produces for m.
func EncodedSize(m *Mesh) int {
	layout := ResolveLayout(m.Flags)
	return HeaderSize(m.Flags, len(m.Vertices), len(m.Faces)) +
		len(m.Vertices)*layout.Stride() +
		len(m.Faces)*faceRecordSize
}

// Encode validates m and writes it to w. Nothing is written when
// validation fails.
func (e *Encoder) Encode(w io.Writer, m *Mesh) error {
	if err := m.Validate(); err != nil {
		return err
	}
	log := e.logger()

	layout := ResolveLayout(m.Flags)
	log.Debug("encoding mesh",
		zap.Int("vertices", len(m.Vertices)),
		zap.Int("faces", len(m.Faces)),
		zap.Stringer("layout", layout))

	bw := bufio.NewWriter(w)
	if err := WriteHeader(bw, m.Flags, len(m.Vertices), len(m.Faces)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	debug := log.Core().Enabled(zap.DebugLevel)

	record := make([]byte, layout.Stride())
	for i := range m.Vertices {
		v := &m.Vertices[i]
		layout.putVertex(record, v)
		if _, err := bw.Write(record); err != nil {
			return fmt.Errorf("writing vertex %d: %w", i, err)
		}
		if debug {
			log.Debug("vertex", zap.Int("index", i),
				zap.Any("position", v.Position),
				zap.Any("uv0", v.UV0), zap.Any("uv1", v.UV1), zap.Any("color", v.Color))
		}
	}

	var face [faceRecordSize]byte
	face[0] = FaceArity
	for i, f := range m.Faces {
		putUint32(face[1:], f[0])
		putUint32(face[5:], f[1])
		putUint32(face[9:], f[2])
		if _, err := bw.Write(face[:]); err != nil {
			return fmt.Errorf("writing face %d: %w", i, err)
		}
		if debug {
			log.Debug("face", zap.Int("index", i), zap.Uint32s("vertices", f[:]))
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing: %w", err)
	}
	return nil
}

// EncodeFile writes m to path. The data goes to a temporary file in the
// same directory that is renamed over path only after a complete write, so
// a failed export never leaves a partial file behind.
func (e *Encoder) EncodeFile(path string, m *Mesh) (err error) {
	if err := m.Validate(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := e.Encode(tmp, m); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("setting mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}

	e.logger().Info("wrote PLY file", zap.String("path", path),
		zap.Int("vertices", len(m.Vertices)), zap.Int("faces", len(m.Faces)))
	return nil
}

// EncodeFile writes m to path with a default Encoder.
func EncodeFile(path string, m *Mesh) error {
	return (&Encoder{}).EncodeFile(path, m)
}

func (e *Encoder) logger() *zap.Logger {
	if e == nil || e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}
