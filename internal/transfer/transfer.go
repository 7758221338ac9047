// Package transfer implements the export and import commands: it moves a
// mesh between a host scene and a PLY file and reports how the command
// ended.
package transfer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Fizz14/ply2uv/pkg/ply"
	"github.com/Fizz14/ply2uv/pkg/scene"
)

// ErrNoUVLayer is returned when an export requires a UV layer and the
// mesh has none.
var ErrNoUVLayer = errors.New("mesh needs at least one UV layer")

// Status is the outcome reported to the host.
type Status int

const (
	StatusFinished  Status = iota // Command completed
	StatusCancelled               // Command stopped; see the returned error
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusFinished:
		return "FINISHED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Recoverable reports whether err is a handled cancellation rather than a
// failure: nothing to export, or a mesh the configuration refuses.
func Recoverable(err error) bool {
	return errors.Is(err, scene.ErrNoActiveMesh) || errors.Is(err, ErrNoUVLayer)
}

// ExportOptions controls an export.
type ExportOptions struct {
	// Features limits which optional layers are written.
	Features ply.LayoutFlags
	// RequireUV cancels the export when the mesh has no UV layer.
	RequireUV bool
	// Log receives progress and codec debug output. Nil disables logging.
	Log *zap.Logger
}

// Export writes the source's active mesh to path. Any error leaves no
// file at path and is returned alongside StatusCancelled.
func Export(src scene.MeshSource, path string, opts ExportOptions) (Status, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	em, err := src.ActiveMesh()
	if err != nil {
		return cancel(log, "export", err)
	}
	if opts.RequireUV && len(em.UVLayers) == 0 {
		return cancel(log, "export", ErrNoUVLayer)
	}

	mesh, err := scene.Collapse(em, opts.Features)
	if err != nil {
		return cancel(log, "export", err)
	}
	if seams := scene.SeamVertices(em); seams > 0 && (mesh.Flags.UV0 || mesh.Flags.UV1) {
		log.Warn("UV seams collapsed to one value per vertex",
			zap.Int("vertices", seams))
	}

	enc := &ply.Encoder{Log: log.Named("ply")}
	if err := enc.EncodeFile(path, mesh); err != nil {
		return cancel(log, "export", err)
	}

	log.Info("export finished",
		zap.String("path", path),
		zap.Int("vertices", len(mesh.Vertices)),
		zap.Int("faces", len(mesh.Faces)),
		zap.Stringer("layout", ply.ResolveLayout(mesh.Flags)))
	return StatusFinished, nil
}

// Import reads the PLY file at path and hands the mesh to sink, named
// after the file.
func Import(path string, sink scene.MeshSink, log *zap.Logger) (Status, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dec := &ply.Decoder{Log: log.Named("ply")}
	mesh, err := dec.DecodeFile(path)
	if err != nil {
		return cancel(log, "import", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := sink.AddMesh(name, scene.Expand(mesh)); err != nil {
		return cancel(log, "import", err)
	}

	log.Info("import finished",
		zap.String("path", path),
		zap.String("object", name),
		zap.Int("vertices", len(mesh.Vertices)),
		zap.Int("faces", len(mesh.Faces)))
	return StatusFinished, nil
}

func cancel(log *zap.Logger, op string, err error) (Status, error) {
	if Recoverable(err) {
		log.Warn(op+" cancelled", zap.Error(err))
	} else {
		log.Error(op+" failed", zap.Error(err))
	}
	return StatusCancelled, err
}
