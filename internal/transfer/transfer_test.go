package transfer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Fizz14/ply2uv/pkg/ply"
	"github.com/Fizz14/ply2uv/pkg/scene"
)

func twoUVTriangle() *scene.EditMesh {
	return &scene.EditMesh{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Loops:     []scene.Loop{{Vertex: 0}, {Vertex: 1}, {Vertex: 2}},
		Triangles: [][3]int{{0, 1, 2}},
		UVLayers: []scene.UVLayer{
			{Name: "UVMap", Data: [][2]float32{{0, 0}, {1, 0}, {0, 1}}},
			{Name: "UVMap.001", Data: [][2]float32{{0.5, 0.5}, {1, 0.5}, {0.5, 1}}},
		},
	}
}

var allFeatures = ply.LayoutFlags{UV0: true, UV1: true, Color: true}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusFinished, "FINISHED"},
		{StatusCancelled, "CANCELLED"},
		{Status(7), "Status(7)"},
	}
	for _, tc := range tests {
		if tc.status.String() != tc.want {
			t.Errorf("String() = %q, want %q", tc.status.String(), tc.want)
		}
	}
}

func TestExportImport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.ply")

	src := scene.New()
	src.AddMesh("tri", twoUVTriangle())

	status, err := Export(src, path, ExportOptions{Features: allFeatures})
	if err != nil || status != StatusFinished {
		t.Fatalf("Export = %v, %v", status, err)
	}

	dst := scene.New()
	status, err = Import(path, dst, nil)
	if err != nil || status != StatusFinished {
		t.Fatalf("Import = %v, %v", status, err)
	}

	obj := dst.Object("tri")
	if obj == nil {
		t.Fatalf("imported object not found, have %v", dst.Names())
	}
	if len(obj.Mesh.UVLayers) != 2 {
		t.Fatalf("expected 2 uv layers, got %d", len(obj.Mesh.UVLayers))
	}
	if obj.Mesh.UVLayers[1].Data[2] != [2]float32{0.5, 1} {
		t.Errorf("loop 2 uv1 = %v", obj.Mesh.UVLayers[1].Data[2])
	}
	if obj.Mesh.Colors != nil {
		t.Error("mesh without colors imported with a color layer")
	}
}

func TestExport_NoActiveMesh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.ply")

	status, err := Export(scene.New(), path, ExportOptions{Features: allFeatures})
	if status != StatusCancelled {
		t.Errorf("status = %v, want CANCELLED", status)
	}
	if !errors.Is(err, scene.ErrNoActiveMesh) || !Recoverable(err) {
		t.Errorf("expected recoverable ErrNoActiveMesh, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("cancelled export created a file")
	}
}

func TestExport_RequireUV(t *testing.T) {
	m := twoUVTriangle()
	m.UVLayers = nil
	src := scene.New()
	src.AddMesh("bare", m)
	path := filepath.Join(t.TempDir(), "bare.ply")

	core, logs := observer.New(zap.WarnLevel)
	status, err := Export(src, path, ExportOptions{Features: allFeatures, RequireUV: true, Log: zap.New(core)})
	if status != StatusCancelled || !errors.Is(err, ErrNoUVLayer) {
		t.Errorf("Export = %v, %v; want CANCELLED, ErrNoUVLayer", status, err)
	}
	if logs.FilterMessage("export cancelled").Len() != 1 {
		t.Error("expected one cancellation warning")
	}

	// Without the requirement the same mesh exports positions only.
	status, err = Export(src, path, ExportOptions{Features: allFeatures})
	if status != StatusFinished || err != nil {
		t.Fatalf("Export = %v, %v", status, err)
	}
	mesh, err := ply.DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}
	if mesh.Flags != (ply.LayoutFlags{}) {
		t.Errorf("flags = %+v, want none", mesh.Flags)
	}
}

func TestExport_FatalError(t *testing.T) {
	m := twoUVTriangle()
	m.Positions = nil
	m.Loops = nil
	m.Triangles = nil
	m.UVLayers = nil
	src := scene.New()
	src.AddMesh("empty", m)
	path := filepath.Join(t.TempDir(), "empty.ply")

	core, logs := observer.New(zap.ErrorLevel)
	status, err := Export(src, path, ExportOptions{Log: zap.New(core)})
	if status != StatusCancelled || !errors.Is(err, ply.ErrIncompleteMesh) {
		t.Errorf("Export = %v, %v; want CANCELLED, ErrIncompleteMesh", status, err)
	}
	if Recoverable(err) {
		t.Error("ErrIncompleteMesh should not be recoverable")
	}
	if logs.FilterMessage("export failed").Len() != 1 {
		t.Error("expected one failure log entry")
	}
}

func TestExport_SeamWarning(t *testing.T) {
	m := &scene.EditMesh{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}},
		Loops:     []scene.Loop{{Vertex: 0}, {Vertex: 1}, {Vertex: 2}, {Vertex: 2}, {Vertex: 1}, {Vertex: 3}},
		Triangles: [][3]int{{0, 1, 2}, {3, 4, 5}},
		UVLayers: []scene.UVLayer{
			{Name: "UVMap", Data: [][2]float32{{0, 0}, {1, 0}, {0, 1}, {0.2, 0.2}, {1, 0}, {1, 1}}},
		},
	}
	src := scene.New()
	src.AddMesh("seam", m)

	core, logs := observer.New(zap.WarnLevel)
	path := filepath.Join(t.TempDir(), "seam.ply")
	if _, err := Export(src, path, ExportOptions{Features: allFeatures, Log: zap.New(core)}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	entries := logs.FilterMessage("UV seams collapsed to one value per vertex").All()
	if len(entries) != 1 {
		t.Fatalf("expected one seam warning, got %d", len(entries))
	}
	if entries[0].ContextMap()["vertices"] != int64(1) {
		t.Errorf("seam count = %v, want 1", entries[0].ContextMap()["vertices"])
	}
}

func TestImport_Errors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.ply")
	os.WriteFile(bad, []byte("ply\nformat ascii 1.0\nend_header\n"), 0644)

	status, err := Import(bad, scene.New(), nil)
	if status != StatusCancelled || !errors.Is(err, ply.ErrHeaderParse) {
		t.Errorf("Import = %v, %v; want CANCELLED, ErrHeaderParse", status, err)
	}

	status, err = Import(filepath.Join(dir, "missing.ply"), scene.New(), nil)
	if status != StatusCancelled || err == nil {
		t.Errorf("Import of missing file = %v, %v", status, err)
	}
}

func TestImport_NameCollision(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.ply")

	src := scene.New()
	src.AddMesh("tri", twoUVTriangle())
	if _, err := Export(src, path, ExportOptions{Features: allFeatures}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dst := scene.New()
	if _, err := Import(path, dst, nil); err != nil {
		t.Fatalf("first Import failed: %v", err)
	}
	status, err := Import(path, dst, nil)
	if status != StatusCancelled || !errors.Is(err, scene.ErrObjectExists) {
		t.Errorf("second Import = %v, %v; want CANCELLED, ErrObjectExists", status, err)
	}
}

func TestExportImport_OBJSecondUVLayer(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "crate.obj")
	obj := `o crate
v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vt 1 0
vt 0 1
vt1 0.5 0.5
vt1 1 0.5
vt1 0.5 1
f 1/1 2/2 3/3
ft1 1 2 3
`
	if err := os.WriteFile(in, []byte(obj), 0644); err != nil {
		t.Fatal(err)
	}

	plyPath := filepath.Join(dir, "crate.ply")
	status, err := Export(scene.OBJSource{Path: in}, plyPath, ExportOptions{Features: allFeatures})
	if err != nil || status != StatusFinished {
		t.Fatalf("Export = %v, %v", status, err)
	}
	mesh, err := ply.DecodeFile(plyPath)
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}
	if !mesh.Flags.UV0 || !mesh.Flags.UV1 {
		t.Fatalf("flags = %+v, want both uv layers", mesh.Flags)
	}
	if mesh.Vertices[2].UV1 != [2]float32{0.5, 1} {
		t.Errorf("vertex 2 uv1 = %v", mesh.Vertices[2].UV1)
	}

	out := filepath.Join(dir, "back.obj")
	status, err = Import(plyPath, scene.OBJSink{Path: out}, nil)
	if err != nil || status != StatusFinished {
		t.Fatalf("Import = %v, %v", status, err)
	}
	back, err := scene.LoadOBJ(out)
	if err != nil {
		t.Fatalf("LoadOBJ failed: %v", err)
	}
	if len(back.UVLayers) != 2 {
		t.Fatalf("got %d uv layers after import, want 2", len(back.UVLayers))
	}
	if back.UVLayers[1].Data[1] != [2]float32{1, 0.5} {
		t.Errorf("loop 1 uv1 = %v", back.UVLayers[1].Data[1])
	}
}
