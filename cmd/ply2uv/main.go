// ply2uv converts meshes between Wavefront OBJ and binary PLY files that
// carry up to two UV layers and vertex colors.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Fizz14/ply2uv/internal/config"
	"github.com/Fizz14/ply2uv/internal/logger"
	"github.com/Fizz14/ply2uv/internal/transfer"
	"github.com/Fizz14/ply2uv/pkg/geom"
	"github.com/Fizz14/ply2uv/pkg/ply"
	"github.com/Fizz14/ply2uv/pkg/scene"
	"github.com/Fizz14/ply2uv/pkg/stl"
)

// Exit codes.
const (
	exitFatal     = 1
	exitCancelled = 2
)

func main() {
	config.ParseFlags()

	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(exitFatal)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFatal)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFatal)
	}
	defer logger.Sync()

	command := args[0]
	args = args[1:]
	logger.Debug("running command",
		zap.String("command", command),
		zap.Strings("args", args),
		zap.Stringer("features", layoutOf(cfg)))

	var code int
	switch command {
	case "export":
		code = cmdExport(cfg, args)
	case "import":
		code = cmdImport(args)
	case "info":
		code = cmdInfo(args)
	case "stl":
		code = cmdSTL(cfg, args)
	case "fromstl":
		code = cmdFromSTL(args)
	case "config":
		code = cmdConfig(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		code = exitFatal
	}

	if code != 0 {
		logger.Sync()
		os.Exit(code)
	}
}

func printUsage() {
	fmt.Println(`ply2uv - binary PLY mesh converter with two UV layers and vertex colors

Usage:
  ply2uv [flags] <command> [args]

Commands:
  export <in.obj> <out.ply>           Write the OBJ mesh as binary PLY
  import <in.ply> <out.obj>           Write the PLY mesh as OBJ
  info <file.ply>                     Show header, layout and mesh statistics
  stl [-ratio f] <in.ply> <out.stl>   Write binary STL, optionally decimated
  fromstl <in.stl> <out.ply>          Convert binary STL to PLY (positions only)
  config [save|path]                  Print the effective config, or save it
                                      to the user config dir or a path

Flags:
  -config <path>   Config file (default ./ply2uv.yaml, then user config dir)
  -debug           Debug logging, including per-record codec output
  -log-file <path> Also log to a rotating file
  -no-uv0          Skip the first UV layer on export
  -no-uv1          Skip the second UV layer on export
  -no-color        Skip vertex colors on export
  -require-uv      Cancel exports of meshes without a UV layer

Examples:
  ply2uv export crate.obj crate.ply
  ply2uv -no-color export crate.obj crate.ply
  ply2uv import crate.ply crate.obj
  ply2uv stl -ratio 0.25 crate.ply crate.stl`)
}

// exitCode maps a transfer result to the process exit code.
func exitCode(status transfer.Status, err error) int {
	if status == transfer.StatusFinished {
		return 0
	}
	if transfer.Recoverable(err) {
		fmt.Fprintf(os.Stderr, "Cancelled: %v\n", err)
		return exitCancelled
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return exitFatal
}

func cmdExport(cfg *config.Config, args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: ply2uv export <in.obj> <out.ply>")
		return exitFatal
	}

	status, err := transfer.Export(scene.OBJSource{Path: args[0]}, args[1], transfer.ExportOptions{
		Features:  cfg.Export.Features(),
		RequireUV: cfg.Export.RequireUV,
		Log:       logger.Named("export"),
	})
	return exitCode(status, err)
}

func cmdImport(args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: ply2uv import <in.ply> <out.obj>")
		return exitFatal
	}

	status, err := transfer.Import(args[0], scene.OBJSink{Path: args[1]}, logger.Named("import"))
	return exitCode(status, err)
}

func cmdInfo(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: ply2uv info <file.ply>")
		return exitFatal
	}
	path := args[0]

	hdr, err := readHeader(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}
	layout, err := hdr.Layout()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}

	dec := &ply.Decoder{Log: logger.Named("ply")}
	mesh, err := dec.DecodeFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}
	stats := geom.Compute(mesh)

	p := message.NewPrinter(language.English)
	p.Printf("File:      %s\n", path)
	p.Printf("Header:    %d bytes\n", hdr.Size)
	p.Printf("Layout:    %s\n", layout)
	p.Printf("Layers:    uv0=%t uv1=%t color=%t\n", mesh.Flags.UV0, mesh.Flags.UV1, mesh.Flags.Color)
	p.Printf("Vertices:  %d\n", stats.Vertices)
	p.Printf("Faces:     %d\n", stats.Faces)
	p.Printf("Size:      %d bytes\n", ply.EncodedSize(mesh))
	fmt.Println()

	size := stats.Bounds.Size()
	p.Printf("Bounds:    (%.4f, %.4f, %.4f) - (%.4f, %.4f, %.4f)\n",
		stats.Bounds.Min.X, stats.Bounds.Min.Y, stats.Bounds.Min.Z,
		stats.Bounds.Max.X, stats.Bounds.Max.Y, stats.Bounds.Max.Z)
	p.Printf("Extent:    %.4f x %.4f x %.4f\n", size.X, size.Y, size.Z)
	p.Printf("Area:      %.4f\n", stats.SurfaceArea)
	if stats.Degenerate > 0 {
		p.Printf("Degenerate faces:      %d\n", stats.Degenerate)
	}
	if stats.Unreferenced > 0 {
		p.Printf("Unreferenced vertices: %d\n", stats.Unreferenced)
	}

	if len(hdr.Comments) > 0 {
		fmt.Println()
		fmt.Println("Comments:")
		for _, c := range hdr.Comments {
			fmt.Printf("  %s\n", c)
		}
	}
	return 0
}

func readHeader(path string) (*ply.Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ply.ReadHeader(bufio.NewReader(f))
}

func cmdSTL(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("stl", flag.ExitOnError)
	ratio := fs.Float64("ratio", cfg.STL.Ratio, "Fraction of triangles to keep, in (0, 1]")
	fs.Parse(args)

	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: ply2uv stl [-ratio f] <in.ply> <out.stl>")
		return exitFatal
	}

	log := logger.Named("stl")
	mesh, err := (&ply.Decoder{Log: log}).DecodeFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}

	n, err := stl.WriteFile(fs.Arg(1), mesh, *ratio)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}

	log.Info("wrote STL file",
		zap.String("path", fs.Arg(1)),
		zap.Int("faces_in", len(mesh.Faces)),
		zap.Int("faces_out", n),
		zap.Float64("ratio", *ratio))
	return 0
}

func cmdFromSTL(args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: ply2uv fromstl <in.stl> <out.ply>")
		return exitFatal
	}

	mesh, err := stl.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}

	enc := &ply.Encoder{Log: logger.Named("ply")}
	if err := enc.EncodeFile(args[1], mesh); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}
	logger.Sugar.Infof("converted %s: %d vertices after welding, %d faces",
		args[0], len(mesh.Vertices), len(mesh.Faces))
	return 0
}

// layoutOf is the widest layout an export can write under cfg.
func layoutOf(cfg *config.Config) ply.Layout {
	return ply.ResolveLayout(cfg.Export.Features())
}

func cmdConfig(cfg *config.Config, args []string) int {
	if len(args) > 0 {
		var err error
		path := args[0]
		if path == "save" {
			path = filepath.Join(config.ConfigDir(), "config.yaml")
			err = cfg.Save()
		} else {
			err = cfg.SaveTo(path)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitFatal
		}
		fmt.Printf("Saved config to %s\n", path)
		return 0
	}

	data, err := cfg.Marshal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}
	os.Stdout.Write(data)
	return 0
}
