package ply

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	magicLine     = "ply"
	formatLine    = "format binary_little_endian 1.0"
	endHeaderLine = "end_header"

	elementVertex = "vertex"
	elementFace   = "face"
)

// maxHeaderBytes bounds how much of a non-PLY input is scanned before
// giving up on finding end_header.
const maxHeaderBytes = 64 << 10

// Property is one "property" line of the header.
type Property struct {
	Name string
	Type string // scalar type, or item type for lists
	List bool
	// CountType is the list length type; only set for list properties.
	CountType string
}

// String renders the property in header syntax without the keyword.
func (p Property) String() string {
	if p.List {
		return fmt.Sprintf("list %s %s %s", p.CountType, p.Type, p.Name)
	}
	return p.Type + " " + p.Name
}

// Header is the parsed textual preamble of a PLY file.
type Header struct {
	VertexCount int
	FaceCount   int
	// Properties lists the vertex element's properties in declaration order.
	Properties []Property
	Comments   []string
	// Size is the header length in bytes, including the end_header line.
	Size int
}

// Layout resolves the vertex record layout declared by the header.
func (h *Header) Layout() (Layout, error) {
	return LayoutFromProperties(h.Properties)
}

// appendHeader appends the header for a mesh with the given shape.
func appendHeader(b []byte, flags LayoutFlags, vertexCount, faceCount int) []byte {
	line := func(s string) {
		b = append(b, s...)
		b = append(b, '\n')
	}
	line(magicLine)
	line(formatLine)
	line("element vertex " + strconv.Itoa(vertexCount))
	for _, f := range ResolveLayout(flags).Fields {
		line("property " + f.Kind.String() + " " + f.Name)
	}
	line("element face " + strconv.Itoa(faceCount))
	line("property list uchar int vertex_indices")
	line(endHeaderLine)
	return b
}

// WriteHeader writes the header for a mesh with the given shape.
func WriteHeader(w io.Writer, flags LayoutFlags, vertexCount, faceCount int) error {
	_, err := w.Write(appendHeader(nil, flags, vertexCount, faceCount))
	return err
}

// HeaderSize returns the byte length WriteHeader would produce.
func HeaderSize(flags LayoutFlags, vertexCount, faceCount int) int {
	return len(appendHeader(nil, flags, vertexCount, faceCount))
}

// ReadHeader scans header lines up to and including end_header, leaving r
// positioned at the first body byte.
func ReadHeader(r *bufio.Reader) (*Header, error) {
	h := &Header{VertexCount: -1, FaceCount: -1}
	var (
		element   string
		sawFormat bool
		faceProps int
		lineNo    int
	)

	for {
		line, err := readHeaderLine(r, h)
		if err != nil {
			return nil, err
		}
		lineNo++

		if lineNo == 1 {
			if line != magicLine {
				return nil, fmt.Errorf("%w: missing %q magic", ErrHeaderParse, magicLine)
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case endHeaderLine:
			return h, h.finish(sawFormat, faceProps)

		case "format":
			if strings.Join(fields, " ") != formatLine {
				return nil, fmt.Errorf("%w: unsupported format %q", ErrHeaderParse, line)
			}
			sawFormat = true

		case "comment", "obj_info":
			h.Comments = append(h.Comments, strings.TrimSpace(strings.TrimPrefix(line, fields[0])))

		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: line %d: bad element %q", ErrHeaderParse, lineNo, line)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("%w: line %d: bad element count %q", ErrHeaderParse, lineNo, fields[2])
			}
			element = fields[1]
			switch element {
			case elementVertex:
				if h.VertexCount >= 0 || h.FaceCount >= 0 {
					return nil, fmt.Errorf("%w: line %d: unexpected vertex element", ErrHeaderParse, lineNo)
				}
				h.VertexCount = count
			case elementFace:
				if h.VertexCount < 0 || h.FaceCount >= 0 {
					return nil, fmt.Errorf("%w: line %d: face element must follow vertex", ErrHeaderParse, lineNo)
				}
				h.FaceCount = count
			default:
				return nil, fmt.Errorf("%w: line %d: unsupported element %q", ErrHeaderParse, lineNo, element)
			}

		case "property":
			p, err := parseProperty(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrHeaderParse, lineNo, err)
			}
			switch element {
			case elementVertex:
				h.Properties = append(h.Properties, p)
			case elementFace:
				if !isFaceIndexList(p) {
					return nil, fmt.Errorf("%w: line %d: unsupported face property %q", ErrHeaderParse, lineNo, p)
				}
				faceProps++
			default:
				return nil, fmt.Errorf("%w: line %d: property outside element", ErrHeaderParse, lineNo)
			}

		default:
			return nil, fmt.Errorf("%w: line %d: unknown keyword %q", ErrHeaderParse, lineNo, fields[0])
		}
	}
}

func (h *Header) finish(sawFormat bool, faceProps int) error {
	switch {
	case !sawFormat:
		return fmt.Errorf("%w: missing format line", ErrHeaderParse)
	case h.VertexCount < 0:
		return fmt.Errorf("%w: missing element vertex", ErrHeaderParse)
	case h.FaceCount < 0:
		return fmt.Errorf("%w: missing element face", ErrHeaderParse)
	case faceProps != 1:
		return fmt.Errorf("%w: face element needs exactly one vertex_indices list", ErrHeaderParse)
	}
	return nil
}

// readHeaderLine returns the next line without its terminator.
func readHeaderLine(r *bufio.Reader, h *Header) (string, error) {
	line, err := r.ReadString('\n')
	h.Size += len(line)
	if h.Size > maxHeaderBytes {
		return "", fmt.Errorf("%w: no %s within %d bytes", ErrHeaderParse, endHeaderLine, maxHeaderBytes)
	}
	switch {
	case errors.Is(err, io.EOF) && line == "":
		return "", fmt.Errorf("%w: stream ended before %s", ErrHeaderParse, endHeaderLine)
	case err != nil && !errors.Is(err, io.EOF):
		return "", err
	}
	for i := 0; i < len(line); i++ {
		if line[i] >= 0x80 {
			return "", fmt.Errorf("%w: non-ASCII byte 0x%02x in header", ErrHeaderParse, line[i])
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func parseProperty(fields []string) (Property, error) {
	if len(fields) > 0 && fields[0] == "list" {
		if len(fields) != 4 {
			return Property{}, fmt.Errorf("bad list property %q", strings.Join(fields, " "))
		}
		return Property{
			List:      true,
			CountType: normalizeType(fields[1]),
			Type:      normalizeType(fields[2]),
			Name:      fields[3],
		}, nil
	}
	if len(fields) != 2 {
		return Property{}, fmt.Errorf("bad property %q", strings.Join(fields, " "))
	}
	return Property{Type: normalizeType(fields[0]), Name: fields[1]}, nil
}

// normalizeType maps the sized PLY type aliases onto the classic names.
func normalizeType(t string) string {
	switch t {
	case "uint8":
		return "uchar"
	case "int8":
		return "char"
	case "uint16":
		return "ushort"
	case "int16":
		return "short"
	case "uint32":
		return "uint"
	case "int32":
		return "int"
	case "float32":
		return "float"
	case "float64":
		return "double"
	}
	return t
}

func isFaceIndexList(p Property) bool {
	if !p.List || p.CountType != "uchar" {
		return false
	}
	if p.Type != "int" && p.Type != "uint" {
		return false
	}
	return p.Name == "vertex_indices" || p.Name == "vertex_index"
}
