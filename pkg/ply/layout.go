package ply

import (
	"fmt"
	"strings"
)

// FieldKind is the scalar type of a vertex property.
type FieldKind uint8

// Scalar kinds used by the vertex element.
const (
	KindFloat FieldKind = iota // 4-byte IEEE-754 float
	KindUchar                  // 1-byte unsigned
)

// Width returns the encoded size in bytes.
func (k FieldKind) Width() int {
	if k == KindUchar {
		return 1
	}
	return 4
}

// String returns the PLY type name.
func (k FieldKind) String() string {
	if k == KindUchar {
		return "uchar"
	}
	return "float"
}

type attribute uint8

const (
	attrPosition attribute = iota
	attrUV0
	attrUV1
	attrColor
)

// Field is one scalar property of a vertex record.
type Field struct {
	Name string
	Kind FieldKind

	attr attribute
	comp int
}

// Layout is the resolved vertex record shape for one file.
type Layout struct {
	Flags  LayoutFlags
	Fields []Field
}

// ResolveLayout returns the record fields for the given flags in file
// order: x y z, then s t, u v, red green blue as present.
func ResolveLayout(flags LayoutFlags) Layout {
	fields := []Field{
		{"x", KindFloat, attrPosition, 0},
		{"y", KindFloat, attrPosition, 1},
		{"z", KindFloat, attrPosition, 2},
	}
	if flags.UV0 {
		fields = append(fields,
			Field{"s", KindFloat, attrUV0, 0},
			Field{"t", KindFloat, attrUV0, 1})
	}
	if flags.UV1 {
		fields = append(fields,
			Field{"u", KindFloat, attrUV1, 0},
			Field{"v", KindFloat, attrUV1, 1})
	}
	if flags.Color {
		fields = append(fields,
			Field{"red", KindUchar, attrColor, 0},
			Field{"green", KindUchar, attrColor, 1},
			Field{"blue", KindUchar, attrColor, 2})
	}
	return Layout{Flags: flags, Fields: fields}
}

// Stride returns the byte size of one vertex record.
func (l Layout) Stride() int {
	n := 0
	for _, f := range l.Fields {
		n += f.Kind.Width()
	}
	return n
}

// String renders the layout for logs, e.g. "x y z s t | stride=20".
func (l Layout) String() string {
	names := make([]string, len(l.Fields))
	for i, f := range l.Fields {
		names[i] = f.Name
	}
	return fmt.Sprintf("%s | stride=%d", strings.Join(names, " "), l.Stride())
}

// LayoutFromProperties infers presence flags from a header's vertex
// property list. The list must match ResolveLayout for those flags exactly,
// in both order and type.
func LayoutFromProperties(props []Property) (Layout, error) {
	var flags LayoutFlags
	for _, p := range props {
		switch p.Name {
		case "s", "t":
			flags.UV0 = true
		case "u", "v":
			flags.UV1 = true
		case "red", "green", "blue":
			flags.Color = true
		}
	}

	layout := ResolveLayout(flags)
	if len(props) != len(layout.Fields) {
		return Layout{}, fmt.Errorf("%w: vertex declares %d properties, expected %s",
			ErrHeaderParse, len(props), layout)
	}
	for i, f := range layout.Fields {
		p := props[i]
		if p.List || p.Name != f.Name || p.Type != f.Kind.String() {
			return Layout{}, fmt.Errorf("%w: vertex property %d is %q, expected %s %s",
				ErrHeaderParse, i, p, f.Kind, f.Name)
		}
	}
	return layout, nil
}

// putVertex packs v into b, which must be at least Stride() bytes.
func (l Layout) putVertex(b []byte, v *Vertex) {
	off := 0
	for _, f := range l.Fields {
		switch f.attr {
		case attrPosition:
			putFloat32(b[off:], v.Position[f.comp])
		case attrUV0:
			putFloat32(b[off:], v.UV0[f.comp])
		case attrUV1:
			putFloat32(b[off:], v.UV1[f.comp])
		case attrColor:
			b[off] = v.Color[f.comp]
		}
		off += f.Kind.Width()
	}
}

// vertexAt unpacks one record; fields absent from the layout stay zero.
func (l Layout) vertexAt(b []byte) Vertex {
	var v Vertex
	off := 0
	for _, f := range l.Fields {
		switch f.attr {
		case attrPosition:
			v.Position[f.comp] = float32At(b[off:])
		case attrUV0:
			v.UV0[f.comp] = float32At(b[off:])
		case attrUV1:
			v.UV1[f.comp] = float32At(b[off:])
		case attrColor:
			v.Color[f.comp] = b[off]
		}
		off += f.Kind.Width()
	}
	return v
}
