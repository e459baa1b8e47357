// Package crate reads and writes Serato crate files, the binary field trees
// Serato uses for playlists and its library database.
package crate

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"

	"github.com/jaki95/dj-cue-converter/internal/domain"
)

// versionDescriptor is the one descriptor without a type byte.
const versionDescriptor = "vrsn"

// CrateVersion is the version string Serato writes in crate files.
const CrateVersion = "1.0/Serato ScratchLive Crate"

var ErrFormat = errors.New("invalid crate format")

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// Field is one node of a crate. Which value member is meaningful depends on
// Type: Bool for bool fields, Int for u16 and u32, Text for path and text,
// Children for containers. Raw holds the content of fields with an unknown
// type byte.
type Field struct {
	ID       FieldID
	Type     FieldType
	Name     string
	Bool     bool
	Int      uint32
	Text     string
	Children []Field
	Raw      []byte
}

func (f Field) String() string {
	switch f.Type {
	case TypeBool:
		return fmt.Sprintf("%s(%s=%t)", f.ID, f.Name, f.Bool)
	case TypeU16, TypeU32:
		return fmt.Sprintf("%s(%s=%d)", f.ID, f.Name, f.Int)
	case TypePath, TypeText:
		return fmt.Sprintf("%s(%s=%q)", f.ID, f.Name, f.Text)
	case TypeContainer, TypeContainerR:
		return fmt.Sprintf("%s(%s, %d children)", f.ID, f.Name, len(f.Children))
	default:
		return fmt.Sprintf("%s(%c%s, %d bytes)", f.ID, byte(f.Type), f.Name, len(f.Raw))
	}
}

// TextField builds a known text or path field.
func TextField(id FieldID, text string) Field {
	return Field{ID: id, Type: id.Type(), Name: id.Name(), Text: text}
}

// BoolField builds a known bool field.
func BoolField(id FieldID, v bool) Field {
	return Field{ID: id, Type: id.Type(), Name: id.Name(), Bool: v}
}

// ContainerField builds a known container field.
func ContainerField(id FieldID, children ...Field) Field {
	return Field{ID: id, Type: id.Type(), Name: id.Name(), Children: children}
}

// Decode parses a crate byte stream. Decoding stops at the first
// descriptor shorter than 4 bytes.
func Decode(data []byte) ([]Field, error) {
	var fields []Field
	for len(data) >= 4 {
		desc := string(data[:4])
		data = data[4:]
		if len(data) < 4 {
			return nil, fmt.Errorf("%w: field %q: missing length", ErrFormat, desc)
		}
		size := binary.BigEndian.Uint32(data[:4])
		data = data[4:]
		if int64(size) > int64(len(data)) {
			return nil, fmt.Errorf("%w: field %q: length %d exceeds remaining %d bytes", ErrFormat, desc, size, len(data))
		}
		content := data[:size]
		data = data[size:]

		typ, name := FieldType(desc[0]), desc[1:]
		if desc == versionDescriptor {
			typ, name = TypeText, versionDescriptor
		}
		f, err := decodeField(typ, name, content)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// Read decodes a whole crate from r.
func Read(r io.Reader) ([]Field, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read crate: %w", err)
	}
	return Decode(data)
}

func decodeField(typ FieldType, name string, content []byte) (Field, error) {
	f := Field{ID: lookup(typ, name), Type: typ, Name: name}
	switch typ {
	case TypeBool:
		if len(content) != 1 {
			return f, fmt.Errorf("%w: bool field %q has %d bytes", ErrFormat, name, len(content))
		}
		f.Bool = content[0] != 0
	case TypeU16:
		if len(content) != 2 {
			return f, fmt.Errorf("%w: u16 field %q has %d bytes", ErrFormat, name, len(content))
		}
		f.Int = uint32(binary.BigEndian.Uint16(content))
	case TypeU32:
		if len(content) != 4 {
			return f, fmt.Errorf("%w: u32 field %q has %d bytes", ErrFormat, name, len(content))
		}
		f.Int = binary.BigEndian.Uint32(content)
	case TypePath, TypeText:
		text, err := utf16be.NewDecoder().Bytes(content)
		if err != nil {
			return f, fmt.Errorf("%w: text field %q: %v", ErrFormat, name, err)
		}
		f.Text = string(text)
	case TypeContainer, TypeContainerR:
		children, err := Decode(content)
		if err != nil {
			return f, fmt.Errorf("container %q: %w", name, err)
		}
		f.Children = children
	default:
		f.Raw = append([]byte(nil), content...)
	}
	return f, nil
}

// Encode serializes fields. It is the inverse of Decode.
func Encode(fields []Field) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, fields); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes fields to w.
func Write(w io.Writer, fields []Field) error {
	for _, f := range fields {
		b, err := encodeField(f)
		if err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("failed to write crate field %s: %w", f.Name, err)
		}
	}
	return nil
}

func encodeField(f Field) ([]byte, error) {
	var content []byte
	switch f.Type {
	case TypeBool:
		content = []byte{0}
		if f.Bool {
			content[0] = 1
		}
	case TypeU16:
		content = binary.BigEndian.AppendUint16(nil, uint16(f.Int))
	case TypeU32:
		content = binary.BigEndian.AppendUint32(nil, f.Int)
	case TypePath, TypeText:
		text, err := utf16be.NewEncoder().Bytes([]byte(f.Text))
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %s: %w", f.Name, err)
		}
		content = text
	case TypeContainer, TypeContainerR:
		var err error
		content, err = Encode(f.Children)
		if err != nil {
			return nil, err
		}
	default:
		content = f.Raw
	}

	var desc []byte
	if f.Name == versionDescriptor {
		desc = []byte(versionDescriptor)
	} else {
		if len(f.Name) != 3 {
			return nil, fmt.Errorf("%w: field name %q is not 3 bytes", ErrFormat, f.Name)
		}
		desc = append([]byte{byte(f.Type)}, f.Name...)
	}

	out := make([]byte, 0, len(desc)+4+len(content))
	out = append(out, desc...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(content)))
	return append(out, content...), nil
}

// TrackPaths returns the path of every Track container holding a single
// TrackPath, in file order.
func TrackPaths(fields []Field) []string {
	var paths []string
	for _, f := range fields {
		if f.ID != FieldTrack || len(f.Children) != 1 {
			continue
		}
		if c := f.Children[0]; c.ID == FieldTrackPath {
			paths = append(paths, c.Text)
		}
	}
	return paths
}

var defaultColumns = []string{"playCount", "artist", "song", "bpm", "key", "album", "length", "comment"}

// New builds a crate listing paths. Paths are stored the way Serato does:
// without drive or root and with forward slashes.
func New(paths []string) []Field {
	fields := []Field{
		TextField(FieldVersion, CrateVersion),
		ContainerField(FieldSorting,
			TextField(FieldColumnName, "#"),
			BoolField(FieldReverseOrder, false),
		),
	}
	for _, col := range defaultColumns {
		fields = append(fields, ContainerField(FieldColumnTitle,
			TextField(FieldColumnName, col),
			TextField(FieldColumnWidth, "0"),
		))
	}
	for _, p := range paths {
		fields = append(fields, ContainerField(FieldTrack, TextField(FieldTrackPath, domain.RootlessPath(p))))
	}
	return fields
}
