package serato

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/jaki95/dj-cue-converter/internal/domain"
	"github.com/jaki95/dj-cue-converter/internal/serato/envelope"
)

// markers2MinLen is the shortest base64 body Serato writes; shorter bodies
// are NUL padded.
const markers2MinLen = 468

var markers2Version = [2]byte{0x01, 0x01}

// Entry is one record of a Markers2 payload. The set of implementations is
// closed: ColorEntry, CueEntry, LoopEntry, BpmLockEntry, FlipEntry and
// UnknownEntry.
type Entry interface {
	EntryName() string
	isEntry()
}

// ColorEntry is the track color.
type ColorEntry struct {
	Field1 byte
	Color  domain.RGB
}

// CueEntry is a hot cue. Position is in milliseconds.
type CueEntry struct {
	Field1   byte
	Index    uint8
	Position uint32
	Field4   byte
	Color    domain.RGB
	Field6   [2]byte
	Name     string
}

// LoopEntry is a saved loop. Start and End are in milliseconds.
type LoopEntry struct {
	Field1 byte
	Index  uint8
	Start  uint32
	End    uint32
	Field5 [4]byte
	Field6 byte
	Color  domain.RGB
	Field8 byte
	Locked bool
	Name   string
}

// BpmLockEntry is the beat grid lock flag.
type BpmLockEntry struct {
	Enabled bool
}

// FlipActionKind identifies a Flip action.
type FlipActionKind uint8

const (
	FlipJump   FlipActionKind = 0
	FlipCensor FlipActionKind = 1
)

// FlipAction is one step of a Flip recording. Jump actions carry (source,
// target) and censor actions (start, end, speed) in seconds. Actions of an
// unknown kind keep their raw bytes.
type FlipAction struct {
	Kind   FlipActionKind
	Values []float64
	Raw    []byte
}

// FlipEntry is a Serato Flip. It can be decoded but not encoded.
type FlipEntry struct {
	Field1  byte
	Index   uint8
	Enabled bool
	Name    string
	Loop    uint8
	Actions []FlipAction
}

// UnknownEntry preserves records with an unrecognized name.
type UnknownEntry struct {
	Name string
	Data []byte
}

func (ColorEntry) EntryName() string   { return "COLOR" }
func (CueEntry) EntryName() string     { return "CUE" }
func (LoopEntry) EntryName() string    { return "LOOP" }
func (BpmLockEntry) EntryName() string { return "BPMLOCK" }
func (FlipEntry) EntryName() string    { return "FLIP" }
func (e UnknownEntry) EntryName() string {
	return e.Name
}

func (ColorEntry) isEntry()   {}
func (CueEntry) isEntry()     {}
func (LoopEntry) isEntry()    {}
func (BpmLockEntry) isEntry() {}
func (FlipEntry) isEntry()    {}
func (UnknownEntry) isEntry() {}

// NewCueEntry fills the opaque fields with the values Serato writes.
func NewCueEntry(index uint8, positionMs uint32, color domain.RGB, name string) CueEntry {
	return CueEntry{Index: index, Position: positionMs, Color: color, Name: name}
}

// NewLoopEntry fills the opaque fields with the values Serato writes.
func NewLoopEntry(index uint8, startMs, endMs uint32, color domain.RGB, locked bool, name string) LoopEntry {
	return LoopEntry{
		Index:  index,
		Start:  startMs,
		End:    endMs,
		Field5: [4]byte{0xff, 0xff, 0xff, 0xff},
		Color:  color,
		Locked: locked,
		Name:   name,
	}
}

// DecodeMarkers2 parses a Markers2 tag value as stored in an ID3 frame (or
// returned by Unpack): a 01 01 header followed by NUL-terminated base64.
func DecodeMarkers2(data []byte) ([]Entry, error) {
	if len(data) < 2 || data[0] != markers2Version[0] || data[1] != markers2Version[1] {
		return nil, formatErrorf("markers2: bad version header")
	}
	body := data[2:]
	if i := bytes.IndexByte(body, 0x00); i >= 0 {
		body = body[:i]
	}
	payload, err := envelope.DecodeBase64(body)
	if err != nil {
		return nil, fmt.Errorf("%w: markers2: %v", ErrFormat, err)
	}
	return ParseMarkers2Payload(payload)
}

// ParseMarkers2Payload parses the decoded entry stream.
func ParseMarkers2Payload(payload []byte) ([]Entry, error) {
	r := bytes.NewReader(payload)
	var version [2]byte
	if _, err := io.ReadFull(r, version[:]); err != nil || version != markers2Version {
		return nil, formatErrorf("markers2: bad payload version")
	}

	var entries []Entry
	for {
		name, err := readCString(r)
		if err != nil && err != io.EOF {
			return nil, formatErrorf("markers2: entry name: %v", err)
		}
		if name == "" {
			break
		}
		var size uint32
		if err := binary.Read(r, binary.BigEndian, &size); err != nil {
			return nil, formatErrorf("markers2: %s length: %v", name, err)
		}
		if int64(size) > int64(r.Len()) {
			return nil, formatErrorf("markers2: %s length %d exceeds payload", name, size)
		}
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, formatErrorf("markers2: %s: %v", name, err)
		}
		entry, err := decodeEntry(name, buf)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func decodeEntry(name string, data []byte) (Entry, error) {
	switch name {
	case "COLOR":
		if len(data) != 4 {
			return nil, formatErrorf("markers2: COLOR entry has %d bytes", len(data))
		}
		return ColorEntry{Field1: data[0], Color: domain.RGB{R: data[1], G: data[2], B: data[3]}}, nil
	case "BPMLOCK":
		if len(data) != 1 {
			return nil, formatErrorf("markers2: BPMLOCK entry has %d bytes", len(data))
		}
		return BpmLockEntry{Enabled: data[0] != 0}, nil
	case "CUE":
		return decodeCue(data)
	case "LOOP":
		return decodeLoop(data)
	case "FLIP":
		return decodeFlip(data)
	default:
		return UnknownEntry{Name: name, Data: append([]byte(nil), data...)}, nil
	}
}

func decodeCue(data []byte) (Entry, error) {
	const fixed = 12
	if len(data) < fixed+1 {
		return nil, formatErrorf("markers2: CUE entry too short (%d bytes)", len(data))
	}
	name, err := trailingName(data[fixed:])
	if err != nil {
		return nil, formatErrorf("markers2: CUE name: %v", err)
	}
	return CueEntry{
		Field1:   data[0],
		Index:    data[1],
		Position: binary.BigEndian.Uint32(data[2:6]),
		Field4:   data[6],
		Color:    domain.RGB{R: data[7], G: data[8], B: data[9]},
		Field6:   [2]byte{data[10], data[11]},
		Name:     name,
	}, nil
}

func decodeLoop(data []byte) (Entry, error) {
	const fixed = 20
	if len(data) < fixed+1 {
		return nil, formatErrorf("markers2: LOOP entry too short (%d bytes)", len(data))
	}
	name, err := trailingName(data[fixed:])
	if err != nil {
		return nil, formatErrorf("markers2: LOOP name: %v", err)
	}
	e := LoopEntry{
		Field1: data[0],
		Index:  data[1],
		Start:  binary.BigEndian.Uint32(data[2:6]),
		End:    binary.BigEndian.Uint32(data[6:10]),
		Field6: data[14],
		Color:  domain.RGB{R: data[15], G: data[16], B: data[17]},
		Field8: data[18],
		Locked: data[19] != 0,
		Name:   name,
	}
	copy(e.Field5[:], data[10:14])
	return e, nil
}

func decodeFlip(data []byte) (Entry, error) {
	if len(data) < 4 {
		return nil, formatErrorf("markers2: FLIP entry too short")
	}
	e := FlipEntry{Field1: data[0], Index: data[1], Enabled: data[2] != 0}
	rest := data[3:]
	i := bytes.IndexByte(rest, 0x00)
	if i < 0 {
		return nil, formatErrorf("markers2: FLIP name not terminated")
	}
	e.Name = string(rest[:i])
	rest = rest[i+1:]
	if len(rest) < 5 {
		return nil, formatErrorf("markers2: FLIP header truncated")
	}
	e.Loop = rest[0]
	count := binary.BigEndian.Uint32(rest[1:5])
	rest = rest[5:]
	for n := uint32(0); n < count; n++ {
		if len(rest) < 5 {
			return nil, formatErrorf("markers2: FLIP action %d truncated", n)
		}
		kind := FlipActionKind(rest[0])
		size := binary.BigEndian.Uint32(rest[1:5])
		rest = rest[5:]
		if int64(size) > int64(len(rest)) {
			return nil, formatErrorf("markers2: FLIP action %d size %d exceeds entry", n, size)
		}
		body := rest[:size]
		rest = rest[size:]
		action := FlipAction{Kind: kind}
		switch {
		case kind == FlipJump && size == 16, kind == FlipCensor && size == 24:
			for off := 0; off < len(body); off += 8 {
				action.Values = append(action.Values, math.Float64frombits(binary.BigEndian.Uint64(body[off:])))
			}
		default:
			action.Raw = append([]byte(nil), body...)
		}
		e.Actions = append(e.Actions, action)
	}
	if len(rest) != 0 {
		return nil, formatErrorf("markers2: FLIP has %d trailing bytes", len(rest))
	}
	return e, nil
}

// EncodeMarkers2 serializes entries to the tag value written into ID3
// frames (and wrapped by Pack for FLAC and M4A).
func EncodeMarkers2(entries []Entry) ([]byte, error) {
	payload, err := MarshalMarkers2Payload(entries)
	if err != nil {
		return nil, err
	}
	body := envelope.InsertNewlines(envelope.EncodeBase64(append(payload, 0x00)), envelope.LineLength)

	out := make([]byte, 0, 2+max(len(body), markers2MinLen))
	out = append(out, markers2Version[:]...)
	out = append(out, body...)
	if n := markers2MinLen - len(body); n > 0 {
		out = append(out, make([]byte, n)...)
	}
	return out, nil
}

// MarshalMarkers2Payload produces the decoded entry stream.
func MarshalMarkers2Payload(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(markers2Version[:])
	for _, e := range entries {
		data, err := encodeEntry(e)
		if err != nil {
			return nil, err
		}
		buf.WriteString(e.EntryName())
		buf.WriteByte(0x00)
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

func encodeEntry(e Entry) ([]byte, error) {
	switch e := e.(type) {
	case ColorEntry:
		return []byte{e.Field1, e.Color.R, e.Color.G, e.Color.B}, nil
	case BpmLockEntry:
		if e.Enabled {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case CueEntry:
		b := make([]byte, 0, 12+len(e.Name)+1)
		b = append(b, e.Field1, e.Index)
		b = binary.BigEndian.AppendUint32(b, e.Position)
		b = append(b, e.Field4, e.Color.R, e.Color.G, e.Color.B, e.Field6[0], e.Field6[1])
		b = append(b, e.Name...)
		return append(b, 0x00), nil
	case LoopEntry:
		b := make([]byte, 0, 20+len(e.Name)+1)
		b = append(b, e.Field1, e.Index)
		b = binary.BigEndian.AppendUint32(b, e.Start)
		b = binary.BigEndian.AppendUint32(b, e.End)
		b = append(b, e.Field5[:]...)
		b = append(b, e.Field6, e.Color.R, e.Color.G, e.Color.B, e.Field8, boolByte(e.Locked))
		b = append(b, e.Name...)
		return append(b, 0x00), nil
	case UnknownEntry:
		return e.Data, nil
	case FlipEntry:
		return nil, fmt.Errorf("%w: FLIP", ErrUnsupportedEntry)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedEntry, e)
	}
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// readCString reads up to and including a NUL. At EOF it returns what was
// read so far.
func readCString(r *bytes.Reader) (string, error) {
	var b []byte
	for {
		c, err := r.ReadByte()
		if err != nil {
			return string(b), err
		}
		if c == 0x00 {
			return string(b), nil
		}
		b = append(b, c)
	}
}

// trailingName decodes the NUL-terminated name that ends a cue or loop.
func trailingName(b []byte) (string, error) {
	i := bytes.IndexByte(b, 0x00)
	if i < 0 {
		return "", fmt.Errorf("missing terminator")
	}
	if i != len(b)-1 {
		return "", fmt.Errorf("%d bytes after name", len(b)-1-i)
	}
	return string(b[:i]), nil
}
