package serato

import (
	"encoding/binary"

	"github.com/jaki95/dj-cue-converter/internal/domain"
)

// Legacy "Serato Markers_" tag, still written next to Markers2 for MP3
// files so older Serato versions see the same cues.

var legacyMarkersVersion = [2]byte{0x02, 0x05}

const (
	legacyEntrySize = 0x16
	legacyCueSlots  = 5
	legacyLoopSlots = 9
)

// LegacyEntryType is the kind stored in a Markers_ slot.
type LegacyEntryType uint8

const (
	LegacyInvalid LegacyEntryType = 0
	LegacyCue     LegacyEntryType = 1
	LegacyLoop    LegacyEntryType = 3
)

// LegacyEntry is one Markers_ slot. Positions are in milliseconds; nil
// means the position is not set.
type LegacyEntry struct {
	Start  *uint32
	End    *uint32
	Field5 [6]byte
	Color  domain.RGB
	Type   LegacyEntryType
	Locked bool
}

// LegacyMarkers is the decoded Markers_ tag.
type LegacyMarkers struct {
	Entries []LegacyEntry
	Color   domain.RGB
}

// serato32Encode packs 3 bytes into 4 bytes of 7 bits each.
func serato32Encode(a, b, c byte) [4]byte {
	return [4]byte{
		a >> 5,
		((b >> 6) | (a << 2)) & 0x7f,
		((c >> 7) | (b << 1)) & 0x7f,
		c & 0x7f,
	}
}

func serato32Decode(v [4]byte) (a, b, c byte) {
	w, x, y, z := v[0], v[1], v[2], v[3]
	c = (z & 0x7f) | ((y & 0x01) << 7)
	b = ((y & 0x7f) >> 1) | ((x & 0x03) << 6)
	a = ((x & 0x7f) >> 2) | ((w & 0x07) << 5)
	return a, b, c
}

func encodeSerato32Uint(v uint32) [4]byte {
	return serato32Encode(byte(v>>16), byte(v>>8), byte(v))
}

func decodeSerato32Uint(v [4]byte) uint32 {
	a, b, c := serato32Decode(v)
	return uint32(a)<<16 | uint32(b)<<8 | uint32(c)
}

func encodeSerato32Color(c domain.RGB) [4]byte {
	return serato32Encode(c.R, c.G, c.B)
}

func decodeSerato32Color(v [4]byte) domain.RGB {
	r, g, b := serato32Decode(v)
	return domain.RGB{R: r, G: g, B: b}
}

func DecodeLegacyMarkers(data []byte) (LegacyMarkers, error) {
	var lm LegacyMarkers
	if len(data) < 6 || data[0] != legacyMarkersVersion[0] || data[1] != legacyMarkersVersion[1] {
		return lm, formatErrorf("markers_: bad version header")
	}
	count := binary.BigEndian.Uint32(data[2:6])
	body := data[6:]
	if int64(count)*legacyEntrySize+4 > int64(len(body)) {
		return lm, formatErrorf("markers_: %d entries exceed payload", count)
	}

	for i := uint32(0); i < count; i++ {
		raw := body[i*legacyEntrySize : (i+1)*legacyEntrySize]
		e, err := decodeLegacyEntry(raw)
		if err != nil {
			return lm, err
		}
		lm.Entries = append(lm.Entries, e)
	}
	var col [4]byte
	copy(col[:], body[count*legacyEntrySize:])
	lm.Color = decodeSerato32Color(col)
	return lm, nil
}

func decodeLegacyEntry(raw []byte) (LegacyEntry, error) {
	var e LegacyEntry
	startSet, err := legacyFlag(raw[0])
	if err != nil {
		return e, err
	}
	endSet, err := legacyFlag(raw[5])
	if err != nil {
		return e, err
	}
	var v [4]byte
	if startSet {
		copy(v[:], raw[1:5])
		s := decodeSerato32Uint(v)
		e.Start = &s
	}
	if endSet {
		copy(v[:], raw[6:10])
		s := decodeSerato32Uint(v)
		e.End = &s
	}
	copy(e.Field5[:], raw[10:16])
	copy(v[:], raw[16:20])
	e.Color = decodeSerato32Color(v)
	e.Type = LegacyEntryType(raw[20])
	e.Locked = raw[21] != 0
	return e, nil
}

func legacyFlag(b byte) (bool, error) {
	switch b {
	case 0x00:
		return true, nil
	case 0x7f:
		return false, nil
	default:
		return false, formatErrorf("markers_: bad position flag 0x%02x", b)
	}
}

func EncodeLegacyMarkers(lm LegacyMarkers) []byte {
	b := make([]byte, 0, 6+legacyEntrySize*len(lm.Entries)+4)
	b = append(b, legacyMarkersVersion[:]...)
	b = binary.BigEndian.AppendUint32(b, uint32(len(lm.Entries)))
	unset := [4]byte{0x7f, 0x7f, 0x7f, 0x7f}
	for _, e := range lm.Entries {
		start, end := unset, unset
		startFlag, endFlag := byte(0x7f), byte(0x7f)
		if e.Start != nil {
			start, startFlag = encodeSerato32Uint(*e.Start), 0x00
		}
		if e.End != nil {
			end, endFlag = encodeSerato32Uint(*e.End), 0x00
		}
		col := encodeSerato32Color(e.Color)
		b = append(b, startFlag)
		b = append(b, start[:]...)
		b = append(b, endFlag)
		b = append(b, end[:]...)
		b = append(b, e.Field5[:]...)
		b = append(b, col[:]...)
		b = append(b, byte(e.Type), boolByte(e.Locked))
	}
	col := encodeSerato32Color(lm.Color)
	return append(b, col[:]...)
}

// legacyDummy is the opaque field Serato writes in every slot.
func legacyDummy(f domain.Format) [6]byte {
	if f == domain.FormatM4A {
		return [6]byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff}
	}
	return [6]byte{0x00, 0x7f, 0x7f, 0x7f, 0x7f, 0x7f}
}

// LegacyMarkersFromTrack lays out cues in slots 0-4 and loops in slots
// 5-13. Markers with an index beyond their slot range are dropped.
func LegacyMarkersFromTrack(t *domain.Track) LegacyMarkers {
	dummy := legacyDummy(t.Format)
	lm := LegacyMarkers{Entries: make([]LegacyEntry, legacyCueSlots+legacyLoopSlots)}
	for i := range lm.Entries {
		lm.Entries[i] = LegacyEntry{Field5: dummy, Type: LegacyInvalid}
		if i >= legacyCueSlots {
			lm.Entries[i].Type = LegacyLoop
		}
	}
	lm.Color = trackColor(t)

	for _, m := range t.Markers {
		col := markerRGB(m)
		start := secondsToMs(m.Start)
		switch {
		case m.Kind.IsCue() && m.Index >= 0 && m.Index < legacyCueSlots:
			lm.Entries[m.Index] = LegacyEntry{
				Start:  &start,
				Field5: dummy,
				Color:  col,
				Type:   LegacyCue,
				Locked: m.Locked,
			}
		case m.Kind == domain.MarkerLoop && m.End != nil && m.Index >= 0 && m.Index < legacyLoopSlots:
			end := secondsToMs(*m.End)
			lm.Entries[legacyCueSlots+m.Index] = LegacyEntry{
				Start:  &start,
				End:    &end,
				Field5: dummy,
				Color:  col,
				Type:   LegacyLoop,
				Locked: m.Locked,
			}
		}
	}
	return lm
}
