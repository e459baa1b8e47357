package serato

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/jaki95/dj-cue-converter/internal/domain"
)

var beatGridVersion = [2]byte{0x01, 0x00}

// Footer values Serato writes for new beat grids. The meaning of the byte
// is unknown; decoded grids keep whatever value they had.
var defaultBeatGridFooter = map[domain.Format]byte{
	domain.FormatMP3:  116,
	domain.FormatFLAC: 0,
	domain.FormatM4A:  65,
}

// NonTerminalMarker is a grid anchor followed by another anchor.
type NonTerminalMarker struct {
	Position    float32
	BeatsToNext uint32
}

// TerminalMarker is the last grid anchor, which carries its tempo directly.
type TerminalMarker struct {
	Position float32
	BPM      float32
}

// BeatGrid is the decoded BeatGrid tag. A grid with anchors always has a
// Terminal; NonTerminal holds the anchors before it.
type BeatGrid struct {
	NonTerminal []NonTerminalMarker
	Terminal    *TerminalMarker
	Footer      byte
}

// Len is the number of anchors.
func (g BeatGrid) Len() int {
	if g.Terminal == nil {
		return 0
	}
	return len(g.NonTerminal) + 1
}

// DecodeBeatGrid parses a BeatGrid payload. Bytes after the footer are
// ignored (M4A files carry a spurious trailing NUL).
func DecodeBeatGrid(data []byte) (BeatGrid, error) {
	var g BeatGrid
	r := bytes.NewReader(data)

	var version [2]byte
	if _, err := io.ReadFull(r, version[:]); err != nil || version != beatGridVersion {
		return g, formatErrorf("beatgrid: bad version header")
	}
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return g, formatErrorf("beatgrid: marker count: %v", err)
	}
	if int64(count)*8 > int64(r.Len()) {
		return g, formatErrorf("beatgrid: %d markers exceed payload", count)
	}

	var raw [8]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, raw[:]); err != nil {
			return g, formatErrorf("beatgrid: marker %d: %v", i, err)
		}
		pos := math.Float32frombits(binary.BigEndian.Uint32(raw[0:4]))
		if i == count-1 {
			bpm := math.Float32frombits(binary.BigEndian.Uint32(raw[4:8]))
			g.Terminal = &TerminalMarker{Position: pos, BPM: bpm}
		} else {
			g.NonTerminal = append(g.NonTerminal, NonTerminalMarker{
				Position:    pos,
				BeatsToNext: binary.BigEndian.Uint32(raw[4:8]),
			})
		}
	}

	if i, ok := g.ordered(); !ok {
		return g, formatErrorf("beatgrid: marker %d at %g does not follow the previous marker", i, g.position(i))
	}

	footer, err := r.ReadByte()
	if err != nil {
		return g, formatErrorf("beatgrid: missing footer")
	}
	g.Footer = footer
	return g, nil
}

func (g BeatGrid) position(i int) float32 {
	if i < len(g.NonTerminal) {
		return g.NonTerminal[i].Position
	}
	return g.Terminal.Position
}

// ordered reports whether anchor positions are finite and strictly
// increasing. i is the first offending anchor.
func (g BeatGrid) ordered() (int, bool) {
	for i := 0; i < g.Len(); i++ {
		p := float64(g.position(i))
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return i, false
		}
		if i > 0 && !(g.position(i) > g.position(i-1)) {
			return i, false
		}
	}
	return 0, true
}

// EncodeBeatGrid serializes a grid. It panics when non-terminal anchors are
// present without a terminal one, or when positions are not strictly
// increasing. Neither the decoder nor BeatGridFromPoints produces such a grid.
func EncodeBeatGrid(g BeatGrid) []byte {
	if g.Terminal == nil && len(g.NonTerminal) > 0 {
		panic("serato: beat grid has non-terminal markers but no terminal marker")
	}
	if i, ok := g.ordered(); !ok {
		panic(fmt.Sprintf("serato: beat grid marker %d at %g does not follow the previous marker", i, g.position(i)))
	}

	n := g.Len()
	b := make([]byte, 0, 2+4+8*n+1)
	b = append(b, beatGridVersion[:]...)
	b = binary.BigEndian.AppendUint32(b, uint32(n))
	for _, m := range g.NonTerminal {
		b = binary.BigEndian.AppendUint32(b, math.Float32bits(m.Position))
		b = binary.BigEndian.AppendUint32(b, m.BeatsToNext)
	}
	if g.Terminal != nil {
		b = binary.BigEndian.AppendUint32(b, math.Float32bits(g.Terminal.Position))
		b = binary.BigEndian.AppendUint32(b, math.Float32bits(g.Terminal.BPM))
	}
	return append(b, g.Footer)
}

// Points converts the grid into canonical tempo points. Each non-terminal
// anchor gets the tempo implied by the beats to the next anchor. The
// terminal anchor is added with its own tempo unless the previous interval
// already lands on it at the same tempo.
func (g BeatGrid) Points() []domain.BeatGridPoint {
	if g.Terminal == nil {
		return nil
	}
	points := make([]domain.BeatGridPoint, 0, g.Len())
	for i, m := range g.NonTerminal {
		next := float64(g.Terminal.Position)
		if i+1 < len(g.NonTerminal) {
			next = float64(g.NonTerminal[i+1].Position)
		}
		pos := float64(m.Position)
		points = append(points, domain.BeatGridPoint{
			Position: pos,
			BPM:      float64(m.BeatsToNext) * 60 / (next - pos),
			Meter:    domain.DefaultMeter,
		})
	}

	term := domain.BeatGridPoint{
		Position: float64(g.Terminal.Position),
		BPM:      float64(g.Terminal.BPM),
		Meter:    domain.DefaultMeter,
	}
	if len(points) > 0 && math.Abs(points[len(points)-1].BPM-term.BPM) < bpmTolerance {
		return points
	}
	return append(points, term)
}

const bpmTolerance = 1e-4

// BeatGridFromPoints builds a grid from canonical points. Beats between
// anchors are rounded to whole beats. Points with a non-finite position or
// tempo are dropped, as are points before the previous one. A point at the
// same stored position as the previous one replaces it.
func BeatGridFromPoints(points []domain.BeatGridPoint, footer byte) BeatGrid {
	g := BeatGrid{Footer: footer}
	points = increasingPoints(points)
	if len(points) == 0 {
		return g
	}
	for i, p := range points[:len(points)-1] {
		dt := points[i+1].Position - p.Position
		beats := math.Round(p.BPM * dt / 60)
		if beats < 0 {
			beats = 0
		}
		g.NonTerminal = append(g.NonTerminal, NonTerminalMarker{
			Position:    float32(p.Position),
			BeatsToNext: uint32(beats),
		})
	}
	last := points[len(points)-1]
	g.Terminal = &TerminalMarker{Position: float32(last.Position), BPM: float32(last.BPM)}
	return g
}

func increasingPoints(points []domain.BeatGridPoint) []domain.BeatGridPoint {
	out := make([]domain.BeatGridPoint, 0, len(points))
	for _, p := range points {
		if !finite(p.Position) || !finite(p.BPM) || !finite(float64(float32(p.Position))) {
			continue
		}
		if n := len(out); n > 0 {
			prev, cur := float32(out[n-1].Position), float32(p.Position)
			switch {
			case cur < prev:
				continue
			case cur == prev:
				out[n-1] = p
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
