package normalize

import (
	"log/slog"
	"sort"

	"github.com/jaki95/dj-cue-converter/internal/domain"
)

// Adjust shifts every marker and beat grid position of t by sign*offset.
// t is modified in place.
func Adjust(t *domain.Track, offset float64, sign int) {
	d := float64(sign) * offset
	if d == 0 {
		return
	}
	for i := range t.Markers {
		t.Markers[i].Start += d
		if t.Markers[i].End != nil {
			end := *t.Markers[i].End + d
			t.Markers[i].End = &end
		}
	}
	for i := range t.BeatGrid {
		t.BeatGrid[i].Position += d
	}
}

// Normalizer converts tracks between a program's time and the canonical
// reference.
type Normalizer struct {
	cal      *Calibration
	reporter domain.Reporter
}

func NewNormalizer(cal *Calibration, r domain.Reporter) *Normalizer {
	if cal == nil {
		cal = NewCalibration(nil)
	}
	if r == nil {
		r = domain.Discard
	}
	return &Normalizer{cal: cal, reporter: r}
}

// Normalize moves t from the source program's time into reference time.
func (n *Normalizer) Normalize(t *domain.Track, trans domain.Transformation) {
	off := n.cal.OffsetFor(t, trans.Source.Software, n.reporter)
	slog.Debug("normalizing track time", "path", t.Location, "software", trans.Source.Software, "offset", off)
	Adjust(t, off, -1)
}

// Denormalize moves t from reference time into the target program's time.
func (n *Normalizer) Denormalize(t *domain.Track, trans domain.Transformation) {
	off := n.cal.OffsetFor(t, trans.Target.Software, n.reporter)
	slog.Debug("denormalizing track time", "path", t.Location, "software", trans.Target.Software, "offset", off)
	Adjust(t, off, 1)
}

// padCount is the number of hot cue pads on an 8-pad controller page.
const padCount = 8

// ReindexLoops moves Serato loop indices into the namespace shared by cues
// and loops in Rekordbox and Traktor. With c cues and l loops, loops take
// indices 8-l..7 when c+l <= 8 and c..c+l-1 otherwise, ordered by their
// Serato index. Cue indices and markers of other kinds are unchanged. When
// the source is not Serato the markers are returned as they are.
func ReindexLoops(markers []domain.Marker, trans domain.Transformation) []domain.Marker {
	if trans.Source.Software != domain.SoftwareSerato {
		return markers
	}
	var cues int
	var loops []int
	for i, m := range markers {
		switch {
		case m.Kind.IsCue():
			cues++
		case m.Kind == domain.MarkerLoop:
			loops = append(loops, i)
		}
	}
	if len(loops) == 0 {
		return markers
	}

	base := cues
	if cues+len(loops) <= padCount {
		base = padCount - len(loops)
	}
	sort.SliceStable(loops, func(a, b int) bool {
		return markers[loops[a]].Index < markers[loops[b]].Index
	})

	out := append([]domain.Marker(nil), markers...)
	for rank, i := range loops {
		out[i].Index = base + rank
	}
	return out
}
