package normalize

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/dj-cue-converter/internal/domain"
)

func floatPtr(v float64) *float64 { return &v }

func timedTrack() *domain.Track {
	t := domain.NewTrack("/music/a.m4a")
	t.Markers = []domain.Marker{
		{Kind: domain.MarkerCue, Start: 1.25},
		{Kind: domain.MarkerLoop, Start: 10, End: floatPtr(14.5)},
	}
	t.BeatGrid = []domain.BeatGridPoint{{Position: 0.123, BPM: 128}, {Position: 60.5, BPM: 130}}
	return t
}

func TestAdjust(t *testing.T) {
	tr := timedTrack()
	Adjust(tr, 0.046, 1)
	assert.InDelta(t, 1.296, tr.Markers[0].Start, 1e-12)
	assert.Nil(t, tr.Markers[0].End)
	assert.InDelta(t, 10.046, tr.Markers[1].Start, 1e-12)
	assert.InDelta(t, 14.546, *tr.Markers[1].End, 1e-12)
	assert.InDelta(t, 0.169, tr.BeatGrid[0].Position, 1e-12)
	assert.InDelta(t, 60.546, tr.BeatGrid[1].Position, 1e-12)
}

func TestAdjustDoesNotShareEnd(t *testing.T) {
	tr := timedTrack()
	clone := tr.Clone()
	Adjust(tr, 1, -1)
	assert.Equal(t, 14.5, *clone.Markers[1].End)
}

func TestNormalizeDenormalizeRoundTrip(t *testing.T) {
	for _, sw := range []domain.Software{domain.SoftwareSerato, domain.SoftwareRekordbox, domain.SoftwareTraktor} {
		for _, enc := range []string{"", "LAME 3.100.0", "Lavf58.20.100", "FhG"} {
			for _, format := range []domain.Format{domain.FormatMP3, domain.FormatM4A, domain.FormatFLAC} {
				t.Run(fmt.Sprintf("%s/%s/%s", sw, format, enc), func(t *testing.T) {
					orig := timedTrack()
					orig.Format = format
					if enc != "" {
						orig.DataSource.Encoder = &domain.Encoder{Text: enc}
					}
					trans := domain.Transformation{
						Source: domain.SoftwareInfo{Software: sw},
						Target: domain.SoftwareInfo{Software: sw},
					}
					n := NewNormalizer(nil, nil)
					tr := orig.Clone()
					n.Normalize(tr, trans)
					n.Denormalize(tr, trans)

					for i := range orig.Markers {
						assert.InDelta(t, orig.Markers[i].Start, tr.Markers[i].Start, 1e-9)
					}
					assert.InDelta(t, *orig.Markers[1].End, *tr.Markers[1].End, 1e-9)
					for i := range orig.BeatGrid {
						assert.InDelta(t, orig.BeatGrid[i].Position, tr.BeatGrid[i].Position, 1e-9)
					}
				})
			}
		}
	}
}

func TestNormalizeFromRekordbox(t *testing.T) {
	n := NewNormalizer(NewCalibration(nil), nil)
	trans := domain.Transformation{
		Source: domain.SoftwareInfo{Software: domain.SoftwareRekordbox},
		Target: domain.SoftwareInfo{Software: domain.SoftwareTraktor},
	}
	tr := timedTrack()
	n.Normalize(tr, trans)
	assert.InDelta(t, 1.204, tr.Markers[0].Start, 1e-12)
	n.Denormalize(tr, trans)
	assert.InDelta(t, 1.204, tr.Markers[0].Start, 1e-12)
}

func markersOf(cues int, loopIdx ...int) []domain.Marker {
	var ms []domain.Marker
	for i := 0; i < cues; i++ {
		ms = append(ms, domain.Marker{Kind: domain.MarkerCue, Index: i})
	}
	for _, idx := range loopIdx {
		ms = append(ms, domain.Marker{Kind: domain.MarkerLoop, Index: idx, End: floatPtr(1)})
	}
	return ms
}

var fromSerato = domain.Transformation{
	Source: domain.SoftwareInfo{Software: domain.SoftwareSerato},
	Target: domain.SoftwareInfo{Software: domain.SoftwareRekordbox},
}

func TestReindexLoops(t *testing.T) {
	tests := []struct {
		name     string
		markers  []domain.Marker
		expected []int
	}{
		{"fits on one page", markersOf(3, 0, 1), []int{0, 1, 2, 6, 7}},
		{"sparse loop indices", markersOf(2, 2, 5), []int{0, 1, 6, 7}},
		{"exactly eight", markersOf(4, 0, 1, 2, 3), []int{0, 1, 2, 3, 4, 5, 6, 7}},
		{"overflow", markersOf(6, 0, 1, 2), []int{0, 1, 2, 3, 4, 5, 6, 7, 8}},
		{"loops only", markersOf(0, 1), []int{7}},
		{"unordered loops", markersOf(1, 4, 0), []int{0, 7, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReindexLoops(tt.markers, fromSerato)
			var idx []int
			for _, m := range got {
				idx = append(idx, m.Index)
			}
			assert.Equal(t, tt.expected, idx)
		})
	}
}

func TestReindexLoopsInvariant(t *testing.T) {
	for c := 0; c <= 10; c++ {
		for l := 0; l <= 10; l++ {
			loops := make([]int, l)
			for i := range loops {
				loops[i] = l - 1 - i
			}
			in := markersOf(c, loops...)
			out := ReindexLoops(in, fromSerato)
			require.Len(t, out, c+l)

			lo, hi := c, c+l-1
			if c+l <= 8 {
				lo, hi = 8-l, 7
			}
			for i, m := range out {
				if m.Kind == domain.MarkerLoop {
					assert.GreaterOrEqual(t, m.Index, lo)
					assert.LessOrEqual(t, m.Index, hi)
				} else {
					assert.Equal(t, in[i].Index, m.Index)
				}
			}
		}
	}
}

func TestReindexLoopsOnlyFromSerato(t *testing.T) {
	in := markersOf(1, 0)
	trans := domain.Transformation{
		Source: domain.SoftwareInfo{Software: domain.SoftwareRekordbox},
		Target: domain.SoftwareInfo{Software: domain.SoftwareSerato},
	}
	assert.Equal(t, in, ReindexLoops(in, trans))

	orig := markersOf(1, 0)
	_ = ReindexLoops(orig, fromSerato)
	assert.Equal(t, 0, orig[1].Index)
}
