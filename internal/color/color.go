// Package color quantizes arbitrary RGB values to the hot cue palette and
// translates palette entries to the colors other programs display.
package color

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/jaki95/dj-cue-converter/internal/domain"
)

func toColorful(c domain.RGB) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

// Distance is the CIEDE2000 color difference between two colors.
func Distance(a, b domain.RGB) float64 {
	return toColorful(a).DistanceCIEDE2000(toColorful(b))
}

// Nearest returns the palette entry with the smallest CIEDE2000 distance
// to c. Ties go to the entry listed first.
func Nearest(c domain.RGB) domain.MarkerColor {
	return NearestIn(c, domain.MarkerColors(), func(m domain.MarkerColor) domain.RGB { return m.RGB() })
}

// NearestIn searches candidates using rgb to obtain each candidate's color.
// It is used when the reference colors differ from Serato's, e.g. when
// reading the colors Rekordbox writes.
func NearestIn(c domain.RGB, candidates []domain.MarkerColor, rgb func(domain.MarkerColor) domain.RGB) domain.MarkerColor {
	target := toColorful(c)
	best := candidates[0]
	bestDist := target.DistanceCIEDE2000(toColorful(rgb(best)))
	for _, cand := range candidates[1:] {
		d := target.DistanceCIEDE2000(toColorful(rgb(cand)))
		if d < bestDist {
			best, bestDist = cand, d
		}
	}
	return best
}
