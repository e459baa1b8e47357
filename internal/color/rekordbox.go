package color

import "github.com/jaki95/dj-cue-converter/internal/domain"

// Rekordbox shows eight hot cue colors; several palette entries share one.
var rekordboxColors = map[domain.MarkerColor]domain.RGB{
	domain.ColorRed:         {R: 230, G: 40, B: 40},
	domain.ColorRedOrange:   {R: 224, G: 100, B: 27},
	domain.ColorOrange:      {R: 224, G: 100, B: 27},
	domain.ColorYellow:      {R: 180, G: 190, B: 4},
	domain.ColorLimeGreen:   {R: 165, G: 225, B: 22},
	domain.ColorDarkGreen:   {R: 40, G: 226, B: 20},
	domain.ColorBrightGreen: {R: 40, G: 226, B: 20},
	domain.ColorLightGreen:  {R: 16, G: 177, B: 118},
	domain.ColorTeal:        {R: 16, G: 177, B: 118},
	domain.ColorCyan:        {R: 31, G: 163, B: 146},
	domain.ColorSkyBlue:     {R: 80, G: 180, B: 255},
	domain.ColorBlue:        {R: 48, G: 90, B: 255},
	domain.ColorDarkBlue:    {R: 48, G: 90, B: 255},
	domain.ColorViolet:      {R: 180, G: 50, B: 255},
	domain.ColorMagenta:     {R: 222, G: 68, B: 207},
	domain.ColorHotPink:     {R: 255, G: 18, B: 123},
}

// RekordboxRGB is the color Rekordbox uses for a palette entry.
func RekordboxRGB(c domain.MarkerColor) domain.RGB {
	if rgb, ok := rekordboxColors[c]; ok {
		return rgb
	}
	return c.RGB()
}

// FromRekordbox maps a Rekordbox marker color back to the palette. Exact
// Rekordbox colors resolve to the first palette entry sharing them.
func FromRekordbox(c domain.RGB) domain.MarkerColor {
	return NearestIn(c, domain.MarkerColors(), RekordboxRGB)
}
