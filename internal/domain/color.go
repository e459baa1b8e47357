package domain

import (
	"encoding/json"
	"fmt"
)

// RGB is an 8-bit per channel color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// White is the default Serato track color.
var White = RGB{255, 255, 255}

// MarkerColor is an entry of the fixed hot cue palette.
type MarkerColor int

// Palette order matters: nearest-color ties resolve to the lower value.
const (
	ColorRed MarkerColor = iota
	ColorRedOrange
	ColorOrange
	ColorYellow
	ColorLimeGreen
	ColorDarkGreen
	ColorBrightGreen
	ColorLightGreen
	ColorTeal
	ColorCyan
	ColorSkyBlue
	ColorBlue
	ColorDarkBlue
	ColorViolet
	ColorMagenta
	ColorHotPink
)

var markerColors = [...]struct {
	name string
	rgb  RGB
}{
	ColorRed:         {"red", RGB{204, 0, 0}},
	ColorRedOrange:   {"red_orange", RGB{204, 68, 0}},
	ColorOrange:      {"orange", RGB{204, 136, 0}},
	ColorYellow:      {"yellow", RGB{204, 204, 0}},
	ColorLimeGreen:   {"lime_green", RGB{136, 204, 0}},
	ColorDarkGreen:   {"dark_green", RGB{68, 204, 0}},
	ColorBrightGreen: {"bright_green", RGB{0, 204, 0}},
	ColorLightGreen:  {"light_green", RGB{0, 204, 68}},
	ColorTeal:        {"teal", RGB{0, 204, 136}},
	ColorCyan:        {"cyan", RGB{0, 204, 204}},
	ColorSkyBlue:     {"sky_blue", RGB{39, 170, 225}},
	ColorBlue:        {"blue", RGB{0, 68, 204}},
	ColorDarkBlue:    {"dark_blue", RGB{0, 0, 204}},
	ColorViolet:      {"violet", RGB{136, 0, 204}},
	ColorMagenta:     {"magenta", RGB{204, 0, 204}},
	ColorHotPink:     {"hot_pink", RGB{204, 0, 136}},
}

// MarkerColors lists the palette in enumeration order.
func MarkerColors() []MarkerColor {
	out := make([]MarkerColor, len(markerColors))
	for i := range markerColors {
		out[i] = MarkerColor(i)
	}
	return out
}

// RGB returns the Serato value of the palette entry.
func (c MarkerColor) RGB() RGB {
	if c < 0 || int(c) >= len(markerColors) {
		return RGB{}
	}
	return markerColors[c].rgb
}

func (c MarkerColor) String() string {
	if c < 0 || int(c) >= len(markerColors) {
		return fmt.Sprintf("MarkerColor(%d)", int(c))
	}
	return markerColors[c].name
}

// ColorPtr is a convenience for building markers.
func ColorPtr(c MarkerColor) *MarkerColor {
	return &c
}

func (c MarkerColor) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *MarkerColor) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, mc := range markerColors {
		if mc.name == name {
			*c = MarkerColor(i)
			return nil
		}
	}
	return fmt.Errorf("unknown marker color %q", name)
}
