// Package rekordbox reads and writes playlists in the Rekordbox XML
// collection format.
package rekordbox

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/jaki95/dj-cue-converter/internal/domain"
)

var (
	ErrPlaylistNotFound  = errors.New("playlist not found")
	ErrPlaylistAmbiguous = errors.New("more than one playlist with that name")
	ErrInvalidDocument   = errors.New("invalid rekordbox document")
)

// Position mark types.
var markTypes = map[domain.MarkerKind]int{
	domain.MarkerCue:     0,
	domain.MarkerFadeIn:  1,
	domain.MarkerFadeOut: 2,
	domain.MarkerCueLoad: 3,
	domain.MarkerLoop:    4,
}

func kindFromMarkType(n int) (domain.MarkerKind, bool) {
	for k, v := range markTypes {
		if v == n {
			return k, true
		}
	}
	return "", false
}

var formatKinds = map[domain.Format]string{
	domain.FormatMP3:  "MP3 File",
	domain.FormatFLAC: "FLAC File",
	domain.FormatM4A:  "MP4 File",
}

// Ratings are stored as a byte, one step of 51 per star.
const ratingStep = 51

// Track colors Rekordbox offers in its collection.
var trackColors = []domain.RGB{
	{R: 0xff, G: 0x00, B: 0x7f}, // rose
	{R: 0xff, G: 0x00, B: 0x00}, // red
	{R: 0xff, G: 0xa5, B: 0x00}, // orange
	{R: 0xff, G: 0xff, B: 0x00}, // lemon
	{R: 0x00, G: 0xff, B: 0x00}, // green
	{R: 0x25, G: 0xfd, B: 0xe9}, // turquoise
	{R: 0x00, G: 0x00, B: 0xff}, // blue
	{R: 0x66, G: 0x00, B: 0x99}, // violet
}

// Playlist node types and key types.
const (
	nodeFolder   = "0"
	nodePlaylist = "1"

	keyTrackID  = "0"
	keyLocation = "1"
)

// locationURL renders a file path as the file://localhost URL Rekordbox
// uses for TRACK Location.
func locationURL(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Host: "localhost", Path: p}
	return u.String()
}

func pathFromURL(s string) (string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: location %q: %v", ErrInvalidDocument, s, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: location %q is not a file URL", ErrInvalidDocument, s)
	}
	p := u.Path
	// Windows drive paths come as /C:/...
	if len(p) > 2 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p), nil
}
