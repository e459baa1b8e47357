// Package traktor reads and writes playlists in Traktor's NML collection
// format.
package traktor

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/jaki95/dj-cue-converter/internal/domain"
)

// Version is the NML format version written.
const Version = 19

var (
	ErrPlaylistNotFound  = errors.New("playlist not found")
	ErrPlaylistAmbiguous = errors.New("more than one playlist with that name")
	ErrInvalidDocument   = errors.New("invalid NML document")
)

// CUE_V2 types.
const (
	cueTypeCue     = 0
	cueTypeFadeIn  = 1
	cueTypeFadeOut = 2
	cueTypeLoad    = 3
	cueTypeGrid    = 4
	cueTypeLoop    = 5
)

var cueTypes = map[domain.MarkerKind]int{
	domain.MarkerCue:     cueTypeCue,
	domain.MarkerFadeIn:  cueTypeFadeIn,
	domain.MarkerFadeOut: cueTypeFadeOut,
	domain.MarkerCueLoad: cueTypeLoad,
	domain.MarkerLoop:    cueTypeLoop,
}

func kindFromCueType(n int) (domain.MarkerKind, bool) {
	for k, v := range cueTypes {
		if v == n {
			return k, true
		}
	}
	return "", false
}

const (
	dirSeparator = "/:"
	dateLayout   = "2006/1/2"
	// Rankings are stored as a byte, one step of 51 per star.
	rankingStep = 51
)

// location splits a file path into the VOLUME, DIR and FILE attributes of
// a LOCATION element. Paths without a drive use volume.
func location(path, volume string) (vol, dir, file string) {
	vol = filepath.VolumeName(path)
	if vol == "" {
		vol = volume
	}
	rest := filepath.ToSlash(strings.TrimPrefix(path, filepath.VolumeName(path)))
	d, file := "/", rest
	if i := strings.LastIndex(rest, "/"); i >= 0 {
		d, file = rest[:i+1], rest[i+1:]
	}
	if !strings.HasPrefix(d, "/") {
		d = "/" + d
	}
	return vol, strings.ReplaceAll(d, "/", dirSeparator), file
}

// pathFromLocation is the inverse of location. Named volumes such as
// "Macintosh HD" are the filesystem root and are dropped; drive letters
// are kept.
func pathFromLocation(vol, dir, file string) string {
	d := strings.ReplaceAll(dir, dirSeparator, "/")
	p := d + file
	if strings.HasSuffix(vol, ":") {
		p = vol + p
	}
	return filepath.FromSlash(p)
}

func primaryKey(vol, dir, file string) string {
	return vol + dir + file
}
