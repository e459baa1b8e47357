// Package serato decodes and encodes the binary metadata Serato DJ stores
// in audio file tags: cue points, loops, beat grids, analysis results and
// auto gain.
package serato

import (
	"github.com/jaki95/dj-cue-converter/internal/domain"
	"github.com/jaki95/dj-cue-converter/internal/serato/envelope"
)

// Tag is one kind of Serato metadata blob.
type Tag int

const (
	TagAnalysis Tag = iota
	TagAutoTags
	TagBeatGrid
	TagMarkers
	TagMarkers2
	TagOverview
	TagRelVol
)

type tagInfo struct {
	name   string
	marker string
	mp3    string
	m4a    string
	flac   string
}

var tags = [...]tagInfo{
	TagAnalysis: {"Analysis", "Serato Analysis", "GEOB:Serato Analysis", "----:com.serato.dj:analysisVersion", "serato_analysis"},
	TagAutoTags: {"Autotags", "Serato Autotags", "GEOB:Serato Autotags", "----:com.serato.dj:autgain", "serato_autogain"},
	TagBeatGrid: {"BeatGrid", "Serato BeatGrid", "GEOB:Serato BeatGrid", "----:com.serato.dj:beatgrid", "serato_beatgrid"},
	TagMarkers:  {"Markers_", "Serato Markers_", "GEOB:Serato Markers_", "----:com.serato.dj:markers", ""},
	TagMarkers2: {"Markers2", "Serato Markers2", "GEOB:Serato Markers2", "----:com.serato.dj:markersv2", "serato_markers_v2"},
	TagOverview: {"Overview", "Serato Overview", "GEOB:Serato Overview", "----:com.serato.dj:overview", "serato_overview"},
	TagRelVol:   {"RelVol", "Serato RelVolAd", "RVA2:SeratoGain", "----:com.serato.dj:relvol", "serato_relvol"},
}

// AllTags lists every tag kind.
func AllTags() []Tag {
	return []Tag{TagAnalysis, TagAutoTags, TagBeatGrid, TagMarkers, TagMarkers2, TagOverview, TagRelVol}
}

func (t Tag) String() string {
	if t < 0 || int(t) >= len(tags) {
		return "unknown"
	}
	return tags[t].name
}

// Name returns the container key of the tag for an audio format. MP3 names
// are "<frame id>:<description>". ok is false when the tag is not used by
// that format.
func (t Tag) Name(f domain.Format) (string, bool) {
	if t < 0 || int(t) >= len(tags) {
		return "", false
	}
	var name string
	switch f {
	case domain.FormatMP3:
		name = tags[t].mp3
	case domain.FormatM4A:
		name = tags[t].m4a
	case domain.FormatFLAC:
		name = tags[t].flac
	}
	return name, name != ""
}

// Marker is the literal identifying the tag inside an envelope.
func (t Tag) Marker() string {
	if t < 0 || int(t) >= len(tags) {
		return ""
	}
	return tags[t].marker
}

// Enveloped reports whether the format stores tags base64 wrapped.
func Enveloped(f domain.Format) bool {
	return f == domain.FormatFLAC || f == domain.FormatM4A
}

func envelopeMinLen(t Tag) int {
	if t == TagMarkers2 {
		return 515
	}
	return 0
}

// Unpack turns the raw value stored in the container into the tag payload.
func Unpack(t Tag, f domain.Format, data []byte) ([]byte, error) {
	if !Enveloped(f) {
		return data, nil
	}
	payload, err := envelope.Unwrap(data, t.Marker())
	if err != nil {
		return nil, &TagError{Tag: t, Format: f, Err: err}
	}
	return payload, nil
}

// Pack is the inverse of Unpack.
func Pack(t Tag, f domain.Format, payload []byte) []byte {
	if !Enveloped(f) {
		return payload
	}
	if t == TagAutoTags || t == TagBeatGrid {
		payload = append(append([]byte(nil), payload...), 0x00)
	}
	return envelope.Wrap(payload, t.Marker(), envelopeMinLen(t))
}
