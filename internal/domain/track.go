// Package domain holds the software-agnostic track and playlist model that
// every reader decodes into and every writer encodes from.
package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Format identifies the audio container of a track.
type Format string

const (
	FormatUnknown Format = ""
	FormatMP3     Format = "mp3"
	FormatFLAC    Format = "flac"
	FormatM4A     Format = "m4a"
)

// FormatFromPath guesses the container from the file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return FormatMP3
	case ".flac":
		return FormatFLAC
	case ".m4a", ".aac", ".mp4":
		return FormatM4A
	default:
		return FormatUnknown
	}
}

// MarkerKind is the role of a marker on the timeline.
type MarkerKind string

const (
	MarkerCue     MarkerKind = "cue"
	MarkerCueLoad MarkerKind = "cue_load"
	MarkerLoop    MarkerKind = "loop"
	MarkerFadeIn  MarkerKind = "fade_in"
	MarkerFadeOut MarkerKind = "fade_out"
)

// IsCue reports whether the kind lives in the hot cue namespace.
func (k MarkerKind) IsCue() bool {
	return k == MarkerCue || k == MarkerCueLoad
}

// Marker is a hot cue, loop or fade marker. Times are in seconds.
type Marker struct {
	Name   string       `json:"name"`
	Color  *MarkerColor `json:"color,omitempty"`
	Start  float64      `json:"start"`
	End    *float64     `json:"end,omitempty"`
	Kind   MarkerKind   `json:"kind"`
	Index  int          `json:"index"`
	Locked bool         `json:"locked"`
}

// Meter is a time signature such as 4/4.
type Meter struct {
	Beats    int `json:"beats"`
	Division int `json:"division"`
}

// DefaultMeter is used when a source does not carry a time signature.
var DefaultMeter = Meter{Beats: 4, Division: 4}

// BeatGridPoint marks a tempo change at Position seconds.
type BeatGridPoint struct {
	Position float64 `json:"position"`
	BPM      float64 `json:"bpm"`
	Meter    Meter   `json:"meter"`
}

// Loudness holds the automatic gain analysis and the user gain.
type Loudness struct {
	AutoGain float64 `json:"autogain"`
	GainDB   float64 `json:"gain_db"`
}

// EncoderMode is the bitrate mode reported by an encoder.
type EncoderMode int

const (
	EncoderModeUnknown EncoderMode = iota
	EncoderModeCBR
	EncoderModeVBR
	EncoderModeABR
)

// Encoder describes the software that produced the audio stream.
type Encoder struct {
	Text     string      `json:"text"`
	Settings string      `json:"settings,omitempty"`
	Mode     EncoderMode `json:"mode"`
}

// DataSource records which program (and tag format version) the track
// metadata was read from.
type DataSource struct {
	Software Software `json:"software"`
	Version  []int    `json:"version,omitempty"`
	Encoder  *Encoder `json:"encoder,omitempty"`
}

// Track is the canonical representation of one audio file and its
// performance metadata.
type Track struct {
	Title       string     `json:"title,omitempty"`
	Artist      string     `json:"artist,omitempty"`
	Composer    string     `json:"composer,omitempty"`
	Album       string     `json:"album,omitempty"`
	Grouping    string     `json:"grouping,omitempty"`
	Genre       string     `json:"genre,omitempty"`
	Format      Format     `json:"format"`
	Size        int64      `json:"size,omitempty"`
	TotalTime   float64    `json:"total_time,omitempty"`
	DiscNumber  int        `json:"disc_number,omitempty"`
	TrackNumber int        `json:"track_number,omitempty"`
	ReleaseDate *time.Time `json:"release_date,omitempty"`
	AverageBPM  float64    `json:"average_bpm,omitempty"`
	DateAdded   *time.Time `json:"date_added,omitempty"`
	BitRate     int        `json:"bit_rate,omitempty"`
	SampleRate  float64    `json:"sample_rate,omitempty"`
	Comments    string     `json:"comments,omitempty"`
	PlayCount   int        `json:"play_count,omitempty"`
	Rating      int        `json:"rating,omitempty"`
	Location    string     `json:"location"`
	Remixer     string     `json:"remixer,omitempty"`
	Tonality    string     `json:"tonality,omitempty"`
	Label       string     `json:"label,omitempty"`
	Mix         string     `json:"mix,omitempty"`

	DataSource DataSource      `json:"data_source"`
	Markers    []Marker        `json:"markers"`
	BeatGrid   []BeatGridPoint `json:"beatgrid"`
	Locked     bool            `json:"locked"`
	Color      *RGB            `json:"color,omitempty"`
	TrackID    string          `json:"track_id,omitempty"`
	Loudness   *Loudness       `json:"loudness,omitempty"`
}

// NewTrack returns a track with the defaults every reader starts from.
func NewTrack(location string) *Track {
	return &Track{
		Location: location,
		Format:   FormatFromPath(location),
		Locked:   true,
	}
}

// Clone returns a deep copy so callers can adjust times without touching
// the source instance.
func (t *Track) Clone() *Track {
	c := *t
	c.Markers = make([]Marker, len(t.Markers))
	for i, m := range t.Markers {
		c.Markers[i] = m
		if m.End != nil {
			end := *m.End
			c.Markers[i].End = &end
		}
		if m.Color != nil {
			col := *m.Color
			c.Markers[i].Color = &col
		}
	}
	c.BeatGrid = append([]BeatGridPoint(nil), t.BeatGrid...)
	c.DataSource.Version = append([]int(nil), t.DataSource.Version...)
	if t.DataSource.Encoder != nil {
		enc := *t.DataSource.Encoder
		c.DataSource.Encoder = &enc
	}
	if t.Color != nil {
		col := *t.Color
		c.Color = &col
	}
	if t.Loudness != nil {
		l := *t.Loudness
		c.Loudness = &l
	}
	return &c
}

// Playlist is an ordered list of tracks.
type Playlist struct {
	Name   string   `json:"name"`
	Tracks []*Track `json:"tracks"`
}

// AudioReader reads the stream properties of an audio file into a track.
type AudioReader func(path string) (*Track, error)

// ApplyAudio copies what the audio file itself says (container, size,
// stream properties, encoder) from a track read by an AudioReader into t.
func (t *Track) ApplyAudio(a *Track) {
	if a.Format != FormatUnknown {
		t.Format = a.Format
	}
	if a.Size > 0 {
		t.Size = a.Size
	}
	if a.TotalTime > 0 {
		t.TotalTime = a.TotalTime
	}
	if t.BitRate == 0 {
		t.BitRate = a.BitRate
	}
	if t.SampleRate == 0 {
		t.SampleRate = a.SampleRate
	}
	if a.DataSource.Encoder != nil {
		enc := *a.DataSource.Encoder
		t.DataSource.Encoder = &enc
	}
}
