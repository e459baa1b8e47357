package serato

import (
	"errors"
	"fmt"
	"math"

	"github.com/jaki95/dj-cue-converter/internal/color"
	"github.com/jaki95/dj-cue-converter/internal/domain"
)

// defaultMarkerColor is used for markers that carry no color.
const defaultMarkerColor = domain.ColorBlue

func secondsToMs(s float64) uint32 {
	ms := math.Round(s * 1000)
	if ms < 0 {
		return 0
	}
	return uint32(ms)
}

func msToSeconds(ms uint32) float64 {
	return float64(ms) / 1000
}

func trackColor(t *domain.Track) domain.RGB {
	if t.Color == nil {
		return domain.White
	}
	return *t.Color
}

func markerRGB(m domain.Marker) domain.RGB {
	if m.Color == nil {
		return defaultMarkerColor.RGB()
	}
	return m.Color.RGB()
}

// ReadTrack lifts the Serato tags of one audio file into t. blobs holds the
// values exactly as stored in the container. A tag that fails to decode is
// reported and skipped; the remaining tags are still applied.
func ReadTrack(t *domain.Track, blobs map[Tag][]byte, r domain.Reporter) {
	if r == nil {
		r = domain.Discard
	}
	t.DataSource.Software = domain.SoftwareSerato

	decodeFailed := func(tag Tag, err error) {
		var te *TagError
		if !errors.As(err, &te) {
			err = &TagError{Tag: tag, Format: t.Format, Err: err}
		}
		r.Warn(domain.Warning{Kind: domain.WarnTagDecode, Path: t.Location, Message: err.Error()})
	}
	payload := func(tag Tag) ([]byte, bool) {
		raw, ok := blobs[tag]
		if !ok || len(raw) == 0 {
			return nil, false
		}
		p, err := Unpack(tag, t.Format, raw)
		if err != nil {
			decodeFailed(tag, err)
			return nil, false
		}
		return p, true
	}

	if p, ok := payload(TagMarkers2); ok {
		entries, err := DecodeMarkers2(p)
		if err != nil {
			decodeFailed(TagMarkers2, err)
		} else {
			applyMarkers2(t, entries)
		}
	}

	if p, ok := payload(TagBeatGrid); ok {
		g, err := DecodeBeatGrid(p)
		if err != nil {
			decodeFailed(TagBeatGrid, err)
		} else {
			t.BeatGrid = g.Points()
			for _, pt := range t.BeatGrid {
				if pt.Position < 0 {
					r.Warn(domain.Warning{
						Kind:    domain.WarnNegativeBeatGrid,
						Path:    t.Location,
						Message: fmt.Sprintf("beat grid marker at negative time %.3fs; the grid may be shifted", pt.Position),
					})
					break
				}
			}
		}
	}

	if p, ok := payload(TagAutoTags); ok {
		at, err := DecodeAutoTags(p)
		if err != nil {
			decodeFailed(TagAutoTags, err)
		} else {
			t.AverageBPM = at.BPM
			t.Loudness = &domain.Loudness{AutoGain: at.AutoGain, GainDB: at.GainDB}
		}
	}

	if p, ok := payload(TagAnalysis); ok {
		a, err := DecodeAnalysis(p, t.Format)
		if err != nil {
			decodeFailed(TagAnalysis, err)
		} else {
			t.DataSource.Version = a.Version
		}
	}
}

func applyMarkers2(t *domain.Track, entries []Entry) {
	var markers []domain.Marker
	var lockSeen, colorSeen bool
	for _, e := range entries {
		switch e := e.(type) {
		case CueEntry:
			c := color.Nearest(e.Color)
			markers = append(markers, domain.Marker{
				Name:  e.Name,
				Color: &c,
				Start: msToSeconds(e.Position),
				Kind:  domain.MarkerCue,
				Index: int(e.Index),
			})
		case LoopEntry:
			c := color.Nearest(e.Color)
			end := msToSeconds(e.End)
			markers = append(markers, domain.Marker{
				Name:   e.Name,
				Color:  &c,
				Start:  msToSeconds(e.Start),
				End:    &end,
				Kind:   domain.MarkerLoop,
				Index:  int(e.Index),
				Locked: e.Locked,
			})
		case ColorEntry:
			if !colorSeen {
				c := e.Color
				t.Color = &c
				colorSeen = true
			}
		case BpmLockEntry:
			if !lockSeen {
				t.Locked = e.Enabled
				lockSeen = true
			}
		case FlipEntry, UnknownEntry:
			// Serato only.
		}
	}
	if !lockSeen {
		t.Locked = false
	}
	t.Markers = markers
}

// Markers2Entries lays out the Markers2 entries of a track: the track color
// first, then the cues and loops in track order, then the BPM lock.
// Fade markers and memory cues (negative index) have no Serato equivalent
// and are left out.
func Markers2Entries(t *domain.Track) []Entry {
	entries := []Entry{ColorEntry{Color: trackColor(t)}}
	for _, m := range t.Markers {
		switch {
		case m.Index < 0 || m.Index > 0xff:
		case m.Kind.IsCue():
			entries = append(entries, NewCueEntry(uint8(m.Index), secondsToMs(m.Start), markerRGB(m), m.Name))
		case m.Kind == domain.MarkerLoop && m.End != nil:
			entries = append(entries, NewLoopEntry(uint8(m.Index), secondsToMs(m.Start), secondsToMs(*m.End), markerRGB(m), m.Locked, m.Name))
		}
	}
	return append(entries, BpmLockEntry{Enabled: t.Locked})
}

// WriteTags renders the Serato tags of t as container values, ready to be
// stored verbatim. AutoTags is only written when both the average BPM and
// the loudness are known; the legacy Markers_ tag only for MP3.
func WriteTags(t *domain.Track) (map[Tag][]byte, error) {
	if t.Format == domain.FormatUnknown {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, t.Location)
	}
	out := make(map[Tag][]byte)

	m2, err := EncodeMarkers2(Markers2Entries(t))
	if err != nil {
		return nil, &TagError{Tag: TagMarkers2, Format: t.Format, Err: err}
	}
	out[TagMarkers2] = Pack(TagMarkers2, t.Format, m2)

	if t.Format == domain.FormatMP3 {
		out[TagMarkers] = EncodeLegacyMarkers(LegacyMarkersFromTrack(t))
	}

	if g := BeatGridFromPoints(t.BeatGrid, defaultBeatGridFooter[t.Format]); g.Len() > 0 {
		out[TagBeatGrid] = Pack(TagBeatGrid, t.Format, EncodeBeatGrid(g))
	}

	a, err := DefaultAnalysis(t.Format)
	if err != nil {
		return nil, &TagError{Tag: TagAnalysis, Format: t.Format, Err: err}
	}
	out[TagAnalysis] = Pack(TagAnalysis, t.Format, EncodeAnalysis(a))

	if t.AverageBPM > 0 && t.Loudness != nil {
		at := AutoTags{BPM: t.AverageBPM, AutoGain: t.Loudness.AutoGain, GainDB: t.Loudness.GainDB}
		out[TagAutoTags] = Pack(TagAutoTags, t.Format, EncodeAutoTags(at))
	}
	return out, nil
}
