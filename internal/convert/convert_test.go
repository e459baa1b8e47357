package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/dj-cue-converter/internal/domain"
	"github.com/jaki95/dj-cue-converter/internal/progress"
	"github.com/jaki95/dj-cue-converter/internal/serato"
	"github.com/jaki95/dj-cue-converter/internal/serato/crate"
	"github.com/jaki95/dj-cue-converter/internal/tagio"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestConverter(opts Options) *Converter {
	c := NewConverter(opts)
	c.now = func() time.Time { return fixedNow }
	c.readAudio = func(path string) (*domain.Track, error) {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}
	c.load = func(path string, r domain.Reporter) (*domain.Track, error) {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}
	c.store = func(*domain.Track, map[serato.Tag][]byte, tagio.Overwrite, domain.Reporter) error {
		return nil
	}
	return c
}

func transformation(src, dst domain.Software) domain.Transformation {
	return domain.Transformation{
		Source: domain.SoftwareInfo{Software: src},
		Target: domain.SoftwareInfo{Software: dst, Version: [3]int{7, 1, 3}},
	}
}

func end(v float64) *float64 { return &v }

const rekordboxSet = `<?xml version="1.0" encoding="UTF-8"?>
<DJ_PLAYLISTS Version="1.0.0">
  <PRODUCT Name="rekordbox" Version="7.1.3" Company="AlphaTheta"/>
  <COLLECTION Entries="2">
    <TRACK TrackID="1" Name="Alpha" Artist="DJ" Kind="MP3 File" Location="file://localhost/Music/a.mp3">
      <POSITION_MARK Name="drop" Type="0" Start="1.000" Num="0"/>
    </TRACK>
    <TRACK TrackID="2" Name="Beta" Kind="MP4 File" Location="file://localhost/Music/b.m4a"/>
  </COLLECTION>
  <PLAYLISTS>
    <NODE Type="0" Name="ROOT" Count="1">
      <NODE Name="Set" Type="1" KeyType="0" Entries="2">
        <TRACK Key="1"/>
        <TRACK Key="2"/>
      </NODE>
    </NODE>
  </PLAYLISTS>
</DJ_PLAYLISTS>`

func TestConvertRekordboxToTraktorShiftsEncoderOffset(t *testing.T) {
	c := newTestConverter(Options{})
	c.readAudio = func(path string) (*domain.Track, error) {
		a := domain.NewTrack(path)
		a.DataSource.Encoder = &domain.Encoder{Text: "Lavf58.29.100"}
		return a, nil
	}

	var out bytes.Buffer
	tracker := progress.NewProgressTracker()
	res, err := c.Convert(context.Background(), strings.NewReader(rekordboxSet), &out, "Set",
		transformation(domain.SoftwareRekordbox, domain.SoftwareTraktor), tracker)
	require.NoError(t, err)

	require.Len(t, res.Playlist.Tracks, 2)
	assert.InDelta(t, 1.016, res.Playlist.Tracks[0].Markers[0].Start, 1e-9)
	assert.Contains(t, out.String(), `START="1016.000000"`)
	assert.Contains(t, out.String(), `TITLE="Alpha"`)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, progress.StageComplete, tracker.GetCurrentState().Stage)
}

func TestConvertSeratoToRekordboxReindexesLoops(t *testing.T) {
	src := domain.NewTrack("/Music/a.mp3")
	src.Title = "Alpha"
	src.Markers = []domain.Marker{
		{Kind: domain.MarkerCue, Index: 0, Start: 1},
		{Kind: domain.MarkerLoop, Index: 0, Start: 2, End: end(4)},
	}

	c := newTestConverter(Options{})
	c.load = func(path string, r domain.Reporter) (*domain.Track, error) {
		if path == src.Location {
			return src, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}

	data, err := crate.Encode(crate.New([]string{"/Music/a.mp3", "/Music/gone.mp3"}))
	require.NoError(t, err)

	var out bytes.Buffer
	res, err := c.Convert(context.Background(), bytes.NewReader(data), &out, "Warmup",
		transformation(domain.SoftwareSerato, domain.SoftwareRekordbox), nil)
	require.NoError(t, err)

	require.Len(t, res.Playlist.Tracks, 1)
	assert.Equal(t, 7, res.Playlist.Tracks[0].Markers[1].Index)
	assert.Equal(t, 0, src.Markers[1].Index, "input track must not change")
	assert.Contains(t, out.String(), `Start="2.000" End="4.000" Num="7"`)
	assert.Contains(t, out.String(), `<NODE Type="1" Name="Warmup"`)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.WarnMissingFile, res.Warnings[0].Kind)
	assert.Equal(t, "/Music/gone.mp3", res.Warnings[0].Path)
}

func TestConvertSeratoToSeratoKeepsLoopIndices(t *testing.T) {
	src := domain.NewTrack("/Music/a.mp3")
	src.Markers = []domain.Marker{{Kind: domain.MarkerLoop, Index: 2, Start: 2, End: end(4)}}

	var stored []*domain.Track
	c := newTestConverter(Options{})
	c.load = func(string, domain.Reporter) (*domain.Track, error) { return src, nil }
	c.store = func(t *domain.Track, _ map[serato.Tag][]byte, _ tagio.Overwrite, _ domain.Reporter) error {
		stored = append(stored, t)
		return nil
	}

	data, err := crate.Encode(crate.New([]string{src.Location}))
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = c.Convert(context.Background(), bytes.NewReader(data), &out, "Set",
		transformation(domain.SoftwareSerato, domain.SoftwareSerato), nil)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 2, stored[0].Markers[0].Index)
}

func TestConvertRekordboxToSeratoWritesTags(t *testing.T) {
	type call struct {
		path   string
		policy tagio.Overwrite
		tags   []serato.Tag
	}
	var calls []call

	c := newTestConverter(Options{Overwrite: tagio.OverwriteAlways})
	c.store = func(t *domain.Track, blobs map[serato.Tag][]byte, policy tagio.Overwrite, _ domain.Reporter) error {
		cl := call{path: t.Location, policy: policy}
		for tag := range blobs {
			cl.tags = append(cl.tags, tag)
		}
		calls = append(calls, cl)
		if t.Format == domain.FormatM4A {
			return fmt.Errorf("%w: %s", tagio.ErrWriteUnsupported, t.Format)
		}
		return nil
	}

	var out bytes.Buffer
	res, err := c.Convert(context.Background(), strings.NewReader(rekordboxSet), &out, "Set",
		transformation(domain.SoftwareRekordbox, domain.SoftwareSerato), nil)
	require.NoError(t, err)

	require.Len(t, calls, 2)
	assert.Equal(t, "/Music/a.mp3", calls[0].path)
	assert.Equal(t, tagio.OverwriteAlways, calls[0].policy)
	assert.Contains(t, calls[0].tags, serato.TagMarkers2)
	assert.Contains(t, calls[0].tags, serato.TagMarkers)

	fields, err := crate.Read(&out)
	require.NoError(t, err)
	assert.Equal(t, []string{"Music/a.mp3", "Music/b.m4a"}, crate.TrackPaths(fields))

	var kinds []domain.WarningKind
	for _, w := range res.Warnings {
		kinds = append(kinds, w.Kind)
	}
	assert.Contains(t, kinds, domain.WarnUnsupported)
}

func TestConvertCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tracker := progress.NewProgressTracker()
	_, err := newTestConverter(Options{}).Convert(ctx, strings.NewReader(rekordboxSet), &bytes.Buffer{}, "Set",
		transformation(domain.SoftwareRekordbox, domain.SoftwareTraktor), tracker)
	require.ErrorIs(t, err, context.Canceled)

	state := tracker.GetCurrentState()
	assert.Equal(t, progress.StageError, state.Stage)
	assert.NotEmpty(t, state.Error)
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		trans domain.Transformation
		want  error
	}{
		{
			name:  "unknown source",
			input: rekordboxSet,
			trans: transformation("virtualdj", domain.SoftwareTraktor),
			want:  domain.ErrUnsupportedSoftware,
		},
		{
			name:  "unknown target",
			input: rekordboxSet,
			trans: transformation(domain.SoftwareRekordbox, "virtualdj"),
			want:  domain.ErrUnsupportedSoftware,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestConverter(Options{}).Convert(context.Background(), strings.NewReader(tt.input), &bytes.Buffer{}, "Set", tt.trans, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("missing playlist", func(t *testing.T) {
		_, err := newTestConverter(Options{}).Convert(context.Background(), strings.NewReader(rekordboxSet), &bytes.Buffer{}, "Nope",
			transformation(domain.SoftwareRekordbox, domain.SoftwareTraktor), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read playlist")
	})
}

func TestCrateWriterReportsTagFailures(t *testing.T) {
	c := domain.NewCollector()
	w := &CrateWriter{
		Store: func(*domain.Track, map[serato.Tag][]byte, tagio.Overwrite, domain.Reporter) error {
			return errors.New("disk full")
		},
		Reporter: c,
	}
	pl := &domain.Playlist{Tracks: []*domain.Track{
		domain.NewTrack("/Music/a.flac"),
		domain.NewTrack("/Music/notes.txt"),
	}}

	var out bytes.Buffer
	require.NoError(t, w.Write(&out, pl))

	fields, err := crate.Read(&out)
	require.NoError(t, err)
	assert.Equal(t, []string{"Music/a.flac", "Music/notes.txt"}, crate.TrackPaths(fields))

	warnings := c.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, domain.WarnSkippedTrack, warnings[0].Kind)
	assert.Contains(t, warnings[0].Message, "disk full")
	assert.Equal(t, domain.WarnSkippedTrack, warnings[1].Kind)
}

func TestCrateReaderAnchor(t *testing.T) {
	data, err := crate.Encode(crate.New([]string{"/Users/dj/Music/a.mp3"}))
	require.NoError(t, err)

	var loaded []string
	r := &CrateReader{
		Anchor:   "/mnt/usb",
		Relative: "Users/dj",
		Load: func(path string, _ domain.Reporter) (*domain.Track, error) {
			loaded = append(loaded, path)
			return domain.NewTrack(path), nil
		},
	}
	pl, err := r.Read(bytes.NewReader(data), "Set")
	require.NoError(t, err)
	require.Len(t, pl.Tracks, 1)
	assert.Equal(t, []string{"/mnt/usb/Music/a.mp3"}, loaded)
}

func TestCrateName(t *testing.T) {
	assert.Equal(t, "House/Deep", CrateName("/x/Subcrates/House%%Deep.crate"))
	assert.Equal(t, "Set", CrateName("Set.crate"))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".crate", Extension(domain.SoftwareSerato))
	assert.Equal(t, ".xml", Extension(domain.SoftwareRekordbox))
	assert.Equal(t, ".nml", Extension(domain.SoftwareTraktor))
}
