package tagio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/dj-cue-converter/internal/domain"
	"github.com/jaki95/dj-cue-converter/internal/serato"
)

// mpegFrame returns an MPEG 1 layer III 128 kbps 44.1 kHz stereo frame
// header followed by an Info header and a LAME encoder string.
func mpegFrame(frames uint32, lame string) []byte {
	b := []byte{0xff, 0xfb, 0x90, 0x00}
	b = append(b, make([]byte, 32)...)
	b = append(b, "Info"...)
	b = binary.BigEndian.AppendUint32(b, 0x1)
	b = binary.BigEndian.AppendUint32(b, frames)
	lameBytes := make([]byte, 9)
	copy(lameBytes, lame)
	b = append(b, lameBytes...)
	return append(b, make([]byte, 300)...)
}

func TestParseOverwrite(t *testing.T) {
	tests := []struct {
		in      string
		want    Overwrite
		wantErr bool
	}{
		{"", OverwriteNever, false},
		{"never", OverwriteNever, false},
		{"N", OverwriteNever, false},
		{"always", OverwriteAlways, false},
		{"yes", OverwriteAlways, false},
		{"sometimes", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOverwrite(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncoderFromLAMETag(t *testing.T) {
	enc := encoderFromLAMETag([]byte("LAME3.100"), true)
	require.NotNil(t, enc)
	assert.Equal(t, "LAME 3.100.0+", enc.Text)
	assert.Equal(t, domain.EncoderModeVBR, enc.Mode)

	enc = encoderFromLAMETag([]byte("Lavf58\x00\x00\x00"), false)
	require.NotNil(t, enc)
	assert.Equal(t, "Lavf58", enc.Text)
	assert.Equal(t, domain.EncoderModeCBR, enc.Mode)

	assert.Nil(t, encoderFromLAMETag(make([]byte, 9), false))
}

func TestReadMPEGInfo(t *testing.T) {
	tag := &id3Tag{Major: 4, Audio: mpegFrame(100, "LAME3.100")}
	tag.Set(textFrame(4, "TIT2", "Song"), false)
	data := tag.Bytes()

	f, err := os.CreateTemp(t.TempDir(), "*.mp3")
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	defer f.Close()

	info, err := readMPEGInfo(f, int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, 128000, info.BitRate)
	assert.Equal(t, 44100, info.SampleRate)
	assert.InDelta(t, 100*1152/44100.0, info.Duration, 1e-9)
	require.NotNil(t, info.Encoder)
	assert.Equal(t, "LAME 3.100.0+", info.Encoder.Text)
}

func TestID3RoundTrip(t *testing.T) {
	audio := []byte{0xff, 0xfb, 0x90, 0x00, 1, 2, 3}
	tag, err := parseID3(audio)
	require.NoError(t, err)
	assert.Equal(t, byte(4), tag.Major)
	assert.Empty(t, tag.Frames)

	tag.Set(textFrame(4, "TIT2", "Title"), false)
	tag.Set(geobFrame("Serato Markers2", []byte("payload")), false)
	tag.Set(geobFrame("Serato BeatGrid", []byte{0, 1, 2}), false)

	parsed, err := parseID3(tag.Bytes())
	require.NoError(t, err)
	assert.Equal(t, audio, parsed.Audio)
	require.Len(t, parsed.Frames, 3)
	assert.Equal(t, "TIT2", parsed.Frames[0].ID)
	assert.Equal(t, "Title", decodeText(parsed.Frames[0].Body[0], parsed.Frames[0].Body[1:]))

	g, err := parseGEOB(parsed.Frames[1].Body)
	require.NoError(t, err)
	assert.Equal(t, "Serato Markers2", g.Description)
	assert.Equal(t, geobMIME, g.MIME)
	assert.Empty(t, g.Filename)
	assert.Equal(t, []byte("payload"), g.Data)
}

func TestID3SetKeepsExistingFrames(t *testing.T) {
	tag := &id3Tag{Major: 3}
	assert.True(t, tag.Set(geobFrame("Serato Markers2", []byte("old")), false))
	assert.True(t, tag.Set(geobFrame("Serato BeatGrid", []byte("grid")), true))

	assert.False(t, tag.Set(geobFrame("Serato Markers2", []byte("new")), true))
	g, err := parseGEOB(tag.Frames[0].Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), g.Data)

	assert.True(t, tag.Set(geobFrame("Serato Markers2", []byte("new")), false))
	g, err = parseGEOB(tag.Frames[0].Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), g.Data)
	assert.Len(t, tag.Frames, 2)
}

func TestTextFrameEncodings(t *testing.T) {
	v4 := textFrame(4, "TIT2", "Café")
	assert.Equal(t, byte(3), v4.Body[0])
	assert.Equal(t, "Café", decodeText(3, v4.Body[1:]))

	v3 := textFrame(3, "TIT2", "Café")
	assert.Equal(t, byte(1), v3.Body[0])
	assert.Equal(t, "Café", decodeText(1, v3.Body[1:]))
}

func TestParseID3RejectsOldVersions(t *testing.T) {
	data := []byte{'I', 'D', '3', 2, 0, 0, 0, 0, 0, 0}
	_, err := parseID3(data)
	assert.ErrorIs(t, err, errID3Unsupported)
}

func TestSeratoBlobsMP3(t *testing.T) {
	markers := geobFrame("Serato Markers2", []byte("m2"))
	grid := geobFrame("Serato BeatGrid", []byte("bg"))
	raw := map[string]interface{}{
		"GEOB":   markers.Body,
		"GEOB_1": grid.Body,
		"TIT2":   "Title",
	}
	blobs := seratoBlobs(domain.FormatMP3, raw)
	assert.Equal(t, []byte("m2"), blobs[serato.TagMarkers2])
	assert.Equal(t, []byte("bg"), blobs[serato.TagBeatGrid])
	assert.NotContains(t, blobs, serato.TagAnalysis)
}

func TestSeratoBlobsFLACAndM4A(t *testing.T) {
	flacBlobs := seratoBlobs(domain.FormatFLAC, map[string]interface{}{
		"serato_markers_v2": "YXBwbGljYXRpb24=",
	})
	assert.Equal(t, []byte("YXBwbGljYXRpb24="), flacBlobs[serato.TagMarkers2])

	header := []byte{0, 0, 0, 1, 0, 0, 0, 0}
	m4aBlobs := seratoBlobs(domain.FormatM4A, map[string]interface{}{
		"markersv2": append(header, "body"...),
		"beatgrid":  []byte("grid"),
	})
	assert.Equal(t, []byte("body"), m4aBlobs[serato.TagMarkers2])
	assert.Equal(t, []byte("grid"), m4aBlobs[serato.TagBeatGrid])
}

func TestMP3TextFramesDateByVersion(t *testing.T) {
	d := time.Date(2019, time.March, 4, 0, 0, 0, 0, time.UTC)
	tr := &domain.Track{Title: "T", ReleaseDate: &d, TrackNumber: 3, Comments: "c"}

	ids := func(frames []id3Frame) []string {
		var out []string
		for _, f := range frames {
			out = append(out, f.ID)
		}
		return out
	}
	assert.Equal(t, []string{"TIT2", "TRCK", "TDRC", "COMM"}, ids(mp3TextFrames(tr, 4)))
	assert.Equal(t, []string{"TIT2", "TRCK", "TYER", "COMM"}, ids(mp3TextFrames(tr, 3)))
}

func TestWriteMP3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	existing := &id3Tag{Major: 3, Audio: mpegFrame(10, "LAME3.100")}
	existing.Set(geobFrame("Serato Markers2", []byte("old")), false)
	require.NoError(t, os.WriteFile(path, existing.Bytes(), 0o644))

	tr := domain.NewTrack(path)
	tr.Title = "New Title"
	blobs := map[serato.Tag][]byte{
		serato.TagMarkers2: []byte("new"),
		serato.TagBeatGrid: []byte("grid"),
	}

	c := domain.NewCollector()
	require.NoError(t, Write(tr, blobs, OverwriteNever, c))
	require.Len(t, c.Warnings(), 1)
	assert.Equal(t, domain.WarnUnsupported, c.Warnings()[0].Kind)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tag, err := parseID3(data)
	require.NoError(t, err)
	assert.Equal(t, existing.Audio, tag.Audio)

	got := map[string][]byte{}
	for _, f := range tag.Frames {
		if f.ID == "GEOB" {
			g, err := parseGEOB(f.Body)
			require.NoError(t, err)
			got[g.Description] = g.Data
		}
	}
	assert.Equal(t, []byte("old"), got["Serato Markers2"])
	assert.Equal(t, []byte("grid"), got["Serato BeatGrid"])

	require.NoError(t, Write(tr, blobs, OverwriteAlways, nil))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	tag, err = parseID3(data)
	require.NoError(t, err)
	for _, f := range tag.Frames {
		if f.ID == "GEOB" {
			g, _ := parseGEOB(f.Body)
			if g.Description == "Serato Markers2" {
				assert.Equal(t, []byte("new"), g.Data)
			}
		}
	}
}

func TestWriteM4AUnsupported(t *testing.T) {
	tr := domain.NewTrack("/music/song.m4a")
	err := Write(tr, nil, OverwriteAlways, nil)
	assert.ErrorIs(t, err, ErrWriteUnsupported)
}

func TestReadUnknownFormat(t *testing.T) {
	_, err := Read("/music/cover.jpg")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestWriteMP3KeepsEveryGEOBFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	existing := &id3Tag{Major: 4, Audio: mpegFrame(10, "LAME3.100")}
	descriptions := []string{
		"Serato Analysis", "Serato Autotags", "Serato Markers_",
		"Serato Overview", "Serato BeatGrid", "Other Application",
	}
	for _, d := range descriptions {
		existing.Set(geobFrame(d, []byte(d+" data")), false)
	}
	existing.Set(geobFrame("Serato Markers2", []byte("old")), false)
	require.NoError(t, os.WriteFile(path, existing.Bytes(), 0o644))

	tr := domain.NewTrack(path)
	require.NoError(t, Write(tr, map[serato.Tag][]byte{serato.TagMarkers2: []byte("new")}, OverwriteAlways, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tag, err := parseID3(data)
	require.NoError(t, err)

	got := map[string][]byte{}
	for _, f := range tag.Frames {
		if f.ID != "GEOB" {
			continue
		}
		g, err := parseGEOB(f.Body)
		require.NoError(t, err)
		got[g.Description] = g.Data
	}
	require.Len(t, got, len(descriptions)+1)
	for _, d := range descriptions {
		assert.Equal(t, []byte(d+" data"), got[d], d)
	}
	assert.Equal(t, []byte("new"), got["Serato Markers2"])
}
