// Package tagio reads and writes the tags of audio files: the standard
// track metadata and the raw Serato tag blobs stored next to it.
package tagio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"github.com/jaki95/dj-cue-converter/internal/domain"
	"github.com/jaki95/dj-cue-converter/internal/serato"
)

// Overwrite decides what happens to tags that already exist in a file.
type Overwrite string

const (
	OverwriteNever  Overwrite = "never"
	OverwriteAlways Overwrite = "always"
)

// ParseOverwrite accepts the policy names, plus y/n style shorthands.
func ParseOverwrite(s string) (Overwrite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "never", "n", "no":
		return OverwriteNever, nil
	case "always", "y", "yes":
		return OverwriteAlways, nil
	default:
		return "", fmt.Errorf("invalid overwrite policy %q", s)
	}
}

// ErrWriteUnsupported is returned for containers whose tags cannot be
// written.
var ErrWriteUnsupported = errors.New("writing tags is not supported for this format")

// File is the tag content of one audio file.
type File struct {
	Track  *domain.Track
	Serato map[serato.Tag][]byte
}

// Read loads the metadata, stream information and Serato tag blobs of the
// audio file at path.
func Read(path string) (*File, error) {
	t := domain.NewTrack(path)
	if t.Format == domain.FormatUnknown {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat audio file: %w", err)
	}
	t.Size = st.Size()

	m, err := tag.ReadFrom(f)
	if err != nil && !errors.Is(err, tag.ErrNoTagsFound) {
		return nil, fmt.Errorf("failed to read tags of %s: %w", path, err)
	}
	var raw map[string]interface{}
	if m != nil {
		raw = m.Raw()
		fillMetadata(t, m)
	}

	out := &File{Track: t, Serato: seratoBlobs(t.Format, raw)}

	switch t.Format {
	case domain.FormatMP3:
		info, err := readMPEGInfo(f, t.Size)
		if err != nil {
			slog.Debug("no MPEG stream info", "path", path, "error", err)
		}
		t.BitRate, t.SampleRate, t.TotalTime = info.BitRate, float64(info.SampleRate), info.Duration
		t.DataSource.Encoder = mp3Encoder(info.Encoder, raw)
	case domain.FormatFLAC:
		rate, duration, err := flacStreamInfo(path)
		if err != nil {
			slog.Debug("no FLAC stream info", "path", path, "error", err)
		}
		t.SampleRate, t.TotalTime = float64(rate), duration
		if duration > 0 {
			t.BitRate = int(float64(t.Size*8) / duration)
		}
		if enc := rawString(raw, "encodedby", "encoder"); enc != "" {
			t.DataSource.Encoder = &domain.Encoder{Text: enc}
		}
	case domain.FormatM4A:
		if enc := rawString(raw, "\xa9too", "encoder"); enc != "" {
			t.DataSource.Encoder = &domain.Encoder{Text: enc}
		}
	}
	return out, nil
}

// ReadTrack reads an audio file and lifts its Serato tags into the track.
func ReadTrack(path string, r domain.Reporter) (*domain.Track, error) {
	f, err := Read(path)
	if err != nil {
		return nil, err
	}
	serato.ReadTrack(f.Track, f.Serato, r)
	return f.Track, nil
}

func fillMetadata(t *domain.Track, m tag.Metadata) {
	t.Title = m.Title()
	t.Artist = m.Artist()
	t.Album = m.Album()
	t.Composer = m.Composer()
	t.Genre = m.Genre()
	t.Comments = m.Comment()
	t.TrackNumber, _ = m.Track()
	t.DiscNumber, _ = m.Disc()
	if y := m.Year(); y > 0 {
		d := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		t.ReleaseDate = &d
	}

	raw := m.Raw()
	t.Grouping = rawString(raw, "TIT1", "GP1", "grouping", "\xa9grp")
	t.Remixer = rawString(raw, "TPE4", "TP4", "remixer", "mixartist")
	t.Tonality = rawString(raw, "TKEY", "TKE", "initialkey", "key")
	t.Label = rawString(raw, "TPUB", "TPB", "label", "organization", "publisher")
	if pc := rawString(raw, "playcount", "play_count"); pc != "" {
		t.PlayCount, _ = strconv.Atoi(pc)
	}
}

func rawString(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if v != "" {
				return strings.TrimRight(v, "\x00")
			}
		case []string:
			if len(v) > 0 {
				return v[0]
			}
		case []byte:
			if len(v) > 0 {
				return string(v)
			}
		}
	}
	return ""
}

func mp3Encoder(header *domain.Encoder, raw map[string]interface{}) *domain.Encoder {
	if header != nil && strings.HasPrefix(header.Text, "LAME") {
		return header
	}
	if tsse := rawString(raw, "TSSE", "TSS"); tsse != "" {
		mode := domain.EncoderModeUnknown
		if header != nil {
			mode = header.Mode
		}
		return &domain.Encoder{Text: tsse, Mode: mode}
	}
	return header
}

// seratoBlobs collects the raw Serato tag values of a file.
func seratoBlobs(format domain.Format, raw map[string]interface{}) map[serato.Tag][]byte {
	blobs := make(map[serato.Tag][]byte)
	if raw == nil {
		return blobs
	}

	var geobs []geob
	if format == domain.FormatMP3 {
		for k, v := range raw {
			b, ok := v.([]byte)
			if !ok || (k != "GEOB" && !strings.HasPrefix(k, "GEOB_")) {
				continue
			}
			g, err := parseGEOB(b)
			if err != nil {
				slog.Debug("skipping malformed GEOB frame", "key", k, "error", err)
				continue
			}
			geobs = append(geobs, g)
		}
	}

	for _, st := range serato.AllTags() {
		name, ok := st.Name(format)
		if !ok {
			continue
		}
		switch format {
		case domain.FormatMP3:
			frame, desc, _ := strings.Cut(name, ":")
			if frame != "GEOB" {
				continue
			}
			for _, g := range geobs {
				if g.Description == desc {
					blobs[st] = g.Data
					break
				}
			}
		case domain.FormatFLAC:
			if v := rawBytes(raw[name]); v != nil {
				blobs[st] = v
			}
		case domain.FormatM4A:
			key := name[strings.LastIndex(name, ":")+1:]
			if v := rawBytes(raw[key]); v != nil {
				blobs[st] = trimAtomHeader(v)
			}
		}
	}
	return blobs
}

func rawBytes(v interface{}) []byte {
	switch v := v.(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	default:
		return nil
	}
}

// trimAtomHeader drops the type and locale words of an MP4 data atom when
// the reader left them in front of the value.
func trimAtomHeader(b []byte) []byte {
	if len(b) >= 8 && b[0] == 0 && b[1] == 0 && b[4] == 0 && b[5] == 0 {
		return b[8:]
	}
	return b
}

// Write stores the standard metadata of t and the given Serato tag values
// in the audio file at t.Location. Under OverwriteNever tags already
// present in the file are left alone.
func Write(t *domain.Track, blobs map[serato.Tag][]byte, policy Overwrite, r domain.Reporter) error {
	if r == nil {
		r = domain.Discard
	}
	keep := policy != OverwriteAlways
	switch t.Format {
	case domain.FormatMP3:
		return writeMP3(t, blobs, keep, r)
	case domain.FormatFLAC:
		return writeFLAC(t, blobs, keep, r)
	case domain.FormatM4A:
		return fmt.Errorf("%w: %s", ErrWriteUnsupported, t.Format)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, t.Location)
	}
}

func keptExisting(r domain.Reporter, t *domain.Track, name string) {
	r.Warn(domain.Warning{
		Kind:    domain.WarnUnsupported,
		Path:    t.Location,
		Message: fmt.Sprintf("tag %s already present, not overwritten", name),
	})
}

func writeMP3(t *domain.Track, blobs map[serato.Tag][]byte, keep bool, r domain.Reporter) error {
	data, err := os.ReadFile(t.Location)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}
	id3, err := parseID3(data)
	if err != nil {
		return fmt.Errorf("%s: %w", t.Location, err)
	}

	for _, f := range mp3TextFrames(t, id3.Major) {
		id3.Set(f, keep)
	}
	for _, st := range serato.AllTags() {
		blob, ok := blobs[st]
		if !ok {
			continue
		}
		name, _ := st.Name(domain.FormatMP3)
		frame, desc, _ := strings.Cut(name, ":")
		if frame != "GEOB" {
			continue
		}
		if !id3.Set(geobFrame(desc, blob), keep) {
			keptExisting(r, t, name)
		}
	}
	return writeFileAtomic(t.Location, id3.Bytes())
}

func mp3TextFrames(t *domain.Track, major byte) []id3Frame {
	var frames []id3Frame
	add := func(id, v string) {
		if v != "" {
			frames = append(frames, textFrame(major, id, v))
		}
	}
	add("TIT2", t.Title)
	add("TPE1", t.Artist)
	add("TALB", t.Album)
	add("TCOM", t.Composer)
	add("TCON", t.Genre)
	add("TIT1", t.Grouping)
	add("TPE4", t.Remixer)
	add("TKEY", t.Tonality)
	add("TPUB", t.Label)
	if t.TrackNumber > 0 {
		add("TRCK", strconv.Itoa(t.TrackNumber))
	}
	if t.DiscNumber > 0 {
		add("TPOS", strconv.Itoa(t.DiscNumber))
	}
	if t.ReleaseDate != nil {
		if major == 4 {
			add("TDRC", t.ReleaseDate.Format(time.DateOnly))
		} else {
			add("TYER", strconv.Itoa(t.ReleaseDate.Year()))
		}
	}
	if t.Comments != "" {
		frames = append(frames, commentFrame(major, t.Comments))
	}
	return frames
}

func writeFLAC(t *domain.Track, blobs map[serato.Tag][]byte, keep bool, r domain.Reporter) error {
	fc, err := openFLAC(t.Location)
	if err != nil {
		return err
	}

	fields := []struct{ key, value string }{
		{"TITLE", t.Title},
		{"ARTIST", t.Artist},
		{"ALBUM", t.Album},
		{"COMPOSER", t.Composer},
		{"GENRE", t.Genre},
		{"GROUPING", t.Grouping},
		{"REMIXER", t.Remixer},
		{"INITIALKEY", t.Tonality},
		{"LABEL", t.Label},
		{"COMMENT", t.Comments},
	}
	if t.TrackNumber > 0 {
		fields = append(fields, struct{ key, value string }{"TRACKNUMBER", strconv.Itoa(t.TrackNumber)})
	}
	if t.DiscNumber > 0 {
		fields = append(fields, struct{ key, value string }{"DISCNUMBER", strconv.Itoa(t.DiscNumber)})
	}
	if t.ReleaseDate != nil {
		fields = append(fields, struct{ key, value string }{"DATE", t.ReleaseDate.Format(time.DateOnly)})
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if _, err := fc.set(f.key, f.value, keep); err != nil {
			return err
		}
	}

	for _, st := range serato.AllTags() {
		blob, ok := blobs[st]
		if !ok {
			continue
		}
		name, _ := st.Name(domain.FormatFLAC)
		written, err := fc.set(name, string(blob), keep)
		if err != nil {
			return err
		}
		if !written {
			keptExisting(r, t, name)
		}
	}
	return fc.save(t.Location)
}

// writeFileAtomic replaces path through a temporary file in the same
// directory.
func writeFileAtomic(path string, data []byte) error {
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tagio-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), st.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
