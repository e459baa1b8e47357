package convert

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/jaki95/dj-cue-converter/internal/domain"
	"github.com/jaki95/dj-cue-converter/internal/serato"
	"github.com/jaki95/dj-cue-converter/internal/serato/crate"
	"github.com/jaki95/dj-cue-converter/internal/tagio"
)

// TrackLoader reads an audio file together with its Serato tags.
type TrackLoader func(path string, r domain.Reporter) (*domain.Track, error)

// TagWriter stores Serato tag values and metadata in the audio file of t.
type TagWriter func(t *domain.Track, blobs map[serato.Tag][]byte, policy tagio.Overwrite, r domain.Reporter) error

// CrateReader reads a Serato crate. The cues of every track come from the
// tags of its audio file, so each listed file is opened.
type CrateReader struct {
	Anchor   string
	Relative string
	Load     TrackLoader
	Reporter domain.Reporter
}

// Read ignores name: a crate file holds exactly one playlist.
func (c *CrateReader) Read(in io.Reader, name string) (*domain.Playlist, error) {
	rep := reporterOrDiscard(c.Reporter)
	load := c.Load
	if load == nil {
		load = tagio.ReadTrack
	}

	fields, err := crate.Read(in)
	if err != nil {
		return nil, err
	}

	pl := &domain.Playlist{Name: name}
	for _, stored := range crate.TrackPaths(fields) {
		loc := domain.ResolveLocation(stored, c.Anchor, c.Relative)
		t, err := load(loc, rep)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			rep.Warn(domain.Warning{Kind: domain.WarnMissingFile, Path: loc, Message: "audio file not found"})
			continue
		case err != nil:
			rep.Warn(domain.Warning{Kind: domain.WarnSkippedTrack, Path: loc, Message: err.Error()})
			continue
		}
		pl.Tracks = append(pl.Tracks, t)
	}
	slog.Debug("read crate", "name", name, "tracks", len(pl.Tracks))
	return pl, nil
}

// CrateWriter writes a Serato crate and stores the cues of every track in
// its audio file.
type CrateWriter struct {
	Overwrite tagio.Overwrite
	Store     TagWriter
	Reporter  domain.Reporter
}

// Write lists every track in the crate even when its tags could not be
// stored; the failure is reported.
func (c *CrateWriter) Write(out io.Writer, pl *domain.Playlist) error {
	rep := reporterOrDiscard(c.Reporter)
	store := c.Store
	if store == nil {
		store = tagio.Write
	}

	paths := make([]string, 0, len(pl.Tracks))
	for _, t := range pl.Tracks {
		paths = append(paths, t.Location)

		blobs, err := serato.WriteTags(t)
		if err != nil {
			rep.Warn(domain.Warning{Kind: domain.WarnSkippedTrack, Path: t.Location, Message: err.Error()})
			continue
		}
		if err := store(t, blobs, c.Overwrite, rep); err != nil {
			kind := domain.WarnSkippedTrack
			switch {
			case errors.Is(err, tagio.ErrWriteUnsupported):
				kind = domain.WarnUnsupported
			case errors.Is(err, fs.ErrNotExist):
				kind = domain.WarnMissingFile
			}
			rep.Warn(domain.Warning{Kind: kind, Path: t.Location, Message: fmt.Sprintf("tags not written: %v", err)})
		}
	}
	return crate.Write(out, crate.New(paths))
}

// CrateName is the playlist name Serato shows for a crate file.
func CrateName(filename string) string {
	base := filename
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, ".crate")
	return strings.ReplaceAll(base, "%%", "/")
}

func reporterOrDiscard(r domain.Reporter) domain.Reporter {
	if r == nil {
		return domain.Discard
	}
	return r
}
