// Package convert moves a playlist with its cues, loops and beat grids from
// one DJ program's library format to another's.
package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jaki95/dj-cue-converter/internal/domain"
	"github.com/jaki95/dj-cue-converter/internal/normalize"
	"github.com/jaki95/dj-cue-converter/internal/progress"
	"github.com/jaki95/dj-cue-converter/internal/rekordbox"
	"github.com/jaki95/dj-cue-converter/internal/tagio"
	"github.com/jaki95/dj-cue-converter/internal/traktor"
)

// PlaylistReader loads the playlist called name from a library document.
type PlaylistReader interface {
	Read(in io.Reader, name string) (*domain.Playlist, error)
}

// PlaylistWriter renders a playlist as a library document.
type PlaylistWriter interface {
	Write(out io.Writer, pl *domain.Playlist) error
}

// Options configure a Converter.
type Options struct {
	// Anchor and Relative relocate track files, see domain.Relocate.
	Anchor   string
	Relative string
	// Overwrite decides whether existing Serato tags are replaced.
	Overwrite tagio.Overwrite
	// Volume is the Traktor volume name written into locations.
	Volume      string
	Calibration *normalize.Calibration
}

// Converter runs conversions. It is safe to use from several goroutines
// as long as each call gets its own tracker.
type Converter struct {
	opts Options

	readAudio domain.AudioReader
	load      TrackLoader
	store     TagWriter
	now       func() time.Time
}

func NewConverter(opts Options) *Converter {
	if opts.Overwrite == "" {
		opts.Overwrite = tagio.OverwriteNever
	}
	if opts.Calibration == nil {
		opts.Calibration = normalize.NewCalibration(nil)
	}
	return &Converter{
		opts:      opts,
		readAudio: readAudio,
		load:      tagio.ReadTrack,
		store:     tagio.Write,
		now:       time.Now,
	}
}

func readAudio(path string) (*domain.Track, error) {
	f, err := tagio.Read(path)
	if err != nil {
		return nil, err
	}
	return f.Track, nil
}

// Result is the outcome of one conversion.
type Result struct {
	Playlist *domain.Playlist `json:"playlist"`
	Warnings []domain.Warning `json:"warnings"`
}

// Convert reads the playlist called name from in, moves every track from
// source to target time and writes it to out. tracker may be nil.
func (c *Converter) Convert(ctx context.Context, in io.Reader, out io.Writer, name string, trans domain.Transformation, tracker *progress.ProgressTracker) (*Result, error) {
	if tracker == nil {
		tracker = progress.NewProgressTracker()
	}
	collector := domain.NewCollector()

	reader, err := c.reader(trans.Source.Software, collector)
	if err != nil {
		return nil, c.fail(tracker, err)
	}
	writer, err := c.writer(trans.Target, collector)
	if err != nil {
		return nil, c.fail(tracker, err)
	}

	tracker.UpdateProgress(progress.StageReading, 0, fmt.Sprintf("Reading %s playlist %q", trans.Source.Software, name))
	pl, err := reader.Read(in, name)
	if err != nil {
		return nil, c.fail(tracker, fmt.Errorf("failed to read playlist: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return nil, c.fail(tracker, err)
	}

	norm := normalize.NewNormalizer(c.opts.Calibration, collector)
	converted := &domain.Playlist{Name: pl.Name, Tracks: make([]*domain.Track, 0, len(pl.Tracks))}
	total := len(pl.Tracks)
	tracker.UpdateProgress(progress.StageConverting, progress.ConvertStart, fmt.Sprintf("Converting %d tracks", total))
	for i, t := range pl.Tracks {
		if err := ctx.Err(); err != nil {
			return nil, c.fail(tracker, err)
		}
		tracker.UpdateTrackProgress(progress.TrackDetails{
			TrackNumber:  i + 1,
			TotalTracks:  total,
			CurrentTrack: trackLabel(t),
			Location:     t.Location,
		}, len(collector.Warnings()))
		converted.Tracks = append(converted.Tracks, c.convertTrack(norm, t, trans))
	}

	tracker.UpdateProgress(progress.StageWriting, progress.ConvertEnd, fmt.Sprintf("Writing %s playlist", trans.Target.Software))
	if err := writer.Write(out, converted); err != nil {
		return nil, c.fail(tracker, fmt.Errorf("failed to write playlist: %w", err))
	}

	warnings := collector.Warnings()
	tracker.UpdateProgress(progress.StageComplete, 100, fmt.Sprintf("Converted %d tracks", len(converted.Tracks)))
	slog.Info("converted playlist", "name", name, "transformation", fmt.Sprintf("%s -> %s", trans.Source, trans.Target), "tracks", len(converted.Tracks), "warnings", len(warnings))
	return &Result{Playlist: converted, Warnings: warnings}, nil
}

// convertTrack works on a copy; the input track is left untouched.
func (c *Converter) convertTrack(norm *normalize.Normalizer, t *domain.Track, trans domain.Transformation) *domain.Track {
	out := t.Clone()
	norm.Normalize(out, trans)
	if trans.Target.Software != domain.SoftwareSerato {
		out.Markers = normalize.ReindexLoops(out.Markers, trans)
	}
	norm.Denormalize(out, trans)
	return out
}

func (c *Converter) fail(tracker *progress.ProgressTracker, err error) error {
	tracker.SetError(err)
	return err
}

func (c *Converter) reader(sw domain.Software, r domain.Reporter) (PlaylistReader, error) {
	switch sw {
	case domain.SoftwareSerato:
		return &CrateReader{Anchor: c.opts.Anchor, Relative: c.opts.Relative, Load: c.load, Reporter: r}, nil
	case domain.SoftwareRekordbox:
		return &rekordbox.Reader{Anchor: c.opts.Anchor, Relative: c.opts.Relative, ReadAudio: c.readAudio, Reporter: r}, nil
	case domain.SoftwareTraktor:
		return &traktor.Reader{Anchor: c.opts.Anchor, Relative: c.opts.Relative, ReadAudio: c.readAudio, Reporter: r}, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedSoftware, sw)
	}
}

func (c *Converter) writer(target domain.SoftwareInfo, r domain.Reporter) (PlaylistWriter, error) {
	switch target.Software {
	case domain.SoftwareSerato:
		return &CrateWriter{Overwrite: c.opts.Overwrite, Store: c.store, Reporter: r}, nil
	case domain.SoftwareRekordbox:
		w := rekordbox.NewWriter(target.Version)
		w.Now = c.now
		return w, nil
	case domain.SoftwareTraktor:
		w := traktor.NewWriter(c.opts.Volume)
		w.Now = c.now
		return w, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedSoftware, target.Software)
	}
}

// Extension is the file extension of a program's playlist documents.
func Extension(sw domain.Software) string {
	switch sw {
	case domain.SoftwareSerato:
		return ".crate"
	case domain.SoftwareTraktor:
		return ".nml"
	default:
		return ".xml"
	}
}

func trackLabel(t *domain.Track) string {
	switch {
	case t.Artist != "" && t.Title != "":
		return t.Artist + " - " + t.Title
	case t.Title != "":
		return t.Title
	default:
		return t.Location
	}
}
