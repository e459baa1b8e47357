package traktor

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/jaki95/dj-cue-converter/internal/domain"
)

// Reader loads playlists from an NML document.
type Reader struct {
	// Anchor and Relative relocate track files, see domain.Relocate.
	Anchor    string
	Relative  string
	// ReadAudio, when set, reads stream properties from the audio files.
	ReadAudio domain.AudioReader
	Reporter  domain.Reporter
}

// Read returns the playlist called name. Track times are in Traktor time.
func (r *Reader) Read(in io.Reader, name string) (*domain.Playlist, error) {
	rep := r.Reporter
	if rep == nil {
		rep = domain.Discard
	}

	doc, err := xmlquery.Parse(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	root := xmlquery.FindOne(doc, "/NML")
	if root == nil {
		return nil, fmt.Errorf("%w: no NML element", ErrInvalidDocument)
	}
	version, err := strconv.Atoi(root.SelectAttr("VERSION"))
	if err != nil {
		return nil, fmt.Errorf("%w: missing VERSION", ErrInvalidDocument)
	}

	var node *xmlquery.Node
	for _, n := range xmlquery.Find(root, "//NODE[@TYPE='PLAYLIST']") {
		if n.SelectAttr("NAME") != name {
			continue
		}
		if node != nil {
			return nil, fmt.Errorf("%w: %s", ErrPlaylistAmbiguous, name)
		}
		node = n
	}
	if node == nil {
		return nil, fmt.Errorf("%w: %s", ErrPlaylistNotFound, name)
	}
	list := xmlquery.FindOne(node, "PLAYLIST[@TYPE='LIST']")
	if list == nil {
		return nil, fmt.Errorf("%w: playlist %s has no entry list", ErrInvalidDocument, name)
	}
	coll := root.SelectElement("COLLECTION")
	if coll == nil {
		return nil, fmt.Errorf("%w: no COLLECTION element", ErrInvalidDocument)
	}

	byKey := make(map[string]*xmlquery.Node)
	for _, e := range coll.SelectElements("ENTRY") {
		loc := e.SelectElement("LOCATION")
		if loc == nil {
			continue
		}
		byKey[primaryKey(loc.SelectAttr("VOLUME"), loc.SelectAttr("DIR"), loc.SelectAttr("FILE"))] = e
	}

	pl := &domain.Playlist{Name: name}
	for _, k := range xmlquery.Find(list, "ENTRY/PRIMARYKEY") {
		e, ok := byKey[k.SelectAttr("KEY")]
		if !ok {
			continue
		}
		t, err := r.track(e, version, rep)
		if err != nil {
			rep.Warn(domain.Warning{Kind: domain.WarnSkippedTrack, Path: k.SelectAttr("KEY"), Message: err.Error()})
			continue
		}
		pl.Tracks = append(pl.Tracks, t)
	}

	if n, err := strconv.Atoi(list.SelectAttr("ENTRIES")); err == nil && n != len(pl.Tracks) {
		rep.Warn(domain.Warning{
			Kind:    domain.WarnPlaylist,
			Path:    name,
			Message: fmt.Sprintf("found %d of %d playlist entries", len(pl.Tracks), n),
		})
	}
	return pl, nil
}

func (r *Reader) track(e *xmlquery.Node, version int, rep domain.Reporter) (*domain.Track, error) {
	loc := e.SelectElement("LOCATION")
	if loc == nil || loc.SelectAttr("FILE") == "" {
		return nil, errors.New("incomplete location")
	}
	path := pathFromLocation(loc.SelectAttr("VOLUME"), loc.SelectAttr("DIR"), loc.SelectAttr("FILE"))
	t := domain.NewTrack(domain.Relocate(path, r.Anchor, r.Relative))
	if t.Format == domain.FormatUnknown {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, path)
	}
	t.DataSource = domain.DataSource{Software: domain.SoftwareTraktor, Version: []int{version}}
	t.Title = e.SelectAttr("TITLE")
	t.Artist = e.SelectAttr("ARTIST")
	t.Locked = e.SelectAttr("LOCK") == "1"

	if album := e.SelectElement("ALBUM"); album != nil {
		t.Album = album.SelectAttr("TITLE")
		t.TrackNumber = attrInt(album, "TRACK")
	}
	if info := e.SelectElement("INFO"); info != nil {
		t.Genre = info.SelectAttr("GENRE")
		t.Label = info.SelectAttr("LABEL")
		t.Comments = info.SelectAttr("COMMENT")
		t.Composer = info.SelectAttr("COMPOSER")
		t.Remixer = info.SelectAttr("REMIXER")
		t.Mix = info.SelectAttr("MIX")
		t.PlayCount = attrInt(info, "PLAYCOUNT")
		t.Rating = attrInt(info, "RANKING") / rankingStep
		if br := attrInt(info, "BITRATE"); br > 0 {
			t.BitRate = br
		}
		t.TotalTime = attrFloat(info, "PLAYTIME_FLOAT")
		if t.TotalTime == 0 {
			t.TotalTime = attrFloat(info, "PLAYTIME")
		}
		t.DateAdded = parseDate(info.SelectAttr("IMPORT_DATE"))
		t.ReleaseDate = parseDate(info.SelectAttr("RELEASE_DATE"))
	}
	if tempo := e.SelectElement("TEMPO"); tempo != nil {
		t.AverageBPM = attrFloat(tempo, "BPM")
	}
	if l := e.SelectElement("LOUDNESS"); l != nil && l.SelectAttr("PERCEIVED_DB") != "" {
		t.Loudness = &domain.Loudness{AutoGain: attrFloat(l, "PERCEIVED_DB")}
	}
	if mk := e.SelectElement("MUSICAL_KEY"); mk != nil {
		t.Tonality = classicKey(mk.SelectAttr("VALUE"))
	}

	for _, c := range e.SelectElements("CUE_V2") {
		typ, err := strconv.Atoi(c.SelectAttr("TYPE"))
		if err != nil {
			continue
		}
		start := attrFloat(c, "START") / 1000
		if typ == cueTypeGrid {
			grid := c.SelectElement("GRID")
			if grid == nil {
				continue
			}
			t.BeatGrid = append(t.BeatGrid, domain.BeatGridPoint{
				Position: start,
				BPM:      attrFloat(grid, "BPM"),
				Meter:    domain.DefaultMeter,
			})
			continue
		}
		kind, ok := kindFromCueType(typ)
		if !ok {
			rep.Warn(domain.Warning{
				Kind:    domain.WarnUnsupported,
				Path:    t.Location,
				Message: fmt.Sprintf("cue type %d ignored", typ),
			})
			continue
		}
		m := domain.Marker{
			Name:  c.SelectAttr("NAME"),
			Start: start,
			Kind:  kind,
			Index: -1,
		}
		if m.Name == "n.n." {
			m.Name = ""
		}
		if n, err := strconv.Atoi(c.SelectAttr("HOTCUE")); err == nil {
			m.Index = n
		}
		if length := attrFloat(c, "LEN"); length != 0 {
			end := start + length/1000
			m.End = &end
		}
		t.Markers = append(t.Markers, m)
	}

	if r.ReadAudio != nil {
		a, err := r.ReadAudio(t.Location)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			rep.Warn(domain.Warning{Kind: domain.WarnMissingFile, Path: t.Location, Message: "audio file not found"})
		case err != nil:
			slog.Debug("failed to read audio file", "path", t.Location, "error", err)
		default:
			t.ApplyAudio(a)
		}
	}
	return t, nil
}

// classicKey converts a MUSICAL_KEY value to classic notation.
func classicKey(v string) string {
	n, err := strconv.Atoi(v)
	if err != nil {
		return ""
	}
	open, ok := domain.OpenKeyFromNumber(n)
	if !ok {
		slog.Debug("unknown musical key value", "value", v)
		return ""
	}
	classic, _ := domain.ClassicFromOpenKey(open)
	return classic
}

func attrInt(n *xmlquery.Node, name string) int {
	v, _ := strconv.Atoi(n.SelectAttr(name))
	return v
}

func attrFloat(n *xmlquery.Node, name string) float64 {
	v, _ := strconv.ParseFloat(n.SelectAttr(name), 64)
	return v
}

func parseDate(s string) *time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &d
}
