package rekordbox

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/jaki95/dj-cue-converter/internal/color"
	"github.com/jaki95/dj-cue-converter/internal/domain"
)

// Reader loads playlists from a Rekordbox XML document.
type Reader struct {
	// Anchor and Relative relocate track files, see domain.Relocate.
	Anchor    string
	Relative  string
	// ReadAudio, when set, reads stream properties from the audio files.
	ReadAudio domain.AudioReader
	Reporter  domain.Reporter
}

// Read returns the playlist called name. Track times are in Rekordbox
// time.
func (r *Reader) Read(in io.Reader, name string) (*domain.Playlist, error) {
	rep := r.Reporter
	if rep == nil {
		rep = domain.Discard
	}

	doc, err := xmlquery.Parse(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	root := xmlquery.FindOne(doc, "/DJ_PLAYLISTS")
	if root == nil {
		return nil, fmt.Errorf("%w: no DJ_PLAYLISTS element", ErrInvalidDocument)
	}
	prod := root.SelectElement("PRODUCT")
	if prod == nil {
		return nil, fmt.Errorf("%w: no PRODUCT element", ErrInvalidDocument)
	}
	version, err := domain.ParseVersion(prod.SelectAttr("Version"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var list *xmlquery.Node
	for _, n := range xmlquery.Find(root, "//NODE[@Type='1']") {
		if n.SelectAttr("Name") != name {
			continue
		}
		if list != nil {
			return nil, fmt.Errorf("%w: %s", ErrPlaylistAmbiguous, name)
		}
		list = n
	}
	if list == nil {
		return nil, fmt.Errorf("%w: %s", ErrPlaylistNotFound, name)
	}

	keyAttr := "TrackID"
	switch kt := list.SelectAttr("KeyType"); kt {
	case keyTrackID:
	case keyLocation:
		keyAttr = "Location"
	default:
		return nil, fmt.Errorf("%w: playlist key type %q", ErrInvalidDocument, kt)
	}

	coll := root.SelectElement("COLLECTION")
	if coll == nil {
		return nil, fmt.Errorf("%w: no COLLECTION element", ErrInvalidDocument)
	}
	byKey := make(map[string]*xmlquery.Node)
	for _, e := range coll.SelectElements("TRACK") {
		byKey[e.SelectAttr(keyAttr)] = e
	}

	pl := &domain.Playlist{Name: name}
	for _, k := range list.SelectElements("TRACK") {
		e, ok := byKey[k.SelectAttr("Key")]
		if !ok {
			continue
		}
		t, err := r.track(e, version, rep)
		if err != nil {
			rep.Warn(domain.Warning{Kind: domain.WarnSkippedTrack, Path: e.SelectAttr("Location"), Message: err.Error()})
			continue
		}
		pl.Tracks = append(pl.Tracks, t)
	}

	if n, err := strconv.Atoi(list.SelectAttr("Entries")); err == nil && n != len(pl.Tracks) {
		rep.Warn(domain.Warning{
			Kind:    domain.WarnPlaylist,
			Path:    name,
			Message: fmt.Sprintf("found %d of %d playlist entries", len(pl.Tracks), n),
		})
	}
	return pl, nil
}

func (r *Reader) track(e *xmlquery.Node, version [3]int, rep domain.Reporter) (*domain.Track, error) {
	loc, err := pathFromURL(e.SelectAttr("Location"))
	if err != nil {
		return nil, err
	}
	t := domain.NewTrack(domain.Relocate(loc, r.Anchor, r.Relative))
	t.Locked = false
	t.DataSource = domain.DataSource{Software: domain.SoftwareRekordbox, Version: version[:]}

	t.Title = e.SelectAttr("Name")
	t.Artist = e.SelectAttr("Artist")
	t.Composer = e.SelectAttr("Composer")
	t.Album = e.SelectAttr("Album")
	t.Grouping = e.SelectAttr("Grouping")
	t.Genre = e.SelectAttr("Genre")
	t.Comments = e.SelectAttr("Comments")
	t.Remixer = e.SelectAttr("Remixer")
	t.Label = e.SelectAttr("Label")
	t.Mix = e.SelectAttr("Mix")
	t.Size = int64(attrInt(e, "Size"))
	t.TotalTime = attrFloat(e, "TotalTime")
	t.DiscNumber = attrInt(e, "DiscNumber")
	t.TrackNumber = attrInt(e, "TrackNumber")
	t.AverageBPM = attrFloat(e, "AverageBpm")
	t.BitRate = attrInt(e, "BitRate") * 1000
	t.SampleRate = attrFloat(e, "SampleRate")
	t.PlayCount = attrInt(e, "PlayCount")
	t.Rating = attrInt(e, "Rating") / ratingStep
	t.ReleaseDate = parseDate(e.SelectAttr("Year"))
	t.DateAdded = parseDate(e.SelectAttr("DateAdded"))
	if t.Format == domain.FormatUnknown {
		for f, kind := range formatKinds {
			if strings.EqualFold(kind, e.SelectAttr("Kind")) {
				t.Format = f
			}
		}
	}

	t.Tonality = e.SelectAttr("Tonality")
	if classic, ok := domain.ClassicFromAbbrev(t.Tonality); ok {
		t.Tonality = classic
	} else if t.Tonality != "" {
		slog.Debug("tonality not in abbreviated notation", "path", t.Location, "tonality", t.Tonality)
	}
	if c, ok := parseColour(e.SelectAttr("Colour")); ok {
		t.Color = &c
	}

	for _, tp := range e.SelectElements("TEMPO") {
		t.BeatGrid = append(t.BeatGrid, domain.BeatGridPoint{
			Position: attrFloat(tp, "Inizio"),
			BPM:      attrFloat(tp, "Bpm"),
			Meter:    parseMetro(tp.SelectAttr("Metro")),
		})
	}
	for _, pm := range e.SelectElements("POSITION_MARK") {
		m, ok := marker(pm)
		if !ok {
			rep.Warn(domain.Warning{
				Kind:    domain.WarnUnsupported,
				Path:    t.Location,
				Message: fmt.Sprintf("position mark type %q ignored", pm.SelectAttr("Type")),
			})
			continue
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

func marker(pm *xmlquery.Node) (domain.Marker, bool) {
	typ, err := strconv.Atoi(pm.SelectAttr("Type"))
	if err != nil {
		return domain.Marker{}, false
	}
	kind, ok := kindFromMarkType(typ)
	if !ok {
		return domain.Marker{}, false
	}
	m := domain.Marker{
		Name:  pm.SelectAttr("Name"),
		Start: attrFloat(pm, "Start"),
		Kind:  kind,
		Index: -1,
	}
	if n, err := strconv.Atoi(pm.SelectAttr("Num")); err == nil {
		m.Index = n
	}
	if end := pm.SelectAttr("End"); end != "" {
		if v, err := strconv.ParseFloat(end, 64); err == nil {
			m.End = &v
		}
	}
	if pm.SelectAttr("Red") != "" {
		rgb := domain.RGB{
			R: uint8(attrInt(pm, "Red")),
			G: uint8(attrInt(pm, "Green")),
			B: uint8(attrInt(pm, "Blue")),
		}
		m.Color = domain.ColorPtr(color.FromRekordbox(rgb))
	}
	return m, true
}

func attrInt(n *xmlquery.Node, name string) int {
	v, _ := strconv.Atoi(n.SelectAttr(name))
	return v
}

func attrFloat(n *xmlquery.Node, name string) float64 {
	v, _ := strconv.ParseFloat(n.SelectAttr(name), 64)
	return v
}

// parseDate accepts a bare year or a full date.
func parseDate(s string) *time.Time {
	layout := time.DateOnly
	if len(s) == 4 {
		layout = "2006"
	}
	d, err := time.Parse(layout, s)
	if err != nil || d.Year() == 0 {
		return nil
	}
	return &d
}

func parseMetro(s string) domain.Meter {
	b, d, ok := strings.Cut(s, "/")
	if !ok {
		return domain.DefaultMeter
	}
	beats, err1 := strconv.Atoi(b)
	div, err2 := strconv.Atoi(d)
	if err1 != nil || err2 != nil || beats <= 0 || div <= 0 {
		return domain.DefaultMeter
	}
	return domain.Meter{Beats: beats, Division: div}
}

func parseColour(s string) (domain.RGB, bool) {
	if len(s) != 8 || !strings.HasPrefix(s, "0x") {
		return domain.RGB{}, false
	}
	v, err := strconv.ParseUint(s[2:], 16, 32)
	if err != nil {
		return domain.RGB{}, false
	}
	return domain.RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true
}
