package traktor

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jaki95/dj-cue-converter/internal/domain"
)

type nml struct {
	XMLName    xml.Name `xml:"NML"`
	Version    int      `xml:"VERSION,attr"`
	Head       head     `xml:"HEAD"`
	Collection struct {
		Entries int        `xml:"ENTRIES,attr"`
		Tracks  []entryXML `xml:"ENTRY"`
	} `xml:"COLLECTION"`
	Sets struct {
		Entries int `xml:"ENTRIES,attr"`
	} `xml:"SETS"`
	Playlists struct {
		Root folderNode `xml:"NODE"`
	} `xml:"PLAYLISTS"`
}

type head struct {
	Company string `xml:"COMPANY,attr"`
	Program string `xml:"PROGRAM,attr"`
}

type entryXML struct {
	ModifiedDate string       `xml:"MODIFIED_DATE,attr"`
	Lock         int          `xml:"LOCK,attr"`
	Title        string       `xml:"TITLE,attr"`
	Artist       string       `xml:"ARTIST,attr"`
	Location     locationXML  `xml:"LOCATION"`
	Album        albumXML     `xml:"ALBUM"`
	Info         infoXML      `xml:"INFO"`
	Tempo        *tempoXML    `xml:"TEMPO"`
	Loudness     *loudnessXML `xml:"LOUDNESS"`
	MusicalKey   *keyXML      `xml:"MUSICAL_KEY"`
	Cues         []cueXML     `xml:"CUE_V2"`
}

type locationXML struct {
	Dir    string `xml:"DIR,attr"`
	File   string `xml:"FILE,attr"`
	Volume string `xml:"VOLUME,attr"`
}

type albumXML struct {
	Track int    `xml:"TRACK,attr,omitempty"`
	Title string `xml:"TITLE,attr"`
}

type infoXML struct {
	BitRate     int    `xml:"BITRATE,attr"`
	Genre       string `xml:"GENRE,attr,omitempty"`
	Label       string `xml:"LABEL,attr,omitempty"`
	Comment     string `xml:"COMMENT,attr,omitempty"`
	Composer    string `xml:"COMPOSER,attr,omitempty"`
	Remixer     string `xml:"REMIXER,attr,omitempty"`
	Mix         string `xml:"MIX,attr,omitempty"`
	PlayCount   int    `xml:"PLAYCOUNT,attr,omitempty"`
	PlayTime    int    `xml:"PLAYTIME,attr"`
	PlayTimeF   string `xml:"PLAYTIME_FLOAT,attr"`
	Ranking     int    `xml:"RANKING,attr,omitempty"`
	ImportDate  string `xml:"IMPORT_DATE,attr"`
	ReleaseDate string `xml:"RELEASE_DATE,attr,omitempty"`
	FileSize    int64  `xml:"FILESIZE,attr"`
}

type tempoXML struct {
	BPM        string `xml:"BPM,attr"`
	BPMQuality string `xml:"BPM_QUALITY,attr"`
}

type loudnessXML struct {
	PeakDB      string `xml:"PEAK_DB,attr"`
	PerceivedDB string `xml:"PERCEIVED_DB,attr"`
	AnalyzedDB  string `xml:"ANALYZED_DB,attr"`
}

type keyXML struct {
	Value int `xml:"VALUE,attr"`
}

type cueXML struct {
	Name         string   `xml:"NAME,attr"`
	DisplayOrder int      `xml:"DISPL_ORDER,attr"`
	Type         int      `xml:"TYPE,attr"`
	Start        string   `xml:"START,attr"`
	Len          string   `xml:"LEN,attr"`
	Repeats      int      `xml:"REPEATS,attr"`
	HotCue       int      `xml:"HOTCUE,attr"`
	Grid         *gridXML `xml:"GRID"`
}

type gridXML struct {
	BPM string `xml:"BPM,attr"`
}

type folderNode struct {
	Type     string `xml:"TYPE,attr"`
	Name     string `xml:"NAME,attr"`
	Subnodes struct {
		Count int            `xml:"COUNT,attr"`
		Nodes []playlistNode `xml:"NODE"`
	} `xml:"SUBNODES"`
}

type playlistNode struct {
	Type     string `xml:"TYPE,attr"`
	Name     string `xml:"NAME,attr"`
	Playlist struct {
		Entries int             `xml:"ENTRIES,attr"`
		Type    string          `xml:"TYPE,attr"`
		UUID    string          `xml:"UUID,attr"`
		Tracks  []playlistEntry `xml:"ENTRY"`
	} `xml:"PLAYLIST"`
}

type playlistEntry struct {
	PrimaryKey struct {
		Type string `xml:"TYPE,attr"`
		Key  string `xml:"KEY,attr"`
	} `xml:"PRIMARYKEY"`
}

// Writer renders playlists as an NML document.
type Writer struct {
	// Volume names the drive of paths that carry none, as Traktor shows
	// it on macOS ("Macintosh HD").
	Volume string
	Now    func() time.Time
}

func NewWriter(volume string) *Writer {
	return &Writer{Volume: volume, Now: time.Now}
}

// Write encodes pl. Track times must already be in Traktor time.
func (w *Writer) Write(out io.Writer, pl *domain.Playlist) error {
	doc := nml{
		Version: Version,
		Head:    head{Company: "www.native-instruments.com", Program: "Traktor"},
	}
	doc.Collection.Entries = len(pl.Tracks)

	list := playlistNode{Type: "PLAYLIST", Name: pl.Name}
	list.Playlist.Entries = len(pl.Tracks)
	list.Playlist.Type = "LIST"
	list.Playlist.UUID = strings.ReplaceAll(uuid.NewString(), "-", "")

	for _, t := range pl.Tracks {
		e := w.entry(t)
		doc.Collection.Tracks = append(doc.Collection.Tracks, e)

		var pe playlistEntry
		pe.PrimaryKey.Type = "TRACK"
		pe.PrimaryKey.Key = primaryKey(e.Location.Volume, e.Location.Dir, e.Location.File)
		list.Playlist.Tracks = append(list.Playlist.Tracks, pe)
	}

	doc.Playlists.Root = folderNode{Type: "FOLDER", Name: "$ROOT"}
	doc.Playlists.Root.Subnodes.Count = 1
	doc.Playlists.Root.Subnodes.Nodes = []playlistNode{list}

	if _, err := io.WriteString(out, `<?xml version="1.0" encoding="UTF-8" standalone="no" ?>`+"\n"); err != nil {
		return err
	}
	enc := xml.NewEncoder(out)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode NML: %w", err)
	}
	return enc.Close()
}

func (w *Writer) entry(t *domain.Track) entryXML {
	now := w.Now()
	e := entryXML{
		ModifiedDate: now.Format(dateLayout),
		Title:        t.Title,
		Artist:       t.Artist,
		Album:        albumXML{Track: t.TrackNumber, Title: t.Album},
		Info: infoXML{
			BitRate:    t.BitRate,
			Genre:      t.Genre,
			Label:      t.Label,
			Comment:    t.Comments,
			Composer:   t.Composer,
			Remixer:    t.Remixer,
			Mix:        t.Mix,
			PlayCount:  t.PlayCount,
			PlayTime:   int(math.Round(t.TotalTime)),
			PlayTimeF:  strconv.FormatFloat(t.TotalTime, 'f', 6, 64),
			Ranking:    min(max(t.Rating, 0), 5) * rankingStep,
			ImportDate: now.Format(dateLayout),
			FileSize:   t.Size / 1024,
		},
	}
	if t.Locked {
		e.Lock = 1
	}
	vol, dir, file := location(t.Location, w.Volume)
	e.Location = locationXML{Dir: dir, File: file, Volume: vol}

	if t.DateAdded != nil {
		e.Info.ImportDate = t.DateAdded.Format(dateLayout)
	}
	if t.ReleaseDate != nil {
		e.Info.ReleaseDate = t.ReleaseDate.Format(dateLayout)
	}
	if t.AverageBPM > 0 {
		e.Tempo = &tempoXML{BPM: formatFloat(t.AverageBPM), BPMQuality: formatFloat(100)}
	}
	if t.Loudness != nil {
		db := formatFloat(t.Loudness.AutoGain)
		e.Loudness = &loudnessXML{PeakDB: formatFloat(0), PerceivedDB: db, AnalyzedDB: db}
	}
	if open, ok := domain.OpenKey(t.Tonality); ok {
		if n, ok := domain.OpenKeyNumber(open); ok {
			e.MusicalKey = &keyXML{Value: n}
		}
	}

	for _, p := range t.BeatGrid {
		e.Cues = append(e.Cues, cueXML{
			Name:    "AutoGrid",
			Type:    cueTypeGrid,
			Start:   formatFloat(p.Position * 1000),
			Len:     formatFloat(0),
			Repeats: -1,
			HotCue:  -1,
			Grid:    &gridXML{BPM: formatFloat(p.BPM)},
		})
	}
	for _, m := range t.Markers {
		length := 0.0
		if m.End != nil {
			length = (*m.End - m.Start) * 1000
		}
		name := m.Name
		if name == "" {
			name = "n.n."
		}
		e.Cues = append(e.Cues, cueXML{
			Name:    name,
			Type:    cueTypes[m.Kind],
			Start:   formatFloat(m.Start * 1000),
			Len:     formatFloat(length),
			Repeats: -1,
			HotCue:  m.Index,
		})
	}
	return e
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
