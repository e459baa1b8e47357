package rekordbox

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/jaki95/dj-cue-converter/internal/color"
	"github.com/jaki95/dj-cue-converter/internal/domain"
)

type document struct {
	XMLName    xml.Name   `xml:"DJ_PLAYLISTS"`
	Version    string     `xml:"Version,attr"`
	Product    product    `xml:"PRODUCT"`
	Collection collection `xml:"COLLECTION"`
	Playlists  struct {
		Root node `xml:"NODE"`
	} `xml:"PLAYLISTS"`
}

type product struct {
	Name    string `xml:"Name,attr"`
	Version string `xml:"Version,attr"`
	Company string `xml:"Company,attr"`
}

type collection struct {
	Entries int        `xml:"Entries,attr"`
	Tracks  []trackXML `xml:"TRACK"`
}

type trackXML struct {
	TrackID     string         `xml:"TrackID,attr"`
	Name        string         `xml:"Name,attr"`
	Artist      string         `xml:"Artist,attr"`
	Composer    string         `xml:"Composer,attr"`
	Album       string         `xml:"Album,attr"`
	Grouping    string         `xml:"Grouping,attr"`
	Genre       string         `xml:"Genre,attr"`
	Kind        string         `xml:"Kind,attr"`
	Size        int64          `xml:"Size,attr"`
	TotalTime   int            `xml:"TotalTime,attr"`
	DiscNumber  int            `xml:"DiscNumber,attr"`
	TrackNumber int            `xml:"TrackNumber,attr"`
	Year        string         `xml:"Year,attr"`
	AverageBpm  string         `xml:"AverageBpm,attr"`
	DateAdded   string         `xml:"DateAdded,attr"`
	BitRate     int            `xml:"BitRate,attr"`
	SampleRate  string         `xml:"SampleRate,attr"`
	Comments    string         `xml:"Comments,attr"`
	PlayCount   int            `xml:"PlayCount,attr"`
	Rating      int            `xml:"Rating,attr"`
	Location    string         `xml:"Location,attr"`
	Remixer     string         `xml:"Remixer,attr"`
	Tonality    string         `xml:"Tonality,attr"`
	Label       string         `xml:"Label,attr"`
	Mix         string         `xml:"Mix,attr"`
	Colour      string         `xml:"Colour,attr,omitempty"`
	Tempos      []tempoXML     `xml:"TEMPO"`
	Marks       []positionMark `xml:"POSITION_MARK"`
}

type positionMark struct {
	Name  string `xml:"Name,attr"`
	Type  int    `xml:"Type,attr"`
	Start string `xml:"Start,attr"`
	End   string `xml:"End,attr,omitempty"`
	Num   int    `xml:"Num,attr"`
	Red   *uint8 `xml:"Red,attr,omitempty"`
	Green *uint8 `xml:"Green,attr,omitempty"`
	Blue  *uint8 `xml:"Blue,attr,omitempty"`
}

type tempoXML struct {
	Inizio  string `xml:"Inizio,attr"`
	Bpm     string `xml:"Bpm,attr"`
	Metro   string `xml:"Metro,attr"`
	Battito int    `xml:"Battito,attr"`
}

type node struct {
	Type    string      `xml:"Type,attr"`
	Name    string      `xml:"Name,attr"`
	Count   string      `xml:"Count,attr,omitempty"`
	KeyType string      `xml:"KeyType,attr,omitempty"`
	Entries string      `xml:"Entries,attr,omitempty"`
	Nodes   []node      `xml:"NODE"`
	Tracks  []nodeTrack `xml:"TRACK"`
}

type nodeTrack struct {
	Key string `xml:"Key,attr"`
}

// Writer renders playlists as a Rekordbox XML document.
type Writer struct {
	// Version is written as the PRODUCT version.
	Version [3]int
	// Now dates tracks without a DateAdded.
	Now func() time.Time
}

func NewWriter(version [3]int) *Writer {
	return &Writer{Version: version, Now: time.Now}
}

// Write encodes pl. Track times must already be in Rekordbox time.
func (w *Writer) Write(out io.Writer, pl *domain.Playlist) error {
	doc := document{
		Version: "1.0.0",
		Product: product{
			Name:    "rekordbox",
			Version: fmt.Sprintf("%d.%d.%d", w.Version[0], w.Version[1], w.Version[2]),
			Company: "AlphaTheta",
		},
		Collection: collection{Entries: len(pl.Tracks)},
	}

	list := node{
		Type:    nodePlaylist,
		Name:    pl.Name,
		KeyType: keyTrackID,
		Entries: strconv.Itoa(len(pl.Tracks)),
	}
	for i, t := range pl.Tracks {
		tx := w.track(t, i+1)
		doc.Collection.Tracks = append(doc.Collection.Tracks, tx)
		list.Tracks = append(list.Tracks, nodeTrack{Key: tx.TrackID})
	}
	doc.Playlists.Root = node{Type: nodeFolder, Name: "ROOT", Count: "1", Nodes: []node{list}}

	if _, err := io.WriteString(out, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(out)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode rekordbox XML: %w", err)
	}
	return enc.Close()
}

func (w *Writer) track(t *domain.Track, id int) trackXML {
	tx := trackXML{
		TrackID:     t.TrackID,
		Name:        t.Title,
		Artist:      t.Artist,
		Composer:    t.Composer,
		Album:       t.Album,
		Grouping:    t.Grouping,
		Genre:       t.Genre,
		Kind:        formatKinds[t.Format],
		Size:        t.Size,
		TotalTime:   int(math.Ceil(t.TotalTime)),
		DiscNumber:  t.DiscNumber,
		TrackNumber: t.TrackNumber,
		Year:        "0",
		AverageBpm:  strconv.FormatFloat(t.AverageBPM, 'f', 2, 64),
		BitRate:     t.BitRate / 1000,
		SampleRate:  strconv.FormatFloat(t.SampleRate, 'f', -1, 64),
		Comments:    t.Comments,
		PlayCount:   t.PlayCount,
		Rating:      ratingByte(t.Rating),
		Location:    locationURL(t.Location),
		Remixer:     t.Remixer,
		Tonality:    t.Tonality,
		Label:       t.Label,
		Mix:         t.Mix,
		Colour:      trackColour(t.Color),
	}
	if tx.TrackID == "" {
		tx.TrackID = strconv.Itoa(id)
	}
	if abbrev, ok := domain.AbbrevKey(t.Tonality); ok {
		tx.Tonality = abbrev
	}
	if t.ReleaseDate != nil {
		tx.Year = strconv.Itoa(t.ReleaseDate.Year())
	}
	added := w.Now()
	if t.DateAdded != nil {
		added = *t.DateAdded
	}
	tx.DateAdded = added.Format(time.DateOnly)

	for _, m := range t.Markers {
		tx.Marks = append(tx.Marks, mark(m))
	}
	for i, p := range t.BeatGrid {
		tx.Tempos = append(tx.Tempos, tempoXML{
			Inizio:  formatSeconds(p.Position),
			Bpm:     strconv.FormatFloat(p.BPM, 'f', 2, 64),
			Metro:   fmt.Sprintf("%d/%d", meter(p).Beats, meter(p).Division),
			Battito: battito(t.BeatGrid, i),
		})
	}
	return tx
}

func mark(m domain.Marker) positionMark {
	pm := positionMark{
		Name:  m.Name,
		Type:  markTypes[m.Kind],
		Start: formatSeconds(m.Start),
		Num:   m.Index,
	}
	if m.End != nil {
		pm.End = formatSeconds(*m.End)
	}
	if m.Color != nil {
		rgb := color.RekordboxRGB(*m.Color)
		pm.Red, pm.Green, pm.Blue = &rgb.R, &rgb.G, &rgb.B
	}
	return pm
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

func ratingByte(stars int) int {
	return min(max(stars, 0), 5) * ratingStep
}

// trackColour picks the closest Rekordbox collection color. White is
// Serato's "no color" and is not written.
func trackColour(c *domain.RGB) string {
	if c == nil || *c == domain.White {
		return ""
	}
	best := trackColors[0]
	bestDist := color.Distance(*c, best)
	for _, tc := range trackColors[1:] {
		if d := color.Distance(*c, tc); d < bestDist {
			best, bestDist = tc, d
		}
	}
	return fmt.Sprintf("0x%02X%02X%02X", best.R, best.G, best.B)
}

func meter(p domain.BeatGridPoint) domain.Meter {
	if p.Meter.Beats <= 0 || p.Meter.Division <= 0 {
		return domain.DefaultMeter
	}
	return p.Meter
}

// battito is the beat within the bar (1-based) at which tempo point idx
// starts, counting the beats played since the first point.
func battito(grid []domain.BeatGridPoint, idx int) int {
	if len(grid) == 0 {
		return 1
	}
	perBar := meter(grid[0]).Beats
	var beats float64
	for i := 0; i < idx; i++ {
		beats += grid[i].BPM * (grid[i+1].Position - grid[i].Position) / 60
	}
	return 1 + int(math.Round(beats))%perBar
}
