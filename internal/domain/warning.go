package domain

import (
	"fmt"
	"log/slog"
	"sync"
)

// WarningKind classifies recoverable data quality issues.
type WarningKind string

const (
	WarnUnknownEncoder   WarningKind = "unknown_encoder"
	WarnNegativeBeatGrid WarningKind = "negative_beatgrid"
	WarnBeatGridFooter   WarningKind = "beatgrid_footer"
	WarnMissingFile      WarningKind = "missing_file"
	WarnSkippedTrack     WarningKind = "skipped_track"
	WarnTagDecode        WarningKind = "tag_decode"
	WarnUnsupported      WarningKind = "unsupported"
	WarnPlaylist         WarningKind = "playlist"
	WarnOutputRenamed    WarningKind = "output_renamed"
)

// Warning is surfaced to the caller but never aborts processing.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Path    string      `json:"path,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Path == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s: %s: %s", w.Kind, w.Path, w.Message)
}

// Reporter receives warnings.
type Reporter interface {
	Warn(w Warning)
}

// Discard drops every warning.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Warn(Warning) {}

// Collector accumulates the warnings of one conversion. Missing-file
// warnings are reported once per path.
type Collector struct {
	mu       sync.Mutex
	warnings []Warning
	seen     map[string]struct{}
}

func NewCollector() *Collector {
	return &Collector{seen: make(map[string]struct{})}
}

func (c *Collector) Warn(w Warning) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if w.Kind == WarnMissingFile {
		if _, dup := c.seen[w.Path]; dup {
			return
		}
		c.seen[w.Path] = struct{}{}
	}
	c.warnings = append(c.warnings, w)
	slog.Warn(w.Message, "kind", w.Kind, "path", w.Path)
}

// Warnings returns a copy of the collected warnings in arrival order.
func (c *Collector) Warnings() []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Warning(nil), c.warnings...)
}
