package progress

import (
	"encoding/json"
	"sync"
	"time"
)

// Stage represents the current stage of a conversion
type Stage string

const (
	StageInitializing Stage = "initializing"
	StageReading      Stage = "reading"
	StageConverting   Stage = "converting"
	StageWriting      Stage = "writing"
	StageComplete     Stage = "complete"
	StageError        Stage = "error"
)

// Overall percentages at which track conversion starts and ends. Reading
// the source document comes before, writing the target after.
const (
	ConvertStart = 10.0
	ConvertEnd   = 90.0
)

// Event represents a progress event
type Event struct {
	Stage        Stage         `json:"stage"`
	Progress     float64       `json:"progress"`
	Message      string        `json:"message"`
	Timestamp    time.Time     `json:"timestamp"`
	TrackDetails *TrackDetails `json:"trackDetails,omitempty"`
	Warnings     int           `json:"warnings"`
	Error        string        `json:"error,omitempty"`
}

// TrackDetails describes the track being converted
type TrackDetails struct {
	TrackNumber  int    `json:"trackNumber"`
	TotalTracks  int    `json:"totalTracks"`
	CurrentTrack string `json:"currentTrack"`
	Location     string `json:"location,omitempty"`
}

type listener struct {
	id int
	fn func(Event)
}

// ProgressTracker follows one conversion and fans its events out to
// listeners. Listeners run synchronously on the converting goroutine and
// may call back into the tracker.
type ProgressTracker struct {
	mu           sync.Mutex
	stage        Stage
	progress     float64
	message      string
	trackDetails *TrackDetails
	warnings     int
	err          error
	listeners    []listener
	nextID       int
}

// NewProgressTracker creates a new ProgressTracker instance
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{stage: StageInitializing}
}

// AddListener registers a listener and returns a function that removes it.
func (pt *ProgressTracker) AddListener(fn func(Event)) (remove func()) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	id := pt.nextID
	pt.nextID++
	pt.listeners = append(pt.listeners, listener{id: id, fn: fn})

	return func() {
		pt.mu.Lock()
		defer pt.mu.Unlock()
		for i, l := range pt.listeners {
			if l.id == id {
				pt.listeners = append(pt.listeners[:i:i], pt.listeners[i+1:]...)
				return
			}
		}
	}
}

// UpdateProgress moves the conversion to a new stage. Track details of the
// previous stage are cleared.
func (pt *ProgressTracker) UpdateProgress(stage Stage, progress float64, message string) {
	pt.mu.Lock()
	pt.stage = stage
	pt.progress = progress
	pt.message = message
	pt.trackDetails = nil
	event := pt.eventLocked()
	pt.mu.Unlock()

	pt.notify(event)
}

// UpdateTrackProgress reports that track d.TrackNumber of d.TotalTracks is
// being converted and that warnings have been reported so far. The overall
// progress is spread between ConvertStart and ConvertEnd.
func (pt *ProgressTracker) UpdateTrackProgress(d TrackDetails, warnings int) {
	pt.mu.Lock()
	pt.stage = StageConverting
	if d.TotalTracks > 0 {
		done := float64(d.TrackNumber-1) / float64(d.TotalTracks)
		pt.progress = ConvertStart + (ConvertEnd-ConvertStart)*min(max(done, 0), 1)
	}
	pt.message = "Converting " + d.CurrentTrack
	pt.trackDetails = &d
	pt.warnings = warnings
	event := pt.eventLocked()
	pt.mu.Unlock()

	pt.notify(event)
}

// SetError marks the conversion as failed and notifies all listeners
func (pt *ProgressTracker) SetError(err error) {
	pt.mu.Lock()
	pt.stage = StageError
	pt.err = err
	pt.message = err.Error()
	event := pt.eventLocked()
	pt.mu.Unlock()

	pt.notify(event)
}

// GetCurrentState returns the current progress state
func (pt *ProgressTracker) GetCurrentState() Event {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.eventLocked()
}

func (pt *ProgressTracker) eventLocked() Event {
	event := Event{
		Stage:     pt.stage,
		Progress:  pt.progress,
		Message:   pt.message,
		Timestamp: time.Now(),
		Warnings:  pt.warnings,
	}
	if pt.trackDetails != nil {
		d := *pt.trackDetails
		event.TrackDetails = &d
	}
	if pt.err != nil {
		event.Error = pt.err.Error()
	}
	return event
}

func (pt *ProgressTracker) notify(event Event) {
	pt.mu.Lock()
	listeners := make([]listener, len(pt.listeners))
	copy(listeners, pt.listeners)
	pt.mu.Unlock()

	for _, l := range listeners {
		l.fn(event)
	}
}

// MarshalJSON implements json.Marshaler for Event
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	return json.Marshal(&struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Timestamp: e.Timestamp.Format(time.RFC3339),
		Alias:     (*Alias)(&e),
	})
}

// UnmarshalJSON implements json.Unmarshaler for Event
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, aux.Timestamp)
	if err != nil {
		return err
	}
	e.Timestamp = t
	return nil
}
