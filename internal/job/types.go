package job

import (
	"context"
	"time"

	"github.com/jaki95/dj-cue-converter/internal/domain"
	"github.com/jaki95/dj-cue-converter/internal/progress"
)

// Status represents the current state of a conversion job
type Status struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	Progress  float64          `json:"progress"`
	Message   string           `json:"message"`
	Error     string           `json:"error,omitempty"`
	Results   []string         `json:"results,omitempty"`
	Warnings  []domain.Warning `json:"warnings,omitempty"`
	Events    []progress.Event `json:"events"`
	StartTime time.Time        `json:"start_time"`
	EndTime   *time.Time       `json:"end_time,omitempty"`
	Request   Request          `json:"request"`

	cancelFunc context.CancelFunc
}

// Request represents the request body for converting a playlist
type Request struct {
	// Input is the playlist document in storage.
	Input         string `json:"input" binding:"required"`
	Source        string `json:"source"`
	SourceVersion string `json:"source_version,omitempty"`
	Target        string `json:"target"`
	TargetVersion string `json:"target_version,omitempty"`
	// Name selects the playlist inside the document.
	Name string `json:"name"`
	// Output is the name of the converted document; derived from Input
	// when empty.
	Output string `json:"output,omitempty"`
}

// Response represents the response for job listings
type Response struct {
	Jobs       []*Status `json:"jobs"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalJobs  int       `json:"total_jobs"`
	TotalPages int       `json:"total_pages"`
}

// Constants for job status
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Constants for progress percentages
const (
	ProgressStart    = 0
	ProgressComplete = 100
)

// Constants for pagination
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// maxEvents bounds the progress events kept per job.
const maxEvents = 200
