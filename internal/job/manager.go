package job

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaki95/dj-cue-converter/internal/domain"
	"github.com/jaki95/dj-cue-converter/internal/progress"
)

// Manager handles job management
type Manager struct {
	mu   sync.RWMutex
	jobs map[string]*Status
}

// NewManager creates a new job manager
func NewManager() *Manager {
	return &Manager{
		jobs: make(map[string]*Status),
	}
}

// CreateJob creates a new job
func (m *Manager) CreateJob(req Request) (*Status, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())

	job := &Status{
		ID:         uuid.NewString(),
		Status:     StatusPending,
		Progress:   ProgressStart,
		Message:    "Job created",
		Events:     make([]progress.Event, 0),
		StartTime:  time.Now(),
		Request:    req,
		cancelFunc: cancel,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()
	return job, ctx
}

// GetJob returns a snapshot of a job by ID
func (m *Manager) GetJob(jobID string) (*Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return job.snapshot(), nil
}

func (s *Status) snapshot() *Status {
	c := *s
	c.Results = append([]string(nil), s.Results...)
	c.Warnings = append([]domain.Warning(nil), s.Warnings...)
	c.Events = append([]progress.Event(nil), s.Events...)
	return &c
}

// UpdateJobProgress records a progress event; finished jobs are left alone
func (m *Manager) UpdateJobProgress(jobID string, event progress.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if job.finished() {
		return nil
	}

	if job.Status == StatusPending {
		job.Status = StatusProcessing
	}
	job.Progress = min(max(event.Progress, ProgressStart), ProgressComplete)
	if event.Message != "" {
		job.Message = event.Message
	}
	job.Events = append(job.Events, event)
	if len(job.Events) > maxEvents {
		job.Events = job.Events[len(job.Events)-maxEvents:]
	}
	return nil
}

// CompleteJob marks a job as completed with its outputs
func (m *Manager) CompleteJob(jobID string, results []string, warnings []domain.Warning) error {
	return m.finish(jobID, func(job *Status) {
		job.Status = StatusCompleted
		job.Progress = ProgressComplete
		job.Message = fmt.Sprintf("Conversion completed with %d warnings", len(warnings))
		job.Results = results
		job.Warnings = warnings
	})
}

// FailJob marks a job as failed
func (m *Manager) FailJob(jobID string, err error) error {
	return m.finish(jobID, func(job *Status) {
		job.Status = StatusFailed
		job.Message = "Conversion failed"
		job.Error = err.Error()
	})
}

func (m *Manager) finish(jobID string, apply func(*Status)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if job.finished() {
		return fmt.Errorf("%w: %s", ErrInvalidState, job.Status)
	}
	apply(job)
	endTime := time.Now()
	job.EndTime = &endTime
	job.cancelFunc()
	return nil
}

func (s *Status) finished() bool {
	return s.Status != StatusPending && s.Status != StatusProcessing
}

// CancelJob cancels a job
func (m *Manager) CancelJob(jobID string) error {
	return m.finish(jobID, func(job *Status) {
		job.Status = StatusCancelled
		job.Message = "Job cancelled by user"
	})
}

// ListJobs lists all jobs with pagination, newest first
func (m *Manager) ListJobs(page, pageSize int) *Response {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	m.mu.RLock()
	jobs := make([]*Status, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job.snapshot())
	}
	m.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.After(jobs[j].StartTime)
	})

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(jobs))
	resp := &Response{
		Jobs:       []*Status{},
		Page:       page,
		PageSize:   pageSize,
		TotalJobs:  len(jobs),
		TotalPages: (len(jobs) + pageSize - 1) / pageSize,
	}
	if start < len(jobs) {
		resp.Jobs = jobs[start:end]
	}
	return resp
}
