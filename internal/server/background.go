package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaki95/dj-cue-converter/internal/convert"
	"github.com/jaki95/dj-cue-converter/internal/domain"
	"github.com/jaki95/dj-cue-converter/internal/job"
	"github.com/jaki95/dj-cue-converter/internal/progress"
	"github.com/jaki95/dj-cue-converter/internal/storage"
)

// jobTimeout bounds a single conversion.
const jobTimeout = 10 * time.Minute

// convertInBackground runs one conversion job and records its outcome
func (s *Server) convertInBackground(ctx context.Context, jobID, inputPath string, trans domain.Transformation, req job.Request) {
	slog.Info("Starting conversion", "jobId", jobID, "input", req.Input, "transformation", fmt.Sprintf("%s -> %s", trans.Source, trans.Target))

	// Add timeout to prevent jobs from hanging indefinitely
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	tracker := progress.NewProgressTracker()
	tracker.AddListener(func(event progress.Event) {
		if err := s.jobManager.UpdateJobProgress(jobID, event); err != nil {
			slog.Debug("Dropped progress event", "jobId", jobID, "error", err)
		}
	})

	output, warnings, err := s.runConversion(ctx, inputPath, trans, req, tracker)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Warn("Job cancelled", "jobId", jobID)
			return
		}
		slog.Error("Job failed", "jobId", jobID, "error", err)
		if ferr := s.jobManager.FailJob(jobID, err); ferr != nil {
			slog.Debug("Job already finished", "jobId", jobID, "error", ferr)
		}
		return
	}

	if err := s.jobManager.CompleteJob(jobID, []string{output}, warnings); err != nil {
		slog.Warn("Job finished after cancellation", "jobId", jobID, "error", err)
		return
	}
	slog.Info("Job completed", "jobId", jobID, "output", output, "warnings", len(warnings))
}

func (s *Server) runConversion(ctx context.Context, inputPath string, trans domain.Transformation, req job.Request, tracker *progress.ProgressTracker) (string, []domain.Warning, error) {
	in, err := s.storage.GetReader(inputPath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	output, renamed, err := s.storage.OutputPath(req.Output, convert.Extension(trans.Target.Software))
	if err != nil {
		return "", nil, err
	}
	out, err := s.storage.GetWriter(output)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create output: %w", err)
	}

	result, err := s.converter.Convert(ctx, in, out, req.Name, trans, tracker)
	if err != nil {
		if aerr := storage.Abort(out); aerr != nil {
			slog.Warn("Failed to discard partial output", "output", output, "error", aerr)
		}
		return "", nil, err
	}
	if err := out.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to store output: %w", err)
	}

	warnings := result.Warnings
	if renamed {
		warnings = append(warnings, domain.Warning{
			Kind:    domain.WarnOutputRenamed,
			Path:    output,
			Message: fmt.Sprintf("%s already exists", req.Output+convert.Extension(trans.Target.Software)),
		})
	}
	return output, warnings, nil
}
