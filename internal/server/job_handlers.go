package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/dj-cue-converter/internal/job"
)

// getJobStatus handles retrieving the status of a job
//
//	@Summary		Get job status
//	@Description	Retrieves the current status, progress and warnings of a conversion job by ID
//	@Tags			Jobs
//	@Produce		json
//	@Param			id	path		string			true	"Job ID"
//	@Success		200	{object}	job.Status		"Job status retrieved successfully"
//	@Failure		404	{object}	ErrorResponse	"Job not found"
//	@Router			/api/v1/jobs/{id} [get]
func (s *Server) getJobStatus(c *gin.Context) {
	jobID := c.Param("id")

	jobStatus, err := s.jobManager.GetJob(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("%v: %s", job.ErrNotFound, jobID)})
		return
	}

	c.JSON(http.StatusOK, jobStatus)
}

// cancelJob handles cancelling a job
//
//	@Summary		Cancel a job
//	@Description	Cancels a running or pending conversion job by ID
//	@Tags			Jobs
//	@Produce		json
//	@Param			id	path		string			true	"Job ID"
//	@Success		200	{object}	MessageResponse	"Job cancelled successfully"
//	@Failure		404	{object}	ErrorResponse	"Job not found"
//	@Failure		400	{object}	ErrorResponse	"Job cannot be cancelled (invalid state)"
//	@Router			/api/v1/jobs/{id} [delete]
func (s *Server) cancelJob(c *gin.Context) {
	jobID := c.Param("id")

	if err := s.jobManager.CancelJob(jobID); err != nil {
		switch {
		case isNotFound(err):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("%v: %s", job.ErrNotFound, jobID)})
		case errors.Is(err, job.ErrInvalidState):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Job cancelled"})
}

// listJobs handles listing all jobs
//
//	@Summary		List all jobs
//	@Description	Retrieves a paginated list of conversion jobs, newest first
//	@Tags			Jobs
//	@Produce		json
//	@Param			page		query		int				false	"Page number"						default(1)
//	@Param			pageSize	query		int				false	"Number of jobs per page (max 100)"	default(10)
//	@Success		200			{object}	job.Response	"Jobs retrieved successfully"
//	@Router			/api/v1/jobs [get]
func (s *Server) listJobs(c *gin.Context) {
	page := 1
	pageSize := job.DefaultPageSize

	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	if ps := c.Query("pageSize"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 && parsed <= job.MaxPageSize {
			pageSize = parsed
		}
	}

	c.JSON(http.StatusOK, s.jobManager.ListJobs(page, pageSize))
}

// downloadResult streams the converted playlist of a completed job
//
//	@Summary		Download converted playlist
//	@Tags			Downloads
//	@Produce		application/octet-stream
//	@Param			id	path		string			true	"Job ID"
//	@Success		200	{file}		file			"Converted playlist document"
//	@Failure		400	{object}	ErrorResponse	"Job is not completed yet"
//	@Failure		404	{object}	ErrorResponse	"Job not found"
//	@Router			/api/v1/jobs/{id}/download [get]
func (s *Server) downloadResult(c *gin.Context) {
	jobID := c.Param("id")

	jobStatus, err := s.jobManager.GetJob(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("%v: %s", job.ErrNotFound, jobID)})
		return
	}
	if jobStatus.Status != job.StatusCompleted || len(jobStatus.Results) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Job is not completed yet"})
		return
	}

	result := jobStatus.Results[0]
	r, err := s.storage.GetReader(result)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("output not available: %v", err)})
		return
	}
	defer r.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(result)))
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	io.Copy(c.Writer, r)
}
