package server

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/dj-cue-converter/config"
	"github.com/jaki95/dj-cue-converter/internal/convert"
	"github.com/jaki95/dj-cue-converter/internal/domain"
	"github.com/jaki95/dj-cue-converter/internal/job"
)

// convertPlaylist godoc
// @Summary Start a playlist conversion
// @Description Submits a job that converts a playlist document from storage into the target program's format.
// @Tags Jobs
// @Accept json
// @Produce json
// @Param request body job.Request true "Conversion parameters"
// @Success 202 {object} ConvertResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/convert [post]
func (s *Server) convertPlaylist(c *gin.Context) {
	var req job.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	trans, err := s.transformation(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("%v: %v", job.ErrInvalidRequest, err)})
		return
	}

	inputPath, err := s.storage.InputPath(req.Input)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("%v: %v", job.ErrInvalidRequest, err)})
		return
	}
	if !s.storage.FileExists(inputPath) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("input not found: %s", req.Input)})
		return
	}

	if req.Name == "" {
		if trans.Source.Software != domain.SoftwareSerato {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("%v: a playlist name is required for %s documents", job.ErrInvalidRequest, trans.Source.Software)})
			return
		}
		req.Name = convert.CrateName(req.Input)
	}
	if req.Output == "" {
		req.Output = outputBase(req.Input)
	}
	req.Output = SanitizeFilename(req.Output)

	jobStatus, ctx := s.jobManager.CreateJob(req)
	go s.convertInBackground(ctx, jobStatus.ID, inputPath, trans, req)

	c.JSON(http.StatusAccepted, ConvertResponse{
		Message: "Conversion started",
		JobID:   jobStatus.ID,
	})
}

// transformation applies the request's programs over the configured ones.
func (s *Server) transformation(req job.Request) (domain.Transformation, error) {
	trans, err := s.cfg.Transformation()
	if err != nil {
		return trans, err
	}
	if req.Source != "" {
		if trans.Source, err = config.SoftwareInfo(req.Source, req.SourceVersion); err != nil {
			return trans, err
		}
	}
	if req.Target != "" {
		if trans.Target, err = config.SoftwareInfo(req.Target, req.TargetVersion); err != nil {
			return trans, err
		}
	}
	return trans, nil
}

// outputBase is the input document name without directory or extension.
func outputBase(input string) string {
	base := path.Base(strings.ReplaceAll(input, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// listFiles godoc
// @Summary List playlist documents
// @Tags Files
// @Produce json
// @Param prefix query string false "File name prefix"
// @Success 200 {object} FilesResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/files [get]
func (s *Server) listFiles(c *gin.Context) {
	files, err := s.storage.ListFiles("", c.Query("prefix"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		if rel, err := filepath.Rel(s.cfg.Storage.DataDir, f); err == nil && !strings.HasPrefix(rel, "..") {
			f = filepath.ToSlash(rel)
		}
		names = append(names, f)
	}
	c.JSON(http.StatusOK, FilesResponse{Files: names})
}

// health godoc
// @Summary Health check
// @Tags Utility
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func isNotFound(err error) bool {
	return errors.Is(err, job.ErrNotFound)
}
