package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/dj-cue-converter/config"
	"github.com/jaki95/dj-cue-converter/internal/domain"
	"github.com/jaki95/dj-cue-converter/internal/job"
	"github.com/jaki95/dj-cue-converter/internal/storage"
)

const rekordboxDoc = `<?xml version="1.0" encoding="UTF-8"?>
<DJ_PLAYLISTS Version="1.0.0">
  <PRODUCT Name="rekordbox" Version="7.1.3" Company="AlphaTheta"/>
  <COLLECTION Entries="1">
    <TRACK TrackID="1" Name="Alpha" Kind="FLAC File" Location="file://localhost/nowhere/a.flac">
      <POSITION_MARK Name="drop" Type="0" Start="1.000" Num="0"/>
    </TRACK>
  </COLLECTION>
  <PLAYLISTS>
    <NODE Type="0" Name="ROOT" Count="1">
      <NODE Name="Set" Type="1" KeyType="0" Entries="1">
        <TRACK Key="1"/>
      </NODE>
    </NODE>
  </PLAYLISTS>
</DJ_PLAYLISTS>`

func newTestServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DataDir = filepath.Join(root, "data")
	cfg.Storage.OutputDir = filepath.Join(root, "output")
	cfg.Storage.TempDir = filepath.Join(root, "temp")
	cfg.Conversion.Anchor = ""

	store, err := storage.NewLocalFileStorage(cfg.Storage.DataDir, cfg.Storage.OutputDir, cfg.Storage.TempDir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Storage.DataDir, "library.xml"), []byte(rekordboxDoc), 0o644))

	return New(cfg, store), cfg
}

func doRequest(s *Server, method, target string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		data, _ := json.Marshal(b)
		buf.Write(data)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func waitForJob(t *testing.T, s *Server, id string) *job.Status {
	t.Helper()
	var status *job.Status
	require.Eventually(t, func() bool {
		var err error
		status, err = s.jobManager.GetJob(id)
		require.NoError(t, err)
		return status.Status != job.StatusPending && status.Status != job.StatusProcessing
	}, 5*time.Second, 10*time.Millisecond)
	return status
}

func TestHealthCheck(t *testing.T) {
	s, _ := newTestServer(t)
	rr := doRequest(s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
}

func TestConvertRequestValidation(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
	}{
		{
			name:           "valid request",
			requestBody:    job.Request{Input: "library.xml", Source: "rekordbox", Target: "traktor", Name: "Set"},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "missing required fields",
			requestBody:    job.Request{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid json",
			requestBody:    "invalid json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown software",
			requestBody:    job.Request{Input: "library.xml", Source: "virtualdj", Name: "Set"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing playlist name",
			requestBody:    job.Request{Input: "library.xml", Source: "rekordbox", Target: "traktor"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "input outside data dir",
			requestBody:    job.Request{Input: "../library.xml", Source: "rekordbox", Name: "Set"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "input not found",
			requestBody:    job.Request{Input: "missing.xml", Source: "rekordbox", Name: "Set"},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(s, http.MethodPost, "/api/v1/convert", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
		})
	}
}

func TestConvertJobLifecycle(t *testing.T) {
	s, cfg := newTestServer(t)

	rr := doRequest(s, http.MethodPost, "/api/v1/convert", job.Request{
		Input: "library.xml", Source: "rekordbox", Target: "traktor", Name: "Set",
	})
	require.Equal(t, http.StatusAccepted, rr.Code)
	var accepted ConvertResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted.JobID)

	status := waitForJob(t, s, accepted.JobID)
	require.Equal(t, job.StatusCompleted, status.Status, status.Error)
	assert.Equal(t, []string{filepath.Join(cfg.Storage.OutputDir, "library.nml")}, status.Results)
	assert.NotEmpty(t, status.Events)
	require.Len(t, status.Warnings, 1)
	assert.Equal(t, domain.WarnMissingFile, status.Warnings[0].Kind)

	rr = doRequest(s, http.MethodGet, "/api/v1/jobs/"+accepted.JobID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(s, http.MethodGet, "/api/v1/jobs/"+accepted.JobID+"/download", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `<NML VERSION="19">`)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "library.nml")

	rr = doRequest(s, http.MethodDelete, "/api/v1/jobs/"+accepted.JobID, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// A second conversion must not overwrite the first output.
	rr = doRequest(s, http.MethodPost, "/api/v1/convert", job.Request{
		Input: "library.xml", Source: "rekordbox", Target: "traktor", Name: "Set",
	})
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accepted))
	status = waitForJob(t, s, accepted.JobID)
	require.Equal(t, job.StatusCompleted, status.Status, status.Error)
	assert.Equal(t, []string{filepath.Join(cfg.Storage.OutputDir, "library-1.nml")}, status.Results)
	assert.Equal(t, domain.WarnOutputRenamed, status.Warnings[len(status.Warnings)-1].Kind)
}

func TestConvertJobFailure(t *testing.T) {
	s, _ := newTestServer(t)

	rr := doRequest(s, http.MethodPost, "/api/v1/convert", job.Request{
		Input: "library.xml", Source: "rekordbox", Target: "traktor", Name: "Nope",
	})
	require.Equal(t, http.StatusAccepted, rr.Code)
	var accepted ConvertResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accepted))

	status := waitForJob(t, s, accepted.JobID)
	assert.Equal(t, job.StatusFailed, status.Status)
	assert.Contains(t, status.Error, "playlist not found")

	rr = doRequest(s, http.MethodGet, "/api/v1/jobs/"+accepted.JobID+"/download", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestJobEndpointsNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		method   string
		endpoint string
	}{
		{http.MethodGet, "/api/v1/jobs/non-existent-job"},
		{http.MethodDelete, "/api/v1/jobs/non-existent-job"},
		{http.MethodGet, "/api/v1/jobs/non-existent-job/download"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.endpoint, func(t *testing.T) {
			rr := doRequest(s, tt.method, tt.endpoint, nil)
			assert.Equal(t, http.StatusNotFound, rr.Code)
		})
	}
}

func TestListJobs(t *testing.T) {
	s, _ := newTestServer(t)
	s.jobManager.CreateJob(job.Request{Input: "library.xml"})

	rr := doRequest(s, http.MethodGet, "/api/v1/jobs?page=1&pageSize=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var response job.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, 1, response.TotalJobs)
	assert.Equal(t, 5, response.PageSize)
	assert.Len(t, response.Jobs, 1)
}

func TestListFiles(t *testing.T) {
	s, _ := newTestServer(t)

	rr := doRequest(s, http.MethodGet, "/api/v1/files", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var response FilesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, []string{"library.xml"}, response.Files)

	rr = doRequest(s, http.MethodGet, "/api/v1/files?prefix=zzz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Empty(t, response.Files)
}

func TestOutputBase(t *testing.T) {
	assert.Equal(t, "library", outputBase("exports/library.xml"))
	assert.Equal(t, "House%%Deep", outputBase(`Subcrates\House%%Deep.crate`))
	assert.Equal(t, "set", outputBase("set"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Normal Set Name", "Normal Set Name"},
		{"Set/With\\Slash", "Set_With_Slash"},
		{"Set:With*Special?Chars", "Set_With_Special_Chars"},
		{"  Spaced Set  ", "Spaced Set"},
		{"Set<>With|Pipes", "Set__With_Pipes"},
		{"...", "untitled"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}
