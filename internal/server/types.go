package server

// MessageResponse represents a generic message payload used for success responses.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents a generic error payload used for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConvertResponse is returned when a conversion job was accepted.
type ConvertResponse struct {
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

// FilesResponse lists the playlist documents available for conversion.
type FilesResponse struct {
	Files []string `json:"files"`
}
