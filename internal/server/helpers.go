package server

import (
	"log/slog"
	"strings"
	"time"
)

// CleanupInterval is how often partial outputs are swept from storage
const CleanupInterval = 2 * time.Hour

// StartCleanupWorker starts a background worker that removes partial
// outputs left behind by interrupted conversions
func (s *Server) StartCleanupWorker() {
	ticker := time.NewTicker(CleanupInterval)
	go func() {
		defer ticker.Stop()
		for range ticker.C {
			if err := s.storage.Cleanup(); err != nil {
				slog.Error("Storage cleanup failed", "error", err)
			}
		}
	}()
	slog.Info("Cleanup worker started", "interval", CleanupInterval)
}

// SanitizeFilename sanitizes a filename by removing invalid characters
func SanitizeFilename(name string) string {
	// Replace invalid characters with underscores
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", "\n", "\r", "\t"}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}

	// Remove leading and trailing spaces and dots
	result = strings.Trim(result, " .")

	// Ensure the filename is not empty
	if result == "" {
		result = "untitled"
	}

	return result
}
