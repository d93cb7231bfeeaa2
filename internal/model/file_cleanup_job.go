package model

import "time"

// FileCleanupJob asks the cleanup worker to retry removing a stored file.
type FileCleanupJob struct {
	FilePath   string    `json:"file_path"`
	Reason     string    `json:"reason"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
