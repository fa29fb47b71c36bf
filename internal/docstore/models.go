package docstore

import "time"

// Status is the document lifecycle state. A document is created in
// StatusProcessing and moves to exactly one of the terminal states.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// Document is an uploaded reference file and its ingestion state.
type Document struct {
	ID           string
	TenantID     string
	FileRef      string // Opaque reference into binary file storage
	FileName     string
	Status       Status
	ErrorMessage string // Set only for failed documents
	ChunkCount   int    // Set only for ready documents
	CreatedAt    time.Time
	ProcessedAt  *time.Time // Set when the document reaches a terminal state
}
