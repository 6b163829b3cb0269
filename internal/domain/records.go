package domain

import (
	"encoding/json"
	"time"
)

// Website is a connected WordPress site.
type Website struct {
	ID          string
	Name        string
	URL         string
	Username    string
	AppPassword string
	CreatedAt   time.Time
}

func (w *Website) HasCredentials() bool {
	return w != nil && w.Username != "" && w.AppPassword != ""
}

// Content is a locally stored HTML document. Version increments on every
// body update and guards against lost updates.
type Content struct {
	ID        string
	Title     string
	Body      string
	Images    []string
	Version   int
	UpdatedAt time.Time
}

// MetadataAudit records one metadata operation against one image.
type MetadataAudit struct {
	ID        string
	ImageID   string
	WebsiteID string
	ContentID string
	UserID    string
	Action    Action
	Options   json.RawMessage
	Success   bool
	Message   string
	CreatedAt time.Time
}

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// BatchJob is an asynchronously executed batch request.
type BatchJob struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	Status    JobStatus    `json:"status"`
	Request   BatchRequest `json:"request"`
	Result    *BatchResult `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// JobMessage is the broker payload announcing a queued job.
type JobMessage struct {
	JobID  string `json:"jobId"`
	UserID string `json:"userId"`
}

const (
	AnonymousUser = "anonymous"
	ArchivePrefix = "processed/"
)
