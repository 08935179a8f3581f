package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// JobKind enumerates supported generation job categories.
type JobKind string

const (
	JobKindAvatar JobKind = "avatar"
	JobKindVideo  JobKind = "video"
	JobKindEdit   JobKind = "edit"
)

// Valid reports whether the kind is one the platform knows how to submit.
func (k JobKind) Valid() bool {
	switch k {
	case JobKindAvatar, JobKindVideo, JobKindEdit:
		return true
	}
	return false
}

// JobStatus is the normalized job lifecycle state. The external workflow
// system writes several spellings for the same state; raw values must pass
// through ParseStatus at the store-read boundary and are never compared as
// strings anywhere else.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCanceled   JobStatus = "canceled"
	JobStatusUnknown    JobStatus = "unknown"
)

// ParseStatus normalizes a raw status value from the shared store.
func ParseStatus(raw string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "queued":
		return JobStatusPending
	case "processing", "running", "in_progress":
		return JobStatusProcessing
	case "completed", "success", "succeeded", "done":
		return JobStatusSucceeded
	case "failed", "error":
		return JobStatusFailed
	case "canceled", "cancelled":
		return JobStatusCanceled
	}
	return JobStatusUnknown
}

// IsTerminal reports whether no further transitions can occur.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}

// JobMetadata is the free-form bag stored alongside a generation row.
type JobMetadata struct {
	GuestID            string `json:"guest_id,omitempty"`
	SafeMode           *bool  `json:"safe_mode,omitempty"`
	SourceGenerationID string `json:"source_generation_id,omitempty"`
}

// GenerationJob is a row in the shared generations store. The client creates
// it with a pre-assigned id and status processing; every later mutation is
// performed by the external workflow system.
type GenerationJob struct {
	ID           string
	UserID       string
	Kind         JobKind
	RawStatus    string
	Prompt       string
	ImageURL     string // input reference image, not a result
	ResultURL    string
	VideoURL     string
	PlainURL     string
	ErrorMessage string
	Metadata     JobMetadata
	CreatedAt    time.Time
}

// Status returns the normalized lifecycle state.
func (j *GenerationJob) Status() JobStatus {
	return ParseStatus(j.RawStatus)
}

// FinalURL extracts the completion value using the fixed field precedence
// result_url > image_url > video_url > url. ownRow distinguishes the job's
// own row, where image_url holds the user-supplied input and must not be
// mistaken for a result, from a deep-scan candidate row written entirely by
// the external system.
func (j *GenerationJob) FinalURL(ownRow bool) string {
	if j.ResultURL != "" {
		return j.ResultURL
	}
	if !ownRow && j.ImageURL != "" {
		return j.ImageURL
	}
	if j.VideoURL != "" {
		return j.VideoURL
	}
	return j.PlainURL
}

// MarshalMetadata renders the metadata bag for storage.
func (j *GenerationJob) MarshalMetadata() ([]byte, error) {
	return json.Marshal(j.Metadata)
}
