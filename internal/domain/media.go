package domain

import (
	"encoding/json"
	"time"
)

// MediaType enumerates the supported generation media kinds.
type MediaType string

const (
	MediaTypeVideo     MediaType = "video"
	MediaTypeImage     MediaType = "image"
	MediaTypeVoiceover MediaType = "voiceover"
	MediaTypeMusic     MediaType = "music"
)

// Valid reports whether the media type is one of the supported kinds.
func (m MediaType) Valid() bool {
	switch m {
	case MediaTypeVideo, MediaTypeImage, MediaTypeVoiceover, MediaTypeMusic:
		return true
	}
	return false
}

// Provider identifies which remote generation API owns a job.
type Provider string

const (
	ProviderFal     Provider = "fal"
	ProviderRunware Provider = "runware"
)

// MediaStatus enumerates the persisted lifecycle states of a media record.
// Transitions are pending -> completed or pending -> failed, never back.
type MediaStatus string

const (
	MediaStatusPending   MediaStatus = "pending"
	MediaStatusCompleted MediaStatus = "completed"
	MediaStatusFailed    MediaStatus = "failed"
)

// Blob holds a downloaded binary payload together with its content type.
type Blob struct {
	Data        []byte
	ContentType string
}

// MediaMetadata carries the cost and task identifier echo attached when a
// job completes.
type MediaMetadata struct {
	Cost     float64 `json:"cost"`
	TaskUUID string  `json:"taskUUID"`
}

// MediaRecord is the durable representation of one generation job.
//
// The record identity is either the provider-issued task identifier
// (runware path, generated locally before the call) or a store-generated
// identifier (fal path, created after submission succeeds). Output and
// Metadata are set if and only if Status is completed. Blob and
// ThumbnailBlob are attached asynchronously after completion and may stay
// absent even for completed records.
type MediaRecord struct {
	ID            string
	ProjectID     string
	CreatedAt     time.Time
	MediaType     MediaType
	Kind          string
	Provider      Provider
	EndpointID    string
	RequestID     string
	TaskUUID      string
	Status        MediaStatus
	Input         map[string]any
	Output        json.RawMessage
	Metadata      *MediaMetadata
	Blob          *Blob
	ThumbnailBlob *Blob
}

// MediaKindGenerated is the only record kind produced by the submission
// path; uploaded media carry a different kind and are managed elsewhere.
const MediaKindGenerated = "generated"
