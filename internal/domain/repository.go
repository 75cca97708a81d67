package domain

import (
	"context"
	"encoding/json"
)

// MediaStore defines persistence for media records.
//
// Settling a record's status and attaching downloaded binaries are separate
// operations on purpose: blob attachment runs on a detached best-effort path
// after completion and must not be able to touch the status column.
type MediaStore interface {
	// Create inserts a new record. It fails with ErrDuplicateKey if the
	// identifier is already taken.
	Create(ctx context.Context, rec *MediaRecord) (*MediaRecord, error)

	// MarkFailed transitions the record to the failed status. It fails
	// with ErrNotFound if the identifier is absent.
	MarkFailed(ctx context.Context, id string) error

	// MarkCompleted transitions the record to the completed status and
	// stores the provider result payload and metadata.
	MarkCompleted(ctx context.Context, id string, output json.RawMessage, meta MediaMetadata) error

	// AttachBlob stores the downloaded binary payload for a record
	// without touching its status.
	AttachBlob(ctx context.Context, id string, blob *Blob) error

	// AttachThumbnail stores the derived thumbnail for a video record.
	AttachThumbnail(ctx context.Context, id string, blob *Blob) error

	GetByID(ctx context.Context, id string) (*MediaRecord, error)
	ListByProject(ctx context.Context, projectID string) ([]MediaRecord, error)
}

// Invalidator notifies dependent query layers that the media set of a
// project may have changed. Fire and forget: implementations log delivery
// failures instead of returning them.
type Invalidator interface {
	Invalidate(ctx context.Context, projectID string)
}
