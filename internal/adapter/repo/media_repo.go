package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tenqz/videosos/internal/domain"
	"github.com/tenqz/videosos/internal/infra"
	"github.com/tenqz/videosos/internal/sqlinline"
)

const pgUniqueViolation = "23505"

// MediaRepositoryPG implements domain.MediaStore on PostgreSQL.
type MediaRepositoryPG struct {
	db infra.SQLExecutor
}

// NewMediaRepository creates a media record repository backed by PostgreSQL.
func NewMediaRepository(db infra.SQLExecutor) *MediaRepositoryPG {
	return &MediaRepositoryPG{db: db}
}

// Create inserts a new media record.
func (r *MediaRepositoryPG) Create(ctx context.Context, rec *domain.MediaRecord) (*domain.MediaRecord, error) {
	inputJSON, err := marshalInput(rec.Input)
	if err != nil {
		return nil, err
	}
	_, err = r.db.Exec(ctx, sqlinline.QInsertMediaRecord,
		rec.ID,
		rec.ProjectID,
		rec.CreatedAt,
		rec.MediaType,
		rec.Kind,
		rec.Provider,
		rec.EndpointID,
		nullableString(rec.RequestID),
		nullableString(rec.TaskUUID),
		rec.Status,
		inputJSON,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, domain.ErrDuplicateKey
		}
		return nil, err
	}
	return rec, nil
}

// MarkFailed settles a pending record as failed. The status guard keeps a
// settled record from ever transitioning again.
func (r *MediaRepositoryPG) MarkFailed(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, sqlinline.QMarkMediaFailed, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkCompleted settles a pending record as completed and stores the
// provider result payload verbatim.
func (r *MediaRepositoryPG) MarkCompleted(ctx context.Context, id string, output json.RawMessage, meta domain.MediaMetadata) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	tag, err := r.db.Exec(ctx, sqlinline.QMarkMediaCompleted, id, []byte(output), metaJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AttachBlob stores the downloaded binary payload. Status is deliberately
// not part of this statement.
func (r *MediaRepositoryPG) AttachBlob(ctx context.Context, id string, blob *domain.Blob) error {
	return r.updateBlob(ctx, sqlinline.QAttachMediaBlob, id, blob)
}

// AttachThumbnail stores the derived video thumbnail.
func (r *MediaRepositoryPG) AttachThumbnail(ctx context.Context, id string, blob *domain.Blob) error {
	return r.updateBlob(ctx, sqlinline.QAttachMediaThumbnail, id, blob)
}

func (r *MediaRepositoryPG) updateBlob(ctx context.Context, query, id string, blob *domain.Blob) error {
	tag, err := r.db.Exec(ctx, query, id, blob.Data, blob.ContentType)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID fetches a media record by its identifier.
func (r *MediaRepositoryPG) GetByID(ctx context.Context, id string) (*domain.MediaRecord, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx, sqlinline.QGetMediaByID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// ListByProject returns a project's media records, newest first.
func (r *MediaRepositoryPG) ListByProject(ctx context.Context, projectID string) ([]domain.MediaRecord, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListMediaByProject, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.MediaRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanRecord(row pgx.Row) (*domain.MediaRecord, error) {
	var (
		rec                 domain.MediaRecord
		requestID, taskUUID *string
		inputJSON           []byte
		outputJSON          []byte
		metaJSON            []byte
		blobData            []byte
		blobContentType     *string
		thumbData           []byte
		thumbContentType    *string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.ProjectID,
		&rec.CreatedAt,
		&rec.MediaType,
		&rec.Kind,
		&rec.Provider,
		&rec.EndpointID,
		&requestID,
		&taskUUID,
		&rec.Status,
		&inputJSON,
		&outputJSON,
		&metaJSON,
		&blobData,
		&blobContentType,
		&thumbData,
		&thumbContentType,
	); err != nil {
		return nil, err
	}
	if requestID != nil {
		rec.RequestID = *requestID
	}
	if taskUUID != nil {
		rec.TaskUUID = *taskUUID
	}
	if len(inputJSON) > 0 {
		if err := json.Unmarshal(inputJSON, &rec.Input); err != nil {
			return nil, fmt.Errorf("decode input: %w", err)
		}
	}
	if len(outputJSON) > 0 {
		rec.Output = json.RawMessage(outputJSON)
	}
	if len(metaJSON) > 0 {
		var meta domain.MediaMetadata
		if err := json.Unmarshal(metaJSON, &meta); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		rec.Metadata = &meta
	}
	if len(blobData) > 0 {
		rec.Blob = &domain.Blob{Data: blobData, ContentType: deref(blobContentType)}
	}
	if len(thumbData) > 0 {
		rec.ThumbnailBlob = &domain.Blob{Data: thumbData, ContentType: deref(thumbContentType)}
	}
	return &rec, nil
}

func marshalInput(input map[string]any) ([]byte, error) {
	if input == nil {
		return []byte("{}"), nil
	}
	encoded, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}
	return encoded, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
