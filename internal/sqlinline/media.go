// Package sqlinline holds the SQL statements executed against the media
// store. Every statement starts with a --sql <uuid> audit marker; the
// sqllint tool under internal/tools enforces the convention and the marker
// shows up in the SQL runner's logs.
package sqlinline

const QInsertMediaRecord = `--sql 7f3c2d9a-5b1e-4c8f-9a2d-3e6b8c1f4a70
INSERT INTO media_records (id, project_id, created_at, media_type, kind, provider, endpoint_id, request_id, task_uuid, status, input)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
`

const QMarkMediaFailed = `--sql 1a8e4f62-9c3b-4d5a-8e7f-2b9c6d3a1e58
UPDATE media_records
SET status = 'failed', updated_at = NOW()
WHERE id = $1 AND status = 'pending';
`

const QMarkMediaCompleted = `--sql c5d2e8b1-7a4f-4e9c-b3d6-8f1a5c2e9b47
UPDATE media_records
SET status = 'completed', output = $2, metadata = $3, updated_at = NOW()
WHERE id = $1 AND status = 'pending';
`

const QAttachMediaBlob = `--sql 9b6f1c3e-2d8a-4f5b-a7c9-4e2d8b6f1c35
UPDATE media_records
SET blob = $2, blob_content_type = $3, updated_at = NOW()
WHERE id = $1;
`

const QAttachMediaThumbnail = `--sql 3e9a5d7c-1f6b-4a2e-8d4f-6c3b9e5a7d21
UPDATE media_records
SET thumbnail = $2, thumbnail_content_type = $3, updated_at = NOW()
WHERE id = $1;
`

const QGetMediaByID = `--sql 6d4b8e2f-3a9c-4b7d-9f1e-5a8c2d6b4e93
SELECT id, project_id, created_at, media_type, kind, provider, endpoint_id,
       request_id, task_uuid, status, input, output, metadata,
       blob, blob_content_type, thumbnail, thumbnail_content_type
FROM media_records
WHERE id = $1;
`

const QListMediaByProject = `--sql e2f7a4c9-8d1b-4e6a-b5c3-7f9d2a8e4c16
SELECT id, project_id, created_at, media_type, kind, provider, endpoint_id,
       request_id, task_uuid, status, input, output, metadata,
       blob, blob_content_type, thumbnail, thumbnail_content_type
FROM media_records
WHERE project_id = $1
ORDER BY created_at DESC;
`
