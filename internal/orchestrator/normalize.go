package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/tenqz/videosos/internal/domain"
)

// UploadError reports a failed binary resolution during input
// normalization. Key names the offending input field, with array elements
// addressed as key[index].
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// normalizeFalInput replaces every binary-bearing field of the input with a
// durable fal storage URL. Keys with a nil value are dropped entirely;
// every present value, including falsy ones, is retained. The fal call
// convention expects remote references, so this runs before submission and
// any failure aborts the job before a record exists.
func (o *Orchestrator) normalizeFalInput(ctx context.Context, input map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(input))
	for key, value := range input {
		if value == nil {
			continue
		}
		resolved, err := o.resolveValue(ctx, key, value)
		if err != nil {
			return nil, err
		}
		out[key] = resolved
	}
	return out, nil
}

// resolveValue handles one field. Arrays resolve element by element in
// order: downstream payload construction is positional for some fields.
func (o *Orchestrator) resolveValue(ctx context.Context, key string, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		resolved := make([]any, len(v))
		for i, element := range v {
			r, err := o.resolveValue(ctx, fmt.Sprintf("%s[%d]", key, i), element)
			if err != nil {
				return nil, err
			}
			resolved[i] = r
		}
		return resolved, nil
	case string:
		if !strings.HasPrefix(v, "blob:") {
			return v, nil
		}
		blob, err := o.fetcher.Fetch(ctx, v)
		if err != nil {
			return nil, &UploadError{Key: key, Err: err}
		}
		return o.uploadBlob(ctx, key, blob)
	case *domain.Blob:
		return o.uploadBlob(ctx, key, v)
	case domain.Blob:
		return o.uploadBlob(ctx, key, &v)
	default:
		return value, nil
	}
}

func (o *Orchestrator) uploadBlob(ctx context.Context, key string, blob *domain.Blob) (string, error) {
	url, err := o.fal.UploadBlob(ctx, blob.Data, blob.ContentType)
	if err != nil {
		return "", &UploadError{Key: key, Err: err}
	}
	o.logger.Debug().Str("key", key).Str("url", url).Msg("uploaded input blob to fal storage")
	return url, nil
}
