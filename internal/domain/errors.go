package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateKey         = errors.New("duplicate key")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrClientUnavailable    = errors.New("provider client unavailable")
	ErrProviderFailure      = errors.New("provider failure")
)
