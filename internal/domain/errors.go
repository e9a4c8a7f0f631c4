package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidImage       = errors.New("invalid image")
	ErrProviderFailure    = errors.New("provider failure")
	ErrNoImages           = errors.New("no images were generated successfully")
	ErrDuplicateOperation = errors.New("duplicate operation")
	ErrNotReady           = errors.New("not ready")
)
