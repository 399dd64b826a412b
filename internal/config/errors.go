package config

import "errors"

var (
	ErrInvalidSinkType    = errors.New("invalid sink type")
	ErrMissingTrackingURL = errors.New("tracking URL is required for the http sink")
	ErrInvalidMaxSize     = errors.New("max_size_bytes must not be negative")
	ErrInvalidInterval    = errors.New("monitor interval must not be negative")

	ErrInvalidTrackingEnabled = errors.New("CURATRAK_ENABLED must be a boolean")
)
