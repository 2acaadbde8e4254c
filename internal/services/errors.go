package services

import "errors"

// Service errors
var (
	// Dataset errors
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrNoDatasets      = errors.New("invalid input: no dataset ids given")

	// Ingest errors
	ErrNoFiles   = errors.New("invalid input: no files given")
	ErrNoSources = errors.New("invalid input: no source names given")

	// Export errors
	ErrInvalidFormat = errors.New("invalid export format")
)
