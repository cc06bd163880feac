// Package common provides shared utilities and types used across the application.
package common

import "errors"

// Common application errors.
var (
	// Database errors.
	ErrNotFound = errors.New("not found")

	// Ingestion errors.
	ErrUnknownSource = errors.New("unknown source format")
	ErrMissingHeader = errors.New("source file has no header row")
	ErrNoUsableRows  = errors.New("no usable rows in source file")

	// Pipeline errors.
	ErrNoOrderLines  = errors.New("no order lines to process")
	ErrQualityFailed = errors.New("data quality checks failed")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)
