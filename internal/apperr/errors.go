package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrEditInProgress    = errors.New("edit already in progress")
	ErrNoEdit            = errors.New("no edit in progress")
	ErrInvalidState      = errors.New("not allowed in current capture state")
	ErrRecognitionFailed = errors.New("recognition failed")
	ErrImportFormat      = errors.New("unreadable workbook")
)
