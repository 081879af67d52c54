package core

import "errors"

// Sentinel errors. Their text is matched by MapError, so keep the phrases in
// sync with errorPatterns when changing them.
var (
	// ErrInvalidHeader is returned when a CSV header row is not exactly
	// Title,Description,Duration,Level.
	ErrInvalidHeader = errors.New("invalid csv header")

	// ErrInvalidJSON is returned for JSON imports that are neither a talk
	// array nor a settings document.
	ErrInvalidJSON = errors.New("invalid json")

	ErrEmptyFile         = errors.New("empty file")
	ErrFileTooLarge      = errors.New("file too large")
	ErrNoFile            = errors.New("no file provided")
	ErrUnknownFormat     = errors.New("unknown import format")
	ErrTitleRequired     = errors.New("required field title is empty")
	ErrFieldNameRequired = errors.New("required field name is empty")
	ErrTalkNotFound      = errors.New("talk not found")
	ErrInvalidURL        = errors.New("invalid sessionize url")
	ErrNoSessionizeURL   = errors.New("no sessionize url configured")
	ErrInvalidRequest    = errors.New("invalid request body")

	// ErrStorage wraps every bucket failure.
	ErrStorage = errors.New("storage unavailable")

	// ErrTooManyImports is returned when all import slots are occupied and the
	// wait timeout expires. Clients should retry after a short delay.
	ErrTooManyImports = errors.New("too many concurrent imports, please try again later")
)
