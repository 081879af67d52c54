// # Error Codes Reference
//
// This file maps technical errors to user-facing messages with a code that
// users can quote when reporting a problem. Codes are grouped by category.
//
// # Storage Errors (STO001-STO099)
//
//	STO001 - Storage unavailable: a bucket read or write failed
//	         Action: Please try again in a few moments
//	         Patterns: "storage unavailable"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: file exceeds the configured size limit
//	          Action: Split the file into smaller files
//	          Patterns: "file too large"
//
//	FILE002 - Invalid CSV header: header is not Title,Description,Duration,Level
//	          Action: Use the header row from a CSV export
//	          Patterns: "invalid csv header"
//
//	FILE004 - No file: no file was selected
//	          Action: Please select a CSV or JSON file to import
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: the uploaded file is empty
//	          Action: Please upload a file with at least one talk
//	          Patterns: "empty file"
//
//	FILE006 - Invalid JSON: not a talk array or settings document
//	          Action: Import a talks.json or settings.json export
//	          Patterns: "invalid json"
//
//	FILE007 - Unknown format: import format is not csv or json
//	          Action: Choose CSV or JSON
//	          Patterns: "unknown import format"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid request: an API request body could not be decoded
//	         Action: Send a JSON body matching the endpoint
//	         Patterns: "invalid request body"
//
//	VAL003 - Required field: a required field is empty
//	         Action: Enter a title (or custom field name) and save again
//	         Patterns: "required field"
//
//	VAL007 - Invalid URL: Sessionize URL is not an http(s) URL
//	         Action: Paste the full API URL from Sessionize
//	         Patterns: "invalid sessionize url"
//
// # Talk Errors (TALK001-TALK099)
//
//	TALK001 - Talk not found: no talk at that position or with that title
//	          Action: Reload the talk list and try again
//	          Patterns: "talk not found"
//
// # Fetch Errors (FETCH001-FETCH099)
//
//	FETCH001 - Remote error: Sessionize answered with a non-2xx status
//	           Action: Check the Sessionize URL and try again later
//	           Patterns: "sessionize returned status"
//
//	FETCH002 - Network error: Sessionize could not be reached
//	           Action: Check your connection and try again
//	           Patterns: "sessionize request failed"
//
//	FETCH003 - No URL: no Sessionize URL is configured
//	           Action: Set the Sessionize URL in settings first
//	           Patterns: "no sessionize url"
//
//	FETCH004 - Invalid response: Sessionize returned unexpected JSON
//	           Action: Make sure the URL points to a Sessionize JSON endpoint
//	           Patterns: "invalid sessionize response"
//
// # Import Errors (UPL001-UPL099)
//
//	UPL002 - System busy: too many imports in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many concurrent imports"
//
//	UPL004 - Request cancelled
//	         Patterns: "context canceled"
//
//	UPL005 - Request timed out
//	         Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: an unexpected error occurred
//	         Action: Please try again or check the server logs
//
// # Pattern Matching
//
// Patterns are matched case-insensitively with strings.Contains against the
// full wrapped error text. The first match wins, so storage and fetch
// patterns come before the generic context patterns they may wrap.

package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Patterns are matched using strings.Contains, so partial matches work.
// The first matching pattern wins, so order matters:
//   - More specific patterns should come before general ones
//   - Multiple patterns can map to the same error code
//
// To add a new error pattern:
//  1. Choose the appropriate category and code range
//  2. Add the pattern in the correct position (specific before general)
//  3. Update the package documentation at the top of this file
var errorPatterns = []errorPattern{
	// =========================================================================
	// Storage Errors (STO001)
	// Checked first: storage errors may wrap context errors.
	// =========================================================================
	{
		pattern: "storage unavailable",
		msg: UserMessage{
			Message: "Talk storage is unavailable",
			Action:  "Please try again in a few moments",
			Code:    "STO001",
		},
	},

	// =========================================================================
	// Fetch Errors (FETCH001-FETCH004)
	// Checked before context errors: network failures wrap them.
	// =========================================================================
	{
		pattern: "sessionize returned status",
		msg: UserMessage{
			Message: "Sessionize returned an error",
			Action:  "Check the Sessionize URL and try again later",
			Code:    "FETCH001",
		},
	},
	{
		pattern: "sessionize request failed",
		msg: UserMessage{
			Message: "Could not reach Sessionize",
			Action:  "Check your connection and try again",
			Code:    "FETCH002",
		},
	},
	{
		pattern: "no sessionize url",
		msg: UserMessage{
			Message: "No Sessionize URL is configured",
			Action:  "Set the Sessionize URL in settings first",
			Code:    "FETCH003",
		},
	},
	{
		pattern: "invalid sessionize response",
		msg: UserMessage{
			Message: "Sessionize returned data in an unexpected format",
			Action:  "Make sure the URL points to a Sessionize JSON endpoint",
			Code:    "FETCH004",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE007)
	// These errors occur when decoding imported files.
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv header",
		msg: UserMessage{
			Message: "CSV header must be exactly Title,Description,Duration,Level",
			Action:  "Use the header row from a CSV export",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV or JSON file to import",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a file with at least one talk",
			Code:    "FILE005",
		},
	},
	{
		pattern: "invalid json",
		msg: UserMessage{
			Message: "File is not a talk list or settings document",
			Action:  "Import a talks.json or settings.json export",
			Code:    "FILE006",
		},
	},
	{
		pattern: "unknown import format",
		msg: UserMessage{
			Message: "Unsupported import format",
			Action:  "Choose CSV or JSON",
			Code:    "FILE007",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001, VAL003, VAL007)
	// These errors occur when user input is incomplete.
	// =========================================================================
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "Request body is not valid",
			Action:  "Send a JSON body matching the endpoint",
			Code:    "VAL001",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Enter a title (or custom field name) and save again",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid sessionize url",
		msg: UserMessage{
			Message: "Sessionize URL must be an http or https address",
			Action:  "Paste the full API URL from Sessionize",
			Code:    "VAL007",
		},
	},

	// =========================================================================
	// Talk Errors (TALK001)
	// These errors occur when a talk reference is stale.
	// =========================================================================
	{
		pattern: "talk not found",
		msg: UserMessage{
			Message: "Talk not found",
			Action:  "Reload the talk list and try again",
			Code:    "TALK001",
		},
	},

	// =========================================================================
	// Import Errors (UPL002-UPL005)
	// These errors occur while waiting for or running an import.
	// =========================================================================
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// These errors occur when request limits are exceeded.
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000). The original
// error is in the server log.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the server logs",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	msg := MapError(fmt.Errorf("%w: got %q", ErrInvalidHeader, row))
//	// msg.Code == "FILE002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
//
// Example output: "Required field is empty (Code: VAL003). Enter a title (or custom field name) and save again"
//
// This is the primary function for displaying errors to end users.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
// Use this to decide whether to show the raw error or the mapped user message.
//
// Example:
//
//	if IsUserFacing(err) {
//	    showToUser(FormatUserError(err))
//	} else {
//	    log.Error(err) // Log technical error
//	    showToUser("An error occurred. Please try again.")
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
// The original error is preserved for logging while providing a clean message for users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// The returned UserError preserves the original technical error for logging via Unwrap(),
// while providing a clean user message via Error().
//
// Returns nil if err is nil.
//
// Example:
//
//	ue := NewUserError(err)
//	slog.Error("import failed", "error", ue.Technical)
//	fmt.Println(ue.Error())   // "Talk storage is unavailable"
//	fmt.Println(ue.User.Code) // "STO001"
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
