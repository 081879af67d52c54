package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{name: "invalid header", err: fmt.Errorf("%w: got %q", ErrInvalidHeader, []string{"Name"}), wantCode: "FILE002"},
		{name: "invalid json", err: fmt.Errorf("%w: unexpected EOF", ErrInvalidJSON), wantCode: "FILE006"},
		{name: "empty file", err: ErrEmptyFile, wantCode: "FILE005"},
		{name: "file too large", err: fmt.Errorf("%w: exceeds 10 bytes", ErrFileTooLarge), wantCode: "FILE001"},
		{name: "no file", err: ErrNoFile, wantCode: "FILE004"},
		{name: "unknown format", err: fmt.Errorf("%w: %q", ErrUnknownFormat, "xml"), wantCode: "FILE007"},
		{name: "title required", err: ErrTitleRequired, wantCode: "VAL003"},
		{name: "field name required", err: ErrFieldNameRequired, wantCode: "VAL003"},
		{name: "invalid url", err: ErrInvalidURL, wantCode: "VAL007"},
		{name: "invalid request", err: fmt.Errorf("%w: unexpected EOF", ErrInvalidRequest), wantCode: "VAL001"},
		{name: "talk not found", err: fmt.Errorf("%w: index 4", ErrTalkNotFound), wantCode: "TALK001"},
		{name: "no sessionize url", err: ErrNoSessionizeURL, wantCode: "FETCH003"},
		{name: "remote status", err: errors.New("sessionize returned status 503"), wantCode: "FETCH001"},
		{
			name:     "network error wrapping deadline maps to fetch",
			err:      fmt.Errorf("sessionize request failed: %w", context.DeadlineExceeded),
			wantCode: "FETCH002",
		},
		{
			name:     "storage error wrapping cancel maps to storage",
			err:      fmt.Errorf("%w: load talks: %w", ErrStorage, context.Canceled),
			wantCode: "STO001",
		},
		{name: "busy", err: ErrTooManyImports, wantCode: "UPL002"},
		{name: "plain cancel", err: context.Canceled, wantCode: "UPL004"},
		{name: "plain deadline", err: context.DeadlineExceeded, wantCode: "UPL005"},
		{name: "rate limit", err: errors.New("rate limit exceeded"), wantCode: "RATE001"},
		{name: "case insensitive", err: errors.New("INVALID CSV HEADER"), wantCode: "FILE002"},
		{name: "unknown error returns default", err: errors.New("some random internal error"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() returned empty message")
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrTitleRequired)

	expected := "Required field is empty (Code: VAL003). Enter a title (or custom field name) and save again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error is not user facing", err: nil, want: false},
		{name: "known error is user facing", err: ErrEmptyFile, want: true},
		{name: "unknown error is not user facing", err: errors.New("random internal error xyz"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("%w: save talks: disk full", ErrStorage)
		userErr := NewUserError(techErr)

		if userErr.Error() != "Talk storage is unavailable" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if userErr.User.Code != "STO001" {
			t.Errorf("User.Code = %q, want STO001", userErr.User.Code)
		}
		if !errors.Is(userErr, ErrStorage) {
			t.Error("Unwrap() should expose the original error chain")
		}
	})
}
