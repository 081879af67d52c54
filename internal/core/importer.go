package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadUpload reads at most maxSize bytes from r and returns the payload as
// clean UTF-8. A payload larger than maxSize yields ErrFileTooLarge.
func ReadUpload(r io.Reader, maxSize int64) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(raw)) > maxSize {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, maxSize)
	}
	return CleanText(raw)
}

// CleanText strips a byte order mark, decoding UTF-16 when its BOM is
// present, and replaces invalid UTF-8 sequences with U+FFFD.
func CleanText(raw []byte) ([]byte, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return nil, fmt.Errorf("decode upload: %w", err)
	}
	return out, nil
}

// DecodeCSV decodes a CSV payload. The header must match CSVHeader exactly.
// Blank lines are ignored and rows without a title are reported as rejected.
func DecodeCSV(data []byte) (*Batch, error) {
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyFile
	}

	rows := ParseCSV(text)
	if err := ValidateHeader(rows[0]); err != nil {
		return nil, err
	}

	batch := &Batch{}
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		talk, ok := NormalizeRow(row)
		if !ok {
			batch.Rejected = append(batch.Rejected, RejectedRow{
				Row:    i + 2,
				Reason: ErrTitleRequired.Error(),
				Data:   row,
			})
			continue
		}
		batch.Talks = append(batch.Talks, talk)
	}
	return batch, nil
}

// settingsDocument is the JSON settings export shape. Pointer fields tell
// absent keys apart from empty values.
type settingsDocument struct {
	SessionizeURL *string          `json:"sessionizeUrl"`
	CustomFields  *[]CustomField   `json:"customFields"`
	Talks         []map[string]any `json:"talks"`
}

// DecodeJSON decodes either a bare array of talks or a settings document
// {sessionizeUrl, customFields, talks}. Any other shape is ErrInvalidJSON.
func DecodeJSON(data []byte) (*Batch, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyFile
	}

	switch trimmed[0] {
	case '[':
		var objects []map[string]any
		if err := decodeStrict(trimmed, &objects); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		return batchFromObjects(objects), nil

	case '{':
		var doc settingsDocument
		if err := decodeStrict(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		if doc.SessionizeURL == nil && doc.CustomFields == nil && doc.Talks == nil {
			return nil, fmt.Errorf("%w: expected a talk array or a settings document", ErrInvalidJSON)
		}
		batch := batchFromObjects(doc.Talks)
		patch := SettingsPatch{SessionizeURL: doc.SessionizeURL, CustomFields: doc.CustomFields}
		if !patch.Empty() {
			batch.Settings = &patch
		}
		return batch, nil

	default:
		return nil, fmt.Errorf("%w: expected a talk array or a settings document", ErrInvalidJSON)
	}
}

// BatchFromObjects normalizes remote talk objects into a batch.
func BatchFromObjects(objects []map[string]any) *Batch {
	return batchFromObjects(objects)
}

func batchFromObjects(objects []map[string]any) *Batch {
	batch := &Batch{}
	for i, obj := range objects {
		talk, ok := NormalizeAPITalk(obj)
		if !ok {
			batch.Rejected = append(batch.Rejected, RejectedRow{
				Row:    i + 1,
				Reason: ErrTitleRequired.Error(),
			})
			continue
		}
		batch.Talks = append(batch.Talks, talk)
	}
	return batch
}

// decodeStrict decodes a single JSON value, keeping numbers as json.Number
// and rejecting trailing data.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after top-level value")
	}
	return nil
}
