package core

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Default field values applied by the normalizer.
const (
	DefaultDescription = "No description provided."
	DefaultLevel       = "Beginner"
)

// Import sources recorded in import history and metrics.
const (
	SourceCSV        = "csv"
	SourceJSON       = "json"
	SourceSettings   = "settings"
	SourceSessionize = "sessionize"
	SourceInbox      = "inbox"
	SourceManual     = "manual"
)

// Talk is a conference-session record. Title is the identity used when
// merging imports; the store itself does not enforce uniqueness.
type Talk struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int    `json:"duration"` // minutes
	Level       string `json:"level"`
	Pitch       string `json:"pitch"`
	Notes       string `json:"notes"`
}

// UnmarshalJSON accepts the duration as a number or a numeric string such as
// "30" or "45 min", like the import paths do.
func (t *Talk) UnmarshalJSON(data []byte) error {
	type plain Talk
	var aux struct {
		plain
		Duration any `json:"duration"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&aux); err != nil {
		return err
	}
	*t = Talk(aux.plain)
	t.Duration, _ = durationValue(aux.Duration)
	return nil
}

// CustomField is a user-defined name/value pair shown next to talk details.
// Identity is position in the list.
type CustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// UnmarshalJSON accepts the legacy "defaultValue" key in place of "value".
func (f *CustomField) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name         string  `json:"name"`
		Value        *string `json:"value"`
		DefaultValue *string `json:"defaultValue"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	f.Name = raw.Name
	f.Value = ""
	switch {
	case raw.Value != nil:
		f.Value = *raw.Value
	case raw.DefaultValue != nil:
		f.Value = *raw.DefaultValue
	}
	return nil
}

// Settings is the full settings document used by settings export/import.
type Settings struct {
	SessionizeURL string        `json:"sessionizeUrl"`
	CustomFields  []CustomField `json:"customFields"`
	Talks         []Talk        `json:"talks"`
}

// SettingsPatch carries the synced-bucket values to replace. Nil fields are
// left untouched.
type SettingsPatch struct {
	SessionizeURL *string        `json:"sessionizeUrl,omitempty"`
	CustomFields  *[]CustomField `json:"customFields,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p.SessionizeURL == nil && p.CustomFields == nil
}

// RejectedRow is an input record that was dropped during decoding.
// Row is 1-based and counts the CSV header, so the first data row is 2.
type RejectedRow struct {
	Row    int      `json:"row"`
	Reason string   `json:"reason"`
	Data   []string `json:"data,omitempty"`
}

// Batch is a decoded import payload, ready to be merged.
type Batch struct {
	Talks    []Talk
	Rejected []RejectedRow
	Settings *SettingsPatch
}

// ImportRecord is one entry of the persisted import history.
type ImportRecord struct {
	ID        uuid.UUID `json:"id"`
	Source    string    `json:"source"`
	FileName  string    `json:"fileName,omitempty"`
	Added     int       `json:"added"`
	Skipped   int       `json:"skipped"`
	Rejected  int       `json:"rejected"`
	ClientIP  string    `json:"clientIp,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	At        time.Time `json:"at"`
}

// ImportRequest describes one file import.
type ImportRequest struct {
	Format   string // registered format key: csv, json
	Source   string // optional; defaults to the format key, or "settings" for settings documents
	FileName string
	Data     []byte
}

// ImportResult reports the outcome of an import or preview.
type ImportResult struct {
	ID           uuid.UUID     `json:"id"`
	Source       string        `json:"source"`
	FileName     string        `json:"fileName,omitempty"`
	Added        int           `json:"added"`
	Skipped      int           `json:"skipped"`
	Rejected     int           `json:"rejected"`
	RejectedRows []RejectedRow `json:"rejectedRows,omitempty"`
	NewTalks     []Talk        `json:"newTalks,omitempty"`
	Settings     bool          `json:"settingsUpdated"`
	Preview      bool          `json:"preview,omitempty"`
	Duration     time.Duration `json:"durationNs"`
}

// DetailField is one copyable label/value pair on the popup.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// TalkDetails is the popup view of a single talk.
type TalkDetails struct {
	Talk         Talk          `json:"talk"`
	Fields       []DetailField `json:"fields"`
	CustomFields []DetailField `json:"customFields"`
}

// PopupState is everything the popup page renders.
type PopupState struct {
	Talks        []Talk        `json:"talks"`
	Selected     string        `json:"selected,omitempty"`
	Details      *TalkDetails  `json:"details,omitempty"`
	CustomFields []CustomField `json:"customFields"`
	Level        string        `json:"level,omitempty"`
	MaxDuration  int           `json:"maxDuration,omitempty"`
}

// Bucket is a key-value storage area. Values are stored as JSON.
//
// Get returns only the keys that exist. Each call is atomic; sequences of
// calls are not. Implementations must be safe for concurrent use.
type Bucket interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, items map[string]any) error
	Remove(ctx context.Context, keys ...string) error
}

// Fetcher retrieves raw talk objects from a remote source.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]map[string]any, error)
}
