package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Storage keys. Talks, selection and history live in the local bucket;
// sessionizeUrl and customFields live in the synced bucket.
const (
	KeyTalks         = "talks"
	KeySelectedTalk  = "selectedTalk"
	KeySelectedTalks = "selectedTalks"
	KeyImportHistory = "importHistory"
	KeyCustomFields  = "customFields"
	KeySessionizeURL = "sessionizeUrl"
)

// TalkStore is the typed layer over the local and synced buckets. Every
// value read from a bucket goes through an explicit decode step that fills
// defaults, so callers never see partially populated records.
type TalkStore struct {
	local  Bucket
	synced Bucket
}

// NewTalkStore creates a store over the given buckets.
func NewTalkStore(local, synced Bucket) *TalkStore {
	return &TalkStore{local: local, synced: synced}
}

// LoadTalks returns the stored talks, or an empty slice when none are stored.
func (s *TalkStore) LoadTalks(ctx context.Context) ([]Talk, error) {
	talks, _, err := s.loadTalks(ctx)
	return talks, err
}

func (s *TalkStore) loadTalks(ctx context.Context) ([]Talk, int, error) {
	values, err := s.local.Get(ctx, KeyTalks)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: load talks: %w", ErrStorage, err)
	}
	talks, patched, err := decodeStoredTalks(values[KeyTalks])
	if err != nil {
		return nil, 0, fmt.Errorf("%w: decode talks: %w", ErrStorage, err)
	}
	return talks, patched, nil
}

// SaveTalks replaces the stored talk collection.
func (s *TalkStore) SaveTalks(ctx context.Context, talks []Talk) error {
	if talks == nil {
		talks = []Talk{}
	}
	if err := s.local.Set(ctx, map[string]any{KeyTalks: talks}); err != nil {
		return fmt.Errorf("%w: save talks: %w", ErrStorage, err)
	}
	return nil
}

// LoadSessionizeURL returns the configured remote source URL, or "".
func (s *TalkStore) LoadSessionizeURL(ctx context.Context) (string, error) {
	values, err := s.synced.Get(ctx, KeySessionizeURL)
	if err != nil {
		return "", fmt.Errorf("%w: load sessionize url: %w", ErrStorage, err)
	}
	var u string
	if err := decodeOptional(values[KeySessionizeURL], &u); err != nil {
		return "", fmt.Errorf("%w: decode sessionize url: %w", ErrStorage, err)
	}
	return u, nil
}

// LoadCustomFields returns the custom fields, or an empty slice.
func (s *TalkStore) LoadCustomFields(ctx context.Context) ([]CustomField, error) {
	values, err := s.synced.Get(ctx, KeyCustomFields)
	if err != nil {
		return nil, fmt.Errorf("%w: load custom fields: %w", ErrStorage, err)
	}
	fields := []CustomField{}
	if err := decodeOptional(values[KeyCustomFields], &fields); err != nil {
		return nil, fmt.Errorf("%w: decode custom fields: %w", ErrStorage, err)
	}
	if fields == nil {
		fields = []CustomField{}
	}
	return fields, nil
}

// SaveSynced writes the non-nil parts of patch to the synced bucket in one call.
func (s *TalkStore) SaveSynced(ctx context.Context, patch SettingsPatch) error {
	items := make(map[string]any, 2)
	if patch.SessionizeURL != nil {
		items[KeySessionizeURL] = strings.TrimSpace(*patch.SessionizeURL)
	}
	if patch.CustomFields != nil {
		fields := *patch.CustomFields
		if fields == nil {
			fields = []CustomField{}
		}
		items[KeyCustomFields] = fields
	}
	if len(items) == 0 {
		return nil
	}
	if err := s.synced.Set(ctx, items); err != nil {
		return fmt.Errorf("%w: save settings: %w", ErrStorage, err)
	}
	return nil
}

// LoadSelectedTalk returns the persisted popup selection, or "".
func (s *TalkStore) LoadSelectedTalk(ctx context.Context) (string, error) {
	values, err := s.local.Get(ctx, KeySelectedTalk)
	if err != nil {
		return "", fmt.Errorf("%w: load selection: %w", ErrStorage, err)
	}
	var title string
	if err := decodeOptional(values[KeySelectedTalk], &title); err != nil {
		return "", fmt.Errorf("%w: decode selection: %w", ErrStorage, err)
	}
	return title, nil
}

// SaveSelectedTalk persists the popup selection.
func (s *TalkStore) SaveSelectedTalk(ctx context.Context, title string) error {
	if err := s.local.Set(ctx, map[string]any{KeySelectedTalk: title}); err != nil {
		return fmt.Errorf("%w: save selection: %w", ErrStorage, err)
	}
	return nil
}

// ClearSelectedTalk removes the popup selection.
func (s *TalkStore) ClearSelectedTalk(ctx context.Context) error {
	if err := s.local.Remove(ctx, KeySelectedTalk); err != nil {
		return fmt.Errorf("%w: clear selection: %w", ErrStorage, err)
	}
	return nil
}

// LoadImportHistory returns import records, newest first.
func (s *TalkStore) LoadImportHistory(ctx context.Context) ([]ImportRecord, error) {
	values, err := s.local.Get(ctx, KeyImportHistory)
	if err != nil {
		return nil, fmt.Errorf("%w: load import history: %w", ErrStorage, err)
	}
	records := []ImportRecord{}
	if err := decodeOptional(values[KeyImportHistory], &records); err != nil {
		return nil, fmt.Errorf("%w: decode import history: %w", ErrStorage, err)
	}
	if records == nil {
		records = []ImportRecord{}
	}
	return records, nil
}

// AppendImportRecord prepends rec to the history and keeps at most limit
// entries. A limit of zero disables history.
func (s *TalkStore) AppendImportRecord(ctx context.Context, rec ImportRecord, limit int) error {
	if limit <= 0 {
		return nil
	}
	history, err := s.LoadImportHistory(ctx)
	if err != nil {
		return err
	}

	history = append([]ImportRecord{rec}, history...)
	if len(history) > limit {
		history = history[:limit]
	}

	if err := s.local.Set(ctx, map[string]any{KeyImportHistory: history}); err != nil {
		return fmt.Errorf("%w: save import history: %w", ErrStorage, err)
	}
	return nil
}

// Seed writes empty collections for keys that are absent and returns the
// keys it wrote. Existing data is never overwritten.
func (s *TalkStore) Seed(ctx context.Context) ([]string, error) {
	var seeded []string

	localVals, err := s.local.Get(ctx, KeyTalks, KeySelectedTalks)
	if err != nil {
		return nil, fmt.Errorf("%w: seed local: %w", ErrStorage, err)
	}
	localItems := map[string]any{}
	if _, ok := localVals[KeyTalks]; !ok {
		localItems[KeyTalks] = []Talk{}
	}
	if _, ok := localVals[KeySelectedTalks]; !ok {
		localItems[KeySelectedTalks] = map[string]any{}
	}
	if len(localItems) > 0 {
		if err := s.local.Set(ctx, localItems); err != nil {
			return nil, fmt.Errorf("%w: seed local: %w", ErrStorage, err)
		}
		for k := range localItems {
			seeded = append(seeded, k)
		}
	}

	syncedVals, err := s.synced.Get(ctx, KeyCustomFields)
	if err != nil {
		return seeded, fmt.Errorf("%w: seed synced: %w", ErrStorage, err)
	}
	if _, ok := syncedVals[KeyCustomFields]; !ok {
		if err := s.synced.Set(ctx, map[string]any{KeyCustomFields: []CustomField{}}); err != nil {
			return seeded, fmt.Errorf("%w: seed synced: %w", ErrStorage, err)
		}
		seeded = append(seeded, KeyCustomFields)
	}

	return seeded, nil
}

// Migrate rewrites stored talks that predate the pitch/notes fields (or are
// missing any other field) with defaults filled in. It returns the number of
// records that were patched.
func (s *TalkStore) Migrate(ctx context.Context) (int, error) {
	talks, patched, err := s.loadTalks(ctx)
	if err != nil {
		return 0, err
	}
	if patched == 0 {
		return 0, nil
	}
	if err := s.SaveTalks(ctx, talks); err != nil {
		return 0, err
	}
	return patched, nil
}

// storedTalkKeys are the fields every persisted talk should carry.
var storedTalkKeys = []string{"title", "description", "duration", "level", "pitch", "notes"}

// decodeStoredTalks decodes the persisted talks value and fills defaults:
// missing text fields become "", a missing level becomes Beginner and the
// duration is coerced to a non-negative integer. It also reports how many
// records were missing a field or carried a non-integer duration.
func decodeStoredTalks(raw json.RawMessage) ([]Talk, int, error) {
	talks := []Talk{}
	if isNullJSON(raw) {
		return talks, 0, nil
	}

	var objects []map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&objects); err != nil {
		return nil, 0, err
	}

	patched := 0
	for _, obj := range objects {
		if obj == nil {
			patched++
			continue
		}
		dirty := false
		for _, k := range storedTalkKeys {
			if _, ok := obj[k]; !ok {
				dirty = true
			}
		}

		duration, _ := durationValue(obj["duration"])
		if n, ok := obj["duration"].(json.Number); !ok || n.String() != fmt.Sprint(duration) {
			dirty = true
		}

		level := stringField(obj, "level")
		if level == "" {
			level = DefaultLevel
		}

		talks = append(talks, Talk{
			Title:       stringField(obj, "title"),
			Description: stringField(obj, "description"),
			Duration:    duration,
			Level:       level,
			Pitch:       stringField(obj, "pitch"),
			Notes:       stringField(obj, "notes"),
		})
		if dirty {
			patched++
		}
	}
	return talks, patched, nil
}

func decodeOptional(raw json.RawMessage, v any) error {
	if isNullJSON(raw) {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// ValidateSessionizeURL accepts "" (unset) or an absolute http(s) URL.
func ValidateSessionizeURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q must be an absolute http or https URL", ErrInvalidURL, raw)
	}
	return nil
}
