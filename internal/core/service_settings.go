package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Settings returns the synced settings (Sessionize URL and custom fields).
// Talks are left empty; use ExportSettings for the full document.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	url, err := s.store.LoadSessionizeURL(ctx)
	if err != nil {
		return Settings{}, err
	}
	fields, err := s.store.LoadCustomFields(ctx)
	if err != nil {
		return Settings{}, err
	}
	return Settings{SessionizeURL: url, CustomFields: fields, Talks: []Talk{}}, nil
}

// UpdateSettings writes the non-nil parts of patch to the synced bucket.
func (s *Service) UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, error) {
	if patch.SessionizeURL != nil {
		if err := ValidateSessionizeURL(*patch.SessionizeURL); err != nil {
			return Settings{}, err
		}
	}
	if patch.CustomFields != nil {
		if err := validateCustomFields(*patch.CustomFields); err != nil {
			return Settings{}, err
		}
	}

	s.mu.Lock()
	err := s.store.SaveSynced(ctx, patch)
	s.mu.Unlock()
	if err != nil {
		return Settings{}, err
	}
	return s.Settings(ctx)
}

// CustomFields returns the custom fields in display order.
func (s *Service) CustomFields(ctx context.Context) ([]CustomField, error) {
	return s.store.LoadCustomFields(ctx)
}

// SetCustomFields replaces the custom field list.
func (s *Service) SetCustomFields(ctx context.Context, fields []CustomField) ([]CustomField, error) {
	if fields == nil {
		fields = []CustomField{}
	}
	if _, err := s.UpdateSettings(ctx, SettingsPatch{CustomFields: &fields}); err != nil {
		return nil, err
	}
	return fields, nil
}

func validateCustomFields(fields []CustomField) error {
	for i, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("%w: custom field %d has no name", ErrFieldNameRequired, i+1)
		}
	}
	return nil
}

// ExportCSV renders all talks as CSV.
func (s *Service) ExportCSV(ctx context.Context) (string, error) {
	talks, err := s.store.LoadTalks(ctx)
	if err != nil {
		return "", err
	}
	return SerializeCSV(talks), nil
}

// ExportJSON renders all talks as a pretty-printed JSON array.
func (s *Service) ExportJSON(ctx context.Context) ([]byte, error) {
	talks, err := s.store.LoadTalks(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(talks, "", "  ")
}

// ExportSettings renders {sessionizeUrl, customFields, talks} as pretty JSON.
func (s *Service) ExportSettings(ctx context.Context) ([]byte, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	talks, err := s.store.LoadTalks(ctx)
	if err != nil {
		return nil, err
	}
	settings.Talks = talks
	return json.MarshalIndent(settings, "", "  ")
}

// SelectTalk persists the popup selection. The title must exist.
func (s *Service) SelectTalk(ctx context.Context, title string) error {
	talks, err := s.store.LoadTalks(ctx)
	if err != nil {
		return err
	}
	if _, ok := findTalk(talks, title); !ok {
		return fmt.Errorf("%w: %q", ErrTalkNotFound, title)
	}
	return s.store.SaveSelectedTalk(ctx, title)
}

// SelectedTalk returns the persisted popup selection, or "".
func (s *Service) SelectedTalk(ctx context.Context) (string, error) {
	return s.store.LoadSelectedTalk(ctx)
}

// ClearSelection removes the popup selection.
func (s *Service) ClearSelection(ctx context.Context) error {
	return s.store.ClearSelectedTalk(ctx)
}

// TalkDetails returns the copyable fields of the first talk titled title,
// followed by the custom fields.
func (s *Service) TalkDetails(ctx context.Context, title string) (*TalkDetails, error) {
	talks, err := s.store.LoadTalks(ctx)
	if err != nil {
		return nil, err
	}
	talk, ok := findTalk(talks, title)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTalkNotFound, title)
	}
	fields, err := s.store.LoadCustomFields(ctx)
	if err != nil {
		return nil, err
	}
	return buildDetails(talk, fields), nil
}

// Popup assembles the popup view: the filtered talk list, the persisted
// selection with its details, and the custom fields. A selection that no
// longer matches a talk is ignored.
func (s *Service) Popup(ctx context.Context, level string, maxDuration int) (PopupState, error) {
	talks, err := s.store.LoadTalks(ctx)
	if err != nil {
		return PopupState{}, err
	}
	fields, err := s.store.LoadCustomFields(ctx)
	if err != nil {
		return PopupState{}, err
	}
	selected, err := s.store.LoadSelectedTalk(ctx)
	if err != nil {
		return PopupState{}, err
	}

	state := PopupState{
		Talks:        filterTalks(talks, level, maxDuration),
		CustomFields: fields,
		Level:        level,
		MaxDuration:  maxDuration,
	}
	if talk, ok := findTalk(talks, selected); ok && selected != "" {
		state.Selected = selected
		state.Details = buildDetails(talk, fields)
	}
	return state, nil
}

func findTalk(talks []Talk, title string) (Talk, bool) {
	for _, t := range talks {
		if t.Title == title {
			return t, true
		}
	}
	return Talk{}, false
}

func buildDetails(t Talk, fields []CustomField) *TalkDetails {
	details := &TalkDetails{
		Talk: t,
		Fields: []DetailField{
			{Label: "Title", Value: t.Title},
			{Label: "Description", Value: t.Description},
			{Label: "Duration", Value: strconv.Itoa(t.Duration)},
			{Label: "Level", Value: t.Level},
		},
		CustomFields: make([]DetailField, 0, len(fields)),
	}
	if t.Pitch != "" {
		details.Fields = append(details.Fields, DetailField{Label: "Pitch", Value: t.Pitch})
	}
	if t.Notes != "" {
		details.Fields = append(details.Fields, DetailField{Label: "Notes", Value: t.Notes})
	}
	for _, f := range fields {
		details.CustomFields = append(details.CustomFields, DetailField{Label: f.Name, Value: f.Value})
	}
	return details
}
