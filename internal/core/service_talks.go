package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/talkshelf/internal/metrics"
)

// ListTalks returns all stored talks in storage order.
func (s *Service) ListTalks(ctx context.Context) ([]Talk, error) {
	return s.store.LoadTalks(ctx)
}

// GetTalk returns the talk at index.
func (s *Service) GetTalk(ctx context.Context, index int) (Talk, error) {
	talks, err := s.store.LoadTalks(ctx)
	if err != nil {
		return Talk{}, err
	}
	if index < 0 || index >= len(talks) {
		return Talk{}, fmt.Errorf("%w: index %d", ErrTalkNotFound, index)
	}
	return talks[index], nil
}

// FilterTalks returns talks matching level (exact, "" for any) with a
// duration of at most maxDuration minutes (0 for any).
func (s *Service) FilterTalks(ctx context.Context, level string, maxDuration int) ([]Talk, error) {
	talks, err := s.store.LoadTalks(ctx)
	if err != nil {
		return nil, err
	}
	return filterTalks(talks, level, maxDuration), nil
}

func filterTalks(talks []Talk, level string, maxDuration int) []Talk {
	if level == "" && maxDuration <= 0 {
		return talks
	}
	out := make([]Talk, 0, len(talks))
	for _, t := range talks {
		if level != "" && t.Level != level {
			continue
		}
		if maxDuration > 0 && t.Duration > maxDuration {
			continue
		}
		out = append(out, t)
	}
	return out
}

// AddTalk validates and appends a manually entered talk. Manual adds are
// not deduplicated.
func (s *Service) AddTalk(ctx context.Context, t Talk) (Talk, error) {
	t, err := NormalizeTalk(t)
	if err != nil {
		return Talk{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	talks, err := s.store.LoadTalks(ctx)
	if err != nil {
		return Talk{}, err
	}
	talks = append(talks, t)
	if err := s.store.SaveTalks(ctx, talks); err != nil {
		return Talk{}, err
	}
	metrics.SetStoredTalks(len(talks))
	return t, nil
}

// UpdateTalk replaces the talk at index.
func (s *Service) UpdateTalk(ctx context.Context, index int, t Talk) (Talk, error) {
	t, err := NormalizeTalk(t)
	if err != nil {
		return Talk{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	talks, err := s.store.LoadTalks(ctx)
	if err != nil {
		return Talk{}, err
	}
	if index < 0 || index >= len(talks) {
		return Talk{}, fmt.Errorf("%w: index %d", ErrTalkNotFound, index)
	}
	talks[index] = t
	if err := s.store.SaveTalks(ctx, talks); err != nil {
		return Talk{}, err
	}
	return t, nil
}

// DeleteTalk removes the talk at index and returns it.
func (s *Service) DeleteTalk(ctx context.Context, index int) (Talk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	talks, err := s.store.LoadTalks(ctx)
	if err != nil {
		return Talk{}, err
	}
	if index < 0 || index >= len(talks) {
		return Talk{}, fmt.Errorf("%w: index %d", ErrTalkNotFound, index)
	}
	removed := talks[index]
	talks = append(talks[:index], talks[index+1:]...)
	if err := s.store.SaveTalks(ctx, talks); err != nil {
		return Talk{}, err
	}
	metrics.SetStoredTalks(len(talks))
	return removed, nil
}

// DeleteAllTalks empties the talk collection and returns how many talks
// were removed.
func (s *Service) DeleteAllTalks(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	talks, err := s.store.LoadTalks(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.store.SaveTalks(ctx, []Talk{}); err != nil {
		return 0, err
	}
	metrics.SetStoredTalks(0)
	return len(talks), nil
}
