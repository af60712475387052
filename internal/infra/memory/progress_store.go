package memory

import (
	"context"
	"sync"

	"kora-games/internal/domain"
)

// ProgressStore keeps progress records in a map, one per installation.
type ProgressStore struct {
	mu      sync.RWMutex
	records map[string]domain.Progress
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{records: make(map[string]domain.Progress)}
}

func (s *ProgressStore) Load(_ context.Context, installationID string) (domain.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.records[installationID]
	if !ok {
		return domain.NewProgress(), nil
	}
	return copyProgress(p), nil
}

func (s *ProgressStore) Save(_ context.Context, installationID string, p domain.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[installationID] = copyProgress(p)
	return nil
}

func copyProgress(p domain.Progress) domain.Progress {
	out := p
	out.Badges = append([]string{}, p.Badges...)
	out.Plays = make(map[string]int, len(p.Plays))
	for k, v := range p.Plays {
		out.Plays[k] = v
	}
	return out
}
