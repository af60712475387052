package memory

import (
	"sync"

	"kora-games/internal/app"
)

// PlaythroughStore is an in-memory implementation of app.PlaythroughRepository.
type PlaythroughStore struct {
	mu           sync.RWMutex
	playthroughs map[string]*app.Playthrough
}

func NewPlaythroughStore() *PlaythroughStore {
	return &PlaythroughStore{
		playthroughs: make(map[string]*app.Playthrough),
	}
}

func (s *PlaythroughStore) Put(p *app.Playthrough) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playthroughs[p.ID] = p
}

func (s *PlaythroughStore) Get(id string) (*app.Playthrough, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.playthroughs[id]
	return p, ok
}

func (s *PlaythroughStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.playthroughs, id)
}

// Len reports how many playthroughs are live.
func (s *PlaythroughStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.playthroughs)
}
