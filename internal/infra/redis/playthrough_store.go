package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"kora-games/internal/app"
)

// PlaythroughStore is a Redis-aware implementation of app.PlaythroughRepository.
// Controllers own timers and callbacks, so playthroughs stay in a local map; Redis carries a
// liveness marker per playthrough (game and installation) for operators and other instances.
type PlaythroughStore struct {
	client       *redis.Client
	ttl          time.Duration
	mu           sync.RWMutex
	playthroughs map[string]*app.Playthrough
}

func NewPlaythroughStore(client *redis.Client, ttl time.Duration) *PlaythroughStore {
	return &PlaythroughStore{
		client:       client,
		ttl:          ttl,
		playthroughs: make(map[string]*app.Playthrough),
	}
}

func (s *PlaythroughStore) Put(p *app.Playthrough) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playthroughs[p.ID] = p
	// best-effort liveness marker
	ctx := context.Background()
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(p.ID), map[string]interface{}{
		"game":         p.Controller().Game().ID,
		"installation": p.InstallationID,
		"seed":         p.Seed,
		"started_at":   p.StartedAt.UTC().Format(time.RFC3339),
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(p.ID), s.ttl)
	}
	_, _ = pipe.Exec(ctx)
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
	if _, ok := s.playthroughs[id]; !ok {
		return
	}
	delete(s.playthroughs, id)
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

func (s *PlaythroughStore) key(id string) string {
	return "kora:playthrough:" + id
}
