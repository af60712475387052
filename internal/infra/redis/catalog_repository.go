package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"kora-games/internal/domain"
)

// CatalogLoader fetches game catalogs from a backing store.
type CatalogLoader interface {
	LoadGame(ctx context.Context, gameID string) (domain.Game, error)
	ListGames(ctx context.Context) ([]domain.GameSummary, error)
}

// CatalogRepository caches whole game catalogs in Redis and falls back to a loader on miss.
// Games are stored as JSON: SET kora:game:{gameID} {json} EX ttl
type CatalogRepository struct {
	client *redis.Client
	loader CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCatalogRepository(client *redis.Client, loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	if game, ok := r.cached(ctx, gameID); ok {
		return game, nil
	}

	result, err, _ := r.sf.Do(gameID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if game, ok := r.cached(ctx, gameID); ok {
			return game, nil
		}

		game, err := r.loader.LoadGame(ctx, gameID)
		if err != nil {
			return domain.Game{}, err
		}

		data, err := json.Marshal(game)
		if err != nil {
			return domain.Game{}, fmt.Errorf("marshal game: %w", err)
		}
		// best-effort: a failed write only costs a reload next time
		_ = r.client.Set(ctx, gameKey(gameID), data, r.ttlWithJitter()).Err()
		return game, nil
	})
	if err != nil {
		return domain.Game{}, err
	}
	return result.(domain.Game), nil
}

func (r *CatalogRepository) ListGames(ctx context.Context) ([]domain.GameSummary, error) {
	return r.loader.ListGames(ctx)
}

// Invalidate drops a cached game so the next read goes to the loader.
func (r *CatalogRepository) Invalidate(ctx context.Context, gameID string) error {
	return r.client.Del(ctx, gameKey(gameID)).Err()
}

func (r *CatalogRepository) cached(ctx context.Context, gameID string) (domain.Game, bool) {
	raw, err := r.client.Get(ctx, gameKey(gameID)).Bytes()
	if err != nil {
		return domain.Game{}, false
	}
	var game domain.Game
	if err := json.Unmarshal(raw, &game); err != nil {
		return domain.Game{}, false
	}
	return game, true
}

func gameKey(gameID string) string {
	return "kora:game:" + gameID
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// isMiss reports whether err is a cache miss rather than a Redis failure.
func isMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}
