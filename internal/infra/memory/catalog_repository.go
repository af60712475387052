package memory

import (
	"context"
	"errors"
	"maps"
	"math/rand"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"kora-games/internal/catalog"
	"kora-games/internal/domain"
)

// CatalogLoader fetches game catalogs from a backing store (embedded YAML, Postgres, ...).
type CatalogLoader interface {
	LoadGame(ctx context.Context, gameID string) (domain.Game, error)
	ListGames(ctx context.Context) ([]domain.GameSummary, error)
}

// CatalogRepository keeps loaded games and the hub listing in process memory. Unknown game IDs are
// remembered for a short while too, so a client retrying a bad link does not reach the loader
// on every attempt.
type CatalogRepository struct {
	loader  CatalogLoader
	ttl     time.Duration
	missTTL time.Duration
	clock   func() time.Time
	loads   singleflight.Group

	mu      sync.RWMutex
	games   map[string]entry[domain.Game]
	missing map[string]time.Time
	listing entry[[]domain.GameSummary]
}

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e entry[T]) fresh(now time.Time) bool { return e.expiresAt.After(now) }

const (
	listingKey = "\x00listing"
	minMissTTL = time.Second
	// past this many remembered misses, expired ones are swept on the next insert
	missSweepAt = 1024
)

func NewCatalogRepository(loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader:  loader,
		ttl:     ttl,
		missTTL: max(ttl/10, minMissTTL),
		clock:   time.Now,
		games:   make(map[string]entry[domain.Game]),
		missing: make(map[string]time.Time),
	}
}

func (r *CatalogRepository) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	if g, ok, err := r.cachedGame(gameID); ok {
		return g, err
	}
	v, err, _ := r.loads.Do(gameID, func() (any, error) {
		if g, ok, err := r.cachedGame(gameID); ok {
			return g, err
		}
		game, err := r.loader.LoadGame(ctx, gameID)
		now := r.clock()
		r.mu.Lock()
		defer r.mu.Unlock()
		switch {
		case errors.Is(err, domain.ErrGameNotFound):
			if len(r.missing) >= missSweepAt {
				maps.DeleteFunc(r.missing, func(_ string, until time.Time) bool { return !until.After(now) })
			}
			r.missing[gameID] = now.Add(r.missTTL)
			return domain.Game{}, err
		case err != nil:
			return domain.Game{}, err
		}
		delete(r.missing, gameID)
		r.games[gameID] = entry[domain.Game]{value: game, expiresAt: now.Add(r.expiry())}
		return game, nil
	})
	if err != nil {
		return domain.Game{}, err
	}
	return v.(domain.Game), nil
}

// ListGames returns the hub listing, reloading it once its entry expires.
func (r *CatalogRepository) ListGames(ctx context.Context) ([]domain.GameSummary, error) {
	r.mu.RLock()
	listing := r.listing
	r.mu.RUnlock()
	if listing.fresh(r.clock()) {
		return slices.Clone(listing.value), nil
	}

	v, err, _ := r.loads.Do(listingKey, func() (any, error) {
		list, err := r.loader.ListGames(ctx)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.listing = entry[[]domain.GameSummary]{value: list, expiresAt: r.clock().Add(r.expiry())}
		r.mu.Unlock()
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]domain.GameSummary)), nil
}

// cachedGame reports ok when the cache can answer for gameID, either with the game or with
// ErrGameNotFound.
func (r *CatalogRepository) cachedGame(gameID string) (domain.Game, bool, error) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.games[gameID]; ok && e.fresh(now) {
		return e.value, true, nil
	}
	if until, ok := r.missing[gameID]; ok && until.After(now) {
		return domain.Game{}, true, domain.ErrGameNotFound
	}
	return domain.Game{}, false, nil
}

// expiry spreads expirations over up to 10% past the configured TTL.
func (r *CatalogRepository) expiry() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	return r.ttl + time.Duration(rand.Int63n(int64(r.ttl/10+1)))
}

// StaticCatalogLoader is a loader backed by an in-memory map (built-in catalogs, tests, demos).
type StaticCatalogLoader struct {
	games map[string]domain.Game
}

func NewStaticCatalogLoader(games map[string]domain.Game) *StaticCatalogLoader {
	return &StaticCatalogLoader{games: games}
}

func (l *StaticCatalogLoader) LoadGame(_ context.Context, gameID string) (domain.Game, error) {
	if game, ok := l.games[gameID]; ok {
		return game, nil
	}
	return domain.Game{}, domain.ErrGameNotFound
}

func (l *StaticCatalogLoader) ListGames(_ context.Context) ([]domain.GameSummary, error) {
	return catalog.Summaries(l.games), nil
}
