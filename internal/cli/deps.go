package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"kora-games/internal/app"
	"kora-games/internal/catalog"
	"kora-games/internal/config"
	"kora-games/internal/domain"
	"kora-games/internal/infra/memory"
	pgstore "kora-games/internal/infra/postgres"
	redisstore "kora-games/internal/infra/redis"
	"kora-games/internal/logging"
	"kora-games/internal/progress"
)

const (
	defaultRedisTTL   = 10 * time.Minute
	defaultCatalogTTL = 10 * time.Minute
	defaultDelay      = 2 * time.Second
)

// deps holds the backends built from config. Every command constructs its own and closes it.
type deps struct {
	cfg    config.Config
	logger *slog.Logger
	games  map[string]domain.Game

	redis *redis.Client
	pool  *pgxpool.Pool
	db    *bun.DB
}

func loadDeps(ctx context.Context, path string) (*deps, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	d := &deps{cfg: cfg, logger: logging.New(cfg.Log.Level)}

	d.games, err = localCatalog(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Postgres.URL != "" {
		d.pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.db = pgstore.OpenBun(cfg.Postgres.URL)
	}
	return d, nil
}

func localCatalog(cfg config.Config) (map[string]domain.Game, error) {
	games := catalog.Builtin()
	if cfg.Catalog.Dir != "" {
		var err error
		games, err = catalog.LoadDir(cfg.Catalog.Dir)
		if err != nil {
			return nil, err
		}
	}
	return catalog.WithDefaultDelay(games, config.DurationOr(cfg.Games.DefaultDelay, defaultDelay)), nil
}

func (d *deps) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
	if d.db != nil {
		_ = d.db.Close()
	}
}

func (d *deps) catalogRepository() app.CatalogRepository {
	var loader memory.CatalogLoader = memory.NewStaticCatalogLoader(d.games)
	if d.pool != nil {
		loader = pgstore.NewCatalogLoader(d.pool)
	}
	ttl := config.DurationOr(d.cfg.Catalog.TTL, defaultCatalogTTL)
	if d.redis != nil {
		return redisstore.NewCatalogRepository(d.redis, loader, ttl)
	}
	return memory.NewCatalogRepository(loader, ttl)
}

func (d *deps) playthroughStore() app.PlaythroughRepository {
	if d.redis != nil {
		return redisstore.NewPlaythroughStore(d.redis, config.DurationOr(d.cfg.Redis.TTL, defaultRedisTTL))
	}
	return memory.NewPlaythroughStore()
}

func (d *deps) progressStore() progress.Store {
	switch {
	case d.db != nil:
		return pgstore.NewProgressStore(d.db)
	case d.redis != nil:
		return redisstore.NewProgressStore(d.redis)
	default:
		return memory.NewProgressStore()
	}
}

func (d *deps) tracker() *progress.Tracker {
	return progress.NewTracker(d.progressStore(), catalog.HubGames(d.games, catalog.EmotionGamesHub), d.logger)
}

func (d *deps) gameService() *app.GameService {
	return app.NewGameService(d.catalogRepository(), d.playthroughStore(), d.tracker(), app.WithLogger(d.logger))
}
