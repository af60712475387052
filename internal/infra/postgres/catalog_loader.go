package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"kora-games/internal/domain"
)

// CatalogLoader loads game JSONB documents from Postgres.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadGame(ctx context.Context, gameID string) (domain.Game, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM games WHERE id=$1`, gameID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("load game: %w", err)
	}
	var game domain.Game
	if err := json.Unmarshal(raw, &game); err != nil {
		return domain.Game{}, fmt.Errorf("unmarshal game: %w", err)
	}
	return game, nil
}

func (l *CatalogLoader) ListGames(ctx context.Context) ([]domain.GameSummary, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM games ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []domain.GameSummary
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		var game domain.Game
		if err := json.Unmarshal(raw, &game); err != nil {
			return nil, fmt.Errorf("unmarshal game: %w", err)
		}
		out = append(out, game.Summary())
	}
	return out, rows.Err()
}

// SeedGames upserts catalogs into the games table.
func SeedGames(ctx context.Context, pool *pgxpool.Pool, games map[string]domain.Game) error {
	batch := &pgx.Batch{}
	for id, game := range games {
		data, err := json.Marshal(game)
		if err != nil {
			return fmt.Errorf("marshal game %s: %w", id, err)
		}
		batch.Queue(`INSERT INTO games (id, data) VALUES ($1, $2::jsonb)
			ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`, id, string(data))
	}
	br := pool.SendBatch(ctx, batch)
	defer br.Close()
	for range games {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("seed games: %w", err)
		}
	}
	return nil
}
