package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"kora-games/internal/domain"
	"kora-games/internal/progress"
)

type progressRow struct {
	bun.BaseModel `bun:"table:game_progress"`

	InstallationID string          `bun:"installation_id,pk"`
	SchemaVersion  int             `bun:"schema_version,notnull"`
	Data           domain.Progress `bun:"data,type:jsonb,notnull"`
	UpdatedAt      time.Time       `bun:"updated_at,notnull"`
}

// ProgressStore persists progress records in the game_progress table, one row per installation.
type ProgressStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewProgressStore(db *bun.DB) *ProgressStore {
	return &ProgressStore{db: db, now: time.Now}
}

func (s *ProgressStore) Load(ctx context.Context, installationID string) (domain.Progress, error) {
	var row progressRow
	err := s.db.NewSelect().
		Model(&row).
		Where("installation_id = ?", installationID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewProgress(), nil
	}
	if err != nil {
		return domain.Progress{}, fmt.Errorf("select progress: %w", err)
	}
	return progress.Migrate(row.Data), nil
}

func (s *ProgressStore) Save(ctx context.Context, installationID string, p domain.Progress) error {
	return s.upsert(ctx, s.db, installationID, p)
}

// Update locks the installation's row for the duration of a transaction, so completions written
// by different instances are applied one after another. A missing row is inserted first so there
// is always something to lock.
func (s *ProgressStore) Update(ctx context.Context, installationID string, fn func(domain.Progress) (domain.Progress, error)) (domain.Progress, error) {
	var out domain.Progress
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		fresh := progressRow{
			InstallationID: installationID,
			SchemaVersion:  domain.ProgressSchemaVersion,
			Data:           domain.NewProgress(),
			UpdatedAt:      s.now(),
		}
		if _, err := tx.NewInsert().Model(&fresh).On("CONFLICT (installation_id) DO NOTHING").Exec(ctx); err != nil {
			return fmt.Errorf("insert progress: %w", err)
		}

		var row progressRow
		err := tx.NewSelect().
			Model(&row).
			Where("installation_id = ?", installationID).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("lock progress: %w", err)
		}

		next, err := fn(progress.Migrate(row.Data))
		if err != nil {
			return err
		}
		if err := s.upsert(ctx, tx, installationID, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return domain.Progress{}, err
	}
	return out, nil
}

func (s *ProgressStore) upsert(ctx context.Context, db bun.IDB, installationID string, p domain.Progress) error {
	row := progressRow{
		InstallationID: installationID,
		SchemaVersion:  p.SchemaVersion,
		Data:           p,
		UpdatedAt:      s.now(),
	}
	_, err := db.NewInsert().
		Model(&row).
		On("CONFLICT (installation_id) DO UPDATE").
		Set("schema_version = EXCLUDED.schema_version").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}
