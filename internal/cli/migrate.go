package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	pgstore "kora-games/internal/infra/postgres"
	pgmigrations "kora-games/internal/infra/postgres/migrations"
	"kora-games/internal/logging"
)

// NewMigrateCmd applies database migrations and optionally seeds the games table.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "upsert the local catalog into the games table")
	return cmd
}

func runMigrations(ctx context.Context, configPath string, seed bool) error {
	d, err := loadDeps(ctx, configPath)
	if err != nil {
		return err
	}
	defer d.Close()
	if d.db == nil {
		return fmt.Errorf("postgres url not configured")
	}
	ctx = logging.NewContext(ctx, d.logger)

	if err := migrateDB(ctx, d.db); err != nil {
		return err
	}
	if seed {
		if err := pgstore.SeedGames(ctx, d.pool, d.games); err != nil {
			return err
		}
		d.logger.Info("games seeded", "count", len(d.games))
	}
	return nil
}

func migrateDB(ctx context.Context, db *bun.DB) error {
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger := logging.FromContext(ctx)
	if group.IsZero() {
		logger.Info("no new migrations")
		return nil
	}
	logger.Info("migrations applied", "group", group.String())
	return nil
}
