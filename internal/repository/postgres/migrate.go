package postgres

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending schema migrations
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrationURL(databaseURL))
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("Database schema up to date")
			return nil
		}
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			return fmt.Errorf("database schema is dirty at version %d: %w", dirty.Version, err)
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return reportVersion(log.Logger, m)
}

type versioner interface {
	Version() (version uint, dirty bool, err error)
}

// reportVersion logs the schema version reached by a successful Up
func reportVersion(logger zerolog.Logger, v versioner) error {
	version, dirty, err := v.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("Database migrations applied, version unknown")
		return nil
	}
	if dirty {
		return fmt.Errorf("database schema left dirty at version %d", version)
	}
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("Database migrations applied")
	return nil
}

// migrationURL rewrites a postgres DSN to the pgx/v5 migrate driver scheme
func migrationURL(databaseURL string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}
