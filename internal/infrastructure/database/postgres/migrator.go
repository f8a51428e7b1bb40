package postgres

import (
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

// Migrate applies all pending up migrations from sourcePath against the
// database.  A database already at the latest version is not an error.
func Migrate(cfg Config, sourcePath string, log logging.Logger) error {
	// The pgx/v5 migrate driver registers under the pgx5 scheme.
	url := strings.Replace(cfg.DSN(), "postgres://", "pgx5://", 1)
	m, err := migrate.New("file://"+sourcePath, url)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to initialize migrator")
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			log.Info("database schema already up to date")
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "migration failed")
	}

	version, dirty, err := m.Version()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read migration version")
	}
	log.Info("database migrated",
		logging.Any("version", version),
		logging.Bool("dirty", dirty),
	)
	return nil
}
