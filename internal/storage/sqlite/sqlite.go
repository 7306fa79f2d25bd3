// Package sqlitestorage implements the storage.Backend interface using a
// SQLite file, or a shared in-memory database when no path is configured.
// It wraps the GORM backend via composition; the only SQLite-specific concern
// is taking snapshots with VACUUM INTO.
package sqlitestorage

import (
	"fmt"

	"github.com/peyecoder/peyecoder/internal/config"
	"github.com/peyecoder/peyecoder/internal/database"
	gormstorage "github.com/peyecoder/peyecoder/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	cfg config.SQLiteConfig
	log zerolog.Logger
}

// New opens the SQLite database at cfg.Path.
func New(cfg config.SQLiteConfig, log zerolog.Logger) (*Backend, error) {
	db, err := database.GetSqliteDB(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	log.Info().Str("path", cfg.Path).Msg("SQLite storage backend opened")

	return &Backend{
		Backend: gormstorage.New(db, log),
		cfg:     cfg,
		log:     log,
	}, nil
}

// Snapshot writes a consistent copy of the database to path.
func (b *Backend) Snapshot(path string) error {
	return database.DumpToDisk(b.DB(), path, b.log)
}
