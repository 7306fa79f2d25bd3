// Package postgres implements the storage.Backend interface on PostgreSQL.
// Connection failures fall back to a local SQLite database, as the database
// manager does.
package postgres

import (
	"fmt"

	"github.com/peyecoder/peyecoder/internal/database"
	gormstorage "github.com/peyecoder/peyecoder/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Backend wraps the GORM backend with a managed Postgres connection.
type Backend struct {
	*gormstorage.Backend
	manager *database.Manager
}

// New connects using the db.* settings. fallbackPath is the SQLite file used
// when Postgres cannot be reached.
func New(fallbackPath string, log zerolog.Logger) (*Backend, error) {
	m := database.NewManager(log)
	m.SqliteFilePath = fallbackPath
	if err := m.Connect(); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &Backend{
		Backend: gormstorage.New(m.DB, log),
		manager: m,
	}, nil
}

// Init migrates the schema through the manager.
func (b *Backend) Init() error {
	return b.manager.Setup()
}

// IsLocal reports whether the backend fell back to SQLite.
func (b *Backend) IsLocal() bool {
	return b.manager.ShouldSaveLocal
}
