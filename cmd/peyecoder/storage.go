package main

import (
	"fmt"

	"github.com/peyecoder/peyecoder/internal/config"
	"github.com/peyecoder/peyecoder/internal/storage"
	"github.com/peyecoder/peyecoder/internal/storage/memory"
	pgstorage "github.com/peyecoder/peyecoder/internal/storage/postgres"
	sqlitestorage "github.com/peyecoder/peyecoder/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// snapshotter is implemented by backends that can copy their database to a file.
type snapshotter interface {
	Snapshot(path string) error
}

// initStorage opens the configured archive backend on first use.
func (a *app) initStorage() (storage.Backend, error) {
	if a.storage != nil {
		return a.storage, nil
	}

	storageCfg := config.GetStorageConfig()
	backend, err := createStorageBackend(storageCfg, a.logs.Zerolog("storage"))
	if err != nil {
		a.log.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		a.log.Error("Failed to initialize storage backend", "error", err)
		return nil, err
	}
	a.storage = backend
	return backend, nil
}

func createStorageBackend(storageCfg config.StorageConfig, log zerolog.Logger) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		backend, err := pgstorage.New(storageCfg.SQLite.Path, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres backend: %w", err)
		}
		if backend.IsLocal() {
			log.Warn().Str("path", storageCfg.SQLite.Path).Msg("Postgres unavailable, archiving to SQLite")
		} else {
			log.Info().Msg("Postgres storage backend initialized")
		}
		return backend, nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		log.Info().Str("path", storageCfg.SQLite.Path).Msg("SQLite storage backend initialized")
		return backend, nil

	case "memory", "":
		log.Info().Str("dir", storageCfg.Memory.OutputDir).Msg("Memory storage backend initialized")
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}
