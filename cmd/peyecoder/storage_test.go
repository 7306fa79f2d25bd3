package main

import (
	"path/filepath"
	"testing"

	"github.com/peyecoder/peyecoder/internal/config"
	"github.com/peyecoder/peyecoder/internal/storage/memory"
	sqlitestorage "github.com/peyecoder/peyecoder/internal/storage/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateStorageBackend(t *testing.T) {
	dir := t.TempDir()

	mem, err := createStorageBackend(config.StorageConfig{
		Type:   "memory",
		Memory: config.MemoryConfig{OutputDir: dir},
	}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, mem)

	lite, err := createStorageBackend(config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "archive.db")},
	}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &sqlitestorage.Backend{}, lite)
	_, ok := lite.(snapshotter)
	assert.True(t, ok)
	require.NoError(t, lite.Close())

	_, err = createStorageBackend(config.StorageConfig{Type: "mongo"}, zerolog.Nop())
	assert.Error(t, err)
}
