package postgres

import (
	"path/filepath"
	"testing"

	"github.com/peyecoder/peyecoder/internal/storage"
	"github.com/peyecoder/peyecoder/pkg/core"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestNew_FallsBackToSqlite(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")
	viper.Set("db.username", "nobody")
	viper.Set("db.password", "none")
	viper.Set("db.database", "none")

	b, err := New(filepath.Join(t.TempDir(), "fallback.db"), zerolog.Nop())
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.Init())
	assert.True(t, b.IsLocal())

	s := core.NewSubject()
	s.UpdateFromDict(map[string]any{"Number": "1"})
	require.NoError(t, b.SaveSubject(s))

	numbers, err := b.ListSubjects()
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, numbers)
}
