package gormstorage

import (
	"path/filepath"
	"testing"

	"github.com/peyecoder/peyecoder/internal/database"
	"github.com/peyecoder/peyecoder/internal/model"
	"github.com/peyecoder/peyecoder/internal/storage"
	"github.com/peyecoder/peyecoder/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.GetSqliteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	b := New(db, zerolog.Nop())
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func subject(number string, frames ...int) *core.Subject {
	s := core.NewSubject()
	s.UpdateFromDict(map[string]any{"Number": number, "Birthday": "2020-01-01"})
	for i, f := range frames {
		s.Timeline.Add(core.Event{Trial: 1, Status: i < len(frames)-1, Response: core.ResponseLeft, Frame: f})
	}
	s.Occluders = core.Occluders{{X: 0, Y: 0, W: 10, H: 10}}
	_ = s.Reasons.Add(core.Reason{Trial: 1, Include: core.Included}, core.Secondary)
	return s
}

func TestInit_NoDB(t *testing.T) {
	b := New(nil, zerolog.Nop())
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestSaveLoad(t *testing.T) {
	b := newTestBackend(t)
	original := subject("12", 5, 10, 20)

	require.NoError(t, b.SaveSubject(original))
	loaded, err := b.LoadSubject("12")
	require.NoError(t, err)

	assert.Equal(t, original.Info, loaded.Info)
	assert.Equal(t, original.Timeline.Events(), loaded.Timeline.Events())
	assert.Equal(t, original.Occluders, loaded.Occluders)
	r, ok := loaded.Reasons.Get(1, core.Secondary)
	require.True(t, ok)
	assert.Equal(t, core.Included, r.Include)
}

func TestSaveLoad_RemovedOffset(t *testing.T) {
	b := newTestBackend(t)
	original := subject("12", 5, 10)
	original.Timeline.Add(core.Event{Trial: 2, Status: false, Response: core.ResponseOff, Frame: 500, HasOffset: true})
	original.Timeline.RemoveOffset(100)

	require.NoError(t, b.SaveSubject(original))
	loaded, err := b.LoadSubject("12")
	require.NoError(t, err)

	removed, ok := loaded.Timeline.RemovedOffset()
	require.True(t, ok)
	assert.Equal(t, 100, removed)
	loaded.Timeline.ResetOffset()
	assert.Equal(t, 500, loaded.Timeline.Events()[2].Frame)
}

func TestSaveSubject_ReplacesExisting(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.SaveSubject(subject("12", 5, 10, 20)))

	var first model.Subject
	require.NoError(t, b.DB().Where("number = ?", "12").Take(&first).Error)

	require.NoError(t, b.SaveSubject(subject("12", 1, 2)))

	var subjects []model.Subject
	require.NoError(t, b.DB().Find(&subjects).Error)
	require.Len(t, subjects, 1)
	assert.Equal(t, first.ID, subjects[0].ID)

	var events int64
	require.NoError(t, b.DB().Model(&model.Event{}).Count(&events).Error)
	assert.Equal(t, int64(2), events)

	loaded, err := b.LoadSubject("12")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Timeline.Len())
}

func TestLoadSubject_NotFound(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.LoadSubject("nope")
	assert.ErrorIs(t, err, storage.ErrSubjectNotFound)
}

func TestListSubjects_NaturalOrder(t *testing.T) {
	b := newTestBackend(t)
	for _, n := range []string{"s10", "s2", "s1"} {
		require.NoError(t, b.SaveSubject(subject(n, 0, 1)))
	}

	numbers, err := b.ListSubjects()
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2", "s10"}, numbers)
}

func TestDeleteSubject(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.SaveSubject(subject("9", 0, 1)))

	require.NoError(t, b.DeleteSubject("9"))
	assert.ErrorIs(t, b.DeleteSubject("9"), storage.ErrSubjectNotFound)

	var occluders int64
	require.NoError(t, b.DB().Model(&model.Occluder{}).Count(&occluders).Error)
	assert.Zero(t, occluders)
}
