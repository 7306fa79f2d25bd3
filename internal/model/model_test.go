package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"Subject", &Subject{}, "subjects"},
		{"Event", &Event{}, "events"},
		{"Reason", &Reason{}, "reasons"},
		{"Trial", &Trial{}, "trials"},
		{"Offset", &Offset{}, "offsets"},
		{"Occluder", &Occluder{}, "occluders"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModels(t *testing.T) {
	assert.Len(t, DatabaseModels, 6)
}

func TestSubject_BeforeCreateAssignsID(t *testing.T) {
	s := &Subject{}
	require.NoError(t, s.BeforeCreate(nil))
	_, err := uuid.Parse(s.ID)
	assert.NoError(t, err)

	kept := &Subject{ID: "fixed"}
	require.NoError(t, kept.BeforeCreate(nil))
	assert.Equal(t, "fixed", kept.ID)
}
