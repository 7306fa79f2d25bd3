package convert

import (
	"testing"

	"github.com/peyecoder/peyecoder/internal/model"
	"github.com/peyecoder/peyecoder/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func sampleSubject(t *testing.T) *core.Subject {
	t.Helper()
	s := core.NewSubject()
	s.UpdateFromDict(map[string]any{
		"Number":       "42",
		"Birthday":     "2020-02-02",
		"Date of Test": "2021-03-03",
		"Coder":        "AB",
		"Sex":          false,
		"Notes":        "calm",
	})
	s.Settings.Framerate = "25"
	s.Settings.Step = 5

	legacy := core.Event{Trial: 2, Status: false, Response: core.ResponseOff, Frame: 90, HasOffset: true}
	s.Timeline = core.NewTimeline(
		core.Event{Trial: 1, Status: true, Response: core.ResponseLeft, Frame: 10},
		core.Event{Trial: 1, Status: false, Response: core.ResponseOff, Frame: 40},
		core.Event{Trial: 2, Status: true, Response: core.ResponseRight, Frame: 60},
		legacy,
	)
	require.NoError(t, s.Reasons.Add(core.Reason{Trial: 1, Include: core.Included}, core.Primary))
	require.NoError(t, s.Reasons.Add(core.Reason{Trial: 2, Include: core.Excluded, Reason: "fussy"}, core.Secondary))
	s.Offsets.Set(0, 12)
	s.Offsets.Set(50, -3)
	s.Occluders = core.Occluders{{X: 1, Y: 2, W: 3, H: 4}, {X: 100, Y: 0, W: 20, H: 20}}

	partial := core.TrialFromPlist(map[string]any{"Trial Number": 2, "Target Side": "L"})
	s.TrialOrder = core.NewTrialOrder([]core.Trial{
		core.TrialFromRecord(map[string]string{"Name": "A", "Trial Number": "1", "Target Side": "R", "Trial End": "500"}),
		partial,
	})
	s.Dirty = false
	return s
}

func TestSubjectRoundTrip(t *testing.T) {
	original := sampleSubject(t)

	rec, err := CoreToSubject(original)
	require.NoError(t, err)
	assert.Equal(t, "42", rec.Number)
	assert.Equal(t, "F", rec.Sex)
	assert.Equal(t, "25", rec.Framerate)
	assert.Len(t, rec.Events, 4)
	assert.Len(t, rec.Reasons, 2)
	assert.Len(t, rec.Offsets, 2)
	assert.Equal(t, "POLYGON((1 2,4 2,4 6,1 6,1 2))", rec.Occluders[0].Shape)

	restored, err := SubjectToCore(rec)
	require.NoError(t, err)
	assert.Equal(t, original.Info, restored.Info)
	assert.Equal(t, original.Timeline.Events(), restored.Timeline.Events())
	assert.Equal(t, original.TrialOrder.Trials, restored.TrialOrder.Trials)
	assert.False(t, restored.TrialOrder.Trials[1].Has(core.FieldName))
	assert.Equal(t, original.Occluders, restored.Occluders)
	assert.Equal(t, original.Offsets.Keys(), restored.Offsets.Keys())
	assert.Equal(t, -3, restored.Offsets.GetOffset(60))
	assert.Equal(t, original.Reasons.Render(core.Both), restored.Reasons.Render(core.Both))
	assert.Equal(t, 5, restored.Settings.Step)
	assert.Equal(t, original.Settings.ResponseKeys, restored.Settings.ResponseKeys)
	assert.Equal(t, "25", restored.Framerate())
	assert.False(t, restored.Dirty)
}

func TestSubjectRoundTrip_RemovedOffset(t *testing.T) {
	original := sampleSubject(t)
	original.Timeline.RemoveOffset(30)

	rec, err := CoreToSubject(original)
	require.NoError(t, err)
	require.NotNil(t, rec.RemovedOffset)
	assert.Equal(t, 30, *rec.RemovedOffset)

	restored, err := SubjectToCore(rec)
	require.NoError(t, err)
	got, ok := restored.Timeline.RemovedOffset()
	require.True(t, ok)
	assert.Equal(t, 30, got)

	restored.Timeline.ResetOffset()
	assert.Equal(t, 90, restored.Timeline.Events()[3].Frame)

	rec, err = CoreToSubject(restored)
	require.NoError(t, err)
	assert.Nil(t, rec.RemovedOffset)
}

func TestSubjectToCore_EventsFollowPosition(t *testing.T) {
	rec := model.Subject{
		Number: "1",
		Events: []model.Event{
			{Position: 1, Trial: 1, Status: false, Response: core.ResponseOff, Frame: 20},
			{Position: 0, Trial: 1, Status: true, Response: core.ResponseLeft, Frame: 10},
		},
	}

	s, err := SubjectToCore(rec)
	require.NoError(t, err)
	events := s.Timeline.Events()
	require.Len(t, events, 2)
	assert.Equal(t, 10, events[0].Frame)
	assert.Equal(t, core.DefaultFramerate, s.Framerate())
}

func TestSubjectToCore_BadSettings(t *testing.T) {
	_, err := SubjectToCore(model.Subject{Number: "1", Settings: datatypes.JSON("{")})
	assert.Error(t, err)
}

func TestSubjectToCore_BadPrescreener(t *testing.T) {
	_, err := SubjectToCore(model.Subject{Number: "1", Reasons: []model.Reason{{Prescreener: 0, Trial: 1}}})
	assert.ErrorIs(t, err, core.ErrInvalidPrescreener)
}

func TestSubjectToCore_BadOccluder(t *testing.T) {
	_, err := SubjectToCore(model.Subject{Number: "1", Occluders: []model.Occluder{{Shape: "LINESTRING(0 0,1 1)"}}})
	assert.Error(t, err)
}

func TestCoreToTrial_KeepsPresence(t *testing.T) {
	trial := core.TrialFromPlist(map[string]any{"Trial Number": 3, "Used": "no"})

	rec := CoreToTrial(trial, 7)
	assert.Equal(t, 7, rec.Position)
	assert.Equal(t, uint16(core.FieldTrialNumber|core.FieldUsed), rec.Present)
	assert.Equal(t, trial, TrialToCore(rec))
}
