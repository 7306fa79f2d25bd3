package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSubject(t *testing.T) *Subject {
	t.Helper()
	s := NewSubject()
	s.UpdateFromDict(map[string]any{
		"Number":       "17",
		"Birthday":     "2019-03-01",
		"Date of Test": "2020-09-01",
		"Coder":        "AB",
		"Sex":          false,
		"Notes":        "sleepy",
	})
	s.TrialOrder = TrialOrderFromRecords([]map[string]string{
		{"Name": "Order A", "Trial Number": "1", "Used": "yes"},
		{"Name": "Order A", "Trial Number": "2", "Used": "no"},
	})
	s.Timeline = NewTimeline(on(1, ResponseLeft, 0), off(1, ResponseOff, 30))
	s.Offsets.Set(0, 108000)
	require.NoError(t, s.Reasons.Add(Reason{Trial: 1, Include: Included}, Primary))
	s.Occluders = Occluders{{X: 10, Y: 20, W: 30, H: 40}}
	return s
}

func TestSubject_Defaults(t *testing.T) {
	s := NewSubject()

	assert.Equal(t, DefaultStep, s.Settings.Step)
	assert.Equal(t, 54, s.Settings.ToggleTrialStatusKey)
	assert.Equal(t, ResponseCenter, s.Settings.ResponseKeys[53])
	assert.Equal(t, "29.97", s.Field("Framerate"))
	assert.Equal(t, NoTrialOrderLoaded, s.Field("Order"))
	assert.Equal(t, "N/A", s.Field("Sex"))
}

func TestSubject_FieldAndSexDisplay(t *testing.T) {
	s := sampleSubject(t)

	assert.Equal(t, "17", s.Field("Number"))
	assert.Equal(t, "Order A", s.Field("Order"))
	assert.Equal(t, "F", s.Field("Sex"))
	assert.Equal(t, "", s.Field("Unknown"))
	assert.True(t, s.Dirty)

	s.UpdateFromDict(map[string]any{"Sex": true})
	assert.Equal(t, "M", s.Info.Sex.String())
	assert.Equal(t, "", s.Info.Number, "fields missing from the dict are cleared")
}

func TestSubject_UnusedCombinesSources(t *testing.T) {
	s := sampleSubject(t)
	require.NoError(t, s.Reasons.Add(Reason{Trial: 1, Include: Excluded}, Primary))

	assert.ElementsMatch(t, []int{1, 2}, s.Unused())

	rows, msgs := s.ErrorItems()
	assert.Equal(t, []int{0, 1}, rows)
	assert.Equal(t, []string{MsgUnusedTrial}, msgs)
}

func TestSubject_PlistRoundTrip(t *testing.T) {
	s := sampleSubject(t)
	s.Settings.ResponseKeys[55] = "center"
	s.Settings.DropFrame = true

	restored := NewSubject()
	require.NoError(t, restored.FromPlist(s.ToPlist()))

	assert.Equal(t, s.Info, restored.Info)
	assert.Equal(t, s.Occluders, restored.Occluders)
	assert.Equal(t, s.Timeline.Events(), restored.Timeline.Events())
	assert.Equal(t, s.TrialOrder.Trials, restored.TrialOrder.Trials)
	assert.Equal(t, s.Reasons.Render(Both), restored.Reasons.Render(Both))
	assert.Equal(t, 108000, restored.Offsets.GetOffset(5))
	assert.Equal(t, s.Settings.ResponseKeys, restored.Settings.ResponseKeys)
	assert.True(t, restored.Settings.DropFrame)
	assert.False(t, restored.Dirty)
}

func TestSubject_RemovedOffsetSurvivesReload(t *testing.T) {
	s := NewSubject()
	legacy := on(1, ResponseLeft, 1000)
	legacy.HasOffset = true
	s.Timeline = NewTimeline(legacy)
	s.Timeline.RemoveOffset(100)

	reloaded := NewSubject()
	require.NoError(t, reloaded.FromPlist(s.ToPlist()))
	got, ok := reloaded.Timeline.RemovedOffset()
	require.True(t, ok)
	assert.Equal(t, 100, got)
	assert.Equal(t, 900, reloaded.Timeline.Events()[0].Frame)

	// the saved removal is restored before the new one is applied
	reloaded.Timeline.RemoveOffset(100)
	assert.Equal(t, 900, reloaded.Timeline.Events()[0].Frame)

	reloaded.Timeline.ResetOffset()
	assert.Equal(t, 1000, reloaded.Timeline.Events()[0].Frame)

	// nothing is written once the removal is undone
	_, written := toMap(reloaded.ToPlist()["Subject"])["Removed Offset"]
	assert.False(t, written)
}

func TestSubject_FromPlistRequiresSubject(t *testing.T) {
	err := NewSubject().FromPlist(map[string]any{"Other": 1})
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestSubject_SettingsKeepUnknownKeys(t *testing.T) {
	s := NewSubject()
	s.Settings.Update(map[string]any{"Response Keys": map[string]any{"49": "left"}, "Volume": uint64(3)})

	data := s.Settings.ToPlist()
	assert.Equal(t, uint64(3), data["Volume"])
	assert.Equal(t, map[string]any{"49": "left"}, data["Response Keys"])
}
