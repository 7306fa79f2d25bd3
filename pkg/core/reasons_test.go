package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agreeingReasons(t *testing.T) *Reasons {
	t.Helper()
	r := NewReasons()
	for _, ps := range []Prescreener{Primary, Secondary} {
		require.NoError(t, r.Add(Reason{Trial: 1, Include: Included}, ps))
		require.NoError(t, r.Add(Reason{Trial: 3, Include: Excluded, Reason: "fussy"}, ps))
	}
	return r
}

func TestReasons_AddRequiresSinglePrescreener(t *testing.T) {
	r := NewReasons()
	assert.ErrorIs(t, r.Add(Reason{Trial: 1}, Both), ErrInvalidPrescreener)
	assert.ErrorIs(t, r.Delete(1, Prescreener(7)), ErrInvalidPrescreener)
}

func TestReasons_AddUpserts(t *testing.T) {
	r := NewReasons()
	require.NoError(t, r.Add(Reason{Trial: 2, Include: Included}, Primary))
	require.NoError(t, r.Add(Reason{Trial: 2, Include: Excluded, Reason: "crying"}, Primary))

	got, ok := r.Get(2, Primary)
	require.True(t, ok)
	assert.Equal(t, Excluded, got.Include)
	assert.Len(t, r.Trials(Primary), 1)
	_, ok = r.Get(2, Secondary)
	assert.False(t, ok)
}

func TestReasons_DeleteBoth(t *testing.T) {
	r := agreeingReasons(t)
	require.NoError(t, r.Delete(3, Both))

	assert.Equal(t, []int{1}, r.Trials(Primary))
	assert.Equal(t, []int{1}, r.Trials(Secondary))
}

func TestReasons_ChangeTrial(t *testing.T) {
	r := agreeingReasons(t)

	require.NoError(t, r.ChangeTrial(3, 2, Primary))
	moved, ok := r.Get(5, Primary)
	require.True(t, ok)
	assert.Equal(t, 5, moved.Trial)
	_, ok = r.Get(3, Secondary)
	assert.True(t, ok, "secondary untouched")
}

func TestReasons_ChangeTrialConflictLeavesBothMapsUnchanged(t *testing.T) {
	r := agreeingReasons(t)
	require.NoError(t, r.Add(Reason{Trial: 4, Include: Included}, Secondary))
	before := r.Render(Both)

	err := r.ChangeTrial(3, 1, Both)
	assert.ErrorIs(t, err, ErrTrialConflict)
	assert.Equal(t, before, r.Render(Both))
}

func TestReasons_Render(t *testing.T) {
	r := NewReasons()
	require.NoError(t, r.Add(Reason{Trial: 5, Include: Excluded, Reason: "parent"}, Primary))
	require.NoError(t, r.Add(Reason{Trial: 2, Include: Included}, Primary))
	require.NoError(t, r.Add(Reason{Trial: 7, Include: Included}, Secondary))

	assert.Equal(t, [][]string{{"2", "yes", ""}, {"5", "no", "parent"}}, r.Render(Primary))
	assert.Equal(t, [][]string{
		{"2", "yes", "", "", ""},
		{"5", "no", "parent", "", ""},
		{"7", "", "", "yes", ""},
	}, r.Render(Both))
}

func TestReasons_ErrorItems(t *testing.T) {
	r := agreeingReasons(t)

	rows, trials := r.ErrorItems(Both)
	assert.Empty(t, rows)
	assert.Empty(t, trials)

	require.NoError(t, r.Add(Reason{Trial: 3, Include: Included, Reason: "fussy"}, Secondary))
	rows, trials = r.ErrorItems(Both)
	assert.Equal(t, []int{1}, rows)
	assert.Equal(t, []int{3}, trials)

	// a trial only the secondary coded has no row in the primary rendering
	require.NoError(t, r.Add(Reason{Trial: 9, Include: Included}, Secondary))
	rows, trials = r.ErrorItems(Primary)
	assert.Equal(t, []int{1}, rows)
	assert.Equal(t, []int{3, 9}, trials)
}

func TestReasons_Unused(t *testing.T) {
	r := agreeingReasons(t)
	require.NoError(t, r.Add(Reason{Trial: 8, Include: Excluded, Reason: "late"}, Secondary))

	assert.Equal(t, []int{3}, r.Unused())
	assert.Equal(t, map[int]string{3: "fussy"}, r.UnusedReasons())
	assert.Equal(t, "3", r.UnusedDisplay())
}

func TestReasons_PlistRoundTrip(t *testing.T) {
	r := agreeingReasons(t)
	require.NoError(t, r.Add(Reason{Trial: 12, Include: Excluded, Reason: "sibling"}, Secondary))

	data := r.ToPlist()
	entry := data["Pre-Screen Array 1"].(map[string]any)["Pre-Screen Entry 12"].(map[string]any)
	assert.Equal(t, true, entry["Eliminate"])

	restored := ReasonsFromPlist(data)
	assert.Equal(t, r.Render(Both), restored.Render(Both))
}
