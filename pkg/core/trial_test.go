package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trialWithTarget(side string) Trial {
	t := Trial{TargetSide: side}
	t.MarkPresent(FieldTargetSide)
	return t
}

func TestTrial_InvertedTarget(t *testing.T) {
	tests := []struct {
		name  string
		trial Trial
		want  string
	}{
		{"right", trialWithTarget("R"), "L"},
		{"left", trialWithTarget("L"), "R"},
		{"neutral", trialWithTarget("N"), "N"},
		{"free text", trialWithTarget("Right edge"), "Left edge"},
		{"lower case", trialWithTarget("top left"), "top right"},
		{"upper case", trialWithTarget("LEFT"), "RIGHT"},
		{"word boundary", trialWithTarget("bright"), "bright"},
		{"missing", Trial{}, NoTargetToInvert},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.trial.InvertedTarget())
		})
	}
}

func TestTrialFromRecord_AliasesAndDefaults(t *testing.T) {
	trial := TrialFromRecord(map[string]string{
		"Name":         "Order A",
		"trial number": "4",
		"target side":  "R",
		"TrEnd":        "6000",
		"CritOnset":    "bad",
		"Used":         "no",
	})

	assert.Equal(t, "Order A", trial.Name)
	assert.Equal(t, 4, trial.TrialNumber)
	assert.Equal(t, "R", trial.TargetSide)
	assert.Equal(t, 6000, trial.TrialEnd)
	assert.Equal(t, 0, trial.CriticalOnset)
	assert.Equal(t, "", trial.Condition)
	assert.True(t, trial.Has(FieldCondition))
	assert.True(t, trial.IsUnused())
}

func TestTrialOrder_NameUnusedAndMax(t *testing.T) {
	empty := NewTrialOrder(nil)
	assert.Equal(t, NoTrialOrderLoaded, empty.Name())
	assert.Equal(t, 0, empty.CalcMaxTrial())

	order := TrialOrderFromRecords([]map[string]string{
		{"Name": "Order B", "Trial Number": "1", "Used": "yes"},
		{"Name": "Order B", "Trial Number": "2", "Used": "no"},
		{"Name": "Order B", "Trial Number": "3", "Used": "no"},
	})
	assert.Equal(t, "Order B", order.Name())
	assert.Equal(t, []int{2, 3}, order.Unused())
	assert.Equal(t, "2, 3", order.UnusedDisplay())
	assert.Equal(t, 3, order.CalcMaxTrial())
}

func TestTrialOrder_PlistRoundTrip(t *testing.T) {
	order := TrialOrderFromRecords([]map[string]string{
		{"Name": "Order C", "Trial Number": "1", "Left Image": "dog.jpg", "Right Image": "cat.jpg",
			"Target Side": "L", "Condition": "A", "Used": "yes", "Trial End": "5000", "Critical Onset": "2500"},
		{"Name": "Order C", "Trial Number": "2", "Target Side": "Right edge", "Used": "no"},
	})

	restored := TrialOrderFromPlist(order.ToPlist())
	require.Len(t, restored.Trials, 2)
	assert.Equal(t, order.Trials, restored.Trials)
	assert.Equal(t, order.Unused(), restored.Unused())
}

func TestTrialFromPlist_KeepsAbsentFieldsAbsent(t *testing.T) {
	trial := TrialFromPlist(map[string]any{"Trial Number": uint64(3), "Critical Onset": float64(1200)})

	assert.Equal(t, 3, trial.TrialNumber)
	assert.Equal(t, 1200, trial.CriticalOnset)
	assert.False(t, trial.Has(FieldTargetSide))
	assert.Equal(t, map[string]any{"Trial Number": 3, "Critical Onset": 1200}, trial.ToPlist())
}
