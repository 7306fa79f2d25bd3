// pkg/core/trial.go
package core

import (
	"regexp"
	"strings"
)

// NoTargetToInvert is returned by InvertedTarget when the trial has no target side.
const NoTargetToInvert = "No target to invert"

// NoTrialOrderLoaded is the name of an empty trial order.
const NoTrialOrderLoaded = "No Trial Order loaded"

// TrialField identifies a column of a trial order row.
type TrialField uint16

const (
	FieldName TrialField = 1 << iota
	FieldTrialNumber
	FieldSoundStimulus
	FieldLeftImage
	FieldCenterImage
	FieldRightImage
	FieldTargetSide
	FieldCondition
	FieldUsed
	FieldTrialEnd
	FieldCriticalOnset
)

// trialKeys are the persisted column names, in column order.
var trialKeys = []struct {
	field TrialField
	key   string
}{
	{FieldName, "Name"},
	{FieldTrialNumber, "Trial Number"},
	{FieldSoundStimulus, "Sound Stimulus"},
	{FieldLeftImage, "Left Image"},
	{FieldCenterImage, "Center Image"},
	{FieldRightImage, "Right Image"},
	{FieldTargetSide, "Target Side"},
	{FieldCondition, "Condition"},
	{FieldUsed, "Used"},
	{FieldTrialEnd, "Trial End"},
	{FieldCriticalOnset, "Critical Onset"},
}

// Trial is one row of a trial order. Missing columns read as zero values;
// Has reports whether a column was actually supplied.
type Trial struct {
	Name          string
	TrialNumber   int
	SoundStimulus string
	LeftImage     string
	CenterImage   string
	RightImage    string
	TargetSide    string
	Condition     string
	Used          string
	TrialEnd      int // ms
	CriticalOnset int // ms

	present TrialField
}

// Has reports whether field was supplied for this trial.
func (t Trial) Has(field TrialField) bool {
	return t.present&field != 0
}

// Present returns the set of supplied fields.
func (t Trial) Present() TrialField {
	return t.present
}

// MarkPresent flags fields as supplied.
func (t *Trial) MarkPresent(fields TrialField) {
	t.present |= fields
}

// IsUnused reports whether the trial order marks the trial as not used.
func (t Trial) IsUnused() bool {
	return strings.EqualFold(strings.TrimSpace(t.Used), "no")
}

var sideWord = regexp.MustCompile(`(?i)\b(left|right)\b`)

// InvertedTarget swaps left and right to convert between the participant's and
// the camera's perspective. "R" and "L" swap directly; free text has its
// left/right words swapped preserving case; anything else is returned as is.
func (t Trial) InvertedTarget() string {
	if !t.Has(FieldTargetSide) {
		return NoTargetToInvert
	}
	switch t.TargetSide {
	case "R":
		return "L"
	case "L":
		return "R"
	}
	return sideWord.ReplaceAllStringFunc(t.TargetSide, swapSideWord)
}

func swapSideWord(w string) string {
	swapped := "left"
	if strings.EqualFold(w, "left") {
		swapped = "right"
	}
	switch {
	case w == strings.ToUpper(w):
		return strings.ToUpper(swapped)
	case w[:1] == strings.ToUpper(w[:1]):
		return strings.ToUpper(swapped[:1]) + swapped[1:]
	default:
		return swapped
	}
}

// ToPlist converts the trial to a document holding only the supplied columns.
func (t Trial) ToPlist() map[string]any {
	out := make(map[string]any, len(trialKeys))
	for _, k := range trialKeys {
		if t.Has(k.field) {
			out[k.key] = t.value(k.field)
		}
	}
	return out
}

func (t Trial) value(f TrialField) any {
	switch f {
	case FieldName:
		return t.Name
	case FieldTrialNumber:
		return t.TrialNumber
	case FieldSoundStimulus:
		return t.SoundStimulus
	case FieldLeftImage:
		return t.LeftImage
	case FieldCenterImage:
		return t.CenterImage
	case FieldRightImage:
		return t.RightImage
	case FieldTargetSide:
		return t.TargetSide
	case FieldCondition:
		return t.Condition
	case FieldUsed:
		return t.Used
	case FieldTrialEnd:
		return t.TrialEnd
	case FieldCriticalOnset:
		return t.CriticalOnset
	}
	return nil
}

func (t *Trial) set(f TrialField, v any) {
	switch f {
	case FieldName:
		t.Name = toString(v)
	case FieldTrialNumber:
		t.TrialNumber = toInt(v)
	case FieldSoundStimulus:
		t.SoundStimulus = toString(v)
	case FieldLeftImage:
		t.LeftImage = toString(v)
	case FieldCenterImage:
		t.CenterImage = toString(v)
	case FieldRightImage:
		t.RightImage = toString(v)
	case FieldTargetSide:
		t.TargetSide = toString(v)
	case FieldCondition:
		t.Condition = toString(v)
	case FieldUsed:
		t.Used = toString(v)
	case FieldTrialEnd:
		t.TrialEnd = toInt(v)
	case FieldCriticalOnset:
		t.CriticalOnset = toInt(v)
	}
	t.present |= f
}

// TrialFromPlist reads a trial document; absent keys stay absent.
func TrialFromPlist(data map[string]any) Trial {
	var t Trial
	for _, k := range trialKeys {
		if v, ok := data[k.key]; ok {
			t.set(k.field, v)
		}
	}
	return t
}

// columnAliases lists accepted header spellings per column, preferred first.
var columnAliases = map[TrialField][]string{
	FieldName:          {"Name"},
	FieldTrialNumber:   {"Trial Number", "trial number"},
	FieldSoundStimulus: {"Sound Stimulus"},
	FieldLeftImage:     {"Left Image"},
	FieldCenterImage:   {"Center Image"},
	FieldRightImage:    {"Right Image"},
	FieldTargetSide:    {"Target Side", "target side"},
	FieldCondition:     {"Condition", "condition"},
	FieldUsed:          {"Used"},
	FieldTrialEnd:      {"Trial End", "TrEnd"},
	FieldCriticalOnset: {"Critical Onset", "CritOnset"},
}

// TrialFromRecord maps a trial order spreadsheet row to a Trial. Every column
// is marked present; the first non-empty alias wins and unparsable numbers are 0.
func TrialFromRecord(row map[string]string) Trial {
	var t Trial
	for _, k := range trialKeys {
		value := ""
		for _, alias := range columnAliases[k.field] {
			if v := strings.TrimSpace(row[alias]); v != "" {
				value = v
				break
			}
		}
		t.set(k.field, value)
	}
	return t
}

// TrialOrder is the stimulus schedule of an experiment.
type TrialOrder struct {
	Trials []Trial
	unused []int
}

// NewTrialOrder wraps trials and computes the unused list.
func NewTrialOrder(trials []Trial) *TrialOrder {
	o := &TrialOrder{Trials: trials}
	o.CalcUnused()
	return o
}

// TrialOrderFromRecords builds a trial order from spreadsheet rows.
func TrialOrderFromRecords(rows []map[string]string) *TrialOrder {
	trials := make([]Trial, 0, len(rows))
	for _, row := range rows {
		trials = append(trials, TrialFromRecord(row))
	}
	return NewTrialOrder(trials)
}

// Name returns the name of the first trial, or NoTrialOrderLoaded.
func (o *TrialOrder) Name() string {
	if o == nil || len(o.Trials) == 0 {
		return NoTrialOrderLoaded
	}
	return o.Trials[0].Name
}

// CalcUnused recomputes the trials marked Used = "no".
func (o *TrialOrder) CalcUnused() {
	o.unused = nil
	for _, t := range o.Trials {
		if t.IsUnused() {
			o.unused = append(o.unused, t.TrialNumber)
		}
	}
}

// Unused returns the trial numbers marked as not used.
func (o *TrialOrder) Unused() []int {
	if o == nil {
		return nil
	}
	return append([]int(nil), o.unused...)
}

// UnusedDisplay renders Unused as a comma separated list.
func (o *TrialOrder) UnusedDisplay() string {
	return joinInts(o.Unused())
}

// CalcMaxTrial returns the largest trial number, or 0 when empty.
func (o *TrialOrder) CalcMaxTrial() int {
	if o == nil {
		return 0
	}
	maxTrial := 0
	for _, t := range o.Trials {
		maxTrial = max(maxTrial, t.TrialNumber)
	}
	return maxTrial
}

// ToPlist converts the trial order to a list of trial documents.
func (o *TrialOrder) ToPlist() []any {
	out := make([]any, 0, len(o.Trials))
	for _, t := range o.Trials {
		out = append(out, t.ToPlist())
	}
	return out
}

// TrialOrderFromPlist rebuilds a trial order from a list of trial documents.
func TrialOrderFromPlist(data []any) *TrialOrder {
	trials := make([]Trial, 0, len(data))
	for _, v := range data {
		if m := toMap(v); m != nil {
			trials = append(trials, TrialFromPlist(m))
		}
	}
	return NewTrialOrder(trials)
}
