// pkg/core/subject.go
package core

import (
	"fmt"
	"strconv"
)

// FieldNames are the demographic fields of a subject, in display order.
var FieldNames = []string{
	"Birthday", "Coder", "Date of Test", "Number", "Order",
	"Primary PS", "Secondary PS", "Checked By",
	"Primary PS Complete", "Secondary PS Complete",
	"Sex", "Unused Trials", "Notes",
}

// Sex of the participant; SexUnknown displays as N/A.
type Sex int

const (
	SexUnknown Sex = iota
	SexMale
	SexFemale
)

func (s Sex) String() string {
	switch s {
	case SexMale:
		return "M"
	case SexFemale:
		return "F"
	default:
		return "N/A"
	}
}

// Info holds the demographic fields of a subject.
type Info struct {
	Birthday            string
	Coder               string
	DateOfTest          string
	Number              string
	Order               string
	PrimaryPS           string
	SecondaryPS         string
	CheckedBy           string
	PrimaryPSComplete   bool
	SecondaryPSComplete bool
	Sex                 Sex
	UnusedTrials        string
	Notes               string
}

// Subject is the aggregate root of one coded video.
type Subject struct {
	Info       Info
	Occluders  Occluders
	Offsets    *Offsets
	Reasons    *Reasons
	Timeline   *Timeline
	TrialOrder *TrialOrder
	Settings   Settings

	// Dirty is set by edits and cleared when the subject is loaded or saved.
	Dirty bool
}

// NewSubject creates an empty subject with default settings.
func NewSubject() *Subject {
	return &Subject{
		Offsets:    NewOffsets(),
		Reasons:    NewReasons(),
		Timeline:   NewTimeline(),
		TrialOrder: NewTrialOrder(nil),
		Settings:   DefaultSettings(),
	}
}

// UpdateFromDict replaces every demographic field with the value in d.
// Fields missing from d are reset to their zero value.
func (s *Subject) UpdateFromDict(d map[string]any) {
	s.Info = Info{
		Birthday:            toString(d["Birthday"]),
		Coder:               toString(d["Coder"]),
		DateOfTest:          toString(d["Date of Test"]),
		Number:              toString(d["Number"]),
		Order:               toString(d["Order"]),
		PrimaryPS:           toString(d["Primary PS"]),
		SecondaryPS:         toString(d["Secondary PS"]),
		CheckedBy:           toString(d["Checked By"]),
		PrimaryPSComplete:   toBool(d["Primary PS Complete"]),
		SecondaryPSComplete: toBool(d["Secondary PS Complete"]),
		Sex:                 ParseSex(d["Sex"]),
		UnusedTrials:        toString(d["Unused Trials"]),
		Notes:               toString(d["Notes"]),
	}
	s.Dirty = true
}

// ParseSex accepts the persisted boolean (true = male) or a display letter.
func ParseSex(v any) Sex {
	switch x := v.(type) {
	case nil:
		return SexUnknown
	case bool:
		if x {
			return SexMale
		}
		return SexFemale
	case string:
		switch x {
		case "M", "m", "Male", "male":
			return SexMale
		case "F", "f", "Female", "female":
			return SexFemale
		}
	}
	return SexUnknown
}

// ToDict returns the demographic fields keyed by FieldNames.
// Sex is omitted when unknown.
func (s *Subject) ToDict() map[string]any {
	d := map[string]any{
		"Birthday":              s.Info.Birthday,
		"Coder":                 s.Info.Coder,
		"Date of Test":          s.Info.DateOfTest,
		"Number":                s.Info.Number,
		"Order":                 s.Info.Order,
		"Primary PS":            s.Info.PrimaryPS,
		"Secondary PS":          s.Info.SecondaryPS,
		"Checked By":            s.Info.CheckedBy,
		"Primary PS Complete":   s.Info.PrimaryPSComplete,
		"Secondary PS Complete": s.Info.SecondaryPSComplete,
		"Unused Trials":         s.Info.UnusedTrials,
		"Notes":                 s.Info.Notes,
	}
	switch s.Info.Sex {
	case SexMale:
		d["Sex"] = true
	case SexFemale:
		d["Sex"] = false
	}
	return d
}

// Field returns a field for display. "Order" is the loaded trial order's name
// and "Framerate" comes from the settings; unknown names return "".
func (s *Subject) Field(name string) string {
	switch name {
	case "Order":
		return s.TrialOrder.Name()
	case "Framerate":
		if s.Settings.Framerate == "" {
			return DefaultFramerate
		}
		return s.Settings.Framerate
	case "Sex":
		return s.Info.Sex.String()
	case "Primary PS Complete":
		return strconv.FormatBool(s.Info.PrimaryPSComplete)
	case "Secondary PS Complete":
		return strconv.FormatBool(s.Info.SecondaryPSComplete)
	}
	v, ok := s.ToDict()[name]
	if !ok {
		return ""
	}
	return toString(v)
}

// Framerate returns the framerate string used for timecodes.
func (s *Subject) Framerate() string {
	return s.Field("Framerate")
}

// Unused combines the trials unused in the trial order with those excluded
// by the primary prescreener.
func (s *Subject) Unused() []int {
	seen := make(map[int]bool)
	var out []int
	for _, t := range append(s.TrialOrder.Unused(), s.Reasons.Unused()...) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// ErrorItems validates the timeline against this subject's trial order and prescreening.
func (s *Subject) ErrorItems() ([]int, []string) {
	return s.Timeline.ErrorItems(s.Unused(), s.TrialOrder.CalcMaxTrial())
}

// RenderEvents renders the event log with this subject's offsets and framerate.
func (s *Subject) RenderEvents(renderer TimecodeRenderer) []RenderedEvent {
	return s.Timeline.Render(s.Offsets, renderer, s.Framerate(), s.Settings.DropFrame)
}

// ToPlist converts the subject to its persisted document.
func (s *Subject) ToPlist() map[string]any {
	data := s.ToDict()
	data["Occluders"] = s.Occluders.ToPlist()
	data["Timecode Offsets"] = s.Offsets.ToPlist()
	data["Pre-Screen Information"] = s.Reasons.ToPlist()
	data["Responses"] = s.Timeline.ToPlist()
	if offset, ok := s.Timeline.RemovedOffset(); ok {
		data["Removed Offset"] = offset
	}
	data["Trial Order"] = s.TrialOrder.ToPlist()
	data["Settings"] = s.Settings.ToPlist()
	return map[string]any{"Subject": data}
}

// FromPlist replaces the subject's content with a persisted document.
// Sections missing from the document keep their current value.
func (s *Subject) FromPlist(data map[string]any) error {
	d := toMap(data["Subject"])
	if d == nil {
		return fmt.Errorf("load subject: %w", ErrMissingSubject)
	}
	if v, ok := d["Occluders"]; ok {
		s.Occluders = OccludersFromPlist(toSlice(v))
	}
	if v, ok := d["Timecode Offsets"]; ok {
		s.Offsets = OffsetsFromPlist(toMap(v))
	}
	if v, ok := d["Pre-Screen Information"]; ok {
		s.Reasons = ReasonsFromPlist(toMap(v))
	}
	if v, ok := d["Responses"]; ok {
		s.Timeline = TimelineFromPlist(toMap(v))
	}
	if v, ok := d["Removed Offset"]; ok {
		s.Timeline.MarkOffsetRemoved(toInt(v))
	}
	if v, ok := d["Trial Order"]; ok {
		s.TrialOrder = TrialOrderFromPlist(toSlice(v))
	}
	if v, ok := d["Settings"]; ok {
		s.Settings.Update(toMap(v))
	}
	s.UpdateFromDict(d)
	s.Dirty = false
	return nil
}
