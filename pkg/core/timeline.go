// pkg/core/timeline.go
package core

import (
	"fmt"
	"sort"
)

// Validation messages reported by Timeline.ErrorItems.
const (
	MsgUnusedTrial         = "Code entry for unused trial"
	MsgSameTimestamp       = "Entries have the same timestamp"
	MsgTrialsNotIncreasing = "Trial numbers are not increasing with increasing timestamp"
	MsgConsecutiveSides    = `Cannot have consecutive "right" and/or "left" events in a trial`
	MsgSameResponse        = "Cannot have consecutive events with the same response"
	MsgLastNotOff          = `The last event in a trial should have status "off"`
	MsgConsecutiveOff      = `Cannot have consecutive events with status "off"`
	MsgTrialAboveMax       = "Trial number is greater than the last trial in the trial order"
)

// legacyFrameRate is the integer rate of the non-drop 29.97 timecodes written by iCoder.
const legacyFrameRate = 30

// TimecodeRenderer turns a 1-based frame number into a display timecode.
type TimecodeRenderer interface {
	Render(frame int, framerate string, dropFrame bool) string
}

// Run is a contiguous stretch of events sharing a trial number.
type Run struct {
	Trial  int
	Events []Event
}

// RenderedEvent is one display row of the event log.
type RenderedEvent struct {
	Trial    int
	Status   string
	Response string
	Timecode string
}

// Timeline is the frame-ordered list of coded events for one subject.
// Duplicate frames are allowed; ErrorItems reports them.
type Timeline struct {
	events []Event

	// removedOffset holds the offset currently subtracted from HasOffset events.
	// It is a single slot: one level of undo, not a history.
	removedOffset *int
}

// NewTimeline creates a timeline holding the given events in sorted order.
func NewTimeline(events ...Event) *Timeline {
	t := &Timeline{events: make([]Event, 0, len(events))}
	for _, e := range events {
		t.Add(e)
	}
	return t
}

// Len returns the number of events.
func (t *Timeline) Len() int {
	return len(t.events)
}

// At returns the event at sorted position i.
func (t *Timeline) At(i int) (Event, error) {
	if i < 0 || i >= len(t.events) {
		return Event{}, fmt.Errorf("event %d: %w", i, ErrIndexOutOfRange)
	}
	return t.events[i], nil
}

// Events returns a copy of the sorted events.
func (t *Timeline) Events() []Event {
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Add inserts e after any events that sort equal to it and returns its position.
func (t *Timeline) Add(e Event) int {
	i := sort.Search(len(t.events), func(i int) bool {
		return e.Less(t.events[i])
	})
	t.events = append(t.events, Event{})
	copy(t.events[i+1:], t.events[i:])
	t.events[i] = e
	return i
}

// Delete removes the event at sorted position i.
func (t *Timeline) Delete(i int) error {
	if i < 0 || i >= len(t.events) {
		return fmt.Errorf("delete event %d: %w", i, ErrIndexOutOfRange)
	}
	t.events = append(t.events[:i], t.events[i+1:]...)
	return nil
}

// ChangeTrial adds delta to the trial number of the event at position i.
// Unlike Reasons.ChangeTrial there is no collision check.
func (t *Timeline) ChangeTrial(i, delta int) error {
	if i < 0 || i >= len(t.events) {
		return fmt.Errorf("change trial of event %d: %w", i, ErrIndexOutOfRange)
	}
	t.events[i].Trial += delta
	return nil
}

// Runs partitions the events into contiguous runs of equal trial number.
func (t *Timeline) Runs() []Run {
	var runs []Run
	for _, e := range t.events {
		if n := len(runs); n > 0 && runs[n-1].Trial == e.Trial {
			runs[n-1].Events = append(runs[n-1].Events, e)
			continue
		}
		runs = append(runs, Run{Trial: e.Trial, Events: []Event{e}})
	}
	return runs
}

// Trials maps each trial number to its events. When a trial number appears in
// more than one run the later run replaces the earlier one.
func (t *Timeline) Trials() map[int][]Event {
	trials := make(map[int][]Event)
	for _, r := range t.Runs() {
		trials[r.Trial] = r.Events
	}
	return trials
}

// Frames expands the events into a dense frame -> response map covering
// the first through the last coded frame.
func (t *Timeline) Frames() map[int]string {
	responses := make(map[int]string)
	if len(t.events) == 0 {
		return responses
	}
	for i := 0; i < len(t.events)-1; i++ {
		for f := t.events[i].Frame; f < t.events[i+1].Frame; f++ {
			responses[f] = t.events[i].Response
		}
	}
	last := t.events[len(t.events)-1]
	responses[last.Frame] = last.Response
	return responses
}

// AbsoluteIndex finds the event matching trial, status, response and frame, or -1.
func (t *Timeline) AbsoluteIndex(e Event) int {
	for i, ev := range t.events {
		if ev.Trial == e.Trial && ev.Status == e.Status && ev.Response == e.Response && ev.Frame == e.Frame {
			return i
		}
	}
	return -1
}

// RemoveOffset subtracts offset from every HasOffset event. A previously
// removed offset is restored first, so only the latest offset is ever applied.
func (t *Timeline) RemoveOffset(offset int) {
	t.ResetOffset()
	t.shift(-offset)
	t.removedOffset = &offset
}

// ResetOffset restores the offset removed by RemoveOffset, if any.
func (t *Timeline) ResetOffset() {
	if t.removedOffset == nil {
		return
	}
	t.shift(*t.removedOffset)
	t.removedOffset = nil
}

// RemovedOffset reports the offset currently removed.
func (t *Timeline) RemovedOffset() (int, bool) {
	if t.removedOffset == nil {
		return 0, false
	}
	return *t.removedOffset, true
}

// MarkOffsetRemoved records offset as already subtracted from the HasOffset
// events without shifting them. Used when reloading a saved timeline.
func (t *Timeline) MarkOffsetRemoved(offset int) {
	t.removedOffset = &offset
}

func (t *Timeline) shift(delta int) {
	if delta == 0 {
		return
	}
	for i := range t.events {
		if t.events[i].HasOffset {
			t.events[i].Frame += delta
		}
	}
	sort.SliceStable(t.events, func(i, j int) bool {
		return t.events[i].Less(t.events[j])
	})
}

// ErrorItems runs every validation check and returns the offending rows with
// one message per failing check. Rows from different checks may repeat.
// maxTrial <= 0 disables the trial range check.
func (t *Timeline) ErrorItems(unused []int, maxTrial int) ([]int, []string) {
	var rows []int
	var msgs []string
	report := func(found []int, msg string) {
		if len(found) > 0 {
			rows = append(rows, found...)
			msgs = append(msgs, msg)
		}
	}

	unusedSet := make(map[int]bool, len(unused))
	for _, u := range unused {
		unusedSet[u] = true
	}
	var found []int
	for i, e := range t.events {
		if unusedSet[e.Trial] {
			found = append(found, i)
		}
	}
	report(found, MsgUnusedTrial)

	counts := make(map[int]int, len(t.events))
	for _, e := range t.events {
		counts[e.Frame]++
	}
	found = nil
	for i, e := range t.events {
		if counts[e.Frame] > 1 {
			found = append(found, i)
		}
	}
	report(found, MsgSameTimestamp)

	report(t.pairRows(func(prev, cur Event) bool {
		return cur.Trial < prev.Trial
	}), MsgTrialsNotIncreasing)

	report(t.pairRows(func(prev, cur Event) bool {
		return prev.Trial == cur.Trial && prev.Status == cur.Status &&
			isSide(prev.Response) && isSide(cur.Response)
	}), MsgConsecutiveSides)

	report(t.pairRows(func(prev, cur Event) bool {
		return prev.Trial == cur.Trial && prev.Status == cur.Status && prev.Response == cur.Response
	}), MsgSameResponse)

	found = nil
	last := -1
	for _, r := range t.Runs() {
		last += len(r.Events)
		if t.events[last].Status {
			found = append(found, last)
		}
	}
	report(found, MsgLastNotOff)

	report(t.pairRows(func(prev, cur Event) bool {
		return !prev.Status && !cur.Status
	}), MsgConsecutiveOff)

	if maxTrial > 0 {
		found = nil
		for i, e := range t.events {
			if e.Trial > maxTrial {
				found = append(found, i)
			}
		}
		report(found, MsgTrialAboveMax)
	}

	return rows, msgs
}

// pairRows returns the index of every event for which bad(previous, event) holds.
func (t *Timeline) pairRows(bad func(prev, cur Event) bool) []int {
	var rows []int
	for i := 1; i < len(t.events); i++ {
		if bad(t.events[i-1], t.events[i]) {
			rows = append(rows, i)
		}
	}
	return rows
}

func isSide(response string) bool {
	return response == ResponseLeft || response == ResponseRight
}

// Render produces display rows with offset-corrected timecodes.
func (t *Timeline) Render(offsets *Offsets, renderer TimecodeRenderer, framerate string, dropFrame bool) []RenderedEvent {
	rows := make([]RenderedEvent, 0, len(t.events))
	for _, e := range t.events {
		rows = append(rows, RenderedEvent{
			Trial:    e.Trial,
			Status:   e.StatusString(),
			Response: e.Response,
			Timecode: renderer.Render(e.Frame+1+offsets.GetOffset(e.Frame), framerate, dropFrame),
		})
	}
	return rows
}

// ToPlist converts the events to the "Responses" document.
func (t *Timeline) ToPlist() map[string]any {
	data := make(map[string]any, len(t.events))
	for n, e := range t.events {
		entry := map[string]any{
			"Trial":        e.Trial,
			"Trial Status": e.StatusString(),
			"Type":         e.Response,
			"Frame":        e.Frame,
		}
		if e.HasOffset {
			entry["Has Offset"] = true
		}
		data[fmt.Sprintf("Response %d", n)] = entry
	}
	return data
}

// TimelineFromPlist rebuilds a timeline from a "Responses" document. Entries
// carrying an iCoder "Timecode" are converted from non-drop 29.97 timecode and
// flagged HasOffset.
func TimelineFromPlist(data map[string]any) *Timeline {
	t := &Timeline{events: make([]Event, 0, len(data))}
	for _, key := range numberedKeys(data) {
		entry := toMap(data[key])
		if entry == nil {
			continue
		}
		e := Event{
			Trial:     toInt(entry["Trial"]),
			Status:    ParseStatus(entry["Trial Status"]),
			Response:  toString(entry["Type"]),
			Frame:     toInt(entry["Frame"]),
			HasOffset: toBool(entry["Has Offset"]),
		}
		if tc := toMap(entry["Timecode"]); tc != nil {
			e.Frame = legacyFrame(tc)
			e.HasOffset = true
		}
		t.Add(e)
	}
	return t
}

// legacyFrame converts an {Hour, Minute, Second, Frame} timecode to a 0-based frame number.
func legacyFrame(tc map[string]any) int {
	seconds := toInt(tc["Hour"])*3600 + toInt(tc["Minute"])*60 + toInt(tc["Second"])
	return seconds*legacyFrameRate + toInt(tc["Frame"])
}
