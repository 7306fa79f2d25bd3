// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/peyecoder/peyecoder/internal/geo"
	"github.com/peyecoder/peyecoder/internal/model"
	"github.com/peyecoder/peyecoder/pkg/core"
)

// SubjectToCore converts a stored subject, with its associations loaded, to a core.Subject.
func SubjectToCore(rec model.Subject) (*core.Subject, error) {
	s := core.NewSubject()
	s.Info = core.Info{
		Birthday:            rec.Birthday,
		Coder:               rec.Coder,
		DateOfTest:          rec.DateOfTest,
		Number:              rec.Number,
		Order:               rec.Order,
		PrimaryPS:           rec.PrimaryPS,
		SecondaryPS:         rec.SecondaryPS,
		CheckedBy:           rec.CheckedBy,
		PrimaryPSComplete:   rec.PrimaryPSComplete,
		SecondaryPSComplete: rec.SecondaryPSComplete,
		Sex:                 core.ParseSex(rec.Sex),
		UnusedTrials:        rec.UnusedTrials,
		Notes:               rec.Notes,
	}

	if len(rec.Settings) > 0 {
		var doc map[string]any
		if err := json.Unmarshal(rec.Settings, &doc); err != nil {
			return nil, fmt.Errorf("subject %s settings: %w", rec.Number, err)
		}
		s.Settings.Update(doc)
	}
	if rec.Framerate != "" {
		s.Settings.Framerate = rec.Framerate
	}
	s.Settings.DropFrame = rec.DropFrame

	events := make([]core.Event, 0, len(rec.Events))
	for _, e := range EventsInOrder(rec.Events) {
		events = append(events, EventToCore(e))
	}
	s.Timeline = core.NewTimeline(events...)
	if rec.RemovedOffset != nil {
		s.Timeline.MarkOffsetRemoved(*rec.RemovedOffset)
	}

	for _, r := range rec.Reasons {
		reason := core.Reason{Trial: r.Trial, Include: core.Inclusion(r.Include), Reason: r.Reason}
		if err := s.Reasons.Add(reason, core.Prescreener(r.Prescreener)); err != nil {
			return nil, fmt.Errorf("subject %s reason for trial %d: %w", rec.Number, r.Trial, err)
		}
	}

	trials := append([]model.Trial(nil), rec.Trials...)
	sort.SliceStable(trials, func(i, j int) bool { return trials[i].Position < trials[j].Position })
	order := make([]core.Trial, 0, len(trials))
	for _, t := range trials {
		order = append(order, TrialToCore(t))
	}
	s.TrialOrder = core.NewTrialOrder(order)

	for _, o := range rec.Offsets {
		s.Offsets.Set(o.Frame, o.Offset)
	}

	occluders := append([]model.Occluder(nil), rec.Occluders...)
	sort.SliceStable(occluders, func(i, j int) bool { return occluders[i].Position < occluders[j].Position })
	for _, o := range occluders {
		occ, err := geo.FromWKT(o.Shape)
		if err != nil {
			return nil, fmt.Errorf("subject %s occluder %d: %w", rec.Number, o.Position, err)
		}
		s.Occluders = append(s.Occluders, occ)
	}

	s.Dirty = false
	return s, nil
}

// EventsInOrder returns the events sorted by their stored position.
func EventsInOrder(events []model.Event) []model.Event {
	out := append([]model.Event(nil), events...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// EventToCore converts a GORM Event to a core.Event
func EventToCore(e model.Event) core.Event {
	return core.Event{
		Trial:     e.Trial,
		Status:    e.Status,
		Response:  e.Response,
		Frame:     e.Frame,
		HasOffset: e.HasOffset,
	}
}

// TrialToCore converts a GORM Trial to a core.Trial, restoring which columns were supplied.
func TrialToCore(t model.Trial) core.Trial {
	trial := core.Trial{
		Name:          t.Name,
		TrialNumber:   t.TrialNumber,
		SoundStimulus: t.SoundStimulus,
		LeftImage:     t.LeftImage,
		CenterImage:   t.CenterImage,
		RightImage:    t.RightImage,
		TargetSide:    t.TargetSide,
		Condition:     t.Condition,
		Used:          t.Used,
		TrialEnd:      t.TrialEnd,
		CriticalOnset: t.CriticalOnset,
	}
	trial.MarkPresent(core.TrialField(t.Present))
	return trial
}
