package convert

import (
	"encoding/json"
	"fmt"

	"github.com/peyecoder/peyecoder/internal/geo"
	"github.com/peyecoder/peyecoder/internal/model"
	"github.com/peyecoder/peyecoder/pkg/core"
	"gorm.io/datatypes"
)

// CoreToSubject converts a core.Subject to a GORM Subject with all associations filled.
// The ID is left empty for the hooks or the caller to assign.
func CoreToSubject(s *core.Subject) (model.Subject, error) {
	settings, err := json.Marshal(s.Settings.ToPlist())
	if err != nil {
		return model.Subject{}, fmt.Errorf("encode settings: %w", err)
	}

	rec := model.Subject{
		Number:              s.Info.Number,
		Birthday:            s.Info.Birthday,
		Coder:               s.Info.Coder,
		DateOfTest:          s.Info.DateOfTest,
		Order:               s.Info.Order,
		PrimaryPS:           s.Info.PrimaryPS,
		SecondaryPS:         s.Info.SecondaryPS,
		CheckedBy:           s.Info.CheckedBy,
		PrimaryPSComplete:   s.Info.PrimaryPSComplete,
		SecondaryPSComplete: s.Info.SecondaryPSComplete,
		Sex:                 s.Info.Sex.String(),
		UnusedTrials:        s.Info.UnusedTrials,
		Notes:               s.Info.Notes,
		Framerate:           s.Framerate(),
		DropFrame:           s.Settings.DropFrame,
		Settings:            datatypes.JSON(settings),
	}

	if offset, ok := s.Timeline.RemovedOffset(); ok {
		rec.RemovedOffset = &offset
	}

	for i, e := range s.Timeline.Events() {
		rec.Events = append(rec.Events, CoreToEvent(e, i))
	}

	for _, ps := range []core.Prescreener{core.Primary, core.Secondary} {
		for _, trial := range s.Reasons.Trials(ps) {
			r, ok := s.Reasons.Get(trial, ps)
			if !ok {
				continue
			}
			rec.Reasons = append(rec.Reasons, model.Reason{
				Prescreener: int(ps),
				Trial:       r.Trial,
				Include:     int(r.Include),
				Reason:      r.Reason,
			})
		}
	}

	for i, t := range s.TrialOrder.Trials {
		rec.Trials = append(rec.Trials, CoreToTrial(t, i))
	}

	for _, frame := range s.Offsets.Keys() {
		rec.Offsets = append(rec.Offsets, model.Offset{Frame: frame, Offset: s.Offsets.GetOffset(frame)})
	}

	for i, o := range s.Occluders {
		shape, err := geo.WKT(o)
		if err != nil {
			return model.Subject{}, fmt.Errorf("encode occluder %d: %w", i, err)
		}
		rec.Occluders = append(rec.Occluders, model.Occluder{Position: i, Shape: shape})
	}
	return rec, nil
}

// CoreToEvent converts a core.Event at timeline index pos to a GORM Event
func CoreToEvent(e core.Event, pos int) model.Event {
	return model.Event{
		Position:  pos,
		Trial:     e.Trial,
		Status:    e.Status,
		Response:  e.Response,
		Frame:     e.Frame,
		HasOffset: e.HasOffset,
	}
}

// CoreToTrial converts a core.Trial at row pos to a GORM Trial
func CoreToTrial(t core.Trial, pos int) model.Trial {
	return model.Trial{
		Position:      pos,
		Present:       uint16(t.Present()),
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
}
