// Package export turns a coded subject into long or wide tables and writes
// them as CSV or Excel files.
package export

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/peyecoder/peyecoder/internal/util"
	"github.com/peyecoder/peyecoder/pkg/core"
)

// ErrUnknownFormat is returned for an unrecognised format or inversion name.
var ErrUnknownFormat = errors.New("unknown export format")

// Format selects the table shape.
type Format string

const (
	// Long has one row per coded frame.
	Long Format = "long"
	// Wide has one row per trial and one column per frame offset from critical onset.
	Wide Format = "wide"
)

// ParseFormat accepts "long" or "wide" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case Long:
		return Long, nil
	case Wide:
		return Wide, nil
	}
	return "", fmt.Errorf("format %q: %w", s, ErrUnknownFormat)
}

// Invert selects which side of the data is mirrored left to right to convert
// between the camera's and the participant's perspective.
type Invert int

const (
	InvertNone Invert = iota
	// InvertTrialOrder swaps the target side and the left/right images (iCoder style).
	InvertTrialOrder
	// InvertResponses swaps the coder's left and right responses.
	InvertResponses
)

// ParseInvert accepts "none", "trialorder" or "responses".
func ParseInvert(s string) (Invert, error) {
	switch strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)) {
	case "", "none":
		return InvertNone, nil
	case "trialorder":
		return InvertTrialOrder, nil
	case "responses", "response":
		return InvertResponses, nil
	}
	return InvertNone, fmt.Errorf("inversion %q: %w", s, ErrUnknownFormat)
}

// String is the value written to the Inversion column.
func (i Invert) String() string {
	switch i {
	case InvertTrialOrder:
		return "Target Side and Images"
	case InvertResponses:
		return "Responses"
	default:
		return "None"
	}
}

// LongColumns is the header of a long export.
var LongColumns = []string{
	"Sub Num", "Months", "Sex", "Trial Order", "Trial Number", "Prescreen Notes",
	"Left Image", "Center Image", "Right Image", "Target Side", "Inversion", "Condition",
	"Time", "Time Centered", "Response", "Accuracy",
}

// WideColumns is the fixed part of a wide export header; frame columns follow.
var WideColumns = []string{
	"Sub Num", "Months", "Sex", "Order", "Tr Num", "Prescreen Notes",
	"L-image", "C-image", "R-image", "Target Side", "Target Image", "Inversion", "Condition",
	"CritOnset",
}

// Table is an export ready to be written.
type Table struct {
	Header []string
	Rows   [][]string

	// Trials counts the trials that produced output.
	Trials int
}

// Build produces the table for format.
func Build(s *core.Subject, format Format, invert Invert) (*Table, error) {
	switch format {
	case Long:
		return BuildLong(s, invert), nil
	case Wide:
		return BuildWide(s, invert), nil
	}
	return nil, fmt.Errorf("format %q: %w", format, ErrUnknownFormat)
}

// stimulus is a trial as it appears in the export after inversion.
type stimulus struct {
	core.Trial
	target string
}

func (st stimulus) targetImage() string {
	switch st.target {
	case "R":
		return st.RightImage
	case "L":
		return st.LeftImage
	}
	return ""
}

func presentTrial(t core.Trial, invert Invert) stimulus {
	st := stimulus{Trial: t, target: t.TargetSide}
	if invert == InvertTrialOrder {
		st.LeftImage, st.RightImage = t.RightImage, t.LeftImage
		if t.Has(core.FieldTargetSide) {
			st.target = t.InvertedTarget()
		}
	}
	return st
}

func presentResponse(response string, invert Invert) string {
	if invert != InvertResponses {
		return response
	}
	switch response {
	case core.ResponseLeft:
		return core.ResponseRight
	case core.ResponseRight:
		return core.ResponseLeft
	}
	return response
}

// usedTrials returns the trial order rows that are neither marked unused in
// the trial order nor excluded by the primary prescreener.
func usedTrials(s *core.Subject) []core.Trial {
	excluded := make(map[int]bool)
	for _, t := range s.Reasons.Unused() {
		excluded[t] = true
	}
	var out []core.Trial
	for _, t := range s.TrialOrder.Trials {
		if t.IsUnused() || excluded[t.TrialNumber] {
			continue
		}
		out = append(out, t)
	}
	return out
}

type subjectColumns struct {
	number string
	months string
	sex    string
	order  string
	notes  string
}

func describe(s *core.Subject) subjectColumns {
	return subjectColumns{
		number: s.Info.Number,
		months: fmt.Sprintf("%.1f", util.AgeMonths(s.Info.Birthday, s.Info.DateOfTest)),
		sex:    s.Info.Sex.String(),
		order:  s.TrialOrder.Name(),
		notes:  s.Info.Notes,
	}
}

// BuildLong produces one row per coded frame of each used trial. A trial's
// rows stop at its Trial End, or at its last event when Trial End is unset.
func BuildLong(s *core.Subject, invert Invert) *Table {
	clock := ClockFor(s.Framerate())
	subj := describe(s)
	trials := s.Timeline.Trials()
	table := &Table{Header: LongColumns}

	for _, trial := range usedTrials(s) {
		events := trials[trial.TrialNumber]
		if len(events) == 0 {
			continue
		}
		st := presentTrial(trial, invert)
		first := events[0].Frame
		bound := events[len(events)-1].Frame - first
		if trial.TrialEnd > 0 {
			bound = clock.MsToFrames(trial.TrialEnd)
		}
		onset := clock.FrameToMs(clock.NearestFrame(trial.CriticalOnset))

		wrote := false
		for i, e := range events {
			start := e.Frame - first
			end := bound
			if i+1 < len(events) {
				end = min(events[i+1].Frame-first, bound)
			}
			response := presentResponse(e.Response, invert)
			accuracy := ComputeAccuracy(st.target, response)
			for f := start; f < end; f++ {
				ms := clock.FrameToMs(f)
				table.Rows = append(table.Rows, []string{
					subj.number, subj.months, subj.sex, subj.order,
					strconv.Itoa(trial.TrialNumber), subj.notes,
					st.LeftImage, st.CenterImage, st.RightImage, st.target, invert.String(), st.Condition,
					fmt.Sprintf("%.2f", ms), fmt.Sprintf("%.2f", ms-onset),
					response, string(accuracy),
				})
				wrote = true
			}
		}
		if wrote {
			table.Trials++
		}
	}
	return table
}

// BuildWide produces one row per used trial. Frame columns are aligned on
// critical onset and span the widest pre-onset and post-onset range of any
// trial. With no coded events only the header is produced.
func BuildWide(s *core.Subject, invert Invert) *Table {
	clock := ClockFor(s.Framerate())
	used := usedTrials(s)
	table := &Table{Header: append([]string(nil), WideColumns...)}
	if s.Timeline.Len() == 0 || len(used) == 0 {
		return table
	}

	trials := s.Timeline.Trials()
	span := func(t int) int {
		events := trials[t]
		if len(events) == 0 {
			return 0
		}
		return events[len(events)-1].Frame - events[0].Frame
	}

	maxPre, maxPost := 0, 0
	for i, t := range used {
		cof := clock.MsToFrames(t.CriticalOnset)
		post := span(t.TrialNumber) - cof
		if i == 0 {
			maxPre, maxPost = cof, post
			continue
		}
		maxPre = max(maxPre, cof)
		maxPost = max(maxPost, post)
	}
	width := max(maxPre+maxPost, 0)
	for f := 0; f < width; f++ {
		table.Header = append(table.Header, clock.OffsetLabel(f-maxPre))
	}

	subj := describe(s)
	for _, trial := range used {
		st := presentTrial(trial, invert)
		row := make([]string, len(table.Header))
		copy(row, []string{
			subj.number, subj.months, subj.sex, subj.order,
			strconv.Itoa(trial.TrialNumber), subj.notes,
			st.LeftImage, st.CenterImage, st.RightImage, st.target, st.targetImage(),
			invert.String(), st.Condition, strconv.Itoa(trial.CriticalOnset),
		})

		events := trials[trial.TrialNumber]
		cof := clock.MsToFrames(trial.CriticalOnset)
		for i := 0; i+1 < len(events); i++ {
			first := events[0].Frame
			accuracy := ComputeAccuracy(st.target, presentResponse(events[i].Response, invert))
			for f := events[i].Frame - first; f < events[i+1].Frame-first; f++ {
				col := f - cof + maxPre
				if col >= 0 && col < width {
					row[len(WideColumns)+col] = string(accuracy)
				}
			}
		}
		table.Rows = append(table.Rows, row)
		table.Trials++
	}
	return table
}
