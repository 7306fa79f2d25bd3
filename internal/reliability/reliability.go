// Package reliability compares two independent codings of the same subject.
package reliability

import (
	"fmt"
	"sort"

	"github.com/peyecoder/peyecoder/internal/util"
	"github.com/peyecoder/peyecoder/pkg/core"
)

// ShiftAgreementThreshold is the largest frame difference at which two
// interior events still agree.
const ShiftAgreementThreshold = 1

// MsgIncomparable is the whole report when the subjects' identities differ.
const MsgIncomparable = "Subject number, birthdate, date of test, and order must all match. Cannot compare the subjects."

const separator = "----------------------------------"

// Stats are the summary percentages of a comparison.
type Stats struct {
	FrameAgreement   float64
	ComparableTrials float64
	ShiftAgreement   float64

	CommonTrials int
	Comparable   int
	Shifts       int
	SameShifts   int
}

// Result is a comparison outcome. Stats is nil when the subjects could not be compared.
type Result struct {
	Stats *Stats
	Lines []string
}

// Report compares yours against other and returns the discrepancy lines
// followed by the summary block.
func Report(yours, other *core.Subject, renderer core.TimecodeRenderer) []string {
	return Compare(yours, other, renderer).Lines
}

// Comparable reports whether both subjects describe the same session: equal
// number and order, and birthday and test date on the same calendar day.
func Comparable(a, b *core.Subject) bool {
	return a.Field("Number") == b.Field("Number") &&
		a.Field("Order") == b.Field("Order") &&
		util.SameDate(a.Field("Birthday"), b.Field("Birthday")) &&
		util.SameDate(a.Field("Date of Test"), b.Field("Date of Test"))
}

// normalize treats away and off as the same response.
func normalize(response string) string {
	if response == core.ResponseAway {
		return core.ResponseOff
	}
	return response
}

type comparison struct {
	yours, other *core.Subject
	renderer     core.TimecodeRenderer
	lines        []string
	stats        Stats
}

// Compare runs the full comparison.
func Compare(yours, other *core.Subject, renderer core.TimecodeRenderer) Result {
	if !Comparable(yours, other) {
		return Result{Lines: []string{MsgIncomparable}}
	}

	c := &comparison{yours: yours, other: other, renderer: renderer}
	mine, theirs := yours.Timeline.Trials(), other.Timeline.Trials()

	var common []int
	for t := range mine {
		if _, ok := theirs[t]; ok {
			common = append(common, t)
		}
	}
	sort.Ints(common)
	c.stats.CommonTrials = len(common)

	for _, t := range common {
		c.trial(t, mine[t], theirs[t])
	}

	c.stats.FrameAgreement = frameAgreement(yours.Timeline, other.Timeline)
	if c.stats.CommonTrials > 0 {
		c.stats.ComparableTrials = percent(c.stats.Comparable, c.stats.CommonTrials)
	}
	switch {
	case c.stats.Shifts > 0:
		c.stats.ShiftAgreement = percent(c.stats.SameShifts, c.stats.Shifts)
	case c.stats.Comparable > 0:
		// nothing moved inside any comparable trial
		c.stats.ShiftAgreement = 100
	}

	c.lines = append(c.lines,
		separator,
		fmt.Sprintf("Frame agreement: %.2f%%", c.stats.FrameAgreement),
		fmt.Sprintf("Comparable trials: %.2f%%", c.stats.ComparableTrials),
		fmt.Sprintf("Shift agreement: %.2f%%", c.stats.ShiftAgreement),
	)
	stats := c.stats
	return Result{Stats: &stats, Lines: c.lines}
}

func (c *comparison) trial(t int, a, b []core.Event) {
	if len(a) != len(b) {
		c.lines = append(c.lines, fmt.Sprintf(
			"Trial %d: Your subject had %d responses, while the other subject had %d responses. Cannot compare this trial.",
			t, len(a), len(b)))
		return
	}
	c.stats.Comparable++

	for i := 1; i < len(a)-1; i++ {
		ra, rb := normalize(a[i].Response), normalize(b[i].Response)
		if ra == rb && ra == normalize(a[i-1].Response) && rb == normalize(b[i-1].Response) {
			// away followed by off: the gaze did not move
			continue
		}
		c.stats.Shifts++
		if ra == rb && abs(a[i].Frame-b[i].Frame) <= ShiftAgreementThreshold {
			c.stats.SameShifts++
			continue
		}
		c.notSimilar(t, a[i], b[i])
	}

	last := len(a) - 1
	for _, i := range []int{0, last} {
		if d := a[i].Frame - b[i].Frame; d != 0 {
			suffix, word := "", "later"
			if abs(d) > 1 {
				suffix = "s"
			}
			if d < 0 {
				word = "earlier"
			}
			c.lines = append(c.lines, fmt.Sprintf(
				"Trial %d: Your response at %s is %d frame%s %s than the other subject's response at %s.",
				t, c.timecode(c.yours, a[i]), abs(d), suffix, word, c.timecode(c.other, b[i])))
		}
		if normalize(a[i].Response) != normalize(b[i].Response) {
			c.notSimilar(t, a[i], b[i])
		}
		if last == 0 {
			break
		}
	}
}

func (c *comparison) notSimilar(t int, a, b core.Event) {
	c.lines = append(c.lines, fmt.Sprintf(
		"Trial %d: Your response at %s is not similar to the other subject's response at %s.",
		t, c.timecode(c.yours, a), c.timecode(c.other, b)))
}

func (c *comparison) timecode(s *core.Subject, e core.Event) string {
	return c.renderer.Render(e.Frame+1+s.Offsets.GetOffset(e.Frame), s.Framerate(), s.Settings.DropFrame)
}

// frameAgreement is the share of frames coded in both timelines that carry
// the same normalized response.
func frameAgreement(a, b *core.Timeline) float64 {
	fa, fb := a.Frames(), b.Frames()
	total, same := 0, 0
	for f, ra := range fa {
		rb, ok := fb[f]
		if !ok {
			continue
		}
		total++
		if normalize(ra) == normalize(rb) {
			same++
		}
	}
	if total == 0 {
		return 0
	}
	return percent(same, total)
}

func percent(n, d int) float64 {
	return float64(n) / float64(d) * 100
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
