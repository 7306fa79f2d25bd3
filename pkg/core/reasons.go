// pkg/core/reasons.go
package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Prescreener selects whose prescreen entries an operation applies to.
type Prescreener int

const (
	Both Prescreener = iota
	Primary
	Secondary
)

func (p Prescreener) String() string {
	switch p {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	case Both:
		return "both"
	default:
		return "unknown"
	}
}

// targets returns the map slots an operation on p touches.
func (p Prescreener) targets() ([]int, error) {
	switch p {
	case Primary:
		return []int{0}, nil
	case Secondary:
		return []int{1}, nil
	case Both:
		return []int{0, 1}, nil
	default:
		return nil, fmt.Errorf("prescreener %d: %w", int(p), ErrInvalidPrescreener)
	}
}

// Inclusion is a prescreener's decision for a trial.
type Inclusion int

const (
	Undecided Inclusion = iota
	Included
	Excluded
)

// String renders the decision the way the log shows it: "yes", "no" or blank.
func (i Inclusion) String() string {
	switch i {
	case Included:
		return "yes"
	case Excluded:
		return "no"
	default:
		return ""
	}
}

// InclusionOf maps an include flag to an Inclusion.
func InclusionOf(include bool) Inclusion {
	if include {
		return Included
	}
	return Excluded
}

// Reason is a prescreen annotation for one trial.
type Reason struct {
	Trial   int
	Include Inclusion
	Reason  string
}

func (r Reason) String() string {
	return fmt.Sprintf("Trial: %d, Code: %s, Reason: %s", r.Trial, r.Include, r.Reason)
}

// Reasons stores at most one Reason per trial for each of the two prescreeners.
type Reasons struct {
	ps [2]map[int]Reason
}

// NewReasons creates an empty collection.
func NewReasons() *Reasons {
	return &Reasons{ps: [2]map[int]Reason{{}, {}}}
}

// Add stores r for a single prescreener, replacing any entry for the same trial.
func (r *Reasons) Add(reason Reason, ps Prescreener) error {
	if ps != Primary && ps != Secondary {
		return fmt.Errorf("add reason for %s: %w", ps, ErrInvalidPrescreener)
	}
	slots, _ := ps.targets()
	r.ps[slots[0]][reason.Trial] = reason
	return nil
}

// Get returns the entry of a single prescreener for trial.
func (r *Reasons) Get(trial int, ps Prescreener) (Reason, bool) {
	if ps != Primary && ps != Secondary {
		return Reason{}, false
	}
	slots, _ := ps.targets()
	reason, ok := r.ps[slots[0]][trial]
	return reason, ok
}

// Delete removes the entries for trial; Both removes it from both prescreeners.
func (r *Reasons) Delete(trial int, ps Prescreener) error {
	slots, err := ps.targets()
	if err != nil {
		return err
	}
	for _, n := range slots {
		delete(r.ps[n], trial)
	}
	return nil
}

// ChangeTrial renumbers trial to trial+delta. If the destination exists in any
// targeted map nothing is changed and ErrTrialConflict is returned.
func (r *Reasons) ChangeTrial(trial, delta int, ps Prescreener) error {
	slots, err := ps.targets()
	if err != nil {
		return err
	}
	dest := trial + delta
	if dest == trial {
		return nil
	}
	for _, n := range slots {
		if _, ok := r.ps[n][dest]; ok {
			return fmt.Errorf("change trial %d to %d: %w", trial, dest, ErrTrialConflict)
		}
	}
	for _, n := range slots {
		reason, ok := r.ps[n][trial]
		if !ok {
			continue
		}
		delete(r.ps[n], trial)
		reason.Trial = dest
		r.ps[n][dest] = reason
	}
	return nil
}

// Trials returns the trial numbers held for ps in ascending order. Both returns the union.
func (r *Reasons) Trials(ps Prescreener) []int {
	slots, err := ps.targets()
	if err != nil {
		return nil
	}
	seen := make(map[int]bool)
	var trials []int
	for _, n := range slots {
		for t := range r.ps[n] {
			if !seen[t] {
				seen[t] = true
				trials = append(trials, t)
			}
		}
	}
	sort.Ints(trials)
	return trials
}

// Render returns display rows sorted by trial. A single prescreener yields
// [trial, include, reason]; Both yields [trial, include1, reason1, include2, reason2]
// with a blank include for a missing side.
func (r *Reasons) Render(ps Prescreener) [][]string {
	trials := r.Trials(ps)
	rows := make([][]string, 0, len(trials))
	for _, t := range trials {
		if ps == Both {
			p1 := r.entry(0, t)
			p2 := r.entry(1, t)
			rows = append(rows, []string{strconv.Itoa(t), p1.Include.String(), p1.Reason, p2.Include.String(), p2.Reason})
			continue
		}
		reason, _ := r.Get(t, ps)
		rows = append(rows, []string{strconv.Itoa(t), reason.Include.String(), reason.Reason})
	}
	return rows
}

// entry returns the stored reason or an undecided placeholder.
func (r *Reasons) entry(slot, trial int) Reason {
	if reason, ok := r.ps[slot][trial]; ok {
		return reason
	}
	return Reason{Trial: trial, Include: Undecided}
}

// ErrorItems compares the two prescreeners over every trial either of them
// has coded. It returns the rows of the Render(ps) output that disagree and
// the disagreeing trial numbers.
func (r *Reasons) ErrorItems(ps Prescreener) ([]int, []int) {
	var trials []int
	for _, t := range r.Trials(Both) {
		p1 := r.entry(0, t)
		p2 := r.entry(1, t)
		if p1.Include != p2.Include || p1.Reason != p2.Reason {
			trials = append(trials, t)
		}
	}
	if len(trials) == 0 {
		return nil, nil
	}

	index := make(map[int]int)
	for i, t := range r.Trials(ps) {
		index[t] = i
	}
	var rows []int
	for _, t := range trials {
		if i, ok := index[t]; ok {
			rows = append(rows, i)
		}
	}
	return rows, trials
}

// Unused returns the trials excluded by the primary prescreener, ascending.
func (r *Reasons) Unused() []int {
	var trials []int
	for _, t := range r.Trials(Primary) {
		if r.ps[0][t].Include == Excluded {
			trials = append(trials, t)
		}
	}
	return trials
}

// UnusedReasons maps each trial excluded by the primary prescreener to its reason.
func (r *Reasons) UnusedReasons() map[int]string {
	out := make(map[int]string)
	for _, t := range r.Unused() {
		out[t] = r.ps[0][t].Reason
	}
	return out
}

// UnusedDisplay renders Unused as a comma separated list.
func (r *Reasons) UnusedDisplay() string {
	return joinInts(r.Unused())
}

// ToPlist converts the collection to the "Pre-Screen Information" document.
func (r *Reasons) ToPlist() map[string]any {
	pack := func(slot int) map[string]any {
		out := make(map[string]any, len(r.ps[slot]))
		for t, reason := range r.ps[slot] {
			out[fmt.Sprintf("Pre-Screen Entry %d", t)] = map[string]any{
				"Eliminate": reason.Include != Included,
				"Reason":    reason.Reason,
				"Trial":     t,
			}
		}
		return out
	}
	return map[string]any{
		"Pre-Screen Array 0": pack(0),
		"Pre-Screen Array 1": pack(1),
	}
}

// ReasonsFromPlist rebuilds a collection from a "Pre-Screen Information" document.
func ReasonsFromPlist(data map[string]any) *Reasons {
	r := NewReasons()
	for slot := range r.ps {
		entries := toMap(data[fmt.Sprintf("Pre-Screen Array %d", slot)])
		for _, key := range numberedKeys(entries) {
			e := toMap(entries[key])
			if e == nil {
				continue
			}
			t := toInt(e["Trial"])
			r.ps[slot][t] = Reason{
				Trial:   t,
				Include: InclusionOf(!toBool(e["Eliminate"])),
				Reason:  toString(e["Reason"]),
			}
		}
	}
	return r
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
