// pkg/core/event.go
package core

import "fmt"

// Response labels recorded by a coder.
const (
	ResponseLeft   = "left"
	ResponseRight  = "right"
	ResponseCenter = "center"
	ResponseAway   = "away"
	ResponseOff    = "off"
)

// Event is a single coded observation tied to a video frame.
type Event struct {
	Trial    int
	Status   bool // true = on, false = off
	Response string
	Frame    int

	// HasOffset marks events imported from absolute legacy timecodes.
	// Only these events move when an offset is removed or restored.
	HasOffset bool
}

// StatusString renders Status as "on" or "off".
func (e Event) StatusString() string {
	if e.Status {
		return "on"
	}
	return "off"
}

// Less orders events by frame, placing "on" before "off" at the same frame.
func (e Event) Less(other Event) bool {
	if e.Frame == other.Frame {
		return e.Status && !other.Status
	}
	return e.Frame < other.Frame
}

// Equal compares frame and status only.
func (e Event) Equal(other Event) bool {
	return e.Frame == other.Frame && e.Status == other.Status
}

func (e Event) String() string {
	return fmt.Sprintf("Trial: %d, Status: %s, Response: %s, Frame: %d",
		e.Trial, e.StatusString(), e.Response, e.Frame)
}

// ParseStatus accepts the persisted forms of a trial status: "on"/"off" or a boolean.
func ParseStatus(v any) bool {
	switch s := v.(type) {
	case bool:
		return s
	case string:
		return s == "on"
	default:
		return false
	}
}
