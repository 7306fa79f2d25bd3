package export

import (
	"fmt"
	"math"

	"github.com/peyecoder/peyecoder/internal/timecode"
)

// Clock converts between frame counts and milliseconds at a fixed rate.
type Clock struct {
	FPS float64
}

// ClockFor returns the clock for a framerate string. Timecode framerates such
// as 29.97 count at their nominal integer rate, matching the frame labels.
func ClockFor(framerate string) Clock {
	return Clock{FPS: float64(timecode.MustRate(framerate).Nominal)}
}

// FrameToMs converts a frame count to milliseconds.
func (c Clock) FrameToMs(frames int) float64 {
	return float64(frames) * 1000 / c.FPS
}

// MsToFrames converts milliseconds to whole frames, rounding down.
func (c Clock) MsToFrames(ms int) int {
	return int(math.Floor(float64(ms) * c.FPS / 1000))
}

// NearestFrame converts milliseconds to the nearest whole frame.
func (c Clock) NearestFrame(ms int) int {
	return int(math.Round(float64(ms) * c.FPS / 1000))
}

// OffsetLabel names the wide-format column for a frame offset from critical onset.
func (c Clock) OffsetLabel(frames int) string {
	return fmt.Sprintf("F%.0f", c.FrameToMs(frames))
}
