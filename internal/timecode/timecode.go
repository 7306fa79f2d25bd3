// Package timecode converts between frame counts and SMPTE timecodes
// (HH:MM:SS:FF, or HH:MM:SS;FF for drop-frame).
package timecode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidTimecode is returned for malformed timecode or framerate strings.
var ErrInvalidTimecode = errors.New("invalid timecode")

// Rate describes a framerate as used for timecode arithmetic.
type Rate struct {
	FPS        float64 // actual rate, e.g. 29.97
	Nominal    int     // integer frames per timecode second, e.g. 30
	DropFrames int     // frame labels skipped each minute in drop-frame mode
}

// ParseRate parses a framerate string such as "29.97", "25" or "59.94".
func ParseRate(framerate string) (Rate, error) {
	fps, err := strconv.ParseFloat(strings.TrimSpace(framerate), 64)
	if err != nil || fps <= 0 || math.IsInf(fps, 0) || math.IsNaN(fps) {
		return Rate{}, fmt.Errorf("framerate %q: %w", framerate, ErrInvalidTimecode)
	}
	r := Rate{FPS: fps, Nominal: int(math.Round(fps))}
	// only the NTSC rates have a drop-frame variant
	if fps != float64(r.Nominal) && r.Nominal%30 == 0 {
		r.DropFrames = int(math.Round(fps * 0.066666))
	}
	return r, nil
}

// MustRate is ParseRate falling back to 30 fps for unparsable input.
func MustRate(framerate string) Rate {
	r, err := ParseRate(framerate)
	if err != nil {
		return Rate{FPS: 30, Nominal: 30}
	}
	return r
}

// Format renders a 1-based frame count as a timecode. Counts below 1 render as zero.
func Format(frames int, r Rate, dropFrame bool) string {
	n := frames - 1
	if n < 0 {
		n = 0
	}
	drop := 0
	if dropFrame {
		drop = r.DropFrames
	}
	sep := ":"
	if drop > 0 {
		sep = ";"
		perDay := r.Nominal * 3600 * 24
		perTenMinutes := int(math.Round(r.FPS * 600))
		perMinute := r.Nominal*60 - drop

		n %= perDay
		d := n / perTenMinutes
		m := n % perTenMinutes
		if m > drop {
			n += drop*9*d + drop*((m-drop)/perMinute)
		} else {
			n += drop * 9 * d
		}
	}

	ff := n % r.Nominal
	secs := n / r.Nominal
	return fmt.Sprintf("%02d:%02d:%02d%s%02d", secs/3600, (secs/60)%60, secs%60, sep, ff)
}

// Parse converts a timecode to a 1-based frame count.
// Fields may be separated by ':', ';' or '.'.
func Parse(tc string, r Rate, dropFrame bool) (int, error) {
	parts := strings.FieldsFunc(strings.TrimSpace(tc), func(c rune) bool {
		return c == ':' || c == ';' || c == '.'
	})
	if len(parts) != 4 {
		return 0, fmt.Errorf("timecode %q: %w", tc, ErrInvalidTimecode)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("timecode %q: %w", tc, ErrInvalidTimecode)
		}
		v[i] = n
	}
	hh, mm, ss, ff := v[0], v[1], v[2], v[3]
	if mm > 59 || ss > 59 || ff >= r.Nominal {
		return 0, fmt.Errorf("timecode %q out of range: %w", tc, ErrInvalidTimecode)
	}

	frames := (hh*3600+mm*60+ss)*r.Nominal + ff
	if dropFrame && r.DropFrames > 0 {
		minutes := hh*60 + mm
		frames -= r.DropFrames * (minutes - minutes/10)
	}
	return frames + 1, nil
}

// Renderer renders frame numbers for display, falling back to 30 fps when
// the framerate cannot be parsed.
type Renderer struct{}

// Render formats a 1-based frame count.
func (Renderer) Render(frame int, framerate string, dropFrame bool) string {
	return Format(frame, MustRate(framerate), dropFrame)
}
