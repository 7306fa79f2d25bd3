package core

import (
	"maps"
	"strconv"
)

// Default key codes (Qt key values for the digits 1-6).
const (
	DefaultStep                 = 10
	DefaultToggleTrialStatusKey = 54
	DefaultFramerate            = "29.97"
)

// Settings holds per-subject coding preferences.
type Settings struct {
	Step                 int
	ToggleTrialStatusKey int
	ResponseKeys         map[int]string
	Framerate            string
	DropFrame            bool

	// extra keeps settings written by other tools so they survive a round trip.
	extra map[string]any
}

// DefaultSettings returns the settings of a new subject.
func DefaultSettings() Settings {
	return Settings{
		Step:                 DefaultStep,
		ToggleTrialStatusKey: DefaultToggleTrialStatusKey,
		ResponseKeys: map[int]string{
			49: ResponseLeft,
			50: ResponseOff,
			51: ResponseRight,
			52: ResponseAway,
			53: ResponseCenter,
		},
		Framerate: DefaultFramerate,
	}
}

// ToPlist converts the settings to a document. Response key codes become strings.
func (s Settings) ToPlist() map[string]any {
	data := make(map[string]any, len(s.extra)+5)
	maps.Copy(data, s.extra)

	keys := make(map[string]any, len(s.ResponseKeys))
	for k, v := range s.ResponseKeys {
		keys[strconv.Itoa(k)] = v
	}
	data["Step"] = s.Step
	data["Toggle Trial Status Key"] = s.ToggleTrialStatusKey
	data["Response Keys"] = keys
	data["Framerate"] = s.Framerate
	data["Drop Frame"] = s.DropFrame
	return data
}

// Update overlays the values present in a settings document.
func (s *Settings) Update(data map[string]any) {
	for k, v := range data {
		switch k {
		case "Step":
			s.Step = toInt(v)
		case "Toggle Trial Status Key":
			s.ToggleTrialStatusKey = toInt(v)
		case "Response Keys":
			keys := make(map[int]string)
			for code, resp := range toMap(v) {
				n, err := strconv.Atoi(code)
				if err != nil {
					continue
				}
				keys[n] = toString(resp)
			}
			s.ResponseKeys = keys
		case "Framerate":
			if fr := toString(v); fr != "" {
				s.Framerate = fr
			}
		case "Drop Frame":
			s.DropFrame = toBool(v)
		default:
			if s.extra == nil {
				s.extra = make(map[string]any)
			}
			s.extra[k] = v
		}
	}
}
