package core

// Occluder is a rectangle in video pixel coordinates that is masked during coding.
type Occluder struct {
	X, Y, W, H int
}

// Occluders is the ordered list of masks for a subject.
type Occluders []Occluder

// ToPlist converts the occluders to a list of {x, y, w, h} documents.
func (o Occluders) ToPlist() []any {
	out := make([]any, 0, len(o))
	for _, r := range o {
		out = append(out, map[string]any{"x": r.X, "y": r.Y, "w": r.W, "h": r.H})
	}
	return out
}

// OccludersFromPlist reads a list of {x, y, w, h} documents.
func OccludersFromPlist(data []any) Occluders {
	out := make(Occluders, 0, len(data))
	for _, v := range data {
		m := toMap(v)
		if m == nil {
			continue
		}
		out = append(out, Occluder{X: toInt(m["x"]), Y: toInt(m["y"]), W: toInt(m["w"]), H: toInt(m["h"])})
	}
	return out
}
