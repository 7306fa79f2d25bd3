// pkg/core/offsets.go
package core

import (
	"sort"
	"strconv"
)

// Offsets is a sparse table of timecode corrections: from a key frame onward
// its offset applies until the next key.
type Offsets struct {
	keys   []int
	values map[int]int
}

// NewOffsets creates an empty offset table.
func NewOffsets() *Offsets {
	return &Offsets{values: make(map[int]int)}
}

// Set records offset at frame, replacing any previous value for that frame.
func (o *Offsets) Set(frame, offset int) {
	if _, ok := o.values[frame]; !ok {
		i := sort.SearchInts(o.keys, frame)
		o.keys = append(o.keys, 0)
		copy(o.keys[i+1:], o.keys[i:])
		o.keys[i] = frame
	}
	o.values[frame] = offset
}

// GetOffset returns the offset of the greatest key <= frame, or 0.
func (o *Offsets) GetOffset(frame int) int {
	if o == nil {
		return 0
	}
	offset := 0
	for _, k := range o.keys {
		if k > frame {
			return offset
		}
		offset = o.values[k]
	}
	return offset
}

// Keys returns the key frames in ascending order.
func (o *Offsets) Keys() []int {
	out := make([]int, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of key frames.
func (o *Offsets) Len() int {
	return len(o.keys)
}

// ToPlist converts the table to a document with string keys.
func (o *Offsets) ToPlist() map[string]any {
	data := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		data[strconv.Itoa(k)] = o.values[k]
	}
	return data
}

// OffsetsFromPlist rebuilds a table from a string-keyed document.
// Keys that are not integers are skipped.
func OffsetsFromPlist(data map[string]any) *Offsets {
	o := NewOffsets()
	for k, v := range data {
		frame, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		o.Set(frame, toInt(v))
	}
	return o
}
