package export

import (
	"strings"

	"github.com/peyecoder/peyecoder/pkg/core"
)

// Accuracy is the per-frame score written to the export.
type Accuracy string

const (
	AccuracyCorrect   Accuracy = "1"
	AccuracyPartial   Accuracy = "0.5"
	AccuracyIncorrect Accuracy = "0"
	AccuracyAway      Accuracy = "-"
	AccuracyOff       Accuracy = "."
	AccuracyNA        Accuracy = "N/A"
)

// canonicalSides maps the standard target codes to the matching response.
var canonicalSides = map[string]string{
	"R": core.ResponseRight,
	"L": core.ResponseLeft,
	"N": core.ResponseCenter,
}

// ComputeAccuracy scores a response against a trial's target side.
//
// For R, L and N a matching response scores 1, a center look at a side target
// 0.5, and a left or right look at the wrong place 0. Other targets score 1
// on a case-insensitive match with the response and 0 otherwise. Away and off
// responses always score "-" and "."; a missing target scores N/A.
func ComputeAccuracy(target, response string) Accuracy {
	if side, ok := canonicalSides[target]; ok {
		switch {
		case response == side:
			return AccuracyCorrect
		case response == core.ResponseCenter:
			return AccuracyPartial
		case response == core.ResponseLeft || response == core.ResponseRight:
			return AccuracyIncorrect
		}
		return sentinel(response)
	}

	if strings.TrimSpace(target) == "" {
		return sentinel(response)
	}
	if strings.EqualFold(target, response) {
		return AccuracyCorrect
	}
	if acc := sentinel(response); acc != AccuracyNA {
		return acc
	}
	return AccuracyIncorrect
}

func sentinel(response string) Accuracy {
	switch response {
	case core.ResponseAway:
		return AccuracyAway
	case core.ResponseOff:
		return AccuracyOff
	default:
		return AccuracyNA
	}
}
