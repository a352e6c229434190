package value

import (
	"math"
	"strings"
)

// unitFamilies maps each known unit to its factor relative to the family's
// base unit (deg, px and ms).
var unitFamilies = []map[string]float64{
	{"deg": 1, "rad": 180 / math.Pi, "turn": 360, "grad": 0.9},
	{"px": 1, "in": 96, "cm": 96 / 2.54, "mm": 96 / 25.4, "q": 96 / 101.6, "pt": 96.0 / 72, "pc": 16},
	{"ms": 1, "s": 1000},
}

// ConvertUnit converts n from one absolute unit to another of the same
// family. Relative units (%, em, vw) cannot be converted without a layout
// context and report false.
func ConvertUnit(n float64, from, to string) (float64, bool) {
	from, to = strings.ToLower(from), strings.ToLower(to)
	if from == to {
		return n, true
	}
	for _, family := range unitFamilies {
		f, okFrom := family[from]
		t, okTo := family[to]
		if okFrom && okTo {
			return n * f / t, true
		}
	}
	return n, false
}

// UnitConverter is implemented by sinks that can convert between units with
// knowledge of their own layout, such as percentages of a strip length.
type UnitConverter interface {
	ConvertUnit(target any, property string, n float64, from, to string) (float64, bool)
}
