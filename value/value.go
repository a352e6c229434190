// Package value decomposes raw property values into typed numeric shapes the
// engine can interpolate, and composes interpolated shapes back into values a
// sink understands.
//
// A raw value is one of:
//
//   - a plain number: 12, "12", 0.5
//   - a unit-tagged number: "12px", "90deg", "1.5s"
//   - a colour: "#f00", "#ff000080", "rgb(255, 0, 0)", "hsl(120, 100%, 50%)", "red",
//     or a colorful.Color
//   - a complex string holding several numbers: "translate(10px, 20px) scale(2)"
//
// Any of the string forms may carry a relative operator prefix ("+=", "-=",
// "*=") that is resolved against a base value with Relative.
package value

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrUnparseable is returned when a raw value cannot be decomposed. The
// accompanying Value is always a usable zero Number.
var ErrUnparseable = errors.New("unparseable value")

// Kind tags the shape of a decomposed value.
type Kind int

const (
	Number Kind = iota
	Unit
	Color
	Complex
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case Unit:
		return "unit"
	case Color:
		return "color"
	case Complex:
		return "complex"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Operator is a relative operator prefix.
type Operator byte

const (
	NoOp Operator = 0
	Add  Operator = '+'
	Sub  Operator = '-'
	Mul  Operator = '*'
)

// Value is a decomposed property value.
//
// Number and Unit kinds use Number (and Unit). Color keeps r, g, b (0-255)
// and alpha (0-1) in Numbers. Complex keeps its numbers in Numbers and the
// text around them in Strings, which always has len(Numbers)+1 entries.
type Value struct {
	Kind     Kind
	Number   float64
	Unit     string
	Operator Operator
	Numbers  []float64
	Strings  []string
}

// Num returns a plain Number value.
func Num(n float64) Value {
	return Value{Kind: Number, Number: n}
}

// WithUnit returns a unit-tagged value.
func WithUnit(n float64, unit string) Value {
	return Value{Kind: Unit, Number: n, Unit: unit}
}

// RGBA returns a Color value. Channels are 0-255, alpha 0-1.
func RGBA(r, g, b, a float64) Value {
	return Value{Kind: Color, Numbers: []float64{r, g, b, a}}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	c := v
	if v.Numbers != nil {
		c.Numbers = append([]float64(nil), v.Numbers...)
	}
	if v.Strings != nil {
		c.Strings = append([]string(nil), v.Strings...)
	}
	return c
}

// Float returns the scalar of Number and Unit values, the first number of a
// Complex value and the red channel of a Color.
func (v Value) Float() float64 {
	switch v.Kind {
	case Number, Unit:
		return v.Number
	default:
		if len(v.Numbers) > 0 {
			return v.Numbers[0]
		}
		return 0
	}
}

// Colorful converts a Color value to a colorful.Color plus alpha.
func (v Value) Colorful() (colorful.Color, float64) {
	if v.Kind != Color || len(v.Numbers) < 4 {
		return colorful.Color{}, 1
	}
	return colorful.Color{R: v.Numbers[0] / 255, G: v.Numbers[1] / 255, B: v.Numbers[2] / 255}, v.Numbers[3]
}

// String composes v into its textual form.
func (v Value) String() string {
	switch v.Kind {
	case Unit:
		return FormatNumber(v.Number) + v.Unit
	case Color:
		n := v.Numbers
		if len(n) < 4 {
			return "rgba(0,0,0,1)"
		}
		return "rgba(" + FormatNumber(n[0]) + "," + FormatNumber(n[1]) + "," +
			FormatNumber(n[2]) + "," + FormatNumber(n[3]) + ")"
	case Complex:
		var b strings.Builder
		if len(v.Strings) > 0 {
			b.WriteString(v.Strings[0])
		}
		for i, n := range v.Numbers {
			b.WriteString(FormatNumber(n))
			if i+1 < len(v.Strings) {
				b.WriteString(v.Strings[i+1])
			}
		}
		return b.String()
	default:
		return FormatNumber(v.Number)
	}
}

// FormatNumber prints n with the fewest digits that round-trip.
func FormatNumber(n float64) string {
	if n == 0 {
		// Avoid "-0".
		return "0"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

var (
	numberPattern = `[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`
	numberRe      = regexp.MustCompile(numberPattern)
	unitRe        = regexp.MustCompile(`^(` + numberPattern + `)([a-zA-Z%]+)$`)
	hexInTextRe   = regexp.MustCompile(`#[0-9a-fA-F]{3,8}\b`)
)

// Decompose classifies a raw value. Unsupported input yields a zero Number
// together with ErrUnparseable.
func Decompose(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Num(0), fmt.Errorf("%w: nil", ErrUnparseable)
	case Value:
		return v.Clone(), nil
	case *Value:
		if v == nil {
			return Num(0), fmt.Errorf("%w: nil", ErrUnparseable)
		}
		return v.Clone(), nil
	case colorful.Color:
		return RGBA(math.Round(v.R*255), math.Round(v.G*255), math.Round(v.B*255), 1), nil
	case string:
		return parseString(v)
	case bool:
		return Num(0), fmt.Errorf("%w: %v", ErrUnparseable, v)
	case fmt.Stringer:
		return parseString(v.String())
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return Num(rv.Float()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Num(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Num(float64(rv.Uint())), nil
	}
	return Num(0), fmt.Errorf("%w: %T", ErrUnparseable, raw)
}

func parseString(s string) (Value, error) {
	s = strings.TrimSpace(s)
	var op Operator
	if len(s) >= 2 && s[1] == '=' {
		switch Operator(s[0]) {
		case Add, Sub, Mul:
			op = Operator(s[0])
			s = strings.TrimSpace(s[2:])
		}
	}
	if s == "" {
		return Num(0), fmt.Errorf("%w: empty string", ErrUnparseable)
	}

	if rgba, ok := ParseColor(s); ok {
		v := Value{Kind: Color, Numbers: rgba[:]}
		v.Operator = op
		return v, nil
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return Num(0), fmt.Errorf("%w: %q", ErrUnparseable, s)
		}
		return Value{Kind: Number, Number: n, Operator: op}, nil
	}

	if m := unitRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return Value{Kind: Unit, Number: n, Unit: m[2], Operator: op}, nil
		}
	}

	// Colours embedded in longer strings are normalised so their channels
	// become plain numbers.
	s = hexInTextRe.ReplaceAllStringFunc(s, func(hex string) string {
		rgba, ok := ParseColor(hex)
		if !ok {
			return hex
		}
		return RGBA(rgba[0], rgba[1], rgba[2], rgba[3]).String()
	})

	idx := numberRe.FindAllStringIndex(s, -1)
	if len(idx) == 0 {
		return Num(0), fmt.Errorf("%w: %q", ErrUnparseable, s)
	}
	v := Value{Kind: Complex, Operator: op}
	prev := 0
	for _, loc := range idx {
		n, err := strconv.ParseFloat(s[loc[0]:loc[1]], 64)
		if err != nil {
			n = 0
		}
		v.Strings = append(v.Strings, s[prev:loc[0]])
		v.Numbers = append(v.Numbers, n)
		prev = loc[1]
	}
	v.Strings = append(v.Strings, s[prev:])
	if len(v.Numbers) > 0 {
		v.Number = v.Numbers[0]
	}
	return v, nil
}

// Relative resolves a relative operator against base.
func Relative(base, delta float64, op Operator) float64 {
	switch op {
	case Add:
		return base + delta
	case Sub:
		return base - delta
	case Mul:
		return base * delta
	default:
		return delta
	}
}

// ResolveRelative applies v's operator against base, channel by channel for
// Color and Complex values, and clears the operator.
func ResolveRelative(base, v Value) Value {
	if v.Operator == NoOp {
		return v
	}
	out := v.Clone()
	op := v.Operator
	out.Operator = NoOp
	switch v.Kind {
	case Number, Unit:
		out.Number = Relative(base.Float(), v.Number, op)
	default:
		for i := range out.Numbers {
			b := 0.0
			if i < len(base.Numbers) {
				b = base.Numbers[i]
			} else if i == 0 {
				b = base.Float()
			}
			out.Numbers[i] = Relative(b, v.Numbers[i], op)
		}
		if len(out.Numbers) > 0 {
			out.Number = out.Numbers[0]
		}
	}
	return out
}
