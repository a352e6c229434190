package value

import (
	"errors"
	"fmt"
)

// ErrUnitConversion is returned by Reconcile when the from side's unit could
// not be converted to the to side's unit. The reconciled values are still
// usable; the from number is kept and relabelled.
var ErrUnitConversion = errors.New("unit conversion failed")

// Converter converts a number between units.
type Converter func(n float64, from, to string) (float64, bool)

// Reconcile brings from and to into the same shape so they can be
// interpolated:
//
//  1. Complex beats Unit beats Color beats Number. The lesser side is
//     promoted by repeating its number into the greater side's layout.
//  2. Unit mismatches convert the from side with conv (ConvertUnit when nil).
//  3. Complex values with different arity are padded with zeros and share
//     the longer side's text.
func Reconcile(from, to Value, conv Converter) (Value, Value, error) {
	from, to = from.Clone(), to.Clone()
	if conv == nil {
		conv = ConvertUnit
	}

	switch {
	case from.Kind == Complex || to.Kind == Complex:
		if from.Kind != Complex {
			from = promoteComplex(from, to)
		}
		if to.Kind != Complex {
			to = promoteComplex(to, from)
		}
	case from.Kind == Unit || to.Kind == Unit:
		if from.Kind != Unit {
			from = Value{Kind: Unit, Number: from.Float(), Unit: to.Unit}
		}
		if to.Kind != Unit {
			to = Value{Kind: Unit, Number: to.Float(), Unit: from.Unit}
		}
	case from.Kind == Color || to.Kind == Color:
		if from.Kind != Color {
			from = RGBA(0, 0, 0, 1)
		}
		if to.Kind != Color {
			to = RGBA(0, 0, 0, 1)
		}
	}

	var err error
	if from.Kind == Unit && from.Unit != to.Unit {
		n, ok := conv(from.Number, from.Unit, to.Unit)
		if !ok {
			err = fmt.Errorf("%w: %s to %s", ErrUnitConversion, from.Unit, to.Unit)
		} else {
			from.Number = n
		}
		from.Unit = to.Unit
	}

	if from.Kind == Complex {
		padComplex(&from, &to)
	}
	if from.Kind == Color {
		padColor(&from)
		padColor(&to)
	}
	return from, to, err
}

func promoteComplex(v, shape Value) Value {
	out := Value{Kind: Complex, Strings: append([]string(nil), shape.Strings...)}
	out.Numbers = make([]float64, len(shape.Numbers))
	n := v.Float()
	for i := range out.Numbers {
		out.Numbers[i] = n
	}
	out.Number = n
	return out
}

func padComplex(a, b *Value) {
	for len(a.Numbers) < len(b.Numbers) {
		a.Numbers = append(a.Numbers, 0)
	}
	for len(b.Numbers) < len(a.Numbers) {
		b.Numbers = append(b.Numbers, 0)
	}
	strs := a.Strings
	if len(b.Strings) > len(strs) {
		strs = b.Strings
	}
	for len(strs) < len(a.Numbers)+1 {
		strs = append(strs, "")
	}
	a.Strings = append([]string(nil), strs...)
	b.Strings = append([]string(nil), strs...)
}

func padColor(v *Value) {
	for len(v.Numbers) < 3 {
		v.Numbers = append(v.Numbers, 0)
	}
	if len(v.Numbers) < 4 {
		v.Numbers = append(v.Numbers, 1)
	}
}
