package easing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknown is returned by Parse for names it does not recognise.
var ErrUnknown = errors.New("unknown easing")

// Parse resolves an easing description. It accepts the named curves plus the
// parametric forms in(p), out(p), inOut(p), outIn(p), steps(n[, fromStart]),
// cubicBezier(x1, y1, x2, y2) and spring(mass, stiffness, damping, velocity).
func Parse(s string) (Easing, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUnknown)
	}

	open := strings.IndexByte(s, '(')
	if open < 0 {
		if fn, ok := Named(s); ok {
			return fn, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknown, s)
	}
	if !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("%w: unbalanced parentheses in %q", ErrUnknown, s)
	}

	name := normalize(s[:open])
	args, err := parseArgs(s[open+1 : len(s)-1])
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknown, s, err)
	}

	switch name {
	case "in", "out", "inout", "outin":
		power := DefaultPower
		if len(args) > 0 {
			power = args[0]
		}
		switch name {
		case "in":
			return In(power), nil
		case "out":
			return Out(power), nil
		case "inout":
			return InOut(power), nil
		default:
			return OutIn(power), nil
		}
	case "steps":
		n := 10
		if len(args) > 0 {
			n = int(args[0])
		}
		fromStart := len(args) > 1 && args[1] != 0
		return Steps(n, fromStart), nil
	case "cubicbezier":
		if len(args) != 4 {
			return nil, fmt.Errorf("%w: cubicBezier needs 4 arguments, got %d", ErrUnknown, len(args))
		}
		return CubicBezier(args[0], args[1], args[2], args[3]), nil
	case "spring":
		p := DefaultSpring
		fields := []*float64{&p.Mass, &p.Stiffness, &p.Damping, &p.Velocity}
		for i, v := range args {
			if i >= len(fields) {
				break
			}
			*fields[i] = v
		}
		return NewSpring(p), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknown, s)
}

// MustParse is like Parse but panics on error. It is meant for package-level
// variables and tests.
func MustParse(s string) Easing {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

func parseArgs(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	args := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		switch p {
		case "true":
			args = append(args, 1)
			continue
		case "false":
			args = append(args, 0)
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

func normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(n, "ease") && len(n) > len("ease") {
		n = n[len("ease"):]
	}
	return n
}
