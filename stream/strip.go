package stream

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/util"
	"github.com/matt-g-everett/ledmotion/value"
)

// Pixel addresses one LED of a Strip.
type Pixel int

// Master addresses the strip as a whole. It only has a brightness, which
// scales every pixel.
const Master Pixel = -1

func (p Pixel) String() string {
	if p == Master {
		return "master"
	}
	return "pixel" + strconv.Itoa(int(p))
}

// Properties understood by a Strip.
const (
	Color      = "color"
	Brightness = "brightness"
)

// ErrInvalidRange is returned for pixel ranges that cannot be parsed or fall
// outside the strip.
var ErrInvalidRange = errors.New("invalid pixel range")

// A Strip is an engine Sink holding the state of an LED strip. Targets are
// Pixel values; each pixel has a colour and a brightness.
type Strip struct {
	mu         sync.RWMutex
	colors     []colorful.Color
	brightness []float64
	master     float64
}

// NewStrip creates a black strip of n pixels at full brightness.
func NewStrip(n int) *Strip {
	s := new(Strip)
	s.colors = make([]colorful.Color, n)
	s.brightness = make([]float64, n)
	for i := range s.brightness {
		s.brightness[i] = 1
	}
	s.master = 1
	return s
}

// Len returns the number of pixels.
func (s *Strip) Len() int {
	return len(s.colors)
}

func (s *Strip) pixel(target anim.Target) (int, bool) {
	p, ok := target.(Pixel)
	if !ok || p != Master && (p < 0 || int(p) >= len(s.colors)) {
		return 0, false
	}
	return int(p), true
}

func (s *Strip) Read(target anim.Target, property string) (any, bool) {
	i, ok := s.pixel(target)
	if !ok {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case property == Brightness && Pixel(i) == Master:
		return s.master, true
	case property == Brightness:
		return s.brightness[i], true
	case property == Color && Pixel(i) != Master:
		return s.colors[i], true
	}
	return nil, false
}

// Write stores a colour or a brightness. Colour alpha is applied against
// black, since LEDs have no transparency.
func (s *Strip) Write(target anim.Target, property string, v value.Value) {
	i, ok := s.pixel(target)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case property == Brightness && Pixel(i) == Master:
		s.master = util.Clamp(v.Float(), 0, 1)
	case property == Brightness:
		s.brightness[i] = util.Clamp(v.Float(), 0, 1)
	case property == Color && Pixel(i) != Master:
		c, alpha := v.Colorful()
		if alpha < 1 {
			c = colorful.Color{}.BlendRgb(c, util.Clamp(alpha, 0, 1))
		}
		s.colors[i] = c
	}
}

// Frame renders the strip, with pixel and master brightness applied.
func (s *Strip) Frame() *Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := NewFrame(len(s.colors))
	for i, c := range s.colors {
		f.SetPixel(i, colorful.Color{}.BlendRgb(c, s.brightness[i]*s.master))
	}
	return f
}

// Pixels returns every pixel as a target, in order.
func (s *Strip) Pixels() []anim.Target {
	return s.Range(0, len(s.colors))
}

// Range returns the pixels from start up to but not including end.
func (s *Strip) Range(start, end int) []anim.Target {
	start = max(start, 0)
	end = min(end, len(s.colors))
	targets := make([]anim.Target, 0, max(end-start, 0))
	for i := start; i < end; i++ {
		targets = append(targets, Pixel(i))
	}
	return targets
}

// Resolve turns a comma separated list of pixel selectors into targets.
// A selector is "all" (or "*"), "master", an index such as "7", an
// inclusive range "0-9", or a stepped range "0-99/3".
func (s *Strip) Resolve(spec string) ([]anim.Target, error) {
	var targets []anim.Target
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		switch part {
		case "all", "*":
			targets = append(targets, s.Pixels()...)
			continue
		case "master":
			targets = append(targets, Master)
			continue
		}

		step := 1
		if r, st, ok := strings.Cut(part, "/"); ok {
			n, err := strconv.Atoi(st)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: bad step in %q", ErrInvalidRange, part)
			}
			part, step = r, n
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRange, part)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(hi); err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidRange, part)
			}
		}
		if first < 0 || last < first || last >= len(s.colors) {
			return nil, fmt.Errorf("%w: %q outside 0-%d", ErrInvalidRange, part, len(s.colors)-1)
		}
		for i := first; i <= last; i += step {
			targets = append(targets, Pixel(i))
		}
	}
	return targets, nil
}
