package stream

import (
	"time"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/easing"
)

type streakParams struct {
	Color  string        `mapstructure:"color"`
	Length int           `mapstructure:"length"`
	Step   time.Duration `mapstructure:"step"`
}

// streak sends a streak along the strip that fades in then out. Each pixel
// pulses in turn, one step after its neighbour.
func streak(e *anim.Engine, s *Strip, p anim.Params, params map[string]any) (*anim.Timer, error) {
	sp := streakParams{
		Color:  "#e0306a",
		Length: 10,
		Step:   20 * time.Millisecond,
	}
	if err := decodeParams(params, &sp); err != nil {
		return nil, err
	}

	pulse := time.Duration(max(sp.Length, 1)) * sp.Step
	p = looping(p, pulse)
	if p.Ease == nil {
		p.Ease = easing.MustParse("inOutQuad")
	}
	p.DelayFunc = anim.Stagger(sp.Step, anim.StaggerParams{})

	a := e.Animate(s.Pixels(), anim.Props{
		Color:      sp.Color,
		Brightness: []anim.Keyframe{{From: 0, To: 1}, {To: 0}},
	}, p)
	return a.Timer, nil
}
