package stream

import (
	"fmt"
	"math"
	"time"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/easing"
)

type gradientTrailParams struct {
	Gradient    GradientTable `mapstructure:"gradient"`
	TrailLength int           `mapstructure:"trailLength"`
	Saturation  float64       `mapstructure:"saturation"`
	Luminance   float64       `mapstructure:"luminance"`
	Samples     int           `mapstructure:"samples"`
}

// gradientTrail cycles a gradient along the strip. The gradient repeats
// every trail length, and one loop moves it by one trail length.
func gradientTrail(e *anim.Engine, s *Strip, p anim.Params, params map[string]any) (*anim.Timer, error) {
	gp := gradientTrailParams{
		TrailLength: 200,
		Saturation:  1,
		Luminance:   0.05,
		Samples:     12,
	}
	if err := decodeParams(params, &gp); err != nil {
		return nil, err
	}
	if gp.Gradient == nil {
		gp.Gradient = append(GradientTable(nil), Rainbow...)
	}
	if len(gp.Gradient) == 0 || gp.TrailLength < 1 || gp.Samples < 1 {
		return nil, fmt.Errorf("%w: need a gradient, a trail length and samples", ErrBadParams)
	}
	if err := gp.Gradient.Check(); err != nil {
		return nil, err
	}

	trail := float64(gp.TrailLength)
	samples := float64(gp.Samples)
	colors := anim.Func(func(_ anim.Target, i, _ int) any {
		phase := math.Mod(float64(i), trail) / trail
		color := func(j int) string {
			return gp.Gradient.GetColor(phase-float64(j)/samples, gp.Saturation, gp.Luminance).Clamped().Hex()
		}
		keyframes := make([]anim.Keyframe, gp.Samples)
		keyframes[0].From = color(0)
		for j := range keyframes {
			keyframes[j].To = color(j + 1)
		}
		return keyframes
	})

	p = looping(p, 3300*time.Millisecond)
	if p.Ease == nil {
		p.Ease = easing.Linear
	}
	a := e.Animate(s.Pixels(), anim.Props{Color: colors, Brightness: 1}, p)
	return a.Timer, nil
}
