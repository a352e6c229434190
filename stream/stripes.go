package stream

import (
	"fmt"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/stream/stripe"
)

type stripesParams struct {
	Palette []string      `mapstructure:"palette"`
	Min     int           `mapstructure:"min"`
	Max     int           `mapstructure:"max"`
	Wipe    time.Duration `mapstructure:"wipe"`
	Fade    time.Duration `mapstructure:"fade"`
	Hold    time.Duration `mapstructure:"hold"`
	Rounds  int           `mapstructure:"rounds"`
	Seed    int64         `mapstructure:"seed"`
}

// stripes wipes random stripes of colour down the strip, one stripe after
// another, holding each complete pattern before the next round paints over
// it.
func stripes(e *anim.Engine, s *Strip, p anim.Params, params map[string]any) (*anim.Timer, error) {
	sp := stripesParams{
		Min:    20,
		Max:    80,
		Wipe:   5 * time.Millisecond,
		Fade:   300 * time.Millisecond,
		Hold:   2 * time.Second,
		Rounds: 3,
		Seed:   1,
	}
	if err := decodeParams(params, &sp); err != nil {
		return nil, err
	}
	if sp.Rounds < 1 {
		return nil, fmt.Errorf("%w: rounds must be positive", ErrBadParams)
	}
	palette := make([]colorful.Color, len(sp.Palette))
	for i, hex := range sp.Palette {
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("%w: palette: %v", ErrBadParams, err)
		}
		palette[i] = c
	}

	if p.Loop == 0 {
		p.Loop = anim.Infinite
	}
	gen := stripe.NewRandomStripeGenerator(palette, sp.Min, sp.Max, sp.Seed)
	tl := e.Timeline(anim.TimelineParams{Params: p})
	for round := 0; round < sp.Rounds; round++ {
		var roundStart time.Duration
		pos := anim.Position("")
		for start := 0; start < s.Len(); {
			st := gen.CreateStripe()
			a := tl.Add(s.Range(start, start+st.Length), anim.Props{Color: st.Colour.Hex(), Brightness: 1}, anim.Params{
				Duration:  sp.Fade,
				DelayFunc: anim.Stagger(sp.Wipe, anim.StaggerParams{}),
			}, pos)
			if start == 0 {
				roundStart = a.Offset()
			}
			start += st.Length
			pos = anim.At(roundStart + time.Duration(start)*sp.Wipe)
		}
		tl.AddTimer(anim.Params{Duration: sp.Hold}, "")
	}
	return tl.Timer, nil
}
