package stream

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"

	"github.com/matt-g-everett/ledmotion/anim"
)

// Preview draws a Strip on a terminal as a line of coloured blocks, redrawn
// in place after engine ticks.
type Preview struct {
	out   *termenv.Output
	strip *Strip
	every time.Duration

	mu   sync.Mutex
	last time.Duration
}

// NewPreview creates a Preview writing to w, redrawing at most once per
// every of engine time.
func NewPreview(w io.Writer, strip *Strip, every time.Duration, opts ...termenv.OutputOption) *Preview {
	p := new(Preview)
	p.out = termenv.NewOutput(w, opts...)
	p.strip = strip
	p.every = every
	p.last = -every
	return p
}

// Line renders the strip as one line of blocks.
func (p *Preview) Line() string {
	f := p.strip.Frame()
	var b strings.Builder
	for i := 0; i < f.Len(); i++ {
		c := f.Pixel(i).Clamped()
		b.WriteString(p.out.String("█").Foreground(p.out.Color(c.Hex())).String())
	}
	return b.String()
}

func (p *Preview) Observe(stats anim.TickStats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if stats.At-p.last < p.every {
		return
	}
	p.last = stats.At
	io.WriteString(p.out, "\r"+p.Line())
}
