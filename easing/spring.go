package easing

import (
	"math"
	"time"

	"github.com/matt-g-everett/ledmotion/util"
)

const (
	springTimeStep      = 0.02 // seconds
	springRestThreshold = 0.0005
	springRestDuration  = 0.2 // seconds
	springMaxDuration   = 60.0
)

// SpringParams describe a damped harmonic oscillator.
type SpringParams struct {
	Mass      float64
	Stiffness float64
	Damping   float64
	Velocity  float64
}

// DefaultSpring is a gently damped spring that settles in about a second.
var DefaultSpring = SpringParams{Mass: 1, Stiffness: 100, Damping: 10}

// Spring is an easing driven by a closed-form spring solution. Its duration
// is the time the spring takes to come to rest, so it implements Settler.
type Spring struct {
	mass, stiffness, damping, velocity float64

	w0   float64 // undamped angular frequency
	zeta float64 // damping ratio
	wd   float64 // damped angular frequency
	b    float64

	solverDuration float64 // seconds
	duration       time.Duration
}

// NewSpring clamps the parameters to a stable range and solves for the
// settling duration.
func NewSpring(p SpringParams) *Spring {
	s := new(Spring)
	s.mass = util.Clamp(orDefault(p.Mass, DefaultSpring.Mass), 1, 1e4)
	s.stiffness = util.Clamp(orDefault(p.Stiffness, DefaultSpring.Stiffness), 1, 1e4)
	s.damping = util.Clamp(orDefault(p.Damping, DefaultSpring.Damping), 0.1, 1e3)
	s.velocity = util.Clamp(p.Velocity, -1e4, 1e4)
	s.compute()
	return s
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// Params returns the clamped parameters.
func (s *Spring) Params() SpringParams {
	return SpringParams{Mass: s.mass, Stiffness: s.stiffness, Damping: s.damping, Velocity: s.velocity}
}

func (s *Spring) solve(t float64) float64 {
	var x float64
	if s.zeta < 1 {
		x = math.Exp(-t*s.zeta*s.w0) * (math.Cos(s.wd*t) + s.b*math.Sin(s.wd*t))
	} else {
		x = (1 + s.b*t) * math.Exp(-t*s.w0)
	}
	return 1 - x
}

func (s *Spring) compute() {
	s.w0 = util.Clamp(math.Sqrt(s.stiffness/s.mass), 1e-11, 1e3)
	s.zeta = s.damping / (2 * math.Sqrt(s.stiffness*s.mass))
	if s.zeta < 1 {
		s.wd = s.w0 * math.Sqrt(1-s.zeta*s.zeta)
		s.b = (s.zeta*s.w0 - s.velocity) / s.wd
	} else {
		s.wd = 0
		s.b = -s.velocity + s.w0
	}

	maxRestSteps := int(springRestDuration / springTimeStep)
	maxIterations := int(springMaxDuration / springTimeStep)
	solverTime := 0.0
	restSteps := 0
	for i := 0; restSteps < maxRestSteps && i < maxIterations; i++ {
		if math.Abs(1-s.solve(solverTime)) < springRestThreshold {
			restSteps++
		} else {
			restSteps = 0
		}
		s.solverDuration = solverTime
		solverTime += springTimeStep
	}
	s.duration = time.Duration(math.Round(s.solverDuration*1000)) * time.Millisecond
}

// Ease evaluates the spring at progress t of its settling duration.
func (s *Spring) Ease(t float64) float64 {
	if t == 0 || t == 1 {
		return t
	}
	return s.solve(t * s.solverDuration)
}

// SettlingDuration is how long the spring takes to come to rest.
func (s *Spring) SettlingDuration() time.Duration {
	return s.duration
}
