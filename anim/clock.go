package anim

import (
	"math"
	"sync"
	"time"
)

const (
	// minDuration stands in for zero wherever a duration divides.
	minDuration = time.Nanosecond
	// maxDuration stands in for infinity.
	maxDuration = time.Duration(1e18)

	maxFPS = 120.0
	minFPS = 1e-9
)

// Clock is the wall time source of an Engine.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a ManualClock set to an arbitrary fixed instant.
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type tickMode int

const (
	tickNone tickMode = iota
	tickAuto
	tickForce
)

// frameClock throttles ticks to a frame rate and tracks elapsed time in the
// time base of whoever owns it.
type frameClock struct {
	deltaTime     time.Duration
	elapsedTime   time.Duration
	startTime     time.Duration
	lastTime      time.Duration
	scheduledTime time.Duration
	frameDuration time.Duration
	fps           float64
	speed         float64
}

func newFrameClock(fps, speed float64, start time.Duration) frameClock {
	c := frameClock{
		elapsedTime:   start,
		startTime:     start,
		lastTime:      start,
		scheduledTime: start,
	}
	c.setFPS(fps)
	c.setSpeed(speed)
	return c
}

// requestTick reports whether at least one frame has elapsed since the last
// processed frame. The schedule advances by at least one frame, skipping
// ahead when the real gap is larger so missed frames are not replayed.
func (c *frameClock) requestTick(now time.Duration) tickMode {
	c.elapsedTime = now
	if now < c.scheduledTime {
		return tickNone
	}
	gap := now - c.scheduledTime
	if gap < c.frameDuration {
		gap = c.frameDuration
	}
	c.scheduledTime += gap
	return tickAuto
}

func (c *frameClock) computeDeltaTime(now time.Duration) time.Duration {
	c.deltaTime = now - c.lastTime
	c.lastTime = now
	return c.deltaTime
}

func (c *frameClock) setFPS(fps float64) {
	if fps < minFPS || math.IsNaN(fps) {
		fps = minFPS
	}
	prev := c.frameDuration
	c.fps = fps
	c.frameDuration = frameDurationFor(fps)
	c.scheduledTime += c.frameDuration - prev
}

func (c *frameClock) setSpeed(speed float64) {
	if speed < minFPS || math.IsNaN(speed) {
		speed = minFPS
	}
	c.speed = speed
}

func frameDurationFor(fps float64) time.Duration {
	d := math.Round(float64(time.Second) / fps)
	if d > float64(maxDuration) {
		return maxDuration
	}
	return time.Duration(d)
}

// FPS returns the frame rate cap.
func (c *frameClock) FPS() float64 { return c.fps }

// Speed returns the playback rate.
func (c *frameClock) Speed() float64 { return c.speed }

// DeltaTime returns the time between the last two processed frames.
func (c *frameClock) DeltaTime() time.Duration { return c.deltaTime }
