package anim

import (
	"github.com/matt-g-everett/ledmotion/value"
)

// Sink is where rendered values go. Read reports the current value of a
// target property, or false when it has none; the engine then animates from
// zero.
type Sink interface {
	Read(target Target, property string) (any, bool)
	Write(target Target, property string, v value.Value)
}

// Observer is notified after every processed engine frame.
type Observer interface {
	Observe(TickStats)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(TickStats)

func (f ObserverFunc) Observe(s TickStats) { f(s) }

type nopSink struct{}

func (nopSink) Read(Target, string) (any, bool) { return nil, false }
func (nopSink) Write(Target, string, value.Value) {}
