// Package sink holds the places rendered animation values can be written to.
package sink

import (
	"sync"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/value"
)

type key struct {
	target   anim.Target
	property string
}

// Store keeps the last value written for every target property in memory.
// It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	values map[key]value.Value
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := new(Store)
	s.values = make(map[key]value.Value)
	return s
}

// Set seeds a property with a raw value, as Decompose understands it.
func (s *Store) Set(target anim.Target, property string, raw any) error {
	v, err := value.Decompose(raw)
	if err != nil {
		return err
	}
	s.Write(target, property, v)
	return nil
}

// Get returns the current value of a property.
func (s *Store) Get(target anim.Target, property string) (value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key{target, property}]
	if !ok {
		return value.Value{}, false
	}
	return v.Clone(), true
}

func (s *Store) Read(target anim.Target, property string) (any, bool) {
	v, ok := s.Get(target, property)
	if !ok {
		return nil, false
	}
	return v, true
}

func (s *Store) Write(target anim.Target, property string, v value.Value) {
	s.mu.Lock()
	s.values[key{target, property}] = v.Clone()
	s.mu.Unlock()
}

// Properties returns a copy of every property written for target.
func (s *Store) Properties(target anim.Target) map[string]value.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]value.Value)
	for k, v := range s.values {
		if k.target == target {
			out[k.property] = v.Clone()
		}
	}
	return out
}

// Multi fans writes out to several sinks. Reads come from the first sink
// that knows the property.
type Multi []anim.Sink

func (m Multi) Read(target anim.Target, property string) (any, bool) {
	for _, s := range m {
		if v, ok := s.Read(target, property); ok {
			return v, true
		}
	}
	return nil, false
}

func (m Multi) Write(target anim.Target, property string, v value.Value) {
	for _, s := range m {
		s.Write(target, property, v)
	}
}

// ConvertUnit asks every member that can convert units.
func (m Multi) ConvertUnit(target any, property string, n float64, from, to string) (float64, bool) {
	for _, s := range m {
		if uc, ok := s.(value.UnitConverter); ok {
			if v, ok := uc.ConvertUnit(target, property, n, from, to); ok {
				return v, true
			}
		}
	}
	return n, false
}

// Observe forwards engine frames to members that observe them.
func (m Multi) Observe(stats anim.TickStats) {
	for _, s := range m {
		if o, ok := s.(anim.Observer); ok {
			o.Observe(stats)
		}
	}
}
