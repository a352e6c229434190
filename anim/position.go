package anim

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Position places a child in a timeline. It is one of:
//
//	""          the end of the timeline
//	"250ms"     an absolute offset; a bare number is milliseconds
//	"intro"     a label
//	"<"         the end of the previous child
//	"<<"        the start of the previous child
//	"+=100ms"   relative to the end of the timeline ("-=" and "*=" too)
//	"intro+=1s" relative to a label
//	"<+=50"     relative to the previous child
type Position string

// At returns the Position of an absolute offset.
func At(d time.Duration) Position {
	return Position(d.String())
}

// resolvePosition converts pos to an offset in the timeline's iteration time.
func (t *Timer) resolvePosition(pos Position) time.Duration {
	end := t.iterationDuration
	if end <= minDuration {
		end = 0
	}
	s := strings.TrimSpace(string(pos))
	if s == "" {
		return end
	}
	if d, ok := parseOffset(s); ok {
		return d
	}

	prevOffset, hasSibling := t.previousChildOffset(s)

	if i := strings.Index(s, "="); i > 0 {
		switch op := s[i-1]; op {
		case '+', '-', '*':
			left, right := s[:i-1], s[i+1:]
			base := end
			if hasSibling {
				base = prevOffset
			} else if at, ok := t.labels[left]; ok {
				base = at
			}
			if op == '*' {
				k, err := strconv.ParseFloat(strings.TrimSpace(right), 64)
				if err != nil {
					return base
				}
				return scale(base, k)
			}
			d, _ := parseOffset(strings.TrimSpace(right))
			if op == '-' {
				return base - d
			}
			return base + d
		}
	}

	if hasSibling {
		return prevOffset
	}
	if at, ok := t.labels[s]; ok {
		return at
	}
	t.engine.log.Debug("unknown timeline position", "position", s)
	return end
}

func (t *Timer) previousChildOffset(s string) (time.Duration, bool) {
	if !strings.HasPrefix(s, "<") {
		return 0, false
	}
	if len(t.children) == 0 {
		return 0, true
	}
	prev := t.children[len(t.children)-1]
	offset := prev.offset + prev.delay
	if strings.HasPrefix(s, "<<") {
		return offset, true
	}
	return offset + prev.duration, true
}

// parseOffset reads "250" as milliseconds, or any time.ParseDuration form.
func parseOffset(s string) (time.Duration, bool) {
	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(ms) || math.IsInf(ms, 0) {
			return 0, false
		}
		return time.Duration(ms * float64(time.Millisecond)), true
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, true
	}
	return 0, false
}
