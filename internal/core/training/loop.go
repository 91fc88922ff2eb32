// Package training drives the throw/rest practice loop: which phase a
// session is in, which pose frames are kept, and when a batch of frames is
// ready for feedback.
package training

import "time"

type Kind string

const (
	Rest  Kind = "rest"
	Throw Kind = "throw"
)

type Phase struct {
	Kind      Kind
	Cycle     int
	Remaining time.Duration
}

// Loop alternates Rest then Throw, starting at Start. A loop with a zero
// throw or rest duration is free-running and always reports Throw.
type Loop struct {
	Throw time.Duration
	Rest  time.Duration
	Start time.Time
}

func (l Loop) FreeRunning() bool { return l.Throw <= 0 || l.Rest <= 0 }

// At returns the phase in effect at t. Times before Start count as Start.
func (l Loop) At(t time.Time) Phase {
	if l.FreeRunning() {
		return Phase{Kind: Throw}
	}
	el := t.Sub(l.Start)
	if el < 0 {
		el = 0
	}
	period := l.Rest + l.Throw
	cycle := int(el / period)
	off := el % period
	if off < l.Rest {
		return Phase{Kind: Rest, Cycle: cycle, Remaining: l.Rest - off}
	}
	return Phase{Kind: Throw, Cycle: cycle, Remaining: period - off}
}

// Next returns when the phase in effect at t ends. Free-running loops never
// change phase and return the zero time.
func (l Loop) Next(t time.Time) time.Time {
	if l.FreeRunning() {
		return time.Time{}
	}
	if t.Before(l.Start) {
		t = l.Start
	}
	return t.Add(l.At(t).Remaining)
}

func (p Phase) same(o Phase) bool { return p.Kind == o.Kind && p.Cycle == o.Cycle }
