package training

import (
	"time"

	"golang.org/x/time/rate"
)

// Gate lets at most one event through per interval. Checking the gate and
// spending it are separate so that an event which fails afterwards does not
// hold the gate shut.
type Gate struct {
	lim *rate.Limiter
}

// NewGate returns a gate opening once per every. A non-positive interval
// never closes.
func NewGate(every time.Duration) *Gate {
	if every <= 0 {
		return &Gate{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Gate{lim: rate.NewLimiter(rate.Every(every), 1)}
}

// OpenAt reports whether an event at t would pass, without spending the gate.
func (g *Gate) OpenAt(t time.Time) bool {
	return g.lim.Limit() == rate.Inf || g.lim.TokensAt(t) >= 1
}

// SpendAt closes the gate for an interval starting at t.
func (g *Gate) SpendAt(t time.Time) { g.lim.AllowN(t, 1) }
