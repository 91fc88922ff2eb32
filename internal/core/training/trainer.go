package training

import (
	"sync"
	"time"

	"github.com/steveyiyo/pitchcoach-backend/pkg/types"
)

// Step is the outcome of advancing a Trainer.
type Step struct {
	Phase Phase

	// Changed is set when Phase differs from the previously observed one.
	Changed bool

	// Accepted is set when the frame passed to AddFrame was buffered.
	Accepted bool

	// Batches are ready for analysis: a throw that just ended, a full
	// buffer, or both.
	Batches []Batch
}

// Trainer tracks one athlete's practice loop. Frames are only kept during
// throw periods; leaving a throw flushes what it captured.
type Trainer struct {
	mu         sync.Mutex
	loop       Loop
	batch      *Batcher
	minFrames  int
	last       Phase
	started    bool
	suppressed int64
}

func NewTrainer(loop Loop, batchSize, minFrames int) *Trainer {
	if minFrames < 1 {
		minFrames = 1
	}
	return &Trainer{
		loop:      loop,
		batch:     NewBatcher(batchSize),
		minFrames: minFrames,
	}
}

func (t *Trainer) Loop() Loop { return t.loop }

// Observe advances the phase clock to now.
func (t *Trainer) Observe(now time.Time) Step {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.observe(now)
}

func (t *Trainer) observe(now time.Time) Step {
	cur := t.loop.At(now)
	if !t.started {
		t.started = true
		t.last = cur
		return Step{Phase: cur, Changed: true}
	}
	if cur.same(t.last) {
		return Step{Phase: cur}
	}
	st := Step{Phase: cur, Changed: true}
	if t.last.Kind == Throw {
		frames := t.batch.Flush()
		if len(frames) >= t.minFrames {
			st.Batches = append(st.Batches, frames)
		}
	}
	t.last = cur
	return st
}

// AddFrame observes now and then offers f to the current phase.
func (t *Trainer) AddFrame(now time.Time, f []types.Landmark) Step {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.observe(now)
	if st.Phase.Kind != Throw {
		t.suppressed++
		return st
	}
	st.Accepted = true
	if full, ok := t.batch.Add(f); ok {
		st.Batches = append(st.Batches, full)
	}
	return st
}

// Clear drops buffered frames.
func (t *Trainer) Clear() {
	t.mu.Lock()
	t.batch.Clear()
	t.mu.Unlock()
}

func (t *Trainer) Buffered() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.batch.Len()
}

func (t *Trainer) Suppressed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.suppressed
}
