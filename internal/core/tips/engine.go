package tips

import (
	"time"

	"github.com/steveyiyo/pitchcoach-backend/internal/core/pose"
	"github.com/steveyiyo/pitchcoach-backend/pkg/types"
)

// Engine produces canned coaching cues from throw metrics. It stands in
// when no language model is reachable.
type Engine struct {
	now func() time.Time
}

func New() *Engine { return &Engine{now: time.Now} }

var cues = map[pose.Fault]string{
	pose.FaultElbowNotCocked: "Bring the ball back further so your elbow bends well past ninety before you come forward.",
	pose.FaultNoExtension:    "Reach out toward the target and let your arm fully extend through release.",
	pose.FaultNoWristSnap:    "Finish with a snap of the wrist, fingers driving down through the ball.",
	pose.FaultHipDrift:       "Keep your hips square and quiet; let your core stay stable as you throw.",
}

// DecideTip returns a cue for the first fault in m, or encouragement when
// the throw meets every expectation.
func (e *Engine) DecideTip(m types.ThrowMetrics) *types.Feedback {
	mc := m
	fb := &types.Feedback{
		T:       e.now().UnixMilli(),
		Metrics: &mc,
	}
	faults := pose.Faults(m)
	if len(faults) == 0 {
		fb.Text = "Nice throw. Keep that same rhythm on the next one."
		fb.Priority = "low"
		fb.Reason = "no_fault"
		return fb
	}
	fb.Text = cues[faults[0]]
	fb.Priority = "high"
	fb.Reason = string(faults[0])
	return fb
}
