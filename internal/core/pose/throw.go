package pose

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/steveyiyo/pitchcoach-backend/pkg/types"
)

var (
	ErrNoFrames   = errors.New("pose: no frames")
	ErrShortFrame = errors.New("pose: frame is missing landmarks")
)

// Thresholds a sound throwing motion is expected to meet.
const (
	CockedElbowMaxDeg   = 100.0
	ExtendedElbowMinDeg = 150.0
	StableHipMaxDrift   = 0.2
)

// Fault names a throwing expectation that a batch failed.
type Fault string

const (
	FaultElbowNotCocked Fault = "elbow_not_cocked"
	FaultNoExtension    Fault = "no_extension"
	FaultNoWristSnap    Fault = "no_wrist_snap"
	FaultHipDrift       Fault = "hip_drift"
)

// CheckFrame reports an error wrapping ErrShortFrame when pts lacks a
// landmark the throw analysis reads.
func CheckFrame(pts []types.Landmark) error {
	if len(pts) <= RightHip {
		return fmt.Errorf("frame has %d landmarks, want at least %d: %w", len(pts), RightHip+1, ErrShortFrame)
	}
	return nil
}

// AnalyzeThrow summarizes the right-arm throwing motion across frames.
func AnalyzeThrow(frames [][]types.Landmark) (types.ThrowMetrics, error) {
	if len(frames) == 0 {
		return types.ThrowMetrics{}, ErrNoFrames
	}
	m := types.ThrowMetrics{
		Frames:      len(frames),
		MinElbowDeg: math.Inf(1),
		MaxElbowDeg: math.Inf(-1),
	}
	var firstWristY, lastWristY float64
	for i, pts := range frames {
		if len(pts) <= RightHip {
			return types.ThrowMetrics{}, fmt.Errorf("frame %d has %d landmarks: %w", i, len(pts), ErrShortFrame)
		}
		elbow := AngleBetween(pts[RightShoulder], pts[RightElbow], pts[RightWrist])
		m.MinElbowDeg = math.Min(m.MinElbowDeg, elbow)
		m.MaxElbowDeg = math.Max(m.MaxElbowDeg, elbow)

		if i == 0 {
			firstWristY = pts[RightWrist].Y
		}
		lastWristY = pts[RightWrist].Y

		drift := math.Abs(pts[RightHip].X - pts[LeftHip].X)
		if i == 0 || drift > m.MaxHipDriftX {
			m.MaxHipDriftX = drift
		}
	}
	m.WristDeltaY = lastWristY - firstWristY
	return m, nil
}

// Faults lists the expectations m fails, in a fixed order.
func Faults(m types.ThrowMetrics) []Fault {
	var out []Fault
	if m.MinElbowDeg >= CockedElbowMaxDeg {
		out = append(out, FaultElbowNotCocked)
	}
	if m.MaxElbowDeg <= ExtendedElbowMinDeg {
		out = append(out, FaultNoExtension)
	}
	if m.WristDeltaY >= 0 {
		out = append(out, FaultNoWristSnap)
	}
	if m.MaxHipDriftX >= StableHipMaxDrift {
		out = append(out, FaultHipDrift)
	}
	return out
}

// Prompt renders m as instructions for the coaching model.
func Prompt(m types.ThrowMetrics, utterance string) string {
	var b strings.Builder
	b.WriteString("Throw Analysis:\n\n")
	fmt.Fprintf(&b, "- Minimum elbow angle during throw: %.2f degrees (Expected: < %.0f degrees for cocking phase)\n",
		m.MinElbowDeg, CockedElbowMaxDeg)
	fmt.Fprintf(&b, "- Maximum elbow angle during throw: %.2f degrees (Expected: > %.0f degrees for full extension)\n",
		m.MaxElbowDeg, ExtendedElbowMinDeg)
	fmt.Fprintf(&b, "- Wrist vertical movement (end - start): %.4f units (Expected: negative value indicating wrist snap upward)\n",
		m.WristDeltaY)
	fmt.Fprintf(&b, "- Maximum hip drift (side to side): %.4f units (Expected: < %.1f units for stable core)\n",
		m.MaxHipDriftX, StableHipMaxDrift)
	if u := strings.TrimSpace(utterance); u != "" {
		fmt.Fprintf(&b, "\nThe athlete said: %q\n", u)
	}
	b.WriteString("\nYou are a pitching coach who just watched this throw. " +
		"In one or two short sentences, tell the athlete what to improve on the next throw. " +
		"Speak as if you saw the throw yourself; do not mention the numbers.")
	return b.String()
}
