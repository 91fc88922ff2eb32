package pose

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/steveyiyo/pitchcoach-backend/pkg/types"
)

func lm(x, y, z float64) types.Landmark { return types.Landmark{X: x, Y: y, Z: z} }

func TestAngleBetween(t *testing.T) {
	tests := []struct {
		name    string
		a, v, c types.Landmark
		want    float64
	}{
		{"right angle", lm(1, 0, 0), lm(0, 0, 0), lm(0, 1, 0), 90},
		{"straight", lm(-1, 0, 0), lm(0, 0, 0), lm(1, 0, 0), 180},
		{"folded", lm(1, 0, 0), lm(0, 0, 0), lm(2, 0, 0), 0},
		{"45 in 3d", lm(0, 0, 1), lm(0, 0, 0), lm(0, 1, 1), 45},
		{"degenerate arm", lm(0, 0, 0), lm(0, 0, 0), lm(1, 1, 0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AngleBetween(tt.a, tt.v, tt.c)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("AngleBetween = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalyzeThrow(t *testing.T) {
	pts := func(wristX, wristY, hip float64) []types.Landmark {
		p := make([]types.Landmark, NumLandmarks)
		p[RightShoulder] = lm(0, 1, 0)
		p[RightElbow] = lm(0, 0, 0)
		p[RightWrist] = lm(wristX, wristY, 0)
		p[LeftHip] = lm(0, 2, 0)
		p[RightHip] = lm(hip, 2, 0)
		return p
	}
	frames := [][]types.Landmark{
		pts(1, 0, 0.10),
		pts(0, -1, 0.25),
		pts(1, -0.5, 0.05),
	}
	m, err := AnalyzeThrow(frames)
	if err != nil {
		t.Fatal(err)
	}
	if m.Frames != 3 {
		t.Errorf("Frames = %d", m.Frames)
	}
	if math.Abs(m.MinElbowDeg-90) > 1e-6 {
		t.Errorf("MinElbowDeg = %v, want 90", m.MinElbowDeg)
	}
	if math.Abs(m.MaxElbowDeg-180) > 1e-6 {
		t.Errorf("MaxElbowDeg = %v, want 180", m.MaxElbowDeg)
	}
	if math.Abs(m.WristDeltaY-(-0.5)) > 1e-9 {
		t.Errorf("WristDeltaY = %v, want -0.5", m.WristDeltaY)
	}
	if math.Abs(m.MaxHipDriftX-0.25) > 1e-9 {
		t.Errorf("MaxHipDriftX = %v, want 0.25", m.MaxHipDriftX)
	}

	faults := Faults(m)
	if len(faults) != 1 || faults[0] != FaultHipDrift {
		t.Errorf("Faults = %v, want [hip_drift]", faults)
	}
}

func TestAnalyzeThrowErrors(t *testing.T) {
	if _, err := AnalyzeThrow(nil); !errors.Is(err, ErrNoFrames) {
		t.Errorf("empty batch: err = %v, want ErrNoFrames", err)
	}
	short := [][]types.Landmark{make([]types.Landmark, NumLandmarks), make([]types.Landmark, 17)}
	if _, err := AnalyzeThrow(short); !errors.Is(err, ErrShortFrame) {
		t.Errorf("short frame: err = %v, want ErrShortFrame", err)
	}
}

func TestCheckFrame(t *testing.T) {
	tests := []struct {
		n    int
		fail bool
	}{
		{0, true},
		{RightHip, true},
		{RightHip + 1, false},
		{NumLandmarks, false},
	}
	for _, tt := range tests {
		err := CheckFrame(make([]types.Landmark, tt.n))
		if got := errors.Is(err, ErrShortFrame); got != tt.fail {
			t.Errorf("CheckFrame(%d landmarks) = %v, want short %v", tt.n, err, tt.fail)
		}
	}
}

func TestFaultsAll(t *testing.T) {
	m := types.ThrowMetrics{MinElbowDeg: 120, MaxElbowDeg: 140, WristDeltaY: 0.1, MaxHipDriftX: 0.3}
	got := Faults(m)
	want := []Fault{FaultElbowNotCocked, FaultNoExtension, FaultNoWristSnap, FaultHipDrift}
	if len(got) != len(want) {
		t.Fatalf("Faults = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Faults[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPrompt(t *testing.T) {
	m := types.ThrowMetrics{MinElbowDeg: 85.123, MaxElbowDeg: 170, WristDeltaY: -0.05, MaxHipDriftX: 0.1}
	p := Prompt(m, "")
	for _, want := range []string{"85.12 degrees", "170.00 degrees", "-0.0500 units", "0.1000 units"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
	if strings.Contains(p, "athlete said") {
		t.Error("prompt should not mention an utterance")
	}
	if p := Prompt(m, "  was my arm late? "); !strings.Contains(p, `The athlete said: "was my arm late?"`) {
		t.Errorf("prompt missing utterance:\n%s", p)
	}
}
