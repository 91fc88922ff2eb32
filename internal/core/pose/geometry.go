package pose

import (
	"math"

	"github.com/steveyiyo/pitchcoach-backend/pkg/types"
)

// MediaPipe Pose landmark indices used by the analysis.
const (
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16
	LeftHip       = 23
	RightHip      = 24

	NumLandmarks = 33
)

func Distance(a, b types.Landmark) float64 {
	dx, dy, dz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// AngleBetween returns the angle at vertex formed by a and c, in degrees.
// Degenerate arms yield 0.
func AngleBetween(a, vertex, c types.Landmark) float64 {
	ab := Distance(vertex, a)
	cb := Distance(vertex, c)
	ac := Distance(c, a)
	if ab*cb == 0 {
		return 0
	}
	cos := (ab*ab + cb*cb - ac*ac) / (2 * ab * cb)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}
