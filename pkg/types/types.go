package types

// Landmark is one pose keypoint as produced by MediaPipe Pose.
// Coordinates are normalized to the frame; Z is relative depth.
type Landmark struct {
	X          float64 `json:"x" msgpack:"x"`
	Y          float64 `json:"y" msgpack:"y"`
	Z          float64 `json:"z" msgpack:"z"`
	Visibility float64 `json:"visibility,omitempty" msgpack:"v,omitempty"`
}

type CreateSessionReq struct {
	Sport   string `json:"sport"`
	ThrowMs int64  `json:"throw_ms"`
	RestMs  int64  `json:"rest_ms"`
}

type CreateSessionResp struct {
	SessionID string `json:"session_id"`
	WSURL     string `json:"ws_url"`
	ThrowMs   int64  `json:"throw_ms"`
	RestMs    int64  `json:"rest_ms"`
}

type FramesReq struct {
	SessionID string     `json:"session_id"`
	Points    []Landmark `json:"points"`
}

// StreamMsg is any inbound message on the training stream. Points is
// nil for control messages.
type StreamMsg struct {
	Type   string     `json:"type"`
	Points []Landmark `json:"points"`
	Data   string     `json:"data"`
	Mime   string     `json:"mime"`
}

type ThrowMetrics struct {
	Frames       int     `json:"frames" msgpack:"frames"`
	MinElbowDeg  float64 `json:"min_elbow_deg" msgpack:"min_elbow"`
	MaxElbowDeg  float64 `json:"max_elbow_deg" msgpack:"max_elbow"`
	WristDeltaY  float64 `json:"wrist_delta_y" msgpack:"wrist_dy"`
	MaxHipDriftX float64 `json:"max_hip_drift_x" msgpack:"hip_drift"`
}

type Feedback struct {
	T        int64         `json:"t" msgpack:"t"`
	Text     string        `json:"text" msgpack:"text"`
	Priority string        `json:"priority" msgpack:"priority"`
	Reason   string        `json:"reason,omitempty" msgpack:"reason,omitempty"`
	Metrics  *ThrowMetrics `json:"metrics,omitempty" msgpack:"metrics,omitempty"`
}

type TTSReq struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Voice     string `json:"voice"`
}

type TTSResp struct {
	AudioURL   string `json:"audio_url"`
	DurationMs int64  `json:"duration_ms"`
}

type SummaryResp struct {
	SessionID        string     `json:"session_id"`
	Sport            string     `json:"sport"`
	Active           bool       `json:"active"`
	FramesAnalyzed   int64      `json:"frames_analyzed"`
	FramesSuppressed int64      `json:"frames_suppressed"`
	AudioClips       int64      `json:"audio_clips"`
	Feedback         []Feedback `json:"feedback"`
}

type RealtimeSessionResp struct {
	SessionID string `json:"session_id"`
	ModelName string `json:"model_name"`
	Voice     string `json:"voice"`
	WSURL     string `json:"ws_url"`
}
