// Package coach turns captured throws into spoken-style feedback.
package coach

import (
	"context"
	"time"

	"github.com/steveyiyo/pitchcoach-backend/internal/core/pose"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/tips"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/training"
	"github.com/steveyiyo/pitchcoach-backend/internal/log"
	"github.com/steveyiyo/pitchcoach-backend/pkg/types"
)

type Advisor interface {
	Advise(ctx context.Context, prompt string) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mime string) (string, error)
}

// Service asks the Advisor for feedback and falls back to rule-based tips
// when there is none or it fails. Advisor and Transcriber may be nil.
type Service struct {
	Advisor     Advisor
	Transcriber Transcriber
	Tips        *tips.Engine
	lg          *log.Logger
	now         func() time.Time
}

func NewService(a Advisor, tr Transcriber, e *tips.Engine, lg *log.Logger) *Service {
	return &Service{Advisor: a, Transcriber: tr, Tips: e, lg: lg, now: time.Now}
}

// Feedback analyzes batch and coaches on it. utterance is what the athlete
// said recently, if anything.
func (s *Service) Feedback(ctx context.Context, batch training.Batch, utterance string) (*types.Feedback, error) {
	m, err := pose.AnalyzeThrow(batch)
	if err != nil {
		return nil, err
	}
	if s.Advisor == nil {
		return s.Tips.DecideTip(m), nil
	}
	text, err := s.Advisor.Advise(ctx, pose.Prompt(m, utterance))
	if err != nil {
		s.lg.Warn("advisor failed, using rule tip", "error", err, "frames", m.Frames)
		return s.Tips.DecideTip(m), nil
	}
	return &types.Feedback{
		T:        s.now().UnixMilli(),
		Text:     text,
		Priority: "high",
		Reason:   "gemini",
		Metrics:  &m,
	}, nil
}

// Transcribe returns the speech in clip, or "" when no transcriber is set.
func (s *Service) Transcribe(ctx context.Context, clip []byte, mime string) (string, error) {
	if s.Transcriber == nil || len(clip) == 0 {
		return "", nil
	}
	return s.Transcriber.Transcribe(ctx, clip, mime)
}
