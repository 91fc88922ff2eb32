package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron"

	"github.com/steveyiyo/pitchcoach-backend/internal/core/training"
	"github.com/steveyiyo/pitchcoach-backend/internal/log"
	"github.com/steveyiyo/pitchcoach-backend/internal/repo/memory"
	"github.com/steveyiyo/pitchcoach-backend/pkg/types"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrBadSport     = errors.New("unknown sport")
	ErrBadDurations = errors.New("throw and rest durations must not be negative")
)

const (
	Baseball   = "baseball"
	Basketball = "basketball"
)

// Archiver keeps sessions after they leave memory.
type Archiver interface {
	Put(*memory.Session) error
	Get(id string) (*memory.Session, error)
}

type Service struct {
	Repo    *memory.SessionRepo
	Archive Archiver

	TTL       time.Duration
	ThrowTime time.Duration
	RestTime  time.Duration

	lg    *log.Logger
	now   func() time.Time
	onEnd []func(id string)
}

// NewService returns a session service. arch may be nil, in which case
// ended sessions are forgotten.
func NewService(repo *memory.SessionRepo, arch Archiver, ttl, throw, rest time.Duration, lg *log.Logger) *Service {
	return &Service{
		Repo:      repo,
		Archive:   arch,
		TTL:       ttl,
		ThrowTime: throw,
		RestTime:  rest,
		lg:        lg,
		now:       time.Now,
	}
}

// Create starts a session. Zero durations take the configured defaults.
func (s *Service) Create(sport string, throwMs, restMs int64) (*memory.Session, error) {
	switch sport {
	case "":
		sport = Baseball
	case Baseball, Basketball:
	default:
		return nil, ErrBadSport
	}
	if throwMs < 0 || restMs < 0 {
		return nil, ErrBadDurations
	}
	if throwMs == 0 {
		throwMs = s.ThrowTime.Milliseconds()
	}
	if restMs == 0 {
		restMs = s.RestTime.Milliseconds()
	}
	now := s.now()
	sess := &memory.Session{
		ID:        "sess_" + uuid.NewString(),
		CreatedAt: now,
		LastSeen:  now,
		Sport:     sport,
		ThrowMs:   throwMs,
		RestMs:    restMs,
		Feedback:  []types.Feedback{},
	}
	s.Repo.Save(sess)
	s.lg.Info("session created", "session_id", sess.ID, "sport", sport, "throw_ms", throwMs, "rest_ms", restMs)
	return sess, nil
}

func (s *Service) Get(id string) (*memory.Session, bool) {
	return s.Repo.Get(id)
}

// Loop returns the practice loop for sess starting at start.
func (s *Service) Loop(sess *memory.Session, start time.Time) training.Loop {
	return training.Loop{
		Throw: time.Duration(sess.ThrowMs) * time.Millisecond,
		Rest:  time.Duration(sess.RestMs) * time.Millisecond,
		Start: start,
	}
}

func (s *Service) Summary(id string) (types.SummaryResp, bool) {
	active := true
	sess, ok := s.Repo.Get(id)
	if !ok {
		if s.Archive == nil {
			return types.SummaryResp{}, false
		}
		var err error
		if sess, err = s.Archive.Get(id); err != nil {
			return types.SummaryResp{}, false
		}
		active = false
	}
	fb := sess.Feedback
	if fb == nil {
		fb = []types.Feedback{}
	}
	return types.SummaryResp{
		SessionID:        sess.ID,
		Sport:            sess.Sport,
		Active:           active,
		FramesAnalyzed:   sess.Frames,
		FramesSuppressed: sess.Suppressed,
		AudioClips:       sess.AudioClips,
		Feedback:         fb,
	}, true
}

// OnEnd registers f to run after a session is ended or swept. Hooks must
// be registered before the service is shared.
func (s *Service) OnEnd(f func(id string)) {
	s.onEnd = append(s.onEnd, f)
}

// End removes id from memory and archives it.
func (s *Service) End(id string) error {
	sess, ok := s.Repo.Delete(id)
	if !ok {
		return ErrNotFound
	}
	sess.EndedAt = s.now()
	s.lg.Info("session ended", "session_id", id, "frames", sess.Frames, "feedback", len(sess.Feedback))
	for _, f := range s.onEnd {
		f(id)
	}
	if s.Archive == nil {
		return nil
	}
	return s.Archive.Put(sess)
}

// Sweep ends sessions idle for longer than TTL and reports how many.
func (s *Service) Sweep() int {
	if s.TTL <= 0 {
		return 0
	}
	n := 0
	for _, id := range s.Repo.IdleSince(s.now().Add(-s.TTL)) {
		if err := s.End(id); err != nil {
			s.lg.Warn("sweep: end session", "session_id", id, "error", err)
			continue
		}
		n++
	}
	if n > 0 {
		s.lg.Info("swept idle sessions", "count", n)
	}
	return n
}

// StartSweeper runs Sweep every minute until the returned stop is called.
func (s *Service) StartSweeper() (stop func(), err error) {
	c := cron.New()
	if err := c.AddFunc("@every 1m", func() { s.Sweep() }); err != nil {
		return nil, err
	}
	c.Start()
	return c.Stop, nil
}
