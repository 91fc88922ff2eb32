package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/steveyiyo/pitchcoach-backend/internal/core/training"
	"github.com/steveyiyo/pitchcoach-backend/internal/log"
	"github.com/steveyiyo/pitchcoach-backend/internal/repo/archive"
	"github.com/steveyiyo/pitchcoach-backend/internal/repo/memory"
	"github.com/steveyiyo/pitchcoach-backend/pkg/types"
)

var t0 = time.Date(2025, 4, 12, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T, arch Archiver) *Service {
	s := NewService(memory.NewSessionRepo(), arch, 30*time.Minute, time.Second, 5*time.Second, log.Discard())
	s.now = func() time.Time { return t0 }
	return s
}

func TestCreate(t *testing.T) {
	s := newService(t, nil)

	sess, err := s.Create("", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(sess.ID, "sess_") || sess.Sport != Baseball {
		t.Errorf("session = %+v", sess)
	}
	if sess.ThrowMs != 1000 || sess.RestMs != 5000 {
		t.Errorf("durations = %d/%d, want defaults", sess.ThrowMs, sess.RestMs)
	}

	bb, err := s.Create(Basketball, 2000, 3000)
	if err != nil || bb.ThrowMs != 2000 || bb.RestMs != 3000 {
		t.Errorf("basketball = %+v, %v", bb, err)
	}

	if _, err := s.Create("cricket", 0, 0); !errors.Is(err, ErrBadSport) {
		t.Errorf("err = %v, want ErrBadSport", err)
	}
	if _, err := s.Create(Baseball, -1, 0); !errors.Is(err, ErrBadDurations) {
		t.Errorf("err = %v, want ErrBadDurations", err)
	}
}

func TestLoop(t *testing.T) {
	s := newService(t, nil)
	sess, _ := s.Create(Baseball, 1500, 2500)
	l := s.Loop(sess, t0)
	if l.Throw != 1500*time.Millisecond || l.Rest != 2500*time.Millisecond || !l.Start.Equal(t0) {
		t.Errorf("Loop = %+v", l)
	}
	if l.At(t0.Add(3*time.Second)).Kind != training.Throw {
		t.Error("expected throw phase 3s in")
	}
}

func TestSummaryLiveAndArchived(t *testing.T) {
	store, err := archive.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := newService(t, store)
	sess, _ := s.Create(Baseball, 0, 0)
	s.Repo.IncFrame(sess.ID, t0)
	s.Repo.AppendFeedback(sess.ID, types.Feedback{Text: "Nice."}, t0)

	sum, ok := s.Summary(sess.ID)
	if !ok || !sum.Active || sum.FramesAnalyzed != 1 || len(sum.Feedback) != 1 {
		t.Fatalf("live summary = %+v, %v", sum, ok)
	}

	if err := s.End(sess.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.End(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second End err = %v", err)
	}
	sum, ok = s.Summary(sess.ID)
	if !ok || sum.Active || sum.FramesAnalyzed != 1 || sum.Feedback[0].Text != "Nice." {
		t.Fatalf("archived summary = %+v, %v", sum, ok)
	}

	if _, ok := s.Summary("sess_nope"); ok {
		t.Error("unknown session should not have a summary")
	}
}

func TestSummaryWithoutArchive(t *testing.T) {
	s := newService(t, nil)
	sess, _ := s.Create(Baseball, 0, 0)
	if sum, ok := s.Summary(sess.ID); !ok || sum.Feedback == nil {
		t.Errorf("summary = %+v, %v; feedback should be an empty list", sum, ok)
	}
	if err := s.End(sess.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Summary(sess.ID); ok {
		t.Error("ended session without archive should be gone")
	}
}

func TestSweep(t *testing.T) {
	s := newService(t, nil)
	var ended []string
	s.OnEnd(func(id string) { ended = append(ended, id) })
	old, _ := s.Create(Baseball, 0, 0)
	s.now = func() time.Time { return t0.Add(20 * time.Minute) }
	fresh, _ := s.Create(Baseball, 0, 0)

	s.now = func() time.Time { return t0.Add(40 * time.Minute) }
	if n := s.Sweep(); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}
	if _, ok := s.Get(old.ID); ok {
		t.Error("idle session survived the sweep")
	}
	if _, ok := s.Get(fresh.ID); !ok {
		t.Error("fresh session was swept")
	}
	if len(ended) != 1 || ended[0] != old.ID {
		t.Errorf("end hooks ran for %v, want [%s]", ended, old.ID)
	}

	s.TTL = 0
	s.now = func() time.Time { return t0.Add(24 * time.Hour) }
	if n := s.Sweep(); n != 0 {
		t.Errorf("Sweep with TTL 0 = %d, want 0", n)
	}
}

func TestStartSweeper(t *testing.T) {
	s := newService(t, nil)
	stop, err := s.StartSweeper()
	if err != nil {
		t.Fatal(err)
	}
	stop()
}
