package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/steveyiyo/pitchcoach-backend/internal/core/coach"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/pose"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/session"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/training"
	"github.com/steveyiyo/pitchcoach-backend/internal/log"
	"github.com/steveyiyo/pitchcoach-backend/pkg/types"
	"github.com/steveyiyo/pitchcoach-backend/pkg/ws"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxMessage = 8 << 20

	// errPointsMissing is the message clients already match on.
	errPointsMissing = "Invalid payload: 'points' missing"
)

type StreamHandler struct {
	Hub   *ws.Hub
	Sess  *session.Service
	Coach *coach.Service

	BatchSize int
	MinFrames int
	Interval  time.Duration

	Upgrader websocket.Upgrader
	lg       *log.Logger
	now      func() time.Time
}

func NewStreamHandler(h *ws.Hub, s *session.Service, co *coach.Service, batchSize, minFrames int, interval time.Duration, lg *log.Logger) *StreamHandler {
	return &StreamHandler{
		Hub:       h,
		Sess:      s,
		Coach:     co,
		BatchSize: batchSize,
		MinFrames: minFrames,
		Interval:  interval,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		lg:  lg,
		now: time.Now,
	}
}

// stream is one open training connection.
type stream struct {
	h     *StreamHandler
	id    string
	peer  *ws.Peer
	tr    *training.Trainer
	gate  *training.Gate
	lg    *log.Logger
	busy  atomic.Bool
	wg    sync.WaitGroup
	mu    sync.Mutex
	heard []string
}

func (h *StreamHandler) WS(c *gin.Context) {
	id := c.Query("sess")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_session"})
		return
	}
	sess, ok := h.Sess.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	peer := ws.NewPeer(id, conn)
	h.Hub.Add(peer)
	defer func() {
		h.Hub.Remove(peer)
		peer.Close()
	}()

	conn.SetReadLimit(maxMessage)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	start := h.now()
	s := &stream{
		h:    h,
		id:   id,
		peer: peer,
		tr:   training.NewTrainer(h.Sess.Loop(sess, start), h.BatchSize, h.MinFrames),
		gate: training.NewGate(h.Interval),
		lg:   h.lg.With("session_id", id),
	}
	s.lg.Info("stream opened", "throw_ms", sess.ThrowMs, "rest_ms", sess.RestMs)

	if err := peer.WriteJSON(gin.H{
		"type":       "hello",
		"ts":         start.UnixMilli(),
		"session_id": id,
		"throw_ms":   sess.ThrowMs,
		"rest_ms":    sess.RestMs,
	}); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.handle(ctx, s.tr.Observe(start))
	s.wg.Add(1)
	go s.tick(ctx)

	s.read(ctx, conn)
	cancel()
	s.wg.Wait()
	s.lg.Info("stream closed", "suppressed", s.tr.Suppressed())
}

func (s *stream) read(ctx context.Context, conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.lg.Debug("stream read", "error", err)
			}
			return
		}
		now := s.h.now()
		s.h.Sess.Repo.Touch(s.id, now)

		var m types.StreamMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			s.fail("invalid_json")
			continue
		}
		switch m.Type {
		case "clear":
			s.tr.Clear()
		case "audio":
			s.audio(ctx, m, now)
		case "", "frame":
			if m.Points == nil {
				s.fail(errPointsMissing)
				continue
			}
			if err := pose.CheckFrame(m.Points); err != nil {
				s.fail("Invalid payload: " + err.Error())
				continue
			}
			st := s.tr.AddFrame(now, m.Points)
			if st.Accepted {
				s.h.Sess.Repo.IncFrame(s.id, now)
			} else {
				s.h.Sess.Repo.IncSuppressed(s.id, now)
			}
			s.handle(ctx, st)
		default:
			s.fail("unknown_type")
		}
	}
}

// tick announces phase changes as they happen and keeps the connection
// alive. A free-running loop never changes phase.
func (s *stream) tick(ctx context.Context) {
	defer s.wg.Done()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	loop := s.tr.Loop()
	var phase <-chan time.Time
	var t *time.Timer
	if !loop.FreeRunning() {
		t = time.NewTimer(s.untilNext(loop))
		defer t.Stop()
		phase = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if s.peer.Ping() != nil {
				return
			}
		case <-phase:
			s.handle(ctx, s.tr.Observe(s.h.now()))
			t.Reset(s.untilNext(loop))
		}
	}
}

func (s *stream) untilNext(l training.Loop) time.Duration {
	now := s.h.now()
	d := l.Next(now).Sub(now)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

func (s *stream) handle(ctx context.Context, st training.Step) {
	if st.Changed {
		s.peer.WriteJSON(gin.H{
			"type":         "phase",
			"phase":        st.Phase.Kind,
			"cycle":        st.Phase.Cycle,
			"remaining_ms": st.Phase.Remaining.Milliseconds(),
		})
	}
	for _, b := range st.Batches {
		s.feedback(ctx, b)
	}
}

// feedback coaches on b in the background. Batches arriving while one is
// being coached, or before the interval has passed, are dropped. Only a
// delivered feedback starts a new interval.
func (s *stream) feedback(ctx context.Context, b training.Batch) {
	if !s.busy.CompareAndSwap(false, true) {
		s.lg.Debug("feedback in flight, batch dropped", "frames", len(b))
		return
	}
	if !s.gate.OpenAt(s.h.now()) {
		s.busy.Store(false)
		s.lg.Debug("feedback gated, batch dropped", "frames", len(b))
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)

		fb, err := s.h.Coach.Feedback(ctx, b, s.utterance())
		if err != nil {
			s.lg.Warn("feedback", "error", err, "frames", len(b))
			s.fail("analysis_failed")
			return
		}
		now := s.h.now()
		s.gate.SpendAt(now)
		s.h.Sess.Repo.AppendFeedback(s.id, *fb, now)
		s.peer.WriteJSON(feedbackMsg(fb))
	}()
}

func feedbackMsg(fb *types.Feedback) gin.H {
	return gin.H{
		"type":     "feedback",
		"ts":       fb.T,
		"text":     fb.Text,
		"Text":     fb.Text,
		"priority": fb.Priority,
		"reason":   fb.Reason,
		"metrics":  fb.Metrics,
	}
}

func (s *stream) audio(ctx context.Context, m types.StreamMsg, now time.Time) {
	clip, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil || len(clip) == 0 {
		s.fail("invalid_audio")
		return
	}
	s.h.Sess.Repo.IncAudio(s.id, now)
	mime := m.Mime
	if mime == "" {
		mime = "audio/webm"
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		text, err := s.h.Coach.Transcribe(ctx, clip, mime)
		if err != nil {
			s.lg.Warn("transcribe", "error", err, "bytes", len(clip))
			return
		}
		if text = strings.TrimSpace(text); text != "" {
			s.mu.Lock()
			s.heard = append(s.heard, text)
			s.mu.Unlock()
		}
	}()
}

// utterance returns and forgets what the athlete said since the last
// feedback.
func (s *stream) utterance() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := strings.Join(s.heard, " ")
	s.heard = nil
	return u
}

func (s *stream) fail(msg string) {
	s.peer.WriteJSON(gin.H{"type": "error", "error": msg})
}
