package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/steveyiyo/pitchcoach-backend/internal/core/coach"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/pose"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/session"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/tips"
	"github.com/steveyiyo/pitchcoach-backend/internal/log"
	"github.com/steveyiyo/pitchcoach-backend/internal/repo/memory"
	"github.com/steveyiyo/pitchcoach-backend/pkg/types"
)

func init() { gin.SetMode(gin.TestMode) }

// newSessions returns a session service whose default loop is free-running.
func newSessions() *session.Service {
	return session.NewService(memory.NewSessionRepo(), nil, time.Hour, 0, 0, log.Discard())
}

type fakeAdvisor struct {
	mu      sync.Mutex
	prompts []string
	reply   string
}

func (f *fakeAdvisor) Advise(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, nil
}

type fakeTranscriber struct {
	mimes chan string
	text  string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, mime string) (string, error) {
	f.mimes <- mime
	return f.text, nil
}

func newCoach(a coach.Advisor, tr coach.Transcriber) *coach.Service {
	return coach.NewService(a, tr, tips.New(), log.Discard())
}

// frame is a full landmark set with the right arm partly bent.
func frame() []types.Landmark {
	pts := make([]types.Landmark, 33)
	for i := range pts {
		pts[i] = types.Landmark{X: 0.5, Y: 0.5, Visibility: 1}
	}
	pts[pose.RightShoulder] = types.Landmark{X: 0.5, Y: 0.3}
	pts[pose.RightElbow] = types.Landmark{X: 0.6, Y: 0.4}
	pts[pose.RightWrist] = types.Landmark{X: 0.7, Y: 0.3}
	pts[pose.LeftHip] = types.Landmark{X: 0.45, Y: 0.7}
	pts[pose.RightHip] = types.Landmark{X: 0.55, Y: 0.7}
	return pts
}

func doJSON(h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return m
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// wsConn is a test client for the WebSocket endpoints.
type wsConn struct {
	*websocket.Conn
	t *testing.T
}

func (c *wsConn) next() map[string]any {
	c.t.Helper()
	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	var m map[string]any
	if err := c.ReadJSON(&m); err != nil {
		c.t.Fatal(err)
	}
	return m
}

func (c *wsConn) send(v any) {
	c.t.Helper()
	if err := c.WriteJSON(v); err != nil {
		c.t.Fatal(err)
	}
}

func (c *wsConn) sendRaw(s string) {
	c.t.Helper()
	if err := c.WriteMessage(websocket.TextMessage, []byte(s)); err != nil {
		c.t.Fatal(err)
	}
}
