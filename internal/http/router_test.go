package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/steveyiyo/pitchcoach-backend/internal/config"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/session"
	"github.com/steveyiyo/pitchcoach-backend/internal/log"
	"github.com/steveyiyo/pitchcoach-backend/internal/repo/archive"
)

func testConfig() config.Config {
	return config.Config{
		Port:             "8080",
		PublicHost:       "coach.test",
		BatchSize:        30,
		HTTPBatchSize:    5,
		MinThrowFrames:   5,
		FeedbackInterval: time.Minute,
		ThrowDuration:    time.Second,
		RestDuration:     5 * time.Second,
		SessionTTL:       30 * time.Minute,
		TTSCacheSize:     8,
		TTSCacheTTL:      time.Hour,
	}
}

func newTestRouter(t *testing.T, arch session.Archiver) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r, err := NewRouter(testConfig(), log.Discard(), arch)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func call(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var m map[string]any
	json.Unmarshal(w.Body.Bytes(), &m)
	return w, m
}

func TestRoutesWithoutGemini(t *testing.T) {
	r := newTestRouter(t, nil)

	tests := []struct {
		method, path, body string
		status             int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodPost, "/v1/tts", `{"text":"hi"}`, http.StatusServiceUnavailable},
		{http.MethodGet, "/v1/tts/abc.wav", "", http.StatusNotFound},
		{http.MethodPost, "/v1/realtime/session", "", http.StatusServiceUnavailable},
		{http.MethodPost, "/v1/baseball", `{}`, http.StatusBadRequest},
		{http.MethodPost, "/v1/basketball", `{"x":1}`, http.StatusOK},
		{http.MethodGet, "/v1/stream", "", http.StatusBadRequest},
		{http.MethodGet, "/v1/sessions/sess_none/summary", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		if w, _ := call(r, tt.method, tt.path, tt.body); w.Code != tt.status {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, w.Code, tt.status)
		}
	}
}

func TestSessionLifecycleArchived(t *testing.T) {
	store, err := archive.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := newTestRouter(t, store)

	w, m := call(r, http.MethodPost, "/v1/sessions", `{"sport":"baseball"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("create = %d", w.Code)
	}
	id := m["session_id"].(string)
	if m["throw_ms"] != float64(1000) || m["rest_ms"] != float64(5000) {
		t.Errorf("durations = %v/%v", m["throw_ms"], m["rest_ms"])
	}
	if _, h := call(r, http.MethodGet, "/healthz", ""); h["sessions"] != float64(1) {
		t.Errorf("healthz = %v", h)
	}

	frame := `{"session_id":"` + id + `","points":[` + strings.TrimSuffix(strings.Repeat(`{"x":0.5,"y":0.5,"z":0},`, 33), ",") + `]}`
	if w, _ := call(r, http.MethodPost, "/v1/baseball", frame); w.Code != http.StatusOK {
		t.Fatalf("frame = %d", w.Code)
	}

	if w, _ := call(r, http.MethodDelete, "/v1/sessions/"+id, ""); w.Code != http.StatusNoContent {
		t.Fatalf("end = %d", w.Code)
	}
	w, m = call(r, http.MethodGet, "/v1/sessions/"+id+"/summary", "")
	if w.Code != http.StatusOK || m["active"] != false || m["frames_analyzed"] != float64(1) {
		t.Errorf("archived summary = %d %v", w.Code, m)
	}
}
