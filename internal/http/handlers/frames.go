package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/steveyiyo/pitchcoach-backend/internal/core/coach"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/pose"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/session"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/training"
	"github.com/steveyiyo/pitchcoach-backend/internal/log"
	"github.com/steveyiyo/pitchcoach-backend/pkg/types"
)

// anonymous keys the batcher shared by requests without a session.
const anonymous = "_anon"

// FramesHandler takes pose frames over plain HTTP, for clients that
// cannot hold a WebSocket open.
type FramesHandler struct {
	Batches *training.Batches
	Coach   *coach.Service
	Sess    *session.Service
	lg      *log.Logger
	now     func() time.Time
}

func NewFramesHandler(b *training.Batches, co *coach.Service, s *session.Service, lg *log.Logger) *FramesHandler {
	return &FramesHandler{Batches: b, Coach: co, Sess: s, lg: lg, now: time.Now}
}

func (h *FramesHandler) Baseball(c *gin.Context) {
	var req types.FramesReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Points == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errPointsMissing})
		return
	}
	if err := pose.CheckFrame(req.Points); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}
	key := anonymous
	if req.SessionID != "" {
		if _, ok := h.Sess.Get(req.SessionID); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		key = req.SessionID
		h.Sess.Repo.IncFrame(key, h.now())
	}

	batch, full := h.Batches.Add(key, req.Points)
	if !full {
		c.JSON(http.StatusOK, gin.H{"message": "Data received"})
		return
	}
	fb, err := h.Coach.Feedback(c.Request.Context(), batch, "")
	if err != nil {
		h.lg.Warn("http feedback", "error", err, "session_id", req.SessionID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis_failed"})
		return
	}
	if req.SessionID != "" {
		h.Sess.Repo.AppendFeedback(req.SessionID, *fb, h.now())
	}
	c.JSON(http.StatusOK, gin.H{"Text": fb.Text})
}

// Basketball records the shot frame and echoes it back.
func (h *FramesHandler) Basketball(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	if id, _ := body["session_id"].(string); id != "" {
		h.Sess.Repo.IncFrame(id, h.now())
	}
	c.JSON(http.StatusOK, gin.H{"message": "Data received", "data": body})
}
