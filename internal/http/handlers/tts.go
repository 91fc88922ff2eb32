package handlers

import (
	"net/http"
	"strings"

	"github.com/steveyiyo/pitchcoach-backend/internal/core/tts"
	"github.com/steveyiyo/pitchcoach-backend/internal/log"
	"github.com/steveyiyo/pitchcoach-backend/pkg/types"

	"github.com/gin-gonic/gin"
)

type TTSHandler struct {
	// Cache is nil when no speech model is configured.
	Cache *tts.Cache
	lg    *log.Logger
}

func NewTTSHandler(cache *tts.Cache, lg *log.Logger) *TTSHandler {
	return &TTSHandler{Cache: cache, lg: lg}
}

func (h *TTSHandler) Synthesize(c *gin.Context) {
	var req types.TTSReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	if h.Cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "tts_unavailable"})
		return
	}
	url, dur, err := h.Cache.Synthesize(c.Request.Context(), req.Text, req.Voice)
	if err != nil {
		h.lg.Warn("tts", "error", err, "session_id", req.SessionID)
		c.JSON(http.StatusBadGateway, gin.H{"error": "tts_failed"})
		return
	}
	c.JSON(http.StatusOK, types.TTSResp{AudioURL: url, DurationMs: dur})
}

func (h *TTSHandler) Audio(c *gin.Context) {
	if h.Cache == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	clip, ok := h.Cache.Get(strings.TrimSuffix(c.Param("key"), ".wav"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, "audio/wav", clip.WAV)
}
