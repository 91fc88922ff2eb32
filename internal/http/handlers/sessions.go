package handlers

import (
	"errors"
	"net/http"

	"github.com/steveyiyo/pitchcoach-backend/internal/core/session"
	"github.com/steveyiyo/pitchcoach-backend/pkg/types"

	"github.com/gin-gonic/gin"
)

type SessionsHandler struct {
	Svc    *session.Service
	Scheme string
	Host   string
}

func NewSessionsHandler(svc *session.Service, scheme, host string) *SessionsHandler {
	return &SessionsHandler{Svc: svc, Scheme: scheme, Host: host}
}

func (h *SessionsHandler) Create(c *gin.Context) {
	var req types.CreateSessionReq
	// An empty body creates a default baseball session.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
			return
		}
	}
	sess, err := h.Svc.Create(req.Sport, req.ThrowMs, req.RestMs)
	switch {
	case errors.Is(err, session.ErrBadSport):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_sport"})
		return
	case errors.Is(err, session.ErrBadDurations):
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_durations"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	ws := h.Scheme + "://" + h.Host + "/v1/stream?sess=" + sess.ID
	c.JSON(http.StatusOK, types.CreateSessionResp{
		SessionID: sess.ID,
		WSURL:     ws,
		ThrowMs:   sess.ThrowMs,
		RestMs:    sess.RestMs,
	})
}

func (h *SessionsHandler) Summary(c *gin.Context) {
	id := c.Param("id")
	sum, ok := h.Svc.Summary(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *SessionsHandler) End(c *gin.Context) {
	err := h.Svc.End(c.Param("id"))
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case err != nil:
		// The session left memory but could not be archived.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "archive_failed"})
	default:
		c.Status(http.StatusNoContent)
	}
}
