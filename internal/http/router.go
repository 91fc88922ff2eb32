package http

import (
	"context"
	"net/http"
	"time"

	"github.com/steveyiyo/pitchcoach-backend/internal/config"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/coach"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/gemini"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/session"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/tips"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/training"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/tts"
	"github.com/steveyiyo/pitchcoach-backend/internal/http/handlers"
	"github.com/steveyiyo/pitchcoach-backend/internal/log"
	"github.com/steveyiyo/pitchcoach-backend/internal/repo/memory"
	"github.com/steveyiyo/pitchcoach-backend/pkg/ws"

	"github.com/gin-gonic/gin"
)

// Router is the HTTP surface plus the state that outlives single requests.
type Router struct {
	*gin.Engine
	Hub      *ws.Hub
	Sessions *session.Service
}

// NewRouter wires the service. Without a Gemini API key feedback comes from
// rule-based tips and speech features report themselves unavailable. arch
// may be nil.
func NewRouter(cfg config.Config, lg *log.Logger, arch session.Archiver) (*Router, error) {
	r := gin.Default()
	repo := memory.NewSessionRepo()
	svc := session.NewService(repo, arch, cfg.SessionTTL, cfg.ThrowDuration, cfg.RestDuration, lg)
	hub := ws.NewHub()
	batches := training.NewBatches(cfg.HTTPBatchSize)
	svc.OnEnd(batches.Drop)
	svc.OnEnd(func(id string) {
		if p, ok := hub.Get(id); ok {
			p.Close()
		}
	})

	var (
		advisor     coach.Advisor
		transcriber coach.Transcriber
		cache       *tts.Cache
		dial        handlers.LiveDialer
	)
	if cfg.GeminiAPIKey != "" {
		gc, err := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		advisor, transcriber = gc, gc
		base := cfg.HTTPScheme() + "://" + cfg.Host() + "/v1/tts"
		cache = tts.NewCache(gemini.NewSpeech(gc, cfg.TTSModel), base, cfg.CoachVoice, cfg.TTSCacheSize, cfg.TTSCacheTTL)
		dial = func(ctx context.Context, model, voice string) (handlers.LiveSession, error) {
			lc, err := gemini.DialLive(ctx, gemini.LiveConfig{
				URL:         cfg.LiveURL,
				APIKey:      cfg.GeminiAPIKey,
				Model:       model,
				Voice:       voice,
				Instruction: gemini.LiveInstruction,
			}, lg.With("component", "live"))
			if err != nil {
				return nil, err
			}
			return lc, nil
		}
	} else {
		lg.Warn("GEMINI_API_KEY not set; using rule-based coaching only")
	}
	co := coach.NewService(advisor, transcriber, tips.New(), lg)

	sh := handlers.NewSessionsHandler(svc, cfg.WSScheme(), cfg.Host())
	wsh := handlers.NewStreamHandler(hub, svc, co, cfg.BatchSize, cfg.MinThrowFrames, cfg.FeedbackInterval, lg)
	fh := handlers.NewFramesHandler(batches, co, svc, lg)
	th := handlers.NewTTSHandler(cache, lg)
	rh := handlers.NewRealtimeHandler(dial, cfg.LiveModel, cfg.CoachVoice, cfg.WSScheme(), cfg.Host(), lg)

	started := time.Now()
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"uptime_s": int64(time.Since(started).Seconds()),
			"sessions": repo.Len(),
			"streams":  hub.Len(),
		})
	})

	api := r.Group("/v1")
	api.POST("/sessions", sh.Create)
	api.GET("/sessions/:id/summary", sh.Summary)
	api.DELETE("/sessions/:id", sh.End)
	api.POST("/baseball", fh.Baseball)
	api.POST("/basketball", fh.Basketball)
	api.POST("/tts", th.Synthesize)
	api.GET("/tts/:key", th.Audio)
	api.POST("/realtime/session", rh.CreateSession)
	r.GET("/v1/stream", wsh.WS)
	r.GET("/v1/realtime", rh.WS)
	return &Router{Engine: r, Hub: hub, Sessions: svc}, nil
}
