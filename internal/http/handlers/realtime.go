package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/steveyiyo/pitchcoach-backend/internal/core/gemini"
	"github.com/steveyiyo/pitchcoach-backend/internal/log"
	"github.com/steveyiyo/pitchcoach-backend/pkg/types"
	"github.com/steveyiyo/pitchcoach-backend/pkg/ws"
)

const (
	// realtimeTTL bounds how long a minted session waits to be joined.
	realtimeTTL = 5 * time.Minute
	dialTimeout = 15 * time.Second
)

// LiveSession is a connected live model conversation.
type LiveSession interface {
	SendAudio(pcm []byte) error
	SendText(text string) error
	Events() <-chan gemini.Event
	Err() error
	Close()
}

// LiveDialer opens a live conversation with the given model and voice.
type LiveDialer func(ctx context.Context, model, voice string) (LiveSession, error)

// RealtimeHandler relays a browser's voice conversation to the live model.
// The browser speaks the event vocabulary of RealtimeAudio; the model's API
// key never leaves the server.
type RealtimeHandler struct {
	// Dial is nil when no live model is configured.
	Dial   LiveDialer
	Model  string
	Voice  string
	Scheme string
	Host   string

	Upgrader websocket.Upgrader
	pending  *expirable.LRU[string, types.RealtimeSessionResp]
	lg       *log.Logger
}

func NewRealtimeHandler(dial LiveDialer, model, voice, scheme, host string, lg *log.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		Dial:   dial,
		Model:  model,
		Voice:  voice,
		Scheme: scheme,
		Host:   host,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pending: expirable.NewLRU[string, types.RealtimeSessionResp](1024, nil, realtimeTTL),
		lg:      lg,
	}
}

// browserEvent is the subset of client events the relay understands.
type browserEvent struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
	Item  *struct {
		Type    string `json:"type"`
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"item"`
}

func (h *RealtimeHandler) CreateSession(c *gin.Context) {
	if h.Dial == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime_unavailable"})
		return
	}
	id := "rt_" + uuid.NewString()
	resp := types.RealtimeSessionResp{
		SessionID: id,
		ModelName: h.Model,
		Voice:     h.Voice,
		WSURL:     h.Scheme + "://" + h.Host + "/v1/realtime?sess=" + id,
	}
	h.pending.Add(id, resp)
	c.JSON(http.StatusOK, resp)
}

func (h *RealtimeHandler) WS(c *gin.Context) {
	id := c.Query("sess")
	// A minted session is joined once; only the caller whose Remove
	// succeeds gets it.
	sess, ok := h.pending.Get(id)
	if !ok || h.Dial == nil || !h.pending.Remove(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	peer := ws.NewPeer(id, conn)
	defer peer.Close()
	conn.SetReadLimit(maxMessage)
	lg := h.lg.With("realtime_id", id)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	live, err := h.Dial(ctx, sess.ModelName, sess.Voice)
	cancel()
	if err != nil {
		lg.Warn("live dial", "error", err)
		peer.WriteJSON(errorEvent("could not reach the coaching model"))
		return
	}
	defer live.Close()
	lg.Info("realtime opened", "model", sess.ModelName, "voice", sess.Voice)

	peer.WriteJSON(gin.H{
		"type":    "session.created",
		"session": gin.H{"id": id, "model": sess.ModelName, "voice": sess.Voice},
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Unblock the browser reader once the model side is gone.
		defer peer.Close()
		for ev := range live.Events() {
			for _, out := range relayEvent(ev) {
				if err := peer.WriteJSON(out); err != nil {
					return
				}
			}
		}
		if err := live.Err(); err != nil {
			lg.Warn("live session ended", "error", err)
			peer.WriteJSON(errorEvent("coaching model disconnected"))
		}
	}()

	var pending []string
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var ev browserEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			peer.WriteJSON(errorEvent("invalid event"))
			continue
		}
		var sendErr error
		switch ev.Type {
		case "input_audio_buffer.append":
			pcm, err := base64.StdEncoding.DecodeString(ev.Audio)
			if err != nil {
				peer.WriteJSON(errorEvent("invalid audio"))
				continue
			}
			sendErr = live.SendAudio(pcm)
		case "conversation.item.create":
			if ev.Item != nil {
				for _, part := range ev.Item.Content {
					if part.Type == "input_text" && part.Text != "" {
						pending = append(pending, part.Text)
					}
				}
			}
		case "response.create":
			if len(pending) > 0 {
				sendErr = live.SendText(strings.Join(pending, "\n"))
				pending = nil
			}
		default:
			lg.Debug("ignored realtime event", "type", ev.Type)
		}
		if sendErr != nil {
			lg.Warn("live send", "error", sendErr)
			break
		}
	}
	live.Close()
	<-done
	lg.Info("realtime closed")
}

// relayEvent renders a model event as browser events.
func relayEvent(ev gemini.Event) []gin.H {
	var out []gin.H
	if len(ev.Audio) > 0 {
		out = append(out, gin.H{
			"type":  "response.audio.delta",
			"delta": base64.StdEncoding.EncodeToString(ev.Audio),
		})
	}
	if ev.InputTranscript != "" {
		out = append(out, gin.H{
			"type":       "conversation.item.input_audio_transcription.completed",
			"transcript": ev.InputTranscript,
		})
	}
	if ev.Transcript != "" {
		out = append(out, gin.H{"type": "response.audio_transcript.delta", "delta": ev.Transcript})
	}
	if ev.Interrupted {
		out = append(out, gin.H{"type": "input_audio_buffer.speech_started"})
	}
	if ev.TurnComplete {
		out = append(out, gin.H{"type": "response.audio.done"})
	}
	return out
}

func errorEvent(msg string) gin.H {
	return gin.H{"type": "error", "error": gin.H{"message": msg}}
}
