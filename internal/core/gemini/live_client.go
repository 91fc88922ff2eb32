// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/steveyiyo/pitchcoach-backend/internal/core/audio"
	"github.com/steveyiyo/pitchcoach-backend/internal/log"
)

var ErrLiveClosed = errors.New("gemini: live session closed")

// JSON structures of the Live API bidi protocol.

type textPart struct {
	Text string `json:"text,omitempty"`
}

type blob struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type content struct {
	Role  string     `json:"role,omitempty"`
	Parts []textPart `json:"parts"`
}

type prebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoice `json:"prebuiltVoiceConfig"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities"`
	SpeechConfig       speechConfig `json:"speechConfig"`
}

type setup struct {
	Model                    string           `json:"model"`
	GenerationConfig         generationConfig `json:"generationConfig"`
	SystemInstruction        *content         `json:"systemInstruction,omitempty"`
	OutputAudioTranscription *struct{}        `json:"outputAudioTranscription,omitempty"`
	InputAudioTranscription  *struct{}        `json:"inputAudioTranscription,omitempty"`
}

type realtimeInput struct {
	Audio *blob `json:"audio,omitempty"`
}

type clientContent struct {
	Turns        []content `json:"turns"`
	TurnComplete bool      `json:"turnComplete"`
}

type clientMessage struct {
	Setup         *setup         `json:"setup,omitempty"`
	RealtimeInput *realtimeInput `json:"realtimeInput,omitempty"`
	ClientContent *clientContent `json:"clientContent,omitempty"`
}

type serverPart struct {
	Text       string `json:"text"`
	InlineData *blob  `json:"inlineData"`
}

type transcription struct {
	Text string `json:"text"`
}

type serverContent struct {
	ModelTurn *struct {
		Parts []serverPart `json:"parts"`
	} `json:"modelTurn"`
	OutputTranscription *transcription `json:"outputTranscription"`
	InputTranscription  *transcription `json:"inputTranscription"`
	TurnComplete        bool           `json:"turnComplete"`
	Interrupted         bool           `json:"interrupted"`
}

type serverMessage struct {
	SetupComplete *struct{}      `json:"setupComplete"`
	ServerContent *serverContent `json:"serverContent"`
}

// Event is one update from the live model.
type Event struct {
	// Audio is PCM16 LE at audio.CoachSampleRate.
	Audio []byte

	Transcript      string
	InputTranscript string
	TurnComplete    bool
	Interrupted     bool
}

// LiveInstruction sets up the voice coach for a realtime conversation.
const LiveInstruction = "You are a friendly pitching coach talking with an athlete between throws. " +
	"Keep every answer short and spoken, and ask what they felt on the last throw when it helps."

type LiveConfig struct {
	URL         string
	APIKey      string
	Model       string
	Voice       string
	Instruction string
}

// LiveClient manages the WebSocket connection to the Gemini Live API.
type LiveClient struct {
	conn      *websocket.Conn
	sendChan  chan []byte
	events    chan Event
	doneChan  chan struct{}
	closeOnce sync.Once
	lg        *log.Logger

	mu  sync.Mutex
	err error
}

// DialLive connects, sends the session setup and waits for the server to
// acknowledge it.
func DialLive(ctx context.Context, cfg LiveConfig, lg *log.Logger) (*LiveClient, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("live url: %w", err)
	}
	if cfg.APIKey != "" {
		q := u.Query()
		q.Set("key", cfg.APIKey)
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("live dial: %w", err)
	}

	model := cfg.Model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	msg := clientMessage{Setup: &setup{
		Model: model,
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: speechConfig{
				VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoice{VoiceName: cfg.Voice}},
			},
		},
		OutputAudioTranscription: &struct{}{},
		InputAudioTranscription:  &struct{}{},
	}}
	if cfg.Instruction != "" {
		msg.Setup.SystemInstruction = &content{Parts: []textPart{{Text: cfg.Instruction}}}
	}
	if err := conn.WriteJSON(msg); err != nil {
		conn.Close()
		return nil, fmt.Errorf("live setup: %w", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("live setup ack: %w", err)
		}
		var sm serverMessage
		if json.Unmarshal(b, &sm) == nil && sm.SetupComplete != nil {
			break
		}
	}
	conn.SetReadDeadline(time.Time{})

	c := &LiveClient{
		conn:     conn,
		sendChan: make(chan []byte, 16),
		events:   make(chan Event, 64),
		doneChan: make(chan struct{}),
		lg:       lg,
	}
	go c.readMessages()
	go c.writeMessages()
	return c, nil
}

// readMessages runs in a goroutine, continuously reading from the WebSocket.
func (c *LiveClient) readMessages() {
	defer close(c.events)
	defer c.Close()
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.doneChan:
			default:
				c.setErr(err)
				c.lg.Warn("live read", "error", err)
			}
			return
		}

		var received serverMessage
		if err := json.Unmarshal(message, &received); err != nil {
			c.lg.Warn("live unmarshal", "error", err)
			continue
		}
		for _, ev := range received.events() {
			select {
			case c.events <- ev:
			case <-c.doneChan:
				return
			}
		}
	}
}

func (m serverMessage) events() []Event {
	sc := m.ServerContent
	if sc == nil {
		return nil
	}
	var out []Event
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData != nil && strings.HasPrefix(p.InlineData.MimeType, "audio/") {
				out = append(out, Event{Audio: p.InlineData.Data})
			}
		}
	}
	var tail Event
	if sc.OutputTranscription != nil {
		tail.Transcript = sc.OutputTranscription.Text
	}
	if sc.InputTranscription != nil {
		tail.InputTranscript = sc.InputTranscription.Text
	}
	tail.TurnComplete = sc.TurnComplete
	tail.Interrupted = sc.Interrupted
	if tail.Transcript != "" || tail.InputTranscript != "" || tail.TurnComplete || tail.Interrupted {
		out = append(out, tail)
	}
	return out
}

// writeMessages runs in a goroutine, handling outgoing messages.
func (c *LiveClient) writeMessages() {
	for {
		select {
		case b := <-c.sendChan:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				c.setErr(err)
				c.lg.Warn("live write", "error", err)
				c.Close()
			}
		case <-c.doneChan:
			c.conn.SetWriteDeadline(time.Now().Add(time.Second))
			err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				c.lg.Debug("live write close", "error", err)
			}
			c.conn.Close()
			return
		}
	}
}

func (c *LiveClient) send(msg clientMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.doneChan:
		return ErrLiveClosed
	default:
	}
	select {
	case c.sendChan <- b:
		return nil
	case <-c.doneChan:
		return ErrLiveClosed
	}
}

// SendAudio streams a chunk of microphone PCM16 LE at audio.MicSampleRate.
func (c *LiveClient) SendAudio(pcm []byte) error {
	return c.send(clientMessage{RealtimeInput: &realtimeInput{
		Audio: &blob{MimeType: fmt.Sprintf("audio/pcm;rate=%d", audio.MicSampleRate), Data: pcm},
	}})
}

// SendText adds a complete user text turn.
func (c *LiveClient) SendText(text string) error {
	return c.send(clientMessage{ClientContent: &clientContent{
		Turns:        []content{{Role: "user", Parts: []textPart{{Text: text}}}},
		TurnComplete: true,
	}})
}

// Events streams model output; it is closed when the session ends.
func (c *LiveClient) Events() <-chan Event { return c.events }

// Err reports why the session ended, if not by Close.
func (c *LiveClient) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *LiveClient) setErr(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}

// Close shuts down the client and closes the WebSocket connection.
func (c *LiveClient) Close() {
	c.closeOnce.Do(func() { close(c.doneChan) })
}
