package gemini

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/steveyiyo/pitchcoach-backend/internal/core/audio"
)

var ErrNoAudio = errors.New("gemini: response carried no audio")

// Speech synthesizes coach speech with a Gemini TTS model.
type Speech struct {
	gen   generator
	model string
}

func NewSpeech(c *Client, model string) *Speech {
	return &Speech{gen: c.gen, model: model}
}

// Synthesize returns mono PCM16 LE and its sample rate.
func (s *Speech) Synthesize(ctx context.Context, text, voice string) ([]byte, int, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: text}}}}
	resp, err := s.gen.GenerateContent(ctx, s.model, contents, cfg)
	if err != nil {
		return nil, 0, err
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && strings.HasPrefix(p.InlineData.MIMEType, "audio/") {
				return p.InlineData.Data, sampleRate(p.InlineData.MIMEType), nil
			}
		}
	}
	return nil, 0, ErrNoAudio
}

// sampleRate reads the rate parameter of a mime type such as
// "audio/L16;codec=pcm;rate=24000".
func sampleRate(mime string) int {
	for _, param := range strings.Split(mime, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || k != "rate" {
			continue
		}
		if r, err := strconv.Atoi(v); err == nil && r > 0 {
			return r
		}
	}
	return audio.CoachSampleRate
}
