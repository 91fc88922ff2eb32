package tts

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/steveyiyo/pitchcoach-backend/internal/core/audio"
)

var ErrEmptyText = errors.New("tts: empty text")

// Synthesizer turns text into mono PCM16 LE audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (pcm []byte, rate int, err error)
}

type Clip struct {
	WAV      []byte
	Duration time.Duration
}

// Cache synthesizes speech once per (text, voice) and keeps the WAV for
// later download.
type Cache struct {
	Provider Synthesizer
	Base     string
	Voice    string
	clips    *expirable.LRU[string, Clip]
}

func NewCache(p Synthesizer, base, voice string, size int, ttl time.Duration) *Cache {
	return &Cache{
		Provider: p,
		Base:     base,
		Voice:    voice,
		clips:    expirable.NewLRU[string, Clip](size, nil, ttl),
	}
}

func Key(text, voice string) string {
	h := sha1.New()
	h.Write([]byte(text + "|" + voice + "|wav"))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Synthesize returns the URL of the clip for text and its duration.
func (c *Cache) Synthesize(ctx context.Context, text, voice string) (string, int64, error) {
	if text == "" {
		return "", 0, ErrEmptyText
	}
	if voice == "" {
		voice = c.Voice
	}
	key := Key(text, voice)
	url := c.Base + "/" + key + ".wav"
	if clip, ok := c.clips.Get(key); ok {
		return url, clip.Duration.Milliseconds(), nil
	}

	pcm, rate, err := c.Provider.Synthesize(ctx, text, voice)
	if err != nil {
		return "", 0, fmt.Errorf("synthesize: %w", err)
	}
	b, err := audio.WAV(pcm, rate)
	if err != nil {
		return "", 0, err
	}
	clip := Clip{WAV: b, Duration: audio.Duration(pcm, rate)}
	c.clips.Add(key, clip)
	return url, clip.Duration.Milliseconds(), nil
}

func (c *Cache) Get(key string) (Clip, bool) {
	return c.clips.Get(key)
}
