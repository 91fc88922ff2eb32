package gemini

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

var ErrEmptyResponse = errors.New("gemini: empty response")

const coachInstruction = "You are an encouraging baseball pitching coach watching an athlete practice. " +
	"Answer in plain spoken English, at most two short sentences, with one concrete thing to change on the next throw."

const transcribeInstruction = "Transcribe the speech in this audio clip verbatim. " +
	"Output only the words spoken, or nothing if there is no speech."

// generator is the slice of the genai Models service we use.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	gen   generator
	model string
	sleep func(context.Context, time.Duration) error
}

func New(apiKey, model string) (*Client, error) {
	tr := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		TLSClientConfig:   &tls.Config{MinVersion: tls.VersionTLS12},
		ForceAttemptHTTP2: false,
		MaxIdleConns:      100,
		IdleConnTimeout:   90 * time.Second,
	}
	hc := &http.Client{Transport: tr, Timeout: 30 * time.Second}
	reqTimeout := 15 * time.Second
	cl, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
		HTTPOptions: genai.HTTPOptions{
			APIVersion: "v1beta",
			Timeout:    &reqTimeout,
		},
	})
	if err != nil {
		return nil, err
	}
	return &Client{gen: cl.Models, model: model, sleep: sleepCtx}, nil
}

// Advise asks the model for coaching on prompt.
func (g *Client) Advise(ctx context.Context, prompt string) (string, error) {
	temp := float32(0.7)
	topP := float32(0.9)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: coachInstruction}}},
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   256,
	}
	return g.call(ctx, g.model, []*genai.Part{{Text: prompt}}, cfg, false)
}

// Transcribe returns the words spoken in a short audio clip, or "" when
// there are none.
func (g *Client) Transcribe(ctx context.Context, audio []byte, mime string) (string, error) {
	if mime == "" {
		mime = "audio/webm"
	}
	temp := float32(0)
	parts := []*genai.Part{
		{Text: transcribeInstruction},
		{InlineData: &genai.Blob{Data: audio, MIMEType: mime}},
	}
	return g.call(ctx, g.model, parts, &genai.GenerateContentConfig{Temperature: &temp}, true)
}

// call retries transient errors. An empty answer is retried too unless
// emptyOK is set.
func (g *Client) call(ctx context.Context, model string, parts []*genai.Part, cfg *genai.GenerateContentConfig, emptyOK bool) (string, error) {
	var lastErr error
	for i := 0; i < 3; i++ {
		if i > 0 {
			if err := g.sleep(ctx, time.Duration(300*i)*time.Millisecond); err != nil {
				return "", err
			}
		}
		resp, err := g.gen.GenerateContent(ctx, model, []*genai.Content{{Role: "user", Parts: parts}}, cfg)
		if err != nil {
			lastErr = err
			if retriable(err) {
				continue
			}
			return "", err
		}
		if t := strings.TrimSpace(resp.Text()); t != "" || emptyOK {
			return t, nil
		}
		lastErr = ErrEmptyResponse
	}
	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retriable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "unexpected EOF") ||
		strings.Contains(s, "timeout") ||
		strings.Contains(s, "RST_STREAM") ||
		strings.Contains(s, "connection reset")
}
