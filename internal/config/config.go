package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port       string
	PublicHost string
	TLS        bool

	GeminiAPIKey string
	GeminiModel  string
	TTSModel     string
	LiveModel    string
	LiveURL      string
	CoachVoice   string

	BatchSize        int
	HTTPBatchSize    int
	MinThrowFrames   int
	FeedbackInterval time.Duration
	ThrowDuration    time.Duration
	RestDuration     time.Duration
	SessionTTL       time.Duration

	TTSCacheSize int
	TTSCacheTTL  time.Duration

	DataDir  string
	LogLevel string
	LogDir   string
}

func Load() Config {
	return Config{
		Port:       getenv("PORT", "8080"),
		PublicHost: getenv("PUBLIC_HOST", ""),
		TLS:        getenv("TLS", "") == "1",

		// GEMENI_API_KEY is what the first deployments used.
		GeminiAPIKey: getenv("GEMINI_API_KEY", getenv("GEMENI_API_KEY", "")),
		GeminiModel:  getenv("GEMINI_MODEL", "gemini-2.0-flash"),
		TTSModel:     getenv("GEMINI_TTS_MODEL", "gemini-2.5-flash-preview-tts"),
		LiveModel:    getenv("GEMINI_LIVE_MODEL", "gemini-2.0-flash-live-001"),
		LiveURL: getenv("GEMINI_LIVE_URL",
			"wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"),
		CoachVoice: getenv("COACH_VOICE", "Puck"),

		BatchSize:        getint("BATCH_SIZE", 30),
		HTTPBatchSize:    getint("HTTP_BATCH_SIZE", 5),
		MinThrowFrames:   getint("MIN_THROW_FRAMES", 5),
		FeedbackInterval: getdur("FEEDBACK_INTERVAL", 60*time.Second),
		ThrowDuration:    getdur("THROW_DURATION", 1*time.Second),
		RestDuration:     getdur("REST_DURATION", 5*time.Second),
		SessionTTL:       getdur("SESSION_TTL", 30*time.Minute),

		TTSCacheSize: getint("TTS_CACHE_SIZE", 128),
		TTSCacheTTL:  getdur("TTS_CACHE_TTL", time.Hour),

		DataDir:  getenv("DATA_DIR", ""),
		LogLevel: getenv("LOG_LEVEL", "info"),
		LogDir:   getenv("LOG_DIR", "logs"),
	}
}

// Host is the host:port clients should use to reach this server.
func (c Config) Host() string {
	if c.PublicHost != "" {
		return c.PublicHost
	}
	return "localhost:" + c.Port
}

// WSScheme is ws or wss depending on whether TLS is terminated in front of us.
func (c Config) WSScheme() string {
	if c.TLS {
		return "wss"
	}
	return "ws"
}

func (c Config) HTTPScheme() string {
	if c.TLS {
		return "https"
	}
	return "http"
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil || v <= 0 {
		return d
	}
	return v
}

// getdur accepts Go durations ("90s") or bare milliseconds ("1500").
func getdur(k string, d time.Duration) time.Duration {
	s := os.Getenv(k)
	if s == "" {
		return d
	}
	if v, err := time.ParseDuration(s); err == nil && v >= 0 {
		return v
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return d
}
