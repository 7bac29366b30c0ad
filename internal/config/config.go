package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for the tunables that govern chunk buffering. The minimum part
// size must stay at or above the storage provider's documented multipart
// minimum (5 MiB for S3).
const (
	DefaultMinPartSize   = 5 * 1024 * 1024
	DefaultBatchWindow   = 2 * time.Second
	DefaultBatchMaxBytes = 64 * 1024
	DefaultSessionTTL    = 2 * time.Hour
)

type Config struct {
	Port string

	// AWS backends; when Region and the bucket name are empty the server
	// runs with in-memory implementations instead.
	AWSRegion       string
	RecordingBucket string
	SessionTable    string
	TranscriptTable string
	EncounterTable  string

	// Speech-to-text providers.
	StreamingProvider string // "deepgram" or "" to disable live transcription
	DeepgramAPIKey    string
	DeepgramModel     string
	OpenAIKey         string
	WhisperModel      string

	// Coordination tunables.
	MinPartSize   int
	BatchWindow   time.Duration
	BatchMaxBytes int
	SessionTTL    time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		AWSRegion:         os.Getenv("AWS_REGION"),
		RecordingBucket:   os.Getenv("RECORDING_BUCKET"),
		SessionTable:      getEnv("SESSION_TABLE", "scribe-sessions"),
		TranscriptTable:   getEnv("TRANSCRIPT_TABLE", "scribe-transcripts"),
		EncounterTable:    getEnv("ENCOUNTER_TABLE", "scribe-encounters"),
		StreamingProvider: streamingProviderEnv(),
		DeepgramAPIKey:    os.Getenv("DEEPGRAM_API_KEY"),
		DeepgramModel:     getEnv("DEEPGRAM_MODEL", "nova-2-medical"),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		WhisperModel:      getEnv("WHISPER_MODEL", "whisper-1"),
		MinPartSize:       getEnvInt("MIN_PART_SIZE_BYTES", DefaultMinPartSize),
		BatchWindow:       getEnvDuration("BATCH_WINDOW_MS", DefaultBatchWindow),
		BatchMaxBytes:     getEnvInt("BATCH_MAX_BYTES", DefaultBatchMaxBytes),
		SessionTTL:        getEnvDuration("SESSION_TTL_MS", DefaultSessionTTL),
	}

	if cfg.MinPartSize < DefaultMinPartSize {
		return nil, fmt.Errorf("MIN_PART_SIZE_BYTES must be at least %d (storage multipart minimum), got %d",
			DefaultMinPartSize, cfg.MinPartSize)
	}

	// Provider keys are only required when the matching provider is selected.
	if cfg.StreamingProvider == "deepgram" && cfg.DeepgramAPIKey == "" {
		return nil, fmt.Errorf("DEEPGRAM_API_KEY is required when STT_STREAMING_PROVIDER=deepgram (set STT_STREAMING_PROVIDER=none to disable live transcription)")
	}

	return cfg, nil
}

// streamingProviderEnv resolves the live provider selection. "none"
// disables live transcription; an unset variable keeps the default.
func streamingProviderEnv() string {
	v := getEnv("STT_STREAMING_PROVIDER", "deepgram")
	if v == "none" {
		return ""
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}
