package stt

import (
	"fmt"
	"log"

	"scribe/internal/config"
)

// CreateStreamingProvider creates the live transcription provider selected
// by configuration. A nil provider (no error) means live transcription is
// disabled and sessions fall straight back to batch.
func CreateStreamingProvider(cfg *config.Config) (StreamingProvider, error) {
	switch cfg.StreamingProvider {
	case "":
		log.Printf("[STT Factory] live transcription disabled")
		return nil, nil
	case "deepgram":
		if cfg.DeepgramAPIKey == "" {
			return nil, fmt.Errorf("DEEPGRAM_API_KEY environment variable is not set")
		}
		log.Printf("[STT Factory] Creating Deepgram streaming provider, model=%s", cfg.DeepgramModel)
		return NewDeepgramProvider(cfg.DeepgramAPIKey, cfg.DeepgramModel), nil
	default:
		return nil, fmt.Errorf("unsupported streaming provider: %s. Supported: deepgram", cfg.StreamingProvider)
	}
}

// CreateBatchProvider creates the batch transcription provider. A nil
// provider (no error) means batch fallback is unavailable; recording still
// works, transcription is live-only.
func CreateBatchProvider(cfg *config.Config) (BatchProvider, error) {
	if cfg.OpenAIKey == "" {
		log.Printf("[STT Factory] OPENAI_API_KEY not set, batch transcription unavailable")
		return nil, nil
	}
	log.Printf("[STT Factory] Creating Whisper batch provider, model=%s", cfg.WhisperModel)
	return NewWhisperProvider(cfg.OpenAIKey, cfg.WhisperModel), nil
}
