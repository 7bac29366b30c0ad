package stt

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperProvider implements batch transcription via the OpenAI audio
// transcription API.
type WhisperProvider struct {
	client *openai.Client
	model  string
}

func NewWhisperProvider(apiKey, model string) *WhisperProvider {
	return &WhisperProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Name returns the provider name
func (p *WhisperProvider) Name() string {
	return "whisper"
}

// Transcribe sends audio bytes to the transcription API. verbose_json is
// requested so provider segment boundaries come back as utterances.
func (p *WhisperProvider) Transcribe(ctx context.Context, audio []byte, format string) (*Result, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("no audio bytes to transcribe")
	}
	if format == "" {
		format = "webm"
	}

	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.model,
		Reader:   bytes.NewReader(audio),
		FilePath: "audio." + format,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w", err)
	}

	transcript := strings.TrimSpace(resp.Text)
	result := &Result{
		Transcript: transcript,
		Provider:   p.Name(),
	}

	// Whisper reports no overall confidence; derive a per-segment one from
	// the no-speech probability and average them for the whole call.
	var confSum float64
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		conf := 1.0 - seg.NoSpeechProb
		confSum += conf
		result.Utterances = append(result.Utterances, Utterance{
			Text:       text,
			Speaker:    -1,
			Confidence: conf,
			Start:      seg.Start,
			End:        seg.End,
		})
	}
	if len(result.Utterances) > 0 {
		result.Confidence = confSum / float64(len(result.Utterances))
	}

	log.Printf("[Whisper] transcribed %d bytes: %d utterances, length=%d",
		len(audio), len(result.Utterances), len(transcript))
	return result, nil
}
