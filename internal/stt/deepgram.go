package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	gws "github.com/gorilla/websocket"
)

const deepgramListenURL = "wss://api.deepgram.com/v1/listen"

// DeepgramProvider opens live streaming transcription connections against
// the Deepgram listen API.
type DeepgramProvider struct {
	apiKey   string
	model    string
	endpoint string
}

func NewDeepgramProvider(apiKey, model string) *DeepgramProvider {
	return &DeepgramProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: deepgramListenURL,
	}
}

// Name returns the provider name
func (p *DeepgramProvider) Name() string {
	return "deepgram"
}

// deepgramResponse is the transcript message shape on the listen socket.
type deepgramResponse struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Word    string `json:"word"`
				Speaker *int   `json:"speaker"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// Start dials the listen endpoint and spawns a read pump that converts
// transcript messages into Events. Dial failure is returned to the caller;
// read failures after that only end the stream.
func (p *DeepgramProvider) Start(ctx context.Context, cfg StreamConfig, handler EventHandler) (StreamSession, error) {
	q := url.Values{}
	q.Set("model", p.model)
	if cfg.Model != "" {
		q.Set("model", cfg.Model)
	}
	q.Set("language", orDefault(cfg.Language, "en-US"))
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	q.Set("interim_results", "true")
	q.Set("diarize", "true")
	if cfg.Encoding != "" {
		q.Set("encoding", cfg.Encoding)
		q.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
		q.Set("channels", strconv.Itoa(maxInt(cfg.Channels, 1)))
	}

	header := http.Header{
		"Authorization": {fmt.Sprintf("Token %s", p.apiKey)},
	}
	conn, _, err := gws.DefaultDialer.DialContext(ctx, p.endpoint+"?"+q.Encode(), header)
	if err != nil {
		return nil, fmt.Errorf("deepgram dial error: %w", err)
	}
	log.Printf("[Deepgram] connected, model=%s", q.Get("model"))

	sess := &deepgramSession{conn: conn}
	go sess.readPump(handler)
	return sess, nil
}

type deepgramSession struct {
	mu     sync.Mutex
	conn   *gws.Conn
	closed bool
}

func (s *deepgramSession) readPump(handler EventHandler) {
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if !s.isClosed() {
				log.Printf("[Deepgram] read error: %v", err)
			}
			s.markClosed()
			return
		}

		var resp deepgramResponse
		if err := json.Unmarshal(message, &resp); err != nil {
			log.Printf("[Deepgram] failed to parse response: %v", err)
			continue
		}
		if len(resp.Channel.Alternatives) == 0 {
			continue
		}
		alt := resp.Channel.Alternatives[0]
		if alt.Transcript == "" {
			continue
		}

		speaker := -1
		if len(alt.Words) > 0 && alt.Words[0].Speaker != nil {
			speaker = *alt.Words[0].Speaker
		}
		handler(Event{
			Transcript: alt.Transcript,
			Confidence: alt.Confidence,
			IsFinal:    resp.IsFinal,
			Speaker:    speaker,
		})
	}
}

func (s *deepgramSession) Send(audio []byte) error {
	if len(audio) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("deepgram stream is closed")
	}
	if err := s.conn.WriteMessage(gws.BinaryMessage, audio); err != nil {
		s.closed = true
		return fmt.Errorf("deepgram write error: %w", err)
	}
	return nil
}

func (s *deepgramSession) Ready() bool {
	return !s.isClosed()
}

func (s *deepgramSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	// Best-effort close handshake before dropping the socket.
	_ = s.conn.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, "session ended"))
	return s.conn.Close()
}

func (s *deepgramSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *deepgramSession) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
