package stt

import "context"

// StreamConfig configures a live transcription connection.
type StreamConfig struct {
	Language   string
	Model      string
	Encoding   string
	SampleRate int
	Channels   int
}

// Event is one live result pushed by a streaming provider. Speaker is the
// provider's diarization label, -1 when diarization gave nothing.
type Event struct {
	Transcript string
	Confidence float64
	IsFinal    bool
	Speaker    int
}

// EventHandler receives streaming events; it runs on the provider's read
// goroutine and must not block.
type EventHandler func(Event)

// StreamingProvider opens live bidirectional transcription connections.
type StreamingProvider interface {
	// Start dials the provider and begins delivering events to handler.
	// The returned session accepts raw audio until Close.
	Start(ctx context.Context, cfg StreamConfig, handler EventHandler) (StreamSession, error)

	// Name returns the name of the provider (e.g., "deepgram")
	Name() string
}

// StreamSession is one open live connection.
type StreamSession interface {
	// Send forwards decoded audio bytes to the provider.
	Send(audio []byte) error

	// Ready reports whether the connection can still accept audio.
	Ready() bool

	// Close ends the stream and releases the underlying socket.
	Close() error
}

// BatchProvider transcribes a complete chunk of audio in one call.
type BatchProvider interface {
	// Transcribe transcribes audio bytes and returns the result. format is
	// a file extension hint such as "webm" or "wav".
	Transcribe(ctx context.Context, audio []byte, format string) (*Result, error)

	// Name returns the name of the provider (e.g., "whisper")
	Name() string
}
