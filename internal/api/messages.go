package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"scribe/internal/model"
)

// ErrUnknownMessageType marks a protocol error: the message carried a type
// discriminator this server does not speak.
var ErrUnknownMessageType = errors.New("unknown message type")

var validate = validator.New()

// Inbound message kinds. The wire format is JSON with a `type`
// discriminator; each kind is decoded once at this boundary into its own
// struct carrying only its relevant fields.
type StartRecordingMessage struct {
	EncounterID         string                  `json:"encounterId" validate:"required"`
	Metadata            model.RecordingMetadata `json:"metadata"`
	EnableTranscription bool                    `json:"enableTranscription"`
}

type AudioChunkMessage struct {
	SessionID              string `json:"sessionId" validate:"required"`
	Chunk                  string `json:"chunk" validate:"required,base64"`
	SequenceNumber         int    `json:"sequenceNumber" validate:"gte=0"`
	TranscriptionSessionID string `json:"transcriptionSessionId"`
}

type StopRecordingMessage struct {
	SessionID              string `json:"sessionId" validate:"required"`
	TranscriptionSessionID string `json:"transcriptionSessionId"`
}

type PauseRecordingMessage struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type ResumeRecordingMessage struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// DecodeMessage parses one client frame into its typed variant.
func DecodeMessage(data []byte) (any, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	switch head.Type {
	case "start-recording":
		var m StartRecordingMessage
		return decodeInto(data, &m)
	case "audio-chunk":
		var m AudioChunkMessage
		return decodeInto(data, &m)
	case "stop-recording":
		var m StopRecordingMessage
		return decodeInto(data, &m)
	case "pause-recording":
		var m PauseRecordingMessage
		return decodeInto(data, &m)
	case "resume-recording":
		var m ResumeRecordingMessage
		return decodeInto(data, &m)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, head.Type)
	}
}

func decodeInto[T any](data []byte, m *T) (T, error) {
	if err := json.Unmarshal(data, m); err != nil {
		return *m, fmt.Errorf("malformed message body: %w", err)
	}
	if err := validate.Struct(m); err != nil {
		return *m, fmt.Errorf("invalid message: %w", err)
	}
	return *m, nil
}

// Outbound frames.
type recordingStartedFrame struct {
	Type                   string `json:"type"`
	SessionID              string `json:"sessionId"`
	TranscriptionSessionID string `json:"transcriptionSessionId,omitempty"`
}

type chunkReceivedFrame struct {
	Type           string `json:"type"`
	SequenceNumber int    `json:"sequenceNumber"`
	Status         string `json:"status"`
	Late           bool   `json:"late,omitempty"`
}

type transcriptSegmentFrame struct {
	Type    string                  `json:"type"`
	Segment model.TranscriptSegment `json:"segment"`
}

type recordingStoppedFrame struct {
	Type            string `json:"type"`
	RecordingID     string `json:"recordingId"`
	Duration        int    `json:"duration"`
	ObjectKey       string `json:"objectKey"`
	TranscriptCount int    `json:"transcriptCount"`
}

type recordingAutoStoppedFrame struct {
	Type     string `json:"type"`
	Reason   string `json:"reason"`
	Duration int    `json:"duration"`
}

type recordingStatusFrame struct {
	Type      string `json:"type"` // recording-paused / recording-resumed
	SessionID string `json:"sessionId"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
