package model

import "time"

// Session status values for transcription sessions.
const (
	TranscriptionActive    = "active"
	TranscriptionCompleted = "completed"
)

// RecordingMetadata describes the audio a client is about to stream.
type RecordingMetadata struct {
	MimeType   string `json:"mimeType" validate:"omitempty,contains=/"`
	SampleRate int    `json:"sampleRate" validate:"omitempty,gt=0"`
	Channels   int    `json:"channels" validate:"omitempty,gt=0"`
	Language   string `json:"language"`
}

// PartDescriptor records one uploaded part of a multipart upload.
type PartDescriptor struct {
	PartNumber int32  `json:"part_number"`
	Checksum   string `json:"checksum"`
}

// RecordingSession is the durable state of one active recording. It is
// persisted to the session store on every accepted chunk because the compute
// handling the next chunk may have no memory of this one.
type RecordingSession struct {
	SessionID          string           `json:"session_id"`
	ConnectionID       string           `json:"connection_id"`
	EncounterID        string           `json:"encounter_id"`
	StartTime          time.Time        `json:"start_time"`
	UploadHandle       string           `json:"upload_handle"`
	ObjectKey          string           `json:"object_key"`
	Parts              []PartDescriptor `json:"parts"`
	IsPaused           bool             `json:"is_paused"`
	LastSequenceNumber int              `json:"last_sequence_number"`
	BufferSize         int              `json:"buffer_size"`
	ExpiresAt          int64            `json:"expires_at"` // unix seconds, store TTL
}

// TranscriptionSession is the durable state of one transcription activity,
// loosely coupled to a RecordingSession via client-supplied identifiers.
type TranscriptionSession struct {
	SessionID          string     `json:"session_id"`
	ConnectionID       string     `json:"connection_id"`
	EncounterID        string     `json:"encounter_id"`
	StartTime          time.Time  `json:"start_time"`
	EndTime            *time.Time `json:"end_time,omitempty"`
	Status             string     `json:"status"` // active, completed
	Provider           string     `json:"provider"`
	BufferSize         int        `json:"buffer_size"`
	LastProcessedTime  time.Time  `json:"last_processed_time"`
	LastSequenceNumber int        `json:"last_sequence_number"`
	ExpiresAt          int64      `json:"expires_at"`
}
