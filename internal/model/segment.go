package model

import "time"

// Entity is a heuristic clinical annotation attached to a transcript
// segment. It is best-effort keyword/pattern extraction, not clinical NER.
type Entity struct {
	Type  string  `json:"type"` // medication, vital_sign, symptom
	Text  string  `json:"text"`
	Value *string `json:"value,omitempty"`
	Unit  *string `json:"unit,omitempty"`
}

// TranscriptSegment is one attributed piece of transcript. Only non-partial
// segments are ever persisted; partial segments exist solely on the live
// client channel.
type TranscriptSegment struct {
	EncounterID string    `json:"encounter_id"`
	Timestamp   time.Time `json:"timestamp"`
	Text        string    `json:"text"`
	Speaker     string    `json:"speaker"`
	Confidence  float64   `json:"confidence"`
	Entities    []Entity  `json:"entities,omitempty"`
	IsPartial   bool      `json:"is_partial"`
}

// RecordingDescriptor is the lightweight entry appended to an encounter
// record when a recording or transcript is finalized.
type RecordingDescriptor struct {
	RecordingID     string    `json:"recording_id"`
	SessionID       string    `json:"session_id"`
	Type            string    `json:"type"` // audio, transcript
	ObjectKey       string    `json:"object_key,omitempty"`
	DurationSeconds int       `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}
