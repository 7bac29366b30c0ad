package repository

import (
	"context"

	"scribe/internal/model"
)

// TranscriptRepository defines the interface for finalized transcript
// segment data access. Only non-partial segments ever reach it.
type TranscriptRepository interface {
	// SaveSegment persists a finalized segment
	SaveSegment(ctx context.Context, seg *model.TranscriptSegment) error

	// ListByEncounter retrieves segments for an encounter, ordered by
	// timestamp, with pagination
	ListByEncounter(ctx context.Context, encounterID string, limit, offset int) ([]model.TranscriptSegment, error)

	// CountByEncounter returns the number of finalized segments for an encounter
	CountByEncounter(ctx context.Context, encounterID string) (int, error)
}

// EncounterRepository is the narrow interface to the encounter record
// owner: it can append a recording descriptor by encounter id and read the
// descriptors back. The encounter document schema itself is not owned here.
type EncounterRepository interface {
	// AppendRecording appends a recording descriptor to the encounter record
	AppendRecording(ctx context.Context, encounterID string, rec model.RecordingDescriptor) error

	// ListRecordings retrieves the recording descriptors for an encounter
	ListRecordings(ctx context.Context, encounterID string) ([]model.RecordingDescriptor, error)
}
