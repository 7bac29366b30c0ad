package repository

import (
	"context"
	"sync"

	"scribe/internal/model"
)

// MemoryRepository backs both repository interfaces with process memory,
// for single-process deployments and tests.
type MemoryRepository struct {
	mu         sync.Mutex
	segments   map[string][]model.TranscriptSegment   // encounterID -> segments in save order
	recordings map[string][]model.RecordingDescriptor // encounterID -> descriptors
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		segments:   make(map[string][]model.TranscriptSegment),
		recordings: make(map[string][]model.RecordingDescriptor),
	}
}

func (r *MemoryRepository) SaveSegment(_ context.Context, seg *model.TranscriptSegment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segments[seg.EncounterID] = append(r.segments[seg.EncounterID], *seg)
	return nil
}

func (r *MemoryRepository) ListByEncounter(_ context.Context, encounterID string, limit, offset int) ([]model.TranscriptSegment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.segments[encounterID]
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	out := make([]model.TranscriptSegment, end-offset)
	copy(out, all[offset:end])
	return out, nil
}

func (r *MemoryRepository) CountByEncounter(_ context.Context, encounterID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.segments[encounterID]), nil
}

func (r *MemoryRepository) AppendRecording(_ context.Context, encounterID string, rec model.RecordingDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordings[encounterID] = append(r.recordings[encounterID], rec)
	return nil
}

func (r *MemoryRepository) ListRecordings(_ context.Context, encounterID string) ([]model.RecordingDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.RecordingDescriptor, len(r.recordings[encounterID]))
	copy(out, r.recordings[encounterID])
	return out, nil
}
