package session

import (
	"context"
	"sync"
	"time"

	"scribe/internal/model"
)

// MemoryStore is an in-process Store for single-process deployments and
// tests. Expiry is lazy: a record past its ExpiresAt is treated as absent.
type MemoryStore struct {
	mu             sync.Mutex
	recordings     map[string]model.RecordingSession
	transcriptions map[string]model.TranscriptionSession
	now            func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recordings:     make(map[string]model.RecordingSession),
		transcriptions: make(map[string]model.TranscriptionSession),
		now:            time.Now,
	}
}

func (s *MemoryStore) expired(expiresAt int64) bool {
	return expiresAt > 0 && s.now().Unix() >= expiresAt
}

func (s *MemoryStore) PutRecording(_ context.Context, sess *model.RecordingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordings[sess.SessionID] = cloneRecording(sess)
	return nil
}

func (s *MemoryStore) GetRecording(_ context.Context, id string) (*model.RecordingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.recordings[id]
	if !ok || s.expired(sess.ExpiresAt) {
		return nil, ErrNotFound
	}
	out := cloneRecording(&sess)
	return &out, nil
}

func (s *MemoryStore) UpdateRecording(_ context.Context, sess *model.RecordingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.recordings[sess.SessionID]
	if !ok || s.expired(existing.ExpiresAt) {
		return ErrNotFound
	}
	s.recordings[sess.SessionID] = cloneRecording(sess)
	return nil
}

func (s *MemoryStore) DeleteRecording(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recordings, id)
	return nil
}

func (s *MemoryStore) PutTranscription(_ context.Context, sess *model.TranscriptionSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcriptions[sess.SessionID] = *sess
	return nil
}

func (s *MemoryStore) GetTranscription(_ context.Context, id string) (*model.TranscriptionSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.transcriptions[id]
	if !ok || s.expired(sess.ExpiresAt) {
		return nil, ErrNotFound
	}
	out := sess
	return &out, nil
}

func (s *MemoryStore) UpdateTranscription(_ context.Context, sess *model.TranscriptionSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.transcriptions[sess.SessionID]
	if !ok || s.expired(existing.ExpiresAt) {
		return ErrNotFound
	}
	s.transcriptions[sess.SessionID] = *sess
	return nil
}

func (s *MemoryStore) DeleteTranscription(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transcriptions, id)
	return nil
}

// cloneRecording copies the parts slice so callers cannot mutate stored
// state through a returned session.
func cloneRecording(sess *model.RecordingSession) model.RecordingSession {
	out := *sess
	if sess.Parts != nil {
		out.Parts = make([]model.PartDescriptor, len(sess.Parts))
		copy(out.Parts, sess.Parts)
	}
	return out
}
