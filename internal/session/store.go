package session

import (
	"context"
	"errors"

	"scribe/internal/model"
)

// ErrNotFound is returned when a session id has no live record. On the chunk
// path this can be a replication race (the start write not yet visible) and
// is worth one bounded retry; after that it signals a logic error upstream.
var ErrNotFound = errors.New("session not found")

// Store is the durable external key/value store for session metadata (never
// audio bytes). Every invocation reads-modifies-writes through it because no
// in-process state is assumed to survive between chunk deliveries.
//
// All operations are strongly consistent for a single id. Update fails with
// ErrNotFound when the session does not exist. Sessions carry a TTL
// (ExpiresAt) so abandoned sessions age out.
type Store interface {
	PutRecording(ctx context.Context, sess *model.RecordingSession) error
	GetRecording(ctx context.Context, id string) (*model.RecordingSession, error)
	UpdateRecording(ctx context.Context, sess *model.RecordingSession) error
	DeleteRecording(ctx context.Context, id string) error

	PutTranscription(ctx context.Context, sess *model.TranscriptionSession) error
	GetTranscription(ctx context.Context, id string) (*model.TranscriptionSession, error)
	UpdateTranscription(ctx context.Context, sess *model.TranscriptionSession) error
	DeleteTranscription(ctx context.Context, id string) error
}
