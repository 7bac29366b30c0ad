// Package recording turns a live, possibly unreliable stream of audio
// chunks into one sealed object in durable storage via multipart upload.
// All flush decisions are reconstructable from the persisted session; only
// the not-yet-flushed bytes live in this process, in an explicit per-session
// buffer registry with teardown on stop.
package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"scribe/internal/model"
	"scribe/internal/repository"
	"scribe/internal/session"
	"scribe/internal/storage"
)

// Domain errors, distinct from infrastructure failures.
var (
	// ErrNoAudio means stop was called before any byte was captured.
	// Completing the upload would silently produce an unusable empty
	// object, so this is surfaced instead.
	ErrNoAudio = errors.New("no audio captured for recording")

	// ErrConnectionMismatch means a chunk arrived over a connection that
	// does not own the session.
	ErrConnectionMismatch = errors.New("session belongs to a different connection")
)

// Chunk acknowledgement statuses.
const (
	StatusBuffered  = "buffered"
	StatusFlushed   = "part-uploaded"
	StatusPaused    = "paused"
	StatusDuplicate = "duplicate"
)

// Coordinator implements the recording upload flow. It holds no cross-chunk
// state beyond the pending-byte registry: everything needed to decide the
// next flush is rehydrated from the session store on every call.
type Coordinator struct {
	store       session.Store
	uploader    storage.Uploader
	encounters  repository.EncounterRepository
	retry       session.RetryPolicy
	minPartSize int
	ttl         time.Duration

	mu      sync.Mutex
	pending map[string]*bytes.Buffer // sessionID -> bytes not yet flushed as a part
}

func NewCoordinator(store session.Store, uploader storage.Uploader, encounters repository.EncounterRepository,
	retry session.RetryPolicy, minPartSize int, ttl time.Duration) *Coordinator {
	return &Coordinator{
		store:       store,
		uploader:    uploader,
		encounters:  encounters,
		retry:       retry,
		minPartSize: minPartSize,
		ttl:         ttl,
		pending:     make(map[string]*bytes.Buffer),
	}
}

// StartResult is the acknowledgement for a started recording.
type StartResult struct {
	SessionID string
	ObjectKey string
}

// StartRecording opens a multipart upload at a key derived from the
// encounter and session ids and persists a fresh session.
func (c *Coordinator) StartRecording(ctx context.Context, connectionID, encounterID string, meta model.RecordingMetadata) (*StartResult, error) {
	sessionID := uuid.NewString()
	objectKey := fmt.Sprintf("recordings/%s/%s%s", encounterID, sessionID, extensionFor(meta.MimeType))

	uploadID, err := c.uploader.CreateUpload(ctx, objectKey, meta.MimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to open multipart upload: %w", err)
	}

	sess := &model.RecordingSession{
		SessionID:          sessionID,
		ConnectionID:       connectionID,
		EncounterID:        encounterID,
		StartTime:          time.Now().UTC(),
		UploadHandle:       uploadID,
		ObjectKey:          objectKey,
		LastSequenceNumber: -1,
		ExpiresAt:          time.Now().Add(c.ttl).Unix(),
	}
	if err := c.store.PutRecording(ctx, sess); err != nil {
		// Don't leak the upload when the session never became durable.
		if abortErr := c.uploader.AbortUpload(ctx, objectKey, uploadID); abortErr != nil {
			log.Printf("[Recorder] failed to abort orphaned upload %s: %v", uploadID, abortErr)
		}
		return nil, fmt.Errorf("failed to persist recording session: %w", err)
	}

	log.Printf("[Recorder] started session %s for encounter %s, key=%s", sessionID, encounterID, objectKey)
	return &StartResult{SessionID: sessionID, ObjectKey: objectKey}, nil
}

// ProcessChunk appends decoded chunk bytes to the session's pending buffer
// and flushes a part once the buffer reaches the minimum part size.
// Duplicate or stale sequence numbers are acknowledged and skipped, never
// fatal; forward gaps are tolerated with a warning and appended in arrival
// order.
func (c *Coordinator) ProcessChunk(ctx context.Context, connectionID, sessionID string, chunk []byte, sequenceNumber int) (string, error) {
	sess, err := c.getWithRetry(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if sess.ConnectionID != connectionID {
		return "", fmt.Errorf("%w: session %s", ErrConnectionMismatch, sessionID)
	}
	if sess.IsPaused {
		return StatusPaused, nil
	}
	if sequenceNumber <= sess.LastSequenceNumber {
		log.Printf("[Recorder] duplicate/stale chunk seq=%d (last=%d) for session %s, skipping",
			sequenceNumber, sess.LastSequenceNumber, sessionID)
		return StatusDuplicate, nil
	}
	if sequenceNumber > sess.LastSequenceNumber+1 {
		log.Printf("[Recorder] non-contiguous chunk seq=%d (last=%d) for session %s, appending in arrival order",
			sequenceNumber, sess.LastSequenceNumber, sessionID)
	}

	buf := c.buffer(sessionID, sess.BufferSize)
	buf.Write(chunk)
	sess.LastSequenceNumber = sequenceNumber

	status := StatusBuffered
	if buf.Len() >= c.minPartSize {
		if err := c.flushPart(ctx, sess, buf); err != nil {
			return "", err
		}
		status = StatusFlushed
	} else {
		sess.BufferSize = buf.Len()
	}

	if err := c.store.UpdateRecording(ctx, sess); err != nil {
		return "", fmt.Errorf("failed to persist chunk bookkeeping: %w", err)
	}
	return status, nil
}

// StopRecording flushes any remaining bytes as a final (possibly
// undersized) part, seals the object, appends a descriptor to the owning
// encounter and deletes the session.
func (c *Coordinator) StopRecording(ctx context.Context, connectionID, sessionID string) (*model.RecordingDescriptor, error) {
	sess, err := c.getWithRetry(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.ConnectionID != connectionID {
		return nil, fmt.Errorf("%w: session %s", ErrConnectionMismatch, sessionID)
	}

	buf := c.buffer(sessionID, sess.BufferSize)
	if buf.Len() > 0 {
		if err := c.flushPart(ctx, sess, buf); err != nil {
			return nil, err
		}
	}

	if len(sess.Parts) == 0 {
		if abortErr := c.uploader.AbortUpload(ctx, sess.ObjectKey, sess.UploadHandle); abortErr != nil {
			log.Printf("[Recorder] failed to abort empty upload for session %s: %v", sessionID, abortErr)
		}
		c.cleanup(ctx, sessionID)
		return nil, fmt.Errorf("%w: session %s", ErrNoAudio, sessionID)
	}

	parts := make([]storage.Part, 0, len(sess.Parts))
	for _, p := range sess.Parts {
		parts = append(parts, storage.Part{PartNumber: p.PartNumber, Checksum: p.Checksum})
	}
	if err := c.uploader.CompleteUpload(ctx, sess.ObjectKey, sess.UploadHandle, parts); err != nil {
		return nil, fmt.Errorf("failed to complete multipart upload: %w", err)
	}

	desc := model.RecordingDescriptor{
		RecordingID:     uuid.NewString(),
		SessionID:       sessionID,
		Type:            "audio",
		ObjectKey:       sess.ObjectKey,
		DurationSeconds: int(time.Since(sess.StartTime).Seconds()),
		CreatedAt:       time.Now().UTC(),
	}
	if err := c.encounters.AppendRecording(ctx, sess.EncounterID, desc); err != nil {
		return nil, fmt.Errorf("failed to append recording to encounter %s: %w", sess.EncounterID, err)
	}

	c.cleanup(ctx, sessionID)
	log.Printf("[Recorder] sealed %s: %d parts, %ds", sess.ObjectKey, len(sess.Parts), desc.DurationSeconds)
	return &desc, nil
}

// UpdateRecordingStatus toggles pause/resume. Already-buffered bytes are
// unaffected.
func (c *Coordinator) UpdateRecordingStatus(ctx context.Context, connectionID, sessionID string, isPaused bool) (string, error) {
	sess, err := c.getWithRetry(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if sess.ConnectionID != connectionID {
		return "", fmt.Errorf("%w: session %s", ErrConnectionMismatch, sessionID)
	}
	sess.IsPaused = isPaused
	if err := c.store.UpdateRecording(ctx, sess); err != nil {
		return "", fmt.Errorf("failed to persist pause state: %w", err)
	}
	if isPaused {
		return "paused", nil
	}
	return "recording", nil
}

// Cleanup drops the pending buffer for a session that ended without a clean
// stop. The durable session ages out via its TTL.
func (c *Coordinator) Cleanup(sessionID string) {
	c.mu.Lock()
	delete(c.pending, sessionID)
	c.mu.Unlock()
}

func (c *Coordinator) getWithRetry(ctx context.Context, sessionID string) (*model.RecordingSession, error) {
	var sess *model.RecordingSession
	err := c.retry.Do(ctx, func() error {
		var getErr error
		sess, getErr = c.store.GetRecording(ctx, sessionID)
		return getErr
	})
	return sess, err
}

// flushPart uploads the buffered bytes as the next part and clears the
// buffer. Part numbers are assigned from the persisted part list, so they
// stay contiguous from 1 regardless of chunk arrival order.
func (c *Coordinator) flushPart(ctx context.Context, sess *model.RecordingSession, buf *bytes.Buffer) error {
	partNumber := int32(len(sess.Parts) + 1)
	checksum, err := c.uploader.UploadPart(ctx, sess.ObjectKey, sess.UploadHandle, partNumber, buf.Bytes())
	if err != nil {
		return fmt.Errorf("failed to upload part %d: %w", partNumber, err)
	}
	sess.Parts = append(sess.Parts, model.PartDescriptor{PartNumber: partNumber, Checksum: checksum})
	buf.Reset()
	sess.BufferSize = 0
	return nil
}

// buffer returns the pending buffer for a session, creating it when absent.
// persistedSize is the bufferSize mirror from the session store; a mismatch
// means the process that buffered those bytes is gone, which is logged
// rather than papered over.
func (c *Coordinator) buffer(sessionID string, persistedSize int) *bytes.Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, ok := c.pending[sessionID]
	if !ok {
		buf = &bytes.Buffer{}
		c.pending[sessionID] = buf
		if persistedSize > 0 {
			log.Printf("[Recorder] session %s reports %d pending bytes but local buffer is empty; bytes buffered by a previous worker are lost",
				sessionID, persistedSize)
		}
	}
	return buf
}

func (c *Coordinator) cleanup(ctx context.Context, sessionID string) {
	if err := c.store.DeleteRecording(ctx, sessionID); err != nil {
		log.Printf("[Recorder] failed to delete session %s: %v", sessionID, err)
	}
	c.Cleanup(sessionID)
}

// extensionFor derives the object key extension from the client-declared
// mime type. The mapping is fixed so keys stay deterministic across
// deployments; unknown types fall back to webm, the browser default.
func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/webm", "video/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/mp4", "audio/m4a":
		return ".m4a"
	default:
		return ".webm"
	}
}
