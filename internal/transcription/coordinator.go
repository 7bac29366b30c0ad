// Package transcription coordinates live streaming transcription with a
// batch fallback. A live provider connection, when one can be established,
// delivers partial and final segments asynchronously; otherwise audio
// accumulates and is transcribed in batches sized for perceived
// responsiveness. Either way the durable session record in the store is the
// only cross-chunk state that matters.
package transcription

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"scribe/internal/model"
	"scribe/internal/repository"
	"scribe/internal/session"
	"scribe/internal/storage"
	"scribe/internal/stt"
)

// Emitter pushes a segment out to the live client. Partial segments only
// ever travel this path; final segments are persisted as well.
type Emitter func(seg model.TranscriptSegment)

// Coordinator implements the transcription session flow.
type Coordinator struct {
	store         session.Store
	transcripts   repository.TranscriptRepository
	encounters    repository.EncounterRepository
	streaming     stt.StreamingProvider // nil disables live transcription
	batch         stt.BatchProvider     // nil disables batch fallback
	objects       storage.Uploader
	retry         session.RetryPolicy
	batchWindow   time.Duration
	batchMaxBytes int
	ttl           time.Duration

	// Live connections and pending batch buffers, keyed by session id.
	// This registry lives exactly as long as the component holding the
	// client socket; Cleanup tears an entry down explicitly.
	mu   sync.Mutex
	live map[string]*liveState
}

type liveState struct {
	stream   stt.StreamSession
	speakers *speakerTracker
	buf      bytes.Buffer
}

func NewCoordinator(store session.Store, transcripts repository.TranscriptRepository,
	encounters repository.EncounterRepository, streaming stt.StreamingProvider, batch stt.BatchProvider,
	objects storage.Uploader, retry session.RetryPolicy, batchWindow time.Duration, batchMaxBytes int,
	ttl time.Duration) *Coordinator {
	return &Coordinator{
		store:         store,
		transcripts:   transcripts,
		encounters:    encounters,
		streaming:     streaming,
		batch:         batch,
		objects:       objects,
		retry:         retry,
		batchWindow:   batchWindow,
		batchMaxBytes: batchMaxBytes,
		ttl:           ttl,
		live:          make(map[string]*liveState),
	}
}

// StartTranscription creates a transcription session and attempts a live
// provider connection. A failed dial is not an error: the recording goes on
// and transcription falls back to batch.
func (c *Coordinator) StartTranscription(ctx context.Context, connectionID, encounterID string,
	meta model.RecordingMetadata, emit Emitter) (*model.TranscriptionSession, error) {
	sessionID := uuid.NewString()
	now := time.Now().UTC()

	sess := &model.TranscriptionSession{
		SessionID:          sessionID,
		ConnectionID:       connectionID,
		EncounterID:        encounterID,
		StartTime:          now,
		Status:             model.TranscriptionActive,
		LastProcessedTime:  now,
		LastSequenceNumber: -1,
		ExpiresAt:          now.Add(c.ttl).Unix(),
	}

	state := &liveState{speakers: newSpeakerTracker()}
	if c.streaming != nil {
		streamSess, err := c.streaming.Start(ctx, stt.StreamConfig{
			Language:   meta.Language,
			SampleRate: meta.SampleRate,
			Channels:   meta.Channels,
		}, c.eventHandler(encounterID, state, emit))
		if err != nil {
			log.Printf("[Transcriber] live connection failed, will fall back to batch: %v", err)
		} else {
			state.stream = streamSess
			sess.Provider = c.streaming.Name()
		}
	}
	if sess.Provider == "" && c.batch != nil {
		sess.Provider = c.batch.Name()
	}

	if err := c.store.PutTranscription(ctx, sess); err != nil {
		if state.stream != nil {
			_ = state.stream.Close()
		}
		return nil, fmt.Errorf("failed to persist transcription session: %w", err)
	}

	c.mu.Lock()
	c.live[sessionID] = state
	c.mu.Unlock()

	log.Printf("[Transcriber] started session %s for encounter %s, provider=%s, live=%v",
		sessionID, encounterID, sess.Provider, state.stream != nil)
	return sess, nil
}

// eventHandler converts provider events into segments. It runs on the
// provider's read goroutine, so persistence uses a background context.
func (c *Coordinator) eventHandler(encounterID string, state *liveState, emit Emitter) stt.EventHandler {
	return func(ev stt.Event) {
		seg := c.buildSegment(encounterID, state.speakers, ev.Transcript, ev.Speaker, ev.Confidence, !ev.IsFinal)
		if ev.IsFinal {
			if err := c.transcripts.SaveSegment(context.Background(), &seg); err != nil {
				log.Printf("[Transcriber] failed to persist segment for encounter %s: %v", encounterID, err)
			}
		}
		if emit != nil {
			emit(seg)
		}
	}
}

// ProcessAudioChunk handles one decoded audio chunk. Stale re-deliveries
// (sequence number at or below the last accepted) are discarded. With a
// ready live connection the bytes are forwarded and results arrive through
// the event handler; otherwise the chunk accumulates toward a batch call,
// whose segment (if any) is returned synchronously.
func (c *Coordinator) ProcessAudioChunk(ctx context.Context, sessionID string, chunk []byte, sequenceNumber int) (*model.TranscriptSegment, error) {
	sess, err := c.getWithRetry(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == model.TranscriptionCompleted {
		// Stray late chunk: a no-op, not an error.
		return nil, nil
	}
	if sequenceNumber <= sess.LastSequenceNumber {
		return nil, nil
	}
	sess.LastSequenceNumber = sequenceNumber

	state := c.state(sessionID)

	if state.stream != nil {
		if state.stream.Ready() {
			if sendErr := state.stream.Send(chunk); sendErr != nil {
				// Degrade to batch: no live transcript for this chunk,
				// the recording continues uninterrupted.
				log.Printf("[Transcriber] live forward failed for session %s, degrading to batch: %v", sessionID, sendErr)
				_ = state.stream.Close()
				state.stream = nil
			} else {
				if err := c.store.UpdateTranscription(ctx, sess); err != nil {
					return nil, fmt.Errorf("failed to persist chunk bookkeeping: %w", err)
				}
				return nil, nil
			}
		} else {
			state.stream = nil
		}
	}

	state.buf.Write(chunk)
	sess.BufferSize = state.buf.Len()

	var segment *model.TranscriptSegment
	if c.batch != nil && (state.buf.Len() >= c.batchMaxBytes || time.Since(sess.LastProcessedTime) >= c.batchWindow) {
		segment = c.transcribeBuffer(ctx, sess, state)
	}

	if err := c.store.UpdateTranscription(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to persist chunk bookkeeping: %w", err)
	}
	return segment, nil
}

// StopResult is the acknowledgement for a stopped transcription.
type StopResult struct {
	TranscriptCount int
	RecordingID     string
}

// StopTranscription closes any live connection, transcribes remaining
// buffered audio, marks the session completed and removes it, and reports
// the finalized segment count for the encounter.
func (c *Coordinator) StopTranscription(ctx context.Context, sessionID string) (*StopResult, error) {
	sess, err := c.getWithRetry(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	state := c.state(sessionID)
	if state.stream != nil {
		if err := state.stream.Close(); err != nil {
			log.Printf("[Transcriber] error closing live connection for session %s: %v", sessionID, err)
		}
		state.stream = nil
	}

	if c.batch != nil && state.buf.Len() > 0 {
		c.transcribeBuffer(ctx, sess, state)
	}

	now := time.Now().UTC()
	sess.Status = model.TranscriptionCompleted
	sess.EndTime = &now
	if err := c.store.UpdateTranscription(ctx, sess); err != nil {
		log.Printf("[Transcriber] failed to persist completed state for session %s: %v", sessionID, err)
	}

	count, err := c.transcripts.CountByEncounter(ctx, sess.EncounterID)
	if err != nil {
		return nil, fmt.Errorf("failed to count segments for encounter %s: %w", sess.EncounterID, err)
	}

	result := &StopResult{TranscriptCount: count}
	if count > 0 {
		desc := model.RecordingDescriptor{
			RecordingID:     uuid.NewString(),
			SessionID:       sessionID,
			Type:            "transcript",
			DurationSeconds: int(now.Sub(sess.StartTime).Seconds()),
			CreatedAt:       now,
		}
		if err := c.encounters.AppendRecording(ctx, sess.EncounterID, desc); err != nil {
			log.Printf("[Transcriber] failed to append transcript descriptor to encounter %s: %v", sess.EncounterID, err)
		} else {
			result.RecordingID = desc.RecordingID
		}
	}

	if err := c.store.DeleteTranscription(ctx, sessionID); err != nil {
		log.Printf("[Transcriber] failed to delete session %s: %v", sessionID, err)
	}
	c.Cleanup(sessionID)

	log.Printf("[Transcriber] stopped session %s: %d segments for encounter %s", sessionID, count, sess.EncounterID)
	return result, nil
}

// TranscribeFromObject re-transcribes a finished recording object in one
// batch call. Used when live transcription produced zero segments. Segments
// follow provider utterance boundaries when reported, else the whole
// transcript is one segment. A genuinely silent object yields zero segments
// and no error.
func (c *Coordinator) TranscribeFromObject(ctx context.Context, objectKey, encounterID string, emit Emitter) (int, []model.TranscriptSegment, error) {
	if c.batch == nil {
		log.Printf("[Transcriber] no batch provider, skipping re-transcription of %s", objectKey)
		return 0, nil, nil
	}
	audio, err := c.objects.GetObject(ctx, objectKey)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to fetch recording object: %w", err)
	}
	if len(audio) == 0 {
		return 0, nil, nil
	}

	format := strings.TrimPrefix(filepath.Ext(objectKey), ".")
	result, err := c.batch.Transcribe(ctx, audio, format)
	if err != nil {
		return 0, nil, fmt.Errorf("batch re-transcription failed: %w", err)
	}
	if strings.TrimSpace(result.Transcript) == "" {
		return 0, nil, nil
	}

	tracker := newSpeakerTracker()
	var segments []model.TranscriptSegment
	if len(result.Utterances) > 0 {
		for _, u := range result.Utterances {
			segments = append(segments, c.buildSegment(encounterID, tracker, u.Text, u.Speaker, u.Confidence, false))
		}
	} else {
		segments = append(segments, c.buildSegment(encounterID, tracker, result.Transcript, -1, result.Confidence, false))
	}

	for i := range segments {
		if err := c.transcripts.SaveSegment(ctx, &segments[i]); err != nil {
			return 0, nil, fmt.Errorf("failed to persist re-transcribed segment: %w", err)
		}
		if emit != nil {
			emit(segments[i])
		}
	}
	log.Printf("[Transcriber] re-transcribed %s: %d segments", objectKey, len(segments))
	return len(segments), segments, nil
}

// Cleanup closes and drops any live state for a session that ended without
// a clean stop. The durable session ages out via its TTL.
func (c *Coordinator) Cleanup(sessionID string) {
	c.mu.Lock()
	state, ok := c.live[sessionID]
	delete(c.live, sessionID)
	c.mu.Unlock()
	if ok && state.stream != nil {
		_ = state.stream.Close()
	}
}

// transcribeBuffer runs the batch provider over the accumulated bytes and
// resets the window. Provider failure degrades to "no transcript for this
// window" rather than failing the chunk.
func (c *Coordinator) transcribeBuffer(ctx context.Context, sess *model.TranscriptionSession, state *liveState) *model.TranscriptSegment {
	audio := state.buf.Bytes()
	result, err := c.batch.Transcribe(ctx, audio, "webm")
	state.buf.Reset()
	sess.BufferSize = 0
	sess.LastProcessedTime = time.Now().UTC()
	if err != nil {
		log.Printf("[Transcriber] batch transcription failed for session %s: %v", sess.SessionID, err)
		return nil
	}
	text := strings.TrimSpace(result.Transcript)
	if text == "" {
		return nil
	}

	seg := c.buildSegment(sess.EncounterID, state.speakers, text, -1, result.Confidence, false)
	if err := c.transcripts.SaveSegment(ctx, &seg); err != nil {
		log.Printf("[Transcriber] failed to persist segment for session %s: %v", sess.SessionID, err)
		return nil
	}
	return &seg
}

func (c *Coordinator) buildSegment(encounterID string, tracker *speakerTracker, text string, speakerLabel int, confidence float64, isPartial bool) model.TranscriptSegment {
	return model.TranscriptSegment{
		EncounterID: encounterID,
		Timestamp:   time.Now().UTC(),
		Text:        text,
		Speaker:     tracker.Attribute(speakerLabel, text),
		Confidence:  confidence,
		Entities:    ExtractEntities(text),
		IsPartial:   isPartial,
	}
}

// state returns the in-process live state for a session, creating an empty
// one when this process has never seen the session (a fresh worker).
func (c *Coordinator) state(sessionID string) *liveState {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.live[sessionID]
	if !ok {
		state = &liveState{speakers: newSpeakerTracker()}
		c.live[sessionID] = state
	}
	return state
}

func (c *Coordinator) getWithRetry(ctx context.Context, sessionID string) (*model.TranscriptionSession, error) {
	var sess *model.TranscriptionSession
	err := c.retry.Do(ctx, func() error {
		var getErr error
		sess, getErr = c.store.GetTranscription(ctx, sessionID)
		return getErr
	})
	return sess, err
}
