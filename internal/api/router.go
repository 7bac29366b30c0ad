package api

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"strings"

	"scribe/internal/model"
	"scribe/internal/recording"
	"scribe/internal/session"
	"scribe/internal/transcription"
)

// Connection states for the recording protocol.
type connState int

const (
	stateIdle connState = iota
	stateRecording
	statePaused
)

// Connection is the per-client protocol state machine:
// idle -> recording -> {paused <-> recording} -> idle. Everything durable
// lives in the session store; this struct only tracks which sessions the
// connection currently owns.
type Connection struct {
	ID   string
	send func(v any) error

	state                  connState
	recordingSessionID     string
	transcriptionSessionID string
	objectKey              string
}

// NewConnection wraps a client connection. send delivers one outbound frame
// and may be called from the live-transcript goroutine as well as the read
// loop.
func NewConnection(id string, send func(v any) error) *Connection {
	return &Connection{ID: id, send: send}
}

// Router turns decoded client messages into coordinated calls against the
// recording and transcription coordinators.
type Router struct {
	recorder    *recording.Coordinator
	transcriber *transcription.Coordinator
}

func NewRouter(recorder *recording.Coordinator, transcriber *transcription.Coordinator) *Router {
	return &Router{recorder: recorder, transcriber: transcriber}
}

// HandleMessage processes one raw client frame. Every failure results in a
// single error frame to the client; notification failures are logged, never
// re-thrown.
func (r *Router) HandleMessage(ctx context.Context, conn *Connection, raw []byte) {
	msg, err := DecodeMessage(raw)
	if err != nil {
		r.notifyError(conn, err.Error())
		return
	}

	switch m := msg.(type) {
	case StartRecordingMessage:
		r.handleStart(ctx, conn, m)
	case AudioChunkMessage:
		r.handleChunk(ctx, conn, m)
	case PauseRecordingMessage:
		r.handlePauseResume(ctx, conn, m.SessionID, true)
	case ResumeRecordingMessage:
		r.handlePauseResume(ctx, conn, m.SessionID, false)
	case StopRecordingMessage:
		r.handleStop(ctx, conn, m)
	}
}

func (r *Router) handleStart(ctx context.Context, conn *Connection, m StartRecordingMessage) {
	if conn.state != stateIdle {
		// Rejecting keeps the first session's multipart upload alive and
		// owned; silently replacing it would orphan the upload.
		r.notifyError(conn, "a recording is already in progress on this connection")
		return
	}

	started, err := r.recorder.StartRecording(ctx, conn.ID, m.EncounterID, m.Metadata)
	if err != nil {
		log.Printf("[Router] start-recording failed for connection %s: %v", conn.ID, err)
		r.notifyError(conn, "failed to start recording")
		return
	}
	conn.recordingSessionID = started.SessionID
	conn.objectKey = started.ObjectKey
	conn.state = stateRecording

	frame := recordingStartedFrame{Type: "recording-started", SessionID: started.SessionID}
	if m.EnableTranscription {
		tSess, err := r.transcriber.StartTranscription(ctx, conn.ID, m.EncounterID, m.Metadata, r.segmentEmitter(conn))
		if err != nil {
			// Transcription is best-effort; the recording stands.
			log.Printf("[Router] start-transcription failed for connection %s: %v", conn.ID, err)
		} else {
			conn.transcriptionSessionID = tSess.SessionID
			frame.TranscriptionSessionID = tSess.SessionID
		}
	}

	r.notify(conn, frame)
}

func (r *Router) handleChunk(ctx context.Context, conn *Connection, m AudioChunkMessage) {
	chunk, err := base64.StdEncoding.DecodeString(m.Chunk)
	if err != nil {
		r.notifyError(conn, "chunk is not valid base64")
		return
	}

	status, err := r.recorder.ProcessChunk(ctx, conn.ID, m.SessionID, chunk, m.SequenceNumber)
	ack := chunkReceivedFrame{Type: "chunk-received", SequenceNumber: m.SequenceNumber, Status: status}
	switch {
	case errors.Is(err, session.ErrNotFound):
		// Chunks may still be in flight after stop; a completed session is
		// not an error.
		ack.Late = true
		ack.Status = "late"
	case err != nil:
		log.Printf("[Router] chunk upload failed for session %s seq %d: %v", m.SessionID, m.SequenceNumber, err)
		r.notifyError(conn, "failed to process audio chunk")
		return
	}

	// Transcription runs independently; its duplicate guard may disagree
	// with the recorder's without harming either pipeline.
	tsID := m.TranscriptionSessionID
	if tsID == "" {
		tsID = conn.transcriptionSessionID
	}
	if tsID != "" {
		seg, err := r.transcriber.ProcessAudioChunk(ctx, tsID, chunk, m.SequenceNumber)
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			log.Printf("[Router] transcription chunk failed for session %s seq %d: %v", tsID, m.SequenceNumber, err)
		}
		if seg != nil {
			r.notify(conn, transcriptSegmentFrame{Type: "transcript-segment", Segment: *seg})
		}
	}

	r.notify(conn, ack)
}

func (r *Router) handlePauseResume(ctx context.Context, conn *Connection, sessionID string, pause bool) {
	if conn.state == stateIdle {
		r.notifyError(conn, "no active recording on this connection")
		return
	}
	_, err := r.recorder.UpdateRecordingStatus(ctx, conn.ID, sessionID, pause)
	if err != nil {
		log.Printf("[Router] pause/resume failed for session %s: %v", sessionID, err)
		r.notifyError(conn, "failed to update recording status")
		return
	}
	frameType := "recording-resumed"
	conn.state = stateRecording
	if pause {
		frameType = "recording-paused"
		conn.state = statePaused
	}
	r.notify(conn, recordingStatusFrame{Type: frameType, SessionID: sessionID})
}

func (r *Router) handleStop(ctx context.Context, conn *Connection, m StopRecordingMessage) {
	// The connection returns to idle no matter which stop path fails.
	defer func() {
		conn.state = stateIdle
		conn.recordingSessionID = ""
		conn.transcriptionSessionID = ""
		conn.objectKey = ""
	}()

	// Stop transcription first so its last buffered audio is transcribed
	// before the recording object is sealed.
	transcriptCount := 0
	tsID := m.TranscriptionSessionID
	if tsID == "" {
		tsID = conn.transcriptionSessionID
	}
	transcriptionEnabled := tsID != ""
	var encounterID string
	if transcriptionEnabled {
		stopped, err := r.transcriber.StopTranscription(ctx, tsID)
		if err != nil {
			log.Printf("[Router] stop-transcription failed for session %s: %v", tsID, err)
		} else {
			transcriptCount = stopped.TranscriptCount
		}
	}

	desc, err := r.recorder.StopRecording(ctx, conn.ID, m.SessionID)
	if err != nil {
		log.Printf("[Router] stop-recording failed for session %s: %v", m.SessionID, err)
		switch {
		case errors.Is(err, recording.ErrNoAudio):
			r.notifyError(conn, "no audio was captured in this recording")
		default:
			r.notifyError(conn, "failed to finalize recording")
		}
		return
	}

	// Zero live segments with a sealed object present: re-transcribe the
	// whole object in one batch call.
	encounterID = encounterIDFromKey(desc.ObjectKey)
	if transcriptionEnabled && transcriptCount == 0 {
		count, _, err := r.transcriber.TranscribeFromObject(ctx, desc.ObjectKey, encounterID, r.segmentEmitter(conn))
		if err != nil {
			log.Printf("[Router] batch fallback failed for %s: %v", desc.ObjectKey, err)
		} else {
			transcriptCount = count
		}
	}

	r.notify(conn, recordingStoppedFrame{
		Type:            "recording-stopped",
		RecordingID:     desc.RecordingID,
		Duration:        desc.DurationSeconds,
		ObjectKey:       desc.ObjectKey,
		TranscriptCount: transcriptCount,
	})
}

// HandleDisconnect runs when the client socket dies. An active session is
// stopped best-effort so the multipart upload is not left dangling, and the
// client is told if the socket is somehow still writable.
func (r *Router) HandleDisconnect(ctx context.Context, conn *Connection) {
	if conn.state == stateIdle {
		return
	}
	log.Printf("[Router] connection %s lost with active session %s, auto-stopping", conn.ID, conn.recordingSessionID)

	if conn.transcriptionSessionID != "" {
		if _, err := r.transcriber.StopTranscription(ctx, conn.transcriptionSessionID); err != nil {
			log.Printf("[Router] auto-stop transcription failed: %v", err)
		}
	}

	duration := 0
	desc, err := r.recorder.StopRecording(ctx, conn.ID, conn.recordingSessionID)
	if err != nil {
		log.Printf("[Router] auto-stop recording failed: %v", err)
		r.recorder.Cleanup(conn.recordingSessionID)
	} else {
		duration = desc.DurationSeconds
	}
	if conn.transcriptionSessionID != "" {
		r.transcriber.Cleanup(conn.transcriptionSessionID)
	}

	conn.state = stateIdle
	r.notify(conn, recordingAutoStoppedFrame{
		Type:     "recording-auto-stopped",
		Reason:   "connection lost",
		Duration: duration,
	})
}

// segmentEmitter pushes live transcript segments to the client. It may run
// on a provider read goroutine.
func (r *Router) segmentEmitter(conn *Connection) transcription.Emitter {
	return func(seg model.TranscriptSegment) {
		r.notify(conn, transcriptSegmentFrame{Type: "transcript-segment", Segment: seg})
	}
}

func (r *Router) notify(conn *Connection, frame any) {
	if err := conn.send(frame); err != nil {
		log.Printf("[Router] failed to notify connection %s: %v", conn.ID, err)
	}
}

func (r *Router) notifyError(conn *Connection, message string) {
	r.notify(conn, errorFrame{Type: "error", Message: message})
}

// encounterIDFromKey recovers the encounter id from the deterministic
// object key layout recordings/{encounterId}/{sessionId}.{ext}.
func encounterIDFromKey(key string) string {
	segs := strings.Split(key, "/")
	if len(segs) >= 2 {
		return segs[1]
	}
	return ""
}
