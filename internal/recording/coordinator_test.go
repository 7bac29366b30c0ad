package recording

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"scribe/internal/model"
	"scribe/internal/repository"
	"scribe/internal/session"
	"scribe/internal/storage"
)

const testMinPart = 8 // bytes; production uses the provider's 5 MiB minimum

type fixture struct {
	coord    *Coordinator
	store    *session.MemoryStore
	uploader *storage.MemoryUploader
	repo     *repository.MemoryRepository
}

func newFixture() *fixture {
	store := session.NewMemoryStore()
	uploader := storage.NewMemoryUploader()
	repo := repository.NewMemoryRepository()
	coord := NewCoordinator(store, uploader, repo, session.RetryPolicy{}, testMinPart, time.Hour)
	return &fixture{coord: coord, store: store, uploader: uploader, repo: repo}
}

func TestBelowThresholdStillProducesOnePart(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	started, err := f.coord.StartRecording(ctx, "conn-1", "E1", model.RecordingMetadata{MimeType: "audio/webm"})
	if err != nil {
		t.Fatalf("StartRecording: %v", err)
	}

	// Total bytes stay well under the minimum part size.
	for seq, chunk := range [][]byte{[]byte("ab"), []byte("cd")} {
		status, err := f.coord.ProcessChunk(ctx, "conn-1", started.SessionID, chunk, seq)
		if err != nil {
			t.Fatalf("ProcessChunk %d: %v", seq, err)
		}
		if status != StatusBuffered {
			t.Errorf("chunk %d status = %q, want buffered", seq, status)
		}
	}

	desc, err := f.coord.StopRecording(ctx, "conn-1", started.SessionID)
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if desc.ObjectKey != started.ObjectKey {
		t.Errorf("descriptor key = %q, want %q", desc.ObjectKey, started.ObjectKey)
	}

	object, err := f.uploader.GetObject(ctx, started.ObjectKey)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if !bytes.Equal(object, []byte("abcd")) {
		t.Errorf("object = %q, want abcd", object)
	}
}

func TestPartsFlushAtThresholdAndStayContiguous(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	started, _ := f.coord.StartRecording(ctx, "conn-1", "E1", model.RecordingMetadata{})

	big := bytes.Repeat([]byte("x"), testMinPart)
	for seq := 0; seq < 3; seq++ {
		status, err := f.coord.ProcessChunk(ctx, "conn-1", started.SessionID, big, seq)
		if err != nil {
			t.Fatalf("ProcessChunk %d: %v", seq, err)
		}
		if status != StatusFlushed {
			t.Errorf("chunk %d status = %q, want part-uploaded", seq, status)
		}
	}

	sess, err := f.store.GetRecording(ctx, started.SessionID)
	if err != nil {
		t.Fatalf("GetRecording: %v", err)
	}
	for i, p := range sess.Parts {
		if p.PartNumber != int32(i+1) {
			t.Errorf("part %d has number %d, want %d", i, p.PartNumber, i+1)
		}
	}

	if _, err := f.coord.StopRecording(ctx, "conn-1", started.SessionID); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	object, _ := f.uploader.GetObject(ctx, started.ObjectKey)
	if len(object) != 3*testMinPart {
		t.Errorf("object size = %d, want %d", len(object), 3*testMinPart)
	}
}

func TestDuplicateChunkNeverProducesSecondPart(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	started, _ := f.coord.StartRecording(ctx, "conn-1", "E1", model.RecordingMetadata{})

	big := bytes.Repeat([]byte("y"), testMinPart)
	if _, err := f.coord.ProcessChunk(ctx, "conn-1", started.SessionID, big, 0); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	status, err := f.coord.ProcessChunk(ctx, "conn-1", started.SessionID, big, 0)
	if err != nil {
		t.Fatalf("re-delivery: %v", err)
	}
	if status != StatusDuplicate {
		t.Errorf("re-delivery status = %q, want duplicate", status)
	}

	sess, _ := f.store.GetRecording(ctx, started.SessionID)
	if len(sess.Parts) != 1 {
		t.Fatalf("parts = %d, want 1", len(sess.Parts))
	}

	if _, err := f.coord.StopRecording(ctx, "conn-1", started.SessionID); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	object, _ := f.uploader.GetObject(ctx, started.ObjectKey)
	if len(object) != testMinPart {
		t.Errorf("object size = %d, want %d (duplicate bytes must not be appended)", len(object), testMinPart)
	}
}

func TestSequenceGapToleratedInArrivalOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	started, _ := f.coord.StartRecording(ctx, "conn-1", "E1", model.RecordingMetadata{})

	if _, err := f.coord.ProcessChunk(ctx, "conn-1", started.SessionID, []byte("aa"), 0); err != nil {
		t.Fatalf("chunk 0: %v", err)
	}
	// seq 1 never arrives; seq 2 is accepted with a warning, not rejected
	status, err := f.coord.ProcessChunk(ctx, "conn-1", started.SessionID, []byte("bb"), 2)
	if err != nil {
		t.Fatalf("chunk 2: %v", err)
	}
	if status != StatusBuffered {
		t.Errorf("gapped chunk status = %q, want buffered", status)
	}

	if _, err := f.coord.StopRecording(ctx, "conn-1", started.SessionID); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	object, _ := f.uploader.GetObject(ctx, started.ObjectKey)
	if !bytes.Equal(object, []byte("aabb")) {
		t.Errorf("object = %q, want aabb", object)
	}
}

func TestPausedChunksAreNotBuffered(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	started, _ := f.coord.StartRecording(ctx, "conn-1", "E1", model.RecordingMetadata{})

	if _, err := f.coord.ProcessChunk(ctx, "conn-1", started.SessionID, []byte("keep"), 0); err != nil {
		t.Fatalf("chunk 0: %v", err)
	}
	if _, err := f.coord.UpdateRecordingStatus(ctx, "conn-1", started.SessionID, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	status, err := f.coord.ProcessChunk(ctx, "conn-1", started.SessionID, []byte("drop"), 1)
	if err != nil {
		t.Fatalf("paused chunk: %v", err)
	}
	if status != StatusPaused {
		t.Errorf("paused chunk status = %q, want paused", status)
	}
	if _, err := f.coord.UpdateRecordingStatus(ctx, "conn-1", started.SessionID, false); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if _, err := f.coord.ProcessChunk(ctx, "conn-1", started.SessionID, []byte("also"), 2); err != nil {
		t.Fatalf("chunk 2: %v", err)
	}

	if _, err := f.coord.StopRecording(ctx, "conn-1", started.SessionID); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	object, _ := f.uploader.GetObject(ctx, started.ObjectKey)
	if !bytes.Equal(object, []byte("keepalso")) {
		t.Errorf("object = %q, want keepalso", object)
	}
}

func TestStopWithNoAudioIsDomainError(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	started, _ := f.coord.StartRecording(ctx, "conn-1", "E1", model.RecordingMetadata{})

	_, err := f.coord.StopRecording(ctx, "conn-1", started.SessionID)
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("StopRecording: got %v, want ErrNoAudio", err)
	}
	if f.uploader.OpenUploads() != 0 {
		t.Errorf("OpenUploads = %d, want 0 (empty upload must be aborted)", f.uploader.OpenUploads())
	}
	if _, err := f.store.GetRecording(ctx, started.SessionID); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("session should be deleted, got err %v", err)
	}
	recs, _ := f.repo.ListRecordings(ctx, "E1")
	if len(recs) != 0 {
		t.Errorf("no descriptor should be appended for an empty recording, got %d", len(recs))
	}
}

func TestConnectionMismatchRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	started, _ := f.coord.StartRecording(ctx, "conn-1", "E1", model.RecordingMetadata{})

	_, err := f.coord.ProcessChunk(ctx, "conn-2", started.SessionID, []byte("x"), 0)
	if !errors.Is(err, ErrConnectionMismatch) {
		t.Errorf("ProcessChunk: got %v, want ErrConnectionMismatch", err)
	}
	_, err = f.coord.StopRecording(ctx, "conn-2", started.SessionID)
	if !errors.Is(err, ErrConnectionMismatch) {
		t.Errorf("StopRecording: got %v, want ErrConnectionMismatch", err)
	}
}

func TestChunkAfterStopIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	started, _ := f.coord.StartRecording(ctx, "conn-1", "E1", model.RecordingMetadata{})
	if _, err := f.coord.ProcessChunk(ctx, "conn-1", started.SessionID, []byte("x"), 0); err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if _, err := f.coord.StopRecording(ctx, "conn-1", started.SessionID); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}

	_, err := f.coord.ProcessChunk(ctx, "conn-1", started.SessionID, []byte("late"), 1)
	if !errors.Is(err, session.ErrNotFound) {
		t.Errorf("late chunk: got %v, want ErrNotFound", err)
	}
}

func TestStopAppendsDescriptorWithDuration(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	started, _ := f.coord.StartRecording(ctx, "conn-1", "E1", model.RecordingMetadata{MimeType: "audio/webm"})
	if _, err := f.coord.ProcessChunk(ctx, "conn-1", started.SessionID, []byte("audio"), 0); err != nil {
		t.Fatalf("chunk: %v", err)
	}

	desc, err := f.coord.StopRecording(ctx, "conn-1", started.SessionID)
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if desc.RecordingID == "" {
		t.Error("descriptor has empty recording id")
	}
	if desc.Type != "audio" {
		t.Errorf("descriptor type = %q, want audio", desc.Type)
	}

	recs, _ := f.repo.ListRecordings(ctx, "E1")
	if len(recs) != 1 {
		t.Fatalf("descriptors = %d, want 1", len(recs))
	}
	if recs[0].RecordingID != desc.RecordingID {
		t.Errorf("appended descriptor id mismatch")
	}
}
