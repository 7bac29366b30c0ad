package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"scribe/internal/model"
	"scribe/internal/repository"
)

func newTestEngine(repo *repository.MemoryRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	Init(NewRouter(nil, nil), repo, repo)
	r := gin.New()
	RegisterRoutes(r)
	return r
}

func getJSON(t *testing.T, r *gin.Engine, path string) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, w.Body.String())
	}
	return w.Code, body
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestEngine(repository.NewMemoryRepository())

	code, body := getJSON(t, r, "/health")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["success"] != true {
		t.Errorf("body = %+v", body)
	}
}

func TestGetEncounterSegments(t *testing.T) {
	repo := repository.NewMemoryRepository()
	ctx := context.Background()
	for _, text := range []string{"first", "second", "third"} {
		seg := model.TranscriptSegment{
			EncounterID: "E1",
			Timestamp:   time.Now().UTC(),
			Text:        text,
			Speaker:     "Clinician",
			Confidence:  0.9,
		}
		if err := repo.SaveSegment(ctx, &seg); err != nil {
			t.Fatalf("SaveSegment: %v", err)
		}
	}
	r := newTestEngine(repo)

	code, body := getJSON(t, r, "/api/encounters/E1/segments?limit=2")
	if code != http.StatusOK {
		t.Fatalf("status = %d, body %+v", code, body)
	}
	data := body["data"].(map[string]any)
	items := data["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2 (limit applied)", len(items))
	}
	first := items[0].(map[string]any)
	if first["text"] != "first" || first["speaker"] != "Clinician" {
		t.Errorf("first item = %+v", first)
	}

	// Second page.
	_, body = getJSON(t, r, "/api/encounters/E1/segments?limit=2&offset=2")
	data = body["data"].(map[string]any)
	items = data["items"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["text"] != "third" {
		t.Errorf("page 2 items = %+v", items)
	}
}

func TestGetEncounterSegmentsClampsPagination(t *testing.T) {
	r := newTestEngine(repository.NewMemoryRepository())

	_, body := getJSON(t, r, "/api/encounters/E1/segments?limit=9999&offset=-5")
	data := body["data"].(map[string]any)
	if data["limit"].(float64) != 200 {
		t.Errorf("limit = %v, want clamped to 200", data["limit"])
	}
	if data["offset"].(float64) != 0 {
		t.Errorf("offset = %v, want clamped to 0", data["offset"])
	}
}

func TestGetEncounterRecordings(t *testing.T) {
	repo := repository.NewMemoryRepository()
	err := repo.AppendRecording(context.Background(), "E1", model.RecordingDescriptor{
		RecordingID:     "rec-1",
		SessionID:       "s1",
		Type:            "audio",
		ObjectKey:       "recordings/E1/s1.webm",
		DurationSeconds: 42,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("AppendRecording: %v", err)
	}
	r := newTestEngine(repo)

	code, body := getJSON(t, r, "/api/encounters/E1/recordings")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	data := body["data"].(map[string]any)
	items := data["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	item := items[0].(map[string]any)
	if item["recording_id"] != "rec-1" || item["type"] != "audio" || item["object_key"] != "recordings/E1/s1.webm" {
		t.Errorf("item = %+v", item)
	}
	if item["duration_seconds"].(float64) != 42 {
		t.Errorf("duration = %v, want 42", item["duration_seconds"])
	}
}
