package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"scribe/internal/utils"
)

// getEncounterSegments handles GET /api/encounters/:id/segments
func getEncounterSegments(c *gin.Context) {
	encounterID := c.Param("id")
	if encounterID == "" {
		utils.Error(c, http.StatusBadRequest, "encounter id is required")
		return
	}

	// Parse pagination parameters
	limitStr := c.DefaultQuery("limit", "50")
	offsetStr := c.DefaultQuery("offset", "0")

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200 // Max limit
	}

	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		offset = 0
	}

	segments, err := transcriptRepo.ListByEncounter(c.Request.Context(), encounterID, limit, offset)
	if err != nil {
		log.Printf("Error listing segments for encounter %s: %v", encounterID, err)
		utils.Error(c, http.StatusInternalServerError, "failed to retrieve transcript segments")
		return
	}

	items := make([]gin.H, 0, len(segments))
	for _, seg := range segments {
		item := gin.H{
			"timestamp":  seg.Timestamp,
			"text":       seg.Text,
			"speaker":    seg.Speaker,
			"confidence": seg.Confidence,
		}
		if len(seg.Entities) > 0 {
			item["entities"] = seg.Entities
		}
		items = append(items, item)
	}

	utils.Success(c, gin.H{
		"encounter_id": encounterID,
		"items":        items,
		"limit":        limit,
		"offset":       offset,
		"count":        len(items),
	})
}

// getEncounterRecordings handles GET /api/encounters/:id/recordings
func getEncounterRecordings(c *gin.Context) {
	encounterID := c.Param("id")
	if encounterID == "" {
		utils.Error(c, http.StatusBadRequest, "encounter id is required")
		return
	}

	recordings, err := encounterRepo.ListRecordings(c.Request.Context(), encounterID)
	if err != nil {
		log.Printf("Error listing recordings for encounter %s: %v", encounterID, err)
		utils.Error(c, http.StatusInternalServerError, "failed to retrieve recordings")
		return
	}

	items := make([]gin.H, 0, len(recordings))
	for _, rec := range recordings {
		item := gin.H{
			"recording_id":     rec.RecordingID,
			"session_id":       rec.SessionID,
			"type":             rec.Type,
			"duration_seconds": rec.DurationSeconds,
			"created_at":       rec.CreatedAt,
		}
		if rec.ObjectKey != "" {
			item["object_key"] = rec.ObjectKey
		}
		items = append(items, item)
	}

	utils.Success(c, gin.H{
		"encounter_id": encounterID,
		"items":        items,
		"count":        len(items),
	})
}

// healthCheck handles GET /health
func healthCheck(c *gin.Context) {
	utils.Success(c, gin.H{"status": "ok"})
}
