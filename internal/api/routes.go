package api

import (
	"log"

	"github.com/gin-gonic/gin"

	"scribe/internal/repository"
)

// Shared instances for the package's handlers, set once at startup.
var (
	wsRouter       *Router
	transcriptRepo repository.TranscriptRepository
	encounterRepo  repository.EncounterRepository
)

// Init wires the package's handlers to their backends.
func Init(router *Router, transcripts repository.TranscriptRepository, encounters repository.EncounterRepository) {
	wsRouter = router
	transcriptRepo = transcripts
	encounterRepo = encounters
	log.Printf("API handlers initialized")
}

// RegisterRoutes registers all HTTP and WebSocket routes
func RegisterRoutes(r *gin.Engine) {
	r.GET("/health", healthCheck)
	r.GET("/record", handleRecordStream)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/encounters/:id/segments", getEncounterSegments)
		apiGroup.GET("/encounters/:id/recordings", getEncounterRecordings)
	}
}
