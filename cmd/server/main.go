package main

import (
	"context"
	"log"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/recording"
	"scribe/internal/repository"
	"scribe/internal/session"
	"scribe/internal/storage"
	"scribe/internal/stt"
	"scribe/internal/transcription"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode (default to release mode)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Durable backends. Without AWS configuration the server runs entirely
	// in process memory, which keeps the whole flow usable locally.
	var (
		store       session.Store
		uploader    storage.Uploader
		transcripts repository.TranscriptRepository
		encounters  repository.EncounterRepository
	)
	if cfg.AWSRegion != "" && cfg.RecordingBucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			log.Fatalf("Failed to load AWS configuration: %v", err)
		}
		dynamoClient := dynamodb.NewFromConfig(awsCfg)
		store = session.NewDynamoStore(dynamoClient, cfg.SessionTable)
		uploader = storage.NewS3Uploader(s3.NewFromConfig(awsCfg), cfg.RecordingBucket)
		repo := repository.NewDynamoRepository(dynamoClient, cfg.TranscriptTable, cfg.EncounterTable)
		transcripts = repo
		encounters = repo
		log.Printf("Using AWS backends: bucket=%s, sessions=%s", cfg.RecordingBucket, cfg.SessionTable)
	} else {
		store = session.NewMemoryStore()
		uploader = storage.NewMemoryUploader()
		repo := repository.NewMemoryRepository()
		transcripts = repo
		encounters = repo
		log.Println("AWS_REGION/RECORDING_BUCKET not set, running with in-memory backends")
	}

	// Speech-to-text providers.
	streaming, err := stt.CreateStreamingProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to create streaming provider: %v", err)
	}
	batch, err := stt.CreateBatchProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to create batch provider: %v", err)
	}

	// One short-delay retry absorbs session-store visibility races.
	retry := session.RetryPolicy{Attempts: 1, Delay: 150 * time.Millisecond}

	recorder := recording.NewCoordinator(store, uploader, encounters, retry, cfg.MinPartSize, cfg.SessionTTL)
	transcriber := transcription.NewCoordinator(store, transcripts, encounters, streaming, batch,
		uploader, retry, cfg.BatchWindow, cfg.BatchMaxBytes, cfg.SessionTTL)

	api.Init(api.NewRouter(recorder, transcriber), transcripts, encounters)

	r := gin.Default()

	// Add CORS middleware for browser clients
	r.Use(corsMiddleware())

	// Register routes
	api.RegisterRoutes(r)

	log.Printf("Scribe backend running on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// corsMiddleware adds CORS headers for browser clients
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
