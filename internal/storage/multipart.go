// Package storage holds the object-storage client used to assemble
// recordings from separately uploaded, ordered parts.
package storage

import "context"

// Part identifies one uploaded part for the completion call.
type Part struct {
	PartNumber int32
	Checksum   string
}

// Uploader is the multipart/resumable upload contract: an object is opened,
// assembled from ordered parts, and sealed by CompleteUpload. AbortUpload
// discards an upload that never produced a usable object. GetObject reads a
// sealed object back for batch re-transcription.
type Uploader interface {
	CreateUpload(ctx context.Context, key, contentType string) (uploadID string, err error)
	UploadPart(ctx context.Context, key, uploadID string, partNumber int32, body []byte) (checksum string, err error)
	CompleteUpload(ctx context.Context, key, uploadID string, parts []Part) error
	AbortUpload(ctx context.Context, key, uploadID string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
}
