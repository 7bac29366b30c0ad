package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryUploader implements Uploader in process memory, for single-process
// deployments and tests.
type MemoryUploader struct {
	mu      sync.Mutex
	uploads map[string]*memoryUpload // uploadID -> pending parts
	objects map[string][]byte        // key -> sealed bytes
}

type memoryUpload struct {
	key   string
	parts map[int32][]byte
}

func NewMemoryUploader() *MemoryUploader {
	return &MemoryUploader{
		uploads: make(map[string]*memoryUpload),
		objects: make(map[string][]byte),
	}
}

func (u *MemoryUploader) CreateUpload(_ context.Context, key, _ string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	id := uuid.NewString()
	u.uploads[id] = &memoryUpload{key: key, parts: make(map[int32][]byte)}
	return id, nil
}

func (u *MemoryUploader) UploadPart(_ context.Context, key, uploadID string, partNumber int32, body []byte) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	up, ok := u.uploads[uploadID]
	if !ok || up.key != key {
		return "", fmt.Errorf("no such upload %s for key %s", uploadID, key)
	}
	buf := make([]byte, len(body))
	copy(buf, body)
	up.parts[partNumber] = buf
	sum := md5.Sum(body)
	return hex.EncodeToString(sum[:]), nil
}

func (u *MemoryUploader) CompleteUpload(_ context.Context, key, uploadID string, parts []Part) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	up, ok := u.uploads[uploadID]
	if !ok || up.key != key {
		return fmt.Errorf("no such upload %s for key %s", uploadID, key)
	}
	if len(parts) == 0 {
		return fmt.Errorf("cannot complete upload %s with zero parts", uploadID)
	}
	ordered := make([]Part, len(parts))
	copy(ordered, parts)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].PartNumber < ordered[j].PartNumber })

	var object []byte
	for i, p := range ordered {
		if p.PartNumber != int32(i+1) {
			return fmt.Errorf("part numbers not contiguous: got %d at position %d", p.PartNumber, i+1)
		}
		body, ok := up.parts[p.PartNumber]
		if !ok {
			return fmt.Errorf("part %d was never uploaded", p.PartNumber)
		}
		object = append(object, body...)
	}
	u.objects[key] = object
	delete(u.uploads, uploadID)
	return nil
}

func (u *MemoryUploader) AbortUpload(_ context.Context, key, uploadID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	up, ok := u.uploads[uploadID]
	if !ok || up.key != key {
		return fmt.Errorf("no such upload %s for key %s", uploadID, key)
	}
	delete(u.uploads, uploadID)
	return nil
}

func (u *MemoryUploader) GetObject(_ context.Context, key string) ([]byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	object, ok := u.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such object %s", key)
	}
	out := make([]byte, len(object))
	copy(out, object)
	return out, nil
}

// PutObject seeds a sealed object directly; used by tests and local mode.
func (u *MemoryUploader) PutObject(key string, body []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()
	buf := make([]byte, len(body))
	copy(buf, body)
	u.objects[key] = buf
}

// OpenUploads reports how many multipart uploads are still pending.
func (u *MemoryUploader) OpenUploads() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.uploads)
}
