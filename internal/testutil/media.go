package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"orbit/internal/media"
)

// MediaStoreStub is an in-memory media.Store.
type MediaStoreStub struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Err     error
}

// NewMediaStoreStub creates an empty stub store.
func NewMediaStoreStub() *MediaStoreStub {
	return &MediaStoreStub{Objects: make(map[string][]byte)}
}

// Put records the upload under a generated key and returns a fake URL.
func (s *MediaStoreStub) Put(_ context.Context, ownerID uint, u media.Upload) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	key, err := media.ObjectKey(ownerID, u.ContentType)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(u.Body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.Objects[key] = data
	s.mu.Unlock()
	return fmt.Sprintf("https://media.test/%s", key), nil
}
