package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"sync"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

var _ ports.BlobStore = (*BlobStore)(nil)

type storedBlob struct {
	contentType string
	data        []byte
}

// BlobStore keeps invoice documents in memory.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]storedBlob
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: map[string]storedBlob{}}
}

func (s *BlobStore) Put(_ context.Context, blob ports.Blob) (domain.BlobRef, error) {
	if blob.Key == "" {
		return domain.BlobRef{}, errors.New("blob key is required")
	}
	data := append([]byte(nil), blob.Data...)
	sum := sha256.Sum256(data)
	s.mu.Lock()
	s.blobs[blob.Key] = storedBlob{contentType: blob.ContentType, data: data}
	s.mu.Unlock()
	return domain.BlobRef{
		Key:         blob.Key,
		ContentType: blob.ContentType,
		Size:        int64(len(data)),
		Checksum:    hex.EncodeToString(sum[:]),
	}, nil
}

func (s *BlobStore) Get(_ context.Context, ref domain.BlobRef) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[ref.Key]
	if !ok {
		return nil, ports.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(blob.data)), nil
}

func (s *BlobStore) Delete(_ context.Context, ref domain.BlobRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[ref.Key]; !ok {
		return ports.ErrBlobNotFound
	}
	delete(s.blobs, ref.Key)
	return nil
}

// Len reports how many documents are stored.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
