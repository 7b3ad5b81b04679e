package postgres

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

var _ ports.BlobStore = (*BlobStore)(nil)

// BlobStore keeps invoice PDFs in a bytea table next to the orders.
type BlobStore struct {
	db *gorm.DB
}

func NewBlobStore(db *gorm.DB) *BlobStore {
	return &BlobStore{db: db}
}

func (s *BlobStore) Put(ctx context.Context, blob ports.Blob) (domain.BlobRef, error) {
	if err := s.ensureDB(); err != nil {
		return domain.BlobRef{}, err
	}
	if blob.Key == "" {
		return domain.BlobRef{}, errors.New("blob key is required")
	}
	sum := sha256.Sum256(blob.Data)
	record := blobRecord{
		Key:         blob.Key,
		ContentType: blob.ContentType,
		Data:        blob.Data,
		Size:        int64(len(blob.Data)),
		Checksum:    hex.EncodeToString(sum[:]),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"content_type", "data", "size", "checksum"}),
	}).Create(&record).Error; err != nil {
		return domain.BlobRef{}, err
	}
	return domain.BlobRef{
		Key:         record.Key,
		ContentType: record.ContentType,
		Size:        record.Size,
		Checksum:    record.Checksum,
	}, nil
}

func (s *BlobStore) Get(ctx context.Context, ref domain.BlobRef) (io.ReadCloser, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record blobRecord
	if err := s.db.WithContext(ctx).First(&record, "key = ?", ref.Key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrBlobNotFound
		}
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(record.Data)), nil
}

func (s *BlobStore) Delete(ctx context.Context, ref domain.BlobRef) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Delete(&blobRecord{}, "key = ?", ref.Key)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrBlobNotFound
	}
	return nil
}

func (s *BlobStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres blob store not configured")
	}
	return nil
}
