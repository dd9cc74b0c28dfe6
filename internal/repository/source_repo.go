package repository

import (
	"context"
	"errors"

	"github.com/timmy/catalogsync/internal/domain"
	"gorm.io/gorm"
)

// SourceRepository persists the feed source settings.
type SourceRepository struct {
	db *gorm.DB
}

// NewSourceRepository creates a new SourceRepository.
func NewSourceRepository(db *gorm.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// Get returns the feed source, or nil when none was saved yet.
func (r *SourceRepository) Get(ctx context.Context) (*domain.FeedSource, error) {
	var src domain.FeedSource
	err := r.db.WithContext(ctx).First(&src, "id = ?", domain.FeedSourceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// Save creates or replaces the feed source.
func (r *SourceRepository) Save(ctx context.Context, src *domain.FeedSource) error {
	src.ID = domain.FeedSourceID
	return r.db.WithContext(ctx).Save(src).Error
}
