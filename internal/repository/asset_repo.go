package repository

import (
	"context"
	"errors"

	"github.com/timmy/catalogsync/internal/domain"
	"gorm.io/gorm"
)

// AssetRepository handles image asset records.
type AssetRepository struct {
	db *gorm.DB
}

// NewAssetRepository creates a new AssetRepository.
func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// FindByExternalID returns the asset recorded for externalID, or nil.
func (r *AssetRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.ImageAsset, error) {
	var asset domain.ImageAsset
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// Create inserts a new asset record.
func (r *AssetRepository) Create(ctx context.Context, asset *domain.ImageAsset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

// Delete removes an asset record by ID.
func (r *AssetRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.ImageAsset{}, id).Error
}

// Count returns the number of recorded assets.
func (r *AssetRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.ImageAsset{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
