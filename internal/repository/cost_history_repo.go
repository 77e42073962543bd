package repository

import (
	"context"

	"purchaseledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CostHistoryRepository interface {
	Create(ctx context.Context, entry *model.CostHistory) error
	ListByItem(ctx context.Context, itemID uuid.UUID, offset, limit int) ([]model.CostHistory, int64, error)
	CountByProvider(ctx context.Context, providerID uuid.UUID) (int64, error)
}

type costHistoryRepository struct {
	db *gorm.DB
}

func NewCostHistoryRepository(db *gorm.DB) CostHistoryRepository {
	return &costHistoryRepository{db: db}
}

func (r *costHistoryRepository) Create(ctx context.Context, entry *model.CostHistory) error {
	return GetDB(ctx, r.db).Omit("CatalogItem", "Provider").Create(entry).Error
}

// ListByItem returns one page of changes for an item, newest first, and the
// total number of changes.
func (r *costHistoryRepository) ListByItem(ctx context.Context, itemID uuid.UUID, offset, limit int) ([]model.CostHistory, int64, error) {
	var rows []model.CostHistory
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.CostHistory{}).Where("catalog_item_id = ?", itemID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Provider").
		Where("catalog_item_id = ?", itemID).
		Order("changed_at DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *costHistoryRepository) CountByProvider(ctx context.Context, providerID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.CostHistory{}).Where("provider_id = ?", providerID).Count(&count).Error
	return count, err
}
