package repository

import (
	"context"

	"purchaseledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PurchaseRepository interface {
	Create(ctx context.Context, purchase *model.Purchase) error
	CreateLine(ctx context.Context, line *model.PurchaseLine) error
	DeleteLine(ctx context.Context, lineID uuid.UUID) error
	DeleteWithLines(ctx context.Context, id uuid.UUID) error
	FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Purchase, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error
	CountLinesForItem(ctx context.Context, itemID uuid.UUID) (int64, error)
	ListByStatus(ctx context.Context, status string) ([]model.Purchase, error)
	ListRecent(ctx context.Context, limit int) ([]model.Purchase, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID, status string, limit int) ([]model.Purchase, error)
	ListConfirmedForExport(ctx context.Context) ([]model.Purchase, error)
}

type purchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

// withDetails preloads everything a purchase payload needs, so mapping a
// purchase to a response never touches the database.
func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Provider").
		Preload("Lines").
		Preload("Lines.CatalogItem")
}

func (r *purchaseRepository) Create(ctx context.Context, purchase *model.Purchase) error {
	return GetDB(ctx, r.db).Omit("Lines", "Provider").Create(purchase).Error
}

func (r *purchaseRepository) CreateLine(ctx context.Context, line *model.PurchaseLine) error {
	return GetDB(ctx, r.db).Omit("CatalogItem").Create(line).Error
}

func (r *purchaseRepository) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", lineID).Delete(&model.PurchaseLine{}).Error
}

func (r *purchaseRepository) DeleteWithLines(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("purchase_id = ?", id).Delete(&model.PurchaseLine{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Purchase{}).Error
}

func (r *purchaseRepository) FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Purchase, error) {
	var purchase model.Purchase
	if err := withDetails(GetDB(ctx, r.db)).First(&purchase, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *purchaseRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Purchase{}).Where("id = ?", id).Update("status", status).Error
}

func (r *purchaseRepository) UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	return GetDB(ctx, r.db).Model(&model.Purchase{}).Where("id = ?", id).Update("total_amount", total).Error
}

func (r *purchaseRepository) CountLinesForItem(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.PurchaseLine{}).Where("catalog_item_id = ?", itemID).Count(&count).Error
	return count, err
}

func (r *purchaseRepository) ListByStatus(ctx context.Context, status string) ([]model.Purchase, error) {
	var purchases []model.Purchase
	if err := withDetails(GetDB(ctx, r.db)).
		Where("status = ?", status).
		Order("date DESC").
		Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

func (r *purchaseRepository) ListRecent(ctx context.Context, limit int) ([]model.Purchase, error) {
	var purchases []model.Purchase
	if err := withDetails(GetDB(ctx, r.db)).
		Order("date DESC").
		Limit(limit).
		Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

// ListByProvider filters on status unless it is empty.
func (r *purchaseRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, status string, limit int) ([]model.Purchase, error) {
	var purchases []model.Purchase
	query := withDetails(GetDB(ctx, r.db)).Where("provider_id = ?", providerID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("date DESC").Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

func (r *purchaseRepository) ListConfirmedForExport(ctx context.Context) ([]model.Purchase, error) {
	return r.ListByStatus(ctx, model.PurchaseStatusConfirmed)
}
