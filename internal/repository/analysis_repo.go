package repository

import (
	"context"
	"fmt"

	"purchaseledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AnalysisRepository interface {
	TopProviders(ctx context.Context, limit int) ([]model.ProviderRanking, error)
	ProviderTopItems(ctx context.Context, providerID uuid.UUID, limit int) ([]model.ItemRanking, error)
	ProviderTopNames(ctx context.Context, providerID uuid.UUID, limit int) ([]model.NameRanking, error)
	PriceObservations(ctx context.Context, itemID uuid.UUID) ([]model.PriceObservation, error)
}

type analysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

func (r *analysisRepository) TopProviders(ctx context.Context, limit int) ([]model.ProviderRanking, error) {
	var rankings []model.ProviderRanking
	if err := GetDB(ctx, r.db).Table("purchases").
		Select("purchases.provider_id as provider_id, COUNT(purchases.id) as purchase_count").
		Where("purchases.status = ?", model.PurchaseStatusConfirmed).
		Group("purchases.provider_id").
		Order("purchase_count DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top providers: %w", err)
	}
	return rankings, nil
}

func (r *analysisRepository) ProviderTopItems(ctx context.Context, providerID uuid.UUID, limit int) ([]model.ItemRanking, error) {
	var rankings []model.ItemRanking
	if err := GetDB(ctx, r.db).Table("purchase_lines").
		Select("purchase_lines.catalog_item_id as catalog_item_id, COUNT(purchase_lines.id) as line_count").
		Joins("JOIN purchases ON purchases.id = purchase_lines.purchase_id").
		Where("purchases.provider_id = ? AND purchase_lines.catalog_item_id IS NOT NULL", providerID).
		Group("purchase_lines.catalog_item_id").
		Order("line_count DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query provider top items: %w", err)
	}
	return rankings, nil
}

// ProviderTopNames ranks by name snapshot, so lines without a catalog
// reference still count.
func (r *analysisRepository) ProviderTopNames(ctx context.Context, providerID uuid.UUID, limit int) ([]model.NameRanking, error) {
	var rankings []model.NameRanking
	if err := GetDB(ctx, r.db).Table("purchase_lines").
		Select("purchase_lines.catalog_item_name as name, COUNT(purchase_lines.id) as count").
		Joins("JOIN purchases ON purchases.id = purchase_lines.purchase_id").
		Where("purchases.provider_id = ?", providerID).
		Group("purchase_lines.catalog_item_name").
		Order("COUNT(purchase_lines.id) DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query provider top names: %w", err)
	}
	return rankings, nil
}

// PriceObservations lists confirmed line prices for an item, newest purchase
// first. The first row per provider is that provider's latest price.
func (r *analysisRepository) PriceObservations(ctx context.Context, itemID uuid.UUID) ([]model.PriceObservation, error) {
	var rows []model.PriceObservation
	if err := GetDB(ctx, r.db).Table("purchase_lines").
		Select("providers.id as provider_id, providers.name as provider_name, providers.address as provider_address, " +
			"providers.phone as provider_phone, purchase_lines.unit_cost as unit_cost, purchases.date as purchased_at").
		Joins("JOIN purchases ON purchases.id = purchase_lines.purchase_id").
		Joins("JOIN providers ON providers.id = purchases.provider_id").
		Where("purchase_lines.catalog_item_id = ? AND purchases.status = ?", itemID, model.PurchaseStatusConfirmed).
		Order("purchases.date DESC, purchases.created_at DESC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query price observations: %w", err)
	}
	return rows, nil
}
