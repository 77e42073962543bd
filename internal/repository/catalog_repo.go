package repository

import (
	"context"
	"strings"
	"time"

	"purchaseledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CatalogRepository interface {
	Create(ctx context.Context, item *model.CatalogItem) error
	Update(ctx context.Context, item *model.CatalogItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CatalogItem, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.CatalogItem, error)
	FindByExternalID(ctx context.Context, externalID string) (*model.CatalogItem, error)
	FindByNameInsensitive(ctx context.Context, name string) (*model.CatalogItem, error)
	Search(ctx context.Context, query string, limit int) ([]model.CatalogItem, error)
	ListPriced(ctx context.Context) ([]model.CatalogItem, error)
	ListAll(ctx context.Context) ([]model.CatalogItem, error)
	UpdateCost(ctx context.Context, id uuid.UUID, cost decimal.Decimal) error
	UpdateUnit(ctx context.Context, id uuid.UUID, defaultUnit string, isByWeight bool) error
	BackfillNameLower(ctx context.Context) error
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) Create(ctx context.Context, item *model.CatalogItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *catalogRepository) Update(ctx context.Context, item *model.CatalogItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *catalogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.CatalogItem{}).Error
}

func (r *catalogRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.CatalogItem, error) {
	var item model.CatalogItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByIDForUpdate locks the row on databases that support it; SQLite
// ignores the locking clause and relies on its single writer.
func (r *catalogRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.CatalogItem, error) {
	db := GetDB(ctx, r.db)
	if db.Dialector.Name() != "sqlite" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var item model.CatalogItem
	if err := db.Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *catalogRepository) FindByExternalID(ctx context.Context, externalID string) (*model.CatalogItem, error) {
	var item model.CatalogItem
	if err := GetDB(ctx, r.db).Where("external_id = ?", externalID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *catalogRepository) FindByNameInsensitive(ctx context.Context, name string) (*model.CatalogItem, error) {
	var item model.CatalogItem
	if err := GetDB(ctx, r.db).
		Where("name_lower = ?", model.FoldName(name)).
		Order("created_at ASC").
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Search matches name or SKU and never returns pending items.
func (r *catalogRepository) Search(ctx context.Context, query string, limit int) ([]model.CatalogItem, error) {
	var items []model.CatalogItem
	pattern := "%" + strings.ToLower(query) + "%"
	if err := GetDB(ctx, r.db).
		Where("(name_lower LIKE ? OR LOWER(sku) LIKE ?)", pattern, pattern).
		Where("is_pending = ?", false).
		Order("name ASC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListPriced returns visible items with a cost, most recently updated first.
func (r *catalogRepository) ListPriced(ctx context.Context) ([]model.CatalogItem, error) {
	var items []model.CatalogItem
	if err := GetDB(ctx, r.db).
		Where("current_cost > ?", 0).
		Where("is_pending = ?", false).
		Order("updated_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *catalogRepository) ListAll(ctx context.Context) ([]model.CatalogItem, error) {
	var items []model.CatalogItem
	if err := GetDB(ctx, r.db).Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *catalogRepository) UpdateCost(ctx context.Context, id uuid.UUID, cost decimal.Decimal) error {
	return GetDB(ctx, r.db).Model(&model.CatalogItem{}).Where("id = ?", id).
		Updates(map[string]interface{}{"current_cost": cost, "updated_at": time.Now().UTC()}).Error
}

func (r *catalogRepository) UpdateUnit(ctx context.Context, id uuid.UUID, defaultUnit string, isByWeight bool) error {
	return GetDB(ctx, r.db).Model(&model.CatalogItem{}).Where("id = ?", id).
		Updates(map[string]interface{}{"default_unit": defaultUnit, "is_by_weight": isByWeight}).Error
}

// BackfillNameLower fills name_lower for rows written before the column
// existed or copied in from an older database file.
func (r *catalogRepository) BackfillNameLower(ctx context.Context) error {
	return backfillNameLower(GetDB(ctx, r.db))
}

func backfillNameLower(db *gorm.DB) error {
	var rows []model.CatalogItem
	if err := db.Select("id", "name").
		Where("name_lower IS NULL OR name_lower = ''").
		Find(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		if err := db.Model(&model.CatalogItem{}).Where("id = ?", row.ID).
			UpdateColumn("name_lower", model.FoldName(row.Name)).Error; err != nil {
			return err
		}
	}
	return nil
}
