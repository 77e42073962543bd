package repository

import (
	"context"

	"purchaseledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProviderRepository interface {
	Create(ctx context.Context, provider *model.Provider) error
	Update(ctx context.Context, provider *model.Provider) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Provider, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Provider, error)
	FindByNormalizedName(ctx context.Context, normalized string) (*model.Provider, error)
	List(ctx context.Context) ([]model.Provider, error)
}

type providerRepository struct {
	db *gorm.DB
}

func NewProviderRepository(db *gorm.DB) ProviderRepository {
	return &providerRepository{db: db}
}

func (r *providerRepository) Create(ctx context.Context, provider *model.Provider) error {
	return GetDB(ctx, r.db).Create(provider).Error
}

func (r *providerRepository) Update(ctx context.Context, provider *model.Provider) error {
	return GetDB(ctx, r.db).Save(provider).Error
}

func (r *providerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	var provider model.Provider
	if err := GetDB(ctx, r.db).First(&provider, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &provider, nil
}

func (r *providerRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Provider, error) {
	var providers []model.Provider
	if len(ids) == 0 {
		return providers, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&providers).Error; err != nil {
		return nil, err
	}
	return providers, nil
}

func (r *providerRepository) FindByNormalizedName(ctx context.Context, normalized string) (*model.Provider, error) {
	var provider model.Provider
	if err := GetDB(ctx, r.db).Where("normalized_name = ?", normalized).First(&provider).Error; err != nil {
		return nil, err
	}
	return &provider, nil
}

func (r *providerRepository) List(ctx context.Context) ([]model.Provider, error) {
	var providers []model.Provider
	if err := GetDB(ctx, r.db).Order("name ASC").Find(&providers).Error; err != nil {
		return nil, err
	}
	return providers, nil
}
