package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"purchaseledger/internal/model"
	"purchaseledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NoHistoryBucket names the plan group for items never bought.
const NoHistoryBucket = "Sin Historial (Est. Precio Actual)"

const (
	topProvidersLimit     = 6
	providerTopItemsLimit = 8
)

// --- Analysis DTOs ---

type TopItemResponse struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	LastCost decimal.Decimal `json:"last_cost"`
}

type ProviderPrice struct {
	ProviderID uuid.UUID       `json:"provider_id"`
	Name       string          `json:"name"`
	LastPrice  decimal.Decimal `json:"last_price"`
	Date       time.Time       `json:"date"`
}

type PriceComparisonResponse struct {
	ItemID    uuid.UUID       `json:"item_id"`
	Providers []ProviderPrice `json:"providers"`
}

type OptimizeRequest struct {
	ItemIDs []string `json:"item_ids" validate:"required,min=1"`
}

type PlannedItem struct {
	ItemID  uuid.UUID       `json:"item_id"`
	Name    string          `json:"name"`
	EstCost decimal.Decimal `json:"est_cost"`
}

// ShoppingPlanGroup is everything to buy from one provider. ProviderID is
// nil for the no-history bucket.
type ShoppingPlanGroup struct {
	ProviderID      *uuid.UUID      `json:"provider_id"`
	ProviderName    string          `json:"provider_name"`
	ProviderAddress *string         `json:"provider_address"`
	ProviderPhone   *string         `json:"provider_phone"`
	Items           []PlannedItem   `json:"items"`
	TotalEst        decimal.Decimal `json:"total_est"`
}

// --- Interface ---

type AnalysisService interface {
	TopProviders(ctx context.Context) ([]ProviderResponse, error)
	ProviderTopItems(ctx context.Context, providerID string) ([]TopItemResponse, error)
	ComparePrices(ctx context.Context, itemID string) (PriceComparisonResponse, error)
	OptimizeShoppingList(ctx context.Context, itemIDs []string) ([]ShoppingPlanGroup, error)
}

// --- Implementation ---

type analysisService struct {
	analysisRepo repository.AnalysisRepository
	providerRepo repository.ProviderRepository
	catalogRepo  repository.CatalogRepository
}

func NewAnalysisService(
	analysisRepo repository.AnalysisRepository,
	providerRepo repository.ProviderRepository,
	catalogRepo repository.CatalogRepository,
) AnalysisService {
	return &analysisService{
		analysisRepo: analysisRepo,
		providerRepo: providerRepo,
		catalogRepo:  catalogRepo,
	}
}

// TopProviders ranks providers by confirmed purchase count.
func (s *analysisService) TopProviders(ctx context.Context) ([]ProviderResponse, error) {
	rankings, err := s.analysisRepo.TopProviders(ctx, topProvidersLimit)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rankings))
	for _, r := range rankings {
		ids = append(ids, r.ProviderID)
	}
	providers, err := s.providerRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load providers: %w", err)
	}
	byID := make(map[uuid.UUID]model.Provider, len(providers))
	for _, p := range providers {
		byID[p.ID] = p
	}

	res := make([]ProviderResponse, 0, len(rankings))
	for _, r := range rankings {
		if p, ok := byID[r.ProviderID]; ok {
			res = append(res, toProviderResponse(p))
		}
	}
	return res, nil
}

func (s *analysisService) ProviderTopItems(ctx context.Context, providerID string) ([]TopItemResponse, error) {
	uid, err := parseID(providerID, "provider")
	if err != nil {
		return nil, err
	}
	rankings, err := s.analysisRepo.ProviderTopItems(ctx, uid, providerTopItemsLimit)
	if err != nil {
		return nil, err
	}

	res := make([]TopItemResponse, 0, len(rankings))
	for _, r := range rankings {
		item, err := s.catalogRepo.FindByID(ctx, r.CatalogItemID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog item: %w", err)
		}
		res = append(res, TopItemResponse{ID: item.ID, Name: item.Name, SKU: item.SKU, LastCost: item.CurrentCost})
	}
	return res, nil
}

// latestPrices keeps the first observation per provider. Observations come
// newest first, so that is each provider's latest price.
func latestPrices(observations []model.PriceObservation) []model.PriceObservation {
	seen := make(map[uuid.UUID]bool)
	var latest []model.PriceObservation
	for _, o := range observations {
		if seen[o.ProviderID] {
			continue
		}
		seen[o.ProviderID] = true
		latest = append(latest, o)
	}
	return latest
}

func (s *analysisService) ComparePrices(ctx context.Context, itemID string) (PriceComparisonResponse, error) {
	uid, err := parseID(itemID, "catalog item")
	if err != nil {
		return PriceComparisonResponse{}, err
	}
	observations, err := s.analysisRepo.PriceObservations(ctx, uid)
	if err != nil {
		return PriceComparisonResponse{}, err
	}

	resp := PriceComparisonResponse{ItemID: uid, Providers: []ProviderPrice{}}
	for _, o := range latestPrices(observations) {
		resp.Providers = append(resp.Providers, ProviderPrice{
			ProviderID: o.ProviderID,
			Name:       o.ProviderName,
			LastPrice:  o.UnitCost,
			Date:       o.PurchasedAt,
		})
	}
	return resp, nil
}

// OptimizeShoppingList assigns each item to the provider whose latest price
// is strictly lowest; on a tie the more recent provider keeps it. Items
// never bought go to the no-history bucket at their current cost. Unknown
// ids are skipped. Groups keep first-seen order.
func (s *analysisService) OptimizeShoppingList(ctx context.Context, itemIDs []string) ([]ShoppingPlanGroup, error) {
	var plan []*ShoppingPlanGroup
	groups := make(map[uuid.UUID]*ShoppingPlanGroup)

	for _, raw := range itemIDs {
		uid, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		item, err := s.catalogRepo.FindByID(ctx, uid)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog item: %w", err)
		}

		observations, err := s.analysisRepo.PriceObservations(ctx, uid)
		if err != nil {
			return nil, err
		}

		var best *model.PriceObservation
		latest := latestPrices(observations)
		for i := range latest {
			if best == nil || latest[i].UnitCost.LessThan(best.UnitCost) {
				best = &latest[i]
			}
		}

		key := uuid.Nil
		price := item.CurrentCost
		if best != nil {
			key = best.ProviderID
			price = best.UnitCost
		}

		group, ok := groups[key]
		if !ok {
			group = &ShoppingPlanGroup{ProviderName: NoHistoryBucket, Items: []PlannedItem{}, TotalEst: decimal.Zero}
			if best != nil {
				providerID := best.ProviderID
				address, phone := best.ProviderAddress, best.ProviderPhone
				group.ProviderID = &providerID
				group.ProviderName = best.ProviderName
				group.ProviderAddress = &address
				group.ProviderPhone = &phone
			}
			groups[key] = group
			plan = append(plan, group)
		}
		group.Items = append(group.Items, PlannedItem{ItemID: item.ID, Name: item.Name, EstCost: price})
		group.TotalEst = group.TotalEst.Add(price)
	}

	res := make([]ShoppingPlanGroup, 0, len(plan))
	for _, g := range plan {
		res = append(res, *g)
	}
	return res, nil
}
