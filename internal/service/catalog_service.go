package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"purchaseledger/internal/metrics"
	"purchaseledger/internal/model"
	"purchaseledger/internal/repository"
	"purchaseledger/pkg/pagination"
	"purchaseledger/pkg/tabular"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Loyverse catalog columns
const (
	colHandle    = "Handle"
	colSKU       = "SKU"
	colName      = "Nombre"
	colCategory  = "Categoria"
	colCost      = "Coste"
	colPrice     = "Precio"
	colByWeight  = "Vendido por peso"
	colProvider  = "Proveedor"
	searchLimit  = 30
	maxNameRunes = 199
)

// CatalogHeaders is the Loyverse-style layout used for seeding and export.
var CatalogHeaders = []string{colHandle, colSKU, colName, colCategory, colCost, colPrice, colByWeight, colProvider}

// --- Catalog DTOs ---

type CatalogItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ExternalID  string          `json:"external_id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	DefaultUnit string          `json:"default_unit"`
	IsByWeight  bool            `json:"is_by_weight"`
	CurrentCost decimal.Decimal `json:"current_cost"`
	IsPending   bool            `json:"is_pending"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CostHistoryResponse struct {
	ID             uuid.UUID       `json:"id"`
	CatalogItemID  uuid.UUID       `json:"catalog_item_id"`
	ProviderID     uuid.UUID       `json:"provider_id"`
	ProviderName   string          `json:"provider_name"`
	PurchaseLineID uuid.UUID       `json:"purchase_line_id"`
	OldCost        decimal.Decimal `json:"old_cost"`
	NewCost        decimal.Decimal `json:"new_cost"`
	ChangedAt      time.Time       `json:"changed_at"`
}

type SeedResult struct {
	ItemsAdded     int `json:"items_added"`
	ProvidersAdded int `json:"providers_added"`
}

// --- Interface ---

type CatalogService interface {
	SearchCatalog(ctx context.Context, query string) ([]CatalogItemResponse, error)
	PriceMonitor(ctx context.Context) ([]CatalogItemResponse, error)
	GetCostHistory(ctx context.Context, itemID string, page, limit int) ([]CostHistoryResponse, int64, error)
	SeedCatalog(ctx context.Context, r io.Reader) (SeedResult, error)
}

// --- Implementation ---

type catalogService struct {
	catalogRepo     repository.CatalogRepository
	providerRepo    repository.ProviderRepository
	costHistoryRepo repository.CostHistoryRepository
	txManager       repository.TransactionManager
	metrics         *metrics.Registry
}

func NewCatalogService(
	catalogRepo repository.CatalogRepository,
	providerRepo repository.ProviderRepository,
	costHistoryRepo repository.CostHistoryRepository,
	txManager repository.TransactionManager,
	m *metrics.Registry,
) CatalogService {
	return &catalogService{
		catalogRepo:     catalogRepo,
		providerRepo:    providerRepo,
		costHistoryRepo: costHistoryRepo,
		txManager:       txManager,
		metrics:         m,
	}
}

// SearchCatalog matches name or SKU. Pending items never show up.
func (s *catalogService) SearchCatalog(ctx context.Context, query string) ([]CatalogItemResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []CatalogItemResponse{}, nil
	}
	items, err := s.catalogRepo.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}
	return toCatalogItemResponses(items), nil
}

func (s *catalogService) PriceMonitor(ctx context.Context) ([]CatalogItemResponse, error) {
	items, err := s.catalogRepo.ListPriced(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list priced items: %w", err)
	}
	return toCatalogItemResponses(items), nil
}

func (s *catalogService) GetCostHistory(ctx context.Context, itemID string, page, limit int) ([]CostHistoryResponse, int64, error) {
	uid, err := parseID(itemID, "catalog item")
	if err != nil {
		return nil, 0, err
	}
	if _, err := s.catalogRepo.FindByID(ctx, uid); err != nil {
		return nil, 0, notFound(err, "catalog item")
	}

	params := pagination.New(page, limit)
	rows, total, err := s.costHistoryRepo.ListByItem(ctx, uid, params.Offset, params.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load cost history: %w", err)
	}
	res := make([]CostHistoryResponse, 0, len(rows))
	for _, h := range rows {
		entry := CostHistoryResponse{
			ID:             h.ID,
			CatalogItemID:  h.CatalogItemID,
			ProviderID:     h.ProviderID,
			PurchaseLineID: h.PurchaseLineID,
			OldCost:        h.OldCost,
			NewCost:        h.NewCost,
			ChangedAt:      h.ChangedAt,
		}
		if h.Provider != nil {
			entry.ProviderName = h.Provider.Name
		}
		res = append(res, entry)
	}
	return res, total, nil
}

// SeedCatalog upserts catalog items from a Loyverse export. Known handles
// only get their unit fields refreshed; cost is never overwritten. The whole
// file is applied in one transaction.
func (s *catalogService) SeedCatalog(ctx context.Context, r io.Reader) (SeedResult, error) {
	rows, err := tabular.ReadCSV(r)
	if err != nil {
		return SeedResult{}, invalid("%v", err)
	}

	var result SeedResult
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, row := range rows {
			name := row.Get(colName)
			if name == "" {
				continue
			}
			if runes := []rune(name); len(runes) > maxNameRunes {
				name = string(runes[:maxNameRunes])
			}

			isByWeight := strings.EqualFold(row.Get(colByWeight), "Y")
			unit := model.UnitEach
			if isByWeight {
				unit = model.UnitKilogram
			}

			added, err := s.upsertSeedItem(txCtx, row, name, unit, isByWeight)
			if err != nil {
				return fmt.Errorf("line %d: %w", row.Line, err)
			}
			if added {
				result.ItemsAdded++
			}

			providerName := row.Get(colProvider)
			if providerName == "" || strings.EqualFold(providerName, "nan") {
				continue
			}
			_, created, err := findOrCreateProvider(txCtx, s.providerRepo, DisplayProviderName(providerName), model.ProviderCategorySeeded)
			if err != nil {
				return fmt.Errorf("line %d: %w", row.Line, err)
			}
			if created {
				result.ProvidersAdded++
			}
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}

	s.metrics.SeededItems.Add(float64(result.ItemsAdded))
	return result, nil
}

// upsertSeedItem keys on Handle, then sku-<SKU>. Rows with neither always
// insert.
func (s *catalogService) upsertSeedItem(ctx context.Context, row tabular.Row, name, unit string, isByWeight bool) (bool, error) {
	externalID := row.Get(colHandle)
	if externalID == "" && row.Get(colSKU) != "" {
		externalID = "sku-" + row.Get(colSKU)
	}

	if externalID != "" {
		existing, err := s.catalogRepo.FindByExternalID(ctx, externalID)
		if err == nil {
			if err := s.catalogRepo.UpdateUnit(ctx, existing.ID, unit, isByWeight); err != nil {
				return false, fmt.Errorf("failed to update catalog item: %w", err)
			}
			return false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("failed to look up catalog item: %w", err)
		}
	}

	cost, err := decimal.NewFromString(row.Get(colCost))
	if err != nil {
		cost = decimal.Zero
	}
	item := &model.CatalogItem{
		SKU:         row.Get(colSKU),
		Name:        name,
		Category:    row.Get(colCategory),
		DefaultUnit: unit,
		IsByWeight:  isByWeight,
		CurrentCost: cost,
	}
	if externalID != "" {
		item.ExternalID = &externalID
	}
	if err := s.catalogRepo.Create(ctx, item); err != nil {
		return false, fmt.Errorf("failed to create catalog item: %w", err)
	}
	return true, nil
}

func toCatalogItemResponse(i model.CatalogItem) CatalogItemResponse {
	resp := CatalogItemResponse{
		ID:          i.ID,
		SKU:         i.SKU,
		Name:        i.Name,
		Category:    i.Category,
		DefaultUnit: i.DefaultUnit,
		IsByWeight:  i.IsByWeight,
		CurrentCost: i.CurrentCost,
		IsPending:   i.IsPending,
		UpdatedAt:   i.UpdatedAt,
	}
	if i.ExternalID != nil {
		resp.ExternalID = *i.ExternalID
	}
	return resp
}

func toCatalogItemResponses(items []model.CatalogItem) []CatalogItemResponse {
	res := make([]CatalogItemResponse, 0, len(items))
	for _, i := range items {
		res = append(res, toCatalogItemResponse(i))
	}
	return res
}
