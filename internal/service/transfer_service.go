package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"purchaseledger/internal/metrics"
	"purchaseledger/internal/model"
	"purchaseledger/internal/repository"
	"purchaseledger/pkg/tabular"

	"github.com/shopspring/decimal"
)

// Purchase history columns, shared by export and replay
const (
	colDate        = "Fecha"
	colItem        = "Item"
	colQuantity    = "Cantidad"
	colUnit        = "Unidad"
	colUnitCost    = "Costo Unitario"
	colTotalCost   = "Costo Total"
	colInvoiceSum  = "Total Factura"
	exportDateForm = "2006-01-02 15:04"
	importDateForm = "2006-01-02"
)

// PurchaseHeaders is the flat line-level history layout.
var PurchaseHeaders = []string{colDate, colProvider, colItem, colSKU, colQuantity, colUnit, colUnitCost, colTotalCost, colInvoiceSum}

type ImportResult struct {
	Purchases int `json:"purchases"`
	Lines     int `json:"lines"`
}

type TransferService interface {
	ExportPurchases(ctx context.Context) (tabular.Table, error)
	ExportCatalog(ctx context.Context) (tabular.Table, error)
	ImportHistory(ctx context.Context, r io.Reader) (ImportResult, error)
}

type transferService struct {
	purchaseRepo repository.PurchaseRepository
	catalogRepo  repository.CatalogRepository
	providerRepo repository.ProviderRepository
	txManager    repository.TransactionManager
	metrics      *metrics.Registry
}

func NewTransferService(
	purchaseRepo repository.PurchaseRepository,
	catalogRepo repository.CatalogRepository,
	providerRepo repository.ProviderRepository,
	txManager repository.TransactionManager,
	m *metrics.Registry,
) TransferService {
	return &transferService{
		purchaseRepo: purchaseRepo,
		catalogRepo:  catalogRepo,
		providerRepo: providerRepo,
		txManager:    txManager,
		metrics:      m,
	}
}

// ExportPurchases flattens confirmed purchases to one row per line, newest
// purchase first.
func (s *transferService) ExportPurchases(ctx context.Context) (tabular.Table, error) {
	purchases, err := s.purchaseRepo.ListConfirmedForExport(ctx)
	if err != nil {
		return tabular.Table{}, fmt.Errorf("failed to load purchases: %w", err)
	}

	table := tabular.Table{Name: "Compras", Headers: PurchaseHeaders}
	for _, p := range purchases {
		providerName := "Desconocido"
		if p.Provider != nil {
			providerName = p.Provider.Name
		}
		for _, line := range p.Lines {
			sku, unit := "", ""
			if line.CatalogItem != nil {
				sku = line.CatalogItem.SKU
				unit = line.CatalogItem.DefaultUnit
			}
			table.Rows = append(table.Rows, []string{
				p.Date.UTC().Format(exportDateForm),
				providerName,
				line.CatalogItemName,
				sku,
				line.Quantity.String(),
				unit,
				line.UnitCost.String(),
				line.TotalCost.String(),
				p.TotalAmount.String(),
			})
		}
	}
	return table, nil
}

// ExportCatalog writes every item in the Loyverse layout so the file can be
// fed back into SeedCatalog.
func (s *transferService) ExportCatalog(ctx context.Context) (tabular.Table, error) {
	items, err := s.catalogRepo.ListAll(ctx)
	if err != nil {
		return tabular.Table{}, fmt.Errorf("failed to load catalog: %w", err)
	}

	table := tabular.Table{Name: "Catalogo", Headers: CatalogHeaders}
	for _, i := range items {
		handle := "handle-" + i.ID.String()
		if i.ExternalID != nil && *i.ExternalID != "" {
			handle = *i.ExternalID
		}
		category := i.Category
		if category == "" {
			category = model.ProviderCategoryGeneral
		}
		byWeight := "N"
		if i.IsByWeight {
			byWeight = "Y"
		}
		table.Rows = append(table.Rows, []string{
			handle, i.SKU, i.Name, category, i.CurrentCost.String(), "0", byWeight, "",
		})
	}
	return table, nil
}

type historyGroup struct {
	date     time.Time
	provider string
	rows     []tabular.Row
}

// ImportHistory replays a purchase export as confirmed purchases, one per
// (day, normalized provider) in first-seen order. Matched items take each row's cost
// in file order with no date check. Any malformed row aborts the import.
func (s *transferService) ImportHistory(ctx context.Context, r io.Reader) (ImportResult, error) {
	rows, err := tabular.ReadCSV(r)
	if err != nil {
		return ImportResult{}, invalid("%v", err)
	}

	var groups []*historyGroup
	index := make(map[string]*historyGroup)
	for _, row := range rows {
		rawDate := row.Get(colDate)
		if i := strings.IndexAny(rawDate, " T"); i >= 0 {
			rawDate = rawDate[:i]
		}
		date, err := time.Parse(importDateForm, rawDate)
		if err != nil {
			return ImportResult{}, invalid("line %d: bad %s %q", row.Line, colDate, row.Get(colDate))
		}
		provider := row.Get(colProvider)
		if provider == "" {
			provider = model.ProviderCategoryGeneral
		}

		key := rawDate + "\x00" + NormalizeProviderName(provider)
		g, ok := index[key]
		if !ok {
			g = &historyGroup{date: date, provider: provider}
			index[key] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, row)
	}

	var result ImportResult
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, g := range groups {
			lines, total, err := parseHistoryLines(g.rows)
			if err != nil {
				return err
			}

			provider, _, err := findOrCreateProvider(txCtx, s.providerRepo, g.provider, model.ProviderCategoryImported)
			if err != nil {
				return err
			}

			purchase := &model.Purchase{
				ProviderID:  provider.ID,
				Date:        g.date,
				TotalAmount: total,
				Status:      model.PurchaseStatusConfirmed,
			}
			if err := s.purchaseRepo.Create(txCtx, purchase); err != nil {
				return fmt.Errorf("failed to create purchase: %w", err)
			}
			result.Purchases++

			for _, line := range lines {
				line.PurchaseID = purchase.ID
				item, err := s.catalogRepo.FindByNameInsensitive(txCtx, line.CatalogItemName)
				if err == nil {
					line.CatalogItemID = &item.ID
					if err := s.catalogRepo.UpdateCost(txCtx, item.ID, line.UnitCost); err != nil {
						return fmt.Errorf("failed to update item cost: %w", err)
					}
				} else if !isRecordNotFound(err) {
					return fmt.Errorf("failed to match item: %w", err)
				}

				if err := s.purchaseRepo.CreateLine(txCtx, line); err != nil {
					return fmt.Errorf("failed to create purchase line: %w", err)
				}
				result.Lines++
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	s.metrics.ImportedLines.Add(float64(result.Lines))
	return result, nil
}

func parseHistoryLines(rows []tabular.Row) ([]*model.PurchaseLine, decimal.Decimal, error) {
	total := decimal.Zero
	lines := make([]*model.PurchaseLine, 0, len(rows))
	for _, row := range rows {
		qty, err := decimal.NewFromString(row.Get(colQuantity))
		if err != nil {
			return nil, total, invalid("line %d: bad %s %q", row.Line, colQuantity, row.Get(colQuantity))
		}
		unitCost, err := decimal.NewFromString(row.Get(colUnitCost))
		if err != nil {
			return nil, total, invalid("line %d: bad %s %q", row.Line, colUnitCost, row.Get(colUnitCost))
		}
		lineTotal, err := decimal.NewFromString(row.Get(colTotalCost))
		if err != nil {
			return nil, total, invalid("line %d: bad %s %q", row.Line, colTotalCost, row.Get(colTotalCost))
		}
		total = total.Add(lineTotal)
		lines = append(lines, &model.PurchaseLine{
			CatalogItemName: row.Get(colItem),
			Quantity:        qty,
			UnitCost:        unitCost,
			TotalCost:       lineTotal,
		})
	}
	return lines, total, nil
}
