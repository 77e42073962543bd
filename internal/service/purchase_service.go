package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"purchaseledger/internal/metrics"
	"purchaseledger/internal/model"
	"purchaseledger/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Events published on the live feed
const (
	EventPurchaseCreated   = "purchase.created"
	EventPurchaseConfirmed = "purchase.confirmed"
	EventPurchaseCancelled = "purchase.cancelled"
	EventPurchaseDeleted   = "purchase.deleted"
)

// EventPublisher fans events out to live clients. Publish must not block.
type EventPublisher interface {
	Publish(eventType string, payload interface{})
}

// AuditAppender records confirmed purchases outside the database.
type AuditAppender interface {
	Append(p *model.Purchase) error
}

// --- Purchase DTOs ---

// PurchaseItemRequest references an existing catalog item, or describes a
// new one when IsNewItem is set.
type PurchaseItemRequest struct {
	CatalogItemID   string           `json:"catalog_item_id"`
	CatalogItemName string           `json:"catalog_item_name" validate:"max=200"`
	Quantity        decimal.Decimal  `json:"quantity" validate:"gt=0"`
	UnitCost        decimal.Decimal  `json:"unit_cost" validate:"gte=0"`
	TotalCost       *decimal.Decimal `json:"total_cost"`
	IsNewItem       bool             `json:"is_new_item"`
	Category        string           `json:"category" validate:"max=100"`
	SKU             string           `json:"sku" validate:"max=50"`
	UnitLabel       string           `json:"unit_label" validate:"max=20"`
}

type CreatePurchaseRequest struct {
	ProviderID    string                `json:"provider_id" validate:"required"`
	Date          string                `json:"date"` // RFC 3339 or 2006-01-02[T15:04[:05]]
	TotalAmount   *decimal.Decimal      `json:"total_amount"`
	InvoiceNumber string                `json:"invoice_number" validate:"max=50"`
	Notes         string                `json:"notes" validate:"max=500"`
	Items         []PurchaseItemRequest `json:"items" validate:"dive"`
}

type PurchaseLineResponse struct {
	ID              uuid.UUID       `json:"id"`
	PurchaseID      uuid.UUID       `json:"purchase_id"`
	CatalogItemID   *uuid.UUID      `json:"catalog_item_id"`
	CatalogItemName string          `json:"catalog_item_name"`
	SKU             string          `json:"sku"`
	Unit            string          `json:"unit"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	IsNewItem       bool            `json:"is_new_item"`
	TempCategory    string          `json:"temp_category"`
}

type PurchaseResponse struct {
	ID            uuid.UUID              `json:"id"`
	ProviderID    uuid.UUID              `json:"provider_id"`
	ProviderName  string                 `json:"provider_name"`
	Date          time.Time              `json:"date"`
	TotalAmount   decimal.Decimal        `json:"total_amount"`
	InvoiceNumber string                 `json:"invoice_number"`
	Notes         string                 `json:"notes"`
	Status        string                 `json:"status"`
	Lines         []PurchaseLineResponse `json:"lines"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

type DraftListResponse struct {
	Count     int                `json:"count"`
	Purchases []PurchaseResponse `json:"purchases"`
}

// Line review statuses
const (
	ReviewSame = "same"
	ReviewUp   = "up"
	ReviewDown = "down"
	ReviewNew  = "new"
)

type LineReview struct {
	Line    PurchaseLineResponse `json:"line"`
	OldCost decimal.Decimal      `json:"old_cost"`
	DiffPct decimal.Decimal      `json:"diff_pct"`
	Status  string               `json:"status"`
}

type PurchaseReviewResponse struct {
	Purchase  PurchaseResponse `json:"purchase"`
	Lines     []LineReview     `json:"lines"`
	HasAlerts bool             `json:"has_alerts"`
}

// --- Interface ---

type PurchaseService interface {
	CreatePurchase(ctx context.Context, req CreatePurchaseRequest) (PurchaseResponse, error)
	GetPurchase(ctx context.Context, id string) (PurchaseResponse, error)
	ListRecent(ctx context.Context) ([]PurchaseResponse, error)
	ListDrafts(ctx context.Context) (DraftListResponse, error)
	ReviewPurchase(ctx context.Context, id string) (PurchaseReviewResponse, error)
	AddLine(ctx context.Context, id string, item PurchaseItemRequest) (PurchaseResponse, error)
	RemoveLine(ctx context.Context, id, lineID string) (PurchaseResponse, error)
	ConfirmPurchase(ctx context.Context, id string) (PurchaseResponse, error)
	CancelPurchase(ctx context.Context, id string) (PurchaseResponse, error)
	DeletePurchase(ctx context.Context, id string) error
	ClonePurchase(ctx context.Context, id string) (PurchaseResponse, error)
}

// --- Implementation ---

const (
	recentPurchasesLimit = 5
	reviewThreshold      = "0.01"
)

type purchaseService struct {
	purchaseRepo    repository.PurchaseRepository
	catalogRepo     repository.CatalogRepository
	providerRepo    repository.ProviderRepository
	costHistoryRepo repository.CostHistoryRepository
	txManager       repository.TransactionManager
	events          EventPublisher
	audit           AuditAppender
	metrics         *metrics.Registry
}

func NewPurchaseService(
	purchaseRepo repository.PurchaseRepository,
	catalogRepo repository.CatalogRepository,
	providerRepo repository.ProviderRepository,
	costHistoryRepo repository.CostHistoryRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
	audit AuditAppender,
	m *metrics.Registry,
) PurchaseService {
	return &purchaseService{
		purchaseRepo:    purchaseRepo,
		catalogRepo:     catalogRepo,
		providerRepo:    providerRepo,
		costHistoryRepo: costHistoryRepo,
		txManager:       txManager,
		events:          events,
		audit:           audit,
		metrics:         m,
	}
}

var purchaseDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parsePurchaseDate accepts the layouts in purchaseDateLayouts. An empty
// string means now.
func parsePurchaseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().UTC(), nil
	}
	for _, layout := range purchaseDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalid("unrecognized date %q", raw)
}

func parseID(raw, what string) (uuid.UUID, error) {
	uid, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, invalid("invalid %s ID", what)
	}
	return uid, nil
}

// buildLine resolves or creates the catalog item behind a line. New items
// are created pending so they stay hidden until a confirmation.
func (s *purchaseService) buildLine(ctx context.Context, purchaseID uuid.UUID, item PurchaseItemRequest) (*model.PurchaseLine, error) {
	if item.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, invalid("quantity must be greater than zero")
	}
	if item.UnitCost.IsNegative() {
		return nil, invalid("unit_cost cannot be negative")
	}

	line := &model.PurchaseLine{
		PurchaseID:   purchaseID,
		Quantity:     item.Quantity,
		UnitCost:     item.UnitCost,
		IsNewItem:    item.IsNewItem,
		TempCategory: item.Category,
	}
	if item.TotalCost != nil {
		line.TotalCost = *item.TotalCost
	} else {
		line.TotalCost = item.Quantity.Mul(item.UnitCost)
	}

	if item.IsNewItem {
		name := strings.TrimSpace(item.CatalogItemName)
		if name == "" {
			return nil, invalid("catalog_item_name is required for new items")
		}
		pending := newPendingItem(name, item)
		if err := s.catalogRepo.Create(ctx, pending); err != nil {
			return nil, fmt.Errorf("failed to create pending item: %w", err)
		}
		line.CatalogItemID = &pending.ID
		line.CatalogItemName = name
		return line, nil
	}

	if strings.TrimSpace(item.CatalogItemID) == "" {
		return nil, invalid("catalog_item_id is required unless is_new_item is set")
	}
	itemID, err := parseID(item.CatalogItemID, "catalog item")
	if err != nil {
		return nil, err
	}
	catalogItem, err := s.catalogRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, notFound(err, "catalog item")
	}
	line.CatalogItemID = &catalogItem.ID
	line.CatalogItemName = strings.TrimSpace(item.CatalogItemName)
	if line.CatalogItemName == "" {
		line.CatalogItemName = catalogItem.Name
	}
	return line, nil
}

func newPendingItem(name string, item PurchaseItemRequest) *model.CatalogItem {
	id := uuid.New()
	externalID := "temp-" + id.String()

	sku := strings.TrimSpace(item.SKU)
	if sku == "" {
		sku = "TEMP-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	}
	category := strings.TrimSpace(item.Category)
	if category == "" {
		category = model.ProviderCategoryGeneral
	}
	unit := strings.TrimSpace(item.UnitLabel)
	if unit == "" {
		unit = model.UnitEach
	}

	return &model.CatalogItem{
		ID:          id,
		ExternalID:  &externalID,
		SKU:         sku,
		Name:        name,
		Category:    category,
		DefaultUnit: unit,
		IsByWeight:  unit == model.UnitKilogram,
		CurrentCost: item.UnitCost,
		IsPending:   true,
	}
}

func (s *purchaseService) CreatePurchase(ctx context.Context, req CreatePurchaseRequest) (PurchaseResponse, error) {
	providerID, err := parseID(req.ProviderID, "provider")
	if err != nil {
		return PurchaseResponse{}, err
	}
	date, err := parsePurchaseDate(req.Date)
	if err != nil {
		return PurchaseResponse{}, err
	}

	var created *model.Purchase
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.providerRepo.FindByID(txCtx, providerID); err != nil {
			return notFound(err, "provider")
		}

		purchase := &model.Purchase{
			ProviderID:    providerID,
			Date:          date,
			InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
			Notes:         req.Notes,
			Status:        model.PurchaseStatusDraft,
		}
		if err := s.purchaseRepo.Create(txCtx, purchase); err != nil {
			return fmt.Errorf("failed to create purchase: %w", err)
		}

		total := decimal.Zero
		for i, item := range req.Items {
			line, err := s.buildLine(txCtx, purchase.ID, item)
			if err != nil {
				return fmt.Errorf("items[%d]: %w", i, err)
			}
			if err := s.purchaseRepo.CreateLine(txCtx, line); err != nil {
				return fmt.Errorf("failed to create purchase line: %w", err)
			}
			total = total.Add(line.TotalCost)
		}
		if req.TotalAmount != nil {
			total = *req.TotalAmount
		}
		if err := s.purchaseRepo.UpdateTotal(txCtx, purchase.ID, total); err != nil {
			return fmt.Errorf("failed to set purchase total: %w", err)
		}

		created, err = s.purchaseRepo.FindByIDWithLines(txCtx, purchase.ID)
		return err
	})
	if err != nil {
		return PurchaseResponse{}, err
	}

	resp := toPurchaseResponse(*created)
	s.events.Publish(EventPurchaseCreated, resp)
	return resp, nil
}

func (s *purchaseService) GetPurchase(ctx context.Context, id string) (PurchaseResponse, error) {
	uid, err := parseID(id, "purchase")
	if err != nil {
		return PurchaseResponse{}, err
	}
	purchase, err := s.purchaseRepo.FindByIDWithLines(ctx, uid)
	if err != nil {
		return PurchaseResponse{}, notFound(err, "purchase")
	}
	return toPurchaseResponse(*purchase), nil
}

func (s *purchaseService) ListRecent(ctx context.Context) ([]PurchaseResponse, error) {
	purchases, err := s.purchaseRepo.ListRecent(ctx, recentPurchasesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent purchases: %w", err)
	}
	return toPurchaseResponses(purchases), nil
}

func (s *purchaseService) ListDrafts(ctx context.Context) (DraftListResponse, error) {
	drafts, err := s.purchaseRepo.ListByStatus(ctx, model.PurchaseStatusDraft)
	if err != nil {
		return DraftListResponse{}, fmt.Errorf("failed to list drafts: %w", err)
	}
	return DraftListResponse{Count: len(drafts), Purchases: toPurchaseResponses(drafts)}, nil
}

// ReviewPurchase compares every line against the catalog cost it would
// replace on confirmation.
func (s *purchaseService) ReviewPurchase(ctx context.Context, id string) (PurchaseReviewResponse, error) {
	uid, err := parseID(id, "purchase")
	if err != nil {
		return PurchaseReviewResponse{}, err
	}
	purchase, err := s.purchaseRepo.FindByIDWithLines(ctx, uid)
	if err != nil {
		return PurchaseReviewResponse{}, notFound(err, "purchase")
	}

	resp := toPurchaseResponse(*purchase)
	threshold := decimal.RequireFromString(reviewThreshold)
	hundred := decimal.NewFromInt(100)

	reviews := make([]LineReview, 0, len(purchase.Lines))
	hasAlerts := false
	for i, line := range purchase.Lines {
		oldCost := decimal.Zero
		if line.CatalogItem != nil {
			oldCost = line.CatalogItem.CurrentCost
		}

		status := ReviewSame
		diffPct := decimal.Zero
		if oldCost.IsPositive() {
			diff := line.UnitCost.Sub(oldCost)
			if diff.Abs().GreaterThan(threshold) {
				diffPct = diff.Div(oldCost).Mul(hundred).Round(1)
				if diff.IsPositive() {
					status = ReviewUp
					hasAlerts = true
				} else {
					status = ReviewDown
				}
			}
		} else if line.UnitCost.IsPositive() {
			status = ReviewNew
		}

		reviews = append(reviews, LineReview{
			Line:    resp.Lines[i],
			OldCost: oldCost,
			DiffPct: diffPct,
			Status:  status,
		})
	}

	return PurchaseReviewResponse{Purchase: resp, Lines: reviews, HasAlerts: hasAlerts}, nil
}

// loadDraft fetches a purchase inside txCtx and rejects anything but drafts.
func (s *purchaseService) loadDraft(txCtx context.Context, id uuid.UUID) (*model.Purchase, error) {
	purchase, err := s.purchaseRepo.FindByIDWithLines(txCtx, id)
	if err != nil {
		return nil, notFound(err, "purchase")
	}
	if !purchase.IsDraft() {
		return nil, fmt.Errorf("%w: purchase is %s, only drafts can be edited", ErrConflict, purchase.Status)
	}
	return purchase, nil
}

func (s *purchaseService) AddLine(ctx context.Context, id string, item PurchaseItemRequest) (PurchaseResponse, error) {
	uid, err := parseID(id, "purchase")
	if err != nil {
		return PurchaseResponse{}, err
	}

	var updated *model.Purchase
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		purchase, err := s.loadDraft(txCtx, uid)
		if err != nil {
			return err
		}
		line, err := s.buildLine(txCtx, purchase.ID, item)
		if err != nil {
			return err
		}
		if err := s.purchaseRepo.CreateLine(txCtx, line); err != nil {
			return fmt.Errorf("failed to create purchase line: %w", err)
		}

		total := line.TotalCost
		for _, l := range purchase.Lines {
			total = total.Add(l.TotalCost)
		}
		if err := s.purchaseRepo.UpdateTotal(txCtx, purchase.ID, total); err != nil {
			return fmt.Errorf("failed to update purchase total: %w", err)
		}

		updated, err = s.purchaseRepo.FindByIDWithLines(txCtx, purchase.ID)
		return err
	})
	if err != nil {
		return PurchaseResponse{}, err
	}
	return toPurchaseResponse(*updated), nil
}

func (s *purchaseService) RemoveLine(ctx context.Context, id, lineID string) (PurchaseResponse, error) {
	uid, err := parseID(id, "purchase")
	if err != nil {
		return PurchaseResponse{}, err
	}
	lid, err := parseID(lineID, "line")
	if err != nil {
		return PurchaseResponse{}, err
	}

	var updated *model.Purchase
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		purchase, err := s.loadDraft(txCtx, uid)
		if err != nil {
			return err
		}

		var removed *model.PurchaseLine
		total := decimal.Zero
		for i := range purchase.Lines {
			if purchase.Lines[i].ID == lid {
				removed = &purchase.Lines[i]
				continue
			}
			total = total.Add(purchase.Lines[i].TotalCost)
		}
		if removed == nil {
			return fmt.Errorf("%w: purchase line", ErrNotFound)
		}

		if err := s.purchaseRepo.DeleteLine(txCtx, removed.ID); err != nil {
			return fmt.Errorf("failed to delete purchase line: %w", err)
		}
		if removed.CatalogItem != nil && removed.CatalogItem.IsPending {
			if err := s.deleteIfOrphaned(txCtx, removed.CatalogItem.ID); err != nil {
				return err
			}
		}
		if err := s.purchaseRepo.UpdateTotal(txCtx, purchase.ID, total); err != nil {
			return fmt.Errorf("failed to update purchase total: %w", err)
		}

		updated, err = s.purchaseRepo.FindByIDWithLines(txCtx, purchase.ID)
		return err
	})
	if err != nil {
		return PurchaseResponse{}, err
	}
	return toPurchaseResponse(*updated), nil
}

// deleteIfOrphaned removes a pending item once no line references it.
func (s *purchaseService) deleteIfOrphaned(ctx context.Context, itemID uuid.UUID) error {
	refs, err := s.purchaseRepo.CountLinesForItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to count item references: %w", err)
	}
	if refs > 0 {
		return nil
	}
	if err := s.catalogRepo.Delete(ctx, itemID); err != nil {
		return fmt.Errorf("failed to delete pending item: %w", err)
	}
	return nil
}

// ConfirmPurchase promotes pending items, propagates line costs into the
// catalog and logs each real change. Everything runs in one transaction;
// the audit log and live event follow the commit and cannot fail the call.
func (s *purchaseService) ConfirmPurchase(ctx context.Context, id string) (PurchaseResponse, error) {
	uid, err := parseID(id, "purchase")
	if err != nil {
		return PurchaseResponse{}, err
	}

	var confirmed *model.Purchase
	changes := 0
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		purchase, err := s.purchaseRepo.FindByIDWithLines(txCtx, uid)
		if err != nil {
			return notFound(err, "purchase")
		}
		switch purchase.Status {
		case model.PurchaseStatusConfirmed:
			return fmt.Errorf("%w: purchase already confirmed", ErrConflict)
		case model.PurchaseStatusCancelled:
			return fmt.Errorf("%w: cancelled purchases cannot be confirmed", ErrConflict)
		}

		for _, line := range purchase.Lines {
			if line.CatalogItemID == nil {
				continue
			}
			item, err := s.catalogRepo.FindByIDForUpdate(txCtx, *line.CatalogItemID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to load catalog item: %w", err)
			}

			if model.CostChanged(item.CurrentCost, line.UnitCost) {
				entry := &model.CostHistory{
					CatalogItemID:  item.ID,
					ProviderID:     purchase.ProviderID,
					PurchaseLineID: line.ID,
					OldCost:        item.CurrentCost,
					NewCost:        line.UnitCost,
				}
				if err := s.costHistoryRepo.Create(txCtx, entry); err != nil {
					return fmt.Errorf("failed to record cost change: %w", err)
				}
				item.CurrentCost = line.UnitCost
				changes++
			}
			item.IsPending = false
			item.UpdatedAt = time.Now().UTC()
			if err := s.catalogRepo.Update(txCtx, item); err != nil {
				return fmt.Errorf("failed to update catalog item: %w", err)
			}
		}

		if err := s.purchaseRepo.UpdateStatus(txCtx, purchase.ID, model.PurchaseStatusConfirmed); err != nil {
			return fmt.Errorf("failed to confirm purchase: %w", err)
		}

		confirmed, err = s.purchaseRepo.FindByIDWithLines(txCtx, purchase.ID)
		return err
	})
	if err != nil {
		return PurchaseResponse{}, err
	}

	if err := s.audit.Append(confirmed); err != nil {
		s.metrics.AuditLogFailures.Inc()
		log.Warn().Err(err).Str("purchase_id", confirmed.ID.String()).Msg("audit log append failed")
	}
	s.metrics.PurchasesConfirmed.Inc()
	s.metrics.CostChanges.Add(float64(changes))

	resp := toPurchaseResponse(*confirmed)
	s.events.Publish(EventPurchaseConfirmed, resp)
	return resp, nil
}

func (s *purchaseService) CancelPurchase(ctx context.Context, id string) (PurchaseResponse, error) {
	uid, err := parseID(id, "purchase")
	if err != nil {
		return PurchaseResponse{}, err
	}

	var cancelled *model.Purchase
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		purchase, err := s.loadDraft(txCtx, uid)
		if err != nil {
			return err
		}
		if err := s.purchaseRepo.UpdateStatus(txCtx, purchase.ID, model.PurchaseStatusCancelled); err != nil {
			return fmt.Errorf("failed to cancel purchase: %w", err)
		}
		cancelled, err = s.purchaseRepo.FindByIDWithLines(txCtx, purchase.ID)
		return err
	})
	if err != nil {
		return PurchaseResponse{}, err
	}

	resp := toPurchaseResponse(*cancelled)
	s.events.Publish(EventPurchaseCancelled, resp)
	return resp, nil
}

// DeletePurchase removes a non-confirmed purchase with its lines. Pending
// items left without references are cleaned up after the commit; a failure
// there is only logged.
func (s *purchaseService) DeletePurchase(ctx context.Context, id string) error {
	uid, err := parseID(id, "purchase")
	if err != nil {
		return err
	}

	var pending []uuid.UUID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		purchase, err := s.purchaseRepo.FindByIDWithLines(txCtx, uid)
		if err != nil {
			return notFound(err, "purchase")
		}
		if purchase.Status == model.PurchaseStatusConfirmed {
			return fmt.Errorf("%w: confirmed purchases cannot be deleted", ErrConflict)
		}

		seen := make(map[uuid.UUID]bool)
		for _, line := range purchase.Lines {
			if line.CatalogItem != nil && line.CatalogItem.IsPending && !seen[line.CatalogItem.ID] {
				seen[line.CatalogItem.ID] = true
				pending = append(pending, line.CatalogItem.ID)
			}
		}

		if err := s.purchaseRepo.DeleteWithLines(txCtx, purchase.ID); err != nil {
			return fmt.Errorf("failed to delete purchase: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, itemID := range pending {
		if err := s.deleteIfOrphaned(ctx, itemID); err != nil {
			log.Warn().Err(err).Str("catalog_item_id", itemID.String()).Msg("pending item cleanup failed")
		}
	}

	s.events.Publish(EventPurchaseDeleted, map[string]interface{}{"id": uid})
	return nil
}

// ClonePurchase copies any purchase into a new draft dated now.
func (s *purchaseService) ClonePurchase(ctx context.Context, id string) (PurchaseResponse, error) {
	uid, err := parseID(id, "purchase")
	if err != nil {
		return PurchaseResponse{}, err
	}

	var clone *model.Purchase
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		original, err := s.purchaseRepo.FindByIDWithLines(txCtx, uid)
		if err != nil {
			return notFound(err, "purchase")
		}

		draft := &model.Purchase{
			ProviderID:    original.ProviderID,
			Date:          time.Now().UTC(),
			TotalAmount:   original.TotalAmount,
			InvoiceNumber: original.InvoiceNumber,
			Notes:         original.Notes,
			Status:        model.PurchaseStatusDraft,
		}
		if err := s.purchaseRepo.Create(txCtx, draft); err != nil {
			return fmt.Errorf("failed to create clone: %w", err)
		}
		for _, line := range original.Lines {
			copied := &model.PurchaseLine{
				PurchaseID:      draft.ID,
				CatalogItemID:   line.CatalogItemID,
				CatalogItemName: line.CatalogItemName,
				Quantity:        line.Quantity,
				UnitCost:        line.UnitCost,
				TotalCost:       line.TotalCost,
			}
			if err := s.purchaseRepo.CreateLine(txCtx, copied); err != nil {
				return fmt.Errorf("failed to copy purchase line: %w", err)
			}
		}

		clone, err = s.purchaseRepo.FindByIDWithLines(txCtx, draft.ID)
		return err
	})
	if err != nil {
		return PurchaseResponse{}, err
	}

	resp := toPurchaseResponse(*clone)
	s.events.Publish(EventPurchaseCreated, resp)
	return resp, nil
}

// --- Mapping ---

// toPurchaseResponse expects Provider, Lines and Lines.CatalogItem to be
// preloaded and never queries.
func toPurchaseResponse(p model.Purchase) PurchaseResponse {
	resp := PurchaseResponse{
		ID:            p.ID,
		ProviderID:    p.ProviderID,
		Date:          p.Date,
		TotalAmount:   p.TotalAmount,
		InvoiceNumber: p.InvoiceNumber,
		Notes:         p.Notes,
		Status:        p.Status,
		Lines:         make([]PurchaseLineResponse, 0, len(p.Lines)),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.Provider != nil {
		resp.ProviderName = p.Provider.Name
	}
	for _, l := range p.Lines {
		line := PurchaseLineResponse{
			ID:              l.ID,
			PurchaseID:      l.PurchaseID,
			CatalogItemID:   l.CatalogItemID,
			CatalogItemName: l.CatalogItemName,
			Quantity:        l.Quantity,
			UnitCost:        l.UnitCost,
			TotalCost:       l.TotalCost,
			IsNewItem:       l.IsNewItem,
			TempCategory:    l.TempCategory,
		}
		if l.CatalogItem != nil {
			line.SKU = l.CatalogItem.SKU
			line.Unit = l.CatalogItem.DefaultUnit
		}
		resp.Lines = append(resp.Lines, line)
	}
	return resp
}

func toPurchaseResponses(purchases []model.Purchase) []PurchaseResponse {
	res := make([]PurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		res = append(res, toPurchaseResponse(p))
	}
	return res
}
