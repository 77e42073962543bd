package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"purchaseledger/internal/model"
	"purchaseledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// --- Provider DTOs ---

type CreateProviderRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Category string `json:"category" validate:"max=50"`
	Address  string `json:"address" validate:"max=200"`
	Phone    string `json:"phone" validate:"max=50"`
	Email    string `json:"email" validate:"omitempty,email,max=100"`
	Notes    string `json:"notes" validate:"max=500"`
}

// UpdateProviderRequest is partial: nil fields are left unchanged.
type UpdateProviderRequest struct {
	Category *string `json:"category" validate:"omitempty,max=50"`
	Address  *string `json:"address" validate:"omitempty,max=200"`
	Phone    *string `json:"phone" validate:"omitempty,max=50"`
	Email    *string `json:"email" validate:"omitempty,max=100"`
	Notes    *string `json:"notes" validate:"omitempty,max=500"`
}

type ProviderResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	Category       string    `json:"category"`
	Address        string    `json:"address"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ProviderMetrics struct {
	TotalSpend    decimal.Decimal `json:"total_spend"`
	PurchaseCount int             `json:"purchase_count"`
	Volatility    int64           `json:"volatility"` // cost changes attributed to this provider
}

type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type ProviderDetailResponse struct {
	Provider ProviderResponse   `json:"provider"`
	Metrics  ProviderMetrics    `json:"metrics"`
	TopItems []NameCount        `json:"top_items"`
	History  []PurchaseResponse `json:"history"`
}

type ProviderHistoryResponse struct {
	TotalSpent decimal.Decimal    `json:"total_spent"`
	Purchases  []PurchaseResponse `json:"purchases"`
}

// --- Interface ---

type ProviderService interface {
	ListProviders(ctx context.Context) ([]ProviderResponse, error)
	// CreateProvider returns the existing provider and created=false when
	// the name normalizes to one already stored.
	CreateProvider(ctx context.Context, req CreateProviderRequest) (resp ProviderResponse, created bool, err error)
	UpdateProvider(ctx context.Context, id string, req UpdateProviderRequest) (ProviderResponse, error)
	GetProviderDetail(ctx context.Context, id string) (ProviderDetailResponse, error)
	GetProviderHistory(ctx context.Context, id string) (ProviderHistoryResponse, error)
}

// --- Implementation ---

const (
	providerDetailHistoryLimit = 20
	providerDetailTopNames     = 5
	providerHistoryLimit       = 50
)

type providerService struct {
	providerRepo    repository.ProviderRepository
	purchaseRepo    repository.PurchaseRepository
	costHistoryRepo repository.CostHistoryRepository
	analysisRepo    repository.AnalysisRepository
}

func NewProviderService(
	providerRepo repository.ProviderRepository,
	purchaseRepo repository.PurchaseRepository,
	costHistoryRepo repository.CostHistoryRepository,
	analysisRepo repository.AnalysisRepository,
) ProviderService {
	return &providerService{
		providerRepo:    providerRepo,
		purchaseRepo:    purchaseRepo,
		costHistoryRepo: costHistoryRepo,
		analysisRepo:    analysisRepo,
	}
}

// NormalizeProviderName lowercases, drops punctuation and collapses
// whitespace. Two names with the same normalized form are one provider.
func NormalizeProviderName(name string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, name)
	return strings.Join(strings.Fields(stripped), " ")
}

// DisplayProviderName is the stored form of a newly created provider name.
// Casers keep state, so each call gets its own.
func DisplayProviderName(name string) string {
	return cases.Title(language.Spanish).String(strings.Join(strings.Fields(name), " "))
}

// findOrCreateProvider looks a provider up by normalized name and creates it
// when missing. name is stored as given; callers decide on casing.
func findOrCreateProvider(ctx context.Context, repo repository.ProviderRepository, name, category string) (*model.Provider, bool, error) {
	normalized := NormalizeProviderName(name)
	if normalized == "" {
		return nil, false, invalid("provider name %q is empty after normalization", name)
	}

	existing, err := repo.FindByNormalizedName(ctx, normalized)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up provider: %w", err)
	}

	provider := &model.Provider{
		Name:           name,
		NormalizedName: normalized,
		Category:       category,
	}
	if err := repo.Create(ctx, provider); err != nil {
		return nil, false, fmt.Errorf("failed to create provider: %w", err)
	}
	return provider, true, nil
}

func (s *providerService) ListProviders(ctx context.Context) ([]ProviderResponse, error) {
	providers, err := s.providerRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	res := make([]ProviderResponse, 0, len(providers))
	for _, p := range providers {
		res = append(res, toProviderResponse(p))
	}
	return res, nil
}

func (s *providerService) CreateProvider(ctx context.Context, req CreateProviderRequest) (ProviderResponse, bool, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ProviderResponse{}, false, invalid("name is required")
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = model.ProviderCategoryGeneral
	}

	provider, created, err := findOrCreateProvider(ctx, s.providerRepo, DisplayProviderName(name), category)
	if err != nil {
		return ProviderResponse{}, false, err
	}
	if created && (req.Address != "" || req.Phone != "" || req.Email != "" || req.Notes != "") {
		provider.Address = req.Address
		provider.Phone = req.Phone
		provider.Email = req.Email
		provider.Notes = req.Notes
		if err := s.providerRepo.Update(ctx, provider); err != nil {
			return ProviderResponse{}, false, fmt.Errorf("failed to save provider contact: %w", err)
		}
	}
	return toProviderResponse(*provider), created, nil
}

func (s *providerService) UpdateProvider(ctx context.Context, id string, req UpdateProviderRequest) (ProviderResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ProviderResponse{}, invalid("invalid provider ID")
	}
	provider, err := s.providerRepo.FindByID(ctx, uid)
	if err != nil {
		return ProviderResponse{}, notFound(err, "provider")
	}

	if req.Category != nil {
		provider.Category = *req.Category
	}
	if req.Address != nil {
		provider.Address = *req.Address
	}
	if req.Phone != nil {
		provider.Phone = *req.Phone
	}
	if req.Email != nil {
		provider.Email = *req.Email
	}
	if req.Notes != nil {
		provider.Notes = *req.Notes
	}

	if err := s.providerRepo.Update(ctx, provider); err != nil {
		return ProviderResponse{}, fmt.Errorf("failed to update provider: %w", err)
	}
	return toProviderResponse(*provider), nil
}

func (s *providerService) GetProviderDetail(ctx context.Context, id string) (ProviderDetailResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ProviderDetailResponse{}, invalid("invalid provider ID")
	}
	provider, err := s.providerRepo.FindByID(ctx, uid)
	if err != nil {
		return ProviderDetailResponse{}, notFound(err, "provider")
	}

	confirmed, err := s.purchaseRepo.ListByProvider(ctx, uid, model.PurchaseStatusConfirmed, 0)
	if err != nil {
		return ProviderDetailResponse{}, fmt.Errorf("failed to load provider purchases: %w", err)
	}
	spend := decimal.Zero
	for _, p := range confirmed {
		spend = spend.Add(p.TotalAmount)
	}

	volatility, err := s.costHistoryRepo.CountByProvider(ctx, uid)
	if err != nil {
		return ProviderDetailResponse{}, fmt.Errorf("failed to count cost changes: %w", err)
	}

	names, err := s.analysisRepo.ProviderTopNames(ctx, uid, providerDetailTopNames)
	if err != nil {
		return ProviderDetailResponse{}, err
	}
	topItems := make([]NameCount, 0, len(names))
	for _, n := range names {
		topItems = append(topItems, NameCount{Name: n.Name, Count: n.Count})
	}

	recent := confirmed
	if len(recent) > providerDetailHistoryLimit {
		recent = recent[:providerDetailHistoryLimit]
	}

	return ProviderDetailResponse{
		Provider: toProviderResponse(*provider),
		Metrics: ProviderMetrics{
			TotalSpend:    spend,
			PurchaseCount: len(confirmed),
			Volatility:    volatility,
		},
		TopItems: topItems,
		History:  toPurchaseResponses(recent),
	}, nil
}

func (s *providerService) GetProviderHistory(ctx context.Context, id string) (ProviderHistoryResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ProviderHistoryResponse{}, invalid("invalid provider ID")
	}
	if _, err := s.providerRepo.FindByID(ctx, uid); err != nil {
		return ProviderHistoryResponse{}, notFound(err, "provider")
	}

	purchases, err := s.purchaseRepo.ListByProvider(ctx, uid, "", providerHistoryLimit)
	if err != nil {
		return ProviderHistoryResponse{}, fmt.Errorf("failed to load provider history: %w", err)
	}
	total := decimal.Zero
	for _, p := range purchases {
		total = total.Add(p.TotalAmount)
	}
	return ProviderHistoryResponse{TotalSpent: total, Purchases: toPurchaseResponses(purchases)}, nil
}

func toProviderResponse(p model.Provider) ProviderResponse {
	return ProviderResponse{
		ID:             p.ID,
		Name:           p.Name,
		NormalizedName: p.NormalizedName,
		Category:       p.Category,
		Address:        p.Address,
		Phone:          p.Phone,
		Email:          p.Email,
		Notes:          p.Notes,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
