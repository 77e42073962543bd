package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"purchaseledger/internal/auditlog"
	"purchaseledger/internal/database"
	"purchaseledger/internal/metrics"
	"purchaseledger/internal/model"
	"purchaseledger/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(eventType string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func (p *recordingPublisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type testEnv struct {
	db      *gorm.DB
	events  *recordingPublisher
	audit   *auditlog.Writer
	metrics *metrics.Registry

	providerRepo    repository.ProviderRepository
	catalogRepo     repository.CatalogRepository
	purchaseRepo    repository.PurchaseRepository
	costHistoryRepo repository.CostHistoryRepository

	providers ProviderService
	catalog   CatalogService
	purchases PurchaseService
	analysis  AnalysisService
	transfer  TransferService
	backup    BackupService
}

// newTestEnv wires every service over a private in-memory database. dbPath
// is handed to the backup service; pass "" for none.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	return wireTestEnv(t, db, "")
}

func wireTestEnv(t *testing.T, db *gorm.DB, dbPath string) *testEnv {
	t.Helper()
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	env := &testEnv{
		db:              db,
		events:          &recordingPublisher{},
		audit:           auditlog.NewWriter(filepath.Join(t.TempDir(), "audit.csv")),
		metrics:         metrics.NewRegistry(),
		providerRepo:    repository.NewProviderRepository(db),
		catalogRepo:     repository.NewCatalogRepository(db),
		purchaseRepo:    repository.NewPurchaseRepository(db),
		costHistoryRepo: repository.NewCostHistoryRepository(db),
	}
	txManager := repository.NewTransactionManager(db)
	analysisRepo := repository.NewAnalysisRepository(db)

	env.providers = NewProviderService(env.providerRepo, env.purchaseRepo, env.costHistoryRepo, analysisRepo)
	env.catalog = NewCatalogService(env.catalogRepo, env.providerRepo, env.costHistoryRepo, txManager, env.metrics)
	env.purchases = NewPurchaseService(env.purchaseRepo, env.catalogRepo, env.providerRepo, env.costHistoryRepo, txManager, env.events, env.audit, env.metrics)
	env.analysis = NewAnalysisService(analysisRepo, env.providerRepo, env.catalogRepo)
	env.transfer = NewTransferService(env.purchaseRepo, env.catalogRepo, env.providerRepo, txManager, env.metrics)
	env.backup = NewBackupService(db, dbPath, repository.NewMaintenanceRepository(db), txManager)
	return env
}

func (e *testEnv) provider(t *testing.T, name string) ProviderResponse {
	t.Helper()
	p, _, err := e.providers.CreateProvider(context.Background(), CreateProviderRequest{Name: name})
	require.NoError(t, err)
	return p
}

func (e *testEnv) item(t *testing.T, name, cost string) *model.CatalogItem {
	t.Helper()
	item := &model.CatalogItem{
		Name:        name,
		SKU:         "SKU-" + name,
		DefaultUnit: model.UnitEach,
		CurrentCost: decimal.RequireFromString(cost),
	}
	require.NoError(t, e.catalogRepo.Create(context.Background(), item))
	return item
}

// confirmedPurchase creates and confirms a one-line purchase.
func (e *testEnv) confirmedPurchase(t *testing.T, providerID uuid.UUID, itemID uuid.UUID, date, qty, unitCost string) PurchaseResponse {
	t.Helper()
	ctx := context.Background()
	draft, err := e.purchases.CreatePurchase(ctx, CreatePurchaseRequest{
		ProviderID: providerID.String(),
		Date:       date,
		Items: []PurchaseItemRequest{{
			CatalogItemID: itemID.String(),
			Quantity:      decimal.RequireFromString(qty),
			UnitCost:      decimal.RequireFromString(unitCost),
		}},
	})
	require.NoError(t, err)
	confirmed, err := e.purchases.ConfirmPurchase(ctx, draft.ID.String())
	require.NoError(t, err)
	return confirmed
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}
