package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"purchaseledger/internal/auditlog"
	"purchaseledger/internal/model"
	"purchaseledger/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePurchase_ComputesTotalFromLines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.provider(t, "Distribuidora Sur")
	rice := env.item(t, "Arroz", "1.20")

	purchase, err := env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{
		ProviderID: p.ID.String(),
		Date:       "2024-03-05",
		Items: []PurchaseItemRequest{
			{CatalogItemID: rice.ID.String(), Quantity: dec("10"), UnitCost: dec("1.25")},
			{IsNewItem: true, CatalogItemName: "Aceite de oliva", Quantity: dec("2"), UnitCost: dec("7.5")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.PurchaseStatusDraft, purchase.Status)
	assert.Equal(t, "Distribuidora Sur", purchase.ProviderName)
	assertDecimal(t, "27.5", purchase.TotalAmount)
	require.Len(t, purchase.Lines, 2)
	names := []string{purchase.Lines[0].CatalogItemName, purchase.Lines[1].CatalogItemName}
	assert.ElementsMatch(t, []string{"Arroz", "Aceite de oliva"}, names, "name snapshot falls back to the catalog name")
	assert.Equal(t, []string{EventPurchaseCreated}, env.events.Events())
}

func TestCreatePurchase_ExplicitTotalWins(t *testing.T) {
	env := newTestEnv(t)
	p := env.provider(t, "Acme")
	item := env.item(t, "Sal", "1")
	total := dec("99.99")

	purchase, err := env.purchases.CreatePurchase(context.Background(), CreatePurchaseRequest{
		ProviderID:  p.ID.String(),
		TotalAmount: &total,
		Items:       []PurchaseItemRequest{{CatalogItemID: item.ID.String(), Quantity: dec("1"), UnitCost: dec("1")}},
	})
	require.NoError(t, err)
	assertDecimal(t, "99.99", purchase.TotalAmount)
}

func TestCreatePurchase_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.provider(t, "Acme")

	_, err := env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{ProviderID: "nope"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{ProviderID: uuid.NewString()})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{ProviderID: p.ID.String(), Date: "05/03/2024"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{
		ProviderID: p.ID.String(),
		Items:      []PurchaseItemRequest{{CatalogItemID: uuid.NewString(), Quantity: dec("1"), UnitCost: dec("1")}},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{
		ProviderID: p.ID.String(),
		Items:      []PurchaseItemRequest{{IsNewItem: true, CatalogItemName: "x", Quantity: dec("0"), UnitCost: dec("1")}},
	})
	assert.ErrorIs(t, err, ErrValidation)

	drafts, err := env.purchases.ListDrafts(ctx)
	require.NoError(t, err)
	assert.Zero(t, drafts.Count, "failed creates roll back")
}

func TestConfirmPurchase_Twice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.provider(t, "Acme")
	item := env.item(t, "Harina", "2")

	confirmed := env.confirmedPurchase(t, p.ID, item.ID, "2024-01-01", "1", "2.5")
	assert.Equal(t, model.PurchaseStatusConfirmed, confirmed.Status)

	_, err := env.purchases.ConfirmPurchase(ctx, confirmed.ID.String())
	assert.ErrorIs(t, err, ErrConflict)

	history, total, err := env.costHistoryRepo.ListByItem(ctx, item.ID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total, "the rejected confirmation writes nothing")
	assert.Len(t, history, 1)
}

func TestConfirmPurchase_PromotesPendingItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.provider(t, "Acme")

	draft, err := env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{
		ProviderID: p.ID.String(),
		Items:      []PurchaseItemRequest{{IsNewItem: true, CatalogItemName: "Queso Azul", Category: "Lacteos", Quantity: dec("1"), UnitCost: dec("12")}},
	})
	require.NoError(t, err)

	found, err := env.catalog.SearchCatalog(ctx, "queso")
	require.NoError(t, err)
	assert.Empty(t, found, "pending items are hidden")

	itemID := *draft.Lines[0].CatalogItemID
	pending, err := env.catalogRepo.FindByID(ctx, itemID)
	require.NoError(t, err)
	assert.True(t, pending.IsPending)
	require.NotNil(t, pending.ExternalID)
	assert.True(t, strings.HasPrefix(*pending.ExternalID, "temp-"))
	assert.True(t, strings.HasPrefix(pending.SKU, "TEMP-"))
	assert.Equal(t, "Lacteos", pending.Category)

	_, err = env.purchases.ConfirmPurchase(ctx, draft.ID.String())
	require.NoError(t, err)

	found, err = env.catalog.SearchCatalog(ctx, "queso")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.False(t, found[0].IsPending)
	assertDecimal(t, "12", found[0].CurrentCost)
}

// failingCostHistory lets the first okCalls writes through and then fails.
type failingCostHistory struct {
	repository.CostHistoryRepository
	okCalls int
	calls   int
}

func (f *failingCostHistory) Create(ctx context.Context, entry *model.CostHistory) error {
	f.calls++
	if f.calls > f.okCalls {
		return errors.New("disk I/O error")
	}
	return f.CostHistoryRepository.Create(ctx, entry)
}

func TestConfirmPurchase_FailureRollsBackEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.provider(t, "Acme")
	sugar := env.item(t, "Azucar", "5")
	coffee := env.item(t, "Cafe", "1")

	draft, err := env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{
		ProviderID: p.ID.String(),
		Items: []PurchaseItemRequest{
			{IsNewItem: true, CatalogItemName: "Queso Azul", Quantity: dec("1"), UnitCost: dec("12")},
			{CatalogItemID: sugar.ID.String(), Quantity: dec("1"), UnitCost: dec("7")},
			{CatalogItemID: coffee.ID.String(), Quantity: dec("1"), UnitCost: dec("2")},
		},
	})
	require.NoError(t, err)

	history := &failingCostHistory{CostHistoryRepository: env.costHistoryRepo, okCalls: 1}
	purchases := NewPurchaseService(env.purchaseRepo, env.catalogRepo, env.providerRepo, history,
		repository.NewTransactionManager(env.db), env.events, env.audit, env.metrics)

	_, err = purchases.ConfirmPurchase(ctx, draft.ID.String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.Equal(t, 2, history.calls)

	got, err := env.purchases.GetPurchase(ctx, draft.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseStatusDraft, got.Status)

	for _, tc := range []struct {
		item *model.CatalogItem
		cost string
	}{{sugar, "5"}, {coffee, "1"}} {
		reloaded, err := env.catalogRepo.FindByID(ctx, tc.item.ID)
		require.NoError(t, err)
		assertDecimal(t, tc.cost, reloaded.CurrentCost, tc.item.Name)
	}

	var pendingID uuid.UUID
	for _, line := range got.Lines {
		if line.IsNewItem {
			pendingID = *line.CatalogItemID
		}
	}
	pending, err := env.catalogRepo.FindByID(ctx, pendingID)
	require.NoError(t, err)
	assert.True(t, pending.IsPending)
	found, err := env.catalog.SearchCatalog(ctx, "queso")
	require.NoError(t, err)
	assert.Empty(t, found)

	var historyRows int64
	require.NoError(t, env.db.Model(&model.CostHistory{}).Count(&historyRows).Error)
	assert.Zero(t, historyRows)
	assert.Empty(t, env.events.Events())
	_, err = env.audit.Open()
	assert.ErrorIs(t, err, auditlog.ErrNoLog)

	// The same draft confirms once the store recovers.
	_, err = env.purchases.ConfirmPurchase(ctx, draft.ID.String())
	require.NoError(t, err)
}

func TestConfirmPurchase_CostHistoryEpsilon(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.provider(t, "Acme")
	steady := env.item(t, "Azucar", "10.0000")
	moved := env.item(t, "Cafe", "10.0000")

	draft, err := env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{
		ProviderID: p.ID.String(),
		Items: []PurchaseItemRequest{
			{CatalogItemID: steady.ID.String(), Quantity: dec("1"), UnitCost: dec("10.0005")},
			{CatalogItemID: moved.ID.String(), Quantity: dec("1"), UnitCost: dec("10.002")},
		},
	})
	require.NoError(t, err)
	_, err = env.purchases.ConfirmPurchase(ctx, draft.ID.String())
	require.NoError(t, err)

	_, steadyCount, err := env.costHistoryRepo.ListByItem(ctx, steady.ID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, steadyCount)

	rows, movedCount, err := env.costHistoryRepo.ListByItem(ctx, moved.ID, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, movedCount)
	assertDecimal(t, "10", rows[0].OldCost)
	assertDecimal(t, "10.002", rows[0].NewCost)
	assert.Equal(t, p.ID, rows[0].ProviderID)

	item, err := env.catalogRepo.FindByID(ctx, steady.ID)
	require.NoError(t, err)
	assertDecimal(t, "10", item.CurrentCost, "sub-epsilon changes leave the cost alone")
}

func TestConfirmPurchase_AppendsAuditLog(t *testing.T) {
	env := newTestEnv(t)
	p := env.provider(t, "Acme")
	item := env.item(t, "Leche", "1")

	env.confirmedPurchase(t, p.ID, item.ID, "2024-02-01", "3", "1.1")

	data, err := os.ReadFile(env.audit.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "purchase_id,"))
	assert.Contains(t, lines[1], "Leche")
	assert.Contains(t, env.events.Events(), EventPurchaseConfirmed)
}

func TestCancelPurchase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.provider(t, "Acme")

	draft, err := env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{ProviderID: p.ID.String()})
	require.NoError(t, err)

	cancelled, err := env.purchases.CancelPurchase(ctx, draft.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseStatusCancelled, cancelled.Status)

	_, err = env.purchases.ConfirmPurchase(ctx, draft.ID.String())
	assert.ErrorIs(t, err, ErrConflict)
	_, err = env.purchases.CancelPurchase(ctx, draft.ID.String())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDeletePurchase_DraftRemovesOrphanedPendingItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.provider(t, "Acme")
	existing := env.item(t, "Pan", "1")

	draft, err := env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{
		ProviderID: p.ID.String(),
		Items: []PurchaseItemRequest{
			{CatalogItemID: existing.ID.String(), Quantity: dec("1"), UnitCost: dec("1")},
			{IsNewItem: true, CatalogItemName: "Nuevo", Quantity: dec("1"), UnitCost: dec("3")},
		},
	})
	require.NoError(t, err)
	pendingID := *draft.Lines[1].CatalogItemID

	require.NoError(t, env.purchases.DeletePurchase(ctx, draft.ID.String()))

	_, err = env.purchases.GetPurchase(ctx, draft.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.catalogRepo.FindByID(ctx, pendingID)
	assert.True(t, isRecordNotFound(err), "orphaned pending item is removed")
	_, err = env.catalogRepo.FindByID(ctx, existing.ID)
	assert.NoError(t, err, "regular items survive")

	var lines int64
	require.NoError(t, env.db.Model(&model.PurchaseLine{}).Count(&lines).Error)
	assert.Zero(t, lines)
}

func TestDeletePurchase_KeepsPendingItemStillReferenced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.provider(t, "Acme")

	first, err := env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{
		ProviderID: p.ID.String(),
		Items:      []PurchaseItemRequest{{IsNewItem: true, CatalogItemName: "Compartido", Quantity: dec("1"), UnitCost: dec("3")}},
	})
	require.NoError(t, err)
	pendingID := *first.Lines[0].CatalogItemID

	second, err := env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{
		ProviderID: p.ID.String(),
		Items:      []PurchaseItemRequest{{CatalogItemID: pendingID.String(), Quantity: dec("2"), UnitCost: dec("3")}},
	})
	require.NoError(t, err)

	require.NoError(t, env.purchases.DeletePurchase(ctx, first.ID.String()))
	_, err = env.catalogRepo.FindByID(ctx, pendingID)
	assert.NoError(t, err)

	require.NoError(t, env.purchases.DeletePurchase(ctx, second.ID.String()))
	_, err = env.catalogRepo.FindByID(ctx, pendingID)
	assert.True(t, isRecordNotFound(err))
}

func TestDeletePurchase_ConfirmedRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.provider(t, "Acme")
	item := env.item(t, "Te", "1")

	confirmed := env.confirmedPurchase(t, p.ID, item.ID, "2024-01-01", "1", "1")

	err := env.purchases.DeletePurchase(ctx, confirmed.ID.String())
	assert.ErrorIs(t, err, ErrConflict)

	got, err := env.purchases.GetPurchase(ctx, confirmed.ID.String())
	require.NoError(t, err)
	assert.Len(t, got.Lines, 1)
}

func TestAddAndRemoveLine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.provider(t, "Acme")
	item := env.item(t, "Vino", "5")

	draft, err := env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{ProviderID: p.ID.String()})
	require.NoError(t, err)

	updated, err := env.purchases.AddLine(ctx, draft.ID.String(), PurchaseItemRequest{CatalogItemID: item.ID.String(), Quantity: dec("2"), UnitCost: dec("5")})
	require.NoError(t, err)
	updated, err = env.purchases.AddLine(ctx, draft.ID.String(), PurchaseItemRequest{IsNewItem: true, CatalogItemName: "Cerveza", Quantity: dec("6"), UnitCost: dec("1")})
	require.NoError(t, err)
	require.Len(t, updated.Lines, 2)
	assertDecimal(t, "16", updated.TotalAmount)

	var pendingLine PurchaseLineResponse
	for _, l := range updated.Lines {
		if l.IsNewItem {
			pendingLine = l
		}
	}
	updated, err = env.purchases.RemoveLine(ctx, draft.ID.String(), pendingLine.ID.String())
	require.NoError(t, err)
	require.Len(t, updated.Lines, 1)
	assertDecimal(t, "10", updated.TotalAmount)
	_, err = env.catalogRepo.FindByID(ctx, *pendingLine.CatalogItemID)
	assert.True(t, isRecordNotFound(err))

	_, err = env.purchases.RemoveLine(ctx, draft.ID.String(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.purchases.ConfirmPurchase(ctx, draft.ID.String())
	require.NoError(t, err)
	_, err = env.purchases.AddLine(ctx, draft.ID.String(), PurchaseItemRequest{CatalogItemID: item.ID.String(), Quantity: dec("1"), UnitCost: dec("5")})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestReviewPurchase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.provider(t, "Acme")
	up := env.item(t, "Tomate", "2")
	down := env.item(t, "Papa", "4")
	same := env.item(t, "Cebolla", "1")
	unpriced := env.item(t, "Ajo", "0")

	draft, err := env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{
		ProviderID: p.ID.String(),
		Items: []PurchaseItemRequest{
			{CatalogItemID: up.ID.String(), Quantity: dec("1"), UnitCost: dec("2.5")},
			{CatalogItemID: down.ID.String(), Quantity: dec("1"), UnitCost: dec("3")},
			{CatalogItemID: same.ID.String(), Quantity: dec("1"), UnitCost: dec("1.005")},
			{CatalogItemID: unpriced.ID.String(), Quantity: dec("1"), UnitCost: dec("0.8")},
		},
	})
	require.NoError(t, err)

	review, err := env.purchases.ReviewPurchase(ctx, draft.ID.String())
	require.NoError(t, err)
	require.Len(t, review.Lines, 4)
	assert.True(t, review.HasAlerts)

	byName := make(map[string]LineReview)
	for _, l := range review.Lines {
		byName[l.Line.CatalogItemName] = l
	}
	assert.Equal(t, ReviewUp, byName["Tomate"].Status)
	assertDecimal(t, "25", byName["Tomate"].DiffPct)
	assert.Equal(t, ReviewDown, byName["Papa"].Status)
	assertDecimal(t, "-25", byName["Papa"].DiffPct)
	assert.Equal(t, ReviewSame, byName["Cebolla"].Status)
	assert.Equal(t, ReviewNew, byName["Ajo"].Status)
}

func TestClonePurchase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.provider(t, "Acme")
	item := env.item(t, "Miel", "8")

	original := env.confirmedPurchase(t, p.ID, item.ID, "2023-12-24", "2", "8")

	clone, err := env.purchases.ClonePurchase(ctx, original.ID.String())
	require.NoError(t, err)
	assert.NotEqual(t, original.ID, clone.ID)
	assert.Equal(t, model.PurchaseStatusDraft, clone.Status)
	assertDecimal(t, "16", clone.TotalAmount)
	require.Len(t, clone.Lines, 1)
	assert.Equal(t, item.ID, *clone.Lines[0].CatalogItemID)
	assert.True(t, clone.Date.After(original.Date))
}

func TestListRecentAndDrafts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.provider(t, "Acme")
	item := env.item(t, "Agua", "1")

	for _, day := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-06"} {
		env.confirmedPurchase(t, p.ID, item.ID, day, "1", "1")
	}
	_, err := env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{ProviderID: p.ID.String(), Date: "2024-01-07"})
	require.NoError(t, err)

	recent, err := env.purchases.ListRecent(ctx)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.Equal(t, model.PurchaseStatusDraft, recent[0].Status, "newest first")
	assert.Equal(t, "2024-01-03", recent[4].Date.Format("2006-01-02"))

	drafts, err := env.purchases.ListDrafts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, drafts.Count)
}
