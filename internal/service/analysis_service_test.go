package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeShoppingList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	north := env.provider(t, "Norte")
	south := env.provider(t, "Sur")
	rice := env.item(t, "Arroz", "1")
	beans := env.item(t, "Porotos", "2")
	salt := env.item(t, "Sal", "0.75")

	// Norte was cheaper for rice once, but its latest price is higher.
	env.confirmedPurchase(t, north.ID, rice.ID, "2024-01-01", "1", "0.90")
	env.confirmedPurchase(t, south.ID, rice.ID, "2024-01-05", "1", "1.10")
	env.confirmedPurchase(t, north.ID, rice.ID, "2024-01-10", "1", "1.20")
	env.confirmedPurchase(t, north.ID, beans.ID, "2024-01-02", "1", "2.40")

	plan, err := env.analysis.OptimizeShoppingList(ctx, []string{
		beans.ID.String(), rice.ID.String(), salt.ID.String(), uuid.NewString(), "garbage",
	})
	require.NoError(t, err)
	require.Len(t, plan, 3)

	assert.Equal(t, "Norte", plan[0].ProviderName, "first-seen provider order")
	require.NotNil(t, plan[0].ProviderID)
	assert.Equal(t, north.ID, *plan[0].ProviderID)
	require.Len(t, plan[0].Items, 1)
	assert.Equal(t, beans.ID, plan[0].Items[0].ItemID)
	assertDecimal(t, "2.4", plan[0].TotalEst)

	assert.Equal(t, "Sur", plan[1].ProviderName)
	assertDecimal(t, "1.1", plan[1].Items[0].EstCost)

	assert.Equal(t, NoHistoryBucket, plan[2].ProviderName)
	assert.Nil(t, plan[2].ProviderID)
	assertDecimal(t, "0.75", plan[2].TotalEst)
}

func TestOptimizeShoppingList_TieGoesToMostRecent(t *testing.T) {
	env := newTestEnv(t)
	older := env.provider(t, "Antiguo")
	newer := env.provider(t, "Reciente")
	item := env.item(t, "Fideos", "1")

	env.confirmedPurchase(t, older.ID, item.ID, "2024-01-01", "1", "1.50")
	env.confirmedPurchase(t, newer.ID, item.ID, "2024-02-01", "1", "1.50")

	plan, err := env.analysis.OptimizeShoppingList(context.Background(), []string{item.ID.String()})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "Reciente", plan[0].ProviderName)
}

func TestOptimizeShoppingList_IgnoresDrafts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.provider(t, "Acme")
	item := env.item(t, "Lentejas", "3")

	_, err := env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{
		ProviderID: p.ID.String(),
		Items:      []PurchaseItemRequest{{CatalogItemID: item.ID.String(), Quantity: dec("1"), UnitCost: dec("1")}},
	})
	require.NoError(t, err)

	plan, err := env.analysis.OptimizeShoppingList(ctx, []string{item.ID.String()})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, NoHistoryBucket, plan[0].ProviderName)
	assertDecimal(t, "3", plan[0].TotalEst)
}

func TestComparePrices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.provider(t, "A")
	b := env.provider(t, "B")
	item := env.item(t, "Yerba", "4")

	env.confirmedPurchase(t, a.ID, item.ID, "2024-01-01", "1", "4.00")
	env.confirmedPurchase(t, a.ID, item.ID, "2024-03-01", "1", "4.50")
	env.confirmedPurchase(t, b.ID, item.ID, "2024-02-01", "1", "4.20")

	comparison, err := env.analysis.ComparePrices(ctx, item.ID.String())
	require.NoError(t, err)
	assert.Equal(t, item.ID, comparison.ItemID)
	require.Len(t, comparison.Providers, 2)
	assert.Equal(t, "A", comparison.Providers[0].Name)
	assertDecimal(t, "4.5", comparison.Providers[0].LastPrice)
	assert.Equal(t, "B", comparison.Providers[1].Name)
	assertDecimal(t, "4.2", comparison.Providers[1].LastPrice)

	empty, err := env.analysis.ComparePrices(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, empty.Providers)
}

func TestTopProvidersAndItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	busy := env.provider(t, "Ocupado")
	quiet := env.provider(t, "Tranquilo")
	env.provider(t, "Nunca")
	flour := env.item(t, "Harina", "1")
	sugar := env.item(t, "Azucar", "1")

	env.confirmedPurchase(t, busy.ID, flour.ID, "2024-01-01", "1", "1")
	env.confirmedPurchase(t, busy.ID, flour.ID, "2024-01-02", "1", "1")
	env.confirmedPurchase(t, busy.ID, sugar.ID, "2024-01-03", "1", "1")
	env.confirmedPurchase(t, quiet.ID, sugar.ID, "2024-01-04", "1", "1")

	top, err := env.analysis.TopProviders(ctx)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, busy.ID, top[0].ID)
	assert.Equal(t, quiet.ID, top[1].ID)

	items, err := env.analysis.ProviderTopItems(ctx, busy.ID.String())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, flour.ID, items[0].ID)

	_, err = env.analysis.ProviderTopItems(ctx, "x")
	assert.ErrorIs(t, err, ErrValidation)
}
