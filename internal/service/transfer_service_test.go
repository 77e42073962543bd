package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"purchaseledger/internal/model"
	"purchaseledger/pkg/tabular"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func providerTotals(t *testing.T, env *testEnv) map[string]decimal.Decimal {
	t.Helper()
	ctx := context.Background()
	providers, err := env.providers.ListProviders(ctx)
	require.NoError(t, err)

	totals := make(map[string]decimal.Decimal)
	for _, p := range providers {
		detail, err := env.providers.GetProviderDetail(ctx, p.ID.String())
		require.NoError(t, err)
		if detail.Metrics.PurchaseCount > 0 {
			totals[p.NormalizedName] = detail.Metrics.TotalSpend
		}
	}
	return totals
}

func TestExportThenImportReproducesProviderTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acme := env.provider(t, "Acme Corp.")
	sur := env.provider(t, "Distribuidora Sur")
	rice := env.item(t, "Arroz", "1")
	oil := env.item(t, "Aceite", "5")

	env.confirmedPurchase(t, acme.ID, rice.ID, "2024-01-01", "10", "1.10")
	env.confirmedPurchase(t, acme.ID, oil.ID, "2024-01-03", "2", "5.25")
	env.confirmedPurchase(t, sur.ID, rice.ID, "2024-01-02", "4", "1.05")
	_, err := env.purchases.CreatePurchase(ctx, CreatePurchaseRequest{
		ProviderID: sur.ID.String(),
		Items:      []PurchaseItemRequest{{CatalogItemID: oil.ID.String(), Quantity: dec("100"), UnitCost: dec("1")}},
	})
	require.NoError(t, err)

	before := providerTotals(t, env)
	require.Len(t, before, 2)

	table, err := env.transfer.ExportPurchases(ctx)
	require.NoError(t, err)
	assert.Equal(t, PurchaseHeaders, table.Headers)
	require.Len(t, table.Rows, 3, "drafts are not exported")
	assert.Equal(t, "2024-01-03 00:00", table.Rows[0][0], "newest first")
	assert.Equal(t, "SKU-Aceite", table.Rows[0][3])

	var buf bytes.Buffer
	require.NoError(t, tabular.WriteCSV(&buf, table))

	require.NoError(t, env.backup.Purge(ctx, PurgeTransactionsOnly))
	assert.Empty(t, providerTotals(t, env))

	result, err := env.transfer.ImportHistory(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Purchases: 3, Lines: 3}, result)

	after := providerTotals(t, env)
	require.Len(t, after, len(before))
	for name, total := range before {
		assertDecimal(t, total.String(), after[name], name)
	}
}

func TestImportHistory_GroupsByDayAndProvider(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.item(t, "Harina", "1")

	csv := `Fecha,Proveedor,Item,SKU,Cantidad,Unidad,Costo Unitario,Costo Total,Total Factura
2024-05-01 09:00,Molino Sur,harina,,10,kg,1.5,15,
2024-05-01 17:30,molino sur.,Desconocido,,1,und,2,2,
2024-05-02,Molino Sur,Harina,,10,kg,1.7,17,
2024-05-02,,Harina,,1,kg,1.9,1.9,
`
	result, err := env.transfer.ImportHistory(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Purchases: 3, Lines: 4}, result)

	provider, err := env.providerRepo.FindByNormalizedName(ctx, "molino sur")
	require.NoError(t, err)
	assert.Equal(t, "Molino Sur", provider.Name)
	assert.Equal(t, model.ProviderCategoryImported, provider.Category)

	history, err := env.providers.GetProviderHistory(ctx, provider.ID.String())
	require.NoError(t, err)
	require.Len(t, history.Purchases, 2)
	assertDecimal(t, "34", history.TotalSpent)

	_, err = env.providerRepo.FindByNormalizedName(ctx, "general")
	assert.NoError(t, err, "rows without provider land on General")

	updated, err := env.catalogRepo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assertDecimal(t, "1.9", updated.CurrentCost, "last matched row in file order wins")

	var unmatched int64
	require.NoError(t, env.db.Model(&model.PurchaseLine{}).Where("catalog_item_id IS NULL").Count(&unmatched).Error)
	assert.EqualValues(t, 1, unmatched)
}

func TestImportHistory_MatchesAccentedNames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.item(t, "Jalapeño", "1")

	csv := `Fecha,Proveedor,Item,SKU,Cantidad,Unidad,Costo Unitario,Costo Total,Total Factura
2024-05-01,Huerta,JALAPEÑO,,2,kg,3.5,7,
`
	_, err := env.transfer.ImportHistory(ctx, strings.NewReader(csv))
	require.NoError(t, err)

	var line model.PurchaseLine
	require.NoError(t, env.db.First(&line).Error)
	require.NotNil(t, line.CatalogItemID)
	assert.Equal(t, item.ID, *line.CatalogItemID)

	updated, err := env.catalogRepo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assertDecimal(t, "3.5", updated.CurrentCost)
}

func TestImportHistory_MalformedRowAbortsEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	csv := `Fecha,Proveedor,Item,SKU,Cantidad,Unidad,Costo Unitario,Costo Total,Total Factura
2024-05-01,Molino,Harina,,10,kg,1.5,15,
2024-05-02,Molino,Harina,,diez,kg,1.5,15,
`
	_, err := env.transfer.ImportHistory(ctx, strings.NewReader(csv))
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "line 3")

	var purchases int64
	require.NoError(t, env.db.Model(&model.Purchase{}).Count(&purchases).Error)
	assert.Zero(t, purchases)

	_, err = env.transfer.ImportHistory(ctx, strings.NewReader("Fecha,Proveedor\n01/05/2024,Molino\n"))
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "line 2")
}

func TestExportCatalog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	handle := "tomate"
	require.NoError(t, env.catalogRepo.Create(ctx, &model.CatalogItem{
		ExternalID: &handle, SKU: "1", Name: "Tomate", Category: "Verduras",
		IsByWeight: true, DefaultUnit: model.UnitKilogram, CurrentCost: dec("1.8"),
	}))
	plain := env.item(t, "Vaso", "0.2")

	table, err := env.transfer.ExportCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, CatalogHeaders, table.Headers)
	require.Len(t, table.Rows, 2)

	assert.Equal(t, []string{"tomate", "1", "Tomate", "Verduras", "1.8", "0", "Y", ""}, table.Rows[0])
	assert.Equal(t, "handle-"+plain.ID.String(), table.Rows[1][0])
	assert.Equal(t, model.ProviderCategoryGeneral, table.Rows[1][3])
	assert.Equal(t, "N", table.Rows[1][6])

	// The export feeds back into seeding without creating duplicates.
	var buf bytes.Buffer
	require.NoError(t, tabular.WriteCSV(&buf, table))
	result, err := env.catalog.SeedCatalog(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsAdded, "only the item without a handle is new")
}
