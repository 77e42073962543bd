package auditlog

import (
	"encoding/csv"
	"path/filepath"
	"testing"
	"time"

	"purchaseledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePurchase(itemName string) *model.Purchase {
	return &model.Purchase{
		ID:       uuid.New(),
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Provider: &model.Provider{Name: "Molino Sur"},
		Lines: []model.PurchaseLine{{
			CatalogItemName: itemName,
			Quantity:        decimal.NewFromInt(2),
			UnitCost:        decimal.NewFromInt(5),
			TotalCost:       decimal.NewFromInt(10),
		}},
	}
}

func TestWriter_AppendWritesHeaderOnce(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "logs", "history.csv"))

	require.NoError(t, w.Append(samplePurchase("Harina")))
	require.NoError(t, w.Append(samplePurchase("Azucar")))

	f, err := w.Open()
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, "Harina", rows[1][3])
	assert.Equal(t, "Molino Sur", rows[2][2])
	assert.Equal(t, "10", rows[2][6])
}

func TestWriter_OpenMissing(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "none.csv"))

	_, err := w.Open()
	assert.ErrorIs(t, err, ErrNoLog)
}
