package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProviderRanking is a provider ranked by confirmed purchase count
type ProviderRanking struct {
	ProviderID    uuid.UUID `json:"provider_id"`
	PurchaseCount int64     `json:"purchase_count"`
}

// ItemRanking is a catalog item ranked by how many lines reference it
type ItemRanking struct {
	CatalogItemID uuid.UUID `json:"catalog_item_id"`
	LineCount     int64     `json:"line_count"`
}

// NameRanking groups lines by their name snapshot
type NameRanking struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// PriceObservation is one purchase line price seen for an item, joined with
// the purchase date and its provider.
type PriceObservation struct {
	ProviderID      uuid.UUID       `json:"provider_id"`
	ProviderName    string          `json:"provider_name"`
	ProviderAddress string          `json:"provider_address"`
	ProviderPhone   string          `json:"provider_phone"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	PurchasedAt     time.Time       `json:"purchased_at"`
}
