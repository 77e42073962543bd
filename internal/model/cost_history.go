package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CostChangeEpsilon is the smallest cost delta that is recorded as a change.
var CostChangeEpsilon = decimal.New(1, -3)

// CostHistory records a catalog cost change caused by a confirmed purchase.
// Rows are append-only.
type CostHistory struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CatalogItemID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"catalog_item_id"`
	CatalogItem    *CatalogItem    `gorm:"foreignKey:CatalogItemID" json:"-"`
	ProviderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"provider_id"`
	Provider       *Provider       `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
	PurchaseLineID uuid.UUID       `gorm:"type:uuid;index" json:"purchase_line_id"`
	OldCost        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"old_cost"`
	NewCost        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"new_cost"`
	ChangedAt      time.Time       `gorm:"not null;index" json:"changed_at"`
}

func (CostHistory) TableName() string { return "cost_history" }

func (h *CostHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.ChangedAt.IsZero() {
		h.ChangedAt = time.Now().UTC()
	}
	return nil
}

// CostChanged reports whether old and new differ by more than CostChangeEpsilon.
func CostChanged(oldCost, newCost decimal.Decimal) bool {
	return oldCost.Sub(newCost).Abs().GreaterThan(CostChangeEpsilon)
}
