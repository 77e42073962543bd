package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseStatus constants
const (
	PurchaseStatusDraft     = "draft"
	PurchaseStatusConfirmed = "confirmed"
	PurchaseStatusCancelled = "cancelled"
)

// Purchase is a supplier invoice. Drafts are editable; confirmed purchases
// are immutable.
type Purchase struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProviderID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"provider_id"`
	Provider      *Provider       `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
	Date          time.Time       `gorm:"not null;index" json:"date"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	InvoiceNumber string          `gorm:"type:varchar(50)" json:"invoice_number"`
	Notes         string          `gorm:"type:varchar(500)" json:"notes"`
	Status        string          `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Lines         []PurchaseLine  `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (p *Purchase) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsDraft reports whether the purchase can still be edited or deleted.
func (p *Purchase) IsDraft() bool {
	return p.Status == PurchaseStatusDraft
}

// PurchaseLine is one item of a purchase
type PurchaseLine struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PurchaseID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"purchase_id"`
	CatalogItemID   *uuid.UUID      `gorm:"type:uuid;index" json:"catalog_item_id"` // nil for replayed rows with no catalog match
	CatalogItem     *CatalogItem    `gorm:"foreignKey:CatalogItemID" json:"-"`
	CatalogItemName string          `gorm:"type:varchar(200)" json:"catalog_item_name"` // snapshot at purchase time
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_cost"`
	TotalCost       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_cost"`
	IsNewItem       bool            `gorm:"default:false" json:"is_new_item"`
	TempCategory    string          `gorm:"type:varchar(100)" json:"temp_category"`
}

func (l *PurchaseLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
