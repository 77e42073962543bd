package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Units of measure
const (
	UnitKilogram = "kg"
	UnitEach     = "und"
)

// CatalogItem is the reusable definition of something we buy, seeded from the
// POS export and updated locally on every confirmed purchase.
type CatalogItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID  *string         `gorm:"type:varchar(100);uniqueIndex" json:"external_id"` // Loyverse handle, temp-* for ad-hoc items
	SKU         string          `gorm:"type:varchar(50);index" json:"sku"`
	Name        string          `gorm:"type:varchar(200);not null;index" json:"name"`
	NameLower   string          `gorm:"type:varchar(200);index" json:"-"` // lookup key; SQLite LOWER() is ASCII-only
	Category    string          `gorm:"type:varchar(100)" json:"category"`
	DefaultUnit string          `gorm:"type:varchar(20)" json:"default_unit"`
	IsByWeight  bool            `gorm:"default:false" json:"is_by_weight"`
	CurrentCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"current_cost"`
	IsPending   bool            `gorm:"default:false;index" json:"is_pending"` // invisible until a purchase confirms it
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FoldName is the case-insensitive form of an item name used for lookups.
func FoldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (i *CatalogItem) BeforeSave(tx *gorm.DB) error {
	i.NameLower = FoldName(i.Name)
	return nil
}

func (i *CatalogItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
