package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Provider categories assigned by the import paths
const (
	ProviderCategoryGeneral  = "General"
	ProviderCategorySeeded   = "Scanner Import"
	ProviderCategoryImported = "Importado"
)

// Provider is a supplier purchases are attributed to
type Provider struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"type:varchar(100);not null" json:"name"`
	NormalizedName string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"normalized_name"` // dedup key
	Category       string    `gorm:"type:varchar(50)" json:"category"`
	Address        string    `gorm:"type:varchar(200)" json:"address"`
	Phone          string    `gorm:"type:varchar(50)" json:"phone"`
	Email          string    `gorm:"type:varchar(100)" json:"email"`
	Notes          string    `gorm:"type:varchar(500)" json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (p *Provider) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
