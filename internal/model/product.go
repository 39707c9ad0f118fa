package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type CustomizationKind string

const (
	CustomizationDropdown   CustomizationKind = "dropdown"
	CustomizationRadio      CustomizationKind = "radio"
	CustomizationCheckbox   CustomizationKind = "checkbox"
	CustomizationText       CustomizationKind = "text"
	CustomizationColor      CustomizationKind = "color"
	CustomizationDimensions CustomizationKind = "dimensions"
)

// CustomizationOption is one selectable value of a dropdown/radio/color field.
// PriceOverride, when set, replaces the resolved unit price entirely.
type CustomizationOption struct {
	Value         string           `json:"value"`
	Label         string           `json:"label,omitempty"`
	PriceModifier decimal.Decimal  `json:"priceModifier"`
	PriceOverride *decimal.Decimal `json:"priceOverride,omitempty"`
}

// CustomizationField is one entry of a product's customization schema.
// IsQuantity marks the field whose value redefines the line quantity.
type CustomizationField struct {
	Key           string                `json:"key"`
	Label         string                `json:"label,omitempty"`
	Kind          CustomizationKind     `json:"kind"`
	Required      bool                  `json:"required"`
	Options       []CustomizationOption `json:"options,omitempty"`
	PriceModifier decimal.Decimal       `json:"priceModifier"`
	IsQuantity    bool                  `json:"isQuantity,omitempty"`
}

type ProductVariant struct {
	ID    string          `json:"id"`
	Name  string          `json:"name,omitempty"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type Product struct {
	ID             string               `gorm:"primaryKey;size:64;not null"` // product sku
	Name           string               `gorm:"size:255;not null"`
	Price          decimal.Decimal      `gorm:"type:decimal(12,2);not null"`
	SalePrice      *decimal.Decimal     `gorm:"type:decimal(12,2)"`
	OnSale         bool                 `gorm:"not null;default:false"`
	Variants       []ProductVariant     `gorm:"serializer:json"`
	Customizations []CustomizationField `gorm:"serializer:json"`
	Stock          int                  `gorm:"not null;default:0"` // used when no variants
	TrackInventory bool                 `gorm:"not null;default:true"`
	AllowBackorder bool                 `gorm:"not null;default:false"`
	Category       string               `gorm:"size:64;index"`
	Tags           []string             `gorm:"serializer:json"`
	Digital        bool                 `gorm:"not null;default:false"`
	Files          []string             `gorm:"serializer:json"` // download payload for digital goods
	Active         bool                 `gorm:"index;not null;default:true"`
	Version        int                  `gorm:"not null;default:0"` // optimistic guard for stock writes
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Variant returns the variant with the given id, or nil.
func (p *Product) Variant(variantID string) *ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			return &p.Variants[i]
		}
	}
	return nil
}
