package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ShippingZone struct {
	ID        uint     `gorm:"primaryKey"`
	Name      string   `gorm:"size:128;not null"`
	Regions   []string `gorm:"serializer:json"` // matched against the shipping address region
	Active    bool     `gorm:"index;not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ShippingMethod struct {
	ID        uint            `gorm:"primaryKey"`
	ZoneID    uint            `gorm:"index;not null"`
	Name      string          `gorm:"size:128;not null"`
	Cost      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Active    bool            `gorm:"index;not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DigitalAccess grants a paid user download access to a digital product.
type DigitalAccess struct {
	ID           uint       `gorm:"primaryKey"`
	UserID       string     `gorm:"size:64;index;not null"`
	OrderID      string     `gorm:"size:64;index;not null"`
	ProductID    string     `gorm:"size:64;index;not null"`
	Files        []string   `gorm:"serializer:json"`
	Downloads    int        `gorm:"not null;default:0"`
	MaxDownloads int        `gorm:"not null;default:0"` // 0 = unlimited
	ExpiresAt    *time.Time // nil = no expiry
	CreatedAt    time.Time
}
