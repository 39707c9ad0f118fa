package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponPercentage   CouponType = "percentage"
	CouponFixed        CouponType = "fixed"
	CouponFreeShipping CouponType = "free_shipping"
)

type Coupon struct {
	ID             uint             `gorm:"primaryKey"`
	Code           string           `gorm:"size:64;uniqueIndex;not null"` // stored upper-case
	Type           CouponType       `gorm:"size:20;not null"`
	Value          decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	Active         bool             `gorm:"not null;default:true"`
	StartsAt       *time.Time       `gorm:"index"`
	EndsAt         *time.Time       `gorm:"index"`
	MinPurchase    decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	MaxUses        int              `gorm:"not null;default:0"` // 0 = unlimited
	CurrentUses    int              `gorm:"not null;default:0"`
	MaxUsesPerUser int              `gorm:"not null;default:0"` // 0 = unlimited
	AllowedEmails  []string         `gorm:"serializer:json"`    // empty = everyone
	MaxDiscount    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NormalizeCouponCode is the single case normalization for coupon lookups.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CouponUsage is one redemption of a coupon by a user on an order. Record
// existence, not the counter, is the source of truth for per-user counts.
type CouponUsage struct {
	ID        uint   `gorm:"primaryKey"`
	CouponID  uint   `gorm:"index;not null"`
	UserID    string `gorm:"size:64;index;not null"`
	OrderID   string `gorm:"size:64;index;not null"`
	CreatedAt time.Time
}

type BundleScope string

const (
	BundleScopeAll        BundleScope = "all"
	BundleScopeCategories BundleScope = "categories"
	BundleScopeProducts   BundleScope = "products"
	BundleScopeTags       BundleScope = "tags"
)

type BundleKind string

const (
	BundleBuyXGetYFree    BundleKind = "buy_x_get_y_free"
	BundleBuyXGetYPercent BundleKind = "buy_x_get_y_percent"
	BundleBuyXFixedPrice  BundleKind = "buy_x_fixed_price"
	BundleQuantityPercent BundleKind = "quantity_percent"
)

// BundleDiscount is an automatic multi-item promotion applied without a code.
type BundleDiscount struct {
	ID          uint            `gorm:"primaryKey"`
	Name        string          `gorm:"size:128;not null"`
	Scope       BundleScope     `gorm:"size:16;not null"`
	Categories  []string        `gorm:"serializer:json"`
	ProductIDs  []string        `gorm:"serializer:json"`
	Tags        []string        `gorm:"serializer:json"`
	Kind        BundleKind      `gorm:"size:32;not null"`
	BuyQuantity int             `gorm:"not null"`
	GetQuantity int             `gorm:"not null;default:0"`
	Percent     decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	FixedPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Priority    int             `gorm:"index;not null;default:0"`
	StartsAt    *time.Time
	EndsAt      *time.Time
	Stackable   bool `gorm:"not null;default:false"`
	Active      bool `gorm:"index;not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InWindow reports whether the bundle is inside its date range at t.
func (b *BundleDiscount) InWindow(t time.Time) bool {
	if b.StartsAt != nil && t.Before(*b.StartsAt) {
		return false
	}
	if b.EndsAt != nil && t.After(*b.EndsAt) {
		return false
	}
	return true
}
