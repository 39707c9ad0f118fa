package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// GuestUserID is the sentinel owner of orders placed without an account.
// Guest orders have no wallet and no user-bound coupon capabilities.
const GuestUserID = "guest"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

type ReservationStatus string

const (
	ReservationNone     ReservationStatus = "none"
	ReservationReserved ReservationStatus = "reserved"
	ReservationCaptured ReservationStatus = "captured"
	ReservationReleased ReservationStatus = "released"
)

// SelectedCustomization is a schema-validated customization choice carried on
// an order item. Raw client maps are never stored.
type SelectedCustomization struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Value string `json:"value"`
}

type OrderItem struct {
	ProductID      string                  `json:"productId"`
	VariantID      string                  `json:"variantId,omitempty"`
	Name           string                  `json:"name"`
	Quantity       int                     `json:"quantity"`
	UnitPrice      decimal.Decimal         `json:"unitPrice"` // resolved server-side, never client-supplied
	LineTotal      decimal.Decimal         `json:"lineTotal"`
	Digital        bool                    `json:"digital,omitempty"`
	Customizations []SelectedCustomization `json:"customizations,omitempty"`
}

// ReservedItem is one line of a stock-reservation snapshot. Quantity is the
// amount actually decremented; untracked/backorder lines carry zero.
type ReservedItem struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

type ShippingInfo struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type Order struct {
	ID             string `gorm:"primaryKey;size:64;not null"`
	UserID         string `gorm:"size:64;index;not null"`
	Email          string `gorm:"size:255"`
	IdempotencyKey string `gorm:"size:128;uniqueIndex"`

	Items            []OrderItem  `gorm:"serializer:json"`
	ShippingInfo     ShippingInfo `gorm:"serializer:json"`
	ShippingMethodID uint

	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	BundleDiscount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CouponDiscount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Tax            decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ShippingCost   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	WalletDiscount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency       string          `gorm:"size:8;not null"`

	CouponCode string `gorm:"size:64"`
	CouponID   uint
	UsedWallet bool `gorm:"not null;default:false"`

	Status        OrderStatus   `gorm:"size:32;index;not null"`
	PaymentStatus PaymentStatus `gorm:"size:32;index;not null"`

	StockReservation  ReservationStatus `gorm:"size:16;not null;default:none"`
	ReservedItems     []ReservedItem    `gorm:"serializer:json"`
	WalletReservation ReservationStatus `gorm:"size:16;not null;default:none"`
	WalletReserved    decimal.Decimal   `gorm:"type:decimal(12,2);not null"`

	PaymentRef            string `gorm:"size:128;index"`
	PaymentMismatch       bool   `gorm:"not null;default:false"`
	PaymentMismatchReason string `gorm:"size:64"`

	PostPaymentActionsCompleted bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalMinorUnits is the amount passed to the payment processor, in cents.
func (o *Order) TotalMinorUnits() int64 {
	return o.Total.Mul(decimal.NewFromInt(100)).IntPart()
}

// IsGuest reports whether the order was placed without an account.
func (o *Order) IsGuest() bool {
	return o.UserID == "" || o.UserID == GuestUserID
}
