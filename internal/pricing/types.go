package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

// QuoteItem is one cart line as submitted by the client. Prices are never
// taken from the client; only identifiers, quantity and customization values.
type QuoteItem struct {
	ProductID      string
	VariantID      string
	Quantity       int
	Customizations map[string]string
}

type QuoteInput struct {
	Items            []QuoteItem
	Shipping         model.ShippingInfo
	ShippingMethodID uint
	CouponCode       string
	UseWallet        bool
	UserID           string // empty or model.GuestUserID for guest checkout
}

// QuotedItem is a fully resolved cart line.
type QuotedItem struct {
	ProductID      string
	VariantID      string
	Name           string
	Quantity       int
	UnitPrice      decimal.Decimal
	LineTotal      decimal.Decimal
	Digital        bool
	Customizations []model.SelectedCustomization

	category string
	tags     []string
}

// AppliedBundle is the per-bundle detail of the bundle-discount total.
type AppliedBundle struct {
	BundleID uint
	Name     string
	Units    int
	Amount   decimal.Decimal
}

// Quote is the single authoritative pricing result for a cart.
type Quote struct {
	Items          []QuotedItem
	Subtotal       decimal.Decimal
	BundleDiscount decimal.Decimal
	Bundles        []AppliedBundle
	CouponDiscount decimal.Decimal
	CouponCode     string
	CouponID       uint
	FreeShipping   bool
	Tax            decimal.Decimal
	ShippingCost   decimal.Decimal
	WalletDiscount decimal.Decimal
	UsedWallet     bool
	Total          decimal.Decimal
	Currency       string
}

// Data sources the engine reads from. Implemented by the gorm repositories
// and by the wallet ledger; faked in tests.

type Catalog interface {
	ProductsByID(ctx context.Context, ids []string) (map[string]*model.Product, error)
}

type CouponSource interface {
	// CouponByCode returns nil when no coupon matches the normalized code.
	CouponByCode(ctx context.Context, code string) (*model.Coupon, error)
	UsageCountForUser(ctx context.Context, couponID uint, userID string) (int64, error)
}

type BundleSource interface {
	ActiveBundles(ctx context.Context) ([]*model.BundleDiscount, error)
}

type ShippingSource interface {
	ActiveZones(ctx context.Context) ([]*model.ShippingZone, error)
	ActiveMethodsForZone(ctx context.Context, zoneID uint) ([]*model.ShippingMethod, error)
}

type WalletSource interface {
	// Balance returns zero for users without a wallet.
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
}

type UserSource interface {
	// EmailByID returns "" for unknown users.
	EmailByID(ctx context.Context, userID string) (string, error)
}
