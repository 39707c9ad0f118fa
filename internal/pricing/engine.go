package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

// Engine is the single authority for order totals. Order creation and
// payment-intent creation both run it, so a client-supplied price never
// reaches the payment processor.
type Engine struct {
	catalog  Catalog
	coupons  CouponSource
	bundles  BundleSource
	shipping ShippingSource
	wallets  WalletSource
	users    UserSource

	currency              string
	taxRate               decimal.Decimal
	taxExemptRegions      []string
	freeShippingThreshold decimal.Decimal

	now func() time.Time
}

type EngineConfig struct {
	Currency              string
	TaxRate               decimal.Decimal
	TaxExemptRegions      []string
	FreeShippingThreshold decimal.Decimal
}

func NewEngine(
	catalog Catalog,
	coupons CouponSource,
	bundles BundleSource,
	shipping ShippingSource,
	wallets WalletSource,
	users UserSource,
	cfg EngineConfig,
) *Engine {
	exempt := cfg.TaxExemptRegions
	if len(exempt) == 0 {
		exempt = []string{"Canarias", "Ceuta y Melilla"}
	}
	return &Engine{
		catalog:               catalog,
		coupons:               coupons,
		bundles:               bundles,
		shipping:              shipping,
		wallets:               wallets,
		users:                 users,
		currency:              cfg.Currency,
		taxRate:               cfg.TaxRate,
		taxExemptRegions:      exempt,
		freeShippingThreshold: cfg.FreeShippingThreshold,
		now:                   time.Now,
	}
}

// Quote prices a cart. Total = subtotal - bundleDiscount - couponDiscount
// + shippingCost + tax - walletDiscount, each step rounded to 2 decimals,
// and the total never goes negative.
func (e *Engine) Quote(ctx context.Context, in QuoteInput) (*Quote, error) {
	if len(in.Items) == 0 {
		return nil, errf(CodeInvalidQuantity, "cart is empty")
	}
	now := e.now()

	ids := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := e.catalog.ProductsByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	quote := &Quote{Currency: e.currency}
	subtotal := decimal.Zero
	for _, line := range in.Items {
		p, ok := products[line.ProductID]
		if !ok {
			return nil, errf(CodeProductNotFound, "product not found")
		}
		item, err := resolveItem(p, line)
		if err != nil {
			return nil, err
		}
		quote.Items = append(quote.Items, *item)
		subtotal = round2(subtotal.Add(item.LineTotal))
	}
	quote.Subtotal = subtotal

	bundles, err := e.bundles.ActiveBundles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bundle discounts: %w", err)
	}
	quote.BundleDiscount, quote.Bundles = evaluateBundles(bundles, quote.Items, now)

	discounted := round2(subtotal.Sub(quote.BundleDiscount))

	if in.CouponCode != "" {
		code := model.NormalizeCouponCode(in.CouponCode)
		coupon, err := e.coupons.CouponByCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("load coupon: %w", err)
		}
		if coupon == nil {
			return nil, errf(CodeCouponInvalid, "invalid coupon code")
		}
		if err := e.checkCoupon(ctx, coupon, subtotal, in.UserID, now); err != nil {
			return nil, err
		}
		quote.CouponDiscount = couponDiscount(coupon, discounted)
		quote.CouponCode = code
		quote.CouponID = coupon.ID
		quote.FreeShipping = coupon.Type == model.CouponFreeShipping
		discounted = round2(discounted.Sub(quote.CouponDiscount))
	}

	quote.ShippingCost, err = e.shippingCost(ctx, in.Shipping, in.ShippingMethodID, discounted, quote.FreeShipping)
	if err != nil {
		return nil, err
	}

	quote.Tax = e.taxFor(in.Shipping.Region, discounted)

	payable := round2(discounted.Add(quote.ShippingCost).Add(quote.Tax))

	// Guests never get a wallet discount, whatever the request says.
	if in.UseWallet && in.UserID != "" && in.UserID != model.GuestUserID {
		balance, err := e.wallets.Balance(ctx, in.UserID)
		if err != nil {
			return nil, fmt.Errorf("load wallet balance: %w", err)
		}
		quote.WalletDiscount = roundDown2(decimal.Min(balance, payable))
		quote.UsedWallet = quote.WalletDiscount.Sign() > 0
	}

	total := round2(payable.Sub(quote.WalletDiscount))
	if total.Sign() < 0 {
		total = decimal.Zero
	}
	quote.Total = total
	return quote, nil
}
