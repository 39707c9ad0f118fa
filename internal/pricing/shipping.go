package pricing

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

// shippingCost resolves the zone from the address region, validates the chosen
// method belongs to that zone and is active, and returns its cost. Free above
// the configured threshold or when a free-shipping coupon applies.
func (e *Engine) shippingCost(ctx context.Context, addr model.ShippingInfo, methodID uint, discounted decimal.Decimal, freeShipping bool) (decimal.Decimal, error) {
	zone, err := e.zoneForRegion(ctx, addr.Region)
	if err != nil {
		return decimal.Zero, err
	}

	methods, err := e.shipping.ActiveMethodsForZone(ctx, zone.ID)
	if err != nil {
		return decimal.Zero, err
	}
	var method *model.ShippingMethod
	for _, m := range methods {
		if m.ID == methodID {
			method = m
			break
		}
	}
	if method == nil {
		return decimal.Zero, errf(CodeShippingMethod, "shipping method not available for your region")
	}

	if freeShipping || discounted.GreaterThanOrEqual(e.freeShippingThreshold) {
		return decimal.Zero, nil
	}
	return round2(method.Cost), nil
}

func (e *Engine) zoneForRegion(ctx context.Context, region string) (*model.ShippingZone, error) {
	zones, err := e.shipping.ActiveZones(ctx)
	if err != nil {
		return nil, err
	}
	for _, z := range zones {
		for _, r := range z.Regions {
			if strings.EqualFold(r, region) {
				return z, nil
			}
		}
	}
	return nil, errf(CodeShippingZone, "we do not ship to your region")
}

// taxFor returns the tax on the discounted goods value. The Canary Islands and
// Ceuta/Melilla are exempt; every other region pays the flat configured rate.
func (e *Engine) taxFor(region string, base decimal.Decimal) decimal.Decimal {
	for _, exempt := range e.taxExemptRegions {
		if strings.EqualFold(exempt, region) {
			return decimal.Zero
		}
	}
	if base.Sign() <= 0 {
		return decimal.Zero
	}
	return round2(base.Mul(e.taxRate))
}
