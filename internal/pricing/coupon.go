package pricing

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

// checkCoupon runs the eligibility chain in order: active, date window,
// minimum purchase, global use cap, per-user allow-list (by email), per-user
// use cap (counted from CouponUsage records, never the counter).
func (e *Engine) checkCoupon(ctx context.Context, c *model.Coupon, subtotal decimal.Decimal, userID string, now time.Time) error {
	if !c.Active {
		return errf(CodeCouponInactive, "coupon is not active")
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return errf(CodeCouponExpired, "coupon is not valid yet")
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return errf(CodeCouponExpired, "coupon has expired")
	}
	if subtotal.LessThan(c.MinPurchase) {
		return errf(CodeCouponMinPurchase, "order does not reach the coupon minimum of %s", c.MinPurchase.StringFixed(2))
	}
	if c.MaxUses > 0 && c.CurrentUses >= c.MaxUses {
		return errf(CodeCouponExhausted, "coupon has reached its use limit")
	}

	if len(c.AllowedEmails) > 0 {
		if userID == "" || userID == model.GuestUserID {
			return errf(CodeCouponNotEligible, "coupon is restricted")
		}
		email, err := e.users.EmailByID(ctx, userID)
		if err != nil {
			return err
		}
		allowed := slices.ContainsFunc(c.AllowedEmails, func(a string) bool {
			return strings.EqualFold(a, email)
		})
		if !allowed {
			return errf(CodeCouponNotEligible, "coupon is restricted")
		}
	}

	if c.MaxUsesPerUser > 0 && userID != "" && userID != model.GuestUserID {
		used, err := e.coupons.UsageCountForUser(ctx, c.ID, userID)
		if err != nil {
			return err
		}
		if used >= int64(c.MaxUsesPerUser) {
			return errf(CodeCouponUserLimit, "coupon already used the maximum number of times")
		}
	}
	return nil
}

// couponDiscount computes the discount a coupon contributes against the
// discountable base (subtotal after bundle discounts). Free-shipping coupons
// contribute no amount here; they zero the shipping cost instead.
func couponDiscount(c *model.Coupon, base decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.Type {
	case model.CouponPercentage:
		amount = percentOf(base, c.Value)
	case model.CouponFixed:
		amount = round2(decimal.Min(c.Value, base))
	case model.CouponFreeShipping:
		return decimal.Zero
	default:
		return decimal.Zero
	}
	if c.MaxDiscount != nil && amount.GreaterThan(*c.MaxDiscount) {
		amount = *c.MaxDiscount
	}
	if amount.Sign() < 0 {
		return decimal.Zero
	}
	return round2(amount)
}
