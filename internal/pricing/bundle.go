package pricing

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

// evaluateBundles applies automatic promotions to the quoted items. A shared
// remaining-quantity pool keyed by (product, variant) guarantees the same unit
// is never discounted twice. Bundles run in descending priority and evaluation
// stops after the first non-stackable bundle that produced savings.
func evaluateBundles(bundles []*model.BundleDiscount, items []QuotedItem, now time.Time) (decimal.Decimal, []AppliedBundle) {
	remaining := make(map[string]int, len(items))
	for _, it := range items {
		remaining[poolKey(it.ProductID, it.VariantID)] += it.Quantity
	}

	sorted := make([]*model.BundleDiscount, len(bundles))
	copy(sorted, bundles)
	slices.SortStableFunc(sorted, func(a, b *model.BundleDiscount) int {
		return b.Priority - a.Priority
	})

	total := decimal.Zero
	var applied []AppliedBundle
	for _, b := range sorted {
		if !b.Active || !b.InWindow(now) {
			continue
		}
		amount, units := applyBundle(b, items, remaining)
		if amount.IsZero() {
			continue
		}
		total = round2(total.Add(amount))
		applied = append(applied, AppliedBundle{BundleID: b.ID, Name: b.Name, Units: units, Amount: amount})
		if !b.Stackable {
			break
		}
	}
	return total, applied
}

// applyBundle computes one bundle's savings over the eligible item pool,
// consuming discounted units from the remaining map.
func applyBundle(b *model.BundleDiscount, items []QuotedItem, remaining map[string]int) (decimal.Decimal, int) {
	type eligible struct {
		key  string
		unit decimal.Decimal
		qty  int
	}
	var pool []eligible
	poolQty := 0
	for _, it := range items {
		if !bundleMatches(b, &it) {
			continue
		}
		key := poolKey(it.ProductID, it.VariantID)
		if remaining[key] <= 0 {
			continue
		}
		qty := min(remaining[key], it.Quantity)
		pool = append(pool, eligible{key: key, unit: it.UnitPrice, qty: qty})
		poolQty += qty
	}
	if poolQty == 0 {
		return decimal.Zero, 0
	}

	amount := decimal.Zero
	used := 0
	switch b.Kind {
	case model.BundleBuyXGetYFree, model.BundleBuyXGetYPercent:
		group := b.BuyQuantity + b.GetQuantity
		if group <= 0 || b.GetQuantity <= 0 {
			return decimal.Zero, 0
		}
		for _, e := range pool {
			sets := e.qty / group
			if sets == 0 {
				continue
			}
			free := decimal.NewFromInt(int64(sets * b.GetQuantity)).Mul(e.unit)
			if b.Kind == model.BundleBuyXGetYPercent {
				free = percentOf(free, b.Percent)
			}
			amount = round2(amount.Add(round2(free)))
			consumed := sets * group
			remaining[e.key] -= consumed
			used += consumed
		}
	case model.BundleBuyXFixedPrice:
		if b.BuyQuantity <= 0 {
			return decimal.Zero, 0
		}
		for _, e := range pool {
			sets := e.qty / b.BuyQuantity
			if sets == 0 {
				continue
			}
			regular := e.unit.Mul(decimal.NewFromInt(int64(b.BuyQuantity)))
			saving := regular.Sub(b.FixedPrice)
			if saving.Sign() <= 0 {
				continue
			}
			amount = round2(amount.Add(round2(saving.Mul(decimal.NewFromInt(int64(sets))))))
			consumed := sets * b.BuyQuantity
			remaining[e.key] -= consumed
			used += consumed
		}
	case model.BundleQuantityPercent:
		if poolQty < b.BuyQuantity {
			return decimal.Zero, 0
		}
		for _, e := range pool {
			line := e.unit.Mul(decimal.NewFromInt(int64(e.qty)))
			amount = round2(amount.Add(percentOf(line, b.Percent)))
			remaining[e.key] -= e.qty
			used += e.qty
		}
	}
	return amount, used
}

func bundleMatches(b *model.BundleDiscount, it *QuotedItem) bool {
	switch b.Scope {
	case model.BundleScopeAll:
		return true
	case model.BundleScopeCategories:
		return slices.Contains(b.Categories, it.category)
	case model.BundleScopeProducts:
		return slices.Contains(b.ProductIDs, it.ProductID)
	case model.BundleScopeTags:
		for _, tag := range it.tags {
			if slices.Contains(b.Tags, tag) {
				return true
			}
		}
	}
	return false
}

func poolKey(productID, variantID string) string {
	return productID + "|" + variantID
}
