package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

var quoteTime = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type fakeCatalog map[string]*model.Product

func (f fakeCatalog) ProductsByID(_ context.Context, ids []string) (map[string]*model.Product, error) {
	out := make(map[string]*model.Product)
	for _, id := range ids {
		if p, ok := f[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeCoupons struct {
	coupons map[string]*model.Coupon
	usage   map[string]int64 // keyed by userID
}

func (f *fakeCoupons) CouponByCode(_ context.Context, code string) (*model.Coupon, error) {
	return f.coupons[code], nil
}

func (f *fakeCoupons) UsageCountForUser(_ context.Context, _ uint, userID string) (int64, error) {
	return f.usage[userID], nil
}

type fakeBundles []*model.BundleDiscount

func (f fakeBundles) ActiveBundles(context.Context) ([]*model.BundleDiscount, error) {
	return f, nil
}

type fakeShipping struct {
	zones   []*model.ShippingZone
	methods map[uint][]*model.ShippingMethod
}

func (f *fakeShipping) ActiveZones(context.Context) ([]*model.ShippingZone, error) {
	return f.zones, nil
}

func (f *fakeShipping) ActiveMethodsForZone(_ context.Context, zoneID uint) ([]*model.ShippingMethod, error) {
	return f.methods[zoneID], nil
}

type fakeWallets map[string]decimal.Decimal

func (f fakeWallets) Balance(_ context.Context, userID string) (decimal.Decimal, error) {
	return f[userID], nil
}

type fakeUsers map[string]string

func (f fakeUsers) EmailByID(_ context.Context, userID string) (string, error) {
	return f[userID], nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type engineFixture struct {
	catalog fakeCatalog
	coupons *fakeCoupons
	bundles fakeBundles
	wallets fakeWallets
	users   fakeUsers
}

func newTestEngine(t *testing.T, fx engineFixture) *Engine {
	t.Helper()
	shipping := &fakeShipping{
		zones: []*model.ShippingZone{
			{ID: 1, Name: "Peninsula", Regions: []string{"Madrid", "Barcelona"}, Active: true},
			{ID: 2, Name: "Islands", Regions: []string{"Canarias"}, Active: true},
		},
		methods: map[uint][]*model.ShippingMethod{
			1: {{ID: 1, ZoneID: 1, Name: "Standard", Cost: dec("4.95"), Active: true}},
			2: {{ID: 2, ZoneID: 2, Name: "Island post", Cost: dec("9.95"), Active: true}},
		},
	}
	if fx.coupons == nil {
		fx.coupons = &fakeCoupons{coupons: map[string]*model.Coupon{}}
	}
	if fx.wallets == nil {
		fx.wallets = fakeWallets{}
	}
	if fx.users == nil {
		fx.users = fakeUsers{}
	}
	e := NewEngine(fx.catalog, fx.coupons, fx.bundles, shipping, fx.wallets, fx.users, EngineConfig{
		Currency:              "eur",
		TaxRate:               dec("0.21"),
		FreeShippingThreshold: dec("50"),
	})
	e.now = func() time.Time { return quoteTime }
	return e
}

func madridInput(items ...QuoteItem) QuoteInput {
	return QuoteInput{
		Items:            items,
		Shipping:         model.ShippingInfo{Name: "Ana", Address: "Calle Mayor 1", City: "Madrid", Region: "Madrid", PostalCode: "28001", Country: "ES"},
		ShippingMethodID: 1,
	}
}

func TestQuotePercentageCoupon(t *testing.T) {
	e := newTestEngine(t, engineFixture{
		catalog: fakeCatalog{
			"tee": {ID: "tee", Name: "T-shirt", Price: dec("50.00"), Active: true},
		},
		coupons: &fakeCoupons{coupons: map[string]*model.Coupon{
			"PCT20": {ID: 7, Code: "PCT20", Type: model.CouponPercentage, Value: dec("20"), Active: true},
		}},
	})

	in := madridInput(QuoteItem{ProductID: "tee", Quantity: 2})
	in.CouponCode = "pct20" // lower case on purpose

	q, err := e.Quote(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "100.00", q.Subtotal.StringFixed(2))
	assert.Equal(t, "20.00", q.CouponDiscount.StringFixed(2))
	assert.Equal(t, "PCT20", q.CouponCode)
	// 80 clears the free-shipping threshold.
	assert.Equal(t, "0.00", q.ShippingCost.StringFixed(2))
	assert.Equal(t, "16.80", q.Tax.StringFixed(2))
	assert.Equal(t, "96.80", q.Total.StringFixed(2))
}

func TestQuoteCouponMaxDiscountCap(t *testing.T) {
	e := newTestEngine(t, engineFixture{
		catalog: fakeCatalog{
			"tee": {ID: "tee", Name: "T-shirt", Price: dec("50.00"), Active: true},
		},
		coupons: &fakeCoupons{coupons: map[string]*model.Coupon{
			"CAP15": {ID: 8, Code: "CAP15", Type: model.CouponPercentage, Value: dec("50"), MaxDiscount: ptr(dec("15.00")), Active: true},
		}},
	})

	in := madridInput(QuoteItem{ProductID: "tee", Quantity: 2})
	in.CouponCode = "CAP15"

	q, err := e.Quote(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "15.00", q.CouponDiscount.StringFixed(2))
}

func TestQuoteCouponChecks(t *testing.T) {
	past := quoteTime.Add(-time.Hour)
	future := quoteTime.Add(time.Hour)

	cases := []struct {
		name     string
		coupon   model.Coupon
		wantCode string
	}{
		{"inactive", model.Coupon{Type: model.CouponFixed, Value: dec("5")}, CodeCouponInactive},
		{"not started", model.Coupon{Type: model.CouponFixed, Value: dec("5"), Active: true, StartsAt: &future}, CodeCouponExpired},
		{"expired", model.Coupon{Type: model.CouponFixed, Value: dec("5"), Active: true, EndsAt: &past}, CodeCouponExpired},
		{"min purchase", model.Coupon{Type: model.CouponFixed, Value: dec("5"), Active: true, MinPurchase: dec("500")}, CodeCouponMinPurchase},
		{"exhausted", model.Coupon{Type: model.CouponFixed, Value: dec("5"), Active: true, MaxUses: 3, CurrentUses: 3}, CodeCouponExhausted},
		{"email restricted guest", model.Coupon{Type: model.CouponFixed, Value: dec("5"), Active: true, AllowedEmails: []string{"vip@example.com"}}, CodeCouponNotEligible},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.coupon
			c.ID = 1
			c.Code = "TEST"
			e := newTestEngine(t, engineFixture{
				catalog: fakeCatalog{
					"tee": {ID: "tee", Name: "T-shirt", Price: dec("50.00"), Active: true},
				},
				coupons: &fakeCoupons{coupons: map[string]*model.Coupon{"TEST": &c}},
			})

			in := madridInput(QuoteItem{ProductID: "tee", Quantity: 1})
			in.CouponCode = "TEST"

			_, err := e.Quote(context.Background(), in)
			var perr *Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.wantCode, perr.Code)
		})
	}
}

func TestQuoteUnknownCoupon(t *testing.T) {
	e := newTestEngine(t, engineFixture{
		catalog: fakeCatalog{
			"tee": {ID: "tee", Name: "T-shirt", Price: dec("10.00"), Active: true},
		},
	})

	in := madridInput(QuoteItem{ProductID: "tee", Quantity: 1})
	in.CouponCode = "NOPE"

	_, err := e.Quote(context.Background(), in)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, CodeCouponInvalid, perr.Code)
}

func TestQuoteGuestWalletIgnored(t *testing.T) {
	e := newTestEngine(t, engineFixture{
		catalog: fakeCatalog{
			"tee": {ID: "tee", Name: "T-shirt", Price: dec("30.00"), Active: true},
		},
		wallets: fakeWallets{model.GuestUserID: dec("100.00")},
	})

	in := madridInput(QuoteItem{ProductID: "tee", Quantity: 1})
	in.UseWallet = true
	in.UserID = model.GuestUserID

	q, err := e.Quote(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, q.WalletDiscount.IsZero())
	assert.False(t, q.UsedWallet)
}

func TestQuoteWalletDiscountClampedToPayable(t *testing.T) {
	e := newTestEngine(t, engineFixture{
		catalog: fakeCatalog{
			"tee": {ID: "tee", Name: "T-shirt", Price: dec("30.00"), Active: true},
		},
		wallets: fakeWallets{"u1": dec("500.00")},
	})

	in := madridInput(QuoteItem{ProductID: "tee", Quantity: 1})
	in.UseWallet = true
	in.UserID = "u1"

	q, err := e.Quote(context.Background(), in)
	require.NoError(t, err)
	// payable = 30 + 4.95 shipping + 6.30 tax = 41.25
	assert.Equal(t, "41.25", q.WalletDiscount.StringFixed(2))
	assert.True(t, q.UsedWallet)
	assert.Equal(t, "0.00", q.Total.StringFixed(2))
}

func TestQuoteVariantAndSalePricing(t *testing.T) {
	sale := dec("8.00")
	e := newTestEngine(t, engineFixture{
		catalog: fakeCatalog{
			"mug": {ID: "mug", Name: "Mug", Price: dec("12.00"), Active: true, Variants: []model.ProductVariant{
				{ID: "mug-big", Name: "Big", Price: dec("15.00"), Stock: 5},
			}},
			"poster": {ID: "poster", Name: "Poster", Price: dec("10.00"), SalePrice: &sale, OnSale: true, Active: true},
		},
	})

	t.Run("variant required", func(t *testing.T) {
		_, err := e.Quote(context.Background(), madridInput(QuoteItem{ProductID: "mug", Quantity: 1}))
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, CodeVariantRequired, perr.Code)
	})

	t.Run("variant price wins", func(t *testing.T) {
		q, err := e.Quote(context.Background(), madridInput(QuoteItem{ProductID: "mug", VariantID: "mug-big", Quantity: 2}))
		require.NoError(t, err)
		assert.Equal(t, "15.00", q.Items[0].UnitPrice.StringFixed(2))
		assert.Equal(t, "30.00", q.Items[0].LineTotal.StringFixed(2))
	})

	t.Run("sale price when lower", func(t *testing.T) {
		q, err := e.Quote(context.Background(), madridInput(QuoteItem{ProductID: "poster", Quantity: 1}))
		require.NoError(t, err)
		assert.Equal(t, "8.00", q.Items[0].UnitPrice.StringFixed(2))
	})
}

func TestQuoteCustomizations(t *testing.T) {
	giftOverride := dec("25.00")
	e := newTestEngine(t, engineFixture{
		catalog: fakeCatalog{
			"frame": {ID: "frame", Name: "Frame", Price: dec("20.00"), Active: true, Customizations: []model.CustomizationField{
				{Key: "finish", Kind: model.CustomizationDropdown, Required: true, Options: []model.CustomizationOption{
					{Value: "matte", PriceModifier: decimal.Zero},
					{Value: "gold", PriceModifier: dec("5.00")},
					{Value: "gift", PriceOverride: &giftOverride},
				}},
				{Key: "engraving", Kind: model.CustomizationText, PriceModifier: dec("3.00")},
				{Key: "units", Kind: model.CustomizationDropdown, IsQuantity: true, Options: []model.CustomizationOption{
					{Value: "2"}, {Value: "4"},
				}},
			}},
		},
	})

	t.Run("required missing", func(t *testing.T) {
		_, err := e.Quote(context.Background(), madridInput(QuoteItem{ProductID: "frame", Quantity: 1}))
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, CodeCustomizationMissing, perr.Code)
	})

	t.Run("unknown option value", func(t *testing.T) {
		_, err := e.Quote(context.Background(), madridInput(QuoteItem{
			ProductID: "frame", Quantity: 1,
			Customizations: map[string]string{"finish": "chrome"},
		}))
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, CodeCustomizationInvalid, perr.Code)
	})

	t.Run("modifiers add up", func(t *testing.T) {
		q, err := e.Quote(context.Background(), madridInput(QuoteItem{
			ProductID: "frame", Quantity: 1,
			Customizations: map[string]string{"finish": "gold", "engraving": "hello"},
		}))
		require.NoError(t, err)
		assert.Equal(t, "28.00", q.Items[0].UnitPrice.StringFixed(2))
	})

	t.Run("override replaces unit price", func(t *testing.T) {
		q, err := e.Quote(context.Background(), madridInput(QuoteItem{
			ProductID: "frame", Quantity: 1,
			Customizations: map[string]string{"finish": "gift", "engraving": "hello"},
		}))
		require.NoError(t, err)
		assert.Equal(t, "25.00", q.Items[0].UnitPrice.StringFixed(2))
	})

	t.Run("quantity field overrides line quantity", func(t *testing.T) {
		q, err := e.Quote(context.Background(), madridInput(QuoteItem{
			ProductID: "frame", Quantity: 1,
			Customizations: map[string]string{"finish": "matte", "units": "4"},
		}))
		require.NoError(t, err)
		assert.Equal(t, 4, q.Items[0].Quantity)
		assert.Equal(t, "80.00", q.Items[0].LineTotal.StringFixed(2))
	})
}

func TestQuoteBundles(t *testing.T) {
	catalog := fakeCatalog{
		"soap": {ID: "soap", Name: "Soap", Price: dec("4.00"), Category: "bath", Active: true},
		"gel":  {ID: "gel", Name: "Gel", Price: dec("6.00"), Category: "bath", Active: true},
	}

	t.Run("buy 2 get 1 free", func(t *testing.T) {
		e := newTestEngine(t, engineFixture{
			catalog: catalog,
			bundles: fakeBundles{
				{ID: 1, Name: "3x2 soap", Scope: model.BundleScopeProducts, ProductIDs: []string{"soap"},
					Kind: model.BundleBuyXGetYFree, BuyQuantity: 2, GetQuantity: 1, Active: true},
			},
		})
		q, err := e.Quote(context.Background(), madridInput(QuoteItem{ProductID: "soap", Quantity: 6}))
		require.NoError(t, err)
		// two full 2+1 groups, two units free
		assert.Equal(t, "8.00", q.BundleDiscount.StringFixed(2))
		require.Len(t, q.Bundles, 1)
		assert.Equal(t, 6, q.Bundles[0].Units)
	})

	t.Run("non-stackable stops evaluation", func(t *testing.T) {
		e := newTestEngine(t, engineFixture{
			catalog: catalog,
			bundles: fakeBundles{
				{ID: 1, Name: "bath 10 off", Scope: model.BundleScopeCategories, Categories: []string{"bath"},
					Kind: model.BundleQuantityPercent, BuyQuantity: 2, Percent: dec("10"), Priority: 10, Stackable: false, Active: true},
				{ID: 2, Name: "soap 3x2", Scope: model.BundleScopeProducts, ProductIDs: []string{"soap"},
					Kind: model.BundleBuyXGetYFree, BuyQuantity: 2, GetQuantity: 1, Priority: 1, Active: true},
			},
		})
		q, err := e.Quote(context.Background(), madridInput(
			QuoteItem{ProductID: "soap", Quantity: 3},
			QuoteItem{ProductID: "gel", Quantity: 1},
		))
		require.NoError(t, err)
		// only the priority-10 bundle runs: 10% of (3*4 + 1*6) = 1.80
		assert.Equal(t, "1.80", q.BundleDiscount.StringFixed(2))
		require.Len(t, q.Bundles, 1)
		assert.Equal(t, uint(1), q.Bundles[0].BundleID)
	})

	t.Run("units never discounted twice", func(t *testing.T) {
		e := newTestEngine(t, engineFixture{
			catalog: catalog,
			bundles: fakeBundles{
				{ID: 1, Name: "soap 3x2", Scope: model.BundleScopeProducts, ProductIDs: []string{"soap"},
					Kind: model.BundleBuyXGetYFree, BuyQuantity: 2, GetQuantity: 1, Priority: 10, Stackable: true, Active: true},
				{ID: 2, Name: "bath 50 off", Scope: model.BundleScopeCategories, Categories: []string{"bath"},
					Kind: model.BundleQuantityPercent, BuyQuantity: 1, Percent: dec("50"), Priority: 1, Stackable: true, Active: true},
			},
		})
		q, err := e.Quote(context.Background(), madridInput(QuoteItem{ProductID: "soap", Quantity: 3}))
		require.NoError(t, err)
		// 3x2 consumes the whole pool; the 50% bundle finds nothing left.
		assert.Equal(t, "4.00", q.BundleDiscount.StringFixed(2))
		require.Len(t, q.Bundles, 1)
	})

	t.Run("outside window skipped", func(t *testing.T) {
		past := quoteTime.Add(-time.Hour)
		e := newTestEngine(t, engineFixture{
			catalog: catalog,
			bundles: fakeBundles{
				{ID: 1, Name: "over", Scope: model.BundleScopeAll, Kind: model.BundleQuantityPercent,
					BuyQuantity: 1, Percent: dec("50"), EndsAt: &past, Active: true},
			},
		})
		q, err := e.Quote(context.Background(), madridInput(QuoteItem{ProductID: "soap", Quantity: 2}))
		require.NoError(t, err)
		assert.True(t, q.BundleDiscount.IsZero())
	})
}

func TestQuoteShippingAndTax(t *testing.T) {
	e := newTestEngine(t, engineFixture{
		catalog: fakeCatalog{
			"tee": {ID: "tee", Name: "T-shirt", Price: dec("20.00"), Active: true},
		},
		coupons: &fakeCoupons{coupons: map[string]*model.Coupon{
			"FREESHIP": {ID: 9, Code: "FREESHIP", Type: model.CouponFreeShipping, Active: true},
		}},
	})

	t.Run("below threshold pays shipping and tax", func(t *testing.T) {
		q, err := e.Quote(context.Background(), madridInput(QuoteItem{ProductID: "tee", Quantity: 1}))
		require.NoError(t, err)
		assert.Equal(t, "4.95", q.ShippingCost.StringFixed(2))
		assert.Equal(t, "4.20", q.Tax.StringFixed(2))
		assert.Equal(t, "29.15", q.Total.StringFixed(2))
	})

	t.Run("free shipping coupon zeroes cost only", func(t *testing.T) {
		in := madridInput(QuoteItem{ProductID: "tee", Quantity: 1})
		in.CouponCode = "FREESHIP"
		q, err := e.Quote(context.Background(), in)
		require.NoError(t, err)
		assert.True(t, q.FreeShipping)
		assert.Equal(t, "0.00", q.ShippingCost.StringFixed(2))
		assert.True(t, q.CouponDiscount.IsZero())
	})

	t.Run("exempt region pays no tax", func(t *testing.T) {
		in := QuoteInput{
			Items:            []QuoteItem{{ProductID: "tee", Quantity: 1}},
			Shipping:         model.ShippingInfo{Region: "canarias", Country: "ES"},
			ShippingMethodID: 2,
		}
		q, err := e.Quote(context.Background(), in)
		require.NoError(t, err)
		assert.True(t, q.Tax.IsZero())
		assert.Equal(t, "9.95", q.ShippingCost.StringFixed(2))
	})

	t.Run("unknown region rejected", func(t *testing.T) {
		in := madridInput(QuoteItem{ProductID: "tee", Quantity: 1})
		in.Shipping.Region = "Atlantis"
		_, err := e.Quote(context.Background(), in)
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, CodeShippingZone, perr.Code)
	})

	t.Run("method from another zone rejected", func(t *testing.T) {
		in := madridInput(QuoteItem{ProductID: "tee", Quantity: 1})
		in.ShippingMethodID = 2
		_, err := e.Quote(context.Background(), in)
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, CodeShippingMethod, perr.Code)
	})
}

func TestQuoteRejectsBadInput(t *testing.T) {
	e := newTestEngine(t, engineFixture{
		catalog: fakeCatalog{
			"off": {ID: "off", Name: "Retired", Price: dec("10.00"), Active: false},
		},
	})

	t.Run("empty cart", func(t *testing.T) {
		_, err := e.Quote(context.Background(), madridInput())
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, CodeInvalidQuantity, perr.Code)
	})

	t.Run("missing product", func(t *testing.T) {
		_, err := e.Quote(context.Background(), madridInput(QuoteItem{ProductID: "ghost", Quantity: 1}))
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, CodeProductNotFound, perr.Code)
	})

	t.Run("inactive product", func(t *testing.T) {
		_, err := e.Quote(context.Background(), madridInput(QuoteItem{ProductID: "off", Quantity: 1}))
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, CodeProductInactive, perr.Code)
	})

	t.Run("zero quantity", func(t *testing.T) {
		e2 := newTestEngine(t, engineFixture{
			catalog: fakeCatalog{"tee": {ID: "tee", Name: "T-shirt", Price: dec("10.00"), Active: true}},
		})
		_, err := e2.Quote(context.Background(), madridInput(QuoteItem{ProductID: "tee", Quantity: 0}))
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, CodeInvalidQuantity, perr.Code)
	})
}

func TestPricingErrorIsNotRetryable(t *testing.T) {
	err := errf(CodeCouponInvalid, "nope")
	var perr *Error
	assert.True(t, errors.As(err, &perr))
	assert.Equal(t, "COUPON_INVALID: nope", err.Error())
}

func ptr[T any](v T) *T { return &v }
