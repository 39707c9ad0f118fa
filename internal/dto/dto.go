// Package dto holds the allow-listed request/response shapes. Client JSON is
// parsed into these explicit structs only; nothing is deep-merged into
// server-side records.
package dto

import "github.com/devLudociel/MiEcommerce-sub000/internal/model"

type OrderItemRequest struct {
	ProductID      string            `json:"product_id"`
	VariantID      string            `json:"variant_id,omitempty"`
	Quantity       int               `json:"quantity"`
	Customizations map[string]string `json:"customizations,omitempty"`
}

type ShippingInfoRequest struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type CreateOrderRequest struct {
	IdempotencyKey   string              `json:"idempotency_key"`
	Items            []OrderItemRequest  `json:"items"`
	Shipping         ShippingInfoRequest `json:"shipping"`
	ShippingMethodID uint                `json:"shipping_method_id"`
	CouponCode       string              `json:"coupon_code,omitempty"`
	UseWallet        bool                `json:"use_wallet,omitempty"`
}

type OrderResponse struct {
	OrderID        string            `json:"order_id"`
	Status         string            `json:"status"`
	PaymentStatus  string            `json:"payment_status"`
	Items          []model.OrderItem `json:"items"`
	Subtotal       string            `json:"subtotal"`
	BundleDiscount string            `json:"bundle_discount"`
	CouponDiscount string            `json:"coupon_discount"`
	Tax            string            `json:"tax"`
	ShippingCost   string            `json:"shipping_cost"`
	WalletDiscount string            `json:"wallet_discount"`
	Total          string            `json:"total"`
	Currency       string            `json:"currency"`
	UsedWallet     bool              `json:"used_wallet"`
}

func NewOrderResponse(o *model.Order) *OrderResponse {
	return &OrderResponse{
		OrderID:        o.ID,
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		Items:          o.Items,
		Subtotal:       o.Subtotal.StringFixed(2),
		BundleDiscount: o.BundleDiscount.StringFixed(2),
		CouponDiscount: o.CouponDiscount.StringFixed(2),
		Tax:            o.Tax.StringFixed(2),
		ShippingCost:   o.ShippingCost.StringFixed(2),
		WalletDiscount: o.WalletDiscount.StringFixed(2),
		Total:          o.Total.StringFixed(2),
		Currency:       o.Currency,
		UsedWallet:     o.UsedWallet,
	}
}

type PaymentIntentResponse struct {
	OrderID      string `json:"order_id"`
	PaymentRef   string `json:"payment_ref"`
	ClientSecret string `json:"client_secret"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
}

// ErrorResponse is the only error shape that crosses the boundary: a
// machine-readable code plus a generic message, optionally with safe
// stock-conflict detail.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	ProductID string `json:"product_id,omitempty"`
	Available int    `json:"available,omitempty"`
	Requested int    `json:"requested,omitempty"`
}
