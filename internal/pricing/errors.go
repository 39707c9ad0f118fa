package pricing

import "fmt"

// Validation error codes surfaced to the client as machine-readable codes.
const (
	CodeProductNotFound      = "PRODUCT_NOT_FOUND"
	CodeProductInactive      = "PRODUCT_INACTIVE"
	CodeVariantRequired      = "VARIANT_REQUIRED"
	CodeInvalidQuantity      = "INVALID_QUANTITY"
	CodeCustomizationMissing = "CUSTOMIZATION_REQUIRED"
	CodeCustomizationInvalid = "CUSTOMIZATION_INVALID"
	CodeCouponInvalid        = "COUPON_INVALID"
	CodeCouponInactive       = "COUPON_INACTIVE"
	CodeCouponExpired        = "COUPON_EXPIRED"
	CodeCouponMinPurchase    = "COUPON_MIN_PURCHASE"
	CodeCouponExhausted      = "COUPON_EXHAUSTED"
	CodeCouponNotEligible    = "COUPON_NOT_ELIGIBLE"
	CodeCouponUserLimit      = "COUPON_USER_LIMIT"
	CodeShippingZone         = "SHIPPING_ZONE_UNMATCHED"
	CodeShippingMethod       = "SHIPPING_METHOD_INVALID"
)

// Error is a deterministic validation failure. It is never retryable and its
// message is safe to show to the end user.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
