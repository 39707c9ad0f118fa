package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/devLudociel/MiEcommerce-sub000/internal/dto"
	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
	"github.com/devLudociel/MiEcommerce-sub000/internal/pricing"
	"github.com/devLudociel/MiEcommerce-sub000/internal/wallet"
)

// CreatePaymentIntent re-prices the order from its stored items, reconciles
// the wallet reservation against the fresh quote and registers the charge
// with the payment processor. The re-priced totals are written before the
// charge is created, so the processor only ever sees engine-computed amounts.
func (s *orderServiceImpl) CreatePaymentIntent(ctx context.Context, userID, orderID string) (*dto.PaymentIntentResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID && !(order.IsGuest() && userID == "") {
		return nil, ErrForbidden
	}
	if order.PaymentStatus == model.PaymentStatusPaid {
		return nil, ErrAlreadyPaid
	}

	quote, err := s.engine.Quote(ctx, requoteInput(order))
	if err != nil {
		return nil, err
	}

	if err := s.reconcileWalletReservation(ctx, order, quote); err != nil {
		return nil, err
	}

	applyQuote(order, quote)
	if err := s.orderRepo.Update(ctx, order); err != nil {
		s.releaseWalletOnFailure(ctx, order)
		return nil, fmt.Errorf("persist repriced order: %w", err)
	}

	charge, err := s.paymentClient.CreateCharge(ctx, order.TotalMinorUnits(), order.Currency, map[string]string{
		"order_id": order.ID,
	})
	if err != nil {
		// The charge never came to exist; undo the wallet hold taken above.
		s.releaseWalletOnFailure(ctx, order)
		return nil, fmt.Errorf("create charge: %w", err)
	}

	order.PaymentRef = charge.ID
	if err := s.orderRepo.Update(ctx, order); err != nil {
		s.releaseWalletOnFailure(ctx, order)
		return nil, fmt.Errorf("store payment reference: %w", err)
	}

	s.logger.Info().Str("order_id", order.ID).Str("payment_ref", charge.ID).
		Int64("amount_cents", order.TotalMinorUnits()).Msg("payment intent created")

	return &dto.PaymentIntentResponse{
		OrderID:      order.ID,
		PaymentRef:   charge.ID,
		ClientSecret: charge.ClientSecret,
		AmountCents:  order.TotalMinorUnits(),
		Currency:     order.Currency,
	}, nil
}

// reconcileWalletReservation makes the held amount match the fresh quote. The
// engine quotes against the free balance only, so funds this order already
// holds are added back before deciding the target amount. A previous
// reservation within epsilon of the target is left untouched, which makes
// re-entering this step idempotent; otherwise the old hold is released and a
// new one taken. The quote's wallet figures are rewritten to the applied hold.
func (s *orderServiceImpl) reconcileWalletReservation(ctx context.Context, order *model.Order, quote *pricing.Quote) error {
	if order.IsGuest() {
		return nil
	}

	previous := decimal.Zero
	if order.WalletReservation == model.ReservationReserved {
		previous = order.WalletReserved
	}

	payable := quote.Total.Add(quote.WalletDiscount)
	target := quote.WalletDiscount
	if previous.Sign() > 0 {
		target = decimal.Min(quote.WalletDiscount.Add(previous), payable).Round(2)
	}

	if previous.Sign() > 0 && previous.Sub(target).Abs().LessThanOrEqual(wallet.ReconcileEpsilon) {
		applyWalletHold(quote, payable, previous)
		return nil
	}

	if previous.Sign() > 0 {
		if _, err := s.wallet.Release(ctx, order.UserID, order.ID, previous); err != nil {
			return fmt.Errorf("release stale wallet reservation: %w", err)
		}
		order.WalletReservation = model.ReservationNone
		order.WalletReserved = decimal.Zero
		// Persisted immediately: if the re-reserve below fails, the order row
		// must not keep claiming a hold it no longer owns.
		if err := s.orderRepo.SetWalletReservation(ctx, order.ID, model.ReservationNone, decimal.Zero); err != nil {
			return fmt.Errorf("record wallet release: %w", err)
		}
	}

	if target.Sign() > 0 {
		if err := s.wallet.Reserve(ctx, order.UserID, target); err != nil {
			return fmt.Errorf("reserve wallet funds: %w", err)
		}
		order.WalletReservation = model.ReservationReserved
		order.WalletReserved = target
	}
	applyWalletHold(quote, payable, target)
	return nil
}

func applyWalletHold(quote *pricing.Quote, payable, hold decimal.Decimal) {
	quote.WalletDiscount = hold
	quote.UsedWallet = hold.Sign() > 0
	total := payable.Sub(hold).Round(2)
	if total.Sign() < 0 {
		total = decimal.Zero
	}
	quote.Total = total
}

// releaseWalletOnFailure is the compensation path for a payment-intent attempt
// that fails after the wallet hold was taken.
func (s *orderServiceImpl) releaseWalletOnFailure(ctx context.Context, order *model.Order) {
	if order.WalletReservation != model.ReservationReserved || order.WalletReserved.Sign() <= 0 {
		return
	}
	if _, err := s.wallet.Release(ctx, order.UserID, order.ID, order.WalletReserved); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID).
			Msg("release wallet reservation after failed payment intent")
		return
	}
	order.WalletReservation = model.ReservationReleased
	if err := s.orderRepo.SetWalletReservation(ctx, order.ID, model.ReservationReleased, decimal.Zero); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID).Msg("record wallet release")
	}
}

func requoteInput(order *model.Order) pricing.QuoteInput {
	items := make([]pricing.QuoteItem, len(order.Items))
	for i, it := range order.Items {
		custom := make(map[string]string, len(it.Customizations))
		for _, c := range it.Customizations {
			custom[c.Key] = c.Value
		}
		items[i] = pricing.QuoteItem{
			ProductID:      it.ProductID,
			VariantID:      it.VariantID,
			Quantity:       it.Quantity,
			Customizations: custom,
		}
	}
	return pricing.QuoteInput{
		Items:            items,
		Shipping:         order.ShippingInfo,
		ShippingMethodID: order.ShippingMethodID,
		CouponCode:       order.CouponCode,
		UseWallet:        order.UsedWallet,
		UserID:           order.UserID,
	}
}

func applyQuote(order *model.Order, quote *pricing.Quote) {
	order.Subtotal = quote.Subtotal
	order.BundleDiscount = quote.BundleDiscount
	order.CouponDiscount = quote.CouponDiscount
	order.Tax = quote.Tax
	order.ShippingCost = quote.ShippingCost
	order.WalletDiscount = quote.WalletDiscount
	order.Total = quote.Total
	order.UsedWallet = quote.UsedWallet
	order.CouponCode = quote.CouponCode
	order.CouponID = quote.CouponID
}
