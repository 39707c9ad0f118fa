package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

// Finalize runs the one-time post-payment side effects for a paid order:
// wallet debit, coupon usage, digital access, cashback, confirmation. Entry is
// guarded by the postPaymentActionsCompleted flag and each step carries its
// own existence guard, so the webhook path and any client retry can both call
// this safely. The flag is the last write.
func (s *orderServiceImpl) Finalize(ctx context.Context, orderID string) error {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if order.PostPaymentActionsCompleted {
		return nil
	}

	// 1. Wallet debit. A shortfall means reservation bookkeeping went wrong
	// and must surface to the caller.
	if order.UsedWallet && !order.IsGuest() && order.WalletDiscount.Sign() > 0 {
		if err := s.wallet.Debit(ctx, order.UserID, order.ID, order.WalletDiscount); err != nil {
			return fmt.Errorf("settle wallet debit: %w", err)
		}
		if err := s.orderRepo.SetWalletReservation(ctx, order.ID, model.ReservationCaptured, order.WalletReserved); err != nil {
			s.logger.Error().Err(err).Str("order_id", order.ID).Msg("record wallet capture")
		}
	}

	// 2. Coupon usage. Cap violations are fatal; the usage record keeps
	// re-runs from double-counting.
	if order.CouponCode != "" && order.CouponID != 0 && !order.IsGuest() {
		used, err := s.couponRepo.HasUsageForOrder(ctx, order.CouponID, order.ID)
		if err != nil {
			return fmt.Errorf("check coupon usage: %w", err)
		}
		if !used {
			if err := s.couponRepo.Redeem(ctx, order.CouponID, order.UserID, order.ID); err != nil {
				return fmt.Errorf("record coupon usage: %w", err)
			}
		}
	}

	// 3. Digital access. Non-critical to settlement.
	s.grantDigitalAccess(ctx, order)

	// 4. Cashback on the portion the processor actually charged. Non-critical.
	if !order.IsGuest() {
		base := order.Subtotal.Sub(order.CouponDiscount).Sub(order.WalletDiscount)
		cashback := base.Mul(s.cashbackPercent).Div(decimal.NewFromInt(100)).Round(2)
		if cashback.Sign() > 0 {
			if err := s.wallet.Credit(ctx, order.UserID, order.ID, cashback, model.WalletTxCashback); err != nil {
				s.logger.Warn().Err(err).Str("order_id", order.ID).Msg("credit cashback")
			}
		}
	}

	// 5. Confirmation. Non-critical.
	if err := s.notifier.Send(ctx, "order_confirmed", order.ID); err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID).Msg("send order confirmation")
	}

	if err := s.orderRepo.MarkPostPaymentDone(ctx, order.ID); err != nil {
		return fmt.Errorf("mark post-payment actions completed: %w", err)
	}
	return nil
}

func (s *orderServiceImpl) grantDigitalAccess(ctx context.Context, order *model.Order) {
	ids := make([]string, 0, len(order.Items))
	for _, it := range order.Items {
		if it.Digital {
			ids = append(ids, it.ProductID)
		}
	}
	if len(ids) == 0 {
		return
	}
	products, err := s.productRepo.ProductsByID(ctx, ids)
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID).Msg("load digital products")
		return
	}
	for _, id := range ids {
		p, ok := products[id]
		if !ok {
			continue
		}
		err := s.digitalRepo.Grant(ctx, &model.DigitalAccess{
			UserID:    order.UserID,
			OrderID:   order.ID,
			ProductID: p.ID,
			Files:     p.Files,
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("order_id", order.ID).Str("product_id", p.ID).
				Msg("grant digital access")
		}
	}
}
