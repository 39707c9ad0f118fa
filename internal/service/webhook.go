package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/devLudociel/MiEcommerce-sub000/internal/client"
	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

// Mismatch reason codes recorded on the order for operator review. They are
// never surfaced to the end user.
const (
	MismatchAlreadyPaid   = "already_paid"
	MismatchInvalidStatus = "invalid_status"
	MismatchAmount        = "amount_mismatch"
	MismatchCurrency      = "currency_mismatch"
	MismatchPaymentRef    = "payment_ref_mismatch"
)

// HandleWebhook drives a payment-processor event through verification,
// deduplication, order validation and either finalization or compensation.
// Every acknowledged branch ends by recording the event id, making the whole
// handler idempotent at the event level.
func (s *orderServiceImpl) HandleWebhook(ctx context.Context, rawBody []byte, signatureHeader string) error {
	event, err := s.paymentClient.VerifyWebhook(rawBody, signatureHeader)
	if err != nil {
		return fmt.Errorf("verify webhook signature: %w", err)
	}

	processed, err := s.webhookRepo.Exists(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("%w: event lookup: %v", ErrRetryable, err)
	}
	if processed {
		s.logger.Debug().Str("event_id", event.ID).Msg("duplicate webhook event, acknowledged")
		return nil
	}

	orderID := event.Data.Object.Metadata["order_id"]
	if orderID == "" {
		// Acknowledge to stop redelivery, but leave a trace for operators.
		s.logger.Warn().Str("event_id", event.ID).Msg("webhook event without order reference")
		return s.markProcessed(ctx, event)
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn().Str("event_id", event.ID).Str("order_id", orderID).
			Msg("webhook event for unknown order")
		return s.markProcessed(ctx, event)
	}
	if err != nil {
		return fmt.Errorf("%w: load order: %v", ErrRetryable, err)
	}

	switch event.Type {
	case client.EventPaymentSucceeded:
		return s.handlePaymentSucceeded(ctx, event, order)
	case client.EventPaymentFailed, client.EventPaymentCanceled:
		return s.handlePaymentFailed(ctx, event, order)
	default:
		s.logger.Debug().Str("event_id", event.ID).Str("type", event.Type).
			Msg("ignoring unhandled webhook event type")
		return s.markProcessed(ctx, event)
	}
}

// handlePaymentSucceeded validates the event against the stored order before
// any state changes. A failed guard flags the order and acknowledges the
// event, blocking both underpayment and cross-order replay without triggering
// processor retry storms.
func (s *orderServiceImpl) handlePaymentSucceeded(ctx context.Context, event *client.Event, order *model.Order) error {
	charge := event.Data.Object

	if order.PaymentStatus == model.PaymentStatusPaid {
		// Business effects already applied; just absorb the event.
		return s.markProcessed(ctx, event)
	}

	reason := ""
	switch {
	case order.Status != model.OrderStatusPending:
		reason = MismatchInvalidStatus
	case charge.Amount != order.TotalMinorUnits():
		reason = MismatchAmount
	case !strings.EqualFold(charge.Currency, order.Currency):
		reason = MismatchCurrency
	case charge.ID != order.PaymentRef:
		reason = MismatchPaymentRef
	}
	if reason != "" {
		s.logger.Error().Str("event_id", event.ID).Str("order_id", order.ID).
			Str("reason", reason).Msg("payment event failed validation")
		if err := s.orderRepo.MarkMismatch(ctx, order.ID, reason); err != nil {
			return fmt.Errorf("%w: flag mismatch: %v", ErrRetryable, err)
		}
		return s.markProcessed(ctx, event)
	}

	if err := s.Finalize(ctx, order.ID); err != nil {
		// Let the processor redeliver; finalization is re-entrant.
		return fmt.Errorf("%w: finalize order %s: %v", ErrRetryable, order.ID, err)
	}

	if err := s.orderRepo.MarkPaid(ctx, order.ID); err != nil {
		return fmt.Errorf("%w: mark order paid: %v", ErrRetryable, err)
	}

	s.logger.Info().Str("order_id", order.ID).Str("event_id", event.ID).Msg("order paid")
	return s.markProcessed(ctx, event)
}

// handlePaymentFailed compensates an unpaid order: wallet hold released, stock
// restored, order removed, audit entry logged. A paid order is never touched.
func (s *orderServiceImpl) handlePaymentFailed(ctx context.Context, event *client.Event, order *model.Order) error {
	if order.PaymentStatus == model.PaymentStatusPaid {
		s.logger.Warn().Str("order_id", order.ID).Str("event_id", event.ID).
			Msg("failure event for a paid order, ignored")
		return s.markProcessed(ctx, event)
	}

	if order.WalletReservation == model.ReservationReserved && order.WalletReserved.Sign() > 0 {
		if _, err := s.wallet.Release(ctx, order.UserID, order.ID, order.WalletReserved); err != nil {
			return fmt.Errorf("%w: release wallet reservation: %v", ErrRetryable, err)
		}
	}

	if order.StockReservation == model.ReservationReserved && len(order.ReservedItems) > 0 {
		if err := s.stock.Release(ctx, order.ReservedItems); err != nil {
			return fmt.Errorf("%w: release stock reservation: %v", ErrRetryable, err)
		}
	}

	if err := s.orderRepo.Delete(ctx, order.ID); err != nil {
		return fmt.Errorf("%w: delete order: %v", ErrRetryable, err)
	}

	s.logger.Info().Str("order_id", order.ID).Str("event_id", event.ID).
		Str("event_type", event.Type).Str("user_id", order.UserID).
		Str("total", order.Total.StringFixed(2)).
		Msg("order cancelled after payment failure")
	return s.markProcessed(ctx, event)
}

func (s *orderServiceImpl) markProcessed(ctx context.Context, event *client.Event) error {
	if err := s.webhookRepo.MarkProcessed(ctx, event.ID, event.Type); err != nil {
		return fmt.Errorf("%w: record webhook event: %v", ErrRetryable, err)
	}
	return nil
}
