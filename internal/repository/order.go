package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

var ErrOrderConflict = errors.New("order not in an updatable state")

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, orderID string) (*model.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Order, error)
	// Update persists re-priced totals and payment fields written by the
	// payment-intent step.
	Update(ctx context.Context, order *model.Order) error
	// MarkPaid transitions a pending order to paid/processing and flips the
	// stock reservation to captured. Returns ErrOrderConflict when the order
	// is no longer in a pre-payment state.
	MarkPaid(ctx context.Context, orderID string) error
	MarkMismatch(ctx context.Context, orderID, reason string) error
	MarkPostPaymentDone(ctx context.Context, orderID string) error
	SetWalletReservation(ctx context.Context, orderID string, status model.ReservationStatus, amount decimal.Decimal) error
	Delete(ctx context.Context, orderID string) error
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{db: db}
}

func (r *orderRepoImpl) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepoImpl) FindByIdempotencyKey(ctx context.Context, key string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).First(&order, "idempotency_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepoImpl) Update(ctx context.Context, order *model.Order) error {
	order.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *orderRepoImpl) MarkPaid(ctx context.Context, orderID string) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status = ? AND status = ?",
			orderID, model.PaymentStatusPending, model.OrderStatusPending).
		Updates(map[string]interface{}{
			"payment_status":    model.PaymentStatusPaid,
			"status":            model.OrderStatusProcessing,
			"stock_reservation": model.ReservationCaptured,
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderConflict
	}
	return nil
}

func (r *orderRepoImpl) MarkMismatch(ctx context.Context, orderID, reason string) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"payment_mismatch":        true,
			"payment_mismatch_reason": reason,
			"updated_at":              time.Now(),
		}).Error
}

func (r *orderRepoImpl) MarkPostPaymentDone(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"post_payment_actions_completed": true,
			"updated_at":                     time.Now(),
		}).Error
}

func (r *orderRepoImpl) SetWalletReservation(ctx context.Context, orderID string, status model.ReservationStatus, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"wallet_reservation": status,
			"wallet_reserved":    amount,
			"updated_at":         time.Now(),
		}).Error
}

func (r *orderRepoImpl) Delete(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).Delete(&model.Order{}, "id = ?", orderID).Error
}
