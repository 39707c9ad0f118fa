package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

// ErrCouponExhausted is returned when a redemption would exceed the coupon's
// global use cap. During finalization this is fatal.
var ErrCouponExhausted = errors.New("coupon use limit reached")

type CouponRepository interface {
	CouponByCode(ctx context.Context, code string) (*model.Coupon, error)
	UsageCountForUser(ctx context.Context, couponID uint, userID string) (int64, error)
	HasUsageForOrder(ctx context.Context, couponID uint, orderID string) (bool, error)
	// Redeem atomically bumps the use counter under the global cap and
	// records the CouponUsage row for (coupon, user, order).
	Redeem(ctx context.Context, couponID uint, userID, orderID string) error
}

type couponRepoImpl struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepoImpl{db: db}
}

func (r *couponRepoImpl) CouponByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", model.NormalizeCouponCode(code)).
		First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *couponRepoImpl) UsageCountForUser(ctx context.Context, couponID uint, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error
	return count, err
}

func (r *couponRepoImpl) HasUsageForOrder(ctx context.Context, couponID uint, orderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CouponUsage{}).
		Where("coupon_id = ? AND order_id = ?", couponID, orderID).
		Count(&count).Error
	return count > 0, err
}

func (r *couponRepoImpl) Redeem(ctx context.Context, couponID uint, userID, orderID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Coupon{}).
			Where("id = ? AND (max_uses = 0 OR current_uses < max_uses)", couponID).
			Updates(map[string]interface{}{
				"current_uses": gorm.Expr("current_uses + 1"),
				"updated_at":   time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCouponExhausted
		}
		return tx.Create(&model.CouponUsage{
			CouponID: couponID,
			UserID:   userID,
			OrderID:  orderID,
		}).Error
	})
}
