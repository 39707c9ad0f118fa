package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

type DigitalAccessRepository interface {
	// Grant creates an access record unless one already exists for the same
	// order and product, which makes re-granting on retries a no-op.
	Grant(ctx context.Context, access *model.DigitalAccess) error
}

type digitalAccessRepoImpl struct {
	db *gorm.DB
}

func NewDigitalAccessRepository(db *gorm.DB) DigitalAccessRepository {
	return &digitalAccessRepoImpl{db: db}
}

func (r *digitalAccessRepoImpl) Grant(ctx context.Context, access *model.DigitalAccess) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&model.DigitalAccess{}).
			Where("order_id = ? AND product_id = ?", access.OrderID, access.ProductID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return tx.Create(access).Error
	})
}
