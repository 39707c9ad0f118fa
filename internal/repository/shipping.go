package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

type ShippingRepository interface {
	ActiveZones(ctx context.Context) ([]*model.ShippingZone, error)
	ActiveMethodsForZone(ctx context.Context, zoneID uint) ([]*model.ShippingMethod, error)
}

type shippingRepoImpl struct {
	db *gorm.DB
}

func NewShippingRepository(db *gorm.DB) ShippingRepository {
	return &shippingRepoImpl{db: db}
}

func (r *shippingRepoImpl) ActiveZones(ctx context.Context) ([]*model.ShippingZone, error) {
	var zones []*model.ShippingZone
	err := r.db.WithContext(ctx).Where("active = ?", true).Find(&zones).Error
	return zones, err
}

func (r *shippingRepoImpl) ActiveMethodsForZone(ctx context.Context, zoneID uint) ([]*model.ShippingMethod, error) {
	var methods []*model.ShippingMethod
	err := r.db.WithContext(ctx).
		Where("zone_id = ? AND active = ?", zoneID, true).
		Find(&methods).Error
	return methods, err
}
