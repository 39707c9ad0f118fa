package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

type BundleRepository interface {
	// ActiveBundles returns every bundle with the active flag set. Window
	// checks happen at quote time so a single read serves the whole cart.
	ActiveBundles(ctx context.Context) ([]*model.BundleDiscount, error)
}

type bundleRepoImpl struct {
	db *gorm.DB
}

func NewBundleRepository(db *gorm.DB) BundleRepository {
	return &bundleRepoImpl{db: db}
}

func (r *bundleRepoImpl) ActiveBundles(ctx context.Context) ([]*model.BundleDiscount, error) {
	var bundles []*model.BundleDiscount
	if err := r.db.WithContext(ctx).Where("active = ?", true).Find(&bundles).Error; err != nil {
		return nil, err
	}
	return bundles, nil
}
