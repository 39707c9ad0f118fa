package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

type ProductRepository interface {
	// ProductsByID returns the products that exist, keyed by id. Callers
	// decide how to treat missing or inactive entries.
	ProductsByID(ctx context.Context, ids []string) (map[string]*model.Product, error)
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{db: db}
}

func (r *productRepoImpl) ProductsByID(ctx context.Context, ids []string) (map[string]*model.Product, error) {
	var rows []model.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	products := make(map[string]*model.Product, len(rows))
	for i := range rows {
		products[rows[i].ID] = &rows[i]
	}
	return products, nil
}
