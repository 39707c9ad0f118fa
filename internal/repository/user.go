package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

type UserRepository interface {
	// EmailByID returns "" for unknown users; coupon allow-lists treat that
	// as not eligible.
	EmailByID(ctx context.Context, userID string) (string, error)
}

type userRepoImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepoImpl{db: db}
}

func (r *userRepoImpl) EmailByID(ctx context.Context, userID string) (string, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return user.Email, nil
}
