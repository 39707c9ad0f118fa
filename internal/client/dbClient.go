package client

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

// InitDB opens the store database. A DSN containing "@tcp(" selects MySQL;
// anything else is treated as a SQLite path (local/dev).
func InitDB(databaseURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.Contains(databaseURL, "@tcp(") {
		dialector = mysql.Open(databaseURL)
	} else {
		if databaseURL == "" {
			databaseURL = "store.db"
		}
		dialector = sqlite.Open(databaseURL)
	}

	// TranslateError maps both drivers' duplicate-key failures onto
	// gorm.ErrDuplicatedKey for the idempotency-key race.
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool (important for webhooks)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&model.Product{},
		&model.User{},
		&model.Order{},
		&model.Coupon{},
		&model.CouponUsage{},
		&model.BundleDiscount{},
		&model.Wallet{},
		&model.WalletTransaction{},
		&model.WebhookEvent{},
		&model.ShippingZone{},
		&model.ShippingMethod{},
		&model.DigitalAccess{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}
