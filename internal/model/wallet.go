package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a user's store-credit balances. Reservation moves funds from
// Balance into ReservedBalance without changing total holdings; capture moves
// ReservedBalance into TotalSpent.
type Wallet struct {
	UserID          string          `gorm:"primaryKey;size:64;not null"`
	Balance         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ReservedBalance decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalEarned     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalSpent      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Version         int             `gorm:"not null;default:0"` // optimistic guard for balance writes
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type WalletTransactionKind string

const (
	WalletTxDebit    WalletTransactionKind = "debit"
	WalletTxCashback WalletTransactionKind = "cashback"
	WalletTxRefund   WalletTransactionKind = "refund"
)

// WalletTransaction is an append-only ledger entry; never mutated after creation.
type WalletTransaction struct {
	ID        string                `gorm:"primaryKey;size:64;not null"`
	UserID    string                `gorm:"size:64;index;not null"`
	Kind      WalletTransactionKind `gorm:"size:16;index;not null"`
	Amount    decimal.Decimal       `gorm:"type:decimal(12,2);not null"`
	OrderID   string                `gorm:"size:64;index"`
	CreatedAt time.Time
}
