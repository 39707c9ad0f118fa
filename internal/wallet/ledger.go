// Package wallet is the only writer of wallet balances. Reserve moves funds
// from balance to reservedBalance, release moves them back, capture converts
// reserved funds into spend. Every externally visible mutation appends an
// entry to the wallet transaction log.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

// ReconcileEpsilon is the tolerance under which an existing reservation is
// left untouched when payment-intent creation re-prices an order.
var ReconcileEpsilon = decimal.NewFromFloat(0.01)

var ErrWalletNotFound = errors.New("wallet not found")

// InsufficientBalanceError is a resource conflict the client can resolve by
// paying without wallet funds.
type InsufficientBalanceError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient wallet balance: available %s, requested %s",
		e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Balance implements pricing.WalletSource. Missing wallets read as zero.
func (l *Ledger) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var w model.Wallet
	err := l.db.WithContext(ctx).First(&w, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("load wallet: %w", err)
	}
	return w.Balance, nil
}

// Reserve holds amount from the free balance. Fails when the wallet does not
// exist or the balance is short; balance+reservedBalance is unchanged.
func (l *Ledger) Reserve(ctx context.Context, userID string, amount decimal.Decimal) error {
	amount = amount.Round(2)
	if amount.Sign() <= 0 {
		return nil
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := lockWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		if w == nil {
			return ErrWalletNotFound
		}
		if w.Balance.LessThan(amount) {
			return &InsufficientBalanceError{Available: w.Balance, Requested: amount}
		}
		w.Balance = w.Balance.Sub(amount).Round(2)
		w.ReservedBalance = w.ReservedBalance.Add(amount).Round(2)
		return saveWallet(ctx, tx, w)
	})
}

// Release returns reserved funds to the free balance, clamped to what is
// actually reserved, and logs a refund entry for the released amount.
func (l *Ledger) Release(ctx context.Context, userID, orderID string, amount decimal.Decimal) (decimal.Decimal, error) {
	amount = amount.Round(2)
	released := decimal.Zero
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := lockWallet(ctx, tx, userID)
		if err != nil || w == nil {
			return err
		}
		released = decimal.Min(amount, w.ReservedBalance).Round(2)
		if released.Sign() <= 0 {
			released = decimal.Zero
			return nil
		}
		w.ReservedBalance = w.ReservedBalance.Sub(released).Round(2)
		w.Balance = w.Balance.Add(released).Round(2)
		if err := saveWallet(ctx, tx, w); err != nil {
			return err
		}
		return appendTx(ctx, tx, userID, orderID, model.WalletTxRefund, released)
	})
	return released, err
}

// Capture converts reserved funds into spend, clamped to what is actually
// reserved. balance+reservedBalance drops by exactly the captured amount.
func (l *Ledger) Capture(ctx context.Context, userID, orderID string, amount decimal.Decimal) (decimal.Decimal, error) {
	amount = amount.Round(2)
	captured := decimal.Zero
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := lockWallet(ctx, tx, userID)
		if err != nil || w == nil {
			return err
		}
		captured = decimal.Min(amount, w.ReservedBalance).Round(2)
		if captured.Sign() <= 0 {
			captured = decimal.Zero
			return nil
		}
		w.ReservedBalance = w.ReservedBalance.Sub(captured).Round(2)
		w.TotalSpent = w.TotalSpent.Add(captured).Round(2)
		if err := saveWallet(ctx, tx, w); err != nil {
			return err
		}
		return appendTx(ctx, tx, userID, orderID, model.WalletTxDebit, captured)
	})
	return captured, err
}

// Debit settles the wallet portion of a paid order. The reservation is
// consumed first; any remainder comes out of the free balance. A remainder the
// balance cannot cover means reservation bookkeeping went inconsistent and is
// fatal to finalization. Guarded by the debit entry for the order, so re-runs
// are no-ops.
func (l *Ledger) Debit(ctx context.Context, userID, orderID string, amount decimal.Decimal) error {
	amount = amount.Round(2)
	if amount.Sign() <= 0 {
		return nil
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		done, err := hasTx(ctx, tx, orderID, model.WalletTxDebit)
		if err != nil || done {
			return err
		}
		w, err := lockWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		if w == nil {
			return ErrWalletNotFound
		}
		fromReserved := decimal.Min(amount, w.ReservedBalance).Round(2)
		remainder := amount.Sub(fromReserved).Round(2)
		if w.Balance.LessThan(remainder) {
			return &InsufficientBalanceError{Available: w.Balance, Requested: remainder}
		}
		w.ReservedBalance = w.ReservedBalance.Sub(fromReserved).Round(2)
		w.Balance = w.Balance.Sub(remainder).Round(2)
		w.TotalSpent = w.TotalSpent.Add(amount).Round(2)
		if err := saveWallet(ctx, tx, w); err != nil {
			return err
		}
		return appendTx(ctx, tx, userID, orderID, model.WalletTxDebit, amount)
	})
}

// Credit adds funds (cashback, refunds), creating the wallet if needed.
// Cashback is guarded by the cashback entry for the order.
func (l *Ledger) Credit(ctx context.Context, userID, orderID string, amount decimal.Decimal, kind model.WalletTransactionKind) error {
	amount = amount.Round(2)
	if amount.Sign() <= 0 {
		return nil
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if kind == model.WalletTxCashback {
			done, err := hasTx(ctx, tx, orderID, model.WalletTxCashback)
			if err != nil || done {
				return err
			}
		}
		w, err := lockWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		if w == nil {
			w = &model.Wallet{
				UserID:          userID,
				Balance:         decimal.Zero,
				ReservedBalance: decimal.Zero,
				TotalEarned:     decimal.Zero,
				TotalSpent:      decimal.Zero,
			}
			if err := tx.WithContext(ctx).Create(w).Error; err != nil {
				return fmt.Errorf("create wallet: %w", err)
			}
		}
		w.Balance = w.Balance.Add(amount).Round(2)
		w.TotalEarned = w.TotalEarned.Add(amount).Round(2)
		if err := saveWallet(ctx, tx, w); err != nil {
			return err
		}
		return appendTx(ctx, tx, userID, orderID, kind, amount)
	})
}

func lockWallet(ctx context.Context, tx *gorm.DB, userID string) (*model.Wallet, error) {
	var w model.Wallet
	err := tx.WithContext(ctx).First(&w, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	return &w, nil
}

// saveWallet persists modified balances guarded by the wallet's version
// column; a concurrent balance write fails the transaction instead of
// clobbering.
func saveWallet(ctx context.Context, tx *gorm.DB, w *model.Wallet) error {
	version := w.Version
	w.Version++
	w.UpdatedAt = time.Now()
	res := tx.WithContext(ctx).Model(&model.Wallet{}).
		Where("user_id = ? AND version = ?", w.UserID, version).
		Select("Balance", "ReservedBalance", "TotalEarned", "TotalSpent", "Version", "UpdatedAt").
		Updates(w)
	if res.Error != nil {
		return fmt.Errorf("write wallet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("write wallet for %s: concurrent modification", w.UserID)
	}
	return nil
}

func appendTx(ctx context.Context, tx *gorm.DB, userID, orderID string, kind model.WalletTransactionKind, amount decimal.Decimal) error {
	entry := &model.WalletTransaction{
		ID:      uuid.NewString(),
		UserID:  userID,
		Kind:    kind,
		Amount:  amount,
		OrderID: orderID,
	}
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("append wallet transaction: %w", err)
	}
	return nil
}

func hasTx(ctx context.Context, tx *gorm.DB, orderID string, kind model.WalletTransactionKind) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.WalletTransaction{}).
		Where("order_id = ? AND kind = ?", orderID, kind).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check wallet transaction: %w", err)
	}
	return count > 0, nil
}
