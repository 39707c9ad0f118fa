// Package stock is the only writer of product inventory counts. Reservation
// decrements stock ahead of payment; release is the compensation path.
package stock

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

const (
	CodeOutOfStock        = "OUT_OF_STOCK"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
)

// ReservationError carries safe detail so the client can adjust and retry.
type ReservationError struct {
	Code        string
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *ReservationError) Error() string {
	return fmt.Sprintf("%s: product %s (available %d, requested %d)", e.Code, e.ProductID, e.Available, e.Requested)
}

// Item is one requested line; duplicate lines for the same (product, variant)
// are merged before the ledger is touched.
type Item struct {
	ProductID string
	VariantID string
	Quantity  int
}

type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Validate is the read-only availability check.
func (l *Ledger) Validate(ctx context.Context, items []Item) error {
	grouped := groupItems(items)
	products, err := l.loadProducts(ctx, l.db, grouped)
	if err != nil {
		return err
	}
	for _, it := range grouped {
		if _, err := plan(products, it); err != nil {
			return err
		}
	}
	return nil
}

// Reserve decrements stock for every line in one transaction and returns the
// snapshot needed to undo it. On any shortfall the whole transaction rolls
// back and no product is left partially decremented. Untracked and backorder
// products are kept in the snapshot with a zero quantity.
func (l *Ledger) Reserve(ctx context.Context, items []Item) ([]model.ReservedItem, error) {
	grouped := groupItems(items)
	var snapshot []model.ReservedItem

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products, err := l.loadProducts(ctx, tx, grouped)
		if err != nil {
			return err
		}

		touched := make(map[string]*model.Product)
		for _, it := range grouped {
			decrement, err := plan(products, it)
			if err != nil {
				return err
			}
			snapshot = append(snapshot, model.ReservedItem{
				ProductID: it.ProductID,
				VariantID: it.VariantID,
				Quantity:  decrement,
			})
			if decrement == 0 {
				continue
			}
			p := products[it.ProductID]
			if it.VariantID != "" {
				p.Variant(it.VariantID).Stock -= decrement
			} else {
				p.Stock -= decrement
			}
			touched[p.ID] = p
		}

		for _, p := range touched {
			if err := writeProductStock(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Release restores a reservation snapshot. Reserve followed by Release is an
// identity on stock counts when nothing else mutated them in between.
func (l *Ledger) Release(ctx context.Context, snapshot []model.ReservedItem) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]string, 0, len(snapshot))
		for _, it := range snapshot {
			if it.Quantity > 0 {
				ids = append(ids, it.ProductID)
			}
		}
		if len(ids) == 0 {
			return nil
		}

		var rows []model.Product
		if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		products := make(map[string]*model.Product, len(rows))
		for i := range rows {
			products[rows[i].ID] = &rows[i]
		}

		touched := make(map[string]*model.Product)
		for _, it := range snapshot {
			if it.Quantity == 0 {
				continue
			}
			p, ok := products[it.ProductID]
			if !ok {
				continue // product deleted since reservation, nothing to restore
			}
			if it.VariantID != "" {
				if v := p.Variant(it.VariantID); v != nil {
					v.Stock += it.Quantity
				}
			} else {
				p.Stock += it.Quantity
			}
			touched[p.ID] = p
		}

		for _, p := range touched {
			if err := writeProductStock(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// plan returns the quantity to decrement for a line, or zero when the product
// does not track inventory or allows backorders.
func plan(products map[string]*model.Product, it Item) (int, error) {
	p, ok := products[it.ProductID]
	if !ok {
		return 0, &ReservationError{Code: CodeOutOfStock, ProductID: it.ProductID, Requested: it.Quantity}
	}
	if !p.TrackInventory || p.AllowBackorder {
		return 0, nil
	}

	available := p.Stock
	if it.VariantID != "" {
		v := p.Variant(it.VariantID)
		if v == nil {
			return 0, &ReservationError{Code: CodeOutOfStock, ProductID: p.ID, ProductName: p.Name, Requested: it.Quantity}
		}
		available = v.Stock
	}

	if available <= 0 {
		return 0, &ReservationError{Code: CodeOutOfStock, ProductID: p.ID, ProductName: p.Name, Available: available, Requested: it.Quantity}
	}
	if it.Quantity > available {
		return 0, &ReservationError{Code: CodeInsufficientStock, ProductID: p.ID, ProductName: p.Name, Available: available, Requested: it.Quantity}
	}
	return it.Quantity, nil
}

// writeProductStock persists a modified product row guarded by its version
// column; a concurrent stock write fails the transaction instead of clobbering.
func writeProductStock(ctx context.Context, tx *gorm.DB, p *model.Product) error {
	version := p.Version
	p.Version++
	p.UpdatedAt = time.Now()
	res := tx.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND version = ?", p.ID, version).
		Select("Stock", "Variants", "Version", "UpdatedAt").
		Updates(p)
	if res.Error != nil {
		return fmt.Errorf("write stock for %s: %w", p.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("write stock for %s: concurrent modification", p.ID)
	}
	return nil
}

func (l *Ledger) loadProducts(ctx context.Context, tx *gorm.DB, items []Item) (map[string]*model.Product, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	var rows []model.Product
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	products := make(map[string]*model.Product, len(rows))
	for i := range rows {
		products[rows[i].ID] = &rows[i]
	}
	return products, nil
}

func groupItems(items []Item) []Item {
	index := make(map[string]int, len(items))
	var grouped []Item
	for _, it := range items {
		key := it.ProductID + "|" + it.VariantID
		if i, ok := index[key]; ok {
			grouped[i].Quantity += it.Quantity
			continue
		}
		index[key] = len(grouped)
		grouped = append(grouped, it)
	}
	return grouped
}
