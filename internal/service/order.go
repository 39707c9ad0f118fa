package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/devLudociel/MiEcommerce-sub000/internal/client"
	"github.com/devLudociel/MiEcommerce-sub000/internal/dto"
	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
	"github.com/devLudociel/MiEcommerce-sub000/internal/notify"
	"github.com/devLudociel/MiEcommerce-sub000/internal/pricing"
	"github.com/devLudociel/MiEcommerce-sub000/internal/repository"
	"github.com/devLudociel/MiEcommerce-sub000/internal/stock"
	"github.com/devLudociel/MiEcommerce-sub000/internal/wallet"
)

type OrderService interface {
	CreateOrder(ctx context.Context, userID, email string, req *dto.CreateOrderRequest) (*model.Order, error)
	GetOrder(ctx context.Context, userID string, isAdmin bool, orderID string) (*model.Order, error)
	CreatePaymentIntent(ctx context.Context, userID, orderID string) (*dto.PaymentIntentResponse, error)
	Finalize(ctx context.Context, orderID string) error
	HandleWebhook(ctx context.Context, rawBody []byte, signatureHeader string) error
}

type orderServiceImpl struct {
	engine        *pricing.Engine
	stock         *stock.Ledger
	wallet        *wallet.Ledger
	orderRepo     repository.OrderRepository
	productRepo   repository.ProductRepository
	couponRepo    repository.CouponRepository
	webhookRepo   repository.WebhookEventRepository
	digitalRepo   repository.DigitalAccessRepository
	paymentClient client.PaymentClient
	notifier      notify.Notifier
	logger        zerolog.Logger

	currency        string
	cashbackPercent decimal.Decimal
}

func NewOrderService(
	engine *pricing.Engine,
	stockLedger *stock.Ledger,
	walletLedger *wallet.Ledger,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	couponRepo repository.CouponRepository,
	webhookRepo repository.WebhookEventRepository,
	digitalRepo repository.DigitalAccessRepository,
	paymentClient client.PaymentClient,
	notifier notify.Notifier,
	logger zerolog.Logger,
	currency string,
	cashbackPercent decimal.Decimal,
) OrderService {
	return &orderServiceImpl{
		engine:          engine,
		stock:           stockLedger,
		wallet:          walletLedger,
		orderRepo:       orderRepo,
		productRepo:     productRepo,
		couponRepo:      couponRepo,
		webhookRepo:     webhookRepo,
		digitalRepo:     digitalRepo,
		paymentClient:   paymentClient,
		notifier:        notifier,
		logger:          logger,
		currency:        currency,
		cashbackPercent: cashbackPercent,
	}
}

// CreateOrder prices the cart server-side, reserves stock and persists the
// order in the pending state. Client-supplied status or prices are ignored.
// Resubmitting the same idempotency key returns the already-created order.
func (s *orderServiceImpl) CreateOrder(ctx context.Context, userID, email string, req *dto.CreateOrderRequest) (*model.Order, error) {
	if req.IdempotencyKey != "" {
		existing, err := s.orderRepo.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	useWallet := req.UseWallet
	if userID == "" {
		userID = model.GuestUserID
	}
	if userID == model.GuestUserID {
		// Guests have no wallet, whatever the request claims.
		useWallet = false
	}

	quote, err := s.engine.Quote(ctx, quoteInput(userID, req, useWallet))
	if err != nil {
		return nil, err
	}

	snapshot, err := s.stock.Reserve(ctx, stockItems(quote.Items))
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		ID:                uuid.NewString(),
		UserID:            userID,
		Email:             email,
		IdempotencyKey:    req.IdempotencyKey,
		Items:             orderItems(quote.Items),
		ShippingInfo:      shippingInfo(req.Shipping),
		ShippingMethodID:  req.ShippingMethodID,
		Subtotal:          quote.Subtotal,
		BundleDiscount:    quote.BundleDiscount,
		CouponDiscount:    quote.CouponDiscount,
		Tax:               quote.Tax,
		ShippingCost:      quote.ShippingCost,
		WalletDiscount:    quote.WalletDiscount,
		Total:             quote.Total,
		Currency:          quote.Currency,
		CouponCode:        quote.CouponCode,
		CouponID:          quote.CouponID,
		UsedWallet:        quote.UsedWallet,
		Status:            model.OrderStatusPending,
		PaymentStatus:     model.PaymentStatusPending,
		StockReservation:  model.ReservationReserved,
		ReservedItems:     snapshot,
		WalletReservation: model.ReservationNone,
		WalletReserved:    decimal.Zero,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		// Persisting failed after stock was taken; put it back.
		if relErr := s.stock.Release(ctx, snapshot); relErr != nil {
			s.logger.Error().Err(relErr).Str("order_id", order.ID).
				Msg("release stock after failed order persist")
		}
		if req.IdempotencyKey != "" && errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, lookupErr := s.orderRepo.FindByIdempotencyKey(ctx, req.IdempotencyKey)
			if lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.logger.Info().Str("order_id", order.ID).Str("user_id", userID).
		Str("total", order.Total.StringFixed(2)).Msg("order created")
	return order, nil
}

func (s *orderServiceImpl) GetOrder(ctx context.Context, userID string, isAdmin bool, orderID string) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, ErrForbidden
	}
	return order, nil
}

func quoteInput(userID string, req *dto.CreateOrderRequest, useWallet bool) pricing.QuoteInput {
	items := make([]pricing.QuoteItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = pricing.QuoteItem{
			ProductID:      it.ProductID,
			VariantID:      it.VariantID,
			Quantity:       it.Quantity,
			Customizations: it.Customizations,
		}
	}
	return pricing.QuoteInput{
		Items:            items,
		Shipping:         shippingInfo(req.Shipping),
		ShippingMethodID: req.ShippingMethodID,
		CouponCode:       req.CouponCode,
		UseWallet:        useWallet,
		UserID:           userID,
	}
}

func shippingInfo(in dto.ShippingInfoRequest) model.ShippingInfo {
	return model.ShippingInfo{
		Name:       in.Name,
		Address:    in.Address,
		City:       in.City,
		Region:     in.Region,
		PostalCode: in.PostalCode,
		Country:    in.Country,
		Phone:      in.Phone,
	}
}

func stockItems(items []pricing.QuotedItem) []stock.Item {
	out := make([]stock.Item, len(items))
	for i, it := range items {
		out[i] = stock.Item{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity}
	}
	return out
}

func orderItems(items []pricing.QuotedItem) []model.OrderItem {
	out := make([]model.OrderItem, len(items))
	for i, it := range items {
		out[i] = model.OrderItem{
			ProductID:      it.ProductID,
			VariantID:      it.VariantID,
			Name:           it.Name,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			LineTotal:      it.LineTotal,
			Digital:        it.Digital,
			Customizations: it.Customizations,
		}
	}
	return out
}
