package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/devLudociel/MiEcommerce-sub000/internal/client"
	"github.com/devLudociel/MiEcommerce-sub000/internal/dto"
	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
	"github.com/devLudociel/MiEcommerce-sub000/internal/pricing"
	"github.com/devLudociel/MiEcommerce-sub000/internal/repository"
	"github.com/devLudociel/MiEcommerce-sub000/internal/stock"
	"github.com/devLudociel/MiEcommerce-sub000/internal/wallet"
)

type chargeCall struct {
	amount   int64
	currency string
	metadata map[string]string
}

// fakePaymentClient stands in for the processor API. VerifyWebhook hands back
// whatever event the test queued, since signature checking has its own tests.
type fakePaymentClient struct {
	charges      []chargeCall
	chargeErr    error
	nextChargeID string

	verifyEvent *client.Event
	verifyErr   error
}

func (f *fakePaymentClient) CreateCharge(_ context.Context, amount int64, currency string, metadata map[string]string) (*client.Charge, error) {
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	f.charges = append(f.charges, chargeCall{amount: amount, currency: currency, metadata: metadata})
	id := f.nextChargeID
	if id == "" {
		id = fmt.Sprintf("pi_%d", len(f.charges))
	}
	return &client.Charge{
		ID:           id,
		Amount:       amount,
		Currency:     currency,
		Status:       "requires_payment_method",
		ClientSecret: id + "_secret",
		Metadata:     metadata,
	}, nil
}

func (f *fakePaymentClient) RetrieveCharge(_ context.Context, chargeID string) (*client.Charge, error) {
	return &client.Charge{ID: chargeID}, nil
}

func (f *fakePaymentClient) VerifyWebhook([]byte, string) (*client.Event, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verifyEvent, nil
}

type sentNotification struct {
	kind    string
	orderID string
}

type fakeNotifier struct {
	sent []sentNotification
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, kind, orderID string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentNotification{kind: kind, orderID: orderID})
	return nil
}

type fixture struct {
	db           *gorm.DB
	svc          OrderService
	payment      *fakePaymentClient
	notifier     *fakeNotifier
	engine       *pricing.Engine
	orderRepo    repository.OrderRepository
	couponRepo   repository.CouponRepository
	walletLedger *wallet.Ledger
	stockLedger  *stock.Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Product{}, &model.Order{}, &model.Coupon{}, &model.CouponUsage{},
		&model.BundleDiscount{}, &model.Wallet{}, &model.WalletTransaction{},
		&model.ShippingZone{}, &model.ShippingMethod{}, &model.DigitalAccess{},
		&model.User{}, &model.WebhookEvent{},
	))

	// every fixture ships from the same zone
	require.NoError(t, db.Create(&model.ShippingZone{ID: 1, Name: "Peninsula", Regions: []string{"Madrid"}, Active: true}).Error)
	require.NoError(t, db.Create(&model.ShippingMethod{ID: 1, ZoneID: 1, Name: "Standard", Cost: dec("4.95"), Active: true}).Error)

	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	walletLedger := wallet.NewLedger(db)
	stockLedger := stock.NewLedger(db)

	engine := pricing.NewEngine(
		productRepo,
		couponRepo,
		repository.NewBundleRepository(db),
		repository.NewShippingRepository(db),
		walletLedger,
		repository.NewUserRepository(db),
		pricing.EngineConfig{
			Currency:              "eur",
			TaxRate:               dec("0.21"),
			FreeShippingThreshold: dec("50"),
		},
	)

	payment := &fakePaymentClient{}
	notifier := &fakeNotifier{}

	svc := NewOrderService(
		engine, stockLedger, walletLedger,
		orderRepo, productRepo, couponRepo,
		repository.NewWebhookEventRepository(db),
		repository.NewDigitalAccessRepository(db),
		payment, notifier, zerolog.Nop(),
		"eur", dec("5"),
	)

	return &fixture{
		db:           db,
		svc:          svc,
		payment:      payment,
		notifier:     notifier,
		engine:       engine,
		orderRepo:    orderRepo,
		couponRepo:   couponRepo,
		walletLedger: walletLedger,
		stockLedger:  stockLedger,
	}
}

// serviceWithOrderRepo rebuilds the service around a substituted order
// repository, sharing everything else with the fixture.
func (f *fixture) serviceWithOrderRepo(repo repository.OrderRepository) OrderService {
	return NewOrderService(
		f.engine, f.stockLedger, f.walletLedger,
		repo, repository.NewProductRepository(f.db), f.couponRepo,
		repository.NewWebhookEventRepository(f.db),
		repository.NewDigitalAccessRepository(f.db),
		f.payment, f.notifier, zerolog.Nop(),
		"eur", dec("5"),
	)
}

func (f *fixture) seedProduct(t *testing.T, p *model.Product) {
	t.Helper()
	require.NoError(t, f.db.Create(p).Error)
}

func (f *fixture) seedWallet(t *testing.T, userID, balance string) {
	t.Helper()
	require.NoError(t, f.db.Create(&model.Wallet{
		UserID:          userID,
		Balance:         dec(balance),
		ReservedBalance: decimal.Zero,
		TotalEarned:     decimal.Zero,
		TotalSpent:      decimal.Zero,
	}).Error)
}

func (f *fixture) wallet(t *testing.T, userID string) *model.Wallet {
	t.Helper()
	var w model.Wallet
	require.NoError(t, f.db.First(&w, "user_id = ?", userID).Error)
	return &w
}

func (f *fixture) product(t *testing.T, id string) *model.Product {
	t.Helper()
	var p model.Product
	require.NoError(t, f.db.First(&p, "id = ?", id).Error)
	return &p
}

func (f *fixture) order(t *testing.T, id string) *model.Order {
	t.Helper()
	var o model.Order
	require.NoError(t, f.db.First(&o, "id = ?", id).Error)
	return &o
}

func (f *fixture) orderDeleted(t *testing.T, id string) bool {
	t.Helper()
	err := f.db.First(&model.Order{}, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true
	}
	require.NoError(t, err)
	return false
}

func (f *fixture) eventProcessed(t *testing.T, eventID string) bool {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.WebhookEvent{}).Where("event_id = ?", eventID).Count(&n).Error)
	return n > 0
}

// createPendingOrder drives the public flow up to a persisted pending order.
func (f *fixture) createPendingOrder(t *testing.T, userID string, req *dto.CreateOrderRequest) *model.Order {
	t.Helper()
	order, err := f.svc.CreateOrder(context.Background(), userID, "buyer@example.com", req)
	require.NoError(t, err)
	return order
}

func teeOrderRequest(quantity int) *dto.CreateOrderRequest {
	return &dto.CreateOrderRequest{
		Items:            []dto.OrderItemRequest{{ProductID: "tee", Quantity: quantity}},
		Shipping:         dto.ShippingInfoRequest{Name: "Ana", Address: "Calle Mayor 1", City: "Madrid", Region: "Madrid", PostalCode: "28001", Country: "ES"},
		ShippingMethodID: 1,
	}
}

func succeededEvent(eventID string, order *model.Order) *client.Event {
	return paymentEvent(eventID, client.EventPaymentSucceeded, order.PaymentRef, order.TotalMinorUnits(), order.Currency, order.ID)
}

func paymentEvent(eventID, eventType, chargeID string, amount int64, currency, orderID string) *client.Event {
	e := &client.Event{ID: eventID, Type: eventType}
	e.Data.Object = client.Charge{
		ID:       chargeID,
		Amount:   amount,
		Currency: currency,
		Metadata: map[string]string{"order_id": orderID},
	}
	return e
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
