package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/devLudociel/MiEcommerce-sub000/internal/client"
	"github.com/devLudociel/MiEcommerce-sub000/internal/config"
	"github.com/devLudociel/MiEcommerce-sub000/internal/notify"
	"github.com/devLudociel/MiEcommerce-sub000/internal/pricing"
	"github.com/devLudociel/MiEcommerce-sub000/internal/repository"
	"github.com/devLudociel/MiEcommerce-sub000/internal/server"
	"github.com/devLudociel/MiEcommerce-sub000/internal/service"
	"github.com/devLudociel/MiEcommerce-sub000/internal/stock"
	"github.com/devLudociel/MiEcommerce-sub000/internal/wallet"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)

	db, err := client.InitDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database init failed")
	}
	paymentClient := client.NewPaymentClient(&cfg.Payment)

	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	bundleRepo := repository.NewBundleRepository(db)
	shippingRepo := repository.NewShippingRepository(db)
	userRepo := repository.NewUserRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)
	digitalRepo := repository.NewDigitalAccessRepository(db)

	stockLedger := stock.NewLedger(db)
	walletLedger := wallet.NewLedger(db)

	engine := pricing.NewEngine(
		productRepo,
		couponRepo,
		bundleRepo,
		shippingRepo,
		walletLedger,
		userRepo,
		pricing.EngineConfig{
			Currency:              cfg.Checkout.Currency,
			TaxRate:               decimal.NewFromFloat(cfg.Checkout.TaxRate),
			FreeShippingThreshold: decimal.NewFromFloat(cfg.Checkout.FreeShippingThreshold),
		},
	)

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Kafka.Enabled {
		kafkaNotifier := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	}

	orderService := service.NewOrderService(
		engine,
		stockLedger,
		walletLedger,
		orderRepo,
		productRepo,
		couponRepo,
		webhookEventRepo,
		digitalRepo,
		paymentClient,
		notifier,
		logger,
		cfg.Checkout.Currency,
		decimal.NewFromFloat(cfg.Checkout.CashbackPercent),
	)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	srv := server.NewServer(orderService, cfg.JWTSecret, logger)

	logger.Info().Str("addr", serverAddr).Str("env", cfg.Environment.Name).Msg("starting HTTP server")
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	logger.Info().Msg("signal received, starting graceful shutdown")

	if err := srv.Shutdown(); err != nil {
		logger.Fatal().Err(err).Msg("HTTP server shutdown error")
	}
}

func newLogger(cfg config.Log) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = os.Stdout
	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if cfg.Format == "console" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out})
	}
	return logger
}
