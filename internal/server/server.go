package server

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/devLudociel/MiEcommerce-sub000/internal/handler"
	"github.com/devLudociel/MiEcommerce-sub000/internal/middleware"
	"github.com/devLudociel/MiEcommerce-sub000/internal/service"
)

type Server struct {
	echo           *echo.Echo
	orderHandler   *handler.OrderHandler
	paymentHandler *handler.PaymentHandler
	jwtSecret      string
}

func NewServer(orderService service.OrderService, jwtSecret string, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(requestLogger(logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	s := &Server{
		echo:           e,
		orderHandler:   handler.NewOrderHandler(orderService),
		paymentHandler: handler.NewPaymentHandler(orderService),
		jwtSecret:      jwtSecret,
	}
	s.setupRoutes()
	return s
}

func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:     true,
		LogMethod:  true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	limiter := echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Skipper: echomw.DefaultSkipper,
		Store: echomw.NewRateLimiterMemoryStoreWithConfig(
			echomw.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(5),
				Burst:     15,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
	})

	orders := api.Group("/orders", limiter, middleware.Auth(s.jwtSecret))
	orders.POST("", s.orderHandler.Create)
	orders.GET("/:id", s.orderHandler.Get)
	orders.POST("/:id/payment-intent", s.paymentHandler.CreateIntent)

	// No rate limiting on webhooks; the processor authenticates via signature.
	api.POST("/payments/webhook", s.paymentHandler.Webhook)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
