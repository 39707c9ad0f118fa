package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/devLudociel/MiEcommerce-sub000/internal/middleware"
	"github.com/devLudociel/MiEcommerce-sub000/internal/service"
)

const signatureHeader = "X-Webhook-Signature"

type PaymentHandler struct {
	orderService service.OrderService
}

func NewPaymentHandler(orderService service.OrderService) *PaymentHandler {
	return &PaymentHandler{orderService: orderService}
}

func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	ctx := c.Request().Context()
	userID, _, _ := middleware.Identity(c)

	resp, err := h.orderService.CreatePaymentIntent(ctx, userID, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Webhook answers 200 on every acknowledged branch, 400 on a bad signature
// and 5xx only for transient failures the processor should redeliver.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	if err := h.orderService.HandleWebhook(ctx, body, c.Request().Header.Get(signatureHeader)); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusOK)
}
