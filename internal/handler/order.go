package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/devLudociel/MiEcommerce-sub000/internal/dto"
	"github.com/devLudociel/MiEcommerce-sub000/internal/middleware"
	"github.com/devLudociel/MiEcommerce-sub000/internal/service"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	userID, email, _ := middleware.Identity(c)

	var req dto.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, &dto.ErrorResponse{
			Code: "EMPTY_CART", Message: "order must contain at least one item",
		})
	}

	order, err := h.orderService.CreateOrder(ctx, userID, email, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.NewOrderResponse(order))
}

func (h *OrderHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	userID, _, isAdmin := middleware.Identity(c)

	order, err := h.orderService.GetOrder(ctx, userID, isAdmin, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}
