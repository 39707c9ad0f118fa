package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/devLudociel/MiEcommerce-sub000/internal/client"
	"github.com/devLudociel/MiEcommerce-sub000/internal/dto"
	"github.com/devLudociel/MiEcommerce-sub000/internal/pricing"
	"github.com/devLudociel/MiEcommerce-sub000/internal/service"
	"github.com/devLudociel/MiEcommerce-sub000/internal/stock"
	"github.com/devLudociel/MiEcommerce-sub000/internal/wallet"
)

// writeError maps core errors onto the external boundary. Internal detail
// never crosses it: clients see a machine-readable code and a generic
// message, plus safe stock-conflict numbers they can act on.
func writeError(c echo.Context, err error) error {
	var pricingErr *pricing.Error
	if errors.As(err, &pricingErr) {
		return c.JSON(http.StatusBadRequest, &dto.ErrorResponse{
			Code:    pricingErr.Code,
			Message: pricingErr.Message,
		})
	}

	var reservationErr *stock.ReservationError
	if errors.As(err, &reservationErr) {
		return c.JSON(http.StatusConflict, &dto.ErrorResponse{
			Code:      reservationErr.Code,
			Message:   "requested quantity is not available",
			ProductID: reservationErr.ProductID,
			Available: reservationErr.Available,
			Requested: reservationErr.Requested,
		})
	}

	var balanceErr *wallet.InsufficientBalanceError
	if errors.As(err, &balanceErr) {
		return c.JSON(http.StatusConflict, &dto.ErrorResponse{
			Code:    "INSUFFICIENT_WALLET_BALANCE",
			Message: "wallet balance is not sufficient",
		})
	}

	switch {
	case errors.Is(err, client.ErrInvalidSignature):
		return c.NoContent(http.StatusBadRequest)
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, &dto.ErrorResponse{
			Code: "FORBIDDEN", Message: "not allowed",
		})
	case errors.Is(err, service.ErrAlreadyPaid):
		return c.JSON(http.StatusConflict, &dto.ErrorResponse{
			Code: "ALREADY_PAID", Message: "order is already paid",
		})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.JSON(http.StatusNotFound, &dto.ErrorResponse{
			Code: "NOT_FOUND", Message: "resource not found",
		})
	case errors.Is(err, service.ErrRetryable):
		return c.JSON(http.StatusServiceUnavailable, &dto.ErrorResponse{
			Code: "TEMPORARY_FAILURE", Message: "please retry",
		})
	}

	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, &dto.ErrorResponse{
		Code: "INTERNAL", Message: "something went wrong",
	})
}
