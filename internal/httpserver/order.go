package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service/order"
	"github.com/Skotchmaster/storefront/internal/service/token"
)

type OrderHandler struct {
	Orders *order.Service
}

// Confirm runs the order processor for the authenticated user's checkout.
func (h *OrderHandler) Confirm(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.confirm")

	placed, err := h.Orders.ProcessOrder(ctx, userID)
	if err != nil {
		if errors.Is(err, order.ErrPrecondition) {
			l.Warn("confirm_rejected", "reason", err)
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		l.Error("confirm_error", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "order could not be processed")
	}

	l.Info("order_placed", "order_id", placed.Order.ID, "total", placed.Order.Total)
	return c.JSON(http.StatusCreated, placed)
}

func (h *OrderHandler) History(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	entries, err := h.Orders.History(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, entries)
}

// Track is public: the order id + email pair is the credential. A missing
// order and a non-matching email both come back as the same 404.
func (h *OrderHandler) Track(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.track")

	var req struct {
		OrderID string `json:"order_id"`
		Email   string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.OrderID == "" || req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "order_id and email are required")
	}

	tracked, err := h.Orders.Track(ctx, req.OrderID, req.Email)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no order found with the provided information")
		}
		l.Error("track_error", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "tracking lookup failed")
	}

	return c.JSON(http.StatusOK, tracked)
}
