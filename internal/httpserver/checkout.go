package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service/cart"
	"github.com/Skotchmaster/storefront/internal/service/checkout"
	"github.com/Skotchmaster/storefront/internal/service/token"
)

type CheckoutHandler struct {
	Checkout *checkout.Service
	Cart     *cart.Service
}

type checkoutResponse struct {
	State  *checkout.State `json:"state"`
	Totals cart.Totals     `json:"totals"`
}

// redirectResponse tells the client which step to send the user back to when
// a transition guard fails.
type redirectResponse struct {
	Redirect checkout.Step `json:"redirect"`
}

func (h *CheckoutHandler) EnterStep(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	step := checkout.Step(c.Param("step"))
	switch step {
	case checkout.StepCart, checkout.StepShipping, checkout.StepPayment, checkout.StepConfirmation:
	default:
		return echo.NewHTTPError(http.StatusNotFound, "unknown step")
	}

	st, err := h.Checkout.Enter(ctx, userID, step)
	if err != nil {
		var redirect *checkout.RedirectError
		if errors.As(err, &redirect) {
			return c.JSON(http.StatusConflict, redirectResponse{Redirect: redirect.To})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	totals, err := h.Cart.Totals(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, checkoutResponse{State: st, Totals: totals})
}

func (h *CheckoutHandler) SubmitShipping(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.shipping")

	var form checkout.ShippingForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	st, fieldErrs, err := h.Checkout.SubmitShipping(ctx, userID, form)
	if err != nil {
		var redirect *checkout.RedirectError
		switch {
		case errors.As(err, &redirect):
			return c.JSON(http.StatusConflict, redirectResponse{Redirect: redirect.To})
		case errors.Is(err, checkout.ErrValidation):
			return c.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": fieldErrs})
		}
		l.Error("submit_shipping_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("shipping_saved")
	totals, err := h.Cart.Totals(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, checkoutResponse{State: st, Totals: totals})
}

func (h *CheckoutHandler) SubmitPayment(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.payment")

	var form checkout.PaymentForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	st, fieldErrs, err := h.Checkout.SubmitPayment(ctx, userID, form)
	if err != nil {
		var redirect *checkout.RedirectError
		switch {
		case errors.As(err, &redirect):
			return c.JSON(http.StatusConflict, redirectResponse{Redirect: redirect.To})
		case errors.Is(err, checkout.ErrValidation):
			return c.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": fieldErrs})
		}
		l.Error("submit_payment_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("payment_saved")
	totals, err := h.Cart.Totals(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, checkoutResponse{State: st, Totals: totals})
}
