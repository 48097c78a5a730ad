package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atelierlakay/art_shop/internal/payments"
)

type CheckoutHandler struct {
	Payments  payments.Provider
	JWTSecret []byte
}

type checkoutRequest struct {
	CartProductList []payments.CheckoutItem `json:"cart_product_list"`
}

// CreateSession projects the client-supplied cart snapshot into Stripe
// line items and answers with the session id to redirect into. Every
// attempt re-registers its remote objects; failures leave them inert.
func (h *CheckoutHandler) CreateSession(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}
	customerID := fmt.Sprint(userID)

	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.CartProductList) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "cart_product_list missing or empty")
	}

	ctx := c.Request().Context()
	lines := make([]payments.SessionLine, 0, len(req.CartProductList))
	for _, item := range req.CartProductList {
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		line, err := h.Payments.RegisterLineItem(ctx, customerID, item)
		if err != nil {
			c.Logger().Errorf("checkout registration error: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		lines = append(lines, line)
	}

	sessionID, err := h.Payments.CreateCheckoutSession(ctx, customerID, lines)
	if err != nil {
		c.Logger().Errorf("checkout session error: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"session_id": sessionID})
}
