package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
	"gorm.io/gorm"

	"github.com/atelierlakay/art_shop/internal/models"
	"github.com/atelierlakay/art_shop/internal/mykafka"
)

type WebhookHandler struct {
	DB            *gorm.DB
	WebhookSecret string
	Producer      *mykafka.Producer
}

// HandleStripe finalizes a paid checkout session: it copies the cart's line
// items into immutable order items and drains the cart. Stripe retries on
// any non-2xx, so the whole mutation runs in one transaction keyed on the
// session id; a replayed event finds the existing order and acks without
// writing.
func (h *WebhookHandler) HandleStripe(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read body")
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.Request().Header.Get("Stripe-Signature"),
		h.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		c.Logger().Errorf("webhook signature verification failed: %v", err)
		return echo.NewHTTPError(http.StatusBadRequest, "webhook signature verification failed")
	}

	if event.Type != "checkout.session.completed" {
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed session payload")
	}

	customerRaw, ok := session.Metadata["customerId"]
	if !ok || customerRaw == "" {
		c.Logger().Error("missing customerId in session metadata")
		return echo.NewHTTPError(http.StatusBadRequest, "missing customerId")
	}
	customerID, err := strconv.ParseUint(customerRaw, 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid customerId")
	}
	userID := uint(customerID)

	var order models.Order
	replayed := false
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("stripe_session_id = ?", session.ID).First(&order).Error
		if err == nil {
			replayed = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("order lookup: %w", err)
		}

		var cart models.Cart
		if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			return fmt.Errorf("cart not found for user %d: %w", userID, err)
		}

		var items []models.CartItem
		if err := tx.Where("cart_id = ?", cart.ID).Find(&items).Error; err != nil {
			return fmt.Errorf("cart items: %w", err)
		}

		order = models.Order{
			UserID:          userID,
			Total:           float64(session.AmountTotal) / 100,
			Status:          "COMPLETED",
			StripeSessionID: session.ID,
			PlacedAt:        time.Now(),
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		// A line item carrying both variants becomes two order items, one
		// per kind, so downloads and order history stay single-kind.
		for _, item := range items {
			if item.DigitalVariantID != nil {
				oi := models.OrderItem{
					OrderID:          order.ID,
					ProductID:        item.ProductID,
					Kind:             models.VariantDigital,
					Price:            item.Price,
					Quantity:         item.Quantity,
					DigitalVariantID: item.DigitalVariantID,
				}
				if err := tx.Create(&oi).Error; err != nil {
					return fmt.Errorf("create order item: %w", err)
				}
			}
			if item.PrintVariantID != nil {
				oi := models.OrderItem{
					OrderID:        order.ID,
					ProductID:      item.ProductID,
					Kind:           models.VariantPrint,
					Price:          item.Price,
					Quantity:       item.Quantity,
					PrintVariantID: item.PrintVariantID,
				}
				if err := tx.Create(&oi).Error; err != nil {
					return fmt.Errorf("create order item: %w", err)
				}
			}
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("drain cart: %w", err)
		}
		return nil
	})
	if txErr != nil {
		c.Logger().Errorf("webhook processing error: %v", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "order processing failed")
	}

	if !replayed {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		evt := map[string]interface{}{
			"type":    "order_finalized",
			"userID":  userID,
			"orderID": order.ID,
			"total":   order.Total,
		}
		if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(userID), evt); err != nil {
			c.Logger().Errorf("Kafka publish error: %v", err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
