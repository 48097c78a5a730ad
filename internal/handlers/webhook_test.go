package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/atelierlakay/art_shop/internal/models"
)

const webhookSecret = "whsec_test"

func signPayload(t *testing.T, payload []byte) string {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func completedSessionEvent(t *testing.T, sessionID string, amountTotal int64, customerID string) []byte {
	t.Helper()
	event := map[string]any{
		"id":     "evt_test",
		"object": "event",
		"type":   "checkout.session.completed",
		"data": map[string]any{
			"object": map[string]any{
				"id":           sessionID,
				"object":       "checkout.session",
				"amount_total": amountTotal,
				"metadata":     map[string]string{"customerId": customerID},
			},
		},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return payload
}

func webhookContext(e *echo.Echo, payload []byte, signature string) (*httptest.ResponseRecorder, echo.Context) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signature)
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

func seedCheckoutCart(t *testing.T, db *gorm.DB, userID uint) models.Cart {
	t.Helper()
	category := models.Category{Name: "Paintings"}
	require.NoError(t, db.Create(&category).Error)
	product := models.Product{
		Title:       "Sunset over Jacmel",
		Description: "original acrylic",
		Price:       9.99,
		CategoryID:  category.ID,
		Formats:     models.StringList{"https://cdn.example.com/art/sunset.png"},
	}
	require.NoError(t, db.Create(&product).Error)

	cart := models.Cart{UserID: userID}
	require.NoError(t, db.Create(&cart).Error)

	digital := models.ProductVariant{ProductID: product.ID, Kind: models.VariantDigital, Format: "png"}
	require.NoError(t, db.Create(&digital).Error)
	printVariant := models.ProductVariant{ProductID: product.ID, Kind: models.VariantPrint, Format: "png", Size: "8x10 in"}
	require.NoError(t, db.Create(&printVariant).Error)

	items := []models.CartItem{
		{CartID: cart.ID, ProductID: product.ID, DigitalVariantID: &digital.ID, Price: 9.99, Quantity: 1},
		{CartID: cart.ID, ProductID: product.ID, PrintVariantID: &printVariant.ID, Price: 19.99, Quantity: 1},
	}
	for i := range items {
		require.NoError(t, db.Create(&items[i]).Error)
	}
	return cart
}

func TestWebhookFinalizesOrder(t *testing.T) {
	db := InitTestDB(t)
	h := &WebhookHandler{DB: db, WebhookSecret: webhookSecret}
	e := echo.New()

	cart := seedCheckoutCart(t, db, 1)
	payload := completedSessionEvent(t, "cs_test_123", 2998, "1")

	rec, c := webhookContext(e, payload, signPayload(t, payload))
	require.NoError(t, h.HandleStripe(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var order models.Order
	require.NoError(t, db.Where("stripe_session_id = ?", "cs_test_123").First(&order).Error)
	require.Equal(t, uint(1), order.UserID)
	require.Equal(t, "COMPLETED", order.Status)
	require.Equal(t, 29.98, order.Total)

	var items []models.OrderItem
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&items).Error)
	require.Len(t, items, 2)

	kinds := map[string]int{}
	for _, item := range items {
		kinds[item.Kind]++
	}
	require.Equal(t, 1, kinds[models.VariantDigital])
	require.Equal(t, 1, kinds[models.VariantPrint])

	var remaining int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("cart_id = ?", cart.ID).Count(&remaining).Error)
	require.Zero(t, remaining)
}

func TestWebhookSplitsDualKindLineItem(t *testing.T) {
	db := InitTestDB(t)
	h := &WebhookHandler{DB: db, WebhookSecret: webhookSecret}
	e := echo.New()

	category := models.Category{Name: "Paintings"}
	require.NoError(t, db.Create(&category).Error)
	product := models.Product{Title: "Market Day", Description: "print", Price: 14.99, CategoryID: category.ID}
	require.NoError(t, db.Create(&product).Error)
	cart := models.Cart{UserID: 1}
	require.NoError(t, db.Create(&cart).Error)
	digital := models.ProductVariant{ProductID: product.ID, Kind: models.VariantDigital, Format: "jpg"}
	require.NoError(t, db.Create(&digital).Error)
	printVariant := models.ProductVariant{ProductID: product.ID, Kind: models.VariantPrint, Format: "jpg", Size: "11x14 in"}
	require.NoError(t, db.Create(&printVariant).Error)
	item := models.CartItem{
		CartID:           cart.ID,
		ProductID:        product.ID,
		DigitalVariantID: &digital.ID,
		PrintVariantID:   &printVariant.ID,
		Price:            24.99,
		Quantity:         1,
	}
	require.NoError(t, db.Create(&item).Error)

	payload := completedSessionEvent(t, "cs_test_dual", 2499, "1")
	_, c := webhookContext(e, payload, signPayload(t, payload))
	require.NoError(t, h.HandleStripe(c))

	var items []models.OrderItem
	require.NoError(t, db.Find(&items).Error)
	require.Len(t, items, 2)
	for _, oi := range items {
		switch oi.Kind {
		case models.VariantDigital:
			require.NotNil(t, oi.DigitalVariantID)
			require.Nil(t, oi.PrintVariantID)
		case models.VariantPrint:
			require.NotNil(t, oi.PrintVariantID)
			require.Nil(t, oi.DigitalVariantID)
		default:
			t.Fatalf("unexpected kind %q", oi.Kind)
		}
	}
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	db := InitTestDB(t)
	h := &WebhookHandler{DB: db, WebhookSecret: webhookSecret}
	e := echo.New()

	seedCheckoutCart(t, db, 1)
	payload := completedSessionEvent(t, "cs_test_replay", 2998, "1")

	for i := 0; i < 2; i++ {
		rec, c := webhookContext(e, payload, signPayload(t, payload))
		require.NoError(t, h.HandleStripe(c))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Where("stripe_session_id = ?", "cs_test_replay").Count(&orders).Error)
	require.Equal(t, int64(1), orders)

	var items int64
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&items).Error)
	require.Equal(t, int64(2), items)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	db := InitTestDB(t)
	h := &WebhookHandler{DB: db, WebhookSecret: webhookSecret}
	e := echo.New()

	payload := completedSessionEvent(t, "cs_test_bad", 100, "1")
	_, c := webhookContext(e, payload, "t=1,v1=deadbeef")
	err := h.HandleStripe(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	require.Zero(t, orders)
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	db := InitTestDB(t)
	h := &WebhookHandler{DB: db, WebhookSecret: webhookSecret}
	e := echo.New()

	event := map[string]any{
		"id":     "evt_other",
		"object": "event",
		"type":   "payment_intent.created",
		"data":   map[string]any{"object": map[string]any{}},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	rec, c := webhookContext(e, payload, signPayload(t, payload))
	require.NoError(t, h.HandleStripe(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	require.Zero(t, orders)
}

func TestWebhookMissingCustomerID(t *testing.T) {
	db := InitTestDB(t)
	h := &WebhookHandler{DB: db, WebhookSecret: webhookSecret}
	e := echo.New()

	event := map[string]any{
		"id":     "evt_nocustomer",
		"object": "event",
		"type":   "checkout.session.completed",
		"data": map[string]any{
			"object": map[string]any{
				"id":           "cs_test_nocustomer",
				"object":       "checkout.session",
				"amount_total": 100,
			},
		},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	_, c := webhookContext(e, payload, signPayload(t, payload))
	err = h.HandleStripe(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestWebhookMissingCart(t *testing.T) {
	db := InitTestDB(t)
	h := &WebhookHandler{DB: db, WebhookSecret: webhookSecret}
	e := echo.New()

	payload := completedSessionEvent(t, "cs_test_nocart", 100, "42")
	_, c := webhookContext(e, payload, signPayload(t, payload))
	err := h.HandleStripe(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusInternalServerError, he.Code)
}
