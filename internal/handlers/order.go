package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/atelierlakay/art_shop/internal/models"
)

type OrderHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
}

type orderItemView struct {
	ID               uint           `json:"id"`
	OrderID          uint           `json:"order_id"`
	StripeSessionID  string         `json:"stripe_session_id"`
	Kind             string         `json:"kind"`
	Price            float64        `json:"price"`
	Quantity         uint           `json:"quantity"`
	DigitalVariantID *uint          `json:"digital_variant_id,omitempty"`
	PrintVariantID   *uint          `json:"print_variant_id,omitempty"`
	Product          models.Product `json:"product"`
}

// ListOrders returns the caller's order items grouped by placement date
// (YYYY-MM-DD), newest first. The type filter narrows to one variant kind.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	kind := c.QueryParam("type")

	query := h.DB.
		Preload("Order").
		Preload("Product").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ?", userID).
		Order("orders.placed_at DESC")
	if kind == models.VariantDigital || kind == models.VariantPrint {
		query = query.Where("order_items.kind = ?", kind)
	}

	var items []models.OrderItem
	if err := query.Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	grouped := map[string][]orderItemView{}
	for _, item := range items {
		date := item.Order.PlacedAt.Format("2006-01-02")
		grouped[date] = append(grouped[date], orderItemView{
			ID:               item.ID,
			OrderID:          item.OrderID,
			StripeSessionID:  item.Order.StripeSessionID,
			Kind:             item.Kind,
			Price:            item.Price,
			Quantity:         item.Quantity,
			DigitalVariantID: item.DigitalVariantID,
			PrintVariantID:   item.PrintVariantID,
			Product:          item.Product,
		})
	}

	return c.JSON(http.StatusOK, grouped)
}

// Profile answers the dashboard header: identity plus order, favorite and
// download counts.
func (h *OrderHandler) Profile(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}

	var orderCount, favoriteCount int64
	if err := h.DB.Model(&models.Order{}).Where("user_id = ?", userID).Count(&orderCount).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.DB.Model(&models.Favorite{}).Where("user_id = ?", userID).Count(&favoriteCount).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":           user,
		"order_count":    orderCount,
		"favorite_count": favoriteCount,
		"download_count": user.DownloadCount,
	})
}
