package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/atelierlakay/art_shop/internal/models"
	"github.com/atelierlakay/art_shop/internal/mykafka"
	"github.com/atelierlakay/art_shop/internal/util"
)

type ProductHandler struct {
	DB        *gorm.DB
	Producer  *mykafka.Producer
	JWTSecret []byte
	Validate  *validator.Validate
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.Product{}).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var items []models.Product
	if err := h.DB.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

type productVariantView struct {
	models.ProductVariant
	InUserCart bool `json:"in_user_cart"`
}

// GetProduct answers a product with its variants and reviews. A signed-in
// caller also learns which of the variants sit in their own cart.
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	var variants []models.ProductVariant
	if err := h.DB.Where("product_id = ?", id).Find(&variants).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	var reviews []models.Review
	if err := h.DB.Where("product_id = ?", id).Find(&reviews).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	inCart := map[uint]bool{}
	if userID, err := GetID(c, h.JWTSecret); err == nil {
		var cart models.Cart
		if err := h.DB.Where("user_id = ?", userID).First(&cart).Error; err == nil {
			var items []models.CartItem
			if err := h.DB.Where("cart_id = ? AND product_id = ?", cart.ID, id).Find(&items).Error; err == nil {
				for _, item := range items {
					if item.DigitalVariantID != nil {
						inCart[*item.DigitalVariantID] = true
					}
					if item.PrintVariantID != nil {
						inCart[*item.PrintVariantID] = true
					}
				}
			}
		}
	}

	variantViews := make([]productVariantView, 0, len(variants))
	for _, v := range variants {
		variantViews = append(variantViews, productVariantView{
			ProductVariant: v,
			InUserCart:     inCart[v.ID],
		})
	}

	imageURL := "/placeholder.png"
	if len(product.Thumbnails) > 0 {
		imageURL = product.Thumbnails[0]
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":          product.ID,
		"category":    product.CategoryID,
		"title":       product.Title,
		"description": product.Description,
		"price":       product.Price,
		"image_url":   imageURL,
		"thumbnails":  product.Thumbnails,
		"formats":     product.Formats,
		"variants":    variantViews,
		"reviews":     reviews,
	})
}

type createProductRequest struct {
	Category    string   `json:"category"    validate:"required"`
	Title       string   `json:"title"       validate:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price"       validate:"required"`
	PublicID    string   `json:"public_id"`
	Thumbnails  []string `json:"thumbnails"`
	Formats     []string `json:"formats"`
}

// CreateProduct upserts the named category lazily, then creates the
// product under it.
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req createProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.Validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing required fields")
	}

	var product models.Product
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.Where(models.Category{Name: req.Category}).FirstOrCreate(&category).Error; err != nil {
			return err
		}

		product = models.Product{
			Title:       req.Title,
			Description: req.Description,
			Price:       req.Price,
			CategoryID:  category.ID,
			PublicID:    req.PublicID,
			Thumbnails:  models.StringList(req.Thumbnails),
			Formats:     models.StringList(req.Formats),
		}
		return tx.Create(&product).Error
	})
	if txErr != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": product.ID,
		"title":     product.Title,
	})

	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var req struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Price       *float64 `json:"price"`
		Thumbnails  []string `json:"thumbnails"`
		Formats     []string `json:"formats"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	if req.Title != nil {
		product.Title = *req.Title
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Thumbnails != nil {
		product.Thumbnails = models.StringList(req.Thumbnails)
	}
	if req.Formats != nil {
		product.Formats = models.StringList(req.Formats)
	}

	if err := h.DB.Save(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": product.ID,
		"title":     product.Title,
	})

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	if err := h.DB.Delete(&models.Product{}, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})

	return c.NoContent(http.StatusNoContent)
}
