package cart

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/atelierlakay/art_shop/internal/models"
	"github.com/atelierlakay/art_shop/internal/mykafka"
)

type CartHandler struct {
	DB        *gorm.DB
	Producer  *mykafka.Producer
	JWTSecret []byte
	Validate  *validator.Validate
}

// GetCart lists the caller's cart. With product_id plus a variant id in the
// query it becomes an existence check answering {"in_cart": bool}.
func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	productID := parseUintParam(c.QueryParam("product_id"))
	digitalID := parseUintParam(c.QueryParam("digital_variant_id"))
	printID := parseUintParam(c.QueryParam("print_variant_id"))

	if productID != 0 && (digitalID != 0 || printID != 0) {
		return h.checkInCart(c, userID, productID, digitalID, printID)
	}

	var cart models.Cart
	if err := h.DB.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusOK, []models.CartItem{})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var items []models.CartItem
	if err := h.DB.
		Preload("Product").
		Preload("DigitalVariant").
		Preload("PrintVariant").
		Where("cart_id = ?", cart.ID).
		Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, items)
}

func (h *CartHandler) checkInCart(c echo.Context, userID, productID, digitalID, printID uint) error {
	var cart models.Cart
	if err := h.DB.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"in_cart": false})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	query := h.DB.Where("cart_id = ? AND product_id = ?", cart.ID, productID)
	if digitalID != 0 {
		query = query.Where("digital_variant_id = ?", digitalID)
	}
	if printID != 0 {
		query = query.Where("print_variant_id = ?", printID)
	}

	var item models.CartItem
	if err := query.First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"in_cart": false})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"in_cart": true})
}

type addToCartRequest struct {
	ProductID uint     `json:"product_id" validate:"required"`
	Digital   bool     `json:"digital"`
	Print     bool     `json:"print"`
	Price     *float64 `json:"price"      validate:"required"`
	Quantity  uint     `json:"quantity"`
	Format    string   `json:"format"`
	Size      string   `json:"size"`
	Material  string   `json:"material"`
	Frame     string   `json:"frame"`
}

// AddToCart mints one fresh variant per requested kind and creates a line
// item pointing at them. Variants are never deduplicated against existing
// rows; each add owns its own.
func (h *CartHandler) AddToCart(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req addToCartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.Validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing required fields")
	}
	if !req.Digital && !req.Print {
		return echo.NewHTTPError(http.StatusBadRequest, "missing required fields")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}
	if req.Format == "" {
		req.Format = "png"
	}

	var item models.CartItem
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Where(models.Cart{UserID: userID}).FirstOrCreate(&cart).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		item = models.CartItem{
			CartID:    cart.ID,
			ProductID: req.ProductID,
			Price:     *req.Price,
			Quantity:  req.Quantity,
		}

		if req.Digital {
			variant := models.ProductVariant{
				ProductID: req.ProductID,
				Kind:      models.VariantDigital,
				Format:    req.Format,
			}
			if err := tx.Create(&variant).Error; err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			item.DigitalVariantID = &variant.ID
		}
		if req.Print {
			variant := models.ProductVariant{
				ProductID: req.ProductID,
				Kind:      models.VariantPrint,
				Format:    req.Format,
				Size:      req.Size,
				Material:  req.Material,
				Frame:     req.Frame,
			}
			if err := tx.Create(&variant).Error; err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			item.PrintVariantID = &variant.ID
		}

		if err := tx.Create(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return nil
	})
	if txErr != nil {
		return txErr
	}

	h.publish(c, map[string]any{
		"type":        "cart_item_added",
		"userID":      userID,
		"productID":   req.ProductID,
		"cartItemID":  item.ID,
		"digitalID":   item.DigitalVariantID,
		"printID":     item.PrintVariantID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message": "item added with new variant",
		"item":    item,
	})
}

type variantAttrs struct {
	Format   *string `json:"format"`
	Size     *string `json:"size"`
	Material *string `json:"material"`
	Frame    *string `json:"frame"`
}

// variantPatch is a tagged option: either Create is true and a new variant
// is minted from Attributes, or ID names an existing variant to patch in
// place. Exactly one of the two is expected.
type variantPatch struct {
	Create     bool         `json:"create"`
	ID         uint         `json:"id"`
	Attributes variantAttrs `json:"attributes"`
}

type updateCartRequest struct {
	ProductID uint          `json:"product_id" validate:"required"`
	Digital   *variantPatch `json:"digital"`
	Print     *variantPatch `json:"print"`
}

// UpdateCartItem rewires or mutates the variants of the caller's line item
// for a product. Variants are owned 1:1 by the line item that minted them,
// so patching one in place cannot leak into other carts.
func (h *CartHandler) UpdateCartItem(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req updateCartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.Validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing required fields")
	}
	if req.Digital == nil && req.Print == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no variant to update")
	}
	for _, patch := range []*variantPatch{req.Digital, req.Print} {
		if patch != nil && !patch.Create && patch.ID == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "variant patch needs create or id")
		}
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "cart not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		var item models.CartItem
		if err := tx.Where("cart_id = ? AND product_id = ?", cart.ID, req.ProductID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "product not found in cart")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		if req.Digital != nil {
			if err := h.applyVariantPatch(tx, &item, req.Digital, models.VariantDigital); err != nil {
				return err
			}
		}
		if req.Print != nil {
			if err := h.applyVariantPatch(tx, &item, req.Print, models.VariantPrint); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return txErr
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_updated",
		"userID":    userID,
		"productID": req.ProductID,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "cart item updated"})
}

func (h *CartHandler) applyVariantPatch(tx *gorm.DB, item *models.CartItem, patch *variantPatch, kind string) error {
	column := "digital_variant_id"
	if kind == models.VariantPrint {
		column = "print_variant_id"
	}

	if patch.Create {
		variant := models.ProductVariant{
			ProductID: item.ProductID,
			Kind:      kind,
		}
		if patch.Attributes.Format != nil {
			variant.Format = *patch.Attributes.Format
		} else {
			variant.Format = "jpg"
		}
		if kind == models.VariantPrint {
			if patch.Attributes.Size != nil {
				variant.Size = *patch.Attributes.Size
			}
			if patch.Attributes.Material != nil {
				variant.Material = *patch.Attributes.Material
			}
			if patch.Attributes.Frame != nil {
				variant.Frame = *patch.Attributes.Frame
			}
		}
		if err := tx.Create(&variant).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if err := tx.Model(item).Update(column, variant.ID).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return nil
	}

	var variant models.ProductVariant
	if err := tx.First(&variant, patch.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusForbidden, "invalid variant")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	// A syntactically valid id pointing at another product is a forbidden
	// cross-product reference, not a not-found.
	if variant.ProductID != item.ProductID {
		return echo.NewHTTPError(http.StatusForbidden, "invalid variant")
	}

	updates := map[string]interface{}{}
	if patch.Attributes.Format != nil {
		updates["format"] = *patch.Attributes.Format
	}
	if kind == models.VariantPrint {
		if patch.Attributes.Size != nil {
			updates["size"] = *patch.Attributes.Size
		}
		if patch.Attributes.Material != nil {
			updates["material"] = *patch.Attributes.Material
		}
		if patch.Attributes.Frame != nil {
			updates["frame"] = *patch.Attributes.Frame
		}
	}
	if len(updates) == 0 {
		return nil
	}
	if err := tx.Model(&variant).Updates(updates).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return nil
}

type removeFromCartRequest struct {
	ProductID        uint  `json:"product_id" validate:"required"`
	DigitalVariantID *uint `json:"digital_variant_id"`
	PrintVariantID   *uint `json:"print_variant_id"`
}

// RemoveFromCart deletes matching line items together with the variant rows
// they minted. Variants are per-item, never shared, so the cascade cannot
// touch anyone else's data.
func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req removeFromCartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.Validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing required field: product_id")
	}

	var removedItems, removedVariants int
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "cart not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		query := tx.Where("cart_id = ? AND product_id = ?", cart.ID, req.ProductID)
		if req.DigitalVariantID != nil {
			query = query.Where("digital_variant_id = ?", *req.DigitalVariantID)
		}
		if req.PrintVariantID != nil {
			query = query.Where("print_variant_id = ?", *req.PrintVariantID)
		}

		var items []models.CartItem
		if err := query.Find(&items).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if len(items) == 0 {
			return nil
		}

		itemIDs := make([]uint, 0, len(items))
		variantIDs := make([]uint, 0, 2*len(items))
		for _, it := range items {
			itemIDs = append(itemIDs, it.ID)
			if it.DigitalVariantID != nil {
				variantIDs = append(variantIDs, *it.DigitalVariantID)
			}
			if it.PrintVariantID != nil {
				variantIDs = append(variantIDs, *it.PrintVariantID)
			}
		}

		if err := tx.Delete(&models.CartItem{}, itemIDs).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if len(variantIDs) > 0 {
			if err := tx.Delete(&models.ProductVariant{}, variantIDs).Error; err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		removedItems = len(itemIDs)
		removedVariants = len(variantIDs)
		return nil
	})
	if txErr != nil {
		return txErr
	}

	if removedItems == 0 {
		return c.JSON(http.StatusOK, echo.Map{"message": "nothing to remove"})
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_removed",
		"userID":    userID,
		"productID": req.ProductID,
		"items":     removedItems,
		"variants":  removedVariants,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message":          "removed",
		"removed_items":    removedItems,
		"removed_variants": removedVariants,
	})
}
