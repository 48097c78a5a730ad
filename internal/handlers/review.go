package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/atelierlakay/art_shop/internal/models"
)

type ReviewHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
	Validate  *validator.Validate
}

type reviewView struct {
	ID     uint   `json:"id"`
	UserID uint   `json:"user_id"`
	User   string `json:"user"`
	Rating int    `json:"rating"`
	Text   string `json:"text"`
	Date   string `json:"date"`
}

func (h *ReviewHandler) ListReviews(c echo.Context) error {
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var reviews []models.Review
	if err := h.DB.
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	views := make([]reviewView, 0, len(reviews))
	for _, review := range reviews {
		var user models.User
		author := ""
		if err := h.DB.First(&user, review.UserID).Error; err == nil {
			author = user.Name
			if author == "" {
				author = user.Email
			}
		}
		views = append(views, reviewView{
			ID:     review.ID,
			UserID: review.UserID,
			User:   author,
			Rating: review.Rating,
			Text:   review.Comment,
			Date:   review.CreatedAt.Format("2006-01-02"),
		})
	}

	return c.JSON(http.StatusOK, views)
}

func (h *ReviewHandler) CreateReview(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var req struct {
		Rating *int   `json:"rating" validate:"required,min=1,max=5"`
		Text   string `json:"text"   validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.Validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing rating or comment text")
	}

	review := models.Review{
		ProductID: uint(productID),
		UserID:    userID,
		Rating:    *req.Rating,
		Comment:   req.Text,
	}
	if err := h.DB.Create(&review).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var user models.User
	author := ""
	if err := h.DB.First(&user, userID).Error; err == nil {
		author = user.Name
		if author == "" {
			author = user.Email
		}
	}

	return c.JSON(http.StatusOK, reviewView{
		ID:     review.ID,
		UserID: review.UserID,
		User:   author,
		Rating: review.Rating,
		Text:   review.Comment,
		Date:   review.CreatedAt.Format("2006-01-02"),
	})
}

// DeleteReview removes the caller's own review; anyone else's is forbidden.
func (h *ReviewHandler) DeleteReview(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req struct {
		ReviewID uint `json:"review_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ReviewID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "missing review_id")
	}

	var review models.Review
	if err := h.DB.First(&review, req.ReviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusForbidden, "unauthorized or review not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if review.UserID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "unauthorized or review not found")
	}

	if err := h.DB.Delete(&review).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
