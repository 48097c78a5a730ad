package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/atelierlakay/art_shop/internal/models"
)

func seedReviewer(t *testing.T, db *gorm.DB, name, email string) models.User {
	t.Helper()
	user := models.User{Email: email, Name: name, PasswordHash: "x", Role: "user"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestCreateReview(t *testing.T) {
	db := InitTestDB(t)
	h := &ReviewHandler{DB: db, JWTSecret: testSecret, Validate: newValidate()}
	e := echo.New()

	user := seedReviewer(t, db, "Ana", "ana@example.com")
	product := seedFavProduct(t, db, "Harbor at Dusk")

	body := map[string]any{"rating": 5, "text": "stunning colors"}
	rec, c := doJSONRequest(t, e, http.MethodPost, "/api/v1/products/1/reviews", body, accessCookie(t, user.ID))
	c.SetParamNames("id")
	c.SetParamValues(itoaUint(product.ID))
	require.NoError(t, h.CreateReview(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var view reviewView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "Ana", view.User)
	require.Equal(t, 5, view.Rating)
	require.Equal(t, "stunning colors", view.Text)
}

func TestCreateReviewRejectsOutOfRangeRating(t *testing.T) {
	db := InitTestDB(t)
	h := &ReviewHandler{DB: db, JWTSecret: testSecret, Validate: newValidate()}
	e := echo.New()

	user := seedReviewer(t, db, "Ana", "ana@example.com")
	product := seedFavProduct(t, db, "Harbor at Dusk")

	for _, rating := range []int{0, 6} {
		body := map[string]any{"rating": rating, "text": "bad rating"}
		_, c := doJSONRequest(t, e, http.MethodPost, "/api/v1/products/1/reviews", body, accessCookie(t, user.ID))
		c.SetParamNames("id")
		c.SetParamValues(itoaUint(product.ID))
		err := h.CreateReview(c)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		require.Equal(t, http.StatusBadRequest, he.Code)
	}
}

func TestCreateReviewRequiresText(t *testing.T) {
	db := InitTestDB(t)
	h := &ReviewHandler{DB: db, JWTSecret: testSecret, Validate: newValidate()}
	e := echo.New()

	user := seedReviewer(t, db, "Ana", "ana@example.com")
	product := seedFavProduct(t, db, "Harbor at Dusk")

	_, c := doJSONRequest(t, e, http.MethodPost, "/api/v1/products/1/reviews", map[string]any{"rating": 4}, accessCookie(t, user.ID))
	c.SetParamNames("id")
	c.SetParamValues(itoaUint(product.ID))
	err := h.CreateReview(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestListReviewsFallsBackToEmail(t *testing.T) {
	db := InitTestDB(t)
	h := &ReviewHandler{DB: db, JWTSecret: testSecret, Validate: newValidate()}
	e := echo.New()

	user := seedReviewer(t, db, "", "anon@example.com")
	product := seedFavProduct(t, db, "Harbor at Dusk")
	require.NoError(t, db.Create(&models.Review{ProductID: product.ID, UserID: user.ID, Rating: 3, Comment: "fine"}).Error)

	rec, c := doJSONRequest(t, e, http.MethodGet, "/api/v1/products/1/reviews", nil)
	c.SetParamNames("id")
	c.SetParamValues(itoaUint(product.ID))
	require.NoError(t, h.ListReviews(c))

	var views []reviewView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	require.Equal(t, "anon@example.com", views[0].User)
}

func TestDeleteReviewOwnOnly(t *testing.T) {
	db := InitTestDB(t)
	h := &ReviewHandler{DB: db, JWTSecret: testSecret, Validate: newValidate()}
	e := echo.New()

	owner := seedReviewer(t, db, "Ana", "ana@example.com")
	stranger := seedReviewer(t, db, "Bo", "bo@example.com")
	product := seedFavProduct(t, db, "Harbor at Dusk")
	review := models.Review{ProductID: product.ID, UserID: owner.ID, Rating: 4, Comment: "good"}
	require.NoError(t, db.Create(&review).Error)

	_, c := doJSONRequest(t, e, http.MethodDelete, "/api/v1/reviews", map[string]any{"review_id": review.ID}, accessCookie(t, stranger.ID))
	err := h.DeleteReview(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusForbidden, he.Code)

	rec, c := doJSONRequest(t, e, http.MethodDelete, "/api/v1/reviews", map[string]any{"review_id": review.ID}, accessCookie(t, owner.ID))
	require.NoError(t, h.DeleteReview(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, db.Model(&models.Review{}).Count(&count).Error)
	require.Zero(t, count)
}
