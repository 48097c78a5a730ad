package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/atelierlakay/art_shop/internal/download"
	"github.com/atelierlakay/art_shop/internal/models"
)

type DownloadHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
	Archiver  *download.Archiver
}

type downloadEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Format      string `json:"format"`
	DownloadURL string `json:"download_url"`
}

var nonWord = regexp.MustCompile(`\W+`)

func fileExt(url string) string {
	idx := strings.LastIndex(url, ".")
	if idx < 0 || idx == len(url)-1 {
		return ""
	}
	return url[idx+1:]
}

// resolveDigital maps every stored format URL of an order's DIGITAL items
// to a downloadable entry. One DIGITAL order item yields exactly
// len(product.Formats) entries.
func (h *DownloadHandler) resolveDigital(sessionID string) ([]downloadEntry, error) {
	var order models.Order
	if err := h.DB.Where("stripe_session_id = ?", sessionID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var items []models.OrderItem
	if err := h.DB.
		Preload("Product").
		Where("order_id = ? AND kind = ?", order.ID, models.VariantDigital).
		Find(&items).Error; err != nil {
		return nil, err
	}

	entries := []downloadEntry{}
	for _, item := range items {
		for _, url := range item.Product.Formats {
			ext := fileExt(url)
			entries = append(entries, downloadEntry{
				ID:          fmt.Sprintf("%d-%s", item.ID, ext),
				Title:       item.Product.Title,
				Format:      ext,
				DownloadURL: url,
			})
		}
	}
	return entries, nil
}

// ListDownloads answers the digital download entries for a completed
// checkout session. Unknown sessions and print-only orders both yield an
// empty list, not an error.
func (h *DownloadHandler) ListDownloads(c echo.Context) error {
	if _, err := GetID(c, h.JWTSecret); err != nil {
		return err
	}

	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusOK, echo.Map{"digital_downloads": []downloadEntry{}})
	}

	entries, err := h.resolveDigital(sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if entries == nil {
		entries = []downloadEntry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"digital_downloads": entries})
}

// ZipDownloads streams all digital assets of one order as a single zip.
func (h *DownloadHandler) ZipDownloads(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing session_id")
	}

	entries, err := h.resolveDigital(sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(entries) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no digital items in this order")
	}

	files := make([]download.Entry, 0, len(entries))
	for _, entry := range entries {
		safeTitle := nonWord.ReplaceAllString(entry.Title, "_")
		files = append(files, download.Entry{
			URL:  entry.DownloadURL,
			Name: safeTitle + "." + entry.Format,
		})
	}

	c.Response().Header().Set(echo.HeaderContentType, "application/zip")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="artwork.zip"`)
	c.Response().WriteHeader(http.StatusOK)

	if err := h.Archiver.Stream(c.Request().Context(), c.Response(), files); err != nil {
		c.Logger().Errorf("zip stream error: %v", err)
		return err
	}
	return nil
}

// IncrementDownloadCount bumps the caller's profile download counter.
func (h *DownloadHandler) IncrementDownloadCount(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	if err := h.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("download_count", gorm.Expr("download_count + 1")).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"download_count": user.DownloadCount})
}
