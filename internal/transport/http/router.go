package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/atelierlakay/art_shop/internal/handlers"
	"github.com/atelierlakay/art_shop/internal/handlers/cart"
	"github.com/atelierlakay/art_shop/internal/service"
)

type Deps struct {
	DB              *gorm.DB
	AuthHandler     *handlers.AuthHandler
	ProductHandler  *handlers.ProductHandler
	CartHandler     *cart.CartHandler
	CheckoutHandler *handlers.CheckoutHandler
	WebhookHandler  *handlers.WebhookHandler
	DownloadHandler *handlers.DownloadHandler
	OrderHandler    *handlers.OrderHandler
	FavoriteHandler *handlers.FavoriteHandler
	ReviewHandler   *handlers.ReviewHandler
	SearchHandler   *handlers.SearchHandler
	TokenService    *service.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)
	v1.GET("/search", d.SearchHandler.Search)

	// Stripe calls this on its own schedule; no auth middleware here, the
	// signature check is the gate.
	v1.POST("/webhooks/stripe", d.WebhookHandler.HandleStripe)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.GET("/:id/reviews", d.ReviewHandler.ListReviews)
	products.POST("/:id/reviews", d.ReviewHandler.CreateReview, d.TokenService.AutoRefreshMiddleware)
	products.DELETE("/:id/reviews", d.ReviewHandler.DeleteReview, d.TokenService.AutoRefreshMiddleware)

	admin := v1.Group("/admin", d.TokenService.AutoRefreshMiddlewareAdmin)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)

	cartGroup := v1.Group("/cart", d.TokenService.AutoRefreshMiddleware)
	cartGroup.GET("", d.CartHandler.GetCart)
	cartGroup.POST("", d.CartHandler.AddToCart)
	cartGroup.PATCH("", d.CartHandler.UpdateCartItem)
	cartGroup.DELETE("", d.CartHandler.RemoveFromCart)

	checkout := v1.Group("/checkout", d.TokenService.AutoRefreshMiddleware)
	checkout.POST("", d.CheckoutHandler.CreateSession)

	downloads := v1.Group("/downloads")
	downloads.GET("", d.DownloadHandler.ListDownloads, d.TokenService.AutoRefreshMiddleware)
	downloads.GET("/zip", d.DownloadHandler.ZipDownloads)
	downloads.POST("", d.DownloadHandler.IncrementDownloadCount, d.TokenService.AutoRefreshMiddleware)

	authed := v1.Group("", d.TokenService.AutoRefreshMiddleware)
	authed.GET("/orders", d.OrderHandler.ListOrders)
	authed.GET("/profile", d.OrderHandler.Profile)
	authed.GET("/favorite", d.FavoriteHandler.GetFavorites)
	authed.POST("/favorite", d.FavoriteHandler.AddFavorite)
	authed.DELETE("/favorite", d.FavoriteHandler.DeleteFavorite)
}
