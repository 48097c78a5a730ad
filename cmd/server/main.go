package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/atelierlakay/art_shop/internal/config"
	"github.com/atelierlakay/art_shop/internal/download"
	"github.com/atelierlakay/art_shop/internal/es"
	"github.com/atelierlakay/art_shop/internal/handlers"
	"github.com/atelierlakay/art_shop/internal/handlers/cart"
	"github.com/atelierlakay/art_shop/internal/logging"
	"github.com/atelierlakay/art_shop/internal/mykafka"
	"github.com/atelierlakay/art_shop/internal/payments"
	"github.com/atelierlakay/art_shop/internal/service"
	httpserver "github.com/atelierlakay/art_shop/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	producer := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	defer producer.Close()

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatalf("elasticsearch init error: %v", err)
	}

	stripeClient := payments.NewClient(configuration.STRIPE_SECRET_KEY, configuration.CLIENT_URL)
	validate := validator.New()

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	deps := httpserver.Deps{
		DB:              db,
		AuthHandler:     &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret, Producer: producer},
		ProductHandler:  &handlers.ProductHandler{DB: db, Producer: producer, JWTSecret: jwtSecret, Validate: validate},
		CartHandler:     &cart.CartHandler{DB: db, Producer: producer, JWTSecret: jwtSecret, Validate: validate},
		CheckoutHandler: &handlers.CheckoutHandler{Payments: stripeClient, JWTSecret: jwtSecret},
		WebhookHandler:  &handlers.WebhookHandler{DB: db, WebhookSecret: configuration.STRIPE_WEBHOOK_SECRET, Producer: producer},
		DownloadHandler: &handlers.DownloadHandler{DB: db, JWTSecret: jwtSecret, Archiver: download.NewArchiver()},
		OrderHandler:    &handlers.OrderHandler{DB: db, JWTSecret: jwtSecret},
		FavoriteHandler: &handlers.FavoriteHandler{DB: db, JWTSecret: jwtSecret, Producer: producer},
		ReviewHandler:   &handlers.ReviewHandler{DB: db, JWTSecret: jwtSecret, Validate: validate},
		SearchHandler:   &handlers.SearchHandler{ES: esClient, Index: "products"},
		TokenService:    &service.TokenService{DB: db, RefreshSecret: refreshSecret, JWTSecret: jwtSecret},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}
}
