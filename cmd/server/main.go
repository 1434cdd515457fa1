package main

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot-reservation/internal/config"
	"github.com/iliyamo/parking-lot-reservation/internal/database"
	"github.com/iliyamo/parking-lot-reservation/internal/handler"
	"github.com/iliyamo/parking-lot-reservation/internal/lifecycle"
	"github.com/iliyamo/parking-lot-reservation/internal/middleware"
	"github.com/iliyamo/parking-lot-reservation/internal/queue"
	"github.com/iliyamo/parking-lot-reservation/internal/repository"
	"github.com/iliyamo/parking-lot-reservation/internal/router"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	rdb := config.NewRedisClient()
	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()

	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	lotRepo := repository.NewLotRepo(db)
	spotRepo := repository.NewSpotRepo(db)
	reservationRepo := repository.NewReservationRepo(db)

	if cfg.AdminPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := userRepo.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost); err != nil {
			log.Fatalf("admin seed: %v", err)
		}
		cancel()
	}

	// Background consumer for released-spot billing events. It
	// reconnects on broker failures; the API does not depend on it.
	go func() {
		if err := queue.StartReleaseConsumer(); err != nil {
			log.Printf("queue consumer stopped: %v", err)
		}
	}()

	engine := lifecycle.NewEngine(spotRepo, reservationRepo)
	resync := lifecycle.NewResynchronizer(spotRepo)

	authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	userHandler := handler.NewUserHandler(lotRepo, spotRepo, reservationRepo, engine)
	adminHandler := handler.NewAdminHandler(lotRepo, spotRepo, reservationRepo, userRepo, resync, rdb, cacheCfg)

	e := echo.New()
	e.Use(middleware.RateLimit(rateCfg, rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterUser(e, userHandler, cfg.JWTSecret, rdb, cacheCfg)
	router.RegisterAdmin(e, adminHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
