package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tiendacore/internal/auth"
	"tiendacore/internal/config"
	"tiendacore/internal/db"
	"tiendacore/internal/httpserver"
	"tiendacore/internal/logging"
	"tiendacore/internal/products"
)

func main() {
	ctx := context.Background()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	dbConn, err := db.Open(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()

	if err := db.RunMigrations(ctx, dbConn); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	userStore := auth.NewStore(dbConn)
	authSvc := auth.NewService(userStore, cfg.JWTSecret)
	if err := authSvc.SeedAdminsFromFile(ctx, cfg.AdminsPath); err != nil {
		log.Fatalf("seed admins: %v", err)
	}

	productStore := products.NewStore(dbConn)

	handler := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:       logger,
		AuthService:  authSvc,
		UserStore:    userStore,
		ProductStore: productStore,
		StaticDir:    cfg.StaticDir,
		RateLimit:    cfg.RateLimit,
	})
	server := httpserver.New(cfg, handler, logger)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
