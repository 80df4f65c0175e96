package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bookmarket/addrvault/api/internal/api/handlers"
	"github.com/bookmarket/addrvault/api/internal/api/middleware"
	"github.com/bookmarket/addrvault/api/internal/api/router"
	"github.com/bookmarket/addrvault/api/internal/config"
	"github.com/bookmarket/addrvault/api/internal/core/domain"
	"github.com/bookmarket/addrvault/api/internal/core/services"
	"github.com/bookmarket/addrvault/api/internal/db/memory"
	"github.com/bookmarket/addrvault/api/internal/db/postgres"
	delivery "github.com/bookmarket/addrvault/api/internal/delivery/http"
	"github.com/bookmarket/addrvault/api/internal/infrastructure/crypto"
)

type stores struct {
	addresses domain.AddressRepository
	profiles  domain.ProfileRepository
	listings  domain.ListingRepository
	pinger    delivery.Pinger
	close     func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		m := memory.NewStore()
		return &stores{addresses: m, profiles: m, listings: m, pinger: m, close: m.Close}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	sqlDB := postgres.NewSQLX(pool)
	return &stores{
		addresses: postgres.NewAddressRepo(pool),
		profiles:  postgres.NewProfileRepo(pool),
		listings:  postgres.NewListingRepo(sqlDB),
		pinger:    pool,
		close: func() {
			sqlDB.Close()
			pool.Close()
		},
	}, nil
}

func main() {
	// --- 1. Core Telemetry & Configuration ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("could not read .env file", "error", err)
	}

	logger.Info("Booting address vault...")
	cfg, err := config.Load()
	if err != nil {
		logger.Error("FATAL: configuration invalid", "error", err)
		os.Exit(1)
	}

	// The current key version must resolve before we accept writes.
	keys := crypto.NewEnvKeyResolver(cfg.CurrentKeyVersion)
	if _, err := keys.ResolveKey(context.Background(), keys.CurrentVersion()); err != nil {
		if cfg.IsProduction() {
			logger.Error("FATAL: current address key unavailable", "key_version", keys.CurrentVersion(), "error", err)
			os.Exit(1)
		}
		logger.Warn("current address key unavailable; encrypt calls will fail", "key_version", keys.CurrentVersion())
	}

	// --- 2. Outbound Infrastructure ---
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	st, err := openStores(rootCtx, cfg)
	if err != nil {
		logger.Error("FATAL: store unavailable", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.close()

	// --- 3. Dependency Injection ---
	tokenService := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer)
	authService := services.NewAuthService(tokenService, st.profiles)
	gate := services.NewAccessGate(st.listings, logger)
	addressService := services.NewAddressService(st.addresses, gate, keys, crypto.NewAESGCMEngine(), logger)

	authMiddleware := middleware.NewAuthMiddleware(rootCtx, authService, logger, cfg.RateLimitRPS, cfg.RateLimitBurst)

	// --- 4. HTTP Gateway ---
	mux := router.NewRouter(router.RouterConfig{
		AllowedOrigins:    cfg.AllowedOrigins,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		AddressHandler: handlers.NewAddressHandler(addressService, logger),
		HealthHandler:  delivery.NewHealthHandler(st.pinger),
		AuthMiddleware: authMiddleware,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// --- 5. Graceful Exit ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Address vault API active", "port", cfg.Port, "store", cfg.StoreDriver, "key_version", keys.CurrentVersion())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("CRITICAL: Server crashed", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("ERROR: Forced shutdown", "error", err)
	}
	cancelRoot()
	logger.Info("Address vault shutdown complete.")
}
