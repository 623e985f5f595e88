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
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	smmadapter "github.com/dsemenov/wallpromo/internal/adapter/driven/smmlaba"
	sqliteadapter "github.com/dsemenov/wallpromo/internal/adapter/driven/sqlite"
	vkadapter "github.com/dsemenov/wallpromo/internal/adapter/driven/vk"
	httphandler "github.com/dsemenov/wallpromo/internal/adapter/driving/http"
	"github.com/dsemenov/wallpromo/internal/application"
	"github.com/dsemenov/wallpromo/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required secrets).
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"wall_api", cfg.WallAPIURL,
		"promo_api", cfg.PromoAPIURL,
		"promo_service", cfg.PromoService,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	accountStore := sqliteadapter.NewAccountRepo(db)
	credentialStore := sqliteadapter.NewCredentialRepo(db)
	wallClient := vkadapter.NewClient(cfg.WallAPIURL, cfg.WallBaseURL, cfg.WallAPIVersion, cfg.WallTimeout)
	promoGateway := smmadapter.NewClient(cfg.PromoAPIURL, cfg.PromoService, cfg.PromoQuantity, cfg.PromoTimeout)

	// 6. Wire application services.
	accountSvc := application.NewAccountService(accountStore, wallClient)
	credentialSvc := application.NewCredentialService(credentialStore, promoGateway)
	pollSvc := application.NewPollService(accountStore, credentialStore, wallClient, promoGateway, cfg.WallInterval)

	// 7. Create HTTP handler and register routes.
	handler := httphandler.NewHandler(accountSvc, credentialSvc, pollSvc, slog.Default())
	mux := httphandler.NewServeMux(handler, cfg.APIToken, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("wallpromo started", "listen_addr", cfg.ListenAddr)

	// 8. Wait for shutdown signal, then drain.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
