/*
Package main is the entry point for the LiveShop token server.

It is responsible for loading configuration, initializing the global logging system,
connecting the optional issuance audit log, setting up the HTTP server,
and gracefully handling operating system interrupt signals (SIGINT, SIGTERM)
to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"liveshop/internal/app/db"
	"liveshop/internal/app/issuer"
	"liveshop/internal/configs"
	"liveshop/internal/handler"
	"liveshop/internal/pkg/limiter"
	"liveshop/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("agora_app_id", cfg.AgoraAppID).
		Uint32("token_expire_seconds", cfg.TokenExpireSeconds).
		Bool("host_auth", cfg.HostJWTSecret != "").
		Bool("audit_log", cfg.DatabaseDSN != "").
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect the audit log when a database is configured
	var recorder issuer.Recorder
	if cfg.DatabaseDSN != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to connect audit database")
		}
		defer pool.Close()
		recorder = db.NewAuditStore(pool)
	}

	tokenIssuer := issuer.New(
		issuer.Credentials{AppID: cfg.AgoraAppID, AppCertificate: cfg.AgoraAppCertificate},
		issuer.Lifetimes{
			Default: cfg.TokenExpireSeconds,
			Min:     cfg.TokenMinExpireSeconds,
			Max:     cfg.TokenMaxExpireSeconds,
		},
		recorder,
	)

	tokenLimiter := limiter.NewIPRateLimiter(rate.Limit(cfg.TokenRateLimit), cfg.TokenRateBurst)
	defer tokenLimiter.Close()

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Config:       cfg,
		Issuer:       tokenIssuer,
		TokenLimiter: tokenLimiter,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("LiveShop Token Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}
