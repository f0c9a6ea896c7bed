// Package main initializes and starts the GophTally document store server,
// setting up configuration, logging, the database, repositories, services,
// live snapshots, handlers, and TLS.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/GophTally/internal/config"
	"github.com/atinyakov/GophTally/internal/db"
	"github.com/atinyakov/GophTally/internal/logger"
	"github.com/atinyakov/GophTally/internal/models"
	"github.com/atinyakov/GophTally/internal/ratelimit"
	"github.com/atinyakov/GophTally/internal/repository"
	"github.com/atinyakov/GophTally/internal/server/handler/http"
	"github.com/atinyakov/GophTally/internal/server/live"
	"github.com/atinyakov/GophTally/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	options := config.Parse()

	fmt.Printf("Build version: %s\n", orNA(version))
	fmt.Printf("Build date: %s\n", orNA(buildDate))

	lg := logger.New()
	if err := lg.Init(options.LogLevel); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	zapLogger := lg.Log
	defer func() { _ = zapLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(options.DatabaseType, options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer conn.Close()

	db.StartSoftDeleteCleaner(ctx, conn,
		time.Hour,       // interval
		30*24*time.Hour, // retention: 30 days
		zapLogger,
	)

	tokens, err := service.NewTokenService(options.TokenKey, service.DefaultTokenDuration)
	if err != nil {
		zapLogger.Fatal("invalid token key", zap.Error(err))
	}
	if options.TokenKey == "" {
		zapLogger.Warn("no token key configured, sessions end on restart")
	}

	hub := live.NewHub(zapLogger)

	authService := service.NewAuthService(repository.NewAuthRepository(conn), tokens, nil, zapLogger)
	counterService := service.NewCounterService(repository.NewCounterRepository(conn), hub, zapLogger)
	labelService := service.NewLabelService(repository.NewLabelRepository(conn), hub, zapLogger)

	hub.Register(models.CollectionCounters, counterService.Snapshot)
	hub.Register(models.CollectionLabels, labelService.Snapshot)

	// 10 auth attempts per minute per IP, bursts of 5.
	authLimiter := ratelimit.New(10.0/60.0, 5, 10*time.Minute)
	defer authLimiter.Stop()

	router := http.NewRouter(http.Handlers{
		Auth:      &http.AuthHandler{AuthService: authService},
		Counters:  &http.CounterHandler{CounterService: counterService},
		Labels:    &http.LabelHandler{LabelService: labelService},
		Subscribe: &http.SubscribeHandler{Hub: hub, Logger: zapLogger},
	}, http.RouterOptions{
		Verifier:       authService,
		AuthLimiter:    authLimiter,
		AllowedOrigins: options.AllowedOrigins,
	}, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	useTLS := options.TLSCert != "" && options.TLSKey != ""
	if useTLS {
		cert, err := tls.LoadX509KeyPair(options.TLSCert, options.TLSKey)
		if err != nil {
			zapLogger.Fatal("failed to load server TLS cert/key", zap.Error(err))
		}
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hub.Close()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting server",
		zap.String("addr", options.Address),
		zap.String("database", options.DatabaseType),
		zap.Bool("tls", useTLS),
	)
	if useTLS {
		err = server.ListenAndServeTLS("", "")
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server failed", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}

// orNA returns s, or "N/A" when s is empty.
func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
