package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alm9/grades-escolares-api/internal/config"
	"github.com/alm9/grades-escolares-api/internal/logging"
	"github.com/alm9/grades-escolares-api/internal/server"
	"go.uber.org/zap"
)

var dotenvErr error

func init() {
	dotenvErr = config.LoadDotEnv()
}

func gracefulShutdown(ctx context.Context, stop context.CancelFunc, apiServer *http.Server, logger *zap.Logger, done chan bool) {
	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("shutting down gracefully, press Ctrl+C again to force")
	stop()

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")

	done <- true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[grades-api] invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[grades-api] %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if dotenvErr != nil {
		logger.Info("no .env file loaded, using process environment", zap.Error(dotenvErr))
	}

	engine, err := server.NewEngine(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open grades", zap.String("file", cfg.GradesFile), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiServer := server.NewServer(ctx, cfg, engine, logger)

	done := make(chan bool, 1)
	go gracefulShutdown(ctx, stop, apiServer, logger, done)

	logger.Info("API started", zap.String("addr", apiServer.Addr), zap.String("grades_file", cfg.GradesFile))
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server error", zap.Error(err))
	}

	<-done
	logger.Info("graceful shutdown complete")
}
