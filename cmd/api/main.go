package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"bunkerprices-service/internal/bootstrap"
	defaults "bunkerprices-service/internal/infrastructure/config"
	httpserver "bunkerprices-service/internal/infrastructure/http"
	"bunkerprices-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	logger := logx.L()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := bootstrap.InitAPI(ctx)
	if err != nil {
		logger.Fatal("bootstrap api", zap.Error(err))
	}
	defer cleanup()

	addr := ":" + app.Config.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           httpserver.NewRouter(app.Server),
		ReadHeaderTimeout: defaults.DefaultReadHeaderLimit,
	}

	// Standalone deployments run cmd/worker instead.
	if app.Worker != nil {
		logger.Info("embedded worker enabled")
		go app.Worker.Start(ctx)
	}

	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	app.Hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaults.DefaultShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
