// Package server wires the application together: configuration, logging, the
// photo store, the user repository façade and the HTTP server, with graceful
// shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/graduationparty/auth-service/internal/logging"
	"github.com/graduationparty/auth-service/internal/server/config"
	"github.com/graduationparty/auth-service/internal/server/httpapi"
	"github.com/graduationparty/auth-service/internal/server/storage"
	"github.com/graduationparty/auth-service/internal/server/users"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	userService *users.Service
	auth        *httpapi.AuthMiddleware
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	files, err := storage.NewS3Store(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("s3 init error: %w", err)
	}

	repo, err := users.NewRepository(c, files, logger)
	if err != nil {
		return nil, fmt.Errorf("repository init error: %w", err)
	}

	auth, err := httpapi.NewAuthMiddleware(c.AccessTokenPublicKey, logger)
	if err != nil {
		return nil, fmt.Errorf("auth init error: %w", err)
	}

	us := users.NewService(repo, logger)

	return &App{config: c, logger: logger, userService: us, auth: auth}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	handlers := httpapi.NewHandlers(app.userService, app.logger)
	router := httpapi.NewRouter(handlers, app.auth, app.logger)

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}
