// Package server initializes and runs the imagey-cloud backend.
// It opens the configured stores, wires the services into the HTTP API and
// the gRPC health endpoint, and handles graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/secure-doc/imagey-cloud/internal/logging"
	"github.com/secure-doc/imagey-cloud/internal/server/auth"
	"github.com/secure-doc/imagey-cloud/internal/server/config"
	"github.com/secure-doc/imagey-cloud/internal/server/httpapi"
	"github.com/secure-doc/imagey-cloud/internal/server/mail"
	"github.com/secure-doc/imagey-cloud/internal/server/repositories/repomanager"
	"github.com/secure-doc/imagey-cloud/internal/server/services"

	gs "github.com/secure-doc/imagey-cloud/internal/server/grpc"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   *repomanager.RepositoryManager
	handler http.Handler
}

// NewApp validates the configuration and builds every component. Any error
// returned here is fatal.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	key, err := c.SigningKey()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	repos, err := repomanager.New(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	mailer, err := mail.NewSMTPSender(mail.SMTPSettings{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		User:     c.SMTPUser,
		Password: c.SMTPPassword,
	}, logger)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("mail init error: %w", err)
	}

	codec := auth.NewTokenCodec(key)
	handler := httpapi.NewRouter(httpapi.Dependencies{
		Auth:          services.NewAuthenticationService(repos.Keys(), codec, mailer, c, logger),
		Keys:          services.NewKeyService(repos.Keys(), logger),
		Documents:     services.NewDocumentService(repos.Keys(), repos.Blobs(), logger),
		Authorizer:    auth.NewAuthorizer(codec, logger),
		Health:        []httpapi.Pinger{repos},
		AcmeDir:       c.AcmeChallengePath,
		AllowedOrigin: c.PublicBaseURL,
		Logger:        logger,
	})

	return &App{config: c, logger: logger, repos: repos, handler: handler}, nil
}

// initSignalHandler cancels on SIGINT, SIGTERM or SIGQUIT. The returned
// channel is closed once the handler has stopped listening.
func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) <-chan struct{} {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
	return done
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewHealthServer(app.config.EndpointAddrGRPC, app.logger, app.repos)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "HTTP shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves HTTP and gRPC until ctx is cancelled or a signal arrives, then
// closes the stores.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	signalsDone := app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()
	cancelFunc()
	<-signalsDone

	app.logger.Info(context.Background(), "Closing storage...")
	return app.repos.Close()
}
