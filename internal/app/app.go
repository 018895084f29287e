// Package app assembles the chat server from its services.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nfrund/chatrooms/internal/config"
	"github.com/nfrund/chatrooms/internal/presence"
	"github.com/nfrund/chatrooms/internal/pubsub"
	"github.com/nfrund/chatrooms/internal/roomseed"
	"github.com/nfrund/chatrooms/internal/server"
	"github.com/nfrund/chatrooms/internal/store"
	"github.com/samber/do/v2"
	"github.com/spf13/afero"
)

// App owns the dependency injector and the lifetime of every service in it.
type App struct {
	cfg      config.Provider
	injector *do.RootScope
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger

	mu    sync.Mutex
	store store.MessageStore
	bus   *pubsub.WatermillBridge
}

// New registers all services. Nothing is constructed until Run or an
// accessor asks for it.
func New(cfg config.Provider) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:      cfg,
		injector: do.New(),
		ctx:      ctx,
		cancel:   cancel,
		logger:   slog.Default().With("service", "app"),
	}
	a.register(a.injector)
	return a
}

// Broker returns the presence broker, building it on first use.
func (a *App) Broker() (*presence.Broker, error) {
	return do.Invoke[*presence.Broker](a.injector)
}

// Server returns the HTTP server, building it on first use.
func (a *App) Server() (*server.Server, error) {
	return do.Invoke[*server.Server](a.injector)
}

// Run serves until ctx is canceled, then shuts every service down.
func (a *App) Run(ctx context.Context) error {
	srv, err := a.Server()
	if err != nil {
		a.Shutdown(context.Background())
		return err
	}

	if path := a.cfg.GetRoomsFile(); path != "" {
		broker := do.MustInvoke[*presence.Broker](a.injector)
		if err := roomseed.NewWatcher(afero.NewOsFs(), path, broker).Start(a.ctx); err != nil {
			a.logger.Warn("Rooms file watcher not started", "path", path, "error", err)
		}
	}

	runErr := srv.Start(ctx, Addr(a.cfg))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.Join(runErr, a.Shutdown(shutdownCtx))
}

// Shutdown stops background work and every service that was built. The
// injector shuts the server and bridge down first so no connection writes to
// a closed store.
func (a *App) Shutdown(ctx context.Context) error {
	a.cancel()
	a.injector.ShutdownWithContext(ctx)

	a.mu.Lock()
	st, bus := a.store, a.bus
	a.store, a.bus = nil, nil
	a.mu.Unlock()

	var errs []error
	if st != nil {
		errs = append(errs, st.Close(ctx))
	}
	if bus != nil {
		errs = append(errs, bus.Close())
	}

	a.logger.Info("Application stopped")
	return errors.Join(errs...)
}
