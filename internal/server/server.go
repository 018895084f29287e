package server

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/nfrund/chatrooms/internal/activity"
	"github.com/nfrund/chatrooms/internal/middleware"
	"github.com/nfrund/chatrooms/internal/presence"
	"github.com/nfrund/chatrooms/internal/websocket"
)

// Dependencies are the services the HTTP server exposes.
type Dependencies struct {
	Broker *presence.Broker
	Bridge *websocket.Bridge
	Store  presence.MessageStore
	Feed   *activity.Feed

	// HistoryLimit is the default and StoreTimeout the per-call bound for the
	// history endpoint.
	HistoryLimit int
	StoreTimeout time.Duration
}

// Server holds the echo instance and the services behind its routes.
type Server struct {
	E      *echo.Echo
	deps   Dependencies
	logger *slog.Logger

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates a Server with middleware and routes registered.
func New(deps Dependencies) *Server {
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = presence.DefaultHistoryLimit
	}
	if deps.StoreTimeout <= 0 {
		deps.StoreTimeout = presence.DefaultStoreTimeout
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestID())
	e.Use(middleware.Logger)
	e.Use(echomw.Recover())

	setupErrorHandling(e)

	s := &Server{
		E:      e,
		deps:   deps,
		logger: slog.Default().With("service", "server"),
	}
	s.RegisterRoutes()
	return s
}

// setupErrorHandling renders HTTP errors as JSON and logs anything else with
// a stack trace before answering 500.
func setupErrorHandling(e *echo.Echo) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if m, ok := he.Message.(string); ok {
				msg = m
			}
			_ = c.JSON(he.Code, map[string]string{"error": msg})
			return
		}

		middleware.FromContext(c.Request().Context()).Error("Internal Server Error (Unhandled)",
			"error", err,
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"stack_trace", string(debug.Stack()),
		)
		_ = c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
