package server

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/chatrooms/internal/domain"
	"github.com/nfrund/chatrooms/internal/middleware"
)

// maxHistoryLimit bounds the limit query parameter of the history endpoint.
const maxHistoryLimit = 500

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	s.E.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	if s.deps.Bridge != nil {
		s.E.GET("/ws", s.deps.Bridge.Handler())
	}

	api := s.E.Group("/api")
	api.GET("/rooms", s.listRooms)
	api.GET("/rooms/:name/messages", s.roomMessages)
	api.GET("/activity", s.listActivity)
}

func (s *Server) listRooms(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Broker.Directory().List())
}

type historyResponse struct {
	Room     string               `json:"room"`
	Messages []domain.ChatMessage `json:"messages"`
}

func (s *Server) roomMessages(c echo.Context) error {
	room := c.Param("name")
	// The router matches on RawPath when it is set, leaving params escaped.
	if c.Request().URL.RawPath != "" {
		var err error
		if room, err = url.PathUnescape(room); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid room name")
		}
	}
	if room == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid room name")
	}

	limit := s.deps.HistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxHistoryLimit))
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.deps.StoreTimeout)
	defer cancel()

	msgs, err := s.deps.Store.FetchRecent(ctx, room, limit)
	if err != nil {
		middleware.FromContext(ctx).Error("Failed to load room history", "room", room, "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "history unavailable")
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	return c.JSON(http.StatusOK, historyResponse{Room: room, Messages: msgs})
}

func (s *Server) listActivity(c echo.Context) error {
	if s.deps.Feed == nil {
		return c.JSON(http.StatusOK, []any{})
	}

	n := 0
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		n = v
	}
	return c.JSON(http.StatusOK, s.deps.Feed.Recent(n))
}
