package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"

	"github.com/nfrund/chatrooms/internal/domain"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

var _ MessageStore = (*SurrealStore)(nil)

// SurrealConfig holds the SurrealDB connection settings.
type SurrealConfig struct {
	URL       string
	Namespace string
	Database  string
	User      string
	Pass      string
}

// SurrealStore keeps messages in the "message" table.
type SurrealStore struct {
	db     *surrealdb.DB
	logger *slog.Logger
}

// NewSurrealStore connects, signs in and selects the namespace/database.
// Connection attempts go through retryer.
func NewSurrealStore(ctx context.Context, cfg SurrealConfig, retryer Retryer) (*SurrealStore, error) {
	logger := slog.Default().With("service", "store", "driver", "surreal")

	var db *surrealdb.DB
	err := retryer.Retry(ctx, func() error {
		conn, err := surrealdb.FromEndpointURLString(ctx, cfg.URL)
		if err != nil {
			return fmt.Errorf("connect to %s: %w", redactURL(cfg.URL), err)
		}
		if _, err := conn.SignIn(ctx, &surrealdb.Auth{Username: cfg.User, Password: cfg.Pass}); err != nil {
			conn.Close(ctx)
			return fmt.Errorf("sign in: %w", err)
		}
		if err := conn.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
			conn.Close(ctx)
			return fmt.Errorf("use namespace/db: %w", err)
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, wrap("connect surreal", err)
	}

	logger.Info("Connected to SurrealDB", "url", redactURL(cfg.URL), "namespace", cfg.Namespace, "database", cfg.Database)
	return &SurrealStore{db: db, logger: logger}, nil
}

// Append implements MessageStore.
func (s *SurrealStore) Append(ctx context.Context, msg domain.ChatMessage) error {
	sql := "CREATE message SET room = $room, user = $user, text = $text, timestamp = $timestamp, createdAt = $createdAt"
	params := map[string]any{
		"room":      msg.Room,
		"user":      msg.User,
		"text":      msg.Text,
		"timestamp": msg.Timestamp,
		"createdAt": surrealmodels.CustomDateTime{Time: msg.CreatedAt},
	}
	if err := execute(ctx, s.db, sql, params); err != nil {
		return wrap("create message", err)
	}
	return nil
}

// FetchRecent implements MessageStore. Newest first with a limit, then reversed.
func (s *SurrealStore) FetchRecent(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		return []domain.ChatMessage{}, nil
	}

	sql := "SELECT room, user, text, timestamp, createdAt FROM message WHERE room = $room ORDER BY createdAt DESC LIMIT $limit"
	params := map[string]any{
		"room":  room,
		"limit": limit,
	}

	msgs, err := query[domain.ChatMessage](ctx, s.db, sql, params)
	if err != nil {
		return nil, wrap("select messages", err)
	}
	if msgs == nil {
		return []domain.ChatMessage{}, nil
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// Close implements MessageStore.
func (s *SurrealStore) Close(ctx context.Context) error {
	if err := s.db.Close(ctx); err != nil {
		return wrap("close surreal", err)
	}
	return nil
}

// query runs a SurrealQL statement and unmarshals the first statement's rows into T.
func query[T any](ctx context.Context, db *surrealdb.DB, sql string, params map[string]any) ([]T, error) {
	results, err := surrealdb.Query[[]T](ctx, db, sql, params)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	if len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

// execute runs a statement whose rows are not needed.
func execute(ctx context.Context, db *surrealdb.DB, sql string, params map[string]any) error {
	if _, err := surrealdb.Query[any](ctx, db, sql, params); err != nil {
		return fmt.Errorf("query execution failed: %w", err)
	}
	return nil
}

// redactURL hides any password embedded in a database URL before logging it.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url"
	}
	return u.Redacted()
}
