package store

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/nfrund/chatrooms/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const messagesCollection = "messages"

var _ MessageStore = (*MongoStore)(nil)

// MongoConfig holds the MongoDB connection settings.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// MongoStore keeps messages in the "messages" collection, one document per
// message with room, user, text, timestamp and createdAt fields.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoStore connects, pings and ensures the history index. Connection
// attempts go through retryer.
func NewMongoStore(ctx context.Context, cfg MongoConfig, retryer Retryer) (*MongoStore, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	logger := slog.Default().With("service", "store", "driver", "mongo")

	var client *mongo.Client
	err := retryer.Retry(ctx, func() error {
		opts := options.Client().ApplyURI(cfg.URI).SetConnectTimeout(cfg.ConnectTimeout)
		c, err := mongo.Connect(ctx, opts)
		if err != nil {
			return err
		}

		pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
		if err := c.Ping(pingCtx, nil); err != nil {
			_ = c.Disconnect(ctx)
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, wrap("connect mongo", err)
	}

	s := &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(messagesCollection),
		logger:     logger,
	}

	index := mongo.IndexModel{
		Keys: bson.D{{Key: "room", Value: 1}, {Key: "createdAt", Value: -1}},
	}
	if _, err := s.collection.Indexes().CreateOne(ctx, index); err != nil {
		_ = client.Disconnect(ctx)
		return nil, wrap("create mongo index", err)
	}

	logger.Info("Connected to MongoDB", "database", cfg.Database)
	return s, nil
}

// Append implements MessageStore.
func (s *MongoStore) Append(ctx context.Context, msg domain.ChatMessage) error {
	if _, err := s.collection.InsertOne(ctx, msg); err != nil {
		return wrap("insert message", err)
	}
	return nil
}

// FetchRecent implements MessageStore. It reads newest first so the limit
// applies to the most recent messages, then reverses.
func (s *MongoStore) FetchRecent(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		return []domain.ChatMessage{}, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.M{"room": room}, opts)
	if err != nil {
		return nil, wrap("find messages", err)
	}
	defer cursor.Close(ctx)

	msgs := []domain.ChatMessage{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, wrap("decode messages", err)
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// Close implements MessageStore.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return wrap("disconnect mongo", err)
	}
	s.logger.Info("Disconnected from MongoDB")
	return nil
}
