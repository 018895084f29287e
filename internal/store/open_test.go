package store

import (
	"context"
	"strconv"
	"testing"

	"github.com/nfrund/chatrooms/internal/testutils"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Config{Driver: DriverFile, Fs: afero.NewMemMapFs(), FileDir: "history"})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(ctx, Config{Driver: "postgres"})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestOpen_RemoteFailureIsWrapped(t *testing.T) {
	ctx := context.Background()
	_, err := Open(ctx, Config{
		Driver:  DriverRedis,
		Redis:   RedisConfig{Addr: "127.0.0.1:1"},
		Retryer: fastRetryer(0),
	})
	assert.ErrorIs(t, err, ErrStore)
}

// The remote backends run the shared contract only when a server is
// configured in the environment or .env.test, e.g. TEST_REDIS_ADDR=localhost:6379.

func TestRedisStore(t *testing.T) {
	addr := testutils.RequireEnv(t, "TEST_REDIS_ADDR")

	n := 0
	runStoreContract(t, func(t *testing.T) MessageStore {
		n++
		s, err := NewRedisStore(context.Background(), RedisConfig{
			Addr:   addr,
			Prefix: "chatrooms-test:" + t.Name() + ":" + strconv.Itoa(n) + ":",
		}, fastRetryer(1))
		require.NoError(t, err)
		t.Cleanup(func() {
			ctx := context.Background()
			keys, _ := s.client.Keys(ctx, s.prefix+"*").Result()
			if len(keys) > 0 {
				s.client.Del(ctx, keys...)
			}
			_ = s.Close(ctx)
		})
		return s
	})
}

func TestMongoStore(t *testing.T) {
	uri := testutils.RequireEnv(t, "TEST_MONGODB_URI")

	n := 0
	runStoreContract(t, func(t *testing.T) MessageStore {
		n++
		s, err := NewMongoStore(context.Background(), MongoConfig{
			URI:      uri,
			Database: "chatrooms_test_" + strconv.Itoa(n),
		}, fastRetryer(1))
		require.NoError(t, err)
		t.Cleanup(func() {
			ctx := context.Background()
			_ = s.collection.Database().Drop(ctx)
			_ = s.Close(ctx)
		})
		return s
	})
}

func TestSurrealStore(t *testing.T) {
	url := testutils.RequireEnv(t, "TEST_SURREAL_URL")

	n := 0
	runStoreContract(t, func(t *testing.T) MessageStore {
		n++
		s, err := NewSurrealStore(context.Background(), SurrealConfig{
			URL:       url,
			Namespace: "chatrooms_test",
			Database:  "contract_" + strconv.Itoa(n),
			User:      testutils.OptionalEnv("TEST_SURREAL_USER"),
			Pass:      testutils.OptionalEnv("TEST_SURREAL_PASS"),
		}, fastRetryer(1))
		require.NoError(t, err)
		t.Cleanup(func() {
			ctx := context.Background()
			_ = execute(ctx, s.db, "DELETE message", nil)
			_ = s.Close(ctx)
		})
		return s
	})
}
