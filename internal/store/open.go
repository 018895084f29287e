package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"
)

// Driver names accepted by Open.
const (
	DriverMemory  = "memory"
	DriverFile    = "file"
	DriverMongo   = "mongo"
	DriverSurreal = "surreal"
	DriverRedis   = "redis"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown store driver")

// Config selects and configures a backend.
type Config struct {
	Driver     string
	MaxPerRoom int

	// FileDir is the root directory of the file backend. Fs defaults to the OS filesystem.
	FileDir string
	Fs      afero.Fs

	Mongo   MongoConfig
	Surreal SurrealConfig
	Redis   RedisConfig

	// Retryer defaults to NewExponentialBackoffRetryer.
	Retryer Retryer
}

// Open builds the backend named by cfg.Driver. An empty driver selects memory.
func Open(ctx context.Context, cfg Config) (MessageStore, error) {
	retryer := cfg.Retryer
	if retryer == nil {
		retryer = NewExponentialBackoffRetryer()
	}

	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemoryStore(cfg.MaxPerRoom), nil

	case DriverFile:
		fs := cfg.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		dir := cfg.FileDir
		if dir == "" {
			dir = "data/messages"
		}
		return NewFileStore(fs, dir)

	case DriverMongo:
		return NewMongoStore(ctx, cfg.Mongo, retryer)

	case DriverSurreal:
		return NewSurrealStore(ctx, cfg.Surreal, retryer)

	case DriverRedis:
		redisCfg := cfg.Redis
		if redisCfg.MaxPerRoom == 0 {
			redisCfg.MaxPerRoom = cfg.MaxPerRoom
		}
		return NewRedisStore(ctx, redisCfg, retryer)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
