package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider exposes the application settings to the rest of the program.
type Provider interface {
	GetPort() int
	GetLogFormat() string
	GetLogLevel() string

	GetStoreDriver() string
	GetStoreTimeout() time.Duration
	GetHistoryLimit() int
	GetFileStoreDir() string

	GetMongoURI() string
	GetMongoDatabase() string

	GetSurrealURL() string
	GetSurrealNs() string
	GetSurrealDb() string
	GetSurrealUser() string
	GetSurrealPass() string

	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int

	GetDefaultRooms() []string
	GetRoomsFile() string
	GetUnknownRoomPolicy() string
	GetAllowedOrigins() []string
}

// Config holds all configuration for the application.
type Config struct {
	Port      int
	LogFormat string
	LogLevel  string

	StoreDriver  string
	StoreTimeout time.Duration
	HistoryLimit int
	FileStoreDir string

	MongoURI      string
	MongoDatabase string

	SurrealURL  string
	SurrealNs   string
	SurrealDb   string
	SurrealUser string
	SurrealPass string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DefaultRooms      []string
	RoomsFile         string
	UnknownRoomPolicy string
	AllowedOrigins    []string
}

var _ Provider = (*Config)(nil)

// Defaults used when a key is unset.
const (
	DefaultPort          = 3001
	DefaultMongoURI      = "mongodb://localhost:27017/chat-app"
	DefaultMongoDatabase = "chat-app"
	DefaultRedisAddr     = "localhost:6379"
	DefaultFileStoreDir  = "data/messages"
)

// New loads a .env file if present, then reads the environment.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from any key lookup function, which keeps tests
// independent of the process environment.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	r := reader{lookup: lookup}

	cfg := &Config{
		Port:      r.int("PORT", DefaultPort),
		LogFormat: r.string("LOG_FORMAT", "text"),
		LogLevel:  r.string("LOG_LEVEL", "info"),

		StoreDriver:  r.string("STORE_DRIVER", "memory"),
		StoreTimeout: r.duration("STORE_TIMEOUT", 5*time.Second),
		HistoryLimit: r.int("HISTORY_LIMIT", 50),
		FileStoreDir: r.string("FILE_STORE_DIR", DefaultFileStoreDir),

		MongoURI:      r.string("MONGODB_URI", DefaultMongoURI),
		MongoDatabase: r.string("MONGODB_DATABASE", DefaultMongoDatabase),

		SurrealURL:  r.string("SURREAL_URL", "ws://localhost:8000/rpc"),
		SurrealNs:   r.string("SURREAL_NS", "chat"),
		SurrealDb:   r.string("SURREAL_DB", "chat"),
		SurrealUser: r.string("SURREAL_USER", "root"),
		SurrealPass: r.string("SURREAL_PASS", "root"),

		RedisAddr:     r.string("REDIS_ADDR", DefaultRedisAddr),
		RedisPassword: r.string("REDIS_PASSWORD", ""),
		RedisDB:       r.int("REDIS_DB", 0),

		DefaultRooms:      r.list("DEFAULT_ROOMS", []string{"General", "Tech Talk", "Random"}),
		RoomsFile:         r.string("ROOMS_FILE", ""),
		UnknownRoomPolicy: r.string("UNKNOWN_ROOM_POLICY", "adhoc"),
		AllowedOrigins:    r.list("ALLOWED_ORIGINS", nil),
	}

	if r.err != nil {
		return nil, r.err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT out of range: %d", cfg.Port)
	}
	if cfg.HistoryLimit <= 0 {
		return nil, fmt.Errorf("HISTORY_LIMIT must be positive, got %d", cfg.HistoryLimit)
	}
	return cfg, nil
}

// reader collects the first parse error so New can report it once.
type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) string(key, def string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v := r.string(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.string(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}

// list splits a comma separated value, dropping empty items.
func (r *reader) list(key string, def []string) []string {
	v := r.string(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (c *Config) GetPort() int                   { return c.Port }
func (c *Config) GetLogFormat() string           { return c.LogFormat }
func (c *Config) GetLogLevel() string            { return c.LogLevel }
func (c *Config) GetStoreDriver() string         { return c.StoreDriver }
func (c *Config) GetStoreTimeout() time.Duration { return c.StoreTimeout }
func (c *Config) GetHistoryLimit() int           { return c.HistoryLimit }
func (c *Config) GetFileStoreDir() string        { return c.FileStoreDir }
func (c *Config) GetMongoURI() string            { return c.MongoURI }
func (c *Config) GetMongoDatabase() string       { return c.MongoDatabase }
func (c *Config) GetSurrealURL() string          { return c.SurrealURL }
func (c *Config) GetSurrealNs() string           { return c.SurrealNs }
func (c *Config) GetSurrealDb() string           { return c.SurrealDb }
func (c *Config) GetSurrealUser() string         { return c.SurrealUser }
func (c *Config) GetSurrealPass() string         { return c.SurrealPass }
func (c *Config) GetRedisAddr() string           { return c.RedisAddr }
func (c *Config) GetRedisPassword() string       { return c.RedisPassword }
func (c *Config) GetRedisDB() int                { return c.RedisDB }
func (c *Config) GetDefaultRooms() []string      { return c.DefaultRooms }
func (c *Config) GetRoomsFile() string           { return c.RoomsFile }
func (c *Config) GetUnknownRoomPolicy() string   { return c.UnknownRoomPolicy }
func (c *Config) GetAllowedOrigins() []string    { return c.AllowedOrigins }
