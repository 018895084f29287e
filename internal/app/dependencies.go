package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nfrund/chatrooms/internal/activity"
	"github.com/nfrund/chatrooms/internal/config"
	"github.com/nfrund/chatrooms/internal/presence"
	"github.com/nfrund/chatrooms/internal/pubsub"
	"github.com/nfrund/chatrooms/internal/server"
	"github.com/nfrund/chatrooms/internal/store"
	"github.com/nfrund/chatrooms/internal/websocket"
	"github.com/samber/do/v2"
	"github.com/spf13/afero"
)

// storeConnectTimeout bounds the initial connection to a remote store.
const storeConnectTimeout = 30 * time.Second

// StoreConfig maps the application settings onto the store factory's config.
func StoreConfig(cfg config.Provider) store.Config {
	return store.Config{
		Driver:  cfg.GetStoreDriver(),
		FileDir: cfg.GetFileStoreDir(),
		Fs:      afero.NewOsFs(),
		Mongo: store.MongoConfig{
			URI:      cfg.GetMongoURI(),
			Database: cfg.GetMongoDatabase(),
		},
		Surreal: store.SurrealConfig{
			URL:       cfg.GetSurrealURL(),
			Namespace: cfg.GetSurrealNs(),
			Database:  cfg.GetSurrealDb(),
			User:      cfg.GetSurrealUser(),
			Pass:      cfg.GetSurrealPass(),
		},
		Redis: store.RedisConfig{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		},
	}
}

// register wires every service into the injector. Services are built lazily
// on first invocation, so a failing remote store only surfaces when the
// server is requested.
func (a *App) register(i do.Injector) {
	do.ProvideValue(i, a.cfg)

	do.Provide(i, func(i do.Injector) (*pubsub.WatermillBridge, error) {
		bus := pubsub.NewWatermillBridge(nil)
		a.mu.Lock()
		a.bus = bus
		a.mu.Unlock()
		return bus, nil
	})

	do.Provide(i, func(i do.Injector) (store.MessageStore, error) {
		cfg := do.MustInvoke[config.Provider](i)
		ctx, cancel := context.WithTimeout(a.ctx, storeConnectTimeout)
		defer cancel()
		st, err := store.Open(ctx, StoreConfig(cfg))
		if err != nil {
			return nil, err
		}
		a.mu.Lock()
		a.store = st
		a.mu.Unlock()
		return st, nil
	})

	do.Provide(i, func(i do.Injector) (*presence.Broker, error) {
		cfg := do.MustInvoke[config.Provider](i)
		policy, err := presence.ParseUnknownRoomPolicy(cfg.GetUnknownRoomPolicy())
		if err != nil {
			return nil, err
		}
		st, err := do.Invoke[store.MessageStore](i)
		if err != nil {
			return nil, err
		}
		bus := do.MustInvoke[*pubsub.WatermillBridge](i)

		return presence.NewBroker(st,
			presence.WithPublisher(bus),
			presence.WithDefaultRooms(cfg.GetDefaultRooms()...),
			presence.WithHistoryLimit(cfg.GetHistoryLimit()),
			presence.WithStoreTimeout(cfg.GetStoreTimeout()),
			presence.WithUnknownRoomPolicy(policy),
		), nil
	})

	do.Provide(i, func(i do.Injector) (*activity.Feed, error) {
		feed := activity.NewFeed(activity.DefaultCapacity)
		bus := do.MustInvoke[*pubsub.WatermillBridge](i)
		if err := feed.Start(a.ctx, bus); err != nil {
			return nil, fmt.Errorf("start activity feed: %w", err)
		}
		return feed, nil
	})

	do.Provide(i, func(i do.Injector) (*websocket.Bridge, error) {
		cfg := do.MustInvoke[config.Provider](i)
		broker, err := do.Invoke[*presence.Broker](i)
		if err != nil {
			return nil, err
		}
		return websocket.NewBridge(broker, websocket.WithOriginPatterns(cfg.GetAllowedOrigins()...)), nil
	})

	do.Provide(i, func(i do.Injector) (*server.Server, error) {
		cfg := do.MustInvoke[config.Provider](i)
		broker, err := do.Invoke[*presence.Broker](i)
		if err != nil {
			return nil, err
		}
		bridge, err := do.Invoke[*websocket.Bridge](i)
		if err != nil {
			return nil, err
		}
		feed, err := do.Invoke[*activity.Feed](i)
		if err != nil {
			return nil, err
		}
		return server.New(server.Dependencies{
			Broker:       broker,
			Bridge:       bridge,
			Store:        do.MustInvoke[store.MessageStore](i),
			Feed:         feed,
			HistoryLimit: cfg.GetHistoryLimit(),
			StoreTimeout: cfg.GetStoreTimeout(),
		}), nil
	})
}

// Addr is the listen address for the configured port.
func Addr(cfg config.Provider) string {
	return ":" + strconv.Itoa(cfg.GetPort())
}
