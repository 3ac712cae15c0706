// Package app composes the chatkit components into an fx application,
// used by the long-running watch command.
package app

import (
	"context"

	"github.com/gaprio/chatkit/internal/api"
	"github.com/gaprio/chatkit/internal/bus"
	"github.com/gaprio/chatkit/internal/config"
	"github.com/gaprio/chatkit/internal/lock"
	"github.com/gaprio/chatkit/internal/logging"
	"github.com/gaprio/chatkit/internal/mirror"
	"github.com/gaprio/chatkit/internal/profile"
	"github.com/gaprio/chatkit/internal/realtime"
	"github.com/gaprio/chatkit/internal/session"
	"github.com/gaprio/chatkit/internal/status"
	"github.com/gaprio/chatkit/internal/store"
	intsync "github.com/gaprio/chatkit/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile string
	// BaseURL overrides the config file when non-empty.
	BaseURL string
}

// Module returns the fx module composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("chatkit",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideVault,
			provideSessionStore,
			provideAPIClient,
			provideChannel,
			provideEngine,
			provideStore,
			provideMirror,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) *config.Config {
	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		cfg = config.Default()
	}
	if p.BaseURL != "" {
		cfg.BaseURL = p.BaseURL
	}
	return cfg
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.Profile), p.Profile)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideVault(p Params) session.Vault {
	return session.NewFileVault(profile.SessionPath(p.Profile))
}

func provideSessionStore(vault session.Vault, client *api.Client, b *bus.Bus, logger *zap.Logger) *session.Store {
	s := session.NewStore(vault, client, b, logger)
	// Requests rejected for a bad credential end the session; one
	// policy for every endpoint.
	client.SetAuthFailureHook(s.Invalidate)
	return s
}

func provideAPIClient(cfg *config.Config, logger *zap.Logger) *api.Client {
	return api.NewClient(
		api.WithBaseURL(cfg.BaseURL),
		api.WithLogger(logger),
	)
}

func provideChannel(cfg *config.Config, sess *session.Store, b *bus.Bus, m *status.Machine, logger *zap.Logger) *realtime.Channel {
	return realtime.NewChannel(cfg.BaseURL, sess, b, m, logger)
}

func provideEngine(client *api.Client, ch *realtime.Channel, sess *session.Store, cfg *config.Config, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(client, &intsync.ChannelFeed{Channel: ch}, sess, b, logger, intsync.Options{
		SearchDebounce: cfg.SearchDebounce(),
		PageSize:       cfg.MessagePageSize,
	})
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.CacheDBPath(p.Profile)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("cache initialized", zap.String("path", dbPath))
	return db, nil
}

func provideMirror(db *store.DB, b *bus.Bus, logger *zap.Logger) *mirror.Mirror {
	return mirror.New(db, b, logger)
}

func registerLifecycle(lc fx.Lifecycle, engine *intsync.Engine, m *mirror.Mirror, ch *realtime.Channel, sess *session.Store, client *api.Client, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	client.SetCredentialSource(sess)

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			engine.Start(context.Background())
			m.Start(context.Background())
			logger.Info("chatkit started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_, _ = ch.Switch(ctx, "")
			engine.Stop()
			m.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing cache", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("chatkit stopped")
			return nil
		},
	})
}
