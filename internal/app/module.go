// Package app composes the console's components into an fx application.
package app

import (
	"context"

	"github.com/atendehq/atende/internal/api"
	"github.com/atendehq/atende/internal/bus"
	"github.com/atendehq/atende/internal/config"
	"github.com/atendehq/atende/internal/health"
	"github.com/atendehq/atende/internal/lock"
	"github.com/atendehq/atende/internal/logging"
	"github.com/atendehq/atende/internal/media"
	"github.com/atendehq/atende/internal/outbox"
	"github.com/atendehq/atende/internal/profile"
	intsync "github.com/atendehq/atende/internal/sync"
	"github.com/atendehq/atende/internal/tui"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile    string
	ConfigPath string // optional override for testing; empty = use default
}

// Module composes providers and lifecycle hooks for the console.
func Module(p Params) fx.Option {
	return fx.Module("atende",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideHealth,
			provideLock,
			provideClient,
			provideMediaCache,
			provideEngine,
			provideStaging,
			providePipeline,
			provideApp,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = profile.ConfigPath()
	}
	return config.Load(path)
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	return logging.New(profile.LogPath(p.Profile), p.Profile)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideHealth(b *bus.Bus) *health.Machine {
	return health.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideClient(cfg *config.Config, logger *zap.Logger) *api.Client {
	return api.NewClient(cfg.API.BaseURL, cfg.API.Token, logger)
}

func provideMediaCache(p Params, client *api.Client, b *bus.Bus, logger *zap.Logger) (*media.Cache, error) {
	return media.NewCache(profile.MediaCacheDir(p.Profile), client, b, logger)
}

func provideEngine(client *api.Client, b *bus.Bus, h *health.Machine, cfg *config.Config, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(client, b, h, logger, cfg.PollInterval())
}

func provideStaging(p Params, logger *zap.Logger) (*outbox.Staging, error) {
	return outbox.NewStaging(profile.PreviewDir(p.Profile), logger)
}

func providePipeline(client *api.Client, staging *outbox.Staging, engine *intsync.Engine, b *bus.Bus, logger *zap.Logger) *outbox.Pipeline {
	return outbox.NewPipeline(client, staging, engine, b, logger)
}

func provideApp(p Params, engine *intsync.Engine, cache *media.Cache, staging *outbox.Staging, pipeline *outbox.Pipeline, b *bus.Bus, logger *zap.Logger) *tui.App {
	return tui.NewApp(p.Profile, engine, cache, staging, pipeline, b, logger)
}

func registerLifecycle(lc fx.Lifecycle, engine *intsync.Engine, cache *media.Cache, staging *outbox.Staging, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			engine.Start(context.Background())
			return nil
		},
		OnStop: func(_ context.Context) error {
			engine.Stop()
			staging.Clear()
			cache.ReleaseAll()
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing profile lock", zap.Error(err))
			}
			logger.Info("console stopped")
			return nil
		},
	})
}
