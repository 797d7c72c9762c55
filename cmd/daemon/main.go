package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/FerdiWoo/nowbar/internal/bridge"
	"github.com/FerdiWoo/nowbar/internal/config"
	"github.com/FerdiWoo/nowbar/internal/domain"
	"github.com/FerdiWoo/nowbar/internal/fetcher"
	"github.com/FerdiWoo/nowbar/internal/launcher"
	"github.com/FerdiWoo/nowbar/internal/poller"
	"github.com/FerdiWoo/nowbar/internal/sampler"
	"github.com/FerdiWoo/nowbar/internal/state"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// AppOptions is the full dependency graph, exported so tests can
// validate it with fx.ValidateApp
var AppOptions = fx.Options(
	fx.Provide(
		newLogger,
		newConfig,
		newBridge,
		newFetcher,
		sampler.NewSampler,
		state.NewStore,
		poller.NewCoordinator,
		launcher.New,
	),
	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		AppOptions,
	)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		panic(err)
	}

	<-ctx.Done()

	if err := app.Stop(context.Background()); err != nil {
		panic(err)
	}
}

// newLogger creates a new zap logger instance
func newLogger() (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

func newConfig(logger *zap.Logger) domain.Config {
	return config.NewAppConfig(logger)
}

func newFetcher(logger *zap.Logger, cfg domain.Config) domain.Fetcher {
	return fetcher.NewHTTPFetcher(logger, cfg)
}

// newBridge picks the scripting bridge for the host platform: AppleScript
// via osascript on macOS, MPRIS over the session bus elsewhere
func newBridge(logger *zap.Logger, cfg domain.Config) domain.Bridge {
	if runtime.GOOS == "darwin" {
		return bridge.NewAppleScriptBridge(logger, cfg, bridge.NewOsaScriptRunner(logger))
	}
	return bridge.NewMPRISBridge(logger, cfg)
}

// registerHooks wires the long-running goroutines into the fx lifecycle
func registerHooks(
	lc fx.Lifecycle,
	logger *zap.Logger,
	cfg domain.Config,
	store *state.Store,
	coord *poller.Coordinator,
	launch *launcher.Launcher,
) {
	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Nowbar daemon started", zap.String("app", cfg.AppName()))

			// The daemon's own "display": log state transitions
			var lastTrack string
			store.Subscribe(func(s state.Snapshot) {
				if s.Track == lastTrack {
					return
				}
				lastTrack = s.Track
				logger.Info("Now playing",
					zap.String("track", s.Track),
					zap.String("artist", s.Artist),
					zap.Bool("playing", s.Playing))
			})

			go store.Run(runCtx)
			go coord.Run(runCtx)

			if cfg.AutoLaunch() {
				go func() {
					if err := launch.Launch(runCtx); err != nil {
						logger.Warn("Auto-launch failed", zap.Error(err))
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			cancel()
			return nil
		},
	})
}
