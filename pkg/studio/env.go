package studio

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Fepozopo/promptcanvas/pkg/bgremove"
	"github.com/Fepozopo/promptcanvas/pkg/cache"
	"github.com/Fepozopo/promptcanvas/pkg/config"
	"github.com/Fepozopo/promptcanvas/pkg/engine"
	"github.com/Fepozopo/promptcanvas/pkg/logging"
	"github.com/Fepozopo/promptcanvas/pkg/raster"
	"github.com/Fepozopo/promptcanvas/pkg/stdimg"
)

// Env holds what every studio of a process shares: the filter engine, the
// background-removal service and the intake rules.
type Env struct {
	Provider   engine.Provider
	Background *bgremove.Service
	Intake     raster.Intake
	Options    Options

	cache *cache.RedisCache
}

// Setup builds an Env from configuration. An unreachable Redis disables the
// mask cache instead of failing.
func Setup(ctx context.Context, cfg *config.Config) (*Env, error) {
	bg, err := stdimg.ParseColor(cfg.Canvas.Background)
	if err != nil {
		return nil, fmt.Errorf("canvas.background: %w", err)
	}

	provider, err := engine.New(cfg.Engine.Provider, cfg.Engine.PollInterval)
	if err != nil {
		return nil, err
	}

	eng, err := bgremove.NewEngine(cfg.Background.Engine, bgremove.EngineOptions{
		Tolerance:  cfg.Background.Tolerance,
		Feather:    cfg.Background.Feather,
		MaxSide:    cfg.Background.MaxSide,
		Iterations: cfg.Background.Iterations,
		BorderSize: cfg.Background.BorderSize,
	})
	if err != nil {
		return nil, err
	}

	env := &Env{
		Provider: provider,
		Intake:   raster.Intake{
			MaxSize:      cfg.Upload.MaxSize,
			MaxPixels:    cfg.Upload.MaxPixels,
			AllowedTypes: cfg.Upload.AllowedTypes,
		},
		Options:  Options{Width: cfg.Canvas.Width, Height: cfg.Canvas.Height, Background: bg},
	}

	var opts []bgremove.Option
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedisCache(cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil {
			logging.Logger.Warn("redis connection failed, mask cache disabled", zap.Error(err))
			_ = rc.Close()
		} else {
			logging.Logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
			env.cache = rc
			opts = append(opts, bgremove.WithCache(rc))
		}
	}
	env.Background = bgremove.NewService(eng, opts...)

	logging.Logger.Info("studio environment ready",
		zap.String("provider", provider.Name()),
		zap.String("background_engine", eng.Name()),
		zap.Bool("mask_cache", env.cache != nil))
	return env, nil
}

// NewStudio creates a studio sharing this Env.
func (e *Env) NewStudio() (*Studio, error) {
	return New(e.Options, e.Provider, e.Background)
}

// Warmup starts background-engine initialization without waiting for it.
func (e *Env) Warmup(ctx context.Context) {
	go func() {
		if err := e.Background.Initialize(ctx); err != nil {
			logging.Logger.Warn("background engine warmup failed", zap.Error(err))
		}
	}()
}

func (e *Env) Close() error {
	if c, ok := e.Provider.(interface{ Close() error }); ok {
		_ = c.Close()
	}
	if e.cache != nil {
		return e.cache.Close()
	}
	return nil
}
