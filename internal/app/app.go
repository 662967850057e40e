package app

import (
	"context"
	"errors"
	"fmt"

	"crossbot/internal/config"
	"crossbot/internal/engine"
	"crossbot/internal/gateway"
	"crossbot/internal/gateway/venue"
	"crossbot/internal/logger"
	"crossbot/internal/metrics"
	"crossbot/internal/scheduler"
	"crossbot/internal/session"
	"crossbot/internal/store/journal"
	livehttp "crossbot/internal/transport/http/live"

	"golang.org/x/sync/errgroup"
)

// ErrConnectivity 表示启动阶段行情或下单通道不可用。
var ErrConnectivity = errors.New("connectivity check failed")

// App 负责应用级编排：加载配置→初始化依赖→连通性检查→运行调度循环与状态服务。
type App struct {
	cfg       *config.Config
	market    gateway.Market
	venue     venue.Venue
	engine    *engine.Engine
	scheduler *scheduler.CycleScheduler
	window    session.Window
	liveHTTP  *livehttp.Server
	metrics   *metrics.Metrics
	journal   *journal.Store
	closers   []func() error

	Summary *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Connect 检查行情与下单通道；任一失败都返回包装了 ErrConnectivity 的错误。
func (a *App) Connect(ctx context.Context) error {
	if a == nil || a.market == nil || a.venue == nil {
		return fmt.Errorf("app not initialized")
	}
	if err := a.market.Ping(ctx); err != nil {
		return fmt.Errorf("%w: market %s: %v", ErrConnectivity, a.cfg.Market.Provider, err)
	}
	if err := a.venue.Ping(ctx); err != nil {
		return fmt.Errorf("%w: venue %s: %v", ErrConnectivity, a.venue.Name(), err)
	}
	logger.Infof("✓ crossbot initialized (market=%s, venue=%s)", a.cfg.Market.Provider, a.venue.Name())
	return nil
}

// Run 启动调度循环与状态服务，直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.engine == nil || a.scheduler == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.liveHTTP != nil {
		group.Go(func() error {
			if err := a.liveHTTP.Start(ctx); err != nil {
				return fmt.Errorf("live http server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		logger.Infof("crossbot running: %d symbols, session %s", len(a.engine.Symbols()), a.window)
		a.scheduler.Run(ctx, func(ctx context.Context) {
			a.engine.RunCycle(ctx)
		})
		return nil
	})

	err := group.Wait()
	if cerr := a.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Close 释放流水库、Redis 等资源，可重复调用。
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Engine 返回周期引擎，供测试与回放使用。
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

func (a *App) Scheduler() *scheduler.CycleScheduler {
	if a == nil {
		return nil
	}
	return a.scheduler
}

func (a *App) Metrics() *metrics.Metrics {
	if a == nil {
		return nil
	}
	return a.metrics
}
