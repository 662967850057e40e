package app

import (
	"context"
	"fmt"
	"time"

	"crossbot/internal/config"
	"crossbot/internal/engine"
	"crossbot/internal/gateway"
	"crossbot/internal/gateway/notifier"
	"crossbot/internal/gateway/venue"
	"crossbot/internal/logger"
	"crossbot/internal/market"
	"crossbot/internal/metrics"
	"crossbot/internal/order"
	"crossbot/internal/pipeline"
	"crossbot/internal/pipeline/factory"
	"crossbot/internal/pkg/circuit"
	"crossbot/internal/scheduler"
	"crossbot/internal/session"
	"crossbot/internal/store"
	"crossbot/internal/store/journal"
	"crossbot/internal/strategy"
	livehttp "crossbot/internal/transport/http/live"
)

// AppBuilder 按配置组装依赖；各构造函数可通过 Option 替换，测试时注入假实现。
type AppBuilder struct {
	cfg *config.Config

	marketFn   func(config.MarketConfig) (gateway.Market, error)
	venueFn    func(*config.Config, gateway.Market) (venue.Venue, error)
	journalFn  func(string) (*journal.Store, error)
	redisFn    func(context.Context, notifier.RedisConfig) (*notifier.RedisPublisher, error)
	telegramFn func(token, chatID string) notifier.TextNotifier
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		marketFn:   gateway.NewMarketFromConfig,
		venueFn:    gateway.NewVenueFromConfig,
		journalFn:  journal.Open,
		redisFn:    notifier.NewRedisPublisher,
		telegramFn: func(token, chatID string) notifier.TextNotifier { return notifier.NewTelegram(token, chatID) },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// WithMarket 使用给定的行情提供方，跳过按配置构造。
func WithMarket(m gateway.Market) AppBuilderOption {
	return func(b *AppBuilder) {
		b.marketFn = func(config.MarketConfig) (gateway.Market, error) { return m, nil }
	}
}

func WithVenue(v venue.Venue) AppBuilderOption {
	return func(b *AppBuilder) {
		b.venueFn = func(*config.Config, gateway.Market) (venue.Venue, error) { return v, nil }
	}
}

func WithTelegram(n notifier.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) {
		b.telegramFn = func(string, string) notifier.TextNotifier { return n }
	}
}

// Build 构造 App，但不做连通性检查，也不启动任何循环。
func (b *AppBuilder) Build(ctx context.Context) (app *App, err error) {
	if b == nil || b.cfg == nil {
		return nil, fmt.Errorf("app builder requires config")
	}
	cfg := b.cfg
	var closers []func() error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
		}
	}()

	mkt, err := b.marketFn(cfg.Market)
	if err != nil {
		return nil, fmt.Errorf("market provider: %w", err)
	}
	v, err := b.venueFn(cfg, mkt)
	if err != nil {
		return nil, fmt.Errorf("execution venue: %w", err)
	}

	m := metrics.New()
	sinks := []order.Sink{m}
	var jr *journal.Store
	if cfg.Journal.Enabled {
		jr, err = b.journalFn(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("order journal: %w", err)
		}
		closers = append(closers, jr.Close)
		sinks = append(sinks, jr)
	}
	if tg := cfg.Notify.Telegram; tg.Enabled {
		sinks = append(sinks, notifier.NewTextSink(b.telegramFn(tg.BotToken, tg.ChatID)))
	}
	if rc := cfg.Notify.Redis; rc.Enabled {
		pub, err := b.redisFn(ctx, notifier.RedisConfig{Addr: rc.Addr, Password: rc.Password, DB: rc.DB, Channel: rc.Channel})
		if err != nil {
			return nil, fmt.Errorf("redis publisher: %w", err)
		}
		closers = append(closers, pub.Close)
		sinks = append(sinks, pub)
	}

	windows := store.NewMemoryKlineStore()
	pf := &factory.Factory{
		Feed:     mkt,
		Windows:  windows,
		Interval: cfg.Trading.Interval,
		Limit:    cfg.Kline.Window,
		Timeout:  cfg.Market.Timeout(),
	}
	pipe, err := pf.Build(cfg.Indicators)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	indicators, err := pf.BuildIndicators(cfg.Indicators)
	if err != nil {
		return nil, fmt.Errorf("build indicator pipeline: %w", err)
	}
	cross := strategy.NewCrossover(strategy.ThresholdsFrom(cfg.Indicators))
	dispatcher := order.NewDispatcher(v, sinks...)

	eng, err := engine.New(engine.Options{
		Symbols:          cfg.Trading.SymbolsUpper(),
		Interval:         cfg.Trading.Interval,
		Workers:          cfg.Engine.Workers,
		Dedupe:           cfg.Trading.DedupeSignals,
		BreakerThreshold: cfg.Engine.BreakerThreshold,
		BreakerCooldown:  time.Duration(cfg.Engine.BreakerCooldownSeconds) * time.Second,
	}, engine.Deps{
		Pipeline:   pipe,
		Evaluator:  cross,
		Quotes:     mkt,
		Builder:    order.NewBuilder(order.RiskFrom(cfg.Trading)),
		Dispatcher: dispatcher,
		Observers:  []engine.Observer{m},
	})
	if err != nil {
		return nil, err
	}
	eng.Breakers().OnStateChange(func(name string, from, to circuit.State) {
		if to == circuit.StateOpen {
			logger.Warnf("[breaker] %s feed %s -> %s", name, from, to)
		} else {
			logger.Infof("[breaker] %s feed %s -> %s", name, from, to)
		}
		m.ObserveBreaker(name, from, to)
	})

	win, err := session.FromConfig(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("session window: %w", err)
	}
	sched := scheduler.NewCycleScheduler(win, cfg.Trading.PollInterval())
	sched.OnStateChange = m.ObserveScheduler

	var srv *livehttp.Server
	if cfg.App.HTTPAddr != "" {
		router := &livehttp.Router{
			Cycles:    eng,
			Scheduler: sched,
			Windows:   windows,
			Scanner:   &signalScanner{pipe: indicators, cross: cross},
			Venue:     v.Name(),
		}
		if jr != nil {
			router.Journal = jr
		}
		srv, err = livehttp.NewServer(livehttp.ServerConfig{Addr: cfg.App.HTTPAddr, Router: router, Metrics: m.Handler()})
		if err != nil {
			return nil, fmt.Errorf("live http server: %w", err)
		}
	}

	return &App{
		cfg:       cfg,
		market:    mkt,
		venue:     v,
		engine:    eng,
		scheduler: sched,
		window:    win,
		liveHTTP:  srv,
		metrics:   m,
		journal:   jr,
		closers:   closers,
		Summary:   newStartupSummary(cfg, win, v.Name(), len(sinks), pipe.Describe()),
	}, nil
}

// signalScanner 在给定窗口上重算指标，并返回所有相邻有效行的交叉。
type signalScanner struct {
	pipe  *pipeline.Pipeline
	cross *strategy.Crossover
}

func (s *signalScanner) Scan(ctx context.Context, candles []market.Candle) ([]strategy.Hit, error) {
	ac := pipeline.NewContext("", "")
	ac.SetCandles(candles)
	rows, err := s.pipe.Compute(ctx, ac)
	if err != nil {
		return nil, err
	}
	return s.cross.Scan(rows), nil
}
