package middlewares

import (
	"context"
	"fmt"
	"time"

	"crossbot/internal/market"
	"crossbot/internal/pipeline"
	"crossbot/internal/store"
)

// CandleFetcherName 是 K 线拉取中间件的默认名称，出现在 MiddlewareError.Middleware 中。
const CandleFetcherName = "kline_fetcher"

// CandleFetcherConfig 控制 k 线抓取。
type CandleFetcherConfig struct {
	Name     string
	Stage    int
	Timeout  time.Duration
	Interval string
	Limit    int
}

// CandleFetcher 从数据源拉取窗口，规范化后写入 AnalysisContext。
// 窗口每轮整体替换，不与上一轮合并。
type CandleFetcher struct {
	meta     pipeline.MiddlewareMeta
	feed     market.Feed
	windows  store.WindowStore
	interval string
	limit    int
}

// NewCandleFetcher 构造中间件；windows 可为 nil。
func NewCandleFetcher(cfg CandleFetcherConfig, feed market.Feed, windows store.WindowStore) *CandleFetcher {
	if cfg.Limit <= 0 {
		cfg.Limit = market.DefaultWindow
	}
	return &CandleFetcher{
		meta: pipeline.MiddlewareMeta{
			Name:     nameOrDefault(cfg.Name, CandleFetcherName),
			Stage:    cfg.Stage,
			Critical: true,
			Timeout:  cfg.Timeout,
		},
		feed:     feed,
		windows:  windows,
		interval: cfg.Interval,
		limit:    cfg.Limit,
	}
}

// Meta 实现 pipeline.Middleware。
func (c *CandleFetcher) Meta() pipeline.MiddlewareMeta { return c.meta }

// Handle 拉取数据。
func (c *CandleFetcher) Handle(ctx context.Context, ac *pipeline.AnalysisContext) error {
	if c.feed == nil {
		return fmt.Errorf("market feed unavailable")
	}
	if ac == nil {
		return fmt.Errorf("nil analysis context")
	}
	interval := ac.Interval
	if interval == "" {
		interval = c.interval
	}
	raw, err := c.feed.FetchCandles(ctx, ac.Symbol, interval, c.limit)
	if err != nil {
		return fmt.Errorf("fetch %s %s: %w", ac.Symbol, interval, err)
	}
	window := market.NormalizeWindow(raw, c.limit)
	if len(window) == 0 {
		return fmt.Errorf("fetch %s %s: %w", ac.Symbol, interval, market.ErrNoData)
	}
	ac.SetCandles(window)
	if c.windows != nil {
		if err := c.windows.Replace(ctx, ac.Symbol, interval, window); err != nil {
			ac.AddWarning(fmt.Sprintf("window store: %v", err))
		}
	}
	return nil
}
