package factory

import (
	"fmt"
	"time"

	"crossbot/internal/config"
	"crossbot/internal/market"
	"crossbot/internal/pipeline"
	"crossbot/internal/pipeline/middlewares"
	"crossbot/internal/store"
)

// Factory 按指标配置组装分析流水线：stage 0 拉取 K 线，stage 1 并行计算指标。
type Factory struct {
	Feed     market.Feed
	Windows  store.WindowStore
	Interval string
	Limit    int
	Timeout  time.Duration
}

// Build 返回包含 K 线拉取的完整流水线。
func (f *Factory) Build(cfg config.IndicatorConfig) (*pipeline.Pipeline, error) {
	if f.Feed == nil {
		return nil, fmt.Errorf("factory: market feed is required")
	}
	indicators, err := f.indicators(cfg)
	if err != nil {
		return nil, err
	}
	fetcher := middlewares.NewCandleFetcher(middlewares.CandleFetcherConfig{
		Stage:    0,
		Timeout:  f.Timeout,
		Interval: f.Interval,
		Limit:    f.Limit,
	}, f.Feed, f.Windows)
	return pipeline.New("crossover", append([]pipeline.Middleware{fetcher}, indicators...)...), nil
}

// BuildIndicators 只包含指标计算，调用方需事先 SetCandles。
func (f *Factory) BuildIndicators(cfg config.IndicatorConfig) (*pipeline.Pipeline, error) {
	indicators, err := f.indicators(cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.New("indicators", indicators...), nil
}

func (f *Factory) indicators(cfg config.IndicatorConfig) ([]pipeline.Middleware, error) {
	if cfg.EMAFast <= 0 || cfg.EMASlow <= 0 || cfg.EMAFast >= cfg.EMASlow {
		return nil, fmt.Errorf("ema 需满足 0 < fast < slow (fast=%d slow=%d)", cfg.EMAFast, cfg.EMASlow)
	}
	if cfg.RSIPeriod < 2 {
		return nil, fmt.Errorf("rsi period 需 >= 2 (got %d)", cfg.RSIPeriod)
	}
	if cfg.MACDFast <= 0 || cfg.MACDSlow <= 0 || cfg.MACDSignal <= 0 {
		return nil, fmt.Errorf("macd 需设置 fast/slow/signal")
	}
	return []pipeline.Middleware{
		middlewares.NewEMACross(middlewares.EMACrossConfig{
			Stage:   1,
			Timeout: f.Timeout,
			Fast:    cfg.EMAFast,
			Slow:    cfg.EMASlow,
		}),
		middlewares.NewRSIMiddleware(middlewares.RSIConfig{
			Stage:   1,
			Timeout: f.Timeout,
			Period:  cfg.RSIPeriod,
		}),
		middlewares.NewMACDMiddleware(middlewares.MACDConfig{
			Stage:   1,
			Timeout: f.Timeout,
			Fast:    cfg.MACDFast,
			Slow:    cfg.MACDSlow,
			Signal:  cfg.MACDSignal,
		}),
	}, nil
}
