package middlewares

import (
	"context"
	"fmt"
	"time"

	"crossbot/internal/pipeline"

	talib "github.com/markcheno/go-talib"
)

// RSIConfig 控制 RSI 参数。
type RSIConfig struct {
	Name    string
	Stage   int
	Timeout time.Duration
	Period  int
}

// RSIMiddleware 输出 Wilder RSI 序列，取值范围 [0,100]。
type RSIMiddleware struct {
	meta   pipeline.MiddlewareMeta
	period int
}

// NewRSIMiddleware 构造 RSI 中间件。
func NewRSIMiddleware(cfg RSIConfig) *RSIMiddleware {
	if cfg.Period <= 0 {
		cfg.Period = 14
	}
	return &RSIMiddleware{
		meta: pipeline.MiddlewareMeta{
			Name:     nameOrDefault(cfg.Name, "rsi"),
			Stage:    cfg.Stage,
			Critical: true,
			Timeout:  cfg.Timeout,
		},
		period: cfg.Period,
	}
}

// Meta 实现接口。
func (m *RSIMiddleware) Meta() pipeline.MiddlewareMeta { return m.meta }

// Handle 计算 RSI。第一个值需要 period 个价差，即 period+1 根 K 线。
func (m *RSIMiddleware) Handle(ctx context.Context, ac *pipeline.AnalysisContext) error {
	closes, err := requireCandles(ac, m.period+1)
	if err != nil {
		return fmt.Errorf("rsi: %w", err)
	}
	ac.SetSeries(pipeline.SeriesRSI, talib.Rsi(closes, m.period), m.period)
	return nil
}
