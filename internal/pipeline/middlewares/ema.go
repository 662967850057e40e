package middlewares

import (
	"context"
	"fmt"
	"time"

	"crossbot/internal/pipeline"

	talib "github.com/markcheno/go-talib"
)

// EMACrossConfig 控制快慢 EMA 参数。
type EMACrossConfig struct {
	Name    string
	Stage   int
	Timeout time.Duration
	Fast    int
	Slow    int
}

// EMACrossMiddleware 输出快慢两条 EMA 序列。
type EMACrossMiddleware struct {
	meta pipeline.MiddlewareMeta
	fast int
	slow int
}

// NewEMACross 构造 EMA 中间件。
func NewEMACross(cfg EMACrossConfig) *EMACrossMiddleware {
	if cfg.Fast <= 0 {
		cfg.Fast = 12
	}
	if cfg.Slow <= 0 {
		cfg.Slow = 26
	}
	return &EMACrossMiddleware{
		meta: pipeline.MiddlewareMeta{
			Name:     nameOrDefault(cfg.Name, "ema_cross"),
			Stage:    cfg.Stage,
			Critical: true,
			Timeout:  cfg.Timeout,
		},
		fast: cfg.Fast,
		slow: cfg.Slow,
	}
}

// Meta 实现接口。
func (m *EMACrossMiddleware) Meta() pipeline.MiddlewareMeta { return m.meta }

// Handle 计算 EMA。talib 以前 period 根收盘价的简单均值作为种子，
// 之后按 2/(period+1) 递推；种子之前的位置为 0，由 firstValid 标记为未定义。
func (m *EMACrossMiddleware) Handle(ctx context.Context, ac *pipeline.AnalysisContext) error {
	longest := m.slow
	if m.fast > longest {
		longest = m.fast
	}
	closes, err := requireCandles(ac, longest)
	if err != nil {
		return fmt.Errorf("ema_cross: %w", err)
	}
	ac.SetSeries(pipeline.SeriesEMAFast, talib.Ema(closes, m.fast), m.fast-1)
	ac.SetSeries(pipeline.SeriesEMASlow, talib.Ema(closes, m.slow), m.slow-1)
	return nil
}
