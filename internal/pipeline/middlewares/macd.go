package middlewares

import (
	"context"
	"fmt"
	"time"

	"crossbot/internal/pipeline"

	talib "github.com/markcheno/go-talib"
)

// MACDConfig 定义 MACD 中间件参数。
type MACDConfig struct {
	Name    string
	Stage   int
	Timeout time.Duration
	Fast    int
	Slow    int
	Signal  int
}

// MACDMiddleware 输出 MACD 主线与信号线。
type MACDMiddleware struct {
	meta   pipeline.MiddlewareMeta
	fast   int
	slow   int
	signal int
}

// NewMACDMiddleware 构造实例。
func NewMACDMiddleware(cfg MACDConfig) *MACDMiddleware {
	if cfg.Fast <= 0 {
		cfg.Fast = 12
	}
	if cfg.Slow <= 0 {
		cfg.Slow = 26
	}
	if cfg.Signal <= 0 {
		cfg.Signal = 9
	}
	return &MACDMiddleware{
		meta: pipeline.MiddlewareMeta{
			Name:     nameOrDefault(cfg.Name, "macd"),
			Stage:    cfg.Stage,
			Critical: true,
			Timeout:  cfg.Timeout,
		},
		fast:   cfg.Fast,
		slow:   cfg.Slow,
		signal: cfg.Signal,
	}
}

// Meta 实现接口。
func (m *MACDMiddleware) Meta() pipeline.MiddlewareMeta { return m.meta }

// Handle 计算 MACD。主线 = EMA(fast) - EMA(slow)，自两条 EMA 都有效起定义；
// 信号线是主线有效段上的 EMA(signal)。
func (m *MACDMiddleware) Handle(ctx context.Context, ac *pipeline.AnalysisContext) error {
	macd, signal, lineStart, signalStart, err := m.compute(ac)
	if err != nil {
		return fmt.Errorf("macd: %w", err)
	}
	ac.SetSeries(pipeline.SeriesMACD, macd, lineStart)
	ac.SetSeries(pipeline.SeriesMACDSignal, signal, signalStart)
	return nil
}

func (m *MACDMiddleware) compute(ac *pipeline.AnalysisContext) (macd, signal []float64, lineStart, signalStart int, err error) {
	longest := m.slow
	if m.fast > longest {
		longest = m.fast
	}
	lineStart = longest - 1
	signalStart = lineStart + m.signal - 1
	closes, err := requireCandles(ac, signalStart+1)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	fastEMA := talib.Ema(closes, m.fast)
	slowEMA := talib.Ema(closes, m.slow)
	macd = make([]float64, len(closes))
	for i := lineStart; i < len(closes); i++ {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	smoothed := talib.Ema(macd[lineStart:], m.signal)
	signal = make([]float64, len(closes))
	for i := signalStart; i < len(closes); i++ {
		signal[i] = smoothed[i-lineStart]
	}
	return macd, signal, lineStart, signalStart, nil
}
