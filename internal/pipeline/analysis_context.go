package pipeline

import (
	"errors"
	"strings"
	"sync"
	"time"

	"crossbot/internal/market"
)

// ErrInsufficientHistory 表示窗口长度不足以越过指标预热期。
var ErrInsufficientHistory = errors.New("insufficient candle history")

// 指标序列名称，同时也是 IndicatorRow 的字段来源。
const (
	SeriesEMAFast    = "ema_fast"
	SeriesEMASlow    = "ema_slow"
	SeriesRSI        = "rsi"
	SeriesMACD       = "macd"
	SeriesMACDSignal = "macd_signal"
)

var rowSeries = []string{SeriesEMAFast, SeriesEMASlow, SeriesRSI, SeriesMACD, SeriesMACDSignal}

type series struct {
	values     []float64
	firstValid int
}

// AnalysisContext 表示某个 symbol 在一次 Pipeline 执行过程中的上下文。
// 每轮新建，不跨轮复用。
type AnalysisContext struct {
	Symbol    string
	Interval  string
	TraceID   string
	StartedAt time.Time

	mu       sync.RWMutex
	candles  []market.Candle
	series   map[string]series
	warnings []string
}

// NewContext 初始化上下文。
func NewContext(symbol, interval string) *AnalysisContext {
	return &AnalysisContext{
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		Interval:  strings.ToLower(strings.TrimSpace(interval)),
		series:    make(map[string]series),
		StartedAt: time.Now(),
	}
}

// SetCandles 保存本轮的 K 线窗口（拷贝）。
func (ac *AnalysisContext) SetCandles(candles []market.Candle) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	dst := make([]market.Candle, len(candles))
	copy(dst, candles)
	ac.candles = dst
}

// Candles 读取 K 线窗口副本。
func (ac *AnalysisContext) Candles() []market.Candle {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	if len(ac.candles) == 0 {
		return nil
	}
	out := make([]market.Candle, len(ac.candles))
	copy(out, ac.candles)
	return out
}

// SetSeries 写入与窗口逐根对齐的指标序列，firstValid 之前的值视为未定义。
func (ac *AnalysisContext) SetSeries(name string, values []float64, firstValid int) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	dst := make([]float64, len(values))
	copy(dst, values)
	ac.series[name] = series{values: dst, firstValid: firstValid}
}

// Series 返回指定序列副本及其首个有效下标。
func (ac *AnalysisContext) Series(name string) ([]float64, int, bool) {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	s, ok := ac.series[name]
	if !ok {
		return nil, 0, false
	}
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out, s.firstValid, true
}

// Rows 按窗口下标组装指标行。缺失任一序列时所有行都无效。
func (ac *AnalysisContext) Rows() []IndicatorRow {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	n := len(ac.candles)
	if n == 0 {
		return nil
	}
	warmup := 0
	complete := true
	for _, name := range rowSeries {
		s, ok := ac.series[name]
		if !ok || len(s.values) != n {
			complete = false
			continue
		}
		if s.firstValid > warmup {
			warmup = s.firstValid
		}
	}
	pick := func(name string, i int) float64 {
		s, ok := ac.series[name]
		if !ok || i >= len(s.values) {
			return 0
		}
		return s.values[i]
	}
	rows := make([]IndicatorRow, n)
	for i, c := range ac.candles {
		rows[i] = IndicatorRow{
			Time:       c.Timestamp(),
			EMAFast:    pick(SeriesEMAFast, i),
			EMASlow:    pick(SeriesEMASlow, i),
			RSI:        pick(SeriesRSI, i),
			MACD:       pick(SeriesMACD, i),
			MACDSignal: pick(SeriesMACDSignal, i),
			Valid:      complete && i >= warmup,
		}
	}
	return rows
}

// AddWarning 记录警告。
func (ac *AnalysisContext) AddWarning(msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.warnings = append(ac.warnings, msg)
}

// Warnings 获取告警列表。
func (ac *AnalysisContext) Warnings() []string {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	out := make([]string, len(ac.warnings))
	copy(out, ac.warnings)
	return out
}
