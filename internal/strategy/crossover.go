package strategy

import (
	"errors"

	"crossbot/internal/config"
	"crossbot/internal/pipeline"
)

// ErrNotEnoughRows 表示有效行不足两条，评估器不应被调用。
var ErrNotEnoughRows = errors.New("need two valid indicator rows")

// Thresholds 是 RSI 的超买/超卖线。
type Thresholds struct {
	Overbought float64
	Oversold   float64
}

// DefaultThresholds 70/30。
func DefaultThresholds() Thresholds {
	return Thresholds{Overbought: 70, Oversold: 30}
}

// ThresholdsFrom 从指标配置读取阈值。
func ThresholdsFrom(cfg config.IndicatorConfig) Thresholds {
	return Thresholds{Overbought: cfg.RSIOverbought, Oversold: cfg.RSIOversold}
}

// Mirror 返回关于 50 对称的阈值，用于镜像序列的检验。
func (t Thresholds) Mirror() Thresholds {
	return Thresholds{Overbought: 100 - t.Oversold, Oversold: 100 - t.Overbought}
}

// Crossover 在相邻两条有效行上检测 EMA 与 MACD 同向交叉，并以 RSI 过滤。
type Crossover struct {
	th Thresholds
}

func NewCrossover(th Thresholds) *Crossover {
	return &Crossover{th: th}
}

func (c *Crossover) Thresholds() Thresholds { return c.th }

// Evaluate 比较 prev/last。BUY 先于 SELL 判断，两者同时成立时返回 BUY。
func (c *Crossover) Evaluate(prev, last pipeline.IndicatorRow) Signal {
	if c.buy(prev, last) {
		return Buy
	}
	if c.sell(prev, last) {
		return Sell
	}
	return None
}

func (c *Crossover) buy(prev, last pipeline.IndicatorRow) bool {
	emaUp := prev.EMAFast < prev.EMASlow && last.EMAFast > last.EMASlow
	macdUp := prev.MACD < prev.MACDSignal && last.MACD > last.MACDSignal
	return emaUp && macdUp && last.RSI < c.th.Overbought
}

func (c *Crossover) sell(prev, last pipeline.IndicatorRow) bool {
	emaDown := prev.EMAFast > prev.EMASlow && last.EMAFast < last.EMASlow
	macdDown := prev.MACD > prev.MACDSignal && last.MACD < last.MACDSignal
	return emaDown && macdDown && last.RSI > c.th.Oversold
}

// EvaluateRows 取最近两条有效行评估，同时返回 last 以便调用方记录信号时间。
func (c *Crossover) EvaluateRows(rows []pipeline.IndicatorRow) (Signal, pipeline.IndicatorRow, error) {
	prev, last, ok := pipeline.LastTwo(rows)
	if !ok {
		return None, pipeline.IndicatorRow{}, ErrNotEnoughRows
	}
	return c.Evaluate(prev, last), last, nil
}

// Hit 是 Scan 命中的一次信号，Index 指向 last 行在窗口中的下标。
type Hit struct {
	Index  int
	Time   int64
	Signal Signal
}

// Scan 对窗口内每对相邻有效行评估，返回所有非 None 的结果。
func (c *Crossover) Scan(rows []pipeline.IndicatorRow) []Hit {
	var hits []Hit
	prevIdx := -1
	for i, r := range rows {
		if !r.Valid {
			continue
		}
		if prevIdx >= 0 {
			if sig := c.Evaluate(rows[prevIdx], r); sig != None {
				hits = append(hits, Hit{Index: i, Time: r.Time, Signal: sig})
			}
		}
		prevIdx = i
	}
	return hits
}
