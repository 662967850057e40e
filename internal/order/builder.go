package order

import (
	"fmt"
	"strings"

	"crossbot/internal/config"
	"crossbot/internal/market"
	"crossbot/internal/pkg/convert"
	"crossbot/internal/strategy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RiskParams 是固定的风险参数，距离以 point 计。
type RiskParams struct {
	Volume           float64
	StopLossPoints   int
	TakeProfitPoints int
	DeviationPoints  int
	Magic            int64
	Comment          string
}

// RiskFrom 从交易配置提取风险参数。
func RiskFrom(cfg config.TradingConfig) RiskParams {
	return RiskParams{
		Volume:           cfg.Volume,
		StopLossPoints:   cfg.StopLossPoints,
		TakeProfitPoints: cfg.TakeProfitPoints,
		DeviationPoints:  cfg.DeviationPoints,
		Magic:            cfg.Magic,
		Comment:          cfg.Comment,
	}
}

// Builder 把信号和报价转成下单请求，不做 I/O。
type Builder struct {
	risk  RiskParams
	newID func() string
}

func NewBuilder(risk RiskParams) *Builder {
	return &Builder{risk: risk, newID: uuid.NewString}
}

// Build 计算入场价与止损止盈：BUY 以 ask 入场，止损在下、止盈在上；SELL 以 bid 入场，方向相反。
// 价格按 point 的小数位取整。
func (b *Builder) Build(sig strategy.Signal, quote market.Quote, info market.SymbolInfo, signalTime int64) (Request, error) {
	if sig != strategy.Buy && sig != strategy.Sell {
		return Request{}, fmt.Errorf("build %s: signal %s: %w", quote.Symbol, sig, ErrContract)
	}
	if info.Point <= 0 {
		return Request{}, fmt.Errorf("build %s: point %g: %w", quote.Symbol, info.Point, ErrContract)
	}
	if b.risk.Volume <= 0 {
		return Request{}, fmt.Errorf("build %s: volume %g: %w", quote.Symbol, b.risk.Volume, ErrContract)
	}
	entryRaw := quote.Ask
	if sig == strategy.Sell {
		entryRaw = quote.Bid
	}
	if entryRaw <= 0 {
		return Request{}, fmt.Errorf("build %s: entry %g: %w", quote.Symbol, entryRaw, ErrContract)
	}

	point := decimal.NewFromFloat(info.Point)
	places := convert.Places(info.Point)
	entry := decimal.NewFromFloat(entryRaw).Round(places)
	slDist := point.Mul(decimal.NewFromInt(int64(b.risk.StopLossPoints)))
	tpDist := point.Mul(decimal.NewFromInt(int64(b.risk.TakeProfitPoints)))

	var sl, tp decimal.Decimal
	if sig == strategy.Buy {
		sl = entry.Sub(slDist)
		tp = entry.Add(tpDist)
	} else {
		sl = entry.Add(slDist)
		tp = entry.Sub(tpDist)
	}

	symbol := strings.ToUpper(strings.TrimSpace(info.Symbol))
	if symbol == "" {
		symbol = strings.ToUpper(strings.TrimSpace(quote.Symbol))
	}
	return Request{
		Symbol:     symbol,
		Direction:  sig,
		Side:       sig.Side(),
		Volume:     b.risk.Volume,
		EntryPrice: entry.InexactFloat64(),
		StopLoss:   sl.Round(places).InexactFloat64(),
		TakeProfit: tp.Round(places).InexactFloat64(),
		Point:      info.Point,
		Deviation:  b.risk.DeviationPoints,
		Magic:      b.risk.Magic,
		Tag:        b.risk.Comment,
		ClientID:   b.newID(),
		SignalTime: signalTime,
	}, nil
}
