package market

import (
	"context"
	"errors"
	"time"
)

// ErrNoData 表示数据源当前没有该品种的 K 线。
var ErrNoData = errors.New("no candles available")

// Feed 提供按时间升序（最新在末尾）的 K 线窗口。
type Feed interface {
	Name() string

	FetchCandles(ctx context.Context, symbol, interval string, count int) ([]Candle, error)
}

// Quote 是某品种当前的最优买卖价。
type Quote struct {
	Symbol string
	Bid    float64
	Ask    float64
	Time   time.Time
}

func (q Quote) Valid() bool {
	return q.Bid > 0 && q.Ask > 0 && q.Ask >= q.Bid
}

// SymbolInfo 描述品种的最小价格变动单位。
type SymbolInfo struct {
	Symbol string
	Point  float64
}

type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (Quote, error)

	SymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error)
}

// Pinger 用于启动阶段的连通性检查。
type Pinger interface {
	Ping(ctx context.Context) error
}
