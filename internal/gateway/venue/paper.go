package venue

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"crossbot/internal/market"
	"crossbot/internal/order"
	"crossbot/internal/strategy"

	"github.com/shopspring/decimal"
)

// Paper 是进程内的模拟执行通道：提交时重新读取报价，按 ask/bid 加上不利滑点成交。
// 成交价偏离请求入场价超过 deviation 个 point 时按 requote 拒单。
type Paper struct {
	quotes   market.QuoteSource
	slippage int
	seq      atomic.Int64
}

func NewPaper(quotes market.QuoteSource, slippagePoints int) *Paper {
	if slippagePoints < 0 {
		slippagePoints = 0
	}
	return &Paper{quotes: quotes, slippage: slippagePoints}
}

func (p *Paper) Name() string { return "paper" }

// Ping 确认报价源可用。
func (p *Paper) Ping(ctx context.Context) error {
	if p.quotes == nil {
		return fmt.Errorf("paper venue: quote source unavailable")
	}
	if pinger, ok := p.quotes.(market.Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

func (p *Paper) Submit(ctx context.Context, req order.Request) (order.Receipt, error) {
	if req.Volume <= 0 {
		return reject(CodeInvalidVolume, fmt.Sprintf("invalid volume %g", req.Volume)), nil
	}
	if req.Direction != strategy.Buy && req.Direction != strategy.Sell {
		return reject(CodeRejected, "unknown direction "+req.Direction.String()), nil
	}
	if p.quotes == nil {
		return order.Receipt{}, fmt.Errorf("paper venue: quote source unavailable")
	}
	quote, err := p.quotes.Quote(ctx, req.Symbol)
	if err != nil {
		return order.Receipt{}, fmt.Errorf("paper venue quote %s: %w", req.Symbol, err)
	}
	if !quote.Valid() {
		return reject(CodeNoQuote, "no valid quote for "+req.Symbol), nil
	}

	point := decimal.NewFromFloat(req.Point)
	slip := point.Mul(decimal.NewFromInt(int64(p.slippage)))
	var fill decimal.Decimal
	if req.Direction == strategy.Buy {
		fill = decimal.NewFromFloat(quote.Ask).Add(slip)
	} else {
		fill = decimal.NewFromFloat(quote.Bid).Sub(slip)
	}
	if req.Point > 0 {
		diff := fill.Sub(decimal.NewFromFloat(req.EntryPrice)).Abs()
		allowed := point.Mul(decimal.NewFromInt(int64(req.Deviation)))
		if diff.GreaterThan(allowed) {
			moved := diff.Div(point).Round(1).InexactFloat64()
			return reject(CodeRequote, fmt.Sprintf("price moved %.1f points (max %d)", math.Abs(moved), req.Deviation)), nil
		}
	}

	id := p.seq.Add(1)
	return order.Receipt{
		Status:  order.StatusDone,
		Code:    "filled",
		Price:   fill.InexactFloat64(),
		OrderID: "paper-" + strconv.FormatInt(id, 10),
		Message: "filled by paper venue",
	}, nil
}

func reject(code, msg string) order.Receipt {
	return order.Receipt{Status: CodeRejected, Code: code, Message: msg}
}
