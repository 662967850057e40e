// Package binance 基于 go-binance SDK 的 USDT 永续行情源与下单通道。
package binance

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"crossbot/internal/market"
	"crossbot/internal/pkg/convert"

	"github.com/adshao/go-binance/v2/futures"
)

const maxHistoryLimit = 1500

// Source 实现 market.Feed、market.QuoteSource 以及下单通道。
type Source struct {
	cfg    Config
	client *futures.Client

	mu    sync.Mutex
	ticks map[string]float64
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	client := futures.NewClient(final.APIKey, final.APISecret)
	client.BaseURL = final.RESTBaseURL
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Source{
		cfg:    final,
		client: client,
		ticks:  make(map[string]float64),
	}, nil
}

func (s *Source) Name() string { return "binance" }

func (s *Source) Ping(ctx context.Context) error {
	if err := s.client.NewPingService().Do(ctx); err != nil {
		return fmt.Errorf("binance ping: %w", describe(err))
	}
	return nil
}

// FetchCandles 拉取最近 count 根已收盘 K 线；仍在形成中的最后一根会被丢弃。
func (s *Source) FetchCandles(ctx context.Context, symbol, interval string, count int) ([]market.Candle, error) {
	if count <= 0 {
		count = market.DefaultWindow
	}
	if count > maxHistoryLimit {
		count = maxHistoryLimit
	}
	clean := exchangeSymbol(symbol)
	if clean == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	// 多取一根，丢弃未收盘 K 线后仍能凑满窗口。
	limit := count + 1
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	kls, err := s.client.NewKlinesService().Symbol(clean).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", clean, describe(err))
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      convert.ParseFloat(kl.Open),
			High:      convert.ParseFloat(kl.High),
			Low:       convert.ParseFloat(kl.Low),
			Close:     convert.ParseFloat(kl.Close),
			Volume:    convert.ParseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	if dur, ok := market.IntervalDuration(interval); ok {
		out = market.DropForming(out, dur, time.Now())
	}
	if len(out) > count {
		out = out[len(out)-count:]
	}
	if len(out) == 0 {
		return nil, market.ErrNoData
	}
	return out, nil
}

// Quote 读取盘口最优买卖价。
func (s *Source) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	clean := exchangeSymbol(symbol)
	tickers, err := s.client.NewListBookTickersService().Symbol(clean).Do(ctx)
	if err != nil {
		return market.Quote{}, fmt.Errorf("binance book ticker %s: %w", clean, describe(err))
	}
	for _, t := range tickers {
		if t == nil || !strings.EqualFold(t.Symbol, clean) {
			continue
		}
		q := market.Quote{
			Symbol: symbol,
			Bid:    convert.ParseFloat(t.BidPrice),
			Ask:    convert.ParseFloat(t.AskPrice),
			Time:   time.Now().UTC(),
		}
		if !q.Valid() {
			break
		}
		return q, nil
	}
	return market.Quote{}, fmt.Errorf("binance book ticker %s: %w", clean, market.ErrNoData)
}

// SymbolInfo 返回交易所 PRICE_FILTER 的 tickSize，作为 point。结果按品种缓存。
func (s *Source) SymbolInfo(ctx context.Context, symbol string) (market.SymbolInfo, error) {
	clean := exchangeSymbol(symbol)
	s.mu.Lock()
	tick, ok := s.ticks[clean]
	s.mu.Unlock()
	if ok {
		return market.SymbolInfo{Symbol: symbol, Point: tick}, nil
	}

	info, err := s.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return market.SymbolInfo{}, fmt.Errorf("binance exchange info: %w", describe(err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sym := range info.Symbols {
		pf := sym.PriceFilter()
		if pf == nil {
			continue
		}
		if v := convert.ParseFloat(pf.TickSize); v > 0 {
			s.ticks[strings.ToUpper(sym.Symbol)] = v
		}
	}
	tick, ok = s.ticks[clean]
	if !ok {
		return market.SymbolInfo{}, fmt.Errorf("binance symbol %s: tick size unavailable", clean)
	}
	return market.SymbolInfo{Symbol: symbol, Point: tick}, nil
}

// exchangeSymbol 把 "BTC/USDT"、"btcusdt:usdt" 等写法转为交易所格式 BTCUSDT。
func exchangeSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	return strings.ReplaceAll(s, "/", "")
}
