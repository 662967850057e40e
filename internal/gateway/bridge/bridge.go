package bridge

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crossbot/internal/market"
	"crossbot/internal/order"
)

// RetcodeDone 为终端的 TRADE_RETCODE_DONE。
const RetcodeDone = 10009

// 市价单固定 GTC + RETURN（部分成交时剩余量保留在终端）。
const (
	timeGTC       = "gtc"
	fillingReturn = "return"
)

// Bridge 同时实现 market.Feed、market.QuoteSource 与下单通道。
type Bridge struct {
	client *Client
}

func New(client *Client) *Bridge {
	return &Bridge{client: client}
}

func (b *Bridge) Name() string { return "bridge" }

// Ping 检查终端是否已连接。
func (b *Bridge) Ping(ctx context.Context) error {
	res, err := b.client.get(ctx, "/ping", nil)
	if err != nil {
		return err
	}
	if ok := res.Get("ok"); ok.Exists() && !ok.Bool() {
		return fmt.Errorf("bridge terminal not ready: %s", res.Get("error").String())
	}
	return nil
}

// FetchCandles 拉取最近 count 根 K 线，包含当前未收盘的一根。
func (b *Bridge) FetchCandles(ctx context.Context, symbol, interval string, count int) ([]market.Candle, error) {
	tf, err := Timeframe(interval)
	if err != nil {
		return nil, err
	}
	dur, _ := market.IntervalDuration(interval)
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("timeframe", tf)
	q.Set("count", strconv.Itoa(count))
	res, err := b.client.get(ctx, "/rates", q)
	if err != nil {
		return nil, err
	}
	rates := res.Get("rates")
	if !rates.Exists() && res.IsArray() {
		rates = res
	}
	items := rates.Array()
	if len(items) == 0 {
		return nil, market.ErrNoData
	}
	out := make([]market.Candle, 0, len(items))
	for _, item := range items {
		openMs := item.Get("time").Int() * 1000
		c := market.Candle{
			OpenTime: openMs,
			Open:     item.Get("open").Float(),
			High:     item.Get("high").Float(),
			Low:      item.Get("low").Float(),
			Close:    item.Get("close").Float(),
			Volume:   item.Get("tick_volume").Float(),
		}
		if dur > 0 && openMs > 0 {
			c.CloseTime = openMs + dur.Milliseconds() - 1
		}
		out = append(out, c)
	}
	return out, nil
}

// Quote 读取最新 bid/ask。
func (b *Bridge) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	res, err := b.client.get(ctx, "/tick", q)
	if err != nil {
		return market.Quote{}, err
	}
	quote := market.Quote{
		Symbol: symbol,
		Bid:    res.Get("bid").Float(),
		Ask:    res.Get("ask").Float(),
	}
	if ts := res.Get("time").Int(); ts > 0 {
		quote.Time = time.Unix(ts, 0).UTC()
	}
	if !quote.Valid() {
		return quote, fmt.Errorf("bridge tick %s: %w", symbol, market.ErrNoData)
	}
	return quote, nil
}

// SymbolInfo 读取最小价格变动。
func (b *Bridge) SymbolInfo(ctx context.Context, symbol string) (market.SymbolInfo, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	res, err := b.client.get(ctx, "/symbol", q)
	if err != nil {
		return market.SymbolInfo{}, err
	}
	point := res.Get("point").Float()
	if point <= 0 {
		return market.SymbolInfo{}, fmt.Errorf("bridge symbol %s: missing point", symbol)
	}
	return market.SymbolInfo{Symbol: symbol, Point: point}, nil
}

type dealPayload struct {
	Action      string  `json:"action"`
	Symbol      string  `json:"symbol"`
	Volume      float64 `json:"volume"`
	Type        string  `json:"type"`
	Price       float64 `json:"price"`
	SL          float64 `json:"sl"`
	TP          float64 `json:"tp"`
	Deviation   int     `json:"deviation"`
	Magic       int64   `json:"magic"`
	Comment     string  `json:"comment"`
	TypeTime    string  `json:"type_time"`
	TypeFilling string  `json:"type_filling"`
	ClientID    string  `json:"client_id,omitempty"`
}

// Submit 发送市价成交请求。retcode=10009 视为成交，其余 retcode 原样带回。
func (b *Bridge) Submit(ctx context.Context, req order.Request) (order.Receipt, error) {
	res, err := b.client.post(ctx, "/order", dealPayload{
		Action:      "deal",
		Symbol:      req.Symbol,
		Volume:      req.Volume,
		Type:        req.Side,
		Price:       req.EntryPrice,
		SL:          req.StopLoss,
		TP:          req.TakeProfit,
		Deviation:   req.Deviation,
		Magic:       req.Magic,
		Comment:     req.Tag,
		TypeTime:    timeGTC,
		TypeFilling: fillingReturn,
		ClientID:    req.ClientID,
	})
	if err != nil {
		return order.Receipt{}, err
	}
	code := res.Get("retcode").Int()
	rec := order.Receipt{
		Code:    strconv.FormatInt(code, 10),
		Price:   res.Get("price").Float(),
		Message: res.Get("comment").String(),
	}
	if id := res.Get("order"); id.Exists() && id.Int() != 0 {
		rec.OrderID = strconv.FormatInt(id.Int(), 10)
	}
	if code == RetcodeDone {
		rec.Status = order.StatusDone
	} else {
		rec.Status = "rejected"
		if rec.Message == "" {
			rec.Message = fmt.Sprintf("order_send failed, retcode=%d", code)
		}
	}
	return rec, nil
}

// Timeframe 把 "15m"/"1h"/"1d"/"1w" 转为终端时间框架名（M15/H1/D1/W1）。
func Timeframe(interval string) (string, error) {
	interval = strings.ToLower(strings.TrimSpace(interval))
	if len(interval) < 2 {
		return "", fmt.Errorf("invalid interval %q", interval)
	}
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid interval %q", interval)
	}
	switch interval[len(interval)-1] {
	case 'm':
		return "M" + strconv.Itoa(n), nil
	case 'h':
		return "H" + strconv.Itoa(n), nil
	case 'd':
		return "D" + strconv.Itoa(n), nil
	case 'w':
		return "W" + strconv.Itoa(n), nil
	default:
		return "", fmt.Errorf("invalid interval %q", interval)
	}
}
