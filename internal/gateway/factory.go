package gateway

import (
	"fmt"
	"strings"

	"crossbot/internal/config"
	"crossbot/internal/gateway/binance"
	"crossbot/internal/gateway/bridge"
	"crossbot/internal/gateway/venue"
	"crossbot/internal/market"
)

// Market 是行情提供方：K 线、报价、连通性检查。
type Market interface {
	market.Feed
	market.QuoteSource
	market.Pinger
}

// NewMarketFromConfig 按 market.provider 构造行情提供方。
func NewMarketFromConfig(cfg config.MarketConfig) (Market, error) {
	switch strings.ToLower(cfg.Provider) {
	case "binance":
		return binance.New(binance.Config{
			RESTBaseURL: cfg.RESTBaseURL,
			HTTPTimeout: cfg.Timeout(),
			APIKey:      cfg.APIKey,
			APISecret:   cfg.APISecret,
		})
	case "", "bridge":
		client, err := bridge.NewClient(bridge.Config{
			BaseURL: cfg.BridgeURL,
			Timeout: cfg.Timeout(),
			APIKey:  cfg.APIKey,
		})
		if err != nil {
			return nil, err
		}
		return bridge.New(client), nil
	default:
		return nil, fmt.Errorf("unsupported market provider: %s", cfg.Provider)
	}
}

// NewVenueFromConfig 按 execution.venue 构造执行通道。paper 使用行情提供方的报价模拟成交；
// 其余通道必须与行情提供方一致，直接复用同一个客户端。
func NewVenueFromConfig(cfg *config.Config, mkt Market) (venue.Venue, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	name := strings.ToLower(cfg.Execution.Venue)
	switch name {
	case "", "paper":
		return venue.NewPaper(mkt, cfg.Market.PaperSlippagePoints), nil
	case "binance", "bridge":
		if !strings.EqualFold(name, cfg.Market.Provider) {
			return nil, fmt.Errorf("execution venue %s requires market.provider=%s", name, name)
		}
		v, ok := mkt.(venue.Venue)
		if !ok {
			return nil, fmt.Errorf("market provider %s cannot execute orders", cfg.Market.Provider)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported execution venue: %s", cfg.Execution.Venue)
	}
}
