package config

import (
	"fmt"
	"strings"

	"crossbot/internal/market"
	"crossbot/internal/pipeline"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Session.validate(); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Indicators.validate(); err != nil {
		return err
	}
	if err := c.Kline.validate(c.Indicators); err != nil {
		return err
	}
	if err := c.Engine.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Execution.validate(c.Market); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (s *SessionConfig) validate() error {
	if _, err := ParseClock(s.Start); err != nil {
		return fmt.Errorf("session.start: %w", err)
	}
	if _, err := ParseClock(s.End); err != nil {
		return fmt.Errorf("session.end: %w", err)
	}
	if s.UTCOffsetHours < -12 || s.UTCOffsetHours > 14 {
		return fmt.Errorf("session.utc_offset_hours must be in [-12,14]")
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if len(t.SymbolsUpper()) == 0 {
		return fmt.Errorf("trading.symbols requires at least one symbol")
	}
	if !IsValidInterval(t.Interval) {
		return fmt.Errorf("trading.interval %q is invalid", t.Interval)
	}
	if t.Volume <= 0 {
		return fmt.Errorf("trading.volume must be > 0")
	}
	if t.StopLossPoints <= 0 || t.TakeProfitPoints <= 0 {
		return fmt.Errorf("trading.stop_loss_points and trading.take_profit_points must be > 0")
	}
	if t.DeviationPoints < 0 {
		return fmt.Errorf("trading.deviation_points must be >= 0")
	}
	if t.PollIntervalSeconds <= 0 {
		return fmt.Errorf("trading.poll_interval_seconds must be > 0")
	}
	return nil
}

func (i *IndicatorConfig) validate() error {
	if i.EMAFast < 1 || i.EMASlow < 1 {
		return fmt.Errorf("indicators.ema_fast and indicators.ema_slow must be >= 1")
	}
	if i.EMAFast >= i.EMASlow {
		return fmt.Errorf("indicators.ema_fast (%d) must be < ema_slow (%d)", i.EMAFast, i.EMASlow)
	}
	if i.RSIPeriod < 2 {
		return fmt.Errorf("indicators.rsi_period must be >= 2")
	}
	if i.RSIOversold <= 0 || i.RSIOverbought >= 100 || i.RSIOversold >= i.RSIOverbought {
		return fmt.Errorf("indicators require 0 < rsi_oversold < rsi_overbought < 100")
	}
	if i.MACDFast < 1 || i.MACDSlow < 1 || i.MACDSignal < 1 {
		return fmt.Errorf("indicators.macd_* periods must be >= 1")
	}
	if i.MACDFast >= i.MACDSlow {
		return fmt.Errorf("indicators.macd_fast (%d) must be < macd_slow (%d)", i.MACDFast, i.MACDSlow)
	}
	return nil
}

// Warmup 返回首个全部指标都有定义的行下标（0 基）。
func (i IndicatorConfig) Warmup() int {
	return pipeline.Warmup(i.EMAFast, i.EMASlow, i.RSIPeriod, i.MACDFast, i.MACDSlow, i.MACDSignal)
}

func (k *KlineConfig) validate(ind IndicatorConfig) error {
	if k.Window < 2 || k.Window > 1500 {
		return fmt.Errorf("kline.window must be in [2,1500]")
	}
	// 窗口至少要留出两行有效指标，否则永远不会出信号。
	if need := ind.Warmup() + 2; k.Window < need {
		return fmt.Errorf("kline.window=%d too small for indicator warm-up, need >= %d", k.Window, need)
	}
	return nil
}

func (e *EngineConfig) validate() error {
	if e.Workers < 1 {
		return fmt.Errorf("engine.workers must be >= 1")
	}
	if e.BreakerThreshold < 1 {
		return fmt.Errorf("engine.breaker_threshold must be >= 1")
	}
	if e.BreakerCooldownSeconds < 0 {
		return fmt.Errorf("engine.breaker_cooldown_seconds must be >= 0")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	switch m.Provider {
	case "binance":
		if strings.TrimSpace(m.RESTBaseURL) == "" {
			return fmt.Errorf("market.rest_base_url cannot be empty for provider binance")
		}
	case "bridge":
		if strings.TrimSpace(m.BridgeURL) == "" {
			return fmt.Errorf("market.bridge_url cannot be empty for provider bridge")
		}
	default:
		return fmt.Errorf("market.provider only supports binance|bridge, got %s", m.Provider)
	}
	if m.TimeoutSeconds <= 0 {
		return fmt.Errorf("market.timeout_seconds must be > 0")
	}
	if m.PaperSlippagePoints < 0 {
		return fmt.Errorf("market.paper_slippage_points must be >= 0")
	}
	return nil
}

func (e *ExecutionConfig) validate(m MarketConfig) error {
	switch e.Venue {
	case "paper":
		return nil
	case "bridge", "binance":
		if e.Venue != m.Provider {
			return fmt.Errorf("execution.venue=%s requires market.provider=%s", e.Venue, e.Venue)
		}
		if e.Venue == "binance" && (strings.TrimSpace(m.APIKey) == "" || strings.TrimSpace(m.APISecret) == "") {
			return fmt.Errorf("execution.venue=binance requires market.api_key and market.api_secret")
		}
		return nil
	default:
		return fmt.Errorf("execution.venue only supports paper|bridge|binance, got %s", e.Venue)
	}
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
			return fmt.Errorf("telegram notification enabled but missing bot_token or chat_id")
		}
	}
	if n.Redis.Enabled && strings.TrimSpace(n.Redis.Channel) == "" {
		return fmt.Errorf("notify.redis.channel cannot be empty")
	}
	return nil
}

// IsValidInterval 判断周期能否被解析成正的时长。
func IsValidInterval(s string) bool {
	_, ok := market.IntervalDuration(s)
	return ok
}
