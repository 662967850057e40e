package config

import (
	"strings"
)

// 默认值常量
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppLogPath       = "logs/crossbot.log"
	defaultSessionStart     = "15:00:00"
	defaultSessionEnd       = "23:59:59"
	defaultSessionUTCOffset = 8
	defaultTradingInterval  = "15m"
	defaultTradingVolume    = 0.01
	defaultStopLossPoints   = 10
	defaultTakeProfitPoints = 20
	defaultDeviationPoints  = 10
	defaultMagic            = 123456
	defaultComment          = "crossbot"
	defaultPollSeconds      = 60
	defaultEMAFast          = 12
	defaultEMASlow          = 26
	defaultRSIPeriod        = 14
	defaultRSIOverbought    = 70
	defaultRSIOversold      = 30
	defaultMACDFast         = 12
	defaultMACDSlow         = 26
	defaultMACDSignal       = 9
	defaultKlineWindow      = 100
	defaultEngineWorkers    = 1
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 120
	defaultMarketProvider   = "bridge"
	defaultMarketREST       = "https://fapi.binance.com"
	defaultBridgeURL        = "http://127.0.0.1:8228"
	defaultMarketTimeout    = 10
	defaultPaperSlippage    = 2
	defaultExecutionVenue   = "paper"
	defaultJournalPath      = "data/journal.db"
	defaultRedisAddr        = "127.0.0.1:6379"
	defaultRedisChannel     = "crossbot:orders"
)

var defaultSymbols = []string{"EURUSD", "GOLD"}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Session.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Indicators.applyDefaults(keys)
	c.Kline.applyDefaults(keys)
	c.Engine.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Execution.applyDefaults(keys)
	c.Journal.applyDefaults(keys)
	c.Notify.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (s *SessionConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("session.start", &s.Start, defaultSessionStart),
		stringFieldDefault("session.end", &s.End, defaultSessionEnd),
		fieldDefault{
			key:   "session.utc_offset_hours",
			need:  func() bool { return s.UTCOffsetHours == 0 },
			apply: func() { s.UTCOffsetHours = defaultSessionUTCOffset },
		},
	)
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "trading.symbols",
			need:  func() bool { return len(t.Symbols) == 0 },
			apply: func() { t.Symbols = append([]string(nil), defaultSymbols...) },
		},
		stringFieldDefault("trading.interval", &t.Interval, defaultTradingInterval),
		floatFieldDefault("trading.volume", &t.Volume, defaultTradingVolume),
		intFieldDefault("trading.stop_loss_points", &t.StopLossPoints, defaultStopLossPoints),
		intFieldDefault("trading.take_profit_points", &t.TakeProfitPoints, defaultTakeProfitPoints),
		intFieldDefault("trading.deviation_points", &t.DeviationPoints, defaultDeviationPoints),
		fieldDefault{
			key:   "trading.magic",
			need:  func() bool { return t.Magic == 0 },
			apply: func() { t.Magic = defaultMagic },
		},
		stringFieldDefault("trading.comment", &t.Comment, defaultComment),
		intFieldDefault("trading.poll_interval_seconds", &t.PollIntervalSeconds, defaultPollSeconds),
	)
	t.Interval = strings.ToLower(strings.TrimSpace(t.Interval))
}

func (i *IndicatorConfig) applyDefaults(keys keySet) {
	if i == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("indicators.ema_fast", &i.EMAFast, defaultEMAFast),
		intFieldDefault("indicators.ema_slow", &i.EMASlow, defaultEMASlow),
		intFieldDefault("indicators.rsi_period", &i.RSIPeriod, defaultRSIPeriod),
		floatFieldDefault("indicators.rsi_overbought", &i.RSIOverbought, defaultRSIOverbought),
		floatFieldDefault("indicators.rsi_oversold", &i.RSIOversold, defaultRSIOversold),
		intFieldDefault("indicators.macd_fast", &i.MACDFast, defaultMACDFast),
		intFieldDefault("indicators.macd_slow", &i.MACDSlow, defaultMACDSlow),
		intFieldDefault("indicators.macd_signal", &i.MACDSignal, defaultMACDSignal),
	)
}

func (k *KlineConfig) applyDefaults(keys keySet) {
	if k == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("kline.window", &k.Window, defaultKlineWindow),
	)
}

func (e *EngineConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("engine.workers", &e.Workers, defaultEngineWorkers),
		intFieldDefault("engine.breaker_threshold", &e.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("engine.breaker_cooldown_seconds", &e.BreakerCooldownSeconds, defaultBreakerCooldown),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.provider", &m.Provider, defaultMarketProvider),
		stringFieldDefault("market.rest_base_url", &m.RESTBaseURL, defaultMarketREST),
		stringFieldDefault("market.bridge_url", &m.BridgeURL, defaultBridgeURL),
		intFieldDefault("market.timeout_seconds", &m.TimeoutSeconds, defaultMarketTimeout),
		intFieldDefault("market.paper_slippage_points", &m.PaperSlippagePoints, defaultPaperSlippage),
	)
	m.Provider = strings.ToLower(strings.TrimSpace(m.Provider))
}

func (e *ExecutionConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("execution.venue", &e.Venue, defaultExecutionVenue),
	)
	e.Venue = strings.ToLower(strings.TrimSpace(e.Venue))
}

func (j *JournalConfig) applyDefaults(keys keySet) {
	if j == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("journal.path", &j.Path, defaultJournalPath),
	)
}

func (n *NotifyConfig) applyDefaults(keys keySet) {
	if n == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("notify.redis.addr", &n.Redis.Addr, defaultRedisAddr),
		stringFieldDefault("notify.redis.channel", &n.Redis.Channel, defaultRedisChannel),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
