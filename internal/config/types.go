package config

import (
	"fmt"
	"strings"
	"time"
)

// Config 是 crossbot 的主配置载体，启动时加载一次，运行期只读。
type Config struct {
	App        AppConfig       `toml:"app" yaml:"app"`
	Session    SessionConfig   `toml:"session" yaml:"session"`
	Trading    TradingConfig   `toml:"trading" yaml:"trading"`
	Indicators IndicatorConfig `toml:"indicators" yaml:"indicators"`
	Kline      KlineConfig     `toml:"kline" yaml:"kline"`
	Engine     EngineConfig    `toml:"engine" yaml:"engine"`
	Market     MarketConfig    `toml:"market" yaml:"market"`
	Execution  ExecutionConfig `toml:"execution" yaml:"execution"`
	Journal    JournalConfig   `toml:"journal" yaml:"journal"`
	Notify     NotifyConfig    `toml:"notify" yaml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env" yaml:"env"`
	LogLevel string `toml:"log_level" yaml:"log_level"`
	LogPath  string `toml:"log_path" yaml:"log_path"`
	HTTPAddr string `toml:"http_addr" yaml:"http_addr"` // 为空则不启动状态服务
}

// SessionConfig 描述交易时段（固定时区偏移下的起止时刻，含端点）。
type SessionConfig struct {
	Start          string  `toml:"start" yaml:"start"` // "15:04:05"
	End            string  `toml:"end" yaml:"end"`
	UTCOffsetHours float64 `toml:"utc_offset_hours" yaml:"utc_offset_hours"`
	SkipWeekends   bool    `toml:"skip_weekends" yaml:"skip_weekends"`
	AlwaysOpen     bool    `toml:"always_open" yaml:"always_open"`
}

// TradingConfig 描述交易品种与固定风险参数。距离单位均为 point。
type TradingConfig struct {
	Symbols             []string `toml:"symbols" yaml:"symbols"`
	Interval            string   `toml:"interval" yaml:"interval"`
	Volume              float64  `toml:"volume" yaml:"volume"`
	StopLossPoints      int      `toml:"stop_loss_points" yaml:"stop_loss_points"`
	TakeProfitPoints    int      `toml:"take_profit_points" yaml:"take_profit_points"`
	DeviationPoints     int      `toml:"deviation_points" yaml:"deviation_points"`
	Magic               int64    `toml:"magic" yaml:"magic"`
	Comment             string   `toml:"comment" yaml:"comment"`
	PollIntervalSeconds int      `toml:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	DedupeSignals       bool     `toml:"dedupe_signals" yaml:"dedupe_signals"`
}

// PollInterval 返回两轮之间的等待时间。
func (t TradingConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalSeconds) * time.Second
}

// SymbolsUpper 返回去空白、大写、去重后的品种列表，保持配置顺序。
func (t TradingConfig) SymbolsUpper() []string {
	out := make([]string, 0, len(t.Symbols))
	seen := make(map[string]bool, len(t.Symbols))
	for _, s := range t.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// IndicatorConfig 指标周期与 RSI 阈值。
type IndicatorConfig struct {
	EMAFast       int     `toml:"ema_fast" yaml:"ema_fast"`
	EMASlow       int     `toml:"ema_slow" yaml:"ema_slow"`
	RSIPeriod     int     `toml:"rsi_period" yaml:"rsi_period"`
	RSIOverbought float64 `toml:"rsi_overbought" yaml:"rsi_overbought"`
	RSIOversold   float64 `toml:"rsi_oversold" yaml:"rsi_oversold"`
	MACDFast      int     `toml:"macd_fast" yaml:"macd_fast"`
	MACDSlow      int     `toml:"macd_slow" yaml:"macd_slow"`
	MACDSignal    int     `toml:"macd_signal" yaml:"macd_signal"`
}

// Default 返回 12/26、14、12/26/9 的默认组合。
func (IndicatorConfig) Default() IndicatorConfig {
	return IndicatorConfig{
		EMAFast:       defaultEMAFast,
		EMASlow:       defaultEMASlow,
		RSIPeriod:     defaultRSIPeriod,
		RSIOverbought: defaultRSIOverbought,
		RSIOversold:   defaultRSIOversold,
		MACDFast:      defaultMACDFast,
		MACDSlow:      defaultMACDSlow,
		MACDSignal:    defaultMACDSignal,
	}
}

type KlineConfig struct {
	Window int `toml:"window" yaml:"window"`
}

// EngineConfig 控制每轮的并发度与数据源熔断。
type EngineConfig struct {
	Workers                int `toml:"workers" yaml:"workers"`
	BreakerThreshold       int `toml:"breaker_threshold" yaml:"breaker_threshold"`
	BreakerCooldownSeconds int `toml:"breaker_cooldown_seconds" yaml:"breaker_cooldown_seconds"`
}

type MarketConfig struct {
	Provider            string `toml:"provider" yaml:"provider"` // bridge | binance
	RESTBaseURL         string `toml:"rest_base_url" yaml:"rest_base_url"`
	BridgeURL           string `toml:"bridge_url" yaml:"bridge_url"`
	APIKey              string `toml:"api_key" yaml:"-"`
	APISecret           string `toml:"api_secret" yaml:"-"`
	TimeoutSeconds      int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
	PaperSlippagePoints int    `toml:"paper_slippage_points" yaml:"paper_slippage_points"` // paper 通道模拟的不利滑点
}

// Timeout 返回外部请求超时。
func (m MarketConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

type ExecutionConfig struct {
	Venue string `toml:"venue" yaml:"venue"` // paper | bridge | binance
}

// JournalConfig 控制下单流水（仅审计，不做持仓跟踪）。
type JournalConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram" yaml:"telegram"`
	Redis    RedisConfig    `toml:"redis" yaml:"redis"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled" yaml:"enabled"`
	BotToken string `toml:"bot_token" yaml:"-"`
	ChatID   string `toml:"chat_id" yaml:"chat_id"`
}

type RedisConfig struct {
	Enabled  bool   `toml:"enabled" yaml:"enabled"`
	Addr     string `toml:"addr" yaml:"addr"`
	Password string `toml:"password" yaml:"-"`
	DB       int    `toml:"db" yaml:"db"`
	Channel  string `toml:"channel" yaml:"channel"`
}

// ParseClock 解析 "15:04:05" 或 "15:04"，返回当天零点起的偏移。
func ParseClock(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", raw)
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
