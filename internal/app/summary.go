package app

import (
	"fmt"
	"strings"

	"crossbot/internal/config"
	"crossbot/internal/logger"
	"crossbot/internal/session"
)

type StartupSummary struct {
	Symbols    []string
	Interval   string
	Window     int
	Warmup     int
	Session    string
	Poll       string
	Workers    int
	Dedupe     bool
	Provider   string
	Venue      string
	Sinks      int
	Indicators config.IndicatorConfig
	Stages     []string
	Risk       RiskSummary
	HTTPAddr   string
}

type RiskSummary struct {
	Volume     float64
	StopLoss   int
	TakeProfit int
	Deviation  int
	Magic      int64
	Comment    string
}

func newStartupSummary(cfg *config.Config, win session.Window, venueName string, sinks int, stages []string) *StartupSummary {
	return &StartupSummary{
		Symbols:    cfg.Trading.SymbolsUpper(),
		Interval:   cfg.Trading.Interval,
		Window:     cfg.Kline.Window,
		Warmup:     cfg.Indicators.Warmup(),
		Session:    win.String(),
		Poll:       cfg.Trading.PollInterval().String(),
		Workers:    cfg.Engine.Workers,
		Dedupe:     cfg.Trading.DedupeSignals,
		Provider:   cfg.Market.Provider,
		Venue:      venueName,
		Sinks:      sinks,
		Indicators: cfg.Indicators,
		Stages:     stages,
		Risk: RiskSummary{
			Volume:     cfg.Trading.Volume,
			StopLoss:   cfg.Trading.StopLossPoints,
			TakeProfit: cfg.Trading.TakeProfitPoints,
			Deviation:  cfg.Trading.DeviationPoints,
			Magic:      cfg.Trading.Magic,
			Comment:    cfg.Trading.Comment,
		},
		HTTPAddr: cfg.App.HTTPAddr,
	}
}

// Render 输出多行启动摘要。
func (s *StartupSummary) Render() string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	title := "启动配置摘要 (STARTUP SUMMARY)"
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "%*s\n", 30+len(title)/2, title)
	b.WriteString(strings.Repeat("=", 60) + "\n")

	b.WriteString("[行情 (MARKET)]\n")
	fmt.Fprintf(&b, "  品种: %s\n", formatList(s.Symbols))
	fmt.Fprintf(&b, "  周期: %s  窗口: %d  预热: %d\n", s.Interval, s.Window, s.Warmup)
	fmt.Fprintf(&b, "  数据源: %s  下单通道: %s\n", s.Provider, s.Venue)

	b.WriteString("[指标 (INDICATORS)]\n")
	ind := s.Indicators
	fmt.Fprintf(&b, "  EMA %d/%d  RSI %d (%g/%g)  MACD %d/%d/%d\n",
		ind.EMAFast, ind.EMASlow, ind.RSIPeriod, ind.RSIOversold, ind.RSIOverbought,
		ind.MACDFast, ind.MACDSlow, ind.MACDSignal)
	fmt.Fprintf(&b, "  流水线: %s\n", formatList(s.Stages))

	b.WriteString("[风控 (RISK)]\n")
	fmt.Fprintf(&b, "  手数: %g  SL: %d  TP: %d  偏差: %d points\n",
		s.Risk.Volume, s.Risk.StopLoss, s.Risk.TakeProfit, s.Risk.Deviation)
	fmt.Fprintf(&b, "  magic: %d  comment: %s\n", s.Risk.Magic, s.Risk.Comment)

	b.WriteString("[调度 (SCHEDULER)]\n")
	fmt.Fprintf(&b, "  时段: %s\n", s.Session)
	fmt.Fprintf(&b, "  轮询: %s  并发: %d  去重: %t  输出: %d\n", s.Poll, s.Workers, s.Dedupe, s.Sinks)
	if s.HTTPAddr != "" {
		fmt.Fprintf(&b, "  状态服务: %s\n", s.HTTPAddr)
	}
	b.WriteString(strings.Repeat("=", 60))
	return b.String()
}

func (s *StartupSummary) Print() {
	logger.InfoBlock(s.Render())
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
