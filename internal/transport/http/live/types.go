package livehttp

import (
	"context"
	"time"

	"crossbot/internal/engine"
	"crossbot/internal/market"
	"crossbot/internal/pkg/circuit"
	"crossbot/internal/scheduler"
	"crossbot/internal/store/journal"
	"crossbot/internal/strategy"
)

// CycleSource 提供最近一轮的引擎状态，engine.Engine 实现它。
type CycleSource interface {
	LastReport() (engine.CycleReport, bool)
	Cycles() int64
	Symbols() []string
	Interval() string
	Breakers() *circuit.Group
}

// SchedulerSource 提供调度器状态。
type SchedulerSource interface {
	State() scheduler.State
	Ticks() int64
}

// WindowSource 返回最近一次评估所用的 K 线窗口。
type WindowSource interface {
	Export(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error)
	UpdatedAt(symbol, interval string) (time.Time, bool)
}

// JournalSource 查询下单流水。
type JournalSource interface {
	Recent(ctx context.Context, symbol string, limit int) ([]journal.Entry, error)
}

// SignalScanner 对整个窗口逐对评估，用于调试视图。
type SignalScanner interface {
	Scan(ctx context.Context, candles []market.Candle) ([]strategy.Hit, error)
}

type statusResponse struct {
	Scheduler string              `json:"scheduler"`
	Ticks     int64               `json:"ticks"`
	Cycles    int64               `json:"cycles"`
	Symbols   []string            `json:"symbols"`
	Interval  string              `json:"interval"`
	Venue     string              `json:"venue,omitempty"`
	Breakers  map[string]string   `json:"breakers"`
	Last      *engine.CycleReport `json:"last,omitempty"`
}

type hitView struct {
	Index  int    `json:"index"`
	Time   int64  `json:"time"`
	Signal string `json:"signal"`
}
