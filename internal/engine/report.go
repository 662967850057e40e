package engine

import (
	"time"

	"crossbot/internal/order"
	"crossbot/internal/pipeline"
)

// Status 描述某个品种在一轮中的处理结果。
type Status string

const (
	StatusNoData       Status = "no_data"
	StatusInsufficient Status = "insufficient_history"
	StatusBreakerOpen  Status = "breaker_open"
	StatusError        Status = "error"
	StatusNoSignal     Status = "no_signal"
	StatusSuppressed   Status = "suppressed"
	StatusRejected     Status = "rejected"
	StatusAccepted     Status = "accepted"
)

// Skipped 表示该品种没有走到信号判断。
func (s Status) Skipped() bool {
	switch s {
	case StatusNoData, StatusInsufficient, StatusBreakerOpen, StatusError:
		return true
	}
	return false
}

// SymbolResult 是单个品种一轮的结果，派发后不再修改。
type SymbolResult struct {
	Symbol    string                 `json:"symbol"`
	Status    Status                 `json:"status"`
	Signal    string                 `json:"signal"`
	Candles   int                    `json:"candles"`
	ValidRows int                    `json:"valid_rows"`
	Last      *pipeline.IndicatorRow `json:"last,omitempty"`
	Request   *order.Request         `json:"request,omitempty"`
	Outcome   *order.Outcome         `json:"outcome,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Elapsed   time.Duration          `json:"elapsed"`
}

// Fired 表示该品种本轮产生了非 NONE 信号（无论是否成功派发）。
func (r SymbolResult) Fired() bool {
	return r.Signal != "" && r.Signal != "NONE"
}

// CycleReport 按配置顺序汇总一轮所有品种的结果。
type CycleReport struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Results    []SymbolResult `json:"results"`
}

func (r CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Count 返回处于给定状态的品种数量。
func (r CycleReport) Count(statuses ...Status) int {
	n := 0
	for _, res := range r.Results {
		for _, st := range statuses {
			if res.Status == st {
				n++
				break
			}
		}
	}
	return n
}

func (r CycleReport) Result(symbol string) (SymbolResult, bool) {
	for _, res := range r.Results {
		if res.Symbol == symbol {
			return res, true
		}
	}
	return SymbolResult{}, false
}
