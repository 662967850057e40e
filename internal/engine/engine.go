// Package engine 执行一轮完整的信号流程：拉取 K 线 → 指标 → 交叉判断 → 构单 → 派发。
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"crossbot/internal/logger"
	"crossbot/internal/market"
	"crossbot/internal/order"
	"crossbot/internal/pipeline"
	"crossbot/internal/pipeline/middlewares"
	"crossbot/internal/pkg/circuit"
	"crossbot/internal/strategy"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Evaluator 根据最后两条有效指标行给出信号。
type Evaluator interface {
	EvaluateRows(rows []pipeline.IndicatorRow) (strategy.Signal, pipeline.IndicatorRow, error)
}

// Observer 在每轮结束后收到完整报告（指标、状态接口等）。
type Observer interface {
	ObserveCycle(report CycleReport)
}

type Options struct {
	Symbols  []string
	Interval string
	Workers  int
	Dedupe   bool

	BreakerThreshold int
	BreakerCooldown  time.Duration
}

type Deps struct {
	Pipeline   *pipeline.Pipeline
	Evaluator  Evaluator
	Quotes     market.QuoteSource
	Builder    *order.Builder
	Dispatcher *order.Dispatcher
	Observers  []Observer
}

type Engine struct {
	opts     Options
	deps     Deps
	breakers *circuit.Group
	nowFn    func() time.Time

	dedupeMu  sync.Mutex
	lastFired map[string]int64

	reportMu sync.RWMutex
	last     *CycleReport
	cycles   int64
}

func New(opts Options, deps Deps) (*Engine, error) {
	if len(opts.Symbols) == 0 {
		return nil, fmt.Errorf("engine: no symbols configured")
	}
	if deps.Pipeline == nil || deps.Evaluator == nil || deps.Quotes == nil || deps.Builder == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("engine: pipeline, evaluator, quotes, builder and dispatcher are required")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BreakerThreshold <= 0 {
		opts.BreakerThreshold = 5
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 2 * time.Minute
	}
	return &Engine{
		opts:      opts,
		deps:      deps,
		breakers:  circuit.NewGroup(opts.BreakerThreshold, opts.BreakerCooldown),
		nowFn:     time.Now,
		lastFired: make(map[string]int64),
	}, nil
}

func (e *Engine) Symbols() []string {
	out := make([]string, len(e.opts.Symbols))
	copy(out, e.opts.Symbols)
	return out
}

func (e *Engine) Interval() string { return e.opts.Interval }

// Breakers 暴露按品种的行情熔断器，供状态接口与指标读取。
func (e *Engine) Breakers() *circuit.Group { return e.breakers }

// LastReport 返回最近一轮的报告。
func (e *Engine) LastReport() (CycleReport, bool) {
	e.reportMu.RLock()
	defer e.reportMu.RUnlock()
	if e.last == nil {
		return CycleReport{}, false
	}
	return *e.last, true
}

// Cycles 返回已完成的轮数。
func (e *Engine) Cycles() int64 {
	e.reportMu.RLock()
	defer e.reportMu.RUnlock()
	return e.cycles
}

// RunCycle 按 workers 并发处理所有品种。单个品种失败只记录在结果里，不影响其它品种；
// 日志在全部完成后按配置顺序输出，因此与并发度无关。
func (e *Engine) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{
		ID:        uuid.NewString(),
		StartedAt: e.nowFn(),
		Results:   make([]SymbolResult, len(e.opts.Symbols)),
	}
	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for i, sym := range e.opts.Symbols {
		i, sym := i, sym
		g.Go(func() error {
			report.Results[i] = e.runSymbol(ctx, report.ID, sym)
			return nil
		})
	}
	_ = g.Wait()
	report.FinishedAt = e.nowFn()

	for _, res := range report.Results {
		logResult(res)
	}
	logger.Infof("[cycle] %s done in %s: %d symbols, %d signals, %d accepted, %d rejected, %d skipped",
		report.ID[:8], report.Duration().Truncate(time.Millisecond), len(report.Results),
		countFired(report), report.Count(StatusAccepted), report.Count(StatusRejected),
		report.Count(StatusNoData, StatusInsufficient, StatusBreakerOpen, StatusError))

	e.reportMu.Lock()
	e.last = &report
	e.cycles++
	e.reportMu.Unlock()
	for _, obs := range e.deps.Observers {
		if obs != nil {
			obs.ObserveCycle(report)
		}
	}
	return report
}

func (e *Engine) runSymbol(ctx context.Context, traceID, symbol string) (res SymbolResult) {
	started := e.nowFn()
	res.Symbol = symbol
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[engine] %s panic: %v\n%s", symbol, r, debug.Stack())
			res.Status = StatusError
			res.Error = fmt.Sprintf("panic: %v", r)
		}
		res.Elapsed = e.nowFn().Sub(started)
	}()

	breaker := e.breakers.Get(symbol)
	if !breaker.Allow() {
		res.Status = StatusBreakerOpen
		res.Error = "feed circuit open"
		return res
	}

	ac := pipeline.NewContext(symbol, e.opts.Interval)
	ac.TraceID = traceID
	rows, err := e.deps.Pipeline.Compute(ctx, ac)
	res.Candles = len(ac.Candles())
	res.ValidRows = pipeline.CountValid(rows)
	if err != nil {
		if fetchFailure(err) {
			breaker.RecordFailure()
		} else {
			breaker.RecordSuccess()
		}
		res.Status = classify(err)
		res.Error = err.Error()
		return res
	}
	breaker.RecordSuccess()

	sig, last, err := e.deps.Evaluator.EvaluateRows(rows)
	if err != nil {
		res.Status = StatusInsufficient
		res.Error = err.Error()
		return res
	}
	res.Last = &last
	res.Signal = sig.String()
	if sig == strategy.None {
		res.Status = StatusNoSignal
		return res
	}
	if e.opts.Dedupe && e.alreadyFired(symbol, last.Time) {
		res.Status = StatusSuppressed
		return res
	}

	quote, err := e.deps.Quotes.Quote(ctx, symbol)
	if err != nil {
		res.Status = StatusError
		res.Error = fmt.Sprintf("quote: %v", err)
		return res
	}
	info, err := e.deps.Quotes.SymbolInfo(ctx, symbol)
	if err != nil {
		res.Status = StatusError
		res.Error = fmt.Sprintf("symbol info: %v", err)
		return res
	}
	req, err := e.deps.Builder.Build(sig, quote, info, last.Time)
	if err != nil {
		res.Status = StatusError
		res.Error = err.Error()
		return res
	}
	res.Request = &req

	out := e.deps.Dispatcher.Dispatch(ctx, req)
	res.Outcome = &out
	// 送达下单通道后才记为已触发；拒单同样记录，同一根 K 线不再重发
	if e.opts.Dedupe {
		e.markFired(symbol, last.Time)
	}
	if out.Accepted {
		res.Status = StatusAccepted
	} else {
		res.Status = StatusRejected
	}
	return res
}

// alreadyFired 报告该品种在同一根 K 线上是否已经下过单。
func (e *Engine) alreadyFired(symbol string, candleTime int64) bool {
	e.dedupeMu.Lock()
	defer e.dedupeMu.Unlock()
	prev, ok := e.lastFired[symbol]
	return ok && prev == candleTime
}

func (e *Engine) markFired(symbol string, candleTime int64) {
	e.dedupeMu.Lock()
	e.lastFired[symbol] = candleTime
	e.dedupeMu.Unlock()
}

func classify(err error) Status {
	switch {
	case errors.Is(err, market.ErrNoData):
		return StatusNoData
	case errors.Is(err, pipeline.ErrInsufficientHistory):
		return StatusInsufficient
	default:
		return StatusError
	}
}

// fetchFailure 只把行情拉取阶段的传输类错误计入熔断；无数据、预热不足和停机取消都不算。
func fetchFailure(err error) bool {
	return pipeline.FailedIn(err, middlewares.CandleFetcherName) &&
		!errors.Is(err, market.ErrNoData) &&
		!errors.Is(err, context.Canceled)
}

func countFired(r CycleReport) int {
	n := 0
	for _, res := range r.Results {
		if res.Fired() {
			n++
		}
	}
	return n
}

func logResult(res SymbolResult) {
	sym := res.Symbol
	switch res.Status {
	case StatusNoData:
		logger.StatusWarnf(sym, "No data retrieved.")
	case StatusInsufficient:
		logger.StatusWarnf(sym, "Insufficient history (%d candles, %d valid rows)", res.Candles, res.ValidRows)
	case StatusBreakerOpen:
		logger.StatusWarnf(sym, "Feed circuit open, skipped")
	case StatusNoSignal:
		logger.Statusf(sym, "No signal - conditions not met")
	case StatusSuppressed:
		logger.Statusf(sym, "%s signal already handled for this candle", res.Signal)
	case StatusAccepted, StatusRejected:
		logger.Statusf(sym, "%s signal detected!", res.Signal)
		req, out := res.Request, res.Outcome
		if out.Accepted {
			logger.Statusf(sym, "%s order placed at %g with TP %g and SL %g (fill %g, %s #%s)",
				res.Signal, req.EntryPrice, req.TakeProfit, req.StopLoss, out.FillPrice, out.Venue, out.OrderID)
		} else {
			logger.StatusWarnf(sym, "Failed to place %s order: %s", res.Signal,
				strings.TrimSpace(out.VenueCode+" "+out.VenueMessage))
		}
	default:
		if res.Fired() {
			logger.Statusf(sym, "%s signal detected!", res.Signal)
		}
		logger.StatusWarnf(sym, "Error: %s", res.Error)
	}
}
