package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"crossbot/internal/logger"

	"golang.org/x/sync/errgroup"
)

type stage struct {
	index int
	mws   []Middleware
}

// Pipeline 按 stage 升序执行中间件；同一 stage 并发，前一 stage 全部完成后才进入下一个。
type Pipeline struct {
	name   string
	stages []stage
}

func New(name string, middlewares ...Middleware) *Pipeline {
	mws := make([]Middleware, 0, len(middlewares))
	for _, mw := range middlewares {
		if mw != nil {
			mws = append(mws, mw)
		}
	}
	sort.SliceStable(mws, func(i, j int) bool { return mws[i].Meta().Stage < mws[j].Meta().Stage })

	p := &Pipeline{name: name}
	for _, mw := range mws {
		st := mw.Meta().Stage
		if n := len(p.stages); n == 0 || p.stages[n-1].index != st {
			p.stages = append(p.stages, stage{index: st})
		}
		last := &p.stages[len(p.stages)-1]
		last.mws = append(last.mws, mw)
	}
	return p
}

func (p *Pipeline) Name() string { return p.name }

// Describe 返回每个 stage 的中间件名，如 "0:kline_fetcher"、"1:ema_fast,ema_slow,rsi,macd"。
func (p *Pipeline) Describe() []string {
	out := make([]string, 0, len(p.stages))
	for _, st := range p.stages {
		names := make([]string, len(st.mws))
		for i, mw := range st.mws {
			names[i] = mw.Meta().Name
		}
		out = append(out, fmt.Sprintf("%d:%s", st.index, strings.Join(names, ",")))
	}
	return out
}

func (p *Pipeline) Run(ctx context.Context, ac *AnalysisContext) error {
	if ac == nil {
		return fmt.Errorf("nil analysis context")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for _, st := range p.stages {
		if err := p.runStage(ctx, ac, st); err != nil {
			ac.AddWarning(err.Error())
			return err
		}
	}
	return nil
}

// Compute 执行全部 stage 并返回与窗口对齐的指标行。
// 即使出错也返回当前可组装的行（此时通常全部无效），便于调用方诊断。
// 有效行少于两条时返回 ErrInsufficientHistory。
func (p *Pipeline) Compute(ctx context.Context, ac *AnalysisContext) ([]IndicatorRow, error) {
	if err := p.Run(ctx, ac); err != nil {
		return ac.Rows(), err
	}
	rows := ac.Rows()
	if valid := CountValid(rows); valid < 2 {
		return rows, fmt.Errorf("%s: %d valid rows of %d: %w", p.name, valid, len(rows), ErrInsufficientHistory)
	}
	return rows, nil
}

// runStage 并发执行一个 stage。非 critical 的失败只记为 warning，critical 失败取消同 stage 其它中间件。
func (p *Pipeline) runStage(ctx context.Context, ac *AnalysisContext, st stage) error {
	group, stageCtx := errgroup.WithContext(ctx)
	soft := make([]*MiddlewareError, len(st.mws))
	for i, mw := range st.mws {
		i, mw := i, mw
		group.Go(func() error {
			meta := mw.Meta()
			runCtx := stageCtx
			if meta.Timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(stageCtx, meta.Timeout)
				defer cancel()
			}
			started := time.Now()
			err := mw.Handle(runCtx, ac)
			logger.Debugf("[pipeline] %s %s %s took %s", p.name, ac.Symbol, meta.Name, time.Since(started))
			if err == nil {
				return nil
			}
			mwErr := &MiddlewareError{Middleware: meta.Name, Stage: meta.Stage, Critical: meta.Critical, Err: err}
			if meta.Critical {
				return mwErr
			}
			soft[i] = mwErr
			return nil
		})
	}
	err := group.Wait()
	for _, w := range soft {
		if w != nil {
			ac.AddWarning(w.Error())
			logger.Warnf("[pipeline] %s %s %s", p.name, ac.Symbol, w.Error())
		}
	}
	return err
}
