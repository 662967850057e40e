package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"crossbot/internal/logger"
)

// State 是调度器的两态：交易时段内 ACTIVE，时段外 IDLE。
type State int32

const (
	StateIdle State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "ACTIVE"
	}
	return "IDLE"
}

// Gate 判断某一时刻是否允许运行一轮，session.Window 实现它。
type Gate interface {
	Contains(t time.Time) bool
}

// CycleScheduler 每隔 Interval 检查一次时段：ACTIVE 时执行任务，IDLE 时只记录日志。
// ctx 取消后在当前轮结束时退出，不会打断正在执行的任务。
type CycleScheduler struct {
	Interval time.Duration
	Gate     Gate

	// OnStateChange 在状态切换时同步调用（首次进入也算一次切换）。
	OnStateChange func(from, to State)

	nowFn   func() time.Time
	state   atomic.Int32
	started atomic.Bool
	ticks   atomic.Int64
}

func NewCycleScheduler(gate Gate, interval time.Duration) *CycleScheduler {
	return &CycleScheduler{
		Interval: interval,
		Gate:     gate,
		nowFn:    time.Now,
	}
}

func (s *CycleScheduler) State() State {
	return State(s.state.Load())
}

// Ticks 返回已经完成的检查次数。
func (s *CycleScheduler) Ticks() int64 {
	return s.ticks.Load()
}

// Run 阻塞运行直到 ctx 取消。
func (s *CycleScheduler) Run(ctx context.Context, task func(ctx context.Context)) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("CycleScheduler: task is nil, exit")
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("CycleScheduler: invalid interval=%s, exit", s.Interval)
		return
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	logger.Infof("CycleScheduler: started interval=%s", s.Interval)

	for {
		s.Tick(ctx, task)

		timer := time.NewTimer(s.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Infof("CycleScheduler: ctx done, exit after %d ticks", s.Ticks())
			return
		case <-timer.C:
		}
	}
}

// Tick 执行一次状态判断，ACTIVE 时同步运行 task。返回本次的状态。
func (s *CycleScheduler) Tick(ctx context.Context, task func(ctx context.Context)) State {
	now := s.nowFn()
	next := StateIdle
	if s.Gate == nil || s.Gate.Contains(now) {
		next = StateActive
	}
	s.transition(next)
	defer s.ticks.Add(1)

	if next == StateIdle {
		logger.Infof("[Session] Outside trading session - waiting...")
		return next
	}
	logger.Infof("[Session] Inside trading session")
	if ctx.Err() != nil {
		return next
	}
	task(ctx)
	return next
}

func (s *CycleScheduler) transition(next State) {
	prev := State(s.state.Swap(int32(next)))
	first := !s.started.Swap(true)
	if !first && prev == next {
		return
	}
	logger.Infof("CycleScheduler: %s -> %s", prev, next)
	if s.OnStateChange != nil {
		s.OnStateChange(prev, next)
	}
}
