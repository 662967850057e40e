package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Middleware 是流水线中的一个计算步骤。同一 stage 内并发执行，
// 共享数据只能经 AnalysisContext 的方法读写。
type Middleware interface {
	Meta() MiddlewareMeta
	Handle(ctx context.Context, ac *AnalysisContext) error
}

// MiddlewareMeta 中 Critical 为 true 时失败会中止整条流水线；Timeout 为 0 表示不限时。
type MiddlewareMeta struct {
	Name     string
	Stage    int
	Critical bool
	Timeout  time.Duration
}

// MiddlewareError 记录失败的中间件及其 stage。
type MiddlewareError struct {
	Middleware string
	Stage      int
	Critical   bool
	Err        error
}

func (e *MiddlewareError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err == nil:
		return e.Middleware
	}
	return fmt.Sprintf("%s: %v", e.Middleware, e.Err)
}

func (e *MiddlewareError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FailedIn 判断 err 链上是否有名为 name 的中间件错误。
func FailedIn(err error, name string) bool {
	var mwErr *MiddlewareError
	return errors.As(err, &mwErr) && mwErr.Middleware == name
}
