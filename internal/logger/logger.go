// Package logger 包装 log/slog，提供 printf 风格的全局日志与 "[SYMBOL] ..." 状态行。
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	levelVar slog.LevelVar
	current  atomic.Pointer[slog.Logger]
)

func init() {
	SetOutput(os.Stdout)
}

// SetOutput 替换日志输出目标（测试中常用 bytes.Buffer）。
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	current.Store(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar})))
}

// SetLevel 按名称设置日志级别，未知值回退到 info。
func SetLevel(level string) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	levelVar.Set(l)
}

func logf(level slog.Level, format string, v []any, attrs ...slog.Attr) {
	l := current.Load()
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	l.LogAttrs(ctx, level, fmt.Sprintf(format, v...), attrs...)
}

func Debugf(format string, v ...any) { logf(slog.LevelDebug, format, v) }

func Infof(format string, v ...any) { logf(slog.LevelInfo, format, v) }

func Warnf(format string, v ...any) { logf(slog.LevelWarn, format, v) }

func Errorf(format string, v ...any) { logf(slog.LevelError, format, v) }

// InfoBlock 逐行输出多行文本（启动摘要等）。
func InfoBlock(block string) {
	for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
		if line != "" {
			Infof("%s", line)
		}
	}
}

// Statusf 输出一条面向用户的状态行，格式为 "[SYMBOL] ..."，并附带 symbol 属性便于检索。
func Statusf(symbol, format string, v ...any) {
	status(slog.LevelInfo, symbol, format, v)
}

// StatusWarnf 与 Statusf 相同，但以 warn 级别输出（跳过、拒单等）。
func StatusWarnf(symbol, format string, v ...any) {
	status(slog.LevelWarn, symbol, format, v)
}

func status(level slog.Level, symbol, format string, v []any) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		logf(level, format, v)
		return
	}
	logf(level, "["+sym+"] "+format, v, slog.String("symbol", sym))
}
