package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"crossbot/internal/app"
	"crossbot/internal/config"
	"crossbot/internal/logger"
)

const (
	exitConfig       = 1
	exitConnectivity = 2
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath(), "配置文件路径（也可用 "+config.EnvConfigPath+" 指定）")
	printConfig := flag.Bool("print-config", false, "输出生效配置后退出")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fatal(exitConfig, "读取配置失败: %v", err)
	}
	if *printConfig {
		out, err := cfg.Dump()
		if err != nil {
			fatal(exitConfig, "输出配置失败: %v", err)
		}
		fmt.Print(out)
		return
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		fatal(exitConfig, "初始化日志文件失败: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ 配置加载成功（环境=%s，品种=%s）", cfg.App.Env, strings.Join(cfg.Trading.SymbolsUpper(), ","))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(cfg)
	if err != nil {
		fatal(exitConfig, "初始化应用失败: %v", err)
	}
	if err := a.Connect(ctx); err != nil {
		_ = a.Close()
		fatal(exitConnectivity, "连接失败: %v", err)
	}
	if err := a.Run(ctx); err != nil {
		fatal(exitConfig, "运行失败: %v", err)
	}
	logger.Infof("crossbot stopped")
}

// fatal 与 log.Fatalf 相同，但区分退出码。
func fatal(code int, format string, v ...any) {
	log.Printf(format, v...)
	os.Exit(code)
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
