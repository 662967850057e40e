package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "app:\n  env: test\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Env)
	assert.Equal(t, []string{"EURUSD", "GOLD"}, cfg.Trading.SymbolsUpper())
	assert.Equal(t, "15m", cfg.Trading.Interval)
	assert.Equal(t, 0.01, cfg.Trading.Volume)
	assert.Equal(t, 10, cfg.Trading.StopLossPoints)
	assert.Equal(t, 20, cfg.Trading.TakeProfitPoints)
	assert.Equal(t, 10, cfg.Trading.DeviationPoints)
	assert.Equal(t, int64(123456), cfg.Trading.Magic)
	assert.Equal(t, 60, cfg.Trading.PollIntervalSeconds)
	assert.False(t, cfg.Trading.DedupeSignals)
	assert.Equal(t, IndicatorConfig{}.Default(), cfg.Indicators)
	assert.Equal(t, 100, cfg.Kline.Window)
	assert.Equal(t, 1, cfg.Engine.Workers)
	assert.Equal(t, "bridge", cfg.Market.Provider)
	assert.Equal(t, "paper", cfg.Execution.Venue)
	assert.Equal(t, "15:00:00", cfg.Session.Start)
	assert.Equal(t, "23:59:59", cfg.Session.End)
	assert.Equal(t, float64(8), cfg.Session.UTCOffsetHours)
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "trading:\n  symbols: [btcusdt]\n  volume: 0.5\n")
	path := writeFile(t, dir, "config.yaml", "include: [base.yaml]\ntrading:\n  volume: 0.2\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT"}, cfg.Trading.SymbolsUpper())
	assert.Equal(t, 0.2, cfg.Trading.Volume)
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")

	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestLoadSecretsFromEnv(t *testing.T) {
	t.Setenv("CROSSBOT_API_KEY", "key-from-env")
	t.Setenv("CROSSBOT_API_SECRET", "secret-from-env")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "market:\n  provider: binance\nexecution:\n  venue: binance\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "key-from-env", cfg.Market.APIKey)
	assert.Equal(t, "secret-from-env", cfg.Market.APISecret)

	dump, err := cfg.Dump()
	require.NoError(t, err)
	assert.NotContains(t, dump, "secret-from-env")
	assert.Contains(t, dump, "provider: binance")
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"fast >= slow":        "indicators:\n  ema_fast: 26\n  ema_slow: 12\n",
		"bad interval":        "trading:\n  interval: fifteen\n",
		"unknown provider":    "market:\n  provider: ftx\n",
		"venue mismatch":      "market:\n  provider: bridge\nexecution:\n  venue: binance\n",
		"window too small":    "kline:\n  window: 20\n",
		"bad session":         "session:\n  start: \"25:00\"\n",
		"telegram w/o token":  "notify:\n  telegram:\n    enabled: true\n",
		"thresholds inverted": "indicators:\n  rsi_overbought: 20\n  rsi_oversold: 80\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			_, err := Load(writeFile(t, dir, "config.yaml", body))
			assert.Error(t, err)
		})
	}
}

func TestExplicitZeroKeepsSetValue(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "trading:\n  deviation_points: 0\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Trading.DeviationPoints)
}

func TestWarmup(t *testing.T) {
	assert.Equal(t, 33, IndicatorConfig{}.Default().Warmup())
	custom := IndicatorConfig{EMAFast: 5, EMASlow: 50, RSIPeriod: 14, MACDFast: 3, MACDSlow: 10, MACDSignal: 4}
	assert.Equal(t, 49, custom.Warmup())
}

func TestParseClock(t *testing.T) {
	d, err := ParseClock("15:00:00")
	require.NoError(t, err)
	assert.Equal(t, "15h0m0s", d.String())
	d, err = ParseClock(" 23:59 ")
	require.NoError(t, err)
	assert.Equal(t, "23h59m0s", d.String())
	_, err = ParseClock("noon")
	assert.Error(t, err)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, "configs/config.yaml", DefaultPath())
	t.Setenv(EnvConfigPath, "/etc/crossbot.yaml")
	assert.True(t, strings.HasSuffix(DefaultPath(), "crossbot.yaml"))
}
