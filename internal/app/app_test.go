package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"crossbot/internal/config"
	"crossbot/internal/engine"
	"crossbot/internal/market"
	"crossbot/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarket struct {
	mu      sync.Mutex
	pingErr error
	fetches map[string]int
}

func (f *fakeMarket) Name() string { return "fake" }

func (f *fakeMarket) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeMarket) FetchCandles(ctx context.Context, symbol, interval string, count int) ([]market.Candle, error) {
	f.mu.Lock()
	if f.fetches == nil {
		f.fetches = make(map[string]int)
	}
	f.fetches[symbol]++
	f.mu.Unlock()
	if symbol == "GOLD" {
		return nil, market.ErrNoData
	}
	out := make([]market.Candle, count)
	for i := range out {
		px := 1.1 + float64(i)*0.0001
		open := int64(i) * 900_000
		out[i] = market.Candle{OpenTime: open, CloseTime: open + 899_999, Open: px, High: px, Low: px, Close: px}
	}
	return out, nil
}

func (f *fakeMarket) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	return market.Quote{Symbol: symbol, Bid: 1.1, Ask: 1.1001}, nil
}

func (f *fakeMarket) SymbolInfo(ctx context.Context, symbol string) (market.SymbolInfo, error) {
	return market.SymbolInfo{Symbol: symbol, Point: 0.00001}, nil
}

func loadConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestBuildAndRunCycle(t *testing.T) {
	dir := t.TempDir()
	cfg := loadConfig(t, "session:\n  always_open: true\njournal:\n  enabled: true\n  path: "+filepath.Join(dir, "j.db")+"\n")
	mkt := &fakeMarket{}

	a, err := NewAppBuilder(cfg, WithMarket(mkt)).Build(context.Background())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Connect(context.Background()))

	report := a.Engine().RunCycle(context.Background())
	require.Len(t, report.Results, 2)
	assert.Equal(t, "EURUSD", report.Results[0].Symbol)
	assert.Equal(t, engine.StatusNoSignal, report.Results[0].Status)
	assert.Equal(t, engine.StatusNoData, report.Results[1].Status)
	assert.Equal(t, 1, mkt.fetches["EURUSD"])
}

func TestConnectFailureIsConnectivity(t *testing.T) {
	cfg := loadConfig(t, "app:\n  env: test\n")
	a, err := NewAppBuilder(cfg, WithMarket(&fakeMarket{pingErr: errors.New("terminal offline")})).Build(context.Background())
	require.NoError(t, err)
	defer a.Close()

	err = a.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectivity)
	assert.Contains(t, err.Error(), "terminal offline")
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	cfg := loadConfig(t, "session:\n  always_open: true\n")
	mkt := &fakeMarket{}
	a, err := NewAppBuilder(cfg, WithMarket(mkt)).Build(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Empty(t, mkt.fetches)
	assert.Equal(t, int64(1), a.Scheduler().Ticks())
}

func TestBuildRejectsVenueMismatch(t *testing.T) {
	cfg := loadConfig(t, "app:\n  env: test\n")
	cfg.Execution.Venue = "binance"
	_, err := NewAppBuilder(cfg, WithMarket(&fakeMarket{})).Build(context.Background())
	assert.Error(t, err)
}

func TestStartupSummary(t *testing.T) {
	cfg := loadConfig(t, "app:\n  http_addr: \":9991\"\n")
	a, err := NewAppBuilder(cfg, WithMarket(&fakeMarket{})).Build(context.Background())
	require.NoError(t, err)
	defer a.Close()

	out := a.Summary.Render()
	assert.Contains(t, out, "EURUSD, GOLD")
	assert.Contains(t, out, "预热: 33")
	assert.Contains(t, out, "15:00:00-23:59:59 UTC+08:00")
	assert.Contains(t, out, "下单通道: paper")
	assert.Contains(t, out, ":9991")
	assert.Contains(t, out, "0:kline_fetcher")
}

type stubVenue struct{}

func (stubVenue) Name() string                   { return "stub" }
func (stubVenue) Ping(ctx context.Context) error { return errors.New("venue down") }
func (stubVenue) Submit(ctx context.Context, req order.Request) (order.Receipt, error) {
	return order.Receipt{}, nil
}

type nopNotifier struct{}

func (nopNotifier) SendText(ctx context.Context, text string) error { return nil }

func TestBuildWithOverrides(t *testing.T) {
	cfg := loadConfig(t, "notify:\n  telegram:\n    enabled: true\n    bot_token: t\n    chat_id: \"1\"\n")
	a, err := NewAppBuilder(cfg,
		WithMarket(&fakeMarket{}),
		WithVenue(stubVenue{}),
		WithTelegram(nopNotifier{}),
	).Build(context.Background())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "stub", a.Summary.Venue)
	assert.Equal(t, 2, a.Summary.Sinks)

	err = a.Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnectivity)
	assert.Contains(t, err.Error(), "venue stub")
}
