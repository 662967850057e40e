package factory

import (
	"context"
	"errors"
	"math"
	"testing"

	"crossbot/internal/config"
	"crossbot/internal/market"
	"crossbot/internal/pipeline"
	"crossbot/internal/store"
	"crossbot/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedFeed struct {
	candles []market.Candle
}

func (f *fixedFeed) Name() string { return "fixed" }

func (f *fixedFeed) FetchCandles(ctx context.Context, symbol, interval string, count int) ([]market.Candle, error) {
	out := f.candles
	if count > 0 && len(out) > count {
		out = out[len(out)-count:]
	}
	return out, nil
}

func series(n int) []market.Candle {
	out := make([]market.Candle, n)
	step := int64(15 * 60 * 1000)
	for i := range out {
		c := 1.1 + 0.002*math.Sin(float64(i)/4)
		open := int64(1_700_000_000_000) + int64(i)*step
		out[i] = market.Candle{OpenTime: open, CloseTime: open + step - 1, Open: c, High: c + 0.0003, Low: c - 0.0003, Close: c}
	}
	return out
}

func newFactory(n int) *Factory {
	return &Factory{
		Feed:     &fixedFeed{candles: series(n)},
		Windows:  store.NewMemoryKlineStore(),
		Interval: "15m",
		Limit:    100,
	}
}

func TestBuildRejectsBadPeriods(t *testing.T) {
	f := newFactory(100)
	cfg := config.IndicatorConfig{}.Default()

	bad := cfg
	bad.EMAFast, bad.EMASlow = 26, 12
	_, err := f.Build(bad)
	assert.Error(t, err)

	bad = cfg
	bad.RSIPeriod = 1
	_, err = f.Build(bad)
	assert.Error(t, err)

	_, err = (&Factory{}).Build(cfg)
	assert.Error(t, err)
}

func TestWarmupWindowHasNoValidRows(t *testing.T) {
	cfg := config.IndicatorConfig{}.Default()
	warmup := cfg.Warmup()
	require.Equal(t, 33, warmup)

	for _, n := range []int{10, 26, warmup} {
		p, err := newFactory(n).Build(cfg)
		require.NoError(t, err)
		rows, err := p.Compute(context.Background(), pipeline.NewContext("EURUSD", "15m"))
		require.Error(t, err, "window %d", n)
		assert.True(t, errors.Is(err, pipeline.ErrInsufficientHistory), "window %d", n)
		assert.Zero(t, pipeline.CountValid(rows), "window %d", n)
		assert.Len(t, rows, n)
	}
}

func TestSingleValidRowIsInsufficient(t *testing.T) {
	cfg := config.IndicatorConfig{}.Default()
	p, err := newFactory(cfg.Warmup() + 1).Build(cfg)
	require.NoError(t, err)
	rows, err := p.Compute(context.Background(), pipeline.NewContext("EURUSD", "15m"))
	assert.True(t, errors.Is(err, pipeline.ErrInsufficientHistory))
	assert.Equal(t, 1, pipeline.CountValid(rows))
}

func TestFullWindowRows(t *testing.T) {
	cfg := config.IndicatorConfig{}.Default()
	p, err := newFactory(150).Build(cfg)
	require.NoError(t, err)

	rows, err := p.Compute(context.Background(), pipeline.NewContext("EURUSD", "15m"))
	require.NoError(t, err)
	require.Len(t, rows, 100)
	assert.Equal(t, 100-cfg.Warmup(), pipeline.CountValid(rows))
	for i, r := range rows {
		assert.Equal(t, i >= cfg.Warmup(), r.Valid, "row %d", i)
		if r.Valid {
			assert.GreaterOrEqual(t, r.RSI, 0.0)
			assert.LessOrEqual(t, r.RSI, 100.0)
		}
	}
	prev, last, ok := pipeline.LastTwo(rows)
	require.True(t, ok)
	assert.Equal(t, rows[98], prev)
	assert.Equal(t, rows[99], last)
}

func TestComputeIsIdempotent(t *testing.T) {
	cfg := config.IndicatorConfig{}.Default()
	f := newFactory(100)
	p, err := f.Build(cfg)
	require.NoError(t, err)

	first, err := p.Compute(context.Background(), pipeline.NewContext("EURUSD", "15m"))
	require.NoError(t, err)
	second, err := p.Compute(context.Background(), pipeline.NewContext("EURUSD", "15m"))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// 仅指标流水线，输入相同窗口结果相同
	indicators, err := f.BuildIndicators(cfg)
	require.NoError(t, err)
	ac := pipeline.NewContext("EURUSD", "15m")
	ac.SetCandles(series(100))
	third, err := indicators.Compute(context.Background(), ac)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

// zigzagJump 是带小幅下行漂移的锯齿序列，在 jumpAt（偶数下标）处向上跳空。
func zigzagJump(n, jumpAt int) []market.Candle {
	const (
		base  = 1.1
		amp   = 0.001
		drift = 0.00005
		jump  = 0.008
	)
	out := make([]market.Candle, n)
	step := int64(15 * 60 * 1000)
	for i := range out {
		c := base - drift*float64(i)
		if i%2 == 0 {
			c += amp
		} else {
			c -= amp
		}
		if i >= jumpAt {
			c += jump
		}
		open := int64(1_700_000_000_000) + int64(i)*step
		out[i] = market.Candle{OpenTime: open, CloseTime: open + step - 1, Open: c, High: c + 0.0002, Low: c - 0.0002, Close: c}
	}
	return out
}

// mirror 以 pivot 为轴翻转价格，时间不变。
func mirror(in []market.Candle, pivot float64) []market.Candle {
	out := make([]market.Candle, len(in))
	for i, c := range in {
		out[i] = c
		out[i].Open = 2*pivot - c.Open
		out[i].Close = 2*pivot - c.Close
		out[i].High = 2*pivot - c.Low
		out[i].Low = 2*pivot - c.High
	}
	return out
}

func scanWindow(t *testing.T, candles []market.Candle) []strategy.Hit {
	t.Helper()
	cfg := config.IndicatorConfig{}.Default()
	f := &Factory{Feed: &fixedFeed{candles: candles}, Interval: "15m", Limit: 100}
	p, err := f.Build(cfg)
	require.NoError(t, err)
	rows, err := p.Compute(context.Background(), pipeline.NewContext("EURUSD", "15m"))
	require.NoError(t, err)
	return strategy.NewCrossover(strategy.ThresholdsFrom(cfg)).Scan(rows)
}

func TestMirroredSeriesFlipsSignals(t *testing.T) {
	forward := zigzagJump(100, 98)
	hits := scanWindow(t, forward)
	mirrored := scanWindow(t, mirror(forward, 1.1))

	var buys []int
	for _, h := range hits {
		if h.Signal == strategy.Buy {
			buys = append(buys, h.Index)
		}
	}
	require.Contains(t, buys, 98, "hits: %+v", hits)

	require.Len(t, mirrored, len(hits))
	for i, h := range hits {
		assert.Equal(t, h.Index, mirrored[i].Index)
		assert.Equal(t, h.Signal.Mirror(), mirrored[i].Signal, "index %d", h.Index)
	}
}
