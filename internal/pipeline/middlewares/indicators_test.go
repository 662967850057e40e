package middlewares

import (
	"context"
	"errors"
	"math"
	"testing"

	"crossbot/internal/market"
	"crossbot/internal/pipeline"
	"crossbot/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const barMillis = int64(15 * 60 * 1000)

func candlesFrom(closes []float64) []market.Candle {
	out := make([]market.Candle, len(closes))
	base := int64(1_700_000_000_000)
	for i, c := range closes {
		open := base + int64(i)*barMillis
		out[i] = market.Candle{
			OpenTime:  open,
			CloseTime: open + barMillis - 1,
			Open:      c,
			High:      c + 0.0005,
			Low:       c - 0.0005,
			Close:     c,
			Volume:    100,
		}
	}
	return out
}

func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.1 + 0.01*math.Sin(float64(i)/5) + 0.0001*float64(i)
	}
	return out
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func contextWith(closes []float64) *pipeline.AnalysisContext {
	ac := pipeline.NewContext("EURUSD", "15m")
	ac.SetCandles(candlesFrom(closes))
	return ac
}

func referenceEMA(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += closes[i]
	}
	out[period-1] = sum / float64(period)
	k := 2.0 / float64(period+1)
	for i := period; i < len(closes); i++ {
		out[i] = out[i-1] + k*(closes[i]-out[i-1])
	}
	return out
}

func TestEMACrossMatchesRecurrence(t *testing.T) {
	closes := wave(100)
	ac := contextWith(closes)
	mw := NewEMACross(EMACrossConfig{Fast: 12, Slow: 26})
	require.NoError(t, mw.Handle(context.Background(), ac))

	fast, fastStart, ok := ac.Series(pipeline.SeriesEMAFast)
	require.True(t, ok)
	slow, slowStart, ok := ac.Series(pipeline.SeriesEMASlow)
	require.True(t, ok)
	assert.Equal(t, 11, fastStart)
	assert.Equal(t, 25, slowStart)

	wantFast := referenceEMA(closes, 12)
	wantSlow := referenceEMA(closes, 26)
	for i := fastStart; i < len(closes); i++ {
		assert.InDelta(t, wantFast[i], fast[i], 1e-12, "ema_fast[%d]", i)
	}
	for i := slowStart; i < len(closes); i++ {
		assert.InDelta(t, wantSlow[i], slow[i], 1e-12, "ema_slow[%d]", i)
	}
}

func TestEMAOfConstantSeriesIsConstant(t *testing.T) {
	closes := ramp(40, 1.25, 0)
	ac := contextWith(closes)
	require.NoError(t, NewEMACross(EMACrossConfig{Fast: 12, Slow: 26}).Handle(context.Background(), ac))
	fast, start, _ := ac.Series(pipeline.SeriesEMAFast)
	for i := start; i < len(fast); i++ {
		assert.InDelta(t, 1.25, fast[i], 1e-12)
	}
}

func TestRSIBounds(t *testing.T) {
	mw := NewRSIMiddleware(RSIConfig{Period: 14})

	rising := contextWith(ramp(40, 1.0, 0.001))
	require.NoError(t, mw.Handle(context.Background(), rising))
	values, start, ok := rising.Series(pipeline.SeriesRSI)
	require.True(t, ok)
	assert.Equal(t, 14, start)
	for i := start; i < len(values); i++ {
		assert.InDelta(t, 100, values[i], 1e-9)
	}

	falling := contextWith(ramp(40, 2.0, -0.001))
	require.NoError(t, mw.Handle(context.Background(), falling))
	values, start, _ = falling.Series(pipeline.SeriesRSI)
	for i := start; i < len(values); i++ {
		assert.InDelta(t, 0, values[i], 1e-9)
	}

	mixed := contextWith(wave(100))
	require.NoError(t, mw.Handle(context.Background(), mixed))
	values, start, _ = mixed.Series(pipeline.SeriesRSI)
	for i := start; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], 0.0)
		assert.LessOrEqual(t, values[i], 100.0)
	}
}

func TestRSIRequiresPeriodPlusOne(t *testing.T) {
	mw := NewRSIMiddleware(RSIConfig{Period: 14})
	err := mw.Handle(context.Background(), contextWith(ramp(14, 1, 0.001)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, pipeline.ErrInsufficientHistory))
	assert.NoError(t, mw.Handle(context.Background(), contextWith(ramp(15, 1, 0.001))))
}

func TestMACDAlignment(t *testing.T) {
	closes := wave(100)
	ac := contextWith(closes)
	require.NoError(t, NewMACDMiddleware(MACDConfig{Fast: 12, Slow: 26, Signal: 9}).Handle(context.Background(), ac))

	line, lineStart, ok := ac.Series(pipeline.SeriesMACD)
	require.True(t, ok)
	signal, signalStart, ok := ac.Series(pipeline.SeriesMACDSignal)
	require.True(t, ok)
	assert.Equal(t, 25, lineStart)
	assert.Equal(t, 33, signalStart)
	require.Len(t, line, len(closes))
	require.Len(t, signal, len(closes))

	fast := referenceEMA(closes, 12)
	slow := referenceEMA(closes, 26)
	for i := lineStart; i < len(closes); i++ {
		assert.InDelta(t, fast[i]-slow[i], line[i], 1e-12, "macd[%d]", i)
	}
	smoothed := referenceEMA(line[lineStart:], 9)
	for i := signalStart; i < len(closes); i++ {
		assert.InDelta(t, smoothed[i-lineStart], signal[i], 1e-12, "signal[%d]", i)
	}
}

func TestMACDFlatSeriesIsZero(t *testing.T) {
	ac := contextWith(ramp(60, 1.5, 0))
	require.NoError(t, NewMACDMiddleware(MACDConfig{}).Handle(context.Background(), ac))
	line, _, _ := ac.Series(pipeline.SeriesMACD)
	signal, start, _ := ac.Series(pipeline.SeriesMACDSignal)
	for i := start; i < len(line); i++ {
		assert.InDelta(t, 0, line[i], 1e-12)
		assert.InDelta(t, 0, signal[i], 1e-12)
	}
}

func TestMACDInsufficientHistory(t *testing.T) {
	err := NewMACDMiddleware(MACDConfig{}).Handle(context.Background(), contextWith(wave(33)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, pipeline.ErrInsufficientHistory))
}

type stubFeed struct {
	candles []market.Candle
	err     error
	calls   int
}

func (s *stubFeed) Name() string { return "stub" }

func (s *stubFeed) FetchCandles(ctx context.Context, symbol, interval string, count int) ([]market.Candle, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.candles, nil
}

func TestCandleFetcherEmptyIsNoData(t *testing.T) {
	fetcher := NewCandleFetcher(CandleFetcherConfig{Interval: "15m"}, &stubFeed{}, nil)
	ac := pipeline.NewContext("GOLD", "")
	err := fetcher.Handle(context.Background(), ac)
	require.Error(t, err)
	assert.True(t, errors.Is(err, market.ErrNoData))
	assert.Empty(t, ac.Candles())
}

func TestCandleFetcherNormalizesAndStores(t *testing.T) {
	raw := candlesFrom(wave(120))
	// 乱序加一条无效行
	raw[0], raw[119] = raw[119], raw[0]
	raw = append(raw, market.Candle{OpenTime: 1, Close: 0})
	feed := &stubFeed{candles: raw}
	windows := store.NewMemoryKlineStore()
	fetcher := NewCandleFetcher(CandleFetcherConfig{Interval: "15m", Limit: 100}, feed, windows)

	ac := pipeline.NewContext("eurusd", "15m")
	require.NoError(t, fetcher.Handle(context.Background(), ac))

	got := ac.Candles()
	require.Len(t, got, 100)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].OpenTime, got[i].OpenTime)
	}
	stored, err := windows.Export(context.Background(), "EURUSD", "15m", 0)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
	assert.Equal(t, 1, feed.calls)
}

func TestCandleFetcherPropagatesFeedError(t *testing.T) {
	boom := errors.New("bridge offline")
	fetcher := NewCandleFetcher(CandleFetcherConfig{}, &stubFeed{err: boom}, nil)
	err := fetcher.Handle(context.Background(), pipeline.NewContext("GOLD", "15m"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}
