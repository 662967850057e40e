package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crossbot/internal/market"
	"crossbot/internal/order"
	"crossbot/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBridge(t *testing.T, handler http.HandlerFunc) *Bridge {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second, APIKey: "k"})
	require.NoError(t, err)
	return New(client)
}

func TestFetchCandles(t *testing.T) {
	b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rates", r.URL.Path)
		assert.Equal(t, "EURUSD", r.URL.Query().Get("symbol"))
		assert.Equal(t, "M15", r.URL.Query().Get("timeframe"))
		assert.Equal(t, "100", r.URL.Query().Get("count"))
		assert.Equal(t, "k", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{"rates":[
			{"time":1700000000,"open":1.1,"high":1.2,"low":1.0,"close":1.15,"tick_volume":42},
			{"time":1700000900,"open":1.15,"high":1.25,"low":1.1,"close":1.2,"tick_volume":17}
		]}`))
	})

	candles, err := b.FetchCandles(context.Background(), "EURUSD", "15m", 100)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1700000000000), candles[0].OpenTime)
	assert.Equal(t, int64(1700000000000+900000-1), candles[0].CloseTime)
	assert.Equal(t, 1.15, candles[0].Close)
	assert.Equal(t, 17.0, candles[1].Volume)
}

func TestFetchCandlesEmptyIsNoData(t *testing.T) {
	b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rates":[]}`))
	})
	_, err := b.FetchCandles(context.Background(), "GOLD", "15m", 100)
	assert.True(t, errors.Is(err, market.ErrNoData))
}

func TestQuoteAndSymbolInfo(t *testing.T) {
	b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tick":
			_, _ = w.Write([]byte(`{"bid":1.09998,"ask":1.10000,"time":1700000000}`))
		case "/symbol":
			_, _ = w.Write([]byte(`{"point":0.00001,"digits":5}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()
	q, err := b.Quote(ctx, "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 1.09998, q.Bid)
	assert.Equal(t, 1.10000, q.Ask)
	assert.Equal(t, int64(1700000000), q.Time.Unix())

	info, err := b.SymbolInfo(ctx, "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 0.00001, info.Point)
}

func TestSubmitDone(t *testing.T) {
	var got map[string]any
	b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"retcode":10009,"price":1.10001,"order":991,"comment":"Request executed"}`))
	})
	req := order.Request{
		Symbol: "EURUSD", Direction: strategy.Buy, Side: "buy", Volume: 0.01,
		EntryPrice: 1.1, StopLoss: 1.0999, TakeProfit: 1.1002, Deviation: 10, Magic: 123456, Tag: "crossbot",
	}

	out := order.NewDispatcher(b).Dispatch(context.Background(), req)
	assert.True(t, out.Accepted)
	assert.Equal(t, 1.10001, out.FillPrice)
	assert.Equal(t, "991", out.OrderID)
	assert.Equal(t, "deal", got["action"])
	assert.Equal(t, "buy", got["type"])
	assert.Equal(t, 1.0999, got["sl"])
	assert.Equal(t, float64(123456), got["magic"])
	assert.Equal(t, "gtc", got["type_time"])
	assert.Equal(t, "return", got["type_filling"])
}

func TestSubmitRejected(t *testing.T) {
	b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"retcode":10004,"comment":"Requote"}`))
	})
	out := order.NewDispatcher(b).Dispatch(context.Background(), order.Request{Symbol: "GOLD", Side: "sell", Volume: 0.01})
	assert.False(t, out.Accepted)
	assert.Equal(t, "10004", out.VenueCode)
	assert.Equal(t, "Requote", out.VenueMessage)
}

func TestHTTPErrorSurfaces(t *testing.T) {
	b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"terminal not connected"}`))
	})
	err := b.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal not connected")
}

func TestPingNotReady(t *testing.T) {
	b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"login failed"}`))
	})
	assert.Error(t, b.Ping(context.Background()))
}

func TestTimeframe(t *testing.T) {
	cases := map[string]string{"15m": "M15", "1h": "H1", "4h": "H4", "1d": "D1", "1w": "W1"}
	for in, want := range cases {
		got, err := Timeframe(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := Timeframe("m")
	assert.Error(t, err)
	_, err = Timeframe("15x")
	assert.Error(t, err)
}
