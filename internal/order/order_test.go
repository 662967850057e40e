package order

import (
	"context"
	"errors"
	"testing"

	"crossbot/internal/config"
	"crossbot/internal/market"
	"crossbot/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func fixedBuilder() *Builder {
	b := NewBuilder(RiskParams{
		Volume:           0.01,
		StopLossPoints:   10,
		TakeProfitPoints: 20,
		DeviationPoints:  10,
		Magic:            123456,
		Comment:          "crossbot",
	})
	b.newID = func() string { return "fixed-id" }
	return b
}

func TestBuildBuy(t *testing.T) {
	quote := market.Quote{Symbol: "EURUSD", Bid: 1.09998, Ask: 1.10000}
	info := market.SymbolInfo{Symbol: "EURUSD", Point: 0.00001}

	req, err := fixedBuilder().Build(strategy.Buy, quote, info, 42)
	require.NoError(t, err)
	assert.Equal(t, 1.10000, req.EntryPrice)
	assert.Equal(t, 1.09990, req.StopLoss)
	assert.Equal(t, 1.10020, req.TakeProfit)
	assert.Equal(t, "buy", req.Side)
	assert.Equal(t, 0.01, req.Volume)
	assert.Equal(t, 10, req.Deviation)
	assert.Equal(t, int64(123456), req.Magic)
	assert.Equal(t, "crossbot", req.Tag)
	assert.Equal(t, "fixed-id", req.ClientID)
	assert.Equal(t, int64(42), req.SignalTime)
	assert.Less(t, req.StopLoss, req.EntryPrice)
	assert.Greater(t, req.TakeProfit, req.EntryPrice)
}

func TestBuildSell(t *testing.T) {
	quote := market.Quote{Symbol: "EURUSD", Bid: 1.10000, Ask: 1.10002}
	info := market.SymbolInfo{Symbol: "EURUSD", Point: 0.00001}

	req, err := fixedBuilder().Build(strategy.Sell, quote, info, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.10000, req.EntryPrice)
	assert.Equal(t, 1.10010, req.StopLoss)
	assert.Equal(t, 1.09980, req.TakeProfit)
	assert.Equal(t, "sell", req.Side)
	assert.Greater(t, req.StopLoss, req.EntryPrice)
	assert.Less(t, req.TakeProfit, req.EntryPrice)
}

func TestBuildGoldTwoDecimals(t *testing.T) {
	quote := market.Quote{Symbol: "GOLD", Bid: 2345.10, Ask: 2345.35}
	req, err := fixedBuilder().Build(strategy.Buy, quote, market.SymbolInfo{Symbol: "GOLD", Point: 0.01}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2345.35, req.EntryPrice)
	assert.Equal(t, 2345.25, req.StopLoss)
	assert.Equal(t, 2345.55, req.TakeProfit)
}

func TestBuildContractViolations(t *testing.T) {
	quote := market.Quote{Symbol: "EURUSD", Bid: 1.1, Ask: 1.1001}
	info := market.SymbolInfo{Symbol: "EURUSD", Point: 0.00001}
	b := fixedBuilder()

	_, err := b.Build(strategy.None, quote, info, 0)
	assert.True(t, errors.Is(err, ErrContract))

	_, err = b.Build(strategy.Buy, quote, market.SymbolInfo{Point: 0}, 0)
	assert.True(t, errors.Is(err, ErrContract))

	_, err = b.Build(strategy.Sell, market.Quote{Symbol: "EURUSD"}, info, 0)
	assert.True(t, errors.Is(err, ErrContract))

	zero := NewBuilder(RiskParams{StopLossPoints: 10, TakeProfitPoints: 20})
	_, err = zero.Build(strategy.Buy, quote, info, 0)
	assert.True(t, errors.Is(err, ErrContract))
}

func TestRiskFromConfig(t *testing.T) {
	risk := RiskFrom(config.TradingConfig{Volume: 0.02, StopLossPoints: 5, TakeProfitPoints: 9, DeviationPoints: 3, Magic: 7, Comment: "x"})
	assert.Equal(t, RiskParams{Volume: 0.02, StopLossPoints: 5, TakeProfitPoints: 9, DeviationPoints: 3, Magic: 7, Comment: "x"}, risk)
}

type MockVenue struct {
	mock.Mock
}

func (m *MockVenue) Name() string { return "mock" }

func (m *MockVenue) Submit(ctx context.Context, req Request) (Receipt, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(Receipt), args.Error(1)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Record(ctx context.Context, req Request, out Outcome) error {
	args := m.Called(ctx, req, out)
	return args.Error(0)
}

func sampleRequest() Request {
	return Request{Symbol: "EURUSD", Direction: strategy.Buy, Side: "buy", Volume: 0.01, EntryPrice: 1.1, StopLoss: 1.0999, TakeProfit: 1.1002, Deviation: 10, ClientID: "c-1"}
}

func TestDispatchAccepted(t *testing.T) {
	ctx := context.Background()
	req := sampleRequest()
	venue := new(MockVenue)
	venue.On("Submit", ctx, req).Return(Receipt{Status: StatusDone, Code: "10009", Price: 1.10001, OrderID: "77"}, nil).Once()
	sink := new(MockSink)
	sink.On("Record", ctx, req, mock.MatchedBy(func(o Outcome) bool { return o.Accepted })).Return(nil).Once()

	out := NewDispatcher(venue, sink).Dispatch(ctx, req)
	assert.True(t, out.Accepted)
	assert.Equal(t, 1.10001, out.FillPrice)
	assert.Equal(t, "77", out.OrderID)
	assert.Equal(t, "mock", out.Venue)
	venue.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestDispatchRejectedIsNotRetried(t *testing.T) {
	ctx := context.Background()
	req := sampleRequest()
	venue := new(MockVenue)
	venue.On("Submit", ctx, req).Return(Receipt{Status: "rejected", Code: "requote", Message: "price moved 15 points"}, nil).Once()

	out := NewDispatcher(venue).Dispatch(ctx, req)
	assert.False(t, out.Accepted)
	assert.Equal(t, "requote", out.VenueCode)
	assert.Equal(t, "price moved 15 points", out.VenueMessage)
	venue.AssertNumberOfCalls(t, "Submit", 1)
}

func TestDispatchTransportError(t *testing.T) {
	ctx := context.Background()
	req := sampleRequest()
	venue := new(MockVenue)
	venue.On("Submit", ctx, req).Return(Receipt{}, errors.New("connection reset")).Once()
	sink := new(MockSink)
	sink.On("Record", ctx, req, mock.Anything).Return(errors.New("disk full")).Once()

	out := NewDispatcher(venue, sink, nil).Dispatch(ctx, req)
	assert.False(t, out.Accepted)
	assert.Equal(t, "transport_error", out.VenueCode)
	assert.Equal(t, "connection reset", out.VenueMessage)
	sink.AssertExpectations(t)
}

func TestDispatchFillPriceFallback(t *testing.T) {
	ctx := context.Background()
	req := sampleRequest()
	venue := new(MockVenue)
	venue.On("Submit", ctx, req).Return(Receipt{Status: "DONE"}, nil)

	out := NewDispatcher(venue).Dispatch(ctx, req)
	assert.True(t, out.Accepted)
	assert.Equal(t, req.EntryPrice, out.FillPrice)
}

func TestDispatchWithoutVenue(t *testing.T) {
	out := NewDispatcher(nil).Dispatch(context.Background(), sampleRequest())
	assert.False(t, out.Accepted)
	assert.Equal(t, "no_venue", out.VenueCode)
}
