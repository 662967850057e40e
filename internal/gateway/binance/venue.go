package binance

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"crossbot/internal/gateway/venue"
	"crossbot/internal/logger"
	"crossbot/internal/order"
	"crossbot/internal/pkg/convert"
	"crossbot/internal/strategy"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

// Submit 以市价开仓，随后挂 STOP_MARKET / TAKE_PROFIT_MARKET 全平条件单作为止损止盈。
// 提交前重读盘口，偏离请求入场价超过 deviation 个 point 时按 requote 拒单。
func (s *Source) Submit(ctx context.Context, req order.Request) (order.Receipt, error) {
	if req.Volume <= 0 {
		return reject(venue.CodeInvalidVolume, fmt.Sprintf("invalid volume %g", req.Volume)), nil
	}
	side, closeSide, ok := sides(req.Direction)
	if !ok {
		return reject(venue.CodeRejected, "unknown direction "+req.Direction.String()), nil
	}
	clean := exchangeSymbol(req.Symbol)

	quote, err := s.Quote(ctx, req.Symbol)
	if err != nil {
		return order.Receipt{}, err
	}
	if req.Point > 0 {
		ref := quote.Ask
		if req.Direction == strategy.Sell {
			ref = quote.Bid
		}
		if moved, out := deviation(ref, req.EntryPrice, req.Point, req.Deviation); out {
			return reject(venue.CodeRequote, fmt.Sprintf("price moved %.1f points (max %d)", moved, req.Deviation)), nil
		}
	}

	svc := s.client.NewCreateOrderService().
		Symbol(clean).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(convert.FormatQty(req.Volume)).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT)
	if req.ClientID != "" {
		svc = svc.NewClientOrderID(req.ClientID)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) {
			return reject(strconv.FormatInt(apiErr.Code, 10), apiErr.Message), nil
		}
		return order.Receipt{}, fmt.Errorf("binance create order %s: %w", clean, err)
	}

	rec := order.Receipt{
		Code:    string(resp.Status),
		Price:   convert.ParseFloat(resp.AvgPrice),
		OrderID: strconv.FormatInt(resp.OrderID, 10),
	}
	switch resp.Status {
	case futures.OrderStatusTypeNew, futures.OrderStatusTypeFilled, futures.OrderStatusTypePartiallyFilled:
		rec.Status = order.StatusDone
	default:
		rec.Status = venue.CodeRejected
		rec.Message = fmt.Sprintf("order status %s", resp.Status)
		return rec, nil
	}

	places := convert.Places(req.Point)
	s.placeBracket(ctx, clean, closeSide, futures.OrderTypeStopMarket, req.StopLoss, places)
	s.placeBracket(ctx, clean, closeSide, futures.OrderTypeTakeProfitMarket, req.TakeProfit, places)
	return rec, nil
}

// placeBracket 失败只记录告警：主单已成交，不能把整笔回报改成拒单。
func (s *Source) placeBracket(ctx context.Context, symbol string, side futures.SideType, typ futures.OrderType, price float64, places int32) {
	if price <= 0 {
		return
	}
	_, err := s.client.NewCreateOrderService().
		Symbol(symbol).
		Side(side).
		Type(typ).
		StopPrice(convert.FormatPrice(price, places)).
		ClosePosition(true).
		WorkingType(futures.WorkingTypeMarkPrice).
		TimeInForce(futures.TimeInForceTypeGTC).
		Do(ctx)
	if err != nil {
		logger.Warnf("[binance] %s %s bracket @%s failed: %v", symbol, typ, convert.FormatPrice(price, places), describe(err))
	}
}

func sides(sig strategy.Signal) (futures.SideType, futures.SideType, bool) {
	switch sig {
	case strategy.Buy:
		return futures.SideTypeBuy, futures.SideTypeSell, true
	case strategy.Sell:
		return futures.SideTypeSell, futures.SideTypeBuy, true
	default:
		return "", "", false
	}
}

// deviation 返回 ref 与 entry 相差的 point 数，以及是否超过允许值。
func deviation(ref, entry, point float64, maxPoints int) (float64, bool) {
	p := decimal.NewFromFloat(point)
	diff := decimal.NewFromFloat(ref).Sub(decimal.NewFromFloat(entry)).Abs()
	moved := diff.Div(p).Round(1).InexactFloat64()
	return moved, diff.GreaterThan(p.Mul(decimal.NewFromInt(int64(maxPoints))))
}

func reject(code, msg string) order.Receipt {
	return order.Receipt{Status: venue.CodeRejected, Code: code, Message: msg}
}

// describe 把 SDK 的 APIError 展开成带错误码的文本。
func describe(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("code=%d msg=%s", apiErr.Code, apiErr.Message)
	}
	return err
}
