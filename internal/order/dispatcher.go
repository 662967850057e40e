package order

import (
	"context"
	"strings"

	"crossbot/internal/logger"
)

// Dispatcher 把请求提交给执行通道并解释回报。每个请求只提交一次，不重试。
type Dispatcher struct {
	venue Venue
	sinks []Sink
}

func NewDispatcher(venue Venue, sinks ...Sink) *Dispatcher {
	d := &Dispatcher{venue: venue}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	return d
}

// VenueName 返回当前执行通道名称。
func (d *Dispatcher) VenueName() string {
	if d == nil || d.venue == nil {
		return ""
	}
	return d.venue.Name()
}

// Dispatch 提交请求。只有回报状态为 done 才算接受；传输错误与其他状态都记为拒绝，
// 诊断文本写入 VenueMessage。结果随后写入所有 sink，sink 失败只记日志。
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Outcome {
	out := Outcome{Venue: d.VenueName()}
	if d == nil || d.venue == nil {
		out.VenueCode = "no_venue"
		out.VenueMessage = "execution venue not configured"
		return out
	}
	receipt, err := d.venue.Submit(ctx, req)
	switch {
	case err != nil:
		out.VenueCode = "transport_error"
		out.VenueMessage = err.Error()
	case strings.EqualFold(receipt.Status, StatusDone):
		out.Accepted = true
		out.FillPrice = receipt.Price
		out.VenueCode = receipt.Code
		out.VenueMessage = receipt.Message
		out.OrderID = receipt.OrderID
		if out.FillPrice <= 0 {
			out.FillPrice = req.EntryPrice
		}
	default:
		out.VenueCode = receipt.Code
		if out.VenueCode == "" {
			out.VenueCode = receipt.Status
		}
		out.VenueMessage = strings.TrimSpace(receipt.Message)
		if out.VenueMessage == "" {
			out.VenueMessage = "rejected with status " + receipt.Status
		}
		out.OrderID = receipt.OrderID
	}
	for _, s := range d.sinks {
		if err := s.Record(ctx, req, out); err != nil {
			logger.Warnf("[order] sink failed for %s %s: %v", req.Symbol, req.ClientID, err)
		}
	}
	return out
}
