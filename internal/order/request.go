package order

import (
	"context"
	"errors"
	"fmt"

	"crossbot/internal/strategy"
)

// ErrContract 表示调用方违反了构单约定（None 信号、point<=0 等），属于编程错误而非运行时故障。
var ErrContract = errors.New("order contract violation")

// StatusDone 是执行通道回报"已成交"的统一状态。
const StatusDone = "done"

// Request 是一次信号对应的下单请求，派发后不再修改。
// 价格字段是绝对价格，Deviation 以 point 计。
type Request struct {
	Symbol     string          `json:"symbol"`
	Direction  strategy.Signal `json:"-"`
	Side       string          `json:"side"`
	Volume     float64         `json:"volume"`
	EntryPrice float64         `json:"entry_price"`
	StopLoss   float64         `json:"stop_loss"`
	TakeProfit float64         `json:"take_profit"`
	Point      float64         `json:"point"`
	Deviation  int             `json:"deviation"`
	Magic      int64           `json:"magic"`
	Tag        string          `json:"tag"`
	ClientID   string          `json:"client_id"`
	SignalTime int64           `json:"signal_time"`
}

func (r Request) String() string {
	return fmt.Sprintf("%s %s vol=%g entry=%g sl=%g tp=%g dev=%d",
		r.Direction, r.Symbol, r.Volume, r.EntryPrice, r.StopLoss, r.TakeProfit, r.Deviation)
}

// Receipt 是执行通道对单次提交的原始回报。
type Receipt struct {
	Status  string
	Code    string
	Price   float64
	OrderID string
	Message string
}

// Outcome 是派发结果。Accepted=false 时 VenueMessage 携带通道的诊断文本。
type Outcome struct {
	Accepted     bool    `json:"accepted"`
	FillPrice    float64 `json:"fill_price"`
	VenueCode    string  `json:"venue_code"`
	VenueMessage string  `json:"venue_message"`
	OrderID      string  `json:"order_id"`
	Venue        string  `json:"venue"`
}

// Venue 是派发器需要的最小执行通道。
type Venue interface {
	Name() string
	Submit(ctx context.Context, req Request) (Receipt, error)
}

// Sink 接收每一次派发结果（流水、通知、指标）。
type Sink interface {
	Record(ctx context.Context, req Request, out Outcome) error
}
