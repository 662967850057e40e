package venue

import (
	"context"

	"crossbot/internal/order"
)

// Venue 是可下单的执行通道。Ping 用于启动前的连通性检查。
type Venue interface {
	order.Venue

	Ping(ctx context.Context) error
}

// 拒单代码，paper 通道与各适配器共用。
const (
	CodeRequote       = "requote"
	CodeInvalidVolume = "invalid_volume"
	CodeNoQuote       = "no_quote"
	CodeRejected      = "rejected"
)
