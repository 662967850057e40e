package strategy

import "strings"

// Signal 是单次评估的离散结果，只在本轮内使用，不落盘。
type Signal int

const (
	None Signal = iota
	Buy
	Sell
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NONE"
	}
}

// Side 返回下单方向（buy/sell），None 返回空串。
func (s Signal) Side() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return ""
	}
}

// Mirror 交换方向，None 保持不变。
func (s Signal) Mirror() Signal {
	switch s {
	case Buy:
		return Sell
	case Sell:
		return Buy
	default:
		return None
	}
}

// ParseSignal 解析 BUY/SELL，其余视为 None。
func ParseSignal(raw string) Signal {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY", "LONG":
		return Buy
	case "SELL", "SHORT":
		return Sell
	default:
		return None
	}
}
