package journal

import "gorm.io/datatypes"

// EntryModel maps to 'order_journal' table. 只做审计，不追踪持仓。
type EntryModel struct {
	ID           int64          `gorm:"column:id;primaryKey"`
	ClientID     string         `gorm:"column:client_id;uniqueIndex"`
	Symbol       string         `gorm:"column:symbol;index"`
	Signal       string         `gorm:"column:signal"`
	Side         string         `gorm:"column:side"`
	Volume       float64        `gorm:"column:volume"`
	EntryPrice   float64        `gorm:"column:entry_price"`
	StopLoss     float64        `gorm:"column:stop_loss"`
	TakeProfit   float64        `gorm:"column:take_profit"`
	Point        float64        `gorm:"column:point"`
	Deviation    int            `gorm:"column:deviation"`
	Magic        int64          `gorm:"column:magic"`
	Tag          string         `gorm:"column:tag"`
	SignalTime   int64          `gorm:"column:signal_time"`
	Venue        string         `gorm:"column:venue"`
	Accepted     bool           `gorm:"column:accepted"`
	FillPrice    float64        `gorm:"column:fill_price"`
	VenueCode    string         `gorm:"column:venue_code"`
	VenueMessage string         `gorm:"column:venue_message"`
	OrderID      string         `gorm:"column:order_id"`
	Payload      datatypes.JSON `gorm:"column:payload"`
	RecordedAt   int64          `gorm:"column:recorded_at;index"`
}

func (EntryModel) TableName() string { return "order_journal" }
