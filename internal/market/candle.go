package market

// Candle 是一根固定周期的 K 线，产生后不再修改。时间戳为毫秒。
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int64   `json:"trades"`
}

// Timestamp 返回用于对齐指标行的时间戳：优先 CloseTime，缺失时用 OpenTime。
func (c Candle) Timestamp() int64 {
	if c.CloseTime > 0 {
		return c.CloseTime
	}
	return c.OpenTime
}

func (c Candle) valid() bool {
	if c.Close <= 0 || c.High < c.Low {
		return false
	}
	return c.OpenTime > 0 || c.CloseTime > 0
}
