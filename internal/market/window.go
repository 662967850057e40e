package market

import "sort"

// DefaultWindow 是每轮抓取的默认 K 线数量。
const DefaultWindow = 100

// NormalizeWindow 把数据源返回的 K 线整理成标准窗口：
// 丢弃无效行、按 OpenTime 升序、同一 OpenTime 以后出现者为准、只保留最近 max 根。
// 返回值是新分配的切片，不与入参共享底层数组。
func NormalizeWindow(candles []Candle, max int) []Candle {
	if len(candles) == 0 {
		return nil
	}
	if max <= 0 {
		max = DefaultWindow
	}
	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		if !c.valid() {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OpenTime < out[j].OpenTime
	})
	dedup := out[:0]
	for _, c := range out {
		n := len(dedup)
		if n > 0 && dedup[n-1].OpenTime == c.OpenTime {
			dedup[n-1] = c
			continue
		}
		dedup = append(dedup, c)
	}
	if len(dedup) > max {
		dedup = dedup[len(dedup)-max:]
	}
	if len(dedup) == 0 {
		return nil
	}
	res := make([]Candle, len(dedup))
	copy(res, dedup)
	return res
}

// Closes 抽取收盘价序列，所有指标共用这一输入。
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
