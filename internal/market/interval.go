package market

import (
	"strconv"
	"strings"
	"time"
)

// FormingGrace 是收盘后仍按未完成处理的时间，覆盖交易所数据落地的延迟。
const FormingGrace = 10 * time.Second

var intervalUnits = map[byte]time.Duration{
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// IntervalDuration 把 "15m"、"4h"、"1d"、"1w" 之类的周期转成时长，大小写不敏感。
func IntervalDuration(interval string) (time.Duration, bool) {
	interval = strings.ToLower(strings.TrimSpace(interval))
	if len(interval) < 2 {
		return 0, false
	}
	unit, ok := intervalUnits[interval[len(interval)-1]]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * unit, true
}

// DropForming 去掉窗口末尾尚未收盘的一根：OpenTime+interval+FormingGrace 晚于 now 即视为未收盘。
// 只检查最后一根；interval 非正或 OpenTime 缺失时原样返回。
func DropForming(candles []Candle, interval time.Duration, now time.Time) []Candle {
	n := len(candles)
	if n == 0 || interval <= 0 || candles[n-1].OpenTime <= 0 {
		return candles
	}
	settled := candles[n-1].OpenTime + (interval + FormingGrace).Milliseconds()
	if now.UnixMilli() < settled {
		return candles[:n-1]
	}
	return candles
}
