package pipeline

// IndicatorRow 与窗口中的一根 K 线对齐。Valid=false 的行处于预热期，不参与评估。
type IndicatorRow struct {
	Time       int64   `json:"time"`
	EMAFast    float64 `json:"ema_fast"`
	EMASlow    float64 `json:"ema_slow"`
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	Valid      bool    `json:"valid"`
}

// ValidRows 返回有效行（保持原顺序）。
func ValidRows(rows []IndicatorRow) []IndicatorRow {
	out := make([]IndicatorRow, 0, len(rows))
	for _, r := range rows {
		if r.Valid {
			out = append(out, r)
		}
	}
	return out
}

func CountValid(rows []IndicatorRow) int {
	n := 0
	for _, r := range rows {
		if r.Valid {
			n++
		}
	}
	return n
}

// LastTwo 返回最近两条有效行（prev, last）。
func LastTwo(rows []IndicatorRow) (prev, last IndicatorRow, ok bool) {
	found := 0
	for i := len(rows) - 1; i >= 0 && found < 2; i-- {
		if !rows[i].Valid {
			continue
		}
		if found == 0 {
			last = rows[i]
		} else {
			prev = rows[i]
		}
		found++
	}
	return prev, last, found == 2
}

// Warmup 计算给定周期组合下第一条有效行的下标。
func Warmup(emaFast, emaSlow, rsiPeriod, macdFast, macdSlow, macdSignal int) int {
	w := emaSlow - 1
	if emaFast-1 > w {
		w = emaFast - 1
	}
	if rsiPeriod > w {
		w = rsiPeriod
	}
	macdLong := macdSlow
	if macdFast > macdLong {
		macdLong = macdFast
	}
	if m := macdLong + macdSignal - 2; m > w {
		w = m
	}
	return w
}
