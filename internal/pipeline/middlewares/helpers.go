package middlewares

import (
	"fmt"
	"strings"

	"crossbot/internal/market"
	"crossbot/internal/pipeline"
)

func nameOrDefault(val, fallback string) string {
	if val = strings.TrimSpace(val); val != "" {
		return val
	}
	return fallback
}

// requireCandles 在窗口长度不足 need 时返回 ErrInsufficientHistory。
// talib 在输入短于周期时会越界，因此所有调用前都要先经过这里。
func requireCandles(ac *pipeline.AnalysisContext, need int) ([]float64, error) {
	candles := ac.Candles()
	if len(candles) < need {
		return nil, fmt.Errorf("need %d candles got %d: %w", need, len(candles), pipeline.ErrInsufficientHistory)
	}
	return market.Closes(candles), nil
}
