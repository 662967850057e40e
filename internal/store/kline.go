package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"crossbot/internal/market"
)

// WindowStore 保存每个品种最近一次评估所用的 K 线窗口。
// 每轮整体替换，不做增量追加。
type WindowStore interface {
	Replace(ctx context.Context, symbol, interval string, ks []market.Candle) error
	Export(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error)
}

var errEmptyKey = errors.New("symbol/interval 不能为空")

type windowKey struct {
	symbol   string
	interval string
}

type window struct {
	candles []market.Candle
	updated time.Time
}

// MemoryKlineStore 是进程内的 WindowStore，品种数量很少，一把读写锁足够。
type MemoryKlineStore struct {
	mu    sync.RWMutex
	data  map[windowKey]window
	nowFn func() time.Time
}

func NewMemoryKlineStore() *MemoryKlineStore {
	return &MemoryKlineStore{data: make(map[windowKey]window), nowFn: time.Now}
}

func newKey(symbol, interval string) (windowKey, error) {
	if symbol == "" || interval == "" {
		return windowKey{}, errEmptyKey
	}
	return windowKey{symbol: symbol, interval: interval}, nil
}

// Replace 用新窗口整体替换旧窗口；空窗口会清除该 key。
func (s *MemoryKlineStore) Replace(ctx context.Context, symbol, interval string, ks []market.Candle) error {
	k, err := newKey(symbol, interval)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ks) == 0 {
		delete(s.data, k)
		return nil
	}
	s.data[k] = window{candles: append([]market.Candle(nil), ks...), updated: s.nowFn()}
	return nil
}

// Export 返回最近 limit 根 K 线的副本；limit<=0 表示全部。
func (s *MemoryKlineStore) Export(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	k, err := newKey(symbol, interval)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := s.data[k].candles
	if len(cur) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(cur) {
		limit = len(cur)
	}
	return append([]market.Candle(nil), cur[len(cur)-limit:]...), nil
}

// UpdatedAt 返回窗口最后一次替换的时间；不存在时 ok=false。
func (s *MemoryKlineStore) UpdatedAt(symbol, interval string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.data[windowKey{symbol: symbol, interval: interval}]
	return w.updated, ok
}
