// Package journal 把每一次派发的下单请求与结果写入 SQLite。
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"crossbot/internal/order"
	"crossbot/internal/strategy"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Entry 是查询接口返回的一条流水。
type Entry struct {
	Request    order.Request `json:"request"`
	Outcome    order.Outcome `json:"outcome"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// Store 实现 order.Sink。
type Store struct {
	db    *gorm.DB
	nowFn func() time.Time
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal path cannot be empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return OpenDB(db)
}

func OpenDB(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db 不能为空")
	}
	if err := db.AutoMigrate(&EntryModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return &Store{db: db, nowFn: time.Now}, nil
}

func (s *Store) Record(ctx context.Context, req order.Request, out order.Outcome) error {
	payload, err := json.Marshal(map[string]any{"request": req, "outcome": out})
	if err != nil {
		return err
	}
	row := EntryModel{
		ClientID:     req.ClientID,
		Symbol:       req.Symbol,
		Signal:       req.Direction.String(),
		Side:         req.Side,
		Volume:       req.Volume,
		EntryPrice:   req.EntryPrice,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		Point:        req.Point,
		Deviation:    req.Deviation,
		Magic:        req.Magic,
		Tag:          req.Tag,
		SignalTime:   req.SignalTime,
		Venue:        out.Venue,
		Accepted:     out.Accepted,
		FillPrice:    out.FillPrice,
		VenueCode:    out.VenueCode,
		VenueMessage: out.VenueMessage,
		OrderID:      out.OrderID,
		Payload:      datatypes.JSON(payload),
		RecordedAt:   s.nowFn().UnixMilli(),
	}
	if row.ClientID == "" {
		row.ClientID = fmt.Sprintf("%s-%d", req.Symbol, row.RecordedAt)
	}
	// 同一 ClientID 只保留第一次写入。
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("journal insert %s: %w", req.Symbol, err)
	}
	return nil
}

// Recent 返回最近 limit 条流水，新的在前；symbol 为空时不过滤。
func (s *Store) Recent(ctx context.Context, symbol string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Model(&EntryModel{}).Order("id DESC").Limit(limit)
	if symbol = strings.ToUpper(strings.TrimSpace(symbol)); symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	var rows []EntryModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.entry())
	}
	return out, nil
}

// Count 返回流水总数与成交数。
func (s *Store) Count(ctx context.Context) (total, accepted int64, err error) {
	db := s.db.WithContext(ctx).Model(&EntryModel{})
	if err = db.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = s.db.WithContext(ctx).Model(&EntryModel{}).Where("accepted = ?", true).Count(&accepted).Error
	return total, accepted, err
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r EntryModel) entry() Entry {
	e := Entry{RecordedAt: time.UnixMilli(r.RecordedAt).UTC()}
	if len(r.Payload) > 0 {
		var full struct {
			Request order.Request `json:"request"`
			Outcome order.Outcome `json:"outcome"`
		}
		if json.Unmarshal(r.Payload, &full) == nil {
			e.Request, e.Outcome = full.Request, full.Outcome
		}
	}
	// Direction 不参与 JSON，按列还原。
	e.Request.Direction = strategy.ParseSignal(r.Signal)
	return e
}
