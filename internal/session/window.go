// Package session 判断某一时刻是否处于交易时段。
package session

import (
	"fmt"
	"time"

	"crossbot/internal/config"
)

const day = 24 * time.Hour

// Window 是按固定时区偏移解释的每日交易时段，起止两端都包含在内。
// Start > End 表示跨零点的时段，例如 22:00–02:00。
type Window struct {
	Start        time.Duration
	End          time.Duration
	Location     *time.Location
	SkipWeekends bool
	AlwaysOpen   bool
}

// FromConfig 由 session 配置段构造时段。
func FromConfig(cfg config.SessionConfig) (Window, error) {
	start, err := config.ParseClock(cfg.Start)
	if err != nil {
		return Window{}, fmt.Errorf("session start: %w", err)
	}
	end, err := config.ParseClock(cfg.End)
	if err != nil {
		return Window{}, fmt.Errorf("session end: %w", err)
	}
	return Window{
		Start:        start,
		End:          end,
		Location:     FixedZone(cfg.UTCOffsetHours),
		SkipWeekends: cfg.SkipWeekends,
		AlwaysOpen:   cfg.AlwaysOpen,
	}, nil
}

// FixedZone 返回 UTC+hours 的固定时区，支持半小时偏移。
func FixedZone(hours float64) *time.Location {
	secs := int(hours * 3600)
	sign := "+"
	if secs < 0 {
		sign = "-"
	}
	abs := secs
	if abs < 0 {
		abs = -abs
	}
	name := fmt.Sprintf("UTC%s%02d:%02d", sign, abs/3600, abs%3600/60)
	return time.FixedZone(name, secs)
}

// Contains 是纯函数：只依赖 t 与时段定义。精度为秒。
func (w Window) Contains(t time.Time) bool {
	if w.AlwaysOpen {
		return true
	}
	local := t
	if w.Location != nil {
		local = t.In(w.Location)
	}
	tod := clock(local)
	// 跨零点时段的零点后部分归属前一天开盘的那一场
	sessionDay := local.Weekday()
	var inside bool
	switch {
	case w.Start <= w.End:
		inside = tod >= w.Start && tod <= w.End
	case tod >= w.Start:
		inside = true
	case tod <= w.End:
		inside = true
		sessionDay = (sessionDay + 6) % 7
	}
	if inside && w.SkipWeekends && (sessionDay == time.Saturday || sessionDay == time.Sunday) {
		return false
	}
	return inside
}

// NextOpen 返回 t 之后（含 t）时段第一次开启的时刻；一周内找不到时返回零值。
func (w Window) NextOpen(t time.Time) time.Time {
	if w.Contains(t) {
		return t
	}
	loc := w.Location
	if loc == nil {
		loc = t.Location()
	}
	local := t.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	for i := 0; i < 8; i++ {
		candidate := midnight.Add(time.Duration(i)*day + w.Start)
		if candidate.Before(t) {
			continue
		}
		if w.Contains(candidate) {
			return candidate
		}
	}
	return time.Time{}
}

func (w Window) String() string {
	if w.AlwaysOpen {
		return "always"
	}
	zone := "local"
	if w.Location != nil {
		zone = w.Location.String()
	}
	return fmt.Sprintf("%s-%s %s", formatClock(w.Start), formatClock(w.End), zone)
}

func clock(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}

func formatClock(d time.Duration) string {
	d %= day
	return fmt.Sprintf("%02d:%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute), int(d%time.Minute/time.Second))
}
