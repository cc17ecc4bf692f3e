package utils

import (
	"fmt"
	"time"
)

// parseTimeOfDay 解析 HH:MM:SS
func parseTimeOfDay(at string) (h, m, s int, err error) {
	t, err := time.Parse("15:04:05", at)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("无效时间 %q: %w", at, err)
	}
	return t.Hour(), t.Minute(), t.Second(), nil
}

// NextDaily 下一次每日触发时间（严格晚于 now）
func NextDaily(now time.Time, at string) (time.Time, error) {
	h, m, s, err := parseTimeOfDay(at)
	if err != nil {
		return time.Time{}, err
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), h, m, s, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

// NextWeekly 下一次每周触发时间（严格晚于 now）
func NextWeekly(now time.Time, day time.Weekday, at string) (time.Time, error) {
	h, m, s, err := parseTimeOfDay(at)
	if err != nil {
		return time.Time{}, err
	}
	offset := (int(day) - int(now.Weekday()) + 7) % 7
	next := time.Date(now.Year(), now.Month(), now.Day()+offset, h, m, s, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next, nil
}

// WeekIdentifier 周编号 YYYY-Www（周日为一周开始，年初第一个周日之前为第 00 周）
func WeekIdentifier(t time.Time) string {
	yday := t.YearDay() - 1
	week := (yday + 7 - int(t.Weekday())) / 7
	return fmt.Sprintf("%d-W%02d", t.Year(), week)
}
