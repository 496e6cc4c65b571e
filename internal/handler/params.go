package handler

import (
	"time"
)

const dateLayout = "2006-01-02"

// RFC3339か日付（YYYY-MM-DD）を受け付ける。日付のtoはその日の終わりまで含める
func parseTimeParam(v string, endOfDay bool) (*time.Time, bool) {
	if v == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, true
	}
	d, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return &d, true
}
