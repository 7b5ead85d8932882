package domain

import (
	"errors"
	"time"
)

// Span is a stored bucket resolution.
type Span string

const (
	SpanHour Span = "hour"
	SpanDay  Span = "day"
)

var ErrInvalidSpan = errors.New("invalid span")

// Spans lists every stored resolution, finest first.
var Spans = []Span{SpanHour, SpanDay}

func ParseSpan(s string) (Span, error) {
	switch Span(s) {
	case SpanHour:
		return SpanHour, nil
	case SpanDay:
		return SpanDay, nil
	default:
		return "", ErrInvalidSpan
	}
}

// Truncate returns the start of the UTC period containing t.
func (s Span) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch s {
	case SpanDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return t.Truncate(time.Hour)
	}
}

// Add moves start by n periods.
func (s Span) Add(start time.Time, n int) time.Time {
	switch s {
	case SpanDay:
		return start.AddDate(0, 0, n)
	default:
		return start.Add(time.Duration(n) * time.Hour)
	}
}
