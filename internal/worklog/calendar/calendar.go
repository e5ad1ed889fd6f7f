package calendar

import (
	"context"
	"time"
)

// Source answers date lookups against the two admin-maintained calendar
// fact sets. Implementations must be read-only; the classifier never
// mutates calendar state.
type Source interface {
	IsHoliday(ctx context.Context, date time.Time) (bool, error)
	IsWorkingSaturday(ctx context.Context, date time.Time) (bool, error)
}

// DayKind is the classification of a calendar date.
type DayKind int

const (
	DayWorking DayKind = iota
	DayWorkingSaturday
	DayWeekend
	DayHoliday
)

func (k DayKind) String() string {
	switch k {
	case DayWorking:
		return "working"
	case DayWorkingSaturday:
		return "working_saturday"
	case DayWeekend:
		return "weekend"
	case DayHoliday:
		return "holiday"
	}
	return "unknown"
}

// NonWorking reports whether a day of this kind requires admin approval
// for any recorded work: holidays, Sundays and undesignated Saturdays.
func (k DayKind) NonWorking() bool {
	return k == DayHoliday || k == DayWeekend
}

// Classifier classifies dates against an injected calendar source.
type Classifier struct {
	src Source
}

// NewClassifier creates a classifier over the given calendar source.
func NewClassifier(src Source) *Classifier {
	return &Classifier{src: src}
}

// Classify determines the kind of the given date. Holidays take precedence
// over everything, including designated working Saturdays.
func (c *Classifier) Classify(ctx context.Context, date time.Time) (DayKind, error) {
	holiday, err := c.src.IsHoliday(ctx, date)
	if err != nil {
		return DayWorking, err
	}
	if holiday {
		return DayHoliday, nil
	}

	switch date.Weekday() {
	case time.Saturday:
		designated, err := c.src.IsWorkingSaturday(ctx, date)
		if err != nil {
			return DayWorking, err
		}
		if designated {
			return DayWorkingSaturday, nil
		}
		return DayWeekend, nil
	case time.Sunday:
		return DayWeekend, nil
	}

	return DayWorking, nil
}
