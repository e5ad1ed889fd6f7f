package calendar

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/worklog/worklog-backend/internal/worklog/domain"
	"github.com/worklog/worklog-backend/pkg/errors"
)

var (
	standardDay = decimal.NewFromInt(8)
	maxHours    = decimal.NewFromInt(24)
)

// Evaluation is the outcome of classifying a day's recorded hours.
type Evaluation struct {
	Status        domain.EntryStatus `json:"status"`
	IsOvertime    bool               `json:"is_overtime"`
	OvertimeHours decimal.Decimal    `json:"overtime_hours"`
}

// Evaluate applies the status/overtime decision table to a classified day.
// Rules, first match wins:
//
//  1. Non-working day: every hour is overtime and approval is required,
//     even at exactly 8 hours.
//  2. Exactly 8 hours: auto-approved, no overtime.
//  3. More than 8 hours: pending, hours beyond 8 are overtime.
//  4. Less than 8 hours: pending, no overtime.
//
// Total hours must be in (0, 24].
func Evaluate(kind DayKind, totalHours decimal.Decimal) (Evaluation, error) {
	if err := ValidateHours(totalHours); err != nil {
		return Evaluation{}, err
	}

	if kind.NonWorking() {
		return Evaluation{
			Status:        domain.StatusPending,
			IsOvertime:    true,
			OvertimeHours: totalHours,
		}, nil
	}

	switch {
	case totalHours.Equal(standardDay):
		return Evaluation{
			Status:        domain.StatusApproved,
			IsOvertime:    false,
			OvertimeHours: decimal.Zero,
		}, nil
	case totalHours.GreaterThan(standardDay):
		return Evaluation{
			Status:        domain.StatusPending,
			IsOvertime:    true,
			OvertimeHours: totalHours.Sub(standardDay),
		}, nil
	default:
		return Evaluation{
			Status:        domain.StatusPending,
			IsOvertime:    false,
			OvertimeHours: decimal.Zero,
		}, nil
	}
}

// ValidateHours checks that a day's total hours fall in (0, 24].
func ValidateHours(totalHours decimal.Decimal) error {
	if !totalHours.IsPositive() {
		return errors.Validation(map[string]string{
			"total_hours": "must be greater than zero",
		})
	}
	if totalHours.GreaterThan(maxHours) {
		return errors.Validation(map[string]string{
			"total_hours": "must not exceed 24",
		})
	}
	return nil
}

// EvaluateDate classifies the date and applies the decision table in one
// step. This is the single entry point used by both the entry lifecycle
// and the bulk ingestion pipeline.
func (c *Classifier) EvaluateDate(ctx context.Context, date time.Time, totalHours decimal.Decimal) (Evaluation, error) {
	kind, err := c.Classify(ctx, date)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluate(kind, totalHours)
}
