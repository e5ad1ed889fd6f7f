package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/worklog/worklog-backend/pkg/errors"
)

// TaskKind captures the per-line field requirements implied by a task
// type's name.
type TaskKind int

const (
	// TaskKindGeneral places no constraints on hours or production.
	TaskKindGeneral TaskKind = iota
	// TaskKindTimeOnly requires hours > 0 and forbids a production count.
	TaskKindTimeOnly
	// TaskKindProductionOnly requires production > 0 and forbids hours.
	TaskKindProductionOnly
)

// timeOnlyKeywords mark task types that are tracked purely by time.
var timeOnlyKeywords = []string{"celebration", "leave", "meeting", "training", "technical"}

// ClassifyTaskName derives the field requirements from a task type name.
// Matching is case-insensitive substring matching.
func ClassifyTaskName(name string) TaskKind {
	lower := strings.ToLower(name)

	for _, kw := range timeOnlyKeywords {
		if strings.Contains(lower, kw) {
			return TaskKindTimeOnly
		}
	}
	if strings.Contains(lower, "gp task") {
		return TaskKindProductionOnly
	}
	return TaskKindGeneral
}

// ValidateLineFields checks hours and production against the task type's
// field requirements. A violation is a validation error naming the
// offending field, never a silent correction.
func ValidateLineFields(taskName string, hours, production decimal.Decimal) error {
	switch ClassifyTaskName(taskName) {
	case TaskKindTimeOnly:
		if !hours.IsPositive() {
			return errors.Validation(map[string]string{
				"hours": "task \"" + taskName + "\" requires hours greater than zero",
			})
		}
		if production.IsPositive() {
			return errors.Validation(map[string]string{
				"production": "task \"" + taskName + "\" does not accept a production count",
			})
		}
	case TaskKindProductionOnly:
		if !production.IsPositive() {
			return errors.Validation(map[string]string{
				"production": "task \"" + taskName + "\" requires a production count greater than zero",
			})
		}
		if hours.IsPositive() {
			return errors.Validation(map[string]string{
				"hours": "task \"" + taskName + "\" does not accept hours",
			})
		}
	}
	return nil
}
