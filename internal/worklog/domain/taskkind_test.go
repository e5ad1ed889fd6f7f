package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worklog/worklog-backend/internal/worklog/domain"
	"github.com/worklog/worklog-backend/pkg/errors"
)

func TestClassifyTaskName(t *testing.T) {
	tests := []struct {
		name string
		want domain.TaskKind
	}{
		{"Team Meeting", domain.TaskKindTimeOnly},
		{"ANNUAL LEAVE", domain.TaskKindTimeOnly},
		{"training session", domain.TaskKindTimeOnly},
		{"Technical Issues", domain.TaskKindTimeOnly},
		{"Office Celebration", domain.TaskKindTimeOnly},
		{"GP Task", domain.TaskKindProductionOnly},
		{"gp task review", domain.TaskKindProductionOnly},
		{"Coding", domain.TaskKindGeneral},
		{"Audit", domain.TaskKindGeneral},
		{"", domain.TaskKindGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ClassifyTaskName(tt.name))
		})
	}
}

func TestValidateLineFields(t *testing.T) {
	one := decimal.NewFromInt(1)
	zero := decimal.Zero

	tests := []struct {
		name       string
		task       string
		hours      decimal.Decimal
		production decimal.Decimal
		wantField  string
	}{
		{"time-only ok", "Team Meeting", one, zero, ""},
		{"time-only without hours", "Team Meeting", zero, zero, "hours"},
		{"time-only with production", "Team Meeting", one, one, "production"},
		{"production-only ok", "GP Task", zero, one, ""},
		{"production-only without count", "GP Task", zero, zero, "production"},
		{"production-only with hours", "GP Task", one, one, "hours"},
		{"general accepts both", "Coding", one, one, ""},
		{"general accepts either alone", "Coding", zero, one, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.ValidateLineFields(tt.task, tt.hours, tt.production)
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			var appErr *errors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Contains(t, appErr.Details, tt.wantField)
		})
	}
}
