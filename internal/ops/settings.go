package ops

import (
	"context"

	"github.com/mocho-app/mocho/internal/cycle"
	"github.com/mocho-app/mocho/internal/errors"
)

// SettingsInput contains parameters for the UpdateSettings operation.
// Nil fields are left unchanged.
type SettingsInput struct {
	CycleLengthDays  *int
	PeriodLengthDays *int
	Today            cycle.Date
}

// validateSettings rejects empty updates and non-positive lengths.
func validateSettings(input SettingsInput) error {
	if input.CycleLengthDays == nil && input.PeriodLengthDays == nil {
		return errors.NewInvalidRequest("at least one of cycle_length_days or period_length_days is required")
	}
	if input.CycleLengthDays != nil && *input.CycleLengthDays <= 0 {
		return errors.NewInvalidRequest("cycle_length_days must be a positive integer")
	}
	if input.PeriodLengthDays != nil && *input.PeriodLengthDays <= 0 {
		return errors.NewInvalidRequest("period_length_days must be a positive integer")
	}
	return nil
}

// UpdateSettings changes the cycle and period lengths. Save failures behave
// as in LogPeriod.
func (s *Session) UpdateSettings(ctx context.Context, input SettingsInput) (*ActionOutput, error) {
	if err := validateSettings(input); err != nil {
		return nil, err
	}
	return s.apply(ctx, cycle.EventSettings, input.Today, func(r cycle.Record) cycle.Record {
		if input.CycleLengthDays != nil {
			r.CycleLengthDays = *input.CycleLengthDays
		}
		if input.PeriodLengthDays != nil {
			r.PeriodLengthDays = *input.PeriodLengthDays
		}
		return r
	})
}
