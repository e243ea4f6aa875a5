package ops

import (
	"github.com/mocho-app/mocho/internal/cycle"
)

// Cycle phases reported for the current day.
const (
	PhasePeriod    = "period"
	PhaseSafe      = "safe"
	PhaseFertile   = "fertile"
	PhaseOvulation = "ovulation"
	PhaseLate      = "late"
)

// WindowDates maps the fertile window of the current cycle onto the calendar.
type WindowDates struct {
	FertileStart cycle.Date `json:"fertile_start"`
	FertileEnd   cycle.Date `json:"fertile_end"`
	Ovulation    cycle.Date `json:"ovulation"`
}

// StatusOutput is the derived view of the record for a given day.
type StatusOutput struct {
	Mode             cycle.Mode  `json:"mode"`
	Today            cycle.Date  `json:"today"`
	LastPeriodDate   *cycle.Date `json:"last_period_date"`
	CycleLengthDays  int         `json:"cycle_length_days"`
	PeriodLengthDays int         `json:"period_length_days"`

	// Tracking mode, only once a period has been logged
	NextPeriodDate      *cycle.Date   `json:"next_period_date,omitempty"`
	DaysUntilNextPeriod *int          `json:"days_until_next_period,omitempty"`
	CycleDay            *int          `json:"cycle_day,omitempty"`
	Phase               string        `json:"phase,omitempty"`
	Window              *cycle.Window `json:"window,omitempty"`
	WindowDates         *WindowDates  `json:"window_dates,omitempty"`

	// Pregnant mode
	PregnancyWeek      int         `json:"pregnancy_week,omitempty"`
	PregnancyStartDate *cycle.Date `json:"pregnancy_start_date,omitempty"`
	TipWeek            int         `json:"tip_week,omitempty"`
	Tip                string      `json:"tip,omitempty"`
	DangerSigns        []string    `json:"danger_signs,omitempty"`
}

// BuildStatus derives the status view of r as of today.
func BuildStatus(r cycle.Record, today cycle.Date) *StatusOutput {
	out := &StatusOutput{
		Mode:             r.Mode(),
		Today:            today,
		LastPeriodDate:   r.LastPeriodDate,
		CycleLengthDays:  r.CycleLengthDays,
		PeriodLengthDays: r.PeriodLengthDays,
	}

	if r.IsPregnant {
		week := r.GestationalWeek(today)
		out.PregnancyWeek = week
		out.PregnancyStartDate = r.PregnancyStartDate
		if key, ok := cycle.TipKey(week); ok {
			out.TipWeek = key
		}
		out.Tip = cycle.PregnancyTip(week)
		out.DangerSigns = cycle.DangerSigns()
		return out
	}

	next, ok := r.NextPeriodDate()
	if !ok {
		return out
	}
	days, _ := r.DaysUntilNextPeriod(today)
	day, _ := r.CycleDay(today)
	w, _ := r.FertileWindow()

	out.NextPeriodDate = cycle.DatePtr(next)
	out.DaysUntilNextPeriod = &days
	out.CycleDay = &day
	out.Window = &w
	out.Phase = Phase(r, day, w)

	start, _ := r.DayDate(w.Fertile.Start)
	end, _ := r.DayDate(w.Fertile.End)
	ovulation, _ := r.DayDate(w.OvulationDay)
	out.WindowDates = &WindowDates{FertileStart: start, FertileEnd: end, Ovulation: ovulation}

	return out
}

// Phase classifies a 1-indexed cycle day. Ovulation takes precedence over
// the fertile range, which takes precedence over the period itself.
func Phase(r cycle.Record, day int, w cycle.Window) string {
	switch {
	case day > r.CycleLengthDays:
		return PhaseLate
	case day == w.OvulationDay:
		return PhaseOvulation
	case day >= w.Fertile.Start && day <= w.Fertile.End:
		return PhaseFertile
	case day >= 1 && day <= r.PeriodLengthDays:
		return PhasePeriod
	default:
		return PhaseSafe
	}
}
