package cycle

// lutealDays is the assumed distance from ovulation to the next period.
const lutealDays = 14

// DayRange is an inclusive range of 1-indexed cycle days.
type DayRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Window splits a cycle into the safe and fertile day ranges.
type Window struct {
	OvulationDay int      `json:"ovulationDay"`
	SafeEarly    DayRange `json:"safeEarly"`
	Fertile      DayRange `json:"fertile"`
	SafeLate     DayRange `json:"safeLate"`
}

// LogPeriod records a period starting today. It always returns to tracking
// mode and replaces the pregnancy fields.
func LogPeriod(r Record, today Date) Record {
	return Record{
		LastPeriodDate:   DatePtr(today),
		CycleLengthDays:  r.CycleLengthDays,
		PeriodLengthDays: r.PeriodLengthDays,
		IsPregnant:       false,
		PregnancyWeek:    0,
	}
}

// LogPregnancy enters pregnancy mode as of today. The cycle history and
// lengths are kept so a later LogPeriod resumes from them.
func LogPregnancy(r Record, today Date) Record {
	return Record{
		LastPeriodDate:     r.LastPeriodDate,
		CycleLengthDays:    r.CycleLengthDays,
		PeriodLengthDays:   r.PeriodLengthDays,
		IsPregnant:         true,
		PregnancyWeek:      1,
		PregnancyStartDate: DatePtr(today),
	}
}

// predictable reports whether cycle predictions are defined.
func (r Record) predictable() bool {
	return !r.IsPregnant && r.LastPeriodDate != nil
}

// NextPeriodDate returns lastPeriodDate + cycleLengthDays.
// ok is false in pregnancy mode or when no period has been logged.
func (r Record) NextPeriodDate() (Date, bool) {
	if !r.predictable() {
		return Date{}, false
	}
	return r.LastPeriodDate.AddDays(r.CycleLengthDays), true
}

// DaysUntilNextPeriod returns the whole days from today to the predicted
// period. It goes negative once the prediction has passed.
func (r Record) DaysUntilNextPeriod(today Date) (int, bool) {
	next, ok := r.NextPeriodDate()
	if !ok {
		return 0, false
	}
	return today.DaysUntil(next), true
}

// FertileWindow derives the safe and fertile ranges from the cycle length.
// Short cycles are not clamped and can yield ranges below day 1.
func (r Record) FertileWindow() (Window, bool) {
	if !r.predictable() {
		return Window{}, false
	}

	ovulationDay := r.CycleLengthDays - lutealDays
	fertileStart := ovulationDay - 5
	fertileEnd := ovulationDay + 1

	return Window{
		OvulationDay: ovulationDay,
		SafeEarly:    DayRange{Start: 1, End: fertileStart - 1},
		Fertile:      DayRange{Start: fertileStart, End: fertileEnd},
		SafeLate:     DayRange{Start: fertileEnd + 1, End: r.CycleLengthDays},
	}, true
}

// DayDate returns the calendar date of a 1-indexed day of the current cycle.
func (r Record) DayDate(day int) (Date, bool) {
	if !r.predictable() {
		return Date{}, false
	}
	return r.LastPeriodDate.AddDays(day - 1), true
}

// CycleDay returns which 1-indexed day of the current cycle today falls on.
// Days past the predicted length keep counting.
func (r Record) CycleDay(today Date) (int, bool) {
	if !r.predictable() {
		return 0, false
	}
	return r.LastPeriodDate.DaysUntil(today) + 1, true
}

// GestationalWeek returns the stored week advanced by the weeks completed
// since pregnancy mode was entered. It never goes below the stored week.
func (r Record) GestationalWeek(today Date) int {
	if !r.IsPregnant {
		return 0
	}
	week := r.PregnancyWeek
	if r.PregnancyStartDate == nil {
		return week
	}
	elapsed := r.PregnancyStartDate.DaysUntil(today)
	if elapsed <= 0 {
		return week
	}
	if derived := 1 + elapsed/7; derived > week {
		return derived
	}
	return week
}
