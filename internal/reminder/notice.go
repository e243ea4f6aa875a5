// Package reminder turns the cycle record into daily notices and delivers
// them on a cron schedule.
package reminder

import (
	"fmt"

	"github.com/mocho-app/mocho/internal/cycle"
)

// Kind identifies a notice.
type Kind string

const (
	KindFertileSoon   Kind = "fertile_soon"
	KindFertileStart  Kind = "fertile_start"
	KindOvulation     Kind = "ovulation"
	KindPeriodSoon    Kind = "period_soon"
	KindPeriodDue     Kind = "period_due"
	KindPregnancyWeek Kind = "pregnancy_week"
)

// leadDays is how far ahead "soon" notices fire.
const leadDays = 2

// Notice is a single reminder for a day.
type Notice struct {
	Kind    Kind       `json:"kind"`
	Date    cycle.Date `json:"date"`
	Message string     `json:"message"`
}

// Notices returns the reminders due on today, in a stable order. Tracking
// mode needs a logged period; pregnancy mode fires once per completed week.
func Notices(r cycle.Record, today cycle.Date) []Notice {
	if r.IsPregnant {
		return pregnancyNotices(r, today)
	}

	w, ok := r.FertileWindow()
	if !ok {
		return nil
	}
	fertileStart, _ := r.DayDate(w.Fertile.Start)
	fertileEnd, _ := r.DayDate(w.Fertile.End)
	ovulation, _ := r.DayDate(w.OvulationDay)
	next, _ := r.NextPeriodDate()

	var out []Notice
	add := func(kind Kind, msg string) {
		out = append(out, Notice{Kind: kind, Date: today, Message: msg})
	}

	if today.AddDays(leadDays).Equal(fertileStart) {
		add(KindFertileSoon, fmt.Sprintf("Your fertile window starts in %d days (%s).", leadDays, fertileStart))
	}
	if today.Equal(fertileStart) {
		add(KindFertileStart, fmt.Sprintf("Your fertile window starts today and runs until %s.", fertileEnd))
	}
	if today.Equal(ovulation) {
		add(KindOvulation, "Estimated ovulation day: peak of your fertile window.")
	}
	if today.AddDays(leadDays).Equal(next) {
		add(KindPeriodSoon, fmt.Sprintf("Your period is expected in %d days (%s).", leadDays, next))
	}
	if today.Equal(next) {
		add(KindPeriodDue, "Your period is expected today.")
	}
	return out
}

func pregnancyNotices(r cycle.Record, today cycle.Date) []Notice {
	if r.PregnancyStartDate == nil {
		return nil
	}
	elapsed := r.PregnancyStartDate.DaysUntil(today)
	if elapsed <= 0 || elapsed%7 != 0 {
		return nil
	}
	week := r.GestationalWeek(today)
	return []Notice{{
		Kind:    KindPregnancyWeek,
		Date:    today,
		Message: fmt.Sprintf("Week %d: %s", week, cycle.PregnancyTip(week)),
	}}
}
