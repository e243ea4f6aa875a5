package ops

import (
	"github.com/mocho-app/mocho/internal/cycle"
)

// TipInput contains parameters for the Tip operation.
type TipInput struct {
	Week int
}

// TipOutput contains the result of the Tip operation.
type TipOutput struct {
	Week        int      `json:"week"`
	TipWeek     int      `json:"tip_week,omitempty"`
	Generic     bool     `json:"generic"`
	Tip         string   `json:"tip"`
	DangerSigns []string `json:"danger_signs"`
}

// Tip returns the pregnancy tip for a gestational week. Weeks without a
// table entry get the generic tip.
func Tip(input TipInput) *TipOutput {
	out := &TipOutput{
		Week:        input.Week,
		Tip:         cycle.PregnancyTip(input.Week),
		DangerSigns: cycle.DangerSigns(),
	}
	if key, ok := cycle.TipKey(input.Week); ok {
		out.TipWeek = key
	} else {
		out.Generic = true
	}
	return out
}

// TipTableEntry is one row of the full tip table.
type TipTableEntry struct {
	Week int    `json:"week"`
	Tip  string `json:"tip"`
}

// TipTable returns every tip in week order.
func TipTable() []TipTableEntry {
	weeks := cycle.TipWeeks()
	entries := make([]TipTableEntry, 0, len(weeks))
	for _, w := range weeks {
		entries = append(entries, TipTableEntry{Week: w, Tip: cycle.PregnancyTip(w)})
	}
	return entries
}
