// Package cycle implements the menstrual cycle and pregnancy calculator.
//
// Everything here is pure: functions take the current record and "today"
// explicitly and never read a clock or touch storage.
package cycle

import (
	"encoding/json"
	"fmt"
)

// RecordKey is the store key the record is persisted under.
const RecordKey = "cycleData"

// Defaults applied when a field is absent from the persisted record.
const (
	DefaultCycleLengthDays  = 28
	DefaultPeriodLengthDays = 5
)

// Mode is the tracker's state.
type Mode string

const (
	ModeTracking Mode = "tracking"
	ModePregnant Mode = "pregnant"
)

// Record is the single persisted cycle record.
type Record struct {
	// LastPeriodDate is the start of the most recently logged period (nullable)
	LastPeriodDate *Date `json:"lastPeriodDate"`

	// CycleLengthDays is the assumed number of days between period starts
	CycleLengthDays int `json:"cycleLengthDays"`

	// PeriodLengthDays is informational only
	PeriodLengthDays int `json:"periodLengthDays"`

	IsPregnant bool `json:"isPregnant"`

	// PregnancyWeek is meaningful only when IsPregnant; >= 1 in that case
	PregnancyWeek int `json:"pregnancyWeek"`

	// PregnancyStartDate is the day pregnancy mode was entered (nullable)
	PregnancyStartDate *Date `json:"pregnancyStartDate"`
}

// DefaultRecord returns the record used when nothing has been stored yet.
func DefaultRecord() Record {
	return Record{
		CycleLengthDays:  DefaultCycleLengthDays,
		PeriodLengthDays: DefaultPeriodLengthDays,
	}
}

// Mode returns the active state.
func (r Record) Mode() Mode {
	if r.IsPregnant {
		return ModePregnant
	}
	return ModeTracking
}

// Hydrate fills absent fields with their defaults. A zero length counts as
// absent; negative lengths are kept as stored.
func Hydrate(r Record) Record {
	if r.LastPeriodDate != nil && r.LastPeriodDate.IsZero() {
		r.LastPeriodDate = nil
	}
	if r.PregnancyStartDate != nil && r.PregnancyStartDate.IsZero() {
		r.PregnancyStartDate = nil
	}
	if r.CycleLengthDays == 0 {
		r.CycleLengthDays = DefaultCycleLengthDays
	}
	if r.PeriodLengthDays == 0 {
		r.PeriodLengthDays = DefaultPeriodLengthDays
	}
	if r.IsPregnant && r.PregnancyWeek < 1 {
		r.PregnancyWeek = 1
	}
	return r
}

// wireRecord is the decode-side view of a stored record. It also reads the
// key names used by the original mobile app.
type wireRecord struct {
	LastPeriodDate     *Date `json:"lastPeriodDate"`
	CycleLengthDays    int   `json:"cycleLengthDays"`
	PeriodLengthDays   int   `json:"periodLengthDays"`
	IsPregnant         bool  `json:"isPregnant"`
	PregnancyWeek      int   `json:"pregnancyWeek"`
	PregnancyStartDate *Date `json:"pregnancyStartDate"`

	LegacyLastPeriod   *Date `json:"lastPeriod"`
	LegacyCycleLength  int   `json:"cycleLength"`
	LegacyPeriodLength int   `json:"periodLength"`
}

// Encode serializes r as flat JSON.
func Encode(r Record) ([]byte, error) {
	return json.Marshal(r)
}

// Decode parses a stored record and hydrates it with defaults.
func Decode(data []byte) (Record, error) {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return Record{}, fmt.Errorf("decode cycle record: %w", err)
	}

	r := Record{
		LastPeriodDate:     w.LastPeriodDate,
		CycleLengthDays:    w.CycleLengthDays,
		PeriodLengthDays:   w.PeriodLengthDays,
		IsPregnant:         w.IsPregnant,
		PregnancyWeek:      w.PregnancyWeek,
		PregnancyStartDate: w.PregnancyStartDate,
	}
	if r.LastPeriodDate == nil {
		r.LastPeriodDate = w.LegacyLastPeriod
	}
	if r.CycleLengthDays == 0 {
		r.CycleLengthDays = w.LegacyCycleLength
	}
	if r.PeriodLengthDays == 0 {
		r.PeriodLengthDays = w.LegacyPeriodLength
	}

	return Hydrate(r), nil
}
