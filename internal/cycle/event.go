package cycle

// EventKind names the action that produced a history event.
type EventKind string

const (
	EventPeriod    EventKind = "period"
	EventPregnancy EventKind = "pregnancy"
	EventSettings  EventKind = "settings"
)

// Event is one entry of the action history.
type Event struct {
	// ID is a ULID
	ID string `json:"id"`

	Kind EventKind `json:"kind"`

	// Date is the day the action applies to
	Date Date `json:"date"`

	// CreatedAt is the Unix timestamp the event was recorded
	CreatedAt int64 `json:"created_at"`
}

// ValidEventKind reports whether k is a known kind.
func ValidEventKind(k EventKind) bool {
	switch k {
	case EventPeriod, EventPregnancy, EventSettings:
		return true
	}
	return false
}
