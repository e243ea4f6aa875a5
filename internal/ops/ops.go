package ops

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mocho-app/mocho/internal/cycle"
	"github.com/mocho-app/mocho/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// normalizePaging applies the default and maximum limit and clamps offset.
func normalizePaging(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ResolveDate parses a YYYY-MM-DD date, or returns the calendar day of now
// when s is empty.
func ResolveDate(s string, now time.Time) (cycle.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return cycle.DateOf(now), nil
	}
	d, err := cycle.ParseDate(s)
	if err != nil {
		return cycle.Date{}, errors.NewInvalidRequest(fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", s))
	}
	return d, nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newEventID generates a new ULID. IDs from one process sort in creation
// order, even within the same millisecond.
func newEventID(now time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}
