package ops

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mocho-app/mocho/internal/cycle"
	"github.com/mocho-app/mocho/internal/errors"
	"github.com/mocho-app/mocho/internal/logging"
)

// Store persists the serialized cycle record under a string key.
type Store interface {
	Read(ctx context.Context, key string) (value []byte, found bool, err error)
	Write(ctx context.Context, key string, value []byte) error
}

// Journal records completed actions. A nil Journal disables history.
type Journal interface {
	Append(ctx context.Context, e cycle.Event) error
}

// Session owns the single in-memory cycle record and mediates every change
// to it. It is safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	store   Store
	journal Journal
	logger  *zap.Logger
	now     func() time.Time

	record  cycle.Record
	loadErr error
}

// Open loads the stored record. An absent record yields the defaults. A read
// or decode failure also yields the defaults; the failure is logged and kept
// in LoadErr.
func Open(ctx context.Context, store Store, journal Journal, logger *zap.Logger) *Session {
	s := &Session{
		store:   store,
		journal: journal,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
	s.record, s.loadErr = s.load(ctx)
	if s.loadErr != nil {
		s.logger.Warn("cycle record unavailable, using defaults", zap.Error(s.loadErr))
	}
	return s
}

func (s *Session) load(ctx context.Context) (cycle.Record, error) {
	data, found, err := s.store.Read(ctx, cycle.RecordKey)
	if err != nil {
		if errors.Is(err, errors.ErrStoreRead) {
			return cycle.DefaultRecord(), err
		}
		return cycle.DefaultRecord(), errors.NewStoreRead(cycle.RecordKey, err)
	}
	if !found {
		return cycle.DefaultRecord(), nil
	}
	r, err := cycle.Decode(data)
	if err != nil {
		return cycle.DefaultRecord(), errors.NewStoreRead(cycle.RecordKey, err)
	}
	return r, nil
}

// Record returns a copy of the current record.
func (s *Session) Record() cycle.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// LoadErr returns the error from the most recent load, if any.
func (s *Session) LoadErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Reload re-reads the stored record, e.g. after an import. On failure the
// current in-memory record is kept and the error returned.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("reload failed, keeping current record", zap.Error(err))
		return err
	}
	s.record = r
	s.loadErr = nil
	return nil
}

// Status returns the derived view of the current record.
func (s *Session) Status(today cycle.Date) *StatusOutput {
	return BuildStatus(s.Record(), today)
}

// ActionOutput is the result of a state-changing action.
type ActionOutput struct {
	Action cycle.EventKind `json:"action"`
	Date   cycle.Date      `json:"date"`
	Saved  bool            `json:"saved"`
	Status *StatusOutput   `json:"status"`
}

// LogPeriod records a period starting today and returns to tracking mode.
// If saving fails the new record stays in memory and a STORE_WRITE error is
// returned alongside the output.
func (s *Session) LogPeriod(ctx context.Context, today cycle.Date) (*ActionOutput, error) {
	return s.apply(ctx, cycle.EventPeriod, today, func(r cycle.Record) cycle.Record {
		return cycle.LogPeriod(r, today)
	})
}

// LogPregnancy enters pregnancy mode at week 1. Save failures behave as in
// LogPeriod.
func (s *Session) LogPregnancy(ctx context.Context, today cycle.Date) (*ActionOutput, error) {
	return s.apply(ctx, cycle.EventPregnancy, today, func(r cycle.Record) cycle.Record {
		return cycle.LogPregnancy(r, today)
	})
}

// apply installs the transformed record, persists it and journals the action.
func (s *Session) apply(ctx context.Context, kind cycle.EventKind, today cycle.Date, fn func(cycle.Record) cycle.Record) (*ActionOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record = fn(s.record)
	out := &ActionOutput{
		Action: kind,
		Date:   today,
		Status: BuildStatus(s.record, today),
	}

	data, err := cycle.Encode(s.record)
	if err != nil {
		return out, errors.NewStoreWrite(cycle.RecordKey, err)
	}
	if err := s.store.Write(ctx, cycle.RecordKey, data); err != nil {
		s.logger.Error("save failed", zap.String("action", string(kind)), zap.Error(err))
		if !errors.Is(err, errors.ErrStoreWrite) {
			err = errors.NewStoreWrite(cycle.RecordKey, err)
		}
		return out, err
	}
	out.Saved = true

	s.appendEvent(ctx, kind, today)
	return out, nil
}

// appendEvent journals a saved action. Failures are logged only.
func (s *Session) appendEvent(ctx context.Context, kind cycle.EventKind, day cycle.Date) {
	if s.journal == nil {
		return
	}
	now := s.now()
	e := cycle.Event{
		ID:        newEventID(now),
		Kind:      kind,
		Date:      day,
		CreatedAt: now.Unix(),
	}
	if err := s.journal.Append(ctx, e); err != nil {
		s.logger.Warn("history append failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}
