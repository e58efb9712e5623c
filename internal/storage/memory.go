// Package storage provides the schedule store and message log backends:
// in-memory for tests and one-shot runs, SQLite for embedded use, and
// PostgreSQL for the shared production store. ClickHouse carries the
// analytics archive of raw message traffic.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"schedlink/internal/sched"
)

// Memory is an in-process schedule store.
type Memory struct {
	mu        sync.RWMutex
	records   map[sched.Identity]sched.ScheduleRecord
	cancelled map[string]struct{} // flightNumber|YYYY-MM-DD
}

// NewMemory creates an empty in-memory schedule store.
func NewMemory() *Memory {
	return &Memory{
		records:   make(map[sched.Identity]sched.ScheduleRecord),
		cancelled: make(map[string]struct{}),
	}
}

func (m *Memory) FindByIdentity(_ context.Context, id sched.Identity) (*sched.ScheduleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) FindByFlightAndDate(_ context.Context, flightNumber string, date time.Time) (*sched.ScheduleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *sched.ScheduleRecord
	for _, rec := range m.records {
		if !covers(&rec, flightNumber, date) {
			continue
		}
		if found != nil {
			return nil, sched.ErrAmbiguousFlight
		}
		r := rec
		found = &r
	}
	return found, nil
}

func (m *Memory) Insert(_ context.Context, rec sched.ScheduleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := rec.Identity()
	if _, exists := m.records[id]; exists {
		return fmt.Errorf("record %s %s-%s already exists",
			rec.FlightNumber, rec.DepartureStation, rec.ArrivalStation)
	}
	m.records[id] = rec
	return nil
}

func (m *Memory) Update(_ context.Context, id sched.Identity, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("record %s not found", id.FlightNumber)
	}
	for f, v := range fields {
		if err := rec.ApplyField(f, v); err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
	}
	// Identity fields may have changed; re-key.
	delete(m.records, id)
	m.records[rec.Identity()] = rec
	return nil
}

func (m *Memory) SetCancelled(_ context.Context, flightNumber string, date time.Time, cancelled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := cancelKey(flightNumber, date)
	if cancelled {
		m.cancelled[key] = struct{}{}
	} else {
		delete(m.cancelled, key)
	}
	return nil
}

// IsCancelled reports whether the dated instance carries a cancellation
// mark.
func (m *Memory) IsCancelled(_ context.Context, flightNumber string, date time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.cancelled[cancelKey(flightNumber, date)]
	return ok, nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// ListRecords returns every stored record, ordered for stable export.
func (m *Memory) ListRecords(_ context.Context) ([]sched.ScheduleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]sched.ScheduleRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if a.FlightNumber != b.FlightNumber {
			return a.FlightNumber < b.FlightNumber
		}
		if a.DepartureStation != b.DepartureStation {
			return a.DepartureStation < b.DepartureStation
		}
		if a.ArrivalStation != b.ArrivalStation {
			return a.ArrivalStation < b.ArrivalStation
		}
		return a.EffectiveFrom.Before(b.EffectiveFrom)
	})
	return out, nil
}

func cancelKey(flightNumber string, date time.Time) string {
	return flightNumber + "|" + date.Format("2006-01-02")
}

// covers reports whether rec operates the given flight on the given date:
// the flight numbers agree, the date falls in the validity window and its
// weekday is an operating day.
func covers(rec *sched.ScheduleRecord, flightNumber string, date time.Time) bool {
	if rec.FlightNumber != flightNumber {
		return false
	}
	if date.Before(rec.EffectiveFrom) {
		return false
	}
	if !rec.EffectiveTo.IsZero() && date.After(rec.EffectiveTo) {
		return false
	}
	return rec.DaysOfOperation.Contains(isoWeekday(date))
}

// isoWeekday maps Go's Sunday-based weekday to Monday=1..Sunday=7.
func isoWeekday(t time.Time) int {
	d := int(t.Weekday())
	if d == 0 {
		return 7
	}
	return d
}
