package storage

import (
	"context"
	"testing"
	"time"

	"schedlink/internal/sched"
)

func testRecord() sched.ScheduleRecord {
	return sched.ScheduleRecord{
		FlightNumber:     "HZ100",
		DepartureStation: "SGN",
		ArrivalStation:   "HAN",
		STD:              "06:00",
		STA:              "08:15",
		DaysOfOperation:  sched.NewDaySet(1, 2, 3, 4, 5, 6, 7),
		AircraftType:     "A320",
		CabinConfig:      "Y180",
		ServiceType:      "J",
		EffectiveFrom:    time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		EffectiveTo:      time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestMemoryFindByIdentity(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	rec := testRecord()
	if err := m.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := m.FindByIdentity(ctx, rec.Identity())
	if err != nil {
		t.Fatalf("FindByIdentity: %v", err)
	}
	if got == nil || !got.Equal(&rec) {
		t.Errorf("got %+v, want %+v", got, rec)
	}

	other := rec.Identity()
	other.FlightNumber = "HZ999"
	miss, err := m.FindByIdentity(ctx, other)
	if err != nil {
		t.Fatalf("FindByIdentity: %v", err)
	}
	if miss != nil {
		t.Errorf("unexpected match: %+v", miss)
	}
}

func TestMemoryFindByFlightAndDate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	rec := testRecord()
	rec.DaysOfOperation = sched.NewDaySet(1, 3, 5)
	if err := m.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// 2025-03-17 is a Monday inside the validity window.
	got, err := m.FindByFlightAndDate(ctx, "HZ100", time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FindByFlightAndDate: %v", err)
	}
	if got == nil {
		t.Fatal("operating Monday should match")
	}

	// 2025-03-18 is a Tuesday, not an operating day.
	got, err = m.FindByFlightAndDate(ctx, "HZ100", time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FindByFlightAndDate: %v", err)
	}
	if got != nil {
		t.Error("non-operating Tuesday should not match")
	}

	// Before the validity window.
	got, err = m.FindByFlightAndDate(ctx, "HZ100", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FindByFlightAndDate: %v", err)
	}
	if got != nil {
		t.Error("date before effective-from should not match")
	}
}

func TestMemoryAmbiguousMatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	a := testRecord()
	b := testRecord()
	b.ArrivalStation = "DAD"
	if err := m.Insert(ctx, a); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := m.Insert(ctx, b); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	_, err := m.FindByFlightAndDate(ctx, "HZ100", time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC))
	if err != sched.ErrAmbiguousFlight {
		t.Errorf("err = %v, want ErrAmbiguousFlight", err)
	}
}

func TestMemoryUpdateRekeysIdentity(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	rec := testRecord()
	if err := m.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := m.Update(ctx, rec.Identity(), map[string]string{
		sched.FieldFlightNumber: "HZ104",
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	old, _ := m.FindByIdentity(ctx, rec.Identity())
	if old != nil {
		t.Error("old identity should be gone")
	}
	renamed := rec.Identity()
	renamed.FlightNumber = "HZ104"
	got, _ := m.FindByIdentity(ctx, renamed)
	if got == nil {
		t.Fatal("renamed record not found")
	}
	if m.Len() != 1 {
		t.Errorf("store holds %d records, want 1", m.Len())
	}
}

func TestMemoryCancellationLeavesRecordVisible(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Insert(ctx, testRecord()); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	date := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)

	if err := m.SetCancelled(ctx, "HZ100", date, true); err != nil {
		t.Fatalf("SetCancelled: %v", err)
	}
	cancelled, err := m.IsCancelled(ctx, "HZ100", date)
	if err != nil {
		t.Fatalf("IsCancelled: %v", err)
	}
	if !cancelled {
		t.Error("instance should be cancelled")
	}

	// Cancellation marks the dated instance; the schedule record itself
	// stays resolvable, otherwise it could never be reinstated.
	got, err := m.FindByFlightAndDate(ctx, "HZ100", date)
	if err != nil {
		t.Fatalf("FindByFlightAndDate: %v", err)
	}
	if got == nil {
		t.Error("cancelled instance's record must stay findable")
	}

	if err := m.SetCancelled(ctx, "HZ100", date, false); err != nil {
		t.Fatalf("SetCancelled: %v", err)
	}
	cancelled, _ = m.IsCancelled(ctx, "HZ100", date)
	if cancelled {
		t.Error("reinstated instance should carry no residue")
	}
}
