package msglog

import (
	"context"
	"testing"
	"time"

	"schedlink/internal/sched"
)

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusSent, true},
		{StatusApplied, true},
		{StatusRejected, true},
		{StatusDiscarded, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusApplied, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusSent, true},
		{StatusPending, StatusPending, false},
		{StatusPending, StatusDiscarded, false},
		{StatusApplied, StatusRejected, false},
		{StatusRejected, StatusApplied, false},
		{StatusSent, StatusApplied, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func pendingEntry(flight string, action sched.ActionCode) Entry {
	return Entry{
		MessageType:  sched.MessageASM,
		ActionCode:   action,
		Direction:    Inbound,
		FlightNumber: flight,
		FlightDate:   time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:       StatusPending,
		Summary:      string(action) + " " + flight,
		RawMessage:   "ASM\n" + string(action) + "\n" + flight + "/15MAR25\n",
	}
}

func TestMemoryAppendAndGet(t *testing.T) {
	ctx := context.Background()
	log := NewMemory()

	id, err := log.Append(ctx, pendingEntry("HZ100", sched.ActionTim))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id == 0 {
		t.Error("id should be assigned")
	}

	e, err := log.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e == nil {
		t.Fatal("entry not found")
	}
	if e.Status != StatusPending {
		t.Errorf("Status = %s, want pending", e.Status)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped")
	}

	missing, err := log.Get(ctx, id+100)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if missing != nil {
		t.Error("absent id should return nil")
	}
}

func TestMemoryTransition(t *testing.T) {
	ctx := context.Background()
	log := NewMemory()

	id, _ := log.Append(ctx, pendingEntry("HZ100", sched.ActionTim))

	if err := log.Transition(ctx, id, StatusApplied, ""); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	e, _ := log.Get(ctx, id)
	if e.Status != StatusApplied {
		t.Errorf("Status = %s, want applied", e.Status)
	}

	// Terminal entries never move again; the retry is a silent no-op.
	if err := log.Transition(ctx, id, StatusRejected, "late retry"); err != nil {
		t.Fatalf("Transition on terminal entry: %v", err)
	}
	e, _ = log.Get(ctx, id)
	if e.Status != StatusApplied {
		t.Errorf("Status = %s after no-op, want applied", e.Status)
	}
	if e.RejectReason != "" {
		t.Errorf("RejectReason = %q, want empty", e.RejectReason)
	}
}

func TestMemoryTransitionRejectKeepsReason(t *testing.T) {
	ctx := context.Background()
	log := NewMemory()

	id, _ := log.Append(ctx, pendingEntry("HZ100", sched.ActionTim))
	if err := log.Transition(ctx, id, StatusRejected, "flight not found"); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	e, _ := log.Get(ctx, id)
	if e.Status != StatusRejected {
		t.Errorf("Status = %s, want rejected", e.Status)
	}
	if e.RejectReason != "flight not found" {
		t.Errorf("RejectReason = %q", e.RejectReason)
	}
}

func TestMemoryQueryNewestFirst(t *testing.T) {
	ctx := context.Background()
	log := NewMemory()

	first, _ := log.Append(ctx, pendingEntry("HZ100", sched.ActionTim))
	second, _ := log.Append(ctx, pendingEntry("HZ205", sched.ActionCnl))
	third, _ := log.Append(ctx, pendingEntry("HZ100", sched.ActionEqt))

	all, err := log.Query(ctx, Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d entries, want 3", len(all))
	}
	if all[0].ID != third || all[1].ID != second || all[2].ID != first {
		t.Errorf("order = %d,%d,%d, want newest first", all[0].ID, all[1].ID, all[2].ID)
	}

	byFlight, err := log.Query(ctx, Filter{FlightNumber: "HZ100"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(byFlight) != 2 {
		t.Fatalf("flight filter: got %d entries, want 2", len(byFlight))
	}

	byAction, err := log.Query(ctx, Filter{ActionCode: sched.ActionCnl})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(byAction) != 1 || byAction[0].FlightNumber != "HZ205" {
		t.Errorf("action filter = %+v", byAction)
	}
}
