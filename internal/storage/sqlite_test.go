package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"schedlink/internal/msglog"
	"schedlink/internal/sched"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "schedlink.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return db
}

func TestSQLiteRecordRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	rec := testRecord()
	if err := db.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := db.FindByIdentity(ctx, rec.Identity())
	if err != nil {
		t.Fatalf("FindByIdentity: %v", err)
	}
	if got == nil {
		t.Fatal("record not found")
	}
	if !got.Equal(&rec) {
		t.Errorf("round trip changed the record:\n in: %+v\nout: %+v", rec, *got)
	}

	// Open-ended validity survives the NULL column.
	open := testRecord()
	open.FlightNumber = "HZ205"
	open.EffectiveTo = time.Time{}
	if err := db.Insert(ctx, open); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err = db.FindByIdentity(ctx, open.Identity())
	if err != nil {
		t.Fatalf("FindByIdentity: %v", err)
	}
	if got == nil || !got.EffectiveTo.IsZero() {
		t.Errorf("open-ended record came back %+v", got)
	}
}

func TestSQLiteFindByFlightAndDate(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	rec := testRecord()
	rec.DaysOfOperation = sched.NewDaySet(1, 3, 5)
	if err := db.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := db.FindByFlightAndDate(ctx, "HZ100", time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FindByFlightAndDate: %v", err)
	}
	if got == nil {
		t.Fatal("operating Monday should match")
	}

	got, err = db.FindByFlightAndDate(ctx, "HZ100", time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FindByFlightAndDate: %v", err)
	}
	if got != nil {
		t.Error("non-operating Tuesday should not match")
	}

	other := testRecord()
	other.ArrivalStation = "DAD"
	other.DaysOfOperation = sched.NewDaySet(1, 3, 5)
	if err := db.Insert(ctx, other); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := db.FindByFlightAndDate(ctx, "HZ100",
		time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)); err != sched.ErrAmbiguousFlight {
		t.Errorf("err = %v, want ErrAmbiguousFlight", err)
	}
}

func TestSQLiteUpdateFields(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	rec := testRecord()
	if err := db.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := db.Update(ctx, rec.Identity(), map[string]string{
		sched.FieldSTD:          "06:30",
		sched.FieldAircraftType: "A321",
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := db.FindByIdentity(ctx, rec.Identity())
	if got == nil {
		t.Fatal("record not found after update")
	}
	if got.STD != "06:30" || got.AircraftType != "A321" {
		t.Errorf("updated record = %+v", got)
	}
	if got.STA != "08:15" {
		t.Errorf("untouched field changed: STA = %q", got.STA)
	}

	missing := rec.Identity()
	missing.FlightNumber = "HZ999"
	if err := db.Update(ctx, missing, map[string]string{sched.FieldSTD: "07:00"}); err == nil {
		t.Error("update of absent record should fail")
	}
}

func TestSQLiteCancellations(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	date := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)

	if err := db.SetCancelled(ctx, "HZ100", date, true); err != nil {
		t.Fatalf("SetCancelled: %v", err)
	}
	// Cancelling twice is a no-op, not an error.
	if err := db.SetCancelled(ctx, "HZ100", date, true); err != nil {
		t.Fatalf("second SetCancelled: %v", err)
	}

	cancelled, err := db.IsCancelled(ctx, "HZ100", date)
	if err != nil {
		t.Fatalf("IsCancelled: %v", err)
	}
	if !cancelled {
		t.Error("instance should be cancelled")
	}

	other, _ := db.IsCancelled(ctx, "HZ100", date.AddDate(0, 0, 1))
	if other {
		t.Error("cancellation is per dated instance")
	}

	if err := db.SetCancelled(ctx, "HZ100", date, false); err != nil {
		t.Fatalf("clear SetCancelled: %v", err)
	}
	cancelled, _ = db.IsCancelled(ctx, "HZ100", date)
	if cancelled {
		t.Error("cleared instance should not stay cancelled")
	}
}

func TestSQLiteMessageLog(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	entry := msglog.Entry{
		MessageType:  sched.MessageASM,
		ActionCode:   sched.ActionTim,
		Direction:    msglog.Inbound,
		FlightNumber: "HZ100",
		FlightDate:   time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:       msglog.StatusPending,
		Summary:      "TIM HZ100/15MAR25 (1 field changes)",
		RawMessage:   "ASM\nTIM\nHZ100/15MAR25\n- 0600\n+ 0630\n",
		Changes: sched.ChangeSet{
			sched.FieldSTD: {From: "0600", To: "0630"},
		},
	}

	id, err := db.Append(ctx, entry)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := db.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("entry not found")
	}
	if got.Status != msglog.StatusPending || got.FlightNumber != "HZ100" {
		t.Errorf("entry = %+v", got)
	}
	if !got.Changes.Equal(entry.Changes) {
		t.Errorf("changes came back %v, want %v", got.Changes, entry.Changes)
	}
	if !got.FlightDate.Equal(entry.FlightDate) {
		t.Errorf("flight date came back %v", got.FlightDate)
	}

	if err := db.Transition(ctx, id, msglog.StatusApplied, ""); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	got, _ = db.Get(ctx, id)
	if got.Status != msglog.StatusApplied {
		t.Errorf("status = %s, want applied", got.Status)
	}

	// The WHERE guard makes a second transition a silent no-op.
	if err := db.Transition(ctx, id, msglog.StatusRejected, "retry"); err != nil {
		t.Fatalf("Transition on terminal entry: %v", err)
	}
	got, _ = db.Get(ctx, id)
	if got.Status != msglog.StatusApplied {
		t.Errorf("status = %s after no-op, want applied", got.Status)
	}

	missing, err := db.Get(ctx, id+100)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if missing != nil {
		t.Error("absent id should return nil")
	}
}

func TestSQLiteQueryLog(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	appendEntry := func(flight string, action sched.ActionCode, dir msglog.Direction) int64 {
		id, err := db.Append(ctx, msglog.Entry{
			MessageType:  sched.MessageASM,
			ActionCode:   action,
			Direction:    dir,
			FlightNumber: flight,
			Status:       msglog.StatusPending,
			RawMessage:   "ASM\n" + string(action) + "\n" + flight + "/15MAR25\n",
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		return id
	}

	first := appendEntry("HZ100", sched.ActionTim, msglog.Inbound)
	appendEntry("HZ205", sched.ActionCnl, msglog.Inbound)
	last := appendEntry("HZ100", sched.ActionCnl, msglog.Outbound)

	all, err := db.Query(ctx, msglog.Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d entries, want 3", len(all))
	}
	if all[0].ID != last || all[2].ID != first {
		t.Errorf("order = %d..%d, want newest first", all[0].ID, all[2].ID)
	}

	inbound, err := db.Query(ctx, msglog.Filter{Direction: msglog.Inbound})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(inbound) != 2 {
		t.Errorf("direction filter: got %d, want 2", len(inbound))
	}

	both, err := db.Query(ctx, msglog.Filter{FlightNumber: "HZ100", ActionCode: sched.ActionCnl})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(both) != 1 || both[0].ID != last {
		t.Errorf("combined filter = %+v", both)
	}
}

func TestSQLiteListRecords(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	b := testRecord()
	b.FlightNumber = "HZ205"
	if err := db.Insert(ctx, b); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := db.Insert(ctx, testRecord()); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	records, err := db.ListRecords(ctx)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].FlightNumber != "HZ100" || records[1].FlightNumber != "HZ205" {
		t.Errorf("order = %s, %s", records[0].FlightNumber, records[1].FlightNumber)
	}
}
