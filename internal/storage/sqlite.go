package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"schedlink/internal/msglog"
	"schedlink/internal/sched"
)

// SQLite holds the schedule and message log in an embedded database, for
// single-operator and offline use. It implements the same store surface
// as the PostgreSQL backend.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS schedule_records (
		flight_number      TEXT NOT NULL,
		departure_station  TEXT NOT NULL,
		arrival_station    TEXT NOT NULL,
		effective_from     TEXT NOT NULL,
		effective_to       TEXT,
		std                TEXT NOT NULL,
		sta                TEXT NOT NULL,
		days               TEXT NOT NULL,
		aircraft_type      TEXT,
		cabin_config       TEXT,
		service_type       TEXT,
		arrival_day_offset INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (flight_number, departure_station, arrival_station, effective_from)
	);

	CREATE INDEX IF NOT EXISTS idx_schedule_flight ON schedule_records(flight_number);

	CREATE TABLE IF NOT EXISTS cancellations (
		flight_number TEXT NOT NULL,
		flight_date   TEXT NOT NULL,
		created_at    TEXT DEFAULT (datetime('now')),
		PRIMARY KEY (flight_number, flight_date)
	);

	CREATE TABLE IF NOT EXISTS message_log (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		message_type  TEXT NOT NULL,
		action_code   TEXT NOT NULL,
		direction     TEXT NOT NULL,
		flight_number TEXT,
		flight_date   TEXT,
		status        TEXT NOT NULL,
		summary       TEXT,
		raw_message   TEXT NOT NULL,
		changes       TEXT,
		reject_reason TEXT,
		created_at    TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_message_log_direction ON message_log(direction);
	CREATE INDEX IF NOT EXISTS idx_message_log_action ON message_log(action_code);
	CREATE INDEX IF NOT EXISTS idx_message_log_flight ON message_log(flight_number);
	`
	_, err := db.Exec(schema)
	return err
}

const recordColumns = `flight_number, departure_station, arrival_station,
	effective_from, effective_to, std, sta, days, aircraft_type,
	cabin_config, service_type, arrival_day_offset`

func (s *SQLite) FindByIdentity(ctx context.Context, id sched.Identity) (*sched.ScheduleRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM schedule_records
		WHERE flight_number = ? AND departure_station = ?
		  AND arrival_station = ? AND effective_from = ?`,
		id.FlightNumber, id.DepartureStation, id.ArrivalStation, id.EffectiveFrom)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by identity: %w", err)
	}
	return rec, nil
}

func (s *SQLite) FindByFlightAndDate(ctx context.Context, flightNumber string, date time.Time) (*sched.ScheduleRecord, error) {
	day := date.Format("2006-01-02")
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM schedule_records
		WHERE flight_number = ? AND effective_from <= ?
		  AND (effective_to IS NULL OR effective_to >= ?)`,
		flightNumber, day, day)
	if err != nil {
		return nil, fmt.Errorf("find by flight and date: %w", err)
	}
	defer rows.Close()

	var found *sched.ScheduleRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("find by flight and date: %w", err)
		}
		if !rec.DaysOfOperation.Contains(isoWeekday(date)) {
			continue
		}
		if found != nil {
			return nil, sched.ErrAmbiguousFlight
		}
		found = rec
	}
	return found, rows.Err()
}

// ListRecords returns every stored record, ordered for stable export.
func (s *SQLite) ListRecords(ctx context.Context) ([]sched.ScheduleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM schedule_records
		ORDER BY flight_number, departure_station, arrival_station, effective_from`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []sched.ScheduleRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Insert(ctx context.Context, rec sched.ScheduleRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedule_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		recordArgs(&rec)...)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *SQLite) Update(ctx context.Context, id sched.Identity, fields map[string]string) error {
	existing, err := s.FindByIdentity(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("record %s not found", id.FlightNumber)
	}
	rec := *existing
	for f, v := range fields {
		if err := rec.ApplyField(f, v); err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
	}

	// A single UPDATE rewrites all columns, key columns included, in case
	// an identity field changed.
	args := append(recordArgs(&rec),
		id.FlightNumber, id.DepartureStation, id.ArrivalStation, id.EffectiveFrom)
	_, err = s.db.ExecContext(ctx, `
		UPDATE schedule_records SET
			flight_number = ?, departure_station = ?, arrival_station = ?,
			effective_from = ?, effective_to = ?, std = ?, sta = ?, days = ?,
			aircraft_type = ?, cabin_config = ?, service_type = ?, arrival_day_offset = ?
		WHERE flight_number = ? AND departure_station = ?
		  AND arrival_station = ? AND effective_from = ?`,
		args...)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

func (s *SQLite) SetCancelled(ctx context.Context, flightNumber string, date time.Time, cancelled bool) error {
	day := date.Format("2006-01-02")
	var err error
	if cancelled {
		_, err = s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO cancellations (flight_number, flight_date)
			VALUES (?, ?)`, flightNumber, day)
	} else {
		_, err = s.db.ExecContext(ctx, `
			DELETE FROM cancellations WHERE flight_number = ? AND flight_date = ?`,
			flightNumber, day)
	}
	if err != nil {
		return fmt.Errorf("set cancelled: %w", err)
	}
	return nil
}

// IsCancelled reports whether the dated instance carries a cancellation
// mark.
func (s *SQLite) IsCancelled(ctx context.Context, flightNumber string, date time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM cancellations WHERE flight_number = ? AND flight_date = ?`,
		flightNumber, date.Format("2006-01-02")).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("is cancelled: %w", err)
	}
	return n > 0, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*sched.ScheduleRecord, error) {
	var rec sched.ScheduleRecord
	var from string
	var to sql.NullString
	var days string
	var aircraft, cabin, service sql.NullString

	err := row.Scan(&rec.FlightNumber, &rec.DepartureStation, &rec.ArrivalStation,
		&from, &to, &rec.STD, &rec.STA, &days, &aircraft, &cabin, &service,
		&rec.ArrivalDayOffset)
	if err != nil {
		return nil, err
	}

	rec.EffectiveFrom, err = time.ParseInLocation("2006-01-02", from, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("bad effective_from %q: %w", from, err)
	}
	if to.Valid && to.String != "" {
		rec.EffectiveTo, err = time.ParseInLocation("2006-01-02", to.String, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("bad effective_to %q: %w", to.String, err)
		}
	}
	rec.DaysOfOperation, err = sched.ParseDaySet(days)
	if err != nil {
		return nil, err
	}
	rec.AircraftType = aircraft.String
	rec.CabinConfig = cabin.String
	rec.ServiceType = service.String
	return &rec, nil
}

func recordArgs(rec *sched.ScheduleRecord) []any {
	var to any
	if !rec.EffectiveTo.IsZero() {
		to = rec.EffectiveTo.Format("2006-01-02")
	}
	return []any{
		rec.FlightNumber, rec.DepartureStation, rec.ArrivalStation,
		rec.EffectiveFrom.Format("2006-01-02"), to, rec.STD, rec.STA,
		rec.DaysOfOperation.String(), rec.AircraftType, rec.CabinConfig,
		rec.ServiceType, rec.ArrivalDayOffset,
	}
}

// Append writes a message log entry.
func (s *SQLite) Append(ctx context.Context, e msglog.Entry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Status == "" {
		e.Status = msglog.StatusPending
	}

	var changes any
	if len(e.Changes) > 0 {
		b, err := json.Marshal(e.Changes)
		if err != nil {
			return 0, fmt.Errorf("marshal changes: %w", err)
		}
		changes = string(b)
	}

	var flightDate any
	if !e.FlightDate.IsZero() {
		flightDate = e.FlightDate.Format("2006-01-02")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO message_log (message_type, action_code, direction,
			flight_number, flight_date, status, summary, raw_message,
			changes, reject_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.MessageType, e.ActionCode, e.Direction, e.FlightNumber, flightDate,
		e.Status, e.Summary, e.RawMessage, changes, e.RejectReason,
		e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("append log entry: %w", err)
	}
	return res.LastInsertId()
}

// Get returns one log entry, or nil when absent.
func (s *SQLite) Get(ctx context.Context, id int64) (*msglog.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, message_type, action_code, direction, flight_number,
		       flight_date, status, summary, raw_message, changes,
		       reject_reason, created_at
		FROM message_log WHERE id = ?`, id)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get log entry: %w", err)
	}
	return e, nil
}

// Transition moves an entry's status. The terminal-state guard lives in
// the WHERE clause: an entry past pending is simply not updated.
func (s *SQLite) Transition(ctx context.Context, id int64, to msglog.Status, rejectReason string) error {
	if !msglog.CanTransition(msglog.StatusPending, to) {
		return fmt.Errorf("illegal target status %q", to)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE message_log SET status = ?, reject_reason = ?
		WHERE id = ? AND status = ?`,
		to, rejectReason, id, msglog.StatusPending)
	if err != nil {
		return fmt.Errorf("transition log entry: %w", err)
	}
	return nil
}

// Query returns matching entries newest-first.
func (s *SQLite) Query(ctx context.Context, f msglog.Filter) ([]msglog.Entry, error) {
	var conds []string
	var args []any
	if f.Direction != "" {
		conds = append(conds, "direction = ?")
		args = append(args, f.Direction)
	}
	if f.ActionCode != "" {
		conds = append(conds, "action_code = ?")
		args = append(args, f.ActionCode)
	}
	if f.FlightNumber != "" {
		conds = append(conds, "flight_number = ?")
		args = append(args, f.FlightNumber)
	}

	q := `SELECT id, message_type, action_code, direction, flight_number,
	             flight_date, status, summary, raw_message, changes,
	             reject_reason, created_at
	      FROM message_log`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY id DESC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	var out []msglog.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("query log: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEntry(row scanner) (*msglog.Entry, error) {
	var e msglog.Entry
	var flightNumber, flightDate, summary, changes, rejectReason sql.NullString
	var created string

	err := row.Scan(&e.ID, &e.MessageType, &e.ActionCode, &e.Direction,
		&flightNumber, &flightDate, &e.Status, &summary, &e.RawMessage,
		&changes, &rejectReason, &created)
	if err != nil {
		return nil, err
	}

	e.FlightNumber = flightNumber.String
	e.Summary = summary.String
	e.RejectReason = rejectReason.String
	if flightDate.Valid && flightDate.String != "" {
		e.FlightDate, err = time.ParseInLocation("2006-01-02", flightDate.String, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("bad flight_date %q: %w", flightDate.String, err)
		}
	}
	if changes.Valid && changes.String != "" {
		if err := json.Unmarshal([]byte(changes.String), &e.Changes); err != nil {
			return nil, fmt.Errorf("unmarshal changes: %w", err)
		}
	}
	e.CreatedAt, err = time.Parse(time.RFC3339, created)
	if err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", created, err)
	}
	return &e, nil
}
