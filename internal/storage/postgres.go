package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"schedlink/internal/msglog"
	"schedlink/internal/sched"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// Postgres is the shared production schedule store and message log.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// CreateSchema creates the PostgreSQL tables.
func (p *Postgres) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS schedule_records (
		flight_number      TEXT NOT NULL,
		departure_station  TEXT NOT NULL,
		arrival_station    TEXT NOT NULL,
		effective_from     DATE NOT NULL,
		effective_to       DATE,
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
		flight_date   DATE NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (flight_number, flight_date)
	);

	CREATE TABLE IF NOT EXISTS message_log (
		id            BIGSERIAL PRIMARY KEY,
		message_type  TEXT NOT NULL,
		action_code   TEXT NOT NULL,
		direction     TEXT NOT NULL,
		flight_number TEXT,
		flight_date   DATE,
		status        TEXT NOT NULL,
		summary       TEXT,
		raw_message   TEXT NOT NULL,
		changes       JSONB,
		reject_reason TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_message_log_direction ON message_log(direction);
	CREATE INDEX IF NOT EXISTS idx_message_log_action ON message_log(action_code);
	CREATE INDEX IF NOT EXISTS idx_message_log_flight ON message_log(flight_number);
	`
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (p *Postgres) FindByIdentity(ctx context.Context, id sched.Identity) (*sched.ScheduleRecord, error) {
	from, err := time.ParseInLocation("2006-01-02", id.EffectiveFrom, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("bad identity date %q: %w", id.EffectiveFrom, err)
	}

	row := p.pool.QueryRow(ctx, `
		SELECT `+recordColumnsPG+`
		FROM schedule_records
		WHERE flight_number = $1 AND departure_station = $2
		  AND arrival_station = $3 AND effective_from = $4`,
		id.FlightNumber, id.DepartureStation, id.ArrivalStation, from)

	rec, err := scanRecordPG(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by identity: %w", err)
	}
	return rec, nil
}

func (p *Postgres) FindByFlightAndDate(ctx context.Context, flightNumber string, date time.Time) (*sched.ScheduleRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+recordColumnsPG+`
		FROM schedule_records
		WHERE flight_number = $1 AND effective_from <= $2
		  AND (effective_to IS NULL OR effective_to >= $2)`,
		flightNumber, date)
	if err != nil {
		return nil, fmt.Errorf("find by flight and date: %w", err)
	}
	defer rows.Close()

	var found *sched.ScheduleRecord
	for rows.Next() {
		rec, err := scanRecordPG(rows)
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
func (p *Postgres) ListRecords(ctx context.Context) ([]sched.ScheduleRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+recordColumnsPG+`
		FROM schedule_records
		ORDER BY flight_number, departure_station, arrival_station, effective_from`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []sched.ScheduleRecord
	for rows.Next() {
		rec, err := scanRecordPG(rows)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Insert(ctx context.Context, rec sched.ScheduleRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO schedule_records (`+recordColumnsPG+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		recordArgsPG(&rec)...)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (p *Postgres) Update(ctx context.Context, id sched.Identity, fields map[string]string) error {
	existing, err := p.FindByIdentity(ctx, id)
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

	from, _ := time.ParseInLocation("2006-01-02", id.EffectiveFrom, time.UTC)
	args := append(recordArgsPG(&rec),
		id.FlightNumber, id.DepartureStation, id.ArrivalStation, from)
	_, err = p.pool.Exec(ctx, `
		UPDATE schedule_records SET
			flight_number = $1, departure_station = $2, arrival_station = $3,
			effective_from = $4, effective_to = $5, std = $6, sta = $7, days = $8,
			aircraft_type = $9, cabin_config = $10, service_type = $11, arrival_day_offset = $12
		WHERE flight_number = $13 AND departure_station = $14
		  AND arrival_station = $15 AND effective_from = $16`,
		args...)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

func (p *Postgres) SetCancelled(ctx context.Context, flightNumber string, date time.Time, cancelled bool) error {
	var err error
	if cancelled {
		_, err = p.pool.Exec(ctx, `
			INSERT INTO cancellations (flight_number, flight_date)
			VALUES ($1, $2) ON CONFLICT DO NOTHING`, flightNumber, date)
	} else {
		_, err = p.pool.Exec(ctx, `
			DELETE FROM cancellations WHERE flight_number = $1 AND flight_date = $2`,
			flightNumber, date)
	}
	if err != nil {
		return fmt.Errorf("set cancelled: %w", err)
	}
	return nil
}

// IsCancelled reports whether the dated instance carries a cancellation
// mark.
func (p *Postgres) IsCancelled(ctx context.Context, flightNumber string, date time.Time) (bool, error) {
	var n int
	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM cancellations WHERE flight_number = $1 AND flight_date = $2`,
		flightNumber, date).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("is cancelled: %w", err)
	}
	return n > 0, nil
}

const recordColumnsPG = `flight_number, departure_station, arrival_station,
	effective_from, effective_to, std, sta, days, aircraft_type,
	cabin_config, service_type, arrival_day_offset`

func scanRecordPG(row pgx.Row) (*sched.ScheduleRecord, error) {
	var rec sched.ScheduleRecord
	var from time.Time
	var to *time.Time
	var days string
	var aircraft, cabin, service *string

	err := row.Scan(&rec.FlightNumber, &rec.DepartureStation, &rec.ArrivalStation,
		&from, &to, &rec.STD, &rec.STA, &days, &aircraft, &cabin, &service,
		&rec.ArrivalDayOffset)
	if err != nil {
		return nil, err
	}

	rec.EffectiveFrom = from.UTC()
	if to != nil {
		rec.EffectiveTo = to.UTC()
	}
	rec.DaysOfOperation, err = sched.ParseDaySet(days)
	if err != nil {
		return nil, err
	}
	if aircraft != nil {
		rec.AircraftType = *aircraft
	}
	if cabin != nil {
		rec.CabinConfig = *cabin
	}
	if service != nil {
		rec.ServiceType = *service
	}
	return &rec, nil
}

func recordArgsPG(rec *sched.ScheduleRecord) []any {
	var to any
	if !rec.EffectiveTo.IsZero() {
		to = rec.EffectiveTo
	}
	return []any{
		rec.FlightNumber, rec.DepartureStation, rec.ArrivalStation,
		rec.EffectiveFrom, to, rec.STD, rec.STA,
		rec.DaysOfOperation.String(), rec.AircraftType, rec.CabinConfig,
		rec.ServiceType, rec.ArrivalDayOffset,
	}
}

// Append writes a message log entry.
func (p *Postgres) Append(ctx context.Context, e msglog.Entry) (int64, error) {
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
		changes = b
	}

	var flightDate any
	if !e.FlightDate.IsZero() {
		flightDate = e.FlightDate
	}

	var id int64
	err := p.pool.QueryRow(ctx, `
		INSERT INTO message_log (message_type, action_code, direction,
			flight_number, flight_date, status, summary, raw_message,
			changes, reject_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		e.MessageType, e.ActionCode, e.Direction, e.FlightNumber, flightDate,
		e.Status, e.Summary, e.RawMessage, changes, e.RejectReason,
		e.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append log entry: %w", err)
	}
	return id, nil
}

// Get returns one log entry, or nil when absent.
func (p *Postgres) Get(ctx context.Context, id int64) (*msglog.Entry, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, message_type, action_code, direction, flight_number,
		       flight_date, status, summary, raw_message, changes,
		       reject_reason, created_at
		FROM message_log WHERE id = $1`, id)

	e, err := scanEntryPG(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get log entry: %w", err)
	}
	return e, nil
}

// Transition moves an entry's status. The terminal-state guard lives in
// the WHERE clause: an entry past pending is simply not updated.
func (p *Postgres) Transition(ctx context.Context, id int64, to msglog.Status, rejectReason string) error {
	if !msglog.CanTransition(msglog.StatusPending, to) {
		return fmt.Errorf("illegal target status %q", to)
	}
	_, err := p.pool.Exec(ctx, `
		UPDATE message_log SET status = $1, reject_reason = $2
		WHERE id = $3 AND status = $4`,
		to, rejectReason, id, msglog.StatusPending)
	if err != nil {
		return fmt.Errorf("transition log entry: %w", err)
	}
	return nil
}

// Query returns matching entries newest-first.
func (p *Postgres) Query(ctx context.Context, f msglog.Filter) ([]msglog.Entry, error) {
	var conds []string
	var args []any
	if f.Direction != "" {
		args = append(args, f.Direction)
		conds = append(conds, fmt.Sprintf("direction = $%d", len(args)))
	}
	if f.ActionCode != "" {
		args = append(args, f.ActionCode)
		conds = append(conds, fmt.Sprintf("action_code = $%d", len(args)))
	}
	if f.FlightNumber != "" {
		args = append(args, f.FlightNumber)
		conds = append(conds, fmt.Sprintf("flight_number = $%d", len(args)))
	}

	q := `SELECT id, message_type, action_code, direction, flight_number,
	             flight_date, status, summary, raw_message, changes,
	             reject_reason, created_at
	      FROM message_log`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY id DESC"

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	var out []msglog.Entry
	for rows.Next() {
		e, err := scanEntryPG(rows)
		if err != nil {
			return nil, fmt.Errorf("query log: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEntryPG(row pgx.Row) (*msglog.Entry, error) {
	var e msglog.Entry
	var flightNumber, summary, rejectReason *string
	var flightDate *time.Time
	var changes []byte

	err := row.Scan(&e.ID, &e.MessageType, &e.ActionCode, &e.Direction,
		&flightNumber, &flightDate, &e.Status, &summary, &e.RawMessage,
		&changes, &rejectReason, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	if flightNumber != nil {
		e.FlightNumber = *flightNumber
	}
	if flightDate != nil {
		e.FlightDate = flightDate.UTC()
	}
	if summary != nil {
		e.Summary = *summary
	}
	if rejectReason != nil {
		e.RejectReason = *rejectReason
	}
	if len(changes) > 0 {
		if err := json.Unmarshal(changes, &e.Changes); err != nil {
			return nil, fmt.Errorf("unmarshal changes: %w", err)
		}
	}
	return &e, nil
}
