package storage

import (
	"context"
	"fmt"
	"time"

	"schedlink/internal/msglog"
	"schedlink/internal/sched"
)

// Backend is the full persistence surface a command needs: the schedule
// store, the message log, and cancellation state.
type Backend interface {
	msglog.Log

	FindByIdentity(ctx context.Context, id sched.Identity) (*sched.ScheduleRecord, error)
	FindByFlightAndDate(ctx context.Context, flightNumber string, date time.Time) (*sched.ScheduleRecord, error)
	ListRecords(ctx context.Context) ([]sched.ScheduleRecord, error)
	Insert(ctx context.Context, rec sched.ScheduleRecord) error
	Update(ctx context.Context, id sched.Identity, fields map[string]string) error
	SetCancelled(ctx context.Context, flightNumber string, date time.Time, cancelled bool) error
	IsCancelled(ctx context.Context, flightNumber string, date time.Time) (bool, error)

	Close() error
}

// Config selects and configures a storage backend.
type Config struct {
	Backend    string // "sqlite" or "postgres"
	SQLitePath string
	Postgres   PostgresConfig
}

// DefaultConfig returns local development settings.
func DefaultConfig() Config {
	return Config{
		Backend:    "sqlite",
		SQLitePath: "schedlink.db",
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "schedlink",
			User:     "schedlink",
			Password: "schedlink",
		},
	}
}

// Open opens the configured backend, creating its schema when needed.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "postgres":
		pg, err := OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := pg.CreateSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
