package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// Archive keeps the analytics copy of every inbound and outbound message
// in ClickHouse. It is a write-only sink: the authoritative audit trail
// is the message log, the archive exists for volume reporting and ad hoc
// queries over raw traffic.
type Archive struct {
	conn driver.Conn
}

// OpenArchive opens a connection to ClickHouse.
func OpenArchive(ctx context.Context, cfg ClickHouseConfig) (*Archive, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &Archive{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (a *Archive) Close() error {
	return a.conn.Close()
}

// CreateSchema creates the archive table.
func (a *Archive) CreateSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS message_archive (
		log_id          UInt64,
		received_at     DateTime64(3),
		message_type    LowCardinality(String),
		action_code     LowCardinality(String),
		direction       LowCardinality(String),
		flight_number   LowCardinality(String),
		flight_date     String,
		status          LowCardinality(String),
		summary         String,
		raw_message     String,
		created_at      DateTime64(3) DEFAULT now64(3)
	)
	ENGINE = MergeTree()
	PARTITION BY toYYYYMM(received_at)
	ORDER BY (action_code, direction, received_at, log_id)
	SETTINGS index_granularity = 8192`

	if err := a.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// ArchivedMessage is one archived message row.
type ArchivedMessage struct {
	LogID        int64
	ReceivedAt   time.Time
	MessageType  string
	ActionCode   string
	Direction    string
	FlightNumber string
	FlightDate   string
	Status       string
	Summary      string
	RawMessage   string
}

// Write inserts one archive row. Async insert keeps the hot path from
// waiting on ClickHouse merges.
func (a *Archive) Write(ctx context.Context, m ArchivedMessage) error {
	err := a.conn.AsyncInsert(ctx, `
		INSERT INTO message_archive (log_id, received_at, message_type,
			action_code, direction, flight_number, flight_date, status,
			summary, raw_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		false,
		uint64(m.LogID), m.ReceivedAt, m.MessageType, m.ActionCode,
		m.Direction, m.FlightNumber, m.FlightDate, m.Status, m.Summary,
		m.RawMessage)
	if err != nil {
		return fmt.Errorf("archive message: %w", err)
	}
	return nil
}
