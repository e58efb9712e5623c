// Package msglog is the append-only audit trail of every inbound and
// outbound schedule message. An entry is written once and its status moves
// at most once; it is the sole source of truth for whether a logged
// message has already been applied.
package msglog

import (
	"context"
	"time"

	"schedlink/internal/sched"
)

// Direction of a logged message.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Status is the lifecycle state of a logged message. Inbound messages
// start pending and end at exactly one of applied or rejected. Outbound
// messages are logged directly as sent. Discarded marks an operator
// abandoning a draft before logging, so it never appears as a persisted
// transition.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusApplied   Status = "applied"
	StatusRejected  Status = "rejected"
	StatusDiscarded Status = "discarded"
)

// Terminal reports whether no further transition may leave s. Only
// pending entries can move.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// CanTransition reports whether the from→to move is legal.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StatusSent, StatusApplied, StatusRejected:
		return true
	}
	return false
}

// Entry is one persisted audit record.
type Entry struct {
	ID           int64             `json:"id"`
	MessageType  sched.MessageType `json:"message_type"`
	ActionCode   sched.ActionCode  `json:"action_code"`
	Direction    Direction         `json:"direction"`
	FlightNumber string            `json:"flight_number"`
	FlightDate   time.Time         `json:"flight_date"`
	Status       Status            `json:"status"`
	Summary      string            `json:"summary"`
	RawMessage   string            `json:"raw_message"`
	Changes      sched.ChangeSet   `json:"changes,omitempty"`
	RejectReason string            `json:"reject_reason,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Filter narrows a log query. Zero values match everything.
type Filter struct {
	Direction    Direction
	ActionCode   sched.ActionCode
	FlightNumber string
}

// Match reports whether e passes the filter.
func (f Filter) Match(e *Entry) bool {
	if f.Direction != "" && e.Direction != f.Direction {
		return false
	}
	if f.ActionCode != "" && e.ActionCode != f.ActionCode {
		return false
	}
	if f.FlightNumber != "" && e.FlightNumber != f.FlightNumber {
		return false
	}
	return true
}

// Log is the audit trail store.
type Log interface {
	// Append writes a new entry, assigning its id and timestamp. It is
	// defined to succeed for well-formed entries.
	Append(ctx context.Context, e Entry) (int64, error)

	// Get returns the entry with the given id, or nil when absent.
	Get(ctx context.Context, id int64) (*Entry, error)

	// Transition moves an entry's status. Moving a terminal entry is a
	// silent no-op, so a retried operator action stays safe.
	Transition(ctx context.Context, id int64, to Status, rejectReason string) error

	// Query returns matching entries newest-first.
	Query(ctx context.Context, f Filter) ([]Entry, error)
}
