// Package apply performs the minimal, idempotent mutation a classified
// import or an accepted message calls for.
package apply

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"schedlink/internal/reconcile"
	"schedlink/internal/sched"
)

// Store is the full schedule store the engine mutates. FindByIdentity and
// FindByFlightAndDate come from the reconciliation read side.
type Store interface {
	reconcile.ScheduleStore

	Insert(ctx context.Context, rec sched.ScheduleRecord) error
	Update(ctx context.Context, id sched.Identity, fields map[string]string) error

	// SetCancelled marks or clears the cancellation of one dated flight
	// instance. Clearing removes the mark entirely, leaving no residue.
	SetCancelled(ctx context.Context, flightNumber string, date time.Time, cancelled bool) error
}

// Counts summarises one applied batch.
type Counts struct {
	New       int `json:"new"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Errors    int `json:"errors"`
}

// BatchResult is the outcome of applying a classified import. Problems
// holds per-record store failures; records applied before a failing one
// stay applied.
type BatchResult struct {
	Counts
	Problems []string
}

// Batch applies a classified import. Error-classified rows and parse
// errors are counted but never touch the store. New records are inserted,
// updated records overwrite only their differing fields, unchanged records
// are counted no-ops.
func Batch(ctx context.Context, st Store, b *reconcile.Batch) BatchResult {
	var res BatchResult
	res.Errors = len(b.Errors)

	for _, item := range b.Items {
		switch item.Class {
		case reconcile.ClassError:
			res.Errors++

		case reconcile.ClassNew:
			if err := st.Insert(ctx, item.Record); err != nil {
				res.Errors++
				res.Problems = append(res.Problems,
					fmt.Sprintf("%s: insert: %v", item.Record.FlightNumber, err))
				continue
			}
			res.New++

		case reconcile.ClassUpdated:
			fields := make(map[string]string, len(item.Diff))
			for _, f := range item.Diff {
				v, _ := item.Record.FieldValue(f)
				fields[f] = v
			}
			if err := st.Update(ctx, item.Record.Identity(), fields); err != nil {
				res.Errors++
				res.Problems = append(res.Problems,
					fmt.Sprintf("%s: update: %v", item.Record.FlightNumber, err))
				continue
			}
			res.Updated++

		case reconcile.ClassUnchanged:
			res.Unchanged++
		}
	}
	return res
}

// MessageOutcome reports an applied message: the concrete field updates
// performed, and a warning when a non-fatal anomaly was noticed on the
// way (the change is applied regardless).
type MessageOutcome struct {
	Applied bool
	Warning string
	Updates map[string]string
}

// Message applies one resolved message. Fatal conditions (unresolved
// flight, unusable change values) abort before any mutation; the store is
// never left partially changed for a single message.
func Message(ctx context.Context, st Store, res reconcile.MessageResult) (MessageOutcome, error) {
	if res.Err != "" {
		return MessageOutcome{}, errors.New(res.Err)
	}
	msg := res.Message

	switch msg.ActionCode {
	case sched.ActionNew:
		return applyNew(ctx, st, msg)
	case sched.ActionCnl:
		if err := st.SetCancelled(ctx, msg.FlightNumber, msg.FlightDate, true); err != nil {
			return MessageOutcome{}, fmt.Errorf("cancel: %w", err)
		}
		return MessageOutcome{Applied: true}, nil
	case sched.ActionRin:
		if err := st.SetCancelled(ctx, msg.FlightNumber, msg.FlightDate, false); err != nil {
			return MessageOutcome{}, fmt.Errorf("reinstate: %w", err)
		}
		return MessageOutcome{Applied: true}, nil
	default:
		return applyChanges(ctx, st, res)
	}
}

// applyNew builds and inserts the record a NEW message describes. The
// flight date stands in for a missing effective-from.
func applyNew(ctx context.Context, st Store, msg sched.ParsedMessage) (MessageOutcome, error) {
	rec := sched.ScheduleRecord{FlightNumber: msg.FlightNumber}
	updates := make(map[string]string, len(msg.Changes))

	for field, ch := range msg.Changes {
		if err := rec.ApplyField(field, ch.To); err != nil {
			return MessageOutcome{}, fmt.Errorf("%s: %w", field, err)
		}
	}
	if rec.EffectiveFrom.IsZero() && !msg.FlightDate.IsZero() {
		rec.EffectiveFrom = msg.FlightDate
	}
	if err := rec.Validate(); err != nil {
		return MessageOutcome{}, err
	}
	if err := st.Insert(ctx, rec); err != nil {
		return MessageOutcome{}, fmt.Errorf("insert: %w", err)
	}

	for field := range msg.Changes {
		v, _ := rec.FieldValue(field)
		updates[field] = v
	}
	return MessageOutcome{Applied: true, Updates: updates}, nil
}

// applyChanges applies a field-level change-set to the resolved target.
// All values are validated against a scratch copy first, so a bad value
// aborts with nothing written. A stated old value that disagrees with the
// target's current value produces a warning, not a refusal.
func applyChanges(ctx context.Context, st Store, res reconcile.MessageResult) (MessageOutcome, error) {
	target := res.Target
	msg := res.Message

	scratch := *target
	var warnings []string
	updates := make(map[string]string, len(msg.Changes))

	for field, ch := range msg.Changes {
		if ch.From != "" {
			probe := *target
			cur, _ := target.FieldValue(field)
			if err := probe.ApplyField(field, ch.From); err == nil {
				if stated, _ := probe.FieldValue(field); stated != cur {
					warnings = append(warnings, fmt.Sprintf(
						"%s: message states old value %s, current is %s", field, stated, cur))
				}
			}
		}
		if err := scratch.ApplyField(field, ch.To); err != nil {
			return MessageOutcome{}, fmt.Errorf("%s: %w", field, err)
		}
		v, _ := scratch.FieldValue(field)
		updates[field] = v
	}

	if err := st.Update(ctx, target.Identity(), updates); err != nil {
		return MessageOutcome{}, fmt.Errorf("update: %w", err)
	}

	return MessageOutcome{
		Applied: true,
		Warning: strings.Join(warnings, "; "),
		Updates: updates,
	}, nil
}
