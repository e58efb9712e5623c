// Package reconcile classifies incoming schedule records and messages
// against the current schedule before anything is applied. Classification
// is a pure read: calling it twice on the same inputs yields the same
// answer, which is what makes re-running an import safe.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"schedlink/internal/sched"
	"schedlink/internal/ssim"
)

// ScheduleStore is the read side of the schedule store the engine
// classifies against.
type ScheduleStore interface {
	// FindByIdentity returns the record with the given identity, or nil
	// when none exists.
	FindByIdentity(ctx context.Context, id sched.Identity) (*sched.ScheduleRecord, error)

	// FindByFlightAndDate returns the record covering the given flight
	// number on the given date, or nil when none does.
	FindByFlightAndDate(ctx context.Context, flightNumber string, date time.Time) (*sched.ScheduleRecord, error)
}

// Classification of one incoming record against the store.
type Classification string

const (
	ClassNew       Classification = "new"
	ClassUpdated   Classification = "updated"
	ClassUnchanged Classification = "unchanged"
	ClassError     Classification = "error"
)

// RecordResult is one classified record. Diff lists the differing field
// names for updates; Err explains an error classification.
type RecordResult struct {
	Record   sched.ScheduleRecord
	Class    Classification
	Existing *sched.ScheduleRecord
	Diff     []string
	Err      string
}

// Batch is a classified import, computed once at preview time and passed
// unchanged to the apply engine. Errors carries the parse-level failures;
// those lines never reach the apply step.
type Batch struct {
	Carrier string
	Season  string
	Items   []RecordResult
	Errors  []sched.ParseError
}

// comparableFields are compared between a matched pair. Identity fields
// are excluded: they are equal by construction of the match.
var comparableFields = []string{
	sched.FieldSTD,
	sched.FieldSTA,
	sched.FieldDays,
	sched.FieldAircraftType,
	sched.FieldCabinConfig,
	sched.FieldServiceType,
	sched.FieldEffectiveTo,
	sched.FieldArrivalDayOffset,
}

// Classify compares a parsed bulk file against the store. Every valid
// record lands in exactly one of New, Updated or Unchanged; records that
// fail their own invariants classify as Error.
func Classify(ctx context.Context, store ScheduleStore, parsed ssim.Result) (*Batch, error) {
	batch := &Batch{
		Carrier: parsed.Carrier,
		Season:  parsed.Season,
		Errors:  parsed.Errors,
	}

	for _, rec := range parsed.Records {
		item := RecordResult{Record: rec}

		if err := rec.Validate(); err != nil {
			item.Class = ClassError
			item.Err = err.Error()
			batch.Items = append(batch.Items, item)
			continue
		}

		existing, err := store.FindByIdentity(ctx, rec.Identity())
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", rec.FlightNumber, err)
		}

		switch {
		case existing == nil:
			item.Class = ClassNew
		case rec.Equal(existing):
			item.Class = ClassUnchanged
			item.Existing = existing
		default:
			item.Class = ClassUpdated
			item.Existing = existing
			item.Diff = diffFields(existing, &rec)
		}
		batch.Items = append(batch.Items, item)
	}

	return batch, nil
}

// diffFields lists the comparable fields whose values differ.
func diffFields(existing, incoming *sched.ScheduleRecord) []string {
	var diff []string
	for _, f := range comparableFields {
		a, _ := existing.FieldValue(f)
		b, _ := incoming.FieldValue(f)
		if a != b {
			diff = append(diff, f)
		}
	}
	return diff
}

// MessageResult is a resolved ASM/SSM message. A non-empty Err blocks the
// apply step; the engine surfaces absence and ambiguity, it never guesses.
type MessageResult struct {
	Message sched.ParsedMessage
	Target  *sched.ScheduleRecord // nil for NEW, or when resolution failed
	Err     string
}

// ResolveMessage finds the flight a message applies to. NEW messages match
// nothing by design. Parse errors take precedence over resolution.
func ResolveMessage(ctx context.Context, store ScheduleStore, msg sched.ParsedMessage) (MessageResult, error) {
	res := MessageResult{Message: msg}

	if len(msg.Errors) > 0 {
		res.Err = "message has parse errors: " + strings.Join(msg.Errors, "; ")
		return res, nil
	}

	if msg.ActionCode == sched.ActionNew {
		return res, nil
	}

	if msg.FlightDate.IsZero() {
		res.Err = "missing or invalid flight date"
		return res, nil
	}

	target, err := store.FindByFlightAndDate(ctx, msg.FlightNumber, msg.FlightDate)
	if errors.Is(err, sched.ErrAmbiguousFlight) {
		res.Err = "ambiguous flight match"
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("lookup %s: %w", msg.FlightNumber, err)
	}
	if target == nil {
		res.Err = "flight not found"
		return res, nil
	}
	res.Target = target
	return res, nil
}
