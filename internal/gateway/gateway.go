// Package gateway ties the codecs, the reconciliation and apply engines
// and the message log into the operations the surrounding application
// calls: preview and apply a bulk import, process one inbound message,
// compose an outbound one.
package gateway

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"schedlink/internal/apply"
	"schedlink/internal/asm"
	"schedlink/internal/msglog"
	"schedlink/internal/reconcile"
	"schedlink/internal/sched"
	"schedlink/internal/ssim"
)

// Processor is the message gateway. It is safe for concurrent use as long
// as the underlying store and log are.
type Processor struct {
	store  apply.Store
	log    msglog.Log
	logger *zap.SugaredLogger
}

// New creates a Processor. A nil logger disables logging.
func New(store apply.Store, log msglog.Log, logger *zap.SugaredLogger) *Processor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Processor{store: store, log: log, logger: logger}
}

// Inbound is one received message: parsed, resolved against the schedule,
// and logged. It is computed once and handed unchanged to Apply or
// Reject, so preview and commit always agree.
type Inbound struct {
	EntryID    int64
	Message    sched.ParsedMessage
	Resolution reconcile.MessageResult
}

// ProcessInbound parses and resolves one raw message and logs it as
// pending. Nothing is mutated yet; the decision is Apply or Reject.
func (p *Processor) ProcessInbound(ctx context.Context, raw string) (*Inbound, error) {
	msg := asm.Parse(raw)

	res, err := reconcile.ResolveMessage(ctx, p.store, msg)
	if err != nil {
		return nil, fmt.Errorf("resolve message: %w", err)
	}

	id, err := p.log.Append(ctx, msglog.Entry{
		MessageType:  msg.MessageType,
		ActionCode:   msg.ActionCode,
		Direction:    msglog.Inbound,
		FlightNumber: msg.FlightNumber,
		FlightDate:   msg.FlightDate,
		Status:       msglog.StatusPending,
		Summary:      summarize(msg),
		RawMessage:   raw,
		Changes:      msg.Changes,
	})
	if err != nil {
		return nil, fmt.Errorf("log message: %w", err)
	}

	p.logger.Infow("inbound message logged",
		"entry_id", id,
		"action", msg.ActionCode,
		"flight", msg.FlightNumber,
		"parse_errors", len(msg.Errors),
		"resolution_error", res.Err)

	return &Inbound{EntryID: id, Message: msg, Resolution: res}, nil
}

// Apply commits a processed inbound message. The message log is the
// authority on whether this already happened: a terminal entry makes
// Apply a no-op, so a retried operator action cannot double-apply.
func (p *Processor) Apply(ctx context.Context, in *Inbound) (apply.MessageOutcome, error) {
	entry, err := p.log.Get(ctx, in.EntryID)
	if err != nil {
		return apply.MessageOutcome{}, fmt.Errorf("load log entry: %w", err)
	}
	if entry == nil {
		return apply.MessageOutcome{}, fmt.Errorf("log entry %d not found", in.EntryID)
	}
	if entry.Status.Terminal() {
		return apply.MessageOutcome{
			Warning: fmt.Sprintf("message already %s", entry.Status),
		}, nil
	}

	outcome, err := apply.Message(ctx, p.store, in.Resolution)
	if err != nil {
		if terr := p.log.Transition(ctx, in.EntryID, msglog.StatusRejected, err.Error()); terr != nil {
			p.logger.Errorw("reject transition failed", "entry_id", in.EntryID, "error", terr)
		}
		p.logger.Warnw("message rejected",
			"entry_id", in.EntryID,
			"action", in.Message.ActionCode,
			"flight", in.Message.FlightNumber,
			"reason", err.Error())
		return apply.MessageOutcome{}, err
	}

	if err := p.log.Transition(ctx, in.EntryID, msglog.StatusApplied, ""); err != nil {
		return outcome, fmt.Errorf("mark applied: %w", err)
	}
	p.logger.Infow("message applied",
		"entry_id", in.EntryID,
		"action", in.Message.ActionCode,
		"flight", in.Message.FlightNumber,
		"warning", outcome.Warning)
	return outcome, nil
}

// Reject marks a processed inbound message as rejected without touching
// the schedule. Rejecting a terminal entry is a no-op.
func (p *Processor) Reject(ctx context.Context, in *Inbound, reason string) error {
	if err := p.log.Transition(ctx, in.EntryID, msglog.StatusRejected, reason); err != nil {
		return fmt.Errorf("mark rejected: %w", err)
	}
	p.logger.Infow("message rejected by operator",
		"entry_id", in.EntryID, "reason", reason)
	return nil
}

// SendOutbound renders an outbound message and logs it as sent. Delivery
// confirmation is out of scope; sent is the entry's final state.
func (p *Processor) SendOutbound(ctx context.Context, in asm.Intent) (string, int64, error) {
	raw, err := asm.Generate(in)
	if err != nil {
		return "", 0, err
	}

	id, err := p.log.Append(ctx, msglog.Entry{
		MessageType:  in.MessageType,
		ActionCode:   in.ActionCode,
		Direction:    msglog.Outbound,
		FlightNumber: in.FlightNumber,
		FlightDate:   in.FlightDate,
		Status:       msglog.StatusSent,
		Summary:      fmt.Sprintf("%s %s", in.ActionCode, in.FlightNumber),
		RawMessage:   raw,
		Changes:      in.Changes,
	})
	if err != nil {
		return "", 0, fmt.Errorf("log message: %w", err)
	}

	p.logger.Infow("outbound message logged",
		"entry_id", id, "action", in.ActionCode, "flight", in.FlightNumber)
	return raw, id, nil
}

// ImportPreview parses bulk schedule content and classifies it against
// the store. The returned batch is what an operator reviews, and exactly
// what ImportApply later commits.
func (p *Processor) ImportPreview(ctx context.Context, content string) (*reconcile.Batch, error) {
	parsed := ssim.Parse(content)
	return reconcile.Classify(ctx, p.store, parsed)
}

// ImportApply commits a previewed batch.
func (p *Processor) ImportApply(ctx context.Context, batch *reconcile.Batch) apply.BatchResult {
	res := apply.Batch(ctx, p.store, batch)
	p.logger.Infow("import applied",
		"carrier", batch.Carrier,
		"season", batch.Season,
		"new", res.New,
		"updated", res.Updated,
		"unchanged", res.Unchanged,
		"errors", res.Errors)
	return res
}

func summarize(msg sched.ParsedMessage) string {
	s := fmt.Sprintf("%s %s", msg.ActionCode, msg.FlightNumber)
	if !msg.FlightDate.IsZero() {
		s += "/" + sched.FormatWireDate(msg.FlightDate)
	}
	if len(msg.Changes) > 0 {
		s += fmt.Sprintf(" (%d field changes)", len(msg.Changes))
	}
	return s
}
